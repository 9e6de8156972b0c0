package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/bucket-browser/internal/config"
)

func TestWebhookPostsEvent(t *testing.T) {
	var got Event
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("X-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := Webhook{Name: "ops", URL: srv.URL, Headers: map[string]string{"X-Token": "t0k"}}
	err := hook.Notify(context.Background(), Event{Type: "move", Key: "a/", Dest: "b/", Status: "success"})
	require.NoError(t, err)
	assert.Equal(t, "t0k", auth)
	assert.Equal(t, "move", got.Type)
	assert.Equal(t, "b/", got.Dest)
}

func TestWebhookReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := Webhook{Name: "ops", URL: srv.URL}.Notify(context.Background(), Event{})
	assert.ErrorContains(t, err, "webhook ops returned 502")
}

func TestMattermostSendsSummary(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer srv.Close()

	err := Mattermost{Name: "chat", URL: srv.URL}.Notify(context.Background(), Event{Status: "failed", Message: "delete old/"})
	require.NoError(t, err)
	assert.Equal(t, "[failed] delete old/", payload["text"])
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Notify(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestMultiNotifiesEveryTarget(t *testing.T) {
	failing := &stubNotifier{err: errors.New("down")}
	ok := &stubNotifier{}

	err := Multi{Targets: []Notifier{failing, nil, ok}}.Notify(context.Background(), Event{})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestFromConfig(t *testing.T) {
	multi := FromConfig(config.NotificationsConfig{
		Webhooks:   []config.WebhookConfig{{Name: "a", URL: "http://a"}},
		Mattermost: []config.MattermostConfig{{Name: "b", URL: "http://b"}},
	})
	require.Len(t, multi.Targets, 2)
	assert.IsType(t, Webhook{}, multi.Targets[0])
	assert.IsType(t, Mattermost{}, multi.Targets[1])
}
