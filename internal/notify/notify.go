package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rowjay/bucket-browser/internal/config"
)

// Event describes one finished bucket mutation.
type Event struct {
	OpID      string    `json:"op_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Dest      string    `json:"dest,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi fans an event out to every target and returns the last failure.
type Multi struct {
	Targets []Notifier
}

func (m Multi) Notify(ctx context.Context, event Event) error {
	var err error
	for _, target := range m.Targets {
		if target == nil {
			continue
		}
		if nerr := target.Notify(ctx, event); nerr != nil {
			err = nerr
		}
	}
	return err
}

// Webhook posts the event as JSON.
type Webhook struct {
	Name    string
	URL     string
	Headers map[string]string
}

func (w Webhook) Notify(ctx context.Context, event Event) error {
	body, _ := json.Marshal(event)
	return post(ctx, "webhook "+w.Name, w.URL, body, w.Headers)
}

// Mattermost posts a one-line summary to an incoming webhook.
type Mattermost struct {
	Name string
	URL  string
}

func (m Mattermost) Notify(ctx context.Context, event Event) error {
	payload := map[string]string{"text": fmt.Sprintf("[%s] %s", event.Status, event.Message)}
	body, _ := json.Marshal(payload)
	return post(ctx, "mattermost "+m.Name, m.URL, body, nil)
}

func post(ctx context.Context, target, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %s", target, resp.Status)
	}
	return nil
}

func FromConfig(cfg config.NotificationsConfig) Multi {
	var targets []Notifier
	for _, w := range cfg.Webhooks {
		targets = append(targets, Webhook{Name: w.Name, URL: w.URL, Headers: w.Headers})
	}
	for _, mm := range cfg.Mattermost {
		targets = append(targets, Mattermost{Name: mm.Name, URL: mm.URL})
	}
	return Multi{Targets: targets}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
