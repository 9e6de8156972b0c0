package storage_test

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rowjay/bucket-browser/internal/storage"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// transportClient builds a client whose requests never leave the process.
func transportClient(t *testing.T, rt roundTripFunc, opts ...storage.Option) *storage.Client {
	t.Helper()
	opts = append([]storage.Option{storage.WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	c, err := storage.New(storage.Config{
		Endpoint: "https://storage.example.test",
		Bucket:   "test-bucket",
		AccessID: "id",
		Secret:   "secret",
		Timeout:  time.Second,
	}, opts...)
	require.NoError(t, err)
	return c
}

func xmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Header:        http.Header{"Content-Type": []string{"application/xml"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// chunkReader hands out one chunk per Read call.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkReader) Close() error { return nil }
