package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

type request struct {
	method      string
	url         string
	resource    string
	body        []byte // nil means no body; an empty non-nil slice is a zero-byte body
	contentType string
	headers     map[string]string
}

// send signs and issues one request. DELETE and HEAD answered with 404 are
// returned as normal responses; every other non-2xx status is an error.
// The caller must close the returned body.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	date := c.now().UTC().Format(http.TimeFormat)
	contentType := ""
	if r.contentType != "" && r.body != nil {
		contentType = r.contentType
	}
	auth := Sign(c.cfg.AccessID, c.cfg.Secret, StringToSign{
		Method:      r.method,
		Resource:    r.resource,
		ContentType: contentType,
		Date:        date,
		Headers:     r.headers,
	})

	ctx, cancel := context.WithCancel(ctx)
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build %s request: %w", r.method, err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Date", date)
	for name, value := range r.headers {
		req.Header.Set(name, value)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// The timeout covers the wait for response headers, not the body transfer.
	start := time.Now()
	timer := time.AfterFunc(c.cfg.Timeout, cancel)
	resp, err := c.http.Do(req)
	if !timer.Stop() {
		if resp != nil {
			resp.Body.Close()
		}
		cancel()
		c.log.Debug().Str("method", r.method).Str("resource", r.resource).Dur("timeout", c.cfg.Timeout).Msg("storage request timed out")
		return nil, fmt.Errorf("%s %s: %w", r.method, r.resource, ErrTimeout)
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s %s: %w", r.method, r.resource, err)
	}
	c.log.Debug().
		Str("method", r.method).
		Str("resource", r.resource).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("storage request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	if resp.StatusCode == http.StatusNotFound && (r.method == http.MethodDelete || r.method == http.MethodHead) {
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	defer cancel()
	defer resp.Body.Close()
	return nil, newResponseError(r.method, r.resource, resp)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
