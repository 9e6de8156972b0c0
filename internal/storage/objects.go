package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// ProgressFunc receives the bytes read so far and the expected total.
type ProgressFunc func(loaded, total int64)

const downloadChunkSize = 32 << 10

// UploadItem stores body under key in one PUT.
func (c *Client) UploadItem(ctx context.Context, key string, body []byte, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	if body == nil {
		body = []byte{}
	}
	if err := checkKey(key); err != nil {
		return err
	}
	full := c.objectKey(key)
	resp, err := c.send(ctx, request{
		method:      http.MethodPut,
		url:         c.objectURL(full),
		resource:    c.objectResource(full),
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// DownloadItem returns the full content of key.
func (c *Client) DownloadItem(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return data, nil
}

// DownloadItemWithProgress returns the content of key and reports progress.
// With a known length fn is called after every chunk; otherwise it is called
// once with (size, size) after the body has been read.
func (c *Client) DownloadItemWithProgress(ctx context.Context, key string, fn ProgressFunc) ([]byte, error) {
	if fn == nil {
		fn = func(int64, int64) {}
	}
	resp, err := c.get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength <= 0 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", key, err)
		}
		size := int64(len(data))
		fn(size, size)
		return data, nil
	}
	data, err := readWithProgress(resp.Body, resp.ContentLength, fn)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return data, nil
}

func readWithProgress(r io.Reader, total int64, fn ProgressFunc) ([]byte, error) {
	data := make([]byte, 0, min(total, 64<<20))
	buf := make([]byte, downloadChunkSize)
	var loaded int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			loaded += int64(n)
			fn(loaded, total)
		}
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) get(ctx context.Context, key string) (*http.Response, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	full := c.objectKey(key)
	return c.send(ctx, request{
		method:   http.MethodGet,
		url:      c.objectURL(full),
		resource: c.objectResource(full),
	})
}

// DeleteItem removes key. Deleting a missing key is not an error.
func (c *Client) DeleteItem(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	full := c.objectKey(key)
	resp, err := c.send(ctx, request{
		method:   http.MethodDelete,
		url:      c.objectURL(full),
		resource: c.objectResource(full),
	})
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// FileExists reports whether key exists. It never fails: any error reads as false.
func (c *Client) FileExists(ctx context.Context, key string) bool {
	resp, err := c.head(ctx, key)
	if err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("existence check failed")
		return false
	}
	defer drainAndClose(resp)
	return resp.StatusCode == http.StatusOK
}

// StatItem returns the size and modification time of key from a HEAD request.
func (c *Client) StatItem(ctx context.Context, key string) (Object, error) {
	resp, err := c.head(ctx, key)
	if err != nil {
		return Object{}, err
	}
	defer drainAndClose(resp)
	if resp.StatusCode == http.StatusNotFound {
		return Object{}, fmt.Errorf("stat %q: %w", key, ErrNotFound)
	}
	size := resp.ContentLength
	if size < 0 {
		size, _ = strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	}
	return Object{
		Key:          key,
		Size:         max(size, 0),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func (c *Client) head(ctx context.Context, key string) (*http.Response, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	full := c.objectKey(key)
	return c.send(ctx, request{
		method:   http.MethodHead,
		url:      c.objectURL(full),
		resource: c.objectResource(full),
	})
}

// CopyItem copies src to dst on the provider side; no object data passes
// through the client.
func (c *Client) CopyItem(ctx context.Context, src, dst string) error {
	for _, key := range []string{src, dst} {
		if err := checkKey(key); err != nil {
			return err
		}
	}
	full := c.objectKey(dst)
	resp, err := c.send(ctx, request{
		method:   http.MethodPut,
		url:      c.objectURL(full),
		resource: c.objectResource(full),
		headers: map[string]string{
			c.cfg.Provider.headerPrefix() + "copy-source": c.objectResource(c.objectKey(src)),
		},
	})
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}
