package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7/pkg/s3utils"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout = 30 * time.Second

	// FolderContentType marks zero-byte folder marker objects.
	FolderContentType  = "application/x-directory"
	defaultContentType = "application/octet-stream"
)

// Client talks to one bucket of an S3-compatible object store using
// HMAC (v2) signed requests. It keeps no state between requests.
type Client struct {
	cfg    Config
	http   *http.Client
	log    zerolog.Logger
	now    func() time.Time
	folder FolderOptions
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client used to reach the endpoint.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithClock sets the time source used for the signed Date header.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFolderConcurrency sets how many objects a folder copy/move/delete
// processes at once. Values below 2 keep the operations strictly sequential.
func WithFolderConcurrency(n int) Option {
	return func(c *Client) { c.folder.Concurrency = n }
}

// New builds a client from cfg. It does not contact the endpoint; the first
// listing is what proves the credentials.
func New(cfg Config, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme and host are required", cfg.Endpoint)
	}
	if !strings.HasSuffix(cfg.Endpoint, "/") {
		cfg.Endpoint += "/"
	}
	if err := s3utils.CheckValidBucketName(cfg.Bucket); err != nil {
		return nil, fmt.Errorf("invalid bucket: %w", err)
	}
	provider, err := parseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	cfg.Provider = provider
	cfg.BasePath = normalizeBasePath(cfg.BasePath)
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  zerolog.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Debug().Object("storage", c.cfg).Msg("storage client configured")
	return c, nil
}

// Config returns a copy of the normalized configuration.
func (c *Client) Config() Config {
	return c.cfg
}

func normalizeBasePath(p string) string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

// objectKey scopes a caller key under the base path.
func (c *Client) objectKey(key string) string {
	return c.cfg.BasePath + key
}

// relativeKey strips the base path from a key returned by the provider.
func (c *Client) relativeKey(key string) string {
	return strings.TrimPrefix(key, c.cfg.BasePath)
}

func (c *Client) objectURL(fullKey string) string {
	return c.cfg.Endpoint + c.cfg.Bucket + "/" + EncodeKey(fullKey)
}

func (c *Client) objectResource(fullKey string) string {
	return "/" + c.cfg.Bucket + "/" + EncodeKey(fullKey)
}

func (c *Client) bucketURL() string {
	return c.cfg.Endpoint + c.cfg.Bucket + "/"
}

func (c *Client) bucketResource() string {
	return "/" + c.cfg.Bucket + "/"
}

// withLogger attaches the client logger to ctx unless the caller already did.
func (c *Client) withLogger(ctx context.Context) context.Context {
	if zerolog.Ctx(ctx).GetLevel() == zerolog.Disabled {
		return c.log.WithContext(ctx)
	}
	return ctx
}
