package storage

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rowjay/bucket-browser/internal/config"
)

// FromConfig builds a client from the loaded application configuration.
func FromConfig(cfg config.Config, log zerolog.Logger) (*Client, error) {
	s := cfg.Storage
	if s.Endpoint == "" || s.Bucket == "" {
		return nil, fmt.Errorf("storage endpoint and bucket are required")
	}
	if s.AccessID == "" || s.Secret == "" {
		return nil, fmt.Errorf("storage access_id and secret are required")
	}
	return New(Config{
		Endpoint: s.Endpoint,
		Bucket:   s.Bucket,
		AccessID: s.AccessID,
		Secret:   s.Secret,
		BasePath: s.BasePath,
		Timeout:  s.Timeout,
		Provider: Provider(strings.ToLower(s.Provider)),
	}, WithLogger(log), WithFolderConcurrency(cfg.Transfer.Concurrency))
}
