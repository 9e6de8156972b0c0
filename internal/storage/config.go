package storage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Provider selects the namespace of the extension headers sent to the object store.
type Provider string

const (
	ProviderGCS Provider = "gcs"
	ProviderS3  Provider = "s3"
)

func (p Provider) headerPrefix() string {
	if p == ProviderS3 {
		return "x-amz-"
	}
	return "x-goog-"
}

func parseProvider(p Provider) (Provider, error) {
	switch p {
	case "":
		return ProviderGCS, nil
	case ProviderGCS, ProviderS3:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported storage provider: %s", p)
	}
}

// Config is the connection configuration of a Client.
type Config struct {
	Endpoint string
	Bucket   string
	AccessID string
	Secret   string
	BasePath string
	Timeout  time.Duration
	Provider Provider
}

// MarshalZerologObject logs the configuration without the secret.
func (c Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("endpoint", c.Endpoint).
		Str("bucket", c.Bucket).
		Str("access_id", c.AccessID).
		Str("base_path", c.BasePath).
		Dur("timeout", c.Timeout).
		Str("provider", string(c.Provider))
}
