package config

import "time"

// Config is the root configuration schema.
type Config struct {
	Global        GlobalConfig        `mapstructure:"global"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Transfer      TransferConfig      `mapstructure:"transfer"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type GlobalConfig struct {
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"` // json or console
	LockFile         string        `mapstructure:"lock_file"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	ConfigPassphrase string        `mapstructure:"config_passphrase"` // optional; may come from env
}

// StorageConfig describes the bucket connection.
type StorageConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Bucket   string        `mapstructure:"bucket"`
	AccessID string        `mapstructure:"access_id"`
	Secret   string        `mapstructure:"secret"`
	BasePath string        `mapstructure:"base_path"`
	Timeout  time.Duration `mapstructure:"timeout"`  // per request, e.g. 30s or 1500ms
	Provider string        `mapstructure:"provider"` // gcs or s3
}

type TransferConfig struct {
	// Concurrency bounds parallel object copies inside folder operations.
	// 1 keeps them sequential.
	Concurrency int `mapstructure:"concurrency"`
}

type NotificationsConfig struct {
	Webhooks   []WebhookConfig    `mapstructure:"webhooks"`
	Mattermost []MattermostConfig `mapstructure:"mattermost"`
}

type WebhookConfig struct {
	Name    string            `mapstructure:"name"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type MattermostConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}
