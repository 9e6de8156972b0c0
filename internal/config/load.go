package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rowjay/bucket-browser/internal/cryptoutil"
)

const (
	envPrefix = "BKT"
)

// Load reads configuration from a file (optionally encrypted), a .env file,
// env vars, and defaults.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)
	bindEnv(vp)

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if resolved != "" {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
		if isEncryptedPath(resolved) {
			vp.SetConfigType(configTypeFromPath(resolved))
			key := os.Getenv("BKT_CONFIG_KEY")
			if key == "" {
				key = vp.GetString("global.config_passphrase")
			}
			if key == "" {
				return nil, errors.New("config file is encrypted but BKT_CONFIG_KEY is not set")
			}
			plain, decErr := decryptConfig(data, key)
			if decErr != nil {
				return nil, fmt.Errorf("decrypt config: %w", decErr)
			}
			if err := vp.ReadConfig(bytes.NewReader(plain)); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		} else {
			vp.SetConfigFile(resolved)
			if err := vp.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	expandEnv(&cfg)
	applyPostLoadDefaults(&cfg)
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if envPath := os.Getenv("BKT_CONFIG"); envPath != "" {
		return envPath, nil
	}

	candidates := []string{
		"bkt.yaml",
		"bkt.yml",
		"bkt.toml",
		"bkt.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	configDir, err := os.UserConfigDir()
	if err == nil {
		base := filepath.Join(configDir, "bkt")
		for _, c := range candidates {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		for _, c := range []string{"bkt.yaml.enc", "bkt.yml.enc", "bkt.toml.enc"} {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}

	return "", nil
}

func isEncryptedPath(path string) bool {
	return strings.HasSuffix(path, ".enc") || strings.HasSuffix(path, ".encrypted")
}

func configTypeFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".toml") || strings.HasSuffix(path, ".toml.enc") || strings.HasSuffix(path, ".toml.encrypted"):
		return "toml"
	case strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.enc") || strings.HasSuffix(path, ".json.encrypted"):
		return "json"
	default:
		return "yaml"
	}
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("global.log_level", "info")
	vp.SetDefault("global.log_format", "console")
	vp.SetDefault("global.operation_timeout", "1h")
	vp.SetDefault("storage.endpoint", "https://storage.googleapis.com/")
	vp.SetDefault("storage.timeout", "30s")
	vp.SetDefault("storage.provider", "gcs")
	vp.SetDefault("transfer.concurrency", 1)
}

// bindEnv registers keys without defaults so AutomaticEnv picks them up on Unmarshal.
func bindEnv(vp *viper.Viper) {
	for _, key := range []string{
		"global.lock_file",
		"global.config_passphrase",
		"storage.bucket",
		"storage.access_id",
		"storage.secret",
		"storage.base_path",
	} {
		_ = vp.BindEnv(key)
	}
}

func applyPostLoadDefaults(cfg *Config) {
	if cfg.Storage.Timeout <= 0 {
		cfg.Storage.Timeout = 30 * time.Second
	}
	if cfg.Global.OperationTimeout <= 0 {
		cfg.Global.OperationTimeout = time.Hour
	}
	if cfg.Transfer.Concurrency < 1 {
		cfg.Transfer.Concurrency = 1
	}
}

func expandEnv(cfg *Config) {
	cfg.Storage.AccessID = os.ExpandEnv(cfg.Storage.AccessID)
	cfg.Storage.Secret = os.ExpandEnv(cfg.Storage.Secret)
	cfg.Storage.Endpoint = os.ExpandEnv(cfg.Storage.Endpoint)
	for i := range cfg.Notifications.Webhooks {
		cfg.Notifications.Webhooks[i].URL = os.ExpandEnv(cfg.Notifications.Webhooks[i].URL)
	}
	for i := range cfg.Notifications.Mattermost {
		cfg.Notifications.Mattermost[i].URL = os.ExpandEnv(cfg.Notifications.Mattermost[i].URL)
	}
}

func decryptConfig(ciphertext []byte, key string) ([]byte, error) {
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return cryptoutil.DecryptConfig(ciphertext, parsed)
}
