package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowjay/bucket-browser/internal/app"
	"github.com/rowjay/bucket-browser/internal/config"
	"github.com/rowjay/bucket-browser/internal/cryptoutil"
	"github.com/rowjay/bucket-browser/internal/logging"
	"github.com/rowjay/bucket-browser/internal/notify"
	"github.com/rowjay/bucket-browser/internal/progress"
	"github.com/rowjay/bucket-browser/internal/storage"
	"github.com/rowjay/bucket-browser/internal/version"
)

type rootFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

type overrideFlags struct {
	Endpoint    string
	Bucket      string
	AccessID    string
	Secret      string
	BasePath    string
	Timeout     time.Duration
	Provider    string
	Concurrency int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &rootFlags{}
	overrides := &overrideFlags{}

	rootCmd := &cobra.Command{
		Use:          "bkt",
		Short:        "Browse and manage files in an S3-compatible bucket",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigPath, "config", "", "Path to config file (yaml/toml/json or .enc)")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&root.LogFormat, "log-format", "", "Log format (json, console)")

	rootCmd.PersistentFlags().StringVar(&overrides.Endpoint, "endpoint", "", "Storage endpoint URL")
	rootCmd.PersistentFlags().StringVar(&overrides.Bucket, "bucket", "", "Bucket name")
	rootCmd.PersistentFlags().StringVar(&overrides.AccessID, "access-id", "", "HMAC access id")
	rootCmd.PersistentFlags().StringVar(&overrides.Secret, "secret", "", "HMAC secret")
	rootCmd.PersistentFlags().StringVar(&overrides.BasePath, "base-path", "", "Key prefix every command is scoped to")
	rootCmd.PersistentFlags().DurationVar(&overrides.Timeout, "timeout", 0, "Per-request timeout")
	rootCmd.PersistentFlags().StringVar(&overrides.Provider, "provider", "", "Header namespace (gcs, s3)")
	rootCmd.PersistentFlags().IntVar(&overrides.Concurrency, "concurrency", 0, "Objects processed at once in folder operations")

	rootCmd.AddCommand(newConnectCmd(root, overrides))
	rootCmd.AddCommand(newListCmd(root, overrides))
	rootCmd.AddCommand(newStatCmd(root, overrides))
	rootCmd.AddCommand(newUploadCmd(root, overrides))
	rootCmd.AddCommand(newDownloadCmd(root, overrides))
	rootCmd.AddCommand(newDeleteCmd(root, overrides))
	rootCmd.AddCommand(newMoveCmd(root, overrides))
	rootCmd.AddCommand(newCopyCmd(root, overrides))
	rootCmd.AddCommand(newExistsCmd(root, overrides))
	rootCmd.AddCommand(newMkdirCmd(root, overrides))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// withApp loads the configuration, builds the client and runs fn under the
// operation timeout.
func withApp(root *rootFlags, overrides *overrideFlags, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(root, overrides)
	if err != nil {
		return err
	}
	logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)
	store, err := storage.FromConfig(*cfg, logger)
	if err != nil {
		return err
	}
	appSvc := app.New(cfg, store, logger, notify.FromConfig(cfg.Notifications))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
	defer cancel()
	return fn(ctx, appSvc)
}

// attachBar renders upload/download progress on stderr.
func attachBar(a *app.App) *progress.Bar {
	bar := progress.NewBar(os.Stderr)
	a.Progress = func(ev app.ProgressEvent) {
		bar.Update(ev.Name, ev.Loaded, ev.Total)
	}
	return bar
}

func newConfigCmd() *cobra.Command {
	var input string
	var output string
	var key string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config utilities",
	}

	encrypt := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" || key == "" {
				return fmt.Errorf("--input, --output, and --key are required")
			}
			return config.EncryptConfigFile(input, output, key)
		},
	}
	encrypt.Flags().StringVar(&input, "input", "", "Input config file")
	encrypt.Flags().StringVar(&output, "output", "", "Output encrypted config file (.enc)")
	encrypt.Flags().StringVar(&key, "key", "", "Encryption key (base64 or hex, 32 bytes)")

	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a config encryption key",
		RunE: func(cmd *cobra.Command, args []string) error {
			generated, err := cryptoutil.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), generated)
			return nil
		},
	}

	cmd.AddCommand(encrypt, keygen)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bkt %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func loadConfig(root *rootFlags, overrides *overrideFlags) (*config.Config, error) {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, root, overrides)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, root *rootFlags, overrides *overrideFlags) {
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}

	if overrides.Endpoint != "" {
		cfg.Storage.Endpoint = overrides.Endpoint
	}
	if overrides.Bucket != "" {
		cfg.Storage.Bucket = overrides.Bucket
	}
	if overrides.AccessID != "" {
		cfg.Storage.AccessID = overrides.AccessID
	}
	if overrides.Secret != "" {
		cfg.Storage.Secret = overrides.Secret
	}
	if overrides.BasePath != "" {
		cfg.Storage.BasePath = overrides.BasePath
	}
	if overrides.Timeout > 0 {
		cfg.Storage.Timeout = overrides.Timeout
	}
	if overrides.Provider != "" {
		cfg.Storage.Provider = overrides.Provider
	}
	if overrides.Concurrency > 0 {
		cfg.Transfer.Concurrency = overrides.Concurrency
	}

	cfg.Storage.Provider = strings.ToLower(cfg.Storage.Provider)
}
