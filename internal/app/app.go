package app

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rowjay/bucket-browser/internal/config"
	"github.com/rowjay/bucket-browser/internal/lock"
	"github.com/rowjay/bucket-browser/internal/notify"
	"github.com/rowjay/bucket-browser/internal/progress"
	"github.com/rowjay/bucket-browser/internal/storage"
	"github.com/rowjay/bucket-browser/internal/util"
)

// ProgressEvent reports transfer progress of an upload or a download.
type ProgressEvent struct {
	Kind    string `json:"kind"`
	Key     string `json:"key"`
	Name    string `json:"name"`
	Loaded  int64  `json:"loaded"`
	Total   int64  `json:"total"`
	Percent int    `json:"percent"`
}

func NewProgressEvent(kind, key string, loaded, total int64) ProgressEvent {
	return ProgressEvent{
		Kind:    kind,
		Key:     key,
		Name:    util.DisplayName(key),
		Loaded:  loaded,
		Total:   total,
		Percent: progress.Percent(loaded, total),
	}
}

// ConnectResult is the outcome of a connection check. Failures are reported
// in the result, not as an error.
type ConnectResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// App is the command surface a UI or the CLI binds to. Every command is a
// blocking call; callers wanting asynchrony run it on their own goroutine.
type App struct {
	Cfg      *config.Config
	Store    storage.Storage
	Log      zerolog.Logger
	Notifier notify.Notifier
	// Progress receives upload and download progress. It may be nil.
	Progress func(ProgressEvent)
}

func New(cfg *config.Config, store storage.Storage, log zerolog.Logger, notifier notify.Notifier) *App {
	return &App{Cfg: cfg, Store: store, Log: log, Notifier: notifier}
}

// Connect proves the configuration by listing the bucket root.
func (a *App) Connect(ctx context.Context) ConnectResult {
	if _, err := a.Store.ListFolder(ctx, ""); err != nil {
		a.Log.Warn().Err(err).Msg("connection check failed")
		return ConnectResult{OK: false, Error: err.Error()}
	}
	a.Log.Info().Msg("connected")
	return ConnectResult{OK: true}
}

// List returns the direct children of the folder prefix.
func (a *App) List(ctx context.Context, prefix string) (storage.Listing, error) {
	return a.Store.ListFolder(ctx, util.FolderKey(prefix))
}

// ListAll returns every object under prefix, across all sub-folders.
func (a *App) ListAll(ctx context.Context, prefix string) ([]storage.Object, error) {
	return a.Store.ListItems(ctx, prefix, storage.MaxKeysPerPage)
}

func (a *App) Stat(ctx context.Context, key string) (storage.Object, error) {
	return a.Store.StatItem(ctx, key)
}

func (a *App) Exists(ctx context.Context, key string) bool {
	return a.Store.FileExists(ctx, key)
}

// Upload stores the local file under key. A folder key (or the root) keeps
// the file name.
func (a *App) Upload(ctx context.Context, localPath, key string) error {
	if key == "" || util.IsFolderKey(key) {
		key = util.JoinKey(key, filepath.Base(localPath))
	}
	return a.run(ctx, "upload", key, "", false, func(ctx context.Context) error {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", localPath, err)
		}
		size := int64(len(data))
		a.emit(NewProgressEvent("upload", key, 0, size))
		if err := a.Store.UploadItem(ctx, key, data, contentTypeFor(localPath, data)); err != nil {
			return err
		}
		a.emit(NewProgressEvent("upload", key, size, size))
		return nil
	})
}

// Download writes key to destPath. An existing directory, or a path ending in
// a separator, receives the object under its display name.
func (a *App) Download(ctx context.Context, key, destPath string) error {
	if key == "" || util.IsFolderKey(key) {
		return fmt.Errorf("download %q: %w: folders cannot be downloaded", key, storage.ErrInvalidKey)
	}
	target := destPath
	if info, err := os.Stat(destPath); (err == nil && info.IsDir()) || strings.HasSuffix(destPath, string(os.PathSeparator)) {
		target = filepath.Join(destPath, util.DisplayName(key))
	}
	return a.run(ctx, "download", key, target, false, func(ctx context.Context) error {
		data, err := a.Store.DownloadItemWithProgress(ctx, key, func(loaded, total int64) {
			a.emit(NewProgressEvent("download", key, loaded, total))
		})
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		return nil
	})
}

// Delete removes key; a folder key removes the whole folder.
func (a *App) Delete(ctx context.Context, key string) error {
	if util.IsFolderKey(key) {
		return a.run(ctx, "delete", key, "", true, func(ctx context.Context) error {
			return a.Store.DeleteFolder(ctx, key)
		})
	}
	if key == "" {
		return fmt.Errorf("delete: %w", storage.ErrInvalidKey)
	}
	return a.run(ctx, "delete", key, "", false, func(ctx context.Context) error {
		return a.Store.DeleteItem(ctx, key)
	})
}

// Move moves an object or a folder. A file moved onto a folder key lands
// inside that folder.
func (a *App) Move(ctx context.Context, src, dst string) error {
	dst = destinationKey(src, dst)
	return a.run(ctx, "move", src, dst, util.IsFolderKey(src), func(ctx context.Context) error {
		return a.Store.MoveItem(ctx, src, dst)
	})
}

// Copy copies an object or, for folder keys, a whole folder.
func (a *App) Copy(ctx context.Context, src, dst string) error {
	dst = destinationKey(src, dst)
	if util.IsFolderKey(src) {
		return a.run(ctx, "copy", src, dst, true, func(ctx context.Context) error {
			return a.Store.CopyFolder(ctx, src, dst)
		})
	}
	return a.run(ctx, "copy", src, dst, false, func(ctx context.Context) error {
		if src == "" || dst == "" {
			return fmt.Errorf("copy %q to %q: %w", src, dst, storage.ErrInvalidKey)
		}
		return a.Store.CopyItem(ctx, src, dst)
	})
}

// CreateFolder writes the zero-byte marker object for key.
func (a *App) CreateFolder(ctx context.Context, key string) error {
	if !util.IsFolderKey(key) || util.FolderKey(key) == "" {
		return fmt.Errorf("create folder %q: %w: folder keys end with \"/\"", key, storage.ErrInvalidKey)
	}
	return a.run(ctx, "create_folder", key, "", false, func(ctx context.Context) error {
		return a.Store.UploadItem(ctx, key, []byte{}, storage.FolderContentType)
	})
}

func destinationKey(src, dst string) string {
	switch {
	case util.IsFolderKey(src):
		return util.FolderKey(dst)
	case util.IsFolderKey(dst):
		return dst + util.DisplayName(src)
	default:
		return dst
	}
}

func contentTypeFor(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

// run executes one mutating command with an operation id in its logger, an
// optional process lock, and a completion notification.
func (a *App) run(ctx context.Context, op, key, dest string, exclusive bool, fn func(context.Context) error) (opErr error) {
	start := time.Now()
	opID := uuid.NewString()
	log := a.Log.With().Str("op_id", opID).Str("op", op).Str("key", key).Logger()
	if dest != "" {
		log = log.With().Str("dest", dest).Logger()
	}
	ctx = log.WithContext(ctx)

	defer func() {
		elapsed := time.Since(start)
		if opErr != nil {
			log.Error().Err(opErr).Dur("elapsed", elapsed).Msg("command failed")
		} else {
			log.Info().Dur("elapsed", elapsed).Msg("command finished")
		}
		a.notify(log, notify.Event{
			OpID:      opID,
			Type:      op,
			Message:   strings.TrimSpace(fmt.Sprintf("%s %s %s", op, key, dest)),
			Status:    statusFromErr(opErr),
			Bucket:    a.bucket(),
			Key:       key,
			Dest:      dest,
			StartedAt: start,
			EndedAt:   time.Now(),
			Duration:  elapsed.String(),
			Error:     errString(opErr),
		})
	}()

	if timeout := a.operationTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if exclusive {
		guard, err := lock.Acquire(lock.PathFor(a.lockFile(), a.bucket()))
		if err != nil {
			return err
		}
		defer guard.Release()
	}
	return fn(ctx)
}

func (a *App) notify(log zerolog.Logger, event notify.Event) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.Notify(context.Background(), event); err != nil {
		log.Warn().Err(err).Msg("notification failed")
	}
}

func (a *App) emit(ev ProgressEvent) {
	if a.Progress != nil {
		a.Progress(ev)
	}
}

func (a *App) bucket() string {
	if a.Cfg == nil {
		return ""
	}
	return a.Cfg.Storage.Bucket
}

func (a *App) lockFile() string {
	if a.Cfg == nil {
		return ""
	}
	return a.Cfg.Global.LockFile
}

func (a *App) operationTimeout() time.Duration {
	if a.Cfg == nil {
		return 0
	}
	return a.Cfg.Global.OperationTimeout
}

func statusFromErr(err error) string {
	if err == nil {
		return "success"
	}
	var ferr *storage.FolderError
	if errors.As(err, &ferr) && ferr.Done > 0 {
		return "partial"
	}
	return "failed"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
