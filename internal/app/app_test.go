package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/bucket-browser/internal/config"
	"github.com/rowjay/bucket-browser/internal/lock"
	"github.com/rowjay/bucket-browser/internal/notify"
	"github.com/rowjay/bucket-browser/internal/storage"
	"github.com/rowjay/bucket-browser/internal/storage/mocks"
	"github.com/rowjay/bucket-browser/internal/storage/storagetest"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Global: config.GlobalConfig{
			LockFile:         filepath.Join(t.TempDir(), "bkt.lock"),
			OperationTimeout: time.Minute,
		},
		Storage: config.StorageConfig{Bucket: storagetest.Bucket},
	}
}

func newServerApp(t *testing.T) (*App, *storagetest.Server, *recordingNotifier) {
	t.Helper()
	srv := storagetest.NewServer(t)
	notifier := &recordingNotifier{}
	a := New(testConfig(t), srv.Client(t), zerolog.Nop(), notifier)
	return a, srv, notifier
}

func TestConnect(t *testing.T) {
	a, srv, _ := newServerApp(t)
	assert.Equal(t, ConnectResult{OK: true}, a.Connect(context.Background()))

	cfg := srv.Config()
	cfg.Secret = "wrong"
	bad, err := storage.New(cfg)
	require.NoError(t, err)
	a.Store = bad
	res := a.Connect(context.Background())
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "SignatureDoesNotMatch")
}

func TestUploadDetectsContentTypeAndKeepsFileName(t *testing.T) {
	a, srv, notifier := newServerApp(t)
	dir := t.TempDir()
	local := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(local, []byte(`{"ok":true}`), 0o644))

	var events []ProgressEvent
	a.Progress = func(ev ProgressEvent) { events = append(events, ev) }

	require.NoError(t, a.Upload(context.Background(), local, "reports/"))
	data, ok := srv.Object("reports/report.json")
	require.True(t, ok)
	assert.Equal(t, `{"ok":true}`, string(data))
	assert.Equal(t, "application/json", srv.ContentType("reports/report.json"))

	require.Len(t, events, 2)
	assert.Equal(t, ProgressEvent{Kind: "upload", Key: "reports/report.json", Name: "report.json", Loaded: 11, Total: 11, Percent: 100}, events[1])
	assert.Equal(t, 0, events[0].Percent)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "upload", notifier.events[0].Type)
	assert.Equal(t, "success", notifier.events[0].Status)
	assert.NotEmpty(t, notifier.events[0].OpID)
	assert.Equal(t, storagetest.Bucket, notifier.events[0].Bucket)
}

func TestUploadSniffsUnknownExtension(t *testing.T) {
	a, srv, _ := newServerApp(t)
	local := filepath.Join(t.TempDir(), "notes.unknownext")
	require.NoError(t, os.WriteFile(local, []byte("plain words"), 0o644))

	require.NoError(t, a.Upload(context.Background(), local, "notes.txt"))
	assert.Equal(t, "text/plain; charset=utf-8", srv.ContentType("notes.txt"))
}

func TestDownloadIntoDirectory(t *testing.T) {
	a, srv, _ := newServerApp(t)
	srv.Put("photos/cat.jpg", []byte("meow"))
	dir := t.TempDir()

	var events []ProgressEvent
	a.Progress = func(ev ProgressEvent) { events = append(events, ev) }

	require.NoError(t, a.Download(context.Background(), "photos/cat.jpg", dir))
	data, err := os.ReadFile(filepath.Join(dir, "cat.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "meow", string(data))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "download", last.Kind)
	assert.Equal(t, "cat.jpg", last.Name)
	assert.Equal(t, 100, last.Percent)
}

func TestDownloadCreatesParentDirectories(t *testing.T) {
	a, srv, _ := newServerApp(t)
	srv.Put("a.txt", []byte("x"))
	target := filepath.Join(t.TempDir(), "nested", "deeper", "copy.txt")

	require.NoError(t, a.Download(context.Background(), "a.txt", target))
	_, err := os.Stat(target)
	assert.NoError(t, err)
}

func TestDownloadRejectsFolderKey(t *testing.T) {
	a, _, _ := newServerApp(t)
	err := a.Download(context.Background(), "photos/", t.TempDir())
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestDeleteFileAndFolder(t *testing.T) {
	a, srv, _ := newServerApp(t)
	srv.Put("keep.txt", []byte("k"))
	srv.Put("old.txt", []byte("o"))
	srv.Put("trash/", nil)
	srv.Put("trash/a", []byte("a"))
	srv.Put("trash/b/c", []byte("c"))
	ctx := context.Background()

	require.NoError(t, a.Delete(ctx, "old.txt"))
	require.NoError(t, a.Delete(ctx, "trash/"))
	assert.Equal(t, []string{"keep.txt"}, srv.Keys())
	assert.ErrorIs(t, a.Delete(ctx, ""), storage.ErrInvalidKey)
}

func TestMoveFileIntoFolder(t *testing.T) {
	a, srv, _ := newServerApp(t)
	srv.Put("inbox/letter.txt", []byte("hi"))

	require.NoError(t, a.Move(context.Background(), "inbox/letter.txt", "archive/"))
	assert.Equal(t, []string{"archive/letter.txt"}, srv.Keys())
}

func TestMoveFileOntoOwnFolderKeepsFile(t *testing.T) {
	a, srv, _ := newServerApp(t)
	srv.Put("docs/a.txt", []byte("precious"))

	err := a.Move(context.Background(), "docs/a.txt", "docs/")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
	data, ok := srv.Object("docs/a.txt")
	require.True(t, ok)
	assert.Equal(t, "precious", string(data))
}

func TestMoveAndCopyFolders(t *testing.T) {
	a, srv, notifier := newServerApp(t)
	srv.Put("src/", nil)
	srv.Put("src/a.txt", []byte("a"))
	srv.Put("src/sub/b.txt", []byte("b"))
	ctx := context.Background()

	require.NoError(t, a.Copy(ctx, "src/", "backup"))
	require.NoError(t, a.Move(ctx, "src/", "moved/"))
	assert.Equal(t, []string{
		"backup/",
		"backup/a.txt",
		"backup/sub/b.txt",
		"moved/",
		"moved/a.txt",
		"moved/sub/b.txt",
	}, srv.Keys())

	require.Len(t, notifier.events, 2)
	assert.Equal(t, "backup/", notifier.events[0].Dest)
	assert.Equal(t, "move", notifier.events[1].Type)
}

func TestCopyFile(t *testing.T) {
	a, srv, _ := newServerApp(t)
	srv.Put("a.txt", []byte("a"))

	require.NoError(t, a.Copy(context.Background(), "a.txt", "b.txt"))
	assert.Equal(t, []string{"a.txt", "b.txt"}, srv.Keys())
}

func TestExists(t *testing.T) {
	a, srv, _ := newServerApp(t)
	srv.Put("here.txt", nil)

	assert.True(t, a.Exists(context.Background(), "here.txt"))
	assert.False(t, a.Exists(context.Background(), "there.txt"))
}

func TestCreateFolder(t *testing.T) {
	a, srv, _ := newServerApp(t)
	ctx := context.Background()

	require.NoError(t, a.CreateFolder(ctx, "projects/2024/"))
	data, ok := srv.Object("projects/2024/")
	require.True(t, ok)
	assert.Empty(t, data)
	assert.Equal(t, storage.FolderContentType, srv.ContentType("projects/2024/"))

	assert.ErrorIs(t, a.CreateFolder(ctx, "no-slash"), storage.ErrInvalidKey)
	assert.ErrorIs(t, a.CreateFolder(ctx, "/"), storage.ErrInvalidKey)
}

func TestListNormalizesPrefix(t *testing.T) {
	store := new(mocks.Storage)
	store.On("ListFolder", mock.Anything, "photos/").Return(storage.Listing{Folders: []string{"photos/2024/"}}, nil)
	a := New(testConfig(t), store, zerolog.Nop(), nil)

	listing, err := a.List(context.Background(), "photos")
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/2024/"}, listing.Folders)
	store.AssertExpectations(t)
}

func TestFolderMutationHoldsLock(t *testing.T) {
	cfg := testConfig(t)
	store := new(mocks.Storage)
	store.On("DeleteFolder", mock.Anything, "busy/").Return(nil).Run(func(mock.Arguments) {
		_, err := lock.Acquire(cfg.Global.LockFile)
		assert.Error(t, err, "lock must be held while the folder is deleted")
	})
	a := New(cfg, store, zerolog.Nop(), nil)

	require.NoError(t, a.Delete(context.Background(), "busy/"))
	store.AssertExpectations(t)

	guard, err := lock.Acquire(cfg.Global.LockFile)
	require.NoError(t, err)
	require.NoError(t, guard.Release())
}

func TestPartialFolderFailureIsNotified(t *testing.T) {
	store := new(mocks.Storage)
	ferr := &storage.FolderError{Op: "move", Key: "src/b", Done: 3, Err: errors.New("boom")}
	store.On("MoveItem", mock.Anything, "src/", "dst/").Return(ferr)
	notifier := &recordingNotifier{}
	a := New(testConfig(t), store, zerolog.Nop(), notifier)

	err := a.Move(context.Background(), "src/", "dst")
	assert.ErrorIs(t, err, ferr.Err)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "partial", notifier.events[0].Status)
	assert.Contains(t, notifier.events[0].Error, "src/b")
}

func TestNotificationFailureIsNotReturned(t *testing.T) {
	store := new(mocks.Storage)
	store.On("DeleteItem", mock.Anything, "a.txt").Return(nil)
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	a := New(testConfig(t), store, zerolog.Nop(), notifier)

	assert.NoError(t, a.Delete(context.Background(), "a.txt"))
	assert.Len(t, notifier.events, 1)
}

func TestNewProgressEvent(t *testing.T) {
	ev := NewProgressEvent("download", "docs/guide.pdf", 1, 3)
	assert.Equal(t, "guide.pdf", ev.Name)
	assert.Equal(t, 33, ev.Percent)
	assert.Equal(t, 100, NewProgressEvent("download", "empty.txt", 0, 0).Percent)
}
