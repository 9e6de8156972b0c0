package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rowjay/bucket-browser/internal/storage"
)

// Storage is a mock implementation of storage.Storage
type Storage struct {
	mock.Mock
}

var _ storage.Storage = (*Storage)(nil)

func (m *Storage) ListFolder(ctx context.Context, prefix string) (storage.Listing, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).(storage.Listing), args.Error(1)
}

func (m *Storage) ListItems(ctx context.Context, prefix string, maxKeys int) ([]storage.Object, error) {
	args := m.Called(ctx, prefix, maxKeys)
	if objects, ok := args.Get(0).([]storage.Object); ok {
		return objects, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Storage) StatItem(ctx context.Context, key string) (storage.Object, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(storage.Object), args.Error(1)
}

func (m *Storage) UploadItem(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *Storage) DownloadItemWithProgress(ctx context.Context, key string, fn storage.ProgressFunc) ([]byte, error) {
	args := m.Called(ctx, key, fn)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Storage) DeleteItem(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Storage) DeleteFolder(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

func (m *Storage) CopyItem(ctx context.Context, src, dst string) error {
	args := m.Called(ctx, src, dst)
	return args.Error(0)
}

func (m *Storage) CopyFolder(ctx context.Context, src, dst string) error {
	args := m.Called(ctx, src, dst)
	return args.Error(0)
}

func (m *Storage) MoveItem(ctx context.Context, src, dst string) error {
	args := m.Called(ctx, src, dst)
	return args.Error(0)
}

func (m *Storage) FileExists(ctx context.Context, key string) bool {
	args := m.Called(ctx, key)
	return args.Bool(0)
}
