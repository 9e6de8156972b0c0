package storage

import "context"

// Storage is the command-facing view of a bucket. *Client implements it.
type Storage interface {
	ListFolder(ctx context.Context, prefix string) (Listing, error)
	ListItems(ctx context.Context, prefix string, maxKeys int) ([]Object, error)
	StatItem(ctx context.Context, key string) (Object, error)
	UploadItem(ctx context.Context, key string, body []byte, contentType string) error
	DownloadItemWithProgress(ctx context.Context, key string, fn ProgressFunc) ([]byte, error)
	DeleteItem(ctx context.Context, key string) error
	DeleteFolder(ctx context.Context, prefix string) error
	CopyItem(ctx context.Context, src, dst string) error
	CopyFolder(ctx context.Context, src, dst string) error
	MoveItem(ctx context.Context, src, dst string) error
	FileExists(ctx context.Context, key string) bool
}

var _ Storage = (*Client)(nil)
