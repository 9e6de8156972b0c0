package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rowjay/bucket-browser/internal/util"
)

// Primitives is the set of single-object operations folder operations are
// built from. *Client implements it.
type Primitives interface {
	ListItems(ctx context.Context, prefix string, maxKeys int) ([]Object, error)
	CopyItem(ctx context.Context, src, dst string) error
	DeleteItem(ctx context.Context, key string) error
}

// FolderOptions tunes folder operations.
type FolderOptions struct {
	// Concurrency is the number of objects processed at once. Below 2 the
	// objects are processed one at a time in listing order.
	Concurrency int
}

// CopyFolder copies every object under src to the same relative key under
// dst, then copies the folder marker if there is one.
func CopyFolder(ctx context.Context, p Primitives, src, dst string, opts FolderOptions) error {
	src, dst, err := folderPair(src, dst)
	if err != nil {
		return err
	}
	objects, err := p.ListItems(ctx, src, MaxKeysPerPage)
	if err != nil {
		return fmt.Errorf("copy folder %q: %w", src, err)
	}
	err = forEachObject(ctx, "copy", objects, src, opts.Concurrency, func(ctx context.Context, obj Object) error {
		return p.CopyItem(ctx, obj.Key, util.RemapKey(obj.Key, src, dst))
	})
	if err != nil {
		return err
	}
	transferMarker(ctx, p, src, dst, false)
	return nil
}

// MoveItem moves one object, or a whole folder when src ends with "/".
// A single object is copied and then deleted; there is no rollback if the
// delete fails.
func MoveItem(ctx context.Context, p Primitives, src, dst string, opts FolderOptions) error {
	if util.IsFolderKey(src) {
		return MoveFolder(ctx, p, src, dst, opts)
	}
	if src == "" || dst == "" {
		return fmt.Errorf("move %q to %q: %w", src, dst, ErrInvalidKey)
	}
	// Copying onto itself and then deleting would lose the object.
	if src == dst {
		return fmt.Errorf("move %q: %w: source and destination are the same", src, ErrInvalidKey)
	}
	if err := p.CopyItem(ctx, src, dst); err != nil {
		return fmt.Errorf("move %q: %w", src, err)
	}
	if err := p.DeleteItem(ctx, src); err != nil {
		return fmt.Errorf("move %q: %w", src, err)
	}
	return nil
}

// MoveFolder moves every object under src to dst. Each object is deleted
// only after its copy succeeded. The operation stops at the first failure
// and leaves already moved objects in place.
func MoveFolder(ctx context.Context, p Primitives, src, dst string, opts FolderOptions) error {
	src, dst, err := folderPair(src, dst)
	if err != nil {
		return err
	}
	objects, err := p.ListItems(ctx, src, MaxKeysPerPage)
	if err != nil {
		return fmt.Errorf("move folder %q: %w", src, err)
	}
	err = forEachObject(ctx, "move", objects, src, opts.Concurrency, func(ctx context.Context, obj Object) error {
		if err := p.CopyItem(ctx, obj.Key, util.RemapKey(obj.Key, src, dst)); err != nil {
			return err
		}
		return p.DeleteItem(ctx, obj.Key)
	})
	if err != nil {
		return err
	}
	transferMarker(ctx, p, src, dst, true)
	return nil
}

// DeleteFolder deletes every object under prefix and then the folder marker.
func DeleteFolder(ctx context.Context, p Primitives, prefix string, opts FolderOptions) error {
	prefix = util.FolderKey(prefix)
	if prefix == "" {
		return fmt.Errorf("delete folder: %w: refusing to delete the bucket root", ErrInvalidKey)
	}
	objects, err := p.ListItems(ctx, prefix, MaxKeysPerPage)
	if err != nil {
		return fmt.Errorf("delete folder %q: %w", prefix, err)
	}
	err = forEachObject(ctx, "delete", objects, prefix, opts.Concurrency, func(ctx context.Context, obj Object) error {
		return p.DeleteItem(ctx, obj.Key)
	})
	if err != nil {
		return err
	}
	if err := p.DeleteItem(ctx, prefix); err != nil {
		return fmt.Errorf("delete folder marker %q: %w", prefix, err)
	}
	return nil
}

func folderPair(src, dst string) (string, string, error) {
	src, dst = util.FolderKey(src), util.FolderKey(dst)
	if src == "" || dst == "" {
		return "", "", fmt.Errorf("folder %q to %q: %w: the bucket root cannot be copied or moved", src, dst, ErrInvalidKey)
	}
	if src == dst {
		return "", "", fmt.Errorf("folder %q: %w: source and destination are the same", src, ErrInvalidKey)
	}
	return src, dst, nil
}

// forEachObject runs fn for every object except the folder marker itself.
// No new object is started once one has failed.
func forEachObject(ctx context.Context, op string, objects []Object, marker string, limit int, fn func(context.Context, Object) error) error {
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	var done atomic.Int64
	stopped := false
	for _, obj := range objects {
		if obj.Key == marker {
			continue
		}
		if gctx.Err() != nil {
			stopped = true
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, obj); err != nil {
				return &FolderError{Op: op, Key: obj.Key, Err: err}
			}
			done.Add(1)
			return nil
		})
	}
	err := g.Wait()
	if err == nil && stopped {
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}
	var ferr *FolderError
	if !errors.As(err, &ferr) {
		ferr = &FolderError{Op: op, Err: err}
	}
	ferr.Done = int(done.Load())
	return ferr
}

// transferMarker copies the folder marker and, for moves, deletes the
// original. A folder that never had a marker object is normal, so failures
// are only logged.
func transferMarker(ctx context.Context, p Primitives, src, dst string, remove bool) {
	log := zerolog.Ctx(ctx)
	if err := p.CopyItem(ctx, src, dst); err != nil {
		log.Debug().Err(err).Str("marker", src).Msg("folder marker not copied")
		return
	}
	if !remove {
		return
	}
	if err := p.DeleteItem(ctx, src); err != nil {
		log.Debug().Err(err).Str("marker", src).Msg("folder marker not deleted")
	}
}

// CopyFolder copies the folder src to dst.
func (c *Client) CopyFolder(ctx context.Context, src, dst string) error {
	return CopyFolder(c.withLogger(ctx), c, src, dst, c.folder)
}

// MoveItem moves a single object, or a folder when src ends with "/".
func (c *Client) MoveItem(ctx context.Context, src, dst string) error {
	return MoveItem(c.withLogger(ctx), c, src, dst, c.folder)
}

func (c *Client) DeleteFolder(ctx context.Context, prefix string) error {
	return DeleteFolder(c.withLogger(ctx), c, prefix, c.folder)
}
