package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Lock is an advisory lock held for the duration of one folder operation.
type Lock struct {
	file *flock.Flock
	path string
}

// PathFor returns the lock file guarding bucket. An explicit lockFile wins;
// otherwise each bucket gets its own file in the temp dir so operations on
// different buckets do not wait for each other.
func PathFor(lockFile, bucket string) string {
	if lockFile != "" {
		return lockFile
	}
	name := "bkt.lock"
	if bucket != "" {
		name = "bkt-" + strings.NewReplacer("/", "_", ":", "_").Replace(bucket) + ".lock"
	}
	return filepath.Join(os.TempDir(), name)
}

// Acquire takes the lock at path without waiting.
func Acquire(path string) (*Lock, error) {
	if path == "" {
		path = PathFor("", "")
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("another folder operation is already running on this bucket (lock: %s)", path)
	}
	return &Lock{file: fl, path: path}, nil
}

func (l *Lock) Path() string {
	return l.path
}

// Release frees the lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Unlock()
}
