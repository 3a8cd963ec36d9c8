package web

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/hpungsan/fbz/internal/errors"
)

// LockFileName is the single-instance lock for the UI server inside the base dir.
const LockFileName = "ui.lock"

// AcquireLock takes the UI server lock in baseDir without blocking.
// The caller must Unlock the returned lock on shutdown.
func AcquireLock(baseDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, errors.NewIOFailure("create base dir", err)
	}

	lock := flock.New(filepath.Join(baseDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewIOFailure("lock", err)
	}
	if !locked {
		return nil, errors.NewInvalidRequest("another fbz ui is already running for " + baseDir)
	}
	return lock, nil
}
