package store

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockFile is the advisory file lock acquired on Database.Open,
// giving ErrDatabaseIsLocked (spec §6.3) a concrete, real failure mode
// -- a second process opening the same data directory -- instead of
// being an error variant nothing ever returns.
type lockFile struct {
	fl *flock.Flock
}

// acquireLockFile tries to take an exclusive advisory lock at path,
// creating parent directories as needed. Returns ErrDatabaseIsLocked
// if another process already holds it.
func acquireLockFile(path string) (*lockFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrDatabaseIsLocked
	}
	return &lockFile{fl: fl}, nil
}

func (l *lockFile) release() {
	if l == nil || l.fl == nil {
		return
	}
	_ = l.fl.Unlock()
}
