package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrRunInProgress is returned when another run holds the lock.
var ErrRunInProgress = errors.New("another backup run is in progress")

type Lock struct {
	flock *flock.Flock
}

func New(path string) *Lock {
	return &Lock{flock: flock.New(path)}
}

// Acquire takes the lock without blocking.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.flock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: %s is held", ErrRunInProgress, l.flock.Path())
	}
	return nil
}

func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.flock.Path(), err)
	}
	return nil
}

func (l *Lock) Path() string {
	return l.flock.Path()
}
