package status

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

var (
	ErrLocked = errors.New("state is locked by another logrotate process")
)

// Record is the last rotation time of one log file.
type Record struct {
	Path      string
	RotatedAt time.Time
}

// Store keeps the last rotation time per absolute log path. A path that was
// never rotated yields the zero time.
type Store interface {
	Get(ctx context.Context, path string) (time.Time, error)
	Set(ctx context.Context, path string, t time.Time) error
	All(ctx context.Context) ([]Record, error)
	Close() error
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
}

// lockState takes the lock file next to the state at path. It is held until
// the store is closed.
func lockState(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "Unable to create state directory")
	}

	lock := flock.New(path + ".lock")

	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "Unable to lock state file")
	}
	if !ok {
		return nil, ErrLocked
	}

	return lock, nil
}
