package storage

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// Location decides where the database lives. The directory is pinned the first time it is
// resolved; after that, attempts to change it are logged and ignored.
type Location struct {
	dir    string
	pinned bool
	lock   sync.Mutex
}

// DefaultLocation is shared by every tracker in the process so that they all use one file.
var DefaultLocation = NewLocation() //nolint:gochecknoglobals

// NewLocation returns an unpinned Location.
func NewLocation() *Location {
	return &Location{}
}

// SetDirectory chooses the directory. It returns false if the location was already pinned to a
// different directory.
func (l *Location) SetDirectory(dir string, loggers ldlog.Loggers) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.pinned {
		if dir != l.dir {
			loggers.Warnf("Offline storage is already located in %q; ignoring new location %q", l.dir, dir)
			return false
		}
		return true
	}
	l.dir = dir
	return true
}

// Path pins the location and returns the database file path, creating the directory if needed.
func (l *Location) Path() (string, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.dir == "" {
		l.dir = defaultDirectory()
	}
	l.pinned = true
	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(l.dir, DatabaseFileName), nil
}

// Pinned reports whether the location can no longer change.
func (l *Location) Pinned() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.pinned
}

func defaultDirectory() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "atinternet")
	}
	return filepath.Join(os.TempDir(), "atinternet")
}
