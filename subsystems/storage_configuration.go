package subsystems

import (
	"fmt"
	"strings"
)

// StorageMode selects when hits are written to offline storage.
type StorageMode int

const (
	// StorageRequired stores hits only when delivery fails.
	StorageRequired StorageMode = iota
	// StorageAlways stores every hit and sends stored hits only when the queue is drained.
	StorageAlways
	// StorageNever disables offline storage. Undeliverable hits are dropped.
	StorageNever
)

func (m StorageMode) String() string {
	switch m {
	case StorageAlways:
		return "always"
	case StorageNever:
		return "never"
	default:
		return "required"
	}
}

// ParseStorageMode parses the "storage" configuration value.
func ParseStorageMode(s string) (StorageMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "required":
		return StorageRequired, nil
	case "always":
		return StorageAlways, nil
	case "never":
		return StorageNever, nil
	}
	return StorageRequired, fmt.Errorf("unknown storage mode %q", s)
}

// StorageConfiguration describes the offline hit store.
type StorageConfiguration struct {
	Mode StorageMode
	// Directory holds the database file. It is pinned process-wide on first use.
	Directory string
	// Compress gzips stored URLs.
	Compress bool
	// RetentionDays is the age after which stored hits are purged when a tracker starts.
	RetentionDays int
}
