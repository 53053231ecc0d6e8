package atcomponents

import (
	"strconv"

	"github.com/atinternet/go-tracker/subsystems"
)

// DefaultRetentionDays is the age after which stored hits are purged when a tracker starts.
const DefaultRetentionDays = 30

// OfflineStorageBuilder provides methods for configuring the offline hit store.
//
//	config := attracker.Config{
//	    Storage: atcomponents.OfflineStorage().Mode(subsystems.StorageAlways).Compress(true),
//	}
type OfflineStorageBuilder struct {
	mode          *subsystems.StorageMode
	directory     string
	compress      bool
	retentionDays int
}

// OfflineStorage returns a configuration builder for offline storage. If Mode is not called,
// the mode comes from the "storage" configuration key and defaults to required.
func OfflineStorage() *OfflineStorageBuilder {
	return &OfflineStorageBuilder{}
}

// NoStorage disables offline storage: undeliverable hits are dropped.
func NoStorage() *OfflineStorageBuilder {
	return OfflineStorage().Mode(subsystems.StorageNever)
}

// Mode sets when hits are written to storage.
func (b *OfflineStorageBuilder) Mode(mode subsystems.StorageMode) *OfflineStorageBuilder {
	b.mode = &mode
	return b
}

// Directory sets where the database file is created. The first tracker to open storage pins the
// location for the whole process.
func (b *OfflineStorageBuilder) Directory(dir string) *OfflineStorageBuilder {
	b.directory = dir
	return b
}

// Compress gzips stored URLs.
func (b *OfflineStorageBuilder) Compress(compress bool) *OfflineStorageBuilder {
	b.compress = compress
	return b
}

// RetentionDays sets the age after which stored hits are purged. If not set, the
// "storageDuration" configuration key is used.
func (b *OfflineStorageBuilder) RetentionDays(days int) *OfflineStorageBuilder {
	b.retentionDays = days
	return b
}

// Build is called internally by the tracker.
func (b *OfflineStorageBuilder) Build(context subsystems.ClientContext) (subsystems.StorageConfiguration, error) {
	config := context.GetConfig()
	ret := subsystems.StorageConfiguration{
		Directory:     b.directory,
		Compress:      b.compress,
		RetentionDays: b.retentionDays,
	}
	if b.mode != nil {
		ret.Mode = *b.mode
	} else if s, ok := config.Get(ConfigStorage); ok {
		mode, err := subsystems.ParseStorageMode(s)
		if err != nil {
			return ret, err
		}
		ret.Mode = mode
	}
	if ret.RetentionDays <= 0 {
		ret.RetentionDays = DefaultRetentionDays
		if s, ok := config.Get(ConfigStorageDuration); ok {
			if days, err := strconv.Atoi(s); err == nil && days > 0 {
				ret.RetentionDays = days
			}
		}
	}
	return ret, nil
}
