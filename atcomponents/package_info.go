// Package atcomponents provides the configuration builders for a tracker's pluggable components.
//
// Each builder is stored in a field of attracker.Config:
//
//	config := attracker.Config{
//	    Hits:    atcomponents.SendHits().MaxRetryCount(3),
//	    Storage: atcomponents.OfflineStorage().Mode(subsystems.StorageAlways),
//	    Logging: atcomponents.Logging().MinLevel(ldlog.Warn),
//	}
//
// Builders that are not set explicitly fall back to the tracker's key/value configuration.
package atcomponents
