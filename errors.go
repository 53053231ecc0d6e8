package attracker

import (
	"github.com/atinternet/go-tracker/internal/builder"
)

// ConfigError reports a missing or invalid configuration value. It is returned by New and
// reported to the Delegate when a hit cannot be built.
type ConfigError = builder.ConfigError
