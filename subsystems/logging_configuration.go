package subsystems

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// LoggingConfiguration encapsulates the tracker's general logging configuration.
//
// See atcomponents.Logging for details on how to set this.
type LoggingConfiguration struct {
	// Loggers is a configured ldlog.Loggers instance for general logging.
	Loggers ldlog.Loggers
}
