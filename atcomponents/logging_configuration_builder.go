package atcomponents

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/subsystems"
)

// DefaultLogPrefix is prepended to every message logged by a tracker.
const DefaultLogPrefix = "[ATInternet] "

// LoggingConfigurationBuilder contains methods for configuring the tracker's logging behavior.
//
// If you want to set non-default values for any of these properties, create a builder with
// atcomponents.Logging(), change its properties with the LoggingConfigurationBuilder methods, and
// store it in Config.Logging:
//
//	config := attracker.Config{
//	    Logging: atcomponents.Logging().MinLevel(ldlog.Warn),
//	}
type LoggingConfigurationBuilder struct {
	loggers ldlog.Loggers
}

// Logging returns a configuration builder for the tracker's logging configuration.
//
// The default configuration has logging enabled at Info level with the standard Go logger.
func Logging() *LoggingConfigurationBuilder {
	loggers := ldlog.NewDefaultLoggers()
	loggers.SetPrefix(DefaultLogPrefix)
	return &LoggingConfigurationBuilder{loggers: loggers}
}

// Loggers specifies an instance of ldlog.Loggers to use for tracker logging. The ldlog package
// contains methods for customizing the destination and level filtering of log output.
func (b *LoggingConfigurationBuilder) Loggers(loggers ldlog.Loggers) *LoggingConfigurationBuilder {
	b.loggers = loggers
	return b
}

// MinLevel specifies the minimum level for log output, where ldlog.Debug is the lowest and
// ldlog.Error is the highest. The default is ldlog.Info.
func (b *LoggingConfigurationBuilder) MinLevel(level ldlog.LogLevel) *LoggingConfigurationBuilder {
	b.loggers.SetMinLevel(level)
	return b
}

// Build is called internally by the tracker.
func (b *LoggingConfigurationBuilder) Build(subsystems.ClientContext) (subsystems.LoggingConfiguration, error) {
	return subsystems.LoggingConfiguration{Loggers: b.loggers}, nil
}

// NoLogging returns a configuration object that disables logging.
//
//	config := attracker.Config{Logging: atcomponents.NoLogging()}
func NoLogging() subsystems.ComponentConfigurer[subsystems.LoggingConfiguration] {
	return noLoggingConfigurer{}
}

type noLoggingConfigurer struct{}

func (noLoggingConfigurer) Build(subsystems.ClientContext) (subsystems.LoggingConfiguration, error) {
	return subsystems.LoggingConfiguration{Loggers: ldlog.NewDisabledLoggers()}, nil
}
