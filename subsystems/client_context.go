package subsystems

import (
	"net/http"
)

// ClientContext provides context information from the tracker when creating other components.
//
// This is passed as a parameter to the Build methods of ComponentConfigurer implementations. For
// test purposes you may use the simple struct type BasicClientContext.
type ClientContext interface {
	// GetConfig returns the key/value configuration the tracker was created with.
	GetConfig() ConfigProvider

	// GetHTTP returns the configured HTTPConfiguration.
	GetHTTP() HTTPConfiguration

	// GetLogging returns the configured LoggingConfiguration.
	GetLogging() LoggingConfiguration
}

// BasicClientContext is the basic implementation of the ClientContext interface.
type BasicClientContext struct {
	Config  ConfigProvider
	HTTP    HTTPConfiguration
	Logging LoggingConfiguration
}

func (b BasicClientContext) GetConfig() ConfigProvider { //nolint:revive
	if b.Config == nil {
		return emptyConfig{}
	}
	return b.Config
}

func (b BasicClientContext) GetHTTP() HTTPConfiguration { //nolint:revive
	ret := b.HTTP
	if ret.CreateHTTPClient == nil {
		ret.CreateHTTPClient = func() *http.Client {
			client := *http.DefaultClient
			return &client
		}
	}
	return ret
}

func (b BasicClientContext) GetLogging() LoggingConfiguration { return b.Logging } //nolint:revive

type emptyConfig struct{}

func (emptyConfig) Get(string) (string, bool) { return "", false }
func (emptyConfig) All() map[string]string    { return map[string]string{} }
