package builder

import (
	"fmt"
	"strings"

	"github.com/atinternet/go-tracker/subsystems"
)

// Configuration keys read by EndpointFromConfig.
const (
	ConfigLog       = "log"
	ConfigLogSSL    = "logSSL"
	ConfigDomain    = "domain"
	ConfigPixelPath = "pixelPath"
	ConfigSite      = "site"
	ConfigSecure    = "secure"
)

// DefaultPixelPath is used when the configuration has no pixelPath.
const DefaultPixelPath = "/hit.xiti"

// ConfigError reports a configuration value that prevents hits from being built.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid tracker configuration for %q: %s", e.Key, e.Reason)
}

// Endpoint is the collector address every hit is sent to.
type Endpoint struct {
	Secure    bool
	Log       string
	LogSSL    string
	Domain    string
	PixelPath string
	Site      string
}

// EndpointFromConfig reads the collector address from configuration.
func EndpointFromConfig(config subsystems.ConfigProvider) Endpoint {
	get := func(key string) string {
		v, _ := config.Get(key)
		return strings.TrimSpace(v)
	}
	return Endpoint{
		Secure:    strings.EqualFold(get(ConfigSecure), "true"),
		Log:       get(ConfigLog),
		LogSSL:    get(ConfigLogSSL),
		Domain:    get(ConfigDomain),
		PixelPath: get(ConfigPixelPath),
		Site:      get(ConfigSite),
	}
}

// Validate returns a *ConfigError if the endpoint cannot produce a URL.
func (e Endpoint) Validate() error {
	switch {
	case e.Site == "":
		return &ConfigError{Key: ConfigSite, Reason: "site id is required"}
	case e.Domain == "":
		return &ConfigError{Key: ConfigDomain, Reason: "collection domain is required"}
	case e.host() == "":
		return &ConfigError{Key: ConfigLog, Reason: "log subdomain is required"}
	}
	return nil
}

func (e Endpoint) host() string {
	if e.Secure && e.LogSSL != "" {
		return e.LogSSL
	}
	return e.Log
}

// Prefix returns "<scheme>://<log>.<domain><pixelPath>?s=<site>".
func (e Endpoint) Prefix() (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	scheme := "http"
	if e.Secure {
		scheme = "https"
	}
	pixelPath := e.PixelPath
	if pixelPath == "" {
		pixelPath = DefaultPixelPath
	}
	if !strings.HasPrefix(pixelPath, "/") {
		pixelPath = "/" + pixelPath
	}
	return fmt.Sprintf("%s://%s.%s%s?s=%s", scheme, e.host(), e.Domain, pixelPath, Encode(e.Site)), nil
}
