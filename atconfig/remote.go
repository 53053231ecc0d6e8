package atconfig

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gregjones/httpcache"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/atinternet/go-tracker/subsystems"
)

// RemoteProvider reads configuration from an HTTP endpoint. Responses are cached according to
// their caching headers, so Refresh only reaches the server when the cached copy is stale.
type RemoteProvider struct {
	url     string
	client  *http.Client
	values  Map
	loggers ldlog.Loggers
	lock    sync.RWMutex
}

var _ subsystems.ConfigProvider = (*RemoteProvider)(nil)

// Remote fetches the configuration at url. base is the transport used for requests; nil means
// http.DefaultTransport.
func Remote(ctx context.Context, url string, base http.RoundTripper, loggers ldlog.Loggers) (*RemoteProvider, error) {
	transport := httpcache.NewMemoryCacheTransport()
	transport.Transport = base
	rp := &RemoteProvider{url: url, client: transport.Client(), loggers: loggers}
	if err := rp.Refresh(ctx); err != nil {
		return nil, err
	}
	return rp, nil
}

// Refresh refetches the configuration. On failure the previous values are kept.
func (rp *RemoteProvider) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rp.url, nil)
	if err != nil {
		return err
	}
	resp, err := rp.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching configuration: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching configuration: HTTP error %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}
	format := FormatJSON
	if strings.Contains(resp.Header.Get("Content-Type"), "yaml") {
		format = FormatYAML
	}
	values, err := Parse(body, format)
	if err != nil {
		return err
	}
	if resp.Header.Get(httpcache.XFromCache) == "" {
		rp.loggers.Debugf("Fetched configuration from %s", rp.url)
	}
	rp.lock.Lock()
	rp.values = values
	rp.lock.Unlock()
	return nil
}

// Get returns the value for key.
func (rp *RemoteProvider) Get(key string) (string, bool) {
	rp.lock.RLock()
	defer rp.lock.RUnlock()
	return rp.values.Get(key)
}

// All returns a copy of every entry.
func (rp *RemoteProvider) All() map[string]string {
	rp.lock.RLock()
	defer rp.lock.RUnlock()
	return rp.values.All()
}
