package athttp

import (
	"errors"
	"net/http"
	"net/url"

	ntlm "github.com/launchdarkly/go-ntlm-proxy-auth"
)

// NewNTLMProxyTransport creates a transport that reaches the collector through a proxy
// requiring NTLM authentication. The other options apply as in NewHTTPTransport.
func NewNTLMProxyTransport(proxyURL, username, password, domain string,
	options ...TransportOption) (*http.Transport, error) {
	if proxyURL == "" || username == "" || password == "" {
		return nil, errors.New("NTLM proxy URL, username and password are required")
	}
	parsedProxyURL, err := url.Parse(proxyURL)
	if err != nil {
		return nil, err
	}
	transport, dialer, err := NewHTTPTransport(options...)
	if err != nil {
		return nil, err
	}
	transport.DialContext = ntlm.NewNTLMProxyDialContext(dialer, *parsedProxyURL, username, password, domain,
		transport.TLSClientConfig)
	// The dialer tunnels through the proxy itself.
	transport.Proxy = nil
	return transport, nil
}
