package atcomponents

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/atinternet/go-tracker/athttp"
	"github.com/atinternet/go-tracker/internal/techcontext"
	"github.com/atinternet/go-tracker/subsystems"
)

const (
	// DefaultConnectTimeout is the HTTP connection timeout used if HTTPConfigurationBuilder.ConnectTimeout
	// is not set.
	DefaultConnectTimeout = athttp.DefaultConnectTimeout
	// DefaultRequestTimeout bounds one hit delivery attempt if HTTPConfigurationBuilder.RequestTimeout
	// is not set.
	DefaultRequestTimeout = 30 * time.Second
)

// HTTPConfigurationBuilder contains methods for configuring the tracker's networking behavior.
//
//	config := attracker.Config{
//	    HTTP: atcomponents.HTTP().ConnectTimeout(3 * time.Second).ProxyURL(proxyURL),
//	}
type HTTPConfigurationBuilder struct {
	inited         bool
	connectTimeout time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
	proxyURL       string
	ntlm           *ntlmCredentials
	userAgent      string
	headers        http.Header
	caCerts        [][]byte
	caCertFiles    []string
}

// HTTP returns a configuration builder for the tracker's HTTP configuration.
func HTTP() *HTTPConfigurationBuilder {
	b := &HTTPConfigurationBuilder{}
	b.checkValid()
	return b
}

func (b *HTTPConfigurationBuilder) checkValid() bool {
	if b == nil {
		return false
	}
	if !b.inited {
		b.connectTimeout = DefaultConnectTimeout
		b.requestTimeout = DefaultRequestTimeout
		b.headers = make(http.Header)
		b.inited = true
	}
	return true
}

// CACert specifies a CA certificate to be added to the trusted root CA list for HTTPS requests.
func (b *HTTPConfigurationBuilder) CACert(certData []byte) *HTTPConfigurationBuilder {
	if b.checkValid() {
		b.caCerts = append(b.caCerts, certData)
	}
	return b
}

// CACertFile specifies a CA certificate file to be added to the trusted root CA list.
func (b *HTTPConfigurationBuilder) CACertFile(filePath string) *HTTPConfigurationBuilder {
	if b.checkValid() {
		b.caCertFiles = append(b.caCertFiles, filePath)
	}
	return b
}

// ConnectTimeout sets the maximum amount of time to wait for each connection to be made.
func (b *HTTPConfigurationBuilder) ConnectTimeout(connectTimeout time.Duration) *HTTPConfigurationBuilder {
	if b.checkValid() {
		if connectTimeout <= 0 {
			b.connectTimeout = DefaultConnectTimeout
		} else {
			b.connectTimeout = connectTimeout
		}
	}
	return b
}

// RequestTimeout sets the maximum duration of one hit delivery attempt.
func (b *HTTPConfigurationBuilder) RequestTimeout(requestTimeout time.Duration) *HTTPConfigurationBuilder {
	if b.checkValid() {
		if requestTimeout <= 0 {
			b.requestTimeout = DefaultRequestTimeout
		} else {
			b.requestTimeout = requestTimeout
		}
	}
	return b
}

// Header adds a header sent with every hit.
func (b *HTTPConfigurationBuilder) Header(name, value string) *HTTPConfigurationBuilder {
	if b.checkValid() {
		b.headers.Set(name, value)
	}
	return b
}

// HTTPClient specifies a client instance to use. Transport options set on the builder are
// ignored when a client is given.
func (b *HTTPConfigurationBuilder) HTTPClient(client *http.Client) *HTTPConfigurationBuilder {
	if b.checkValid() {
		b.httpClient = client
	}
	return b
}

// ProxyURL specifies a proxy URL to be used for all requests. This overrides any setting of the
// HTTP_PROXY, HTTPS_PROXY, or NO_PROXY environment variables.
func (b *HTTPConfigurationBuilder) ProxyURL(proxyURL string) *HTTPConfigurationBuilder {
	if b.checkValid() {
		b.proxyURL = proxyURL
	}
	return b
}

type ntlmCredentials struct {
	username, password, domain string
}

// NTLMProxy sends all requests through a proxy that requires NTLM authentication. It replaces
// any ProxyURL setting.
func (b *HTTPConfigurationBuilder) NTLMProxy(proxyURL, username, password, domain string) *HTTPConfigurationBuilder {
	if b.checkValid() {
		b.proxyURL = proxyURL
		b.ntlm = &ntlmCredentials{username: username, password: password, domain: domain}
	}
	return b
}

// UserAgent overrides the User-Agent header. By default it comes from the "userAgent"
// configuration key, or is derived from the SDK version.
func (b *HTTPConfigurationBuilder) UserAgent(userAgent string) *HTTPConfigurationBuilder {
	if b.checkValid() {
		b.userAgent = userAgent
	}
	return b
}

// Build is called internally by the tracker.
func (b *HTTPConfigurationBuilder) Build(context subsystems.ClientContext) (subsystems.HTTPConfiguration, error) {
	if !b.checkValid() {
		defaults := HTTP()
		return defaults.Build(context)
	}
	headers := b.headers.Clone()
	userAgent := b.userAgent
	if userAgent == "" {
		userAgent, _ = context.GetConfig().Get(ConfigUserAgent)
	}
	headers.Set("User-Agent", techcontext.Info{UA: userAgent}.UserAgent())

	if b.httpClient != nil {
		client := b.httpClient
		return subsystems.HTTPConfiguration{
			DefaultHeaders:   headers,
			CreateHTTPClient: func() *http.Client { return client },
			RequestTimeout:   b.requestTimeout,
		}, nil
	}

	transportOpts := []athttp.TransportOption{athttp.ConnectTimeoutOption(b.connectTimeout)}
	for _, ca := range b.caCerts {
		if len(ca) == 0 {
			return subsystems.HTTPConfiguration{}, errors.New("CA certificate data was empty")
		}
		transportOpts = append(transportOpts, athttp.CACertOption(ca))
	}
	for _, path := range b.caCertFiles {
		if _, err := os.Stat(path); err != nil {
			return subsystems.HTTPConfiguration{}, err
		}
		transportOpts = append(transportOpts, athttp.CACertFileOption(path))
	}
	var transport *http.Transport
	var err error
	if b.ntlm != nil {
		transport, err = athttp.NewNTLMProxyTransport(b.proxyURL, b.ntlm.username, b.ntlm.password, b.ntlm.domain,
			transportOpts...)
	} else {
		if b.proxyURL != "" {
			u, parseErr := url.Parse(b.proxyURL)
			if parseErr != nil {
				return subsystems.HTTPConfiguration{}, parseErr
			}
			transportOpts = append(transportOpts, athttp.ProxyOption(*u))
		}
		transport, _, err = athttp.NewHTTPTransport(transportOpts...)
	}
	if err != nil {
		return subsystems.HTTPConfiguration{}, err
	}
	return subsystems.HTTPConfiguration{
		DefaultHeaders: headers,
		CreateHTTPClient: func() *http.Client {
			return &http.Client{Transport: transport}
		},
		RequestTimeout: b.requestTimeout,
	}, nil
}
