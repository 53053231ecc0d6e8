package athttp

import (
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v3/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransportDoesNotAcceptSelfSignedCert(t *testing.T) {
	httphelpers.WithSelfSignedServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server, _ []byte, _ *x509.CertPool) {
		transport, _, err := NewHTTPTransport()
		require.NoError(t, err)
		client := http.Client{Transport: transport}
		_, err = client.Get(server.URL)
		require.Error(t, err)
	})
}

func TestCanAcceptSelfSignedCertWithCA(t *testing.T) {
	httphelpers.WithSelfSignedServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server, certData []byte, _ *x509.CertPool) {
		transport, _, err := NewHTTPTransport(CACertOption(certData))
		require.NoError(t, err)
		client := http.Client{Transport: transport}
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)
	})
}

func TestCACertFile(t *testing.T) {
	httphelpers.WithSelfSignedServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server, certData []byte, _ *x509.CertPool) {
		path := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(path, certData, 0o600))
		_, _, err := NewHTTPTransport(CACertFileOption(path))
		require.NoError(t, err)
	})
}

func TestErrorForNonexistentCertFile(t *testing.T) {
	_, _, err := NewHTTPTransport(CACertFileOption(filepath.Join(t.TempDir(), "missing.pem")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't read CA certificate file")
}

func TestErrorForBadCertData(t *testing.T) {
	_, _, err := NewHTTPTransport(CACertOption([]byte("sorry")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CA certificate data")
}

func TestProxyEnvVarsAreUsedByDefault(t *testing.T) {
	transport, _, err := NewHTTPTransport()
	require.NoError(t, err)
	require.NotNil(t, transport.Proxy)
	assert.Equal(t, reflect.ValueOf(http.ProxyFromEnvironment).Pointer(), reflect.ValueOf(transport.Proxy).Pointer())
}

func TestCanSetProxyURL(t *testing.T) {
	proxy, err := url.Parse("https://fake-proxy")
	require.NoError(t, err)
	transport, _, err := NewHTTPTransport(ProxyOption(*proxy))
	require.NoError(t, err)
	out, err := transport.Proxy(&http.Request{})
	require.NoError(t, err)
	assert.Equal(t, proxy, out)
}

func TestConnectTimeout(t *testing.T) {
	_, dialer, err := NewHTTPTransport(ConnectTimeoutOption(3 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, dialer.Timeout)

	_, dialer, err = NewHTTPTransport()
	require.NoError(t, err)
	assert.Equal(t, DefaultConnectTimeout, dialer.Timeout)
}
