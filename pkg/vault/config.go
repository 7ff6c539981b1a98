package vault

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-rootcerts"
)

const (
	// DefaultAddress is the address used when none is configured.
	DefaultAddress = "https://127.0.0.1:8200"
	// DefaultTimeout bounds a single request, including reading the body.
	DefaultTimeout = 60 * time.Second
)

// Config holds the settings used to build a Client.
type Config struct {
	// Address is the scheme://host:port of the Vault server.
	Address string
	// Token is sent as X-Vault-Token when non-empty.
	Token string
	// Namespace is sent as X-Vault-Namespace when non-empty.
	Namespace string
	// Timeout applies to the underlying HTTP client.
	Timeout time.Duration
	// TLS configures server verification and client certificates.
	TLS *TLSConfig
	// HTTPClient replaces the pooled client built from the fields above.
	HTTPClient *http.Client
	// Logger receives one debug line per request. Defaults to a null logger.
	Logger hclog.Logger
}

// TLSConfig mirrors the usual VAULT_* TLS settings.
type TLSConfig struct {
	CACert        string
	CAPath        string
	ClientCert    string
	ClientKey     string
	TLSServerName string
	Insecure      bool
}

// DefaultConfig returns a Config pointing at the local default address.
func DefaultConfig() *Config {
	return &Config{
		Address: DefaultAddress,
		Timeout: DefaultTimeout,
	}
}

// NewHTTPClient returns HTTPClient when set, otherwise a pooled client with
// the configured TLS settings and timeout. Callers creating many clients
// against different addresses can build it once and share it through HTTPClient.
func (c *Config) NewHTTPClient() (*http.Client, error) {
	if c.HTTPClient != nil {
		return c.HTTPClient, nil
	}

	transport := cleanhttp.DefaultPooledTransport()
	if c.TLS != nil {
		tlsConfig, err := c.TLS.build()
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.Timeout,
	}, nil
}

func (t *TLSConfig) build() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         t.TLSServerName,
		InsecureSkipVerify: t.Insecure, //nolint:gosec // opt-in via VAULT_SKIP_VERIFY
	}

	if t.CACert != "" || t.CAPath != "" {
		err := rootcerts.ConfigureTLS(tlsConfig, &rootcerts.Config{
			CAFile: t.CACert,
			CAPath: t.CAPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load CA certificates: %w", err)
		}
	}

	if t.ClientCert != "" || t.ClientKey != "" {
		if t.ClientCert == "" || t.ClientKey == "" {
			return nil, errors.New("both client certificate and client key must be provided")
		}
		cert, err := tls.LoadX509KeyPair(t.ClientCert, t.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
