package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
)

const (
	defaultSecretShares    = 5
	defaultSecretThreshold = 3
)

// Client represents a Vault client for the system and secret engine APIs
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	namespace  string
	logger     hclog.Logger
}

// NewClient creates a new Vault client on a pooled HTTP client
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: cleanhttp.DefaultPooledClient(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     hclog.NewNullLogger(),
	}
}

// NewClientWithConfig creates a new Vault client from cfg. A nil cfg means DefaultConfig.
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	address := cfg.Address
	if address == "" {
		address = DefaultAddress
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid vault address %q: %w", address, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid vault address %q: scheme and host are required", address)
	}

	httpClient, err := cfg.NewHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(address, "/"),
		token:      cfg.Token,
		namespace:  cfg.Namespace,
		logger:     logger,
	}, nil
}

// Address returns the server address the client talks to.
func (c *Client) Address() string {
	return c.baseURL
}

// Token returns the token sent with every request.
func (c *Client) Token() string {
	return c.token
}

// SetToken sets the token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Namespace returns the namespace sent with every request.
func (c *Client) Namespace() string {
	return c.namespace
}

// SetNamespace sets the namespace sent with every request.
func (c *Client) SetNamespace(namespace string) {
	c.namespace = namespace
}

// WithNamespace returns a copy of the client bound to namespace. The copy
// shares the underlying HTTP client.
func (c *Client) WithNamespace(namespace string) *Client {
	clone := *c
	clone.namespace = namespace
	return &clone
}

// SetLogger replaces the client logger.
func (c *Client) SetLogger(logger hclog.Logger) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c.logger = logger
}

// Send executes r and decodes the JSON response body into out.
//
// Statuses outside 2xx (and outside the request's extra accepted codes) are
// returned as *ResponseError. A nil out or a 204 response skips decoding.
func (c *Client) Send(ctx context.Context, r *Request, out interface{}) error {
	httpReq, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("vault request", "method", r.Method, "path", r.Path, "status", resp.StatusCode)

	if !r.accepts(resp.StatusCode) {
		return newResponseError(httpReq, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// SendData executes r and decodes the "data" object of the response envelope into out.
func (c *Client) SendData(ctx context.Context, r *Request, out interface{}) error {
	var secret Secret
	if err := c.Send(ctx, r, &secret); err != nil {
		return err
	}
	return secret.DecodeData(out)
}

// SendList executes a listing request and returns the keys. Vault answers an
// empty listing with 404, which is reported as an empty slice.
func (c *Client) SendList(ctx context.Context, r *Request) ([]string, error) {
	var list struct {
		Keys []string `json:"keys"`
	}
	if err := c.SendData(ctx, r, &list); err != nil {
		if IsNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}
	if list.Keys == nil {
		return []string{}, nil
	}
	return list.Keys, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, r *Request) (*http.Request, error) {
	if r.err != nil {
		return nil, r.err
	}

	var body io.Reader
	if r.Body != nil {
		buf, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	target := c.baseURL + "/" + apiVersion + "/" + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(headerRequest, "true")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set(headerToken, c.token)
	}
	if c.namespace != "" {
		httpReq.Header.Set(headerNamespace, c.namespace)
	}

	return httpReq, nil
}
