package vault

import (
	"context"
	"fmt"
	"net/http"
)

// InitRequest represents the request to initialize Vault
type InitRequest struct {
	SecretShares      int      `json:"secret_shares"`
	SecretThreshold   int      `json:"secret_threshold"`
	PGPKeys           []string `json:"pgp_keys,omitempty"`
	RootTokenPGPKey   string   `json:"root_token_pgp_key,omitempty"`
	StoredShares      int      `json:"stored_shares,omitempty"`
	RecoveryShares    int      `json:"recovery_shares,omitempty"`
	RecoveryThreshold int      `json:"recovery_threshold,omitempty"`
	RecoveryPGPKeys   []string `json:"recovery_pgp_keys,omitempty"`
}

// InitResponse represents the response from Vault initialization
type InitResponse struct {
	Keys               []string `json:"keys"`
	KeysBase64         []string `json:"keys_base64"`
	RecoveryKeys       []string `json:"recovery_keys,omitempty"`
	RecoveryKeysBase64 []string `json:"recovery_keys_base64,omitempty"`
	RootToken          string   `json:"root_token"`
}

func initStatusRequest() *Request {
	return NewRequest(http.MethodGet, "sys", "init")
}

func initRequest(in *InitRequest) (*Request, error) {
	var req InitRequest
	if in != nil {
		req = *in
	}
	if req.SecretShares == 0 {
		req.SecretShares = defaultSecretShares
	}
	if req.SecretThreshold == 0 {
		req.SecretThreshold = defaultSecretThreshold
		if req.SecretShares < req.SecretThreshold {
			req.SecretThreshold = req.SecretShares
		}
	}
	if req.SecretShares < 1 || req.SecretThreshold < 1 {
		return nil, fmt.Errorf("init needs positive shares and threshold, got %d/%d", req.SecretShares, req.SecretThreshold)
	}
	if req.SecretThreshold > req.SecretShares {
		return nil, fmt.Errorf("secret threshold %d exceeds secret shares %d", req.SecretThreshold, req.SecretShares)
	}
	if len(req.PGPKeys) > 0 && len(req.PGPKeys) != req.SecretShares {
		return nil, fmt.Errorf("got %d pgp keys for %d secret shares", len(req.PGPKeys), req.SecretShares)
	}
	return NewRequest(http.MethodPut, "sys", "init").WithBody(req), nil
}

// InitStatus reports whether the Vault has been initialized
func (c *Client) InitStatus(ctx context.Context) (bool, error) {
	var resp struct {
		Initialized bool `json:"initialized"`
	}
	if err := c.Send(ctx, initStatusRequest(), &resp); err != nil {
		return false, fmt.Errorf("failed to check init status: %w", err)
	}
	return resp.Initialized, nil
}

// Initialize initializes a new Vault instance. Zero shares default to 5 and a
// zero threshold to 3, capped at the number of shares.
func (c *Client) Initialize(ctx context.Context, in *InitRequest) (*InitResponse, error) {
	r, err := initRequest(in)
	if err != nil {
		return nil, err
	}

	var initResp InitResponse
	if err := c.Send(ctx, r, &initResp); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return &initResp, nil
}
