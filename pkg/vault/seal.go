package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SealInfo holds the seal configuration and unseal progress of a node.
type SealInfo struct {
	Type         string `json:"type"`
	Initialized  bool   `json:"initialized"`
	Threshold    int    `json:"t"`
	Shares       int    `json:"n"`
	Progress     int    `json:"progress"`
	Nonce        string `json:"nonce"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date,omitempty"`
	Migration    bool   `json:"migration"`
	RecoverySeal bool   `json:"recovery_seal"`
	StorageType  string `json:"storage_type,omitempty"`
}

// ClusterInfo identifies the cluster an unsealed node belongs to.
type ClusterInfo struct {
	ID   string `json:"cluster_id,omitempty"`
	Name string `json:"cluster_name,omitempty"`
}

// SealStatus is either sealed (seal info only) or unsealed (seal info plus
// cluster identity). Cluster is nil exactly when Sealed is true.
type SealStatus struct {
	Sealed bool
	SealInfo
	Cluster *ClusterInfo
}

// UnmarshalJSON selects the variant from the "sealed" flag, which must be present.
func (s *SealStatus) UnmarshalJSON(b []byte) error {
	var doc struct {
		Sealed *bool `json:"sealed"`
		SealInfo
		ClusterInfo
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc.Sealed == nil {
		return errors.New("seal status: missing sealed flag")
	}

	s.Sealed = *doc.Sealed
	s.SealInfo = doc.SealInfo
	s.Cluster = nil
	if !s.Sealed {
		cluster := doc.ClusterInfo
		s.Cluster = &cluster
	}
	return nil
}

// MarshalJSON flattens the variant back into Vault's document shape.
func (s SealStatus) MarshalJSON() ([]byte, error) {
	doc := struct {
		Sealed bool `json:"sealed"`
		SealInfo
		ClusterInfo
	}{
		Sealed:   s.Sealed,
		SealInfo: s.SealInfo,
	}
	if s.Cluster != nil {
		doc.ClusterInfo = *s.Cluster
	}
	return json.Marshal(doc)
}

// UnsealInput is the body of an unseal call.
type UnsealInput struct {
	// Key is one unseal key share. Required unless Reset is set.
	Key string `json:"key,omitempty"`
	// Reset discards the shares submitted so far.
	Reset bool `json:"reset"`
	// Migrate marks the share as part of a seal migration.
	Migrate bool `json:"migrate"`
}

func sealRequest() *Request {
	return NewRequest(http.MethodPut, "sys", "seal")
}

func unsealRequest(in UnsealInput) (*Request, error) {
	if in.Key == "" && !in.Reset {
		return nil, missing("unseal key")
	}
	return NewRequest(http.MethodPut, "sys", "unseal").WithBody(in), nil
}

func sealStatusRequest() *Request {
	return NewRequest(http.MethodGet, "sys", "seal-status")
}

// Seal seals the Vault
func (c *Client) Seal(ctx context.Context) error {
	if err := c.Send(ctx, sealRequest(), nil); err != nil {
		return fmt.Errorf("failed to seal: %w", err)
	}
	return nil
}

// Unseal submits one unseal request and returns the resulting seal status.
func (c *Client) Unseal(ctx context.Context, in UnsealInput) (*SealStatus, error) {
	r, err := unsealRequest(in)
	if err != nil {
		return nil, err
	}

	var status SealStatus
	if err := c.Send(ctx, r, &status); err != nil {
		return nil, fmt.Errorf("failed to unseal: %w", err)
	}
	return &status, nil
}

// SealStatus queries the Vault seal-status endpoint
func (c *Client) SealStatus(ctx context.Context) (*SealStatus, error) {
	var status SealStatus
	if err := c.Send(ctx, sealStatusRequest(), &status); err != nil {
		return nil, fmt.Errorf("failed to check seal status: %w", err)
	}
	return &status, nil
}

// UnsealWithKey applies a single unseal key to the Vault.
// A still-sealed result is not an error: it just means more keys are needed.
func (c *Client) UnsealWithKey(ctx context.Context, key string) (*SealStatus, error) {
	return c.Unseal(ctx, UnsealInput{Key: key})
}

// UnsealWithKeys applies keys in order until the Vault reports itself unsealed.
func (c *Client) UnsealWithKeys(ctx context.Context, keys []string) (*SealStatus, error) {
	if len(keys) == 0 {
		return nil, missing("unseal keys")
	}

	var status *SealStatus
	for i, key := range keys {
		var err error
		status, err = c.UnsealWithKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to unseal with key %d: %w", i+1, err)
		}
		c.logger.Debug("applied unseal key", "key", i+1, "progress", status.Progress, "threshold", status.Threshold, "sealed", status.Sealed)
		if !status.Sealed {
			break
		}
	}
	return status, nil
}
