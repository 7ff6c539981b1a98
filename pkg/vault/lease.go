package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const leasesPath = "sys/leases"

// LeaseKind tells renewable leases from static ones.
type LeaseKind int

const (
	// LeaseStatic is a lease that cannot be extended.
	LeaseStatic LeaseKind = iota
	// LeaseRenewable is a lease whose TTL can be extended with RenewLease.
	LeaseRenewable
)

func (k LeaseKind) String() string {
	if k == LeaseRenewable {
		return "renewable"
	}
	return "static"
}

// LeaseInfo holds the fields common to every lease.
type LeaseInfo struct {
	ID              string     `json:"id"`
	IssueTime       time.Time  `json:"issue_time"`
	ExpireTime      time.Time  `json:"expire_time"`
	LastRenewalTime *time.Time `json:"last_renewal"`
	TTL             Duration   `json:"ttl"`
}

// LeaseStatus is a lease as returned by a lookup: either renewable or static.
type LeaseStatus struct {
	Kind LeaseKind
	LeaseInfo
}

// Renewable reports whether the lease can be renewed.
func (s *LeaseStatus) Renewable() bool {
	return s.Kind == LeaseRenewable
}

// UnmarshalJSON picks the lease kind from the "renewable" flag, which must be present.
func (s *LeaseStatus) UnmarshalJSON(b []byte) error {
	var doc struct {
		Renewable *bool `json:"renewable"`
		LeaseInfo
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc.Renewable == nil {
		return errors.New("lease status: missing renewable flag")
	}

	s.LeaseInfo = doc.LeaseInfo
	s.Kind = LeaseStatic
	if *doc.Renewable {
		s.Kind = LeaseRenewable
	}
	return nil
}

// MarshalJSON writes the lease back with its renewable flag.
func (s LeaseStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Renewable bool `json:"renewable"`
		LeaseInfo
	}{
		Renewable: s.Renewable(),
		LeaseInfo: s.LeaseInfo,
	})
}

type leaseIDBody struct {
	LeaseID string `json:"lease_id"`
}

type renewBody struct {
	LeaseID   string `json:"lease_id"`
	Increment int64  `json:"increment,omitempty"`
}

func readLeaseRequest(id string) (*Request, error) {
	if id == "" {
		return nil, missing("lease id")
	}
	return NewRequest(http.MethodPut, leasesPath, "lookup").WithBody(leaseIDBody{LeaseID: id}), nil
}

func listLeasesRequest(prefix string) *Request {
	return NewRequest(MethodList, leasesPath, "lookup", prefix)
}

func renewLeaseRequest(id string, increment time.Duration) (*Request, error) {
	if id == "" {
		return nil, missing("lease id")
	}
	if increment < 0 {
		return nil, fmt.Errorf("negative lease increment %s", increment)
	}
	body := renewBody{LeaseID: id, Increment: int64(increment / time.Second)}
	return NewRequest(http.MethodPut, leasesPath, "renew").WithBody(body), nil
}

func revokeLeaseRequest(id string) (*Request, error) {
	if id == "" {
		return nil, missing("lease id")
	}
	return NewRequest(http.MethodPut, leasesPath, "revoke").WithBody(leaseIDBody{LeaseID: id}), nil
}

func revokePrefixRequest(prefix string, force bool) (*Request, error) {
	if err := checkPath("lease prefix", prefix); err != nil {
		return nil, err
	}
	endpoint := "revoke-prefix"
	if force {
		endpoint = "revoke-force"
	}
	return NewRequest(http.MethodPut, leasesPath, endpoint, prefix), nil
}

// ReadLease looks up the lease with the given id
func (c *Client) ReadLease(ctx context.Context, id string) (*LeaseStatus, error) {
	r, err := readLeaseRequest(id)
	if err != nil {
		return nil, err
	}

	var status LeaseStatus
	if err := c.SendData(ctx, r, &status); err != nil {
		return nil, fmt.Errorf("failed to read lease %s: %w", id, err)
	}
	return &status, nil
}

// ListLeases lists lease ids and sub-prefixes under prefix. An empty prefix lists the root.
func (c *Client) ListLeases(ctx context.Context, prefix string) ([]string, error) {
	keys, err := c.SendList(ctx, listLeasesRequest(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}
	return keys, nil
}

// RenewLease asks Vault to extend the lease by increment. Zero lets the
// server pick its default increment.
func (c *Client) RenewLease(ctx context.Context, id string, increment time.Duration) (*Secret, error) {
	r, err := renewLeaseRequest(id, increment)
	if err != nil {
		return nil, err
	}

	var secret Secret
	if err := c.Send(ctx, r, &secret); err != nil {
		return nil, fmt.Errorf("failed to renew lease %s: %w", id, err)
	}
	return &secret, nil
}

// RevokeLease revokes a single lease
func (c *Client) RevokeLease(ctx context.Context, id string) error {
	r, err := revokeLeaseRequest(id)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to revoke lease %s: %w", id, err)
	}
	return nil
}

// RevokePrefix revokes every lease under prefix. With force, backend errors
// during revocation are ignored and the leases are removed anyway.
func (c *Client) RevokePrefix(ctx context.Context, prefix string, force bool) error {
	r, err := revokePrefixRequest(prefix, force)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to revoke prefix %s: %w", prefix, err)
	}
	return nil
}

// TidyLeases starts a background cleanup of invalid lease entries.
func (c *Client) TidyLeases(ctx context.Context) error {
	if err := c.Send(ctx, NewRequest(http.MethodPost, leasesPath, "tidy"), nil); err != nil {
		return fmt.Errorf("failed to tidy leases: %w", err)
	}
	return nil
}
