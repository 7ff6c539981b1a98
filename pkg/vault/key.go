package vault

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// KeyStatus describes the active encryption key of the barrier.
type KeyStatus struct {
	Term        int       `json:"term"`
	InstallTime time.Time `json:"install_time"`
}

// KeyStatus returns the current barrier key term.
func (c *Client) KeyStatus(ctx context.Context) (*KeyStatus, error) {
	var status KeyStatus
	if err := c.sendDataOrBody(ctx, NewRequest(http.MethodGet, "sys", "key-status"), &status); err != nil {
		return nil, fmt.Errorf("failed to read key status: %w", err)
	}
	return &status, nil
}

// Rotate installs a new barrier encryption key.
func (c *Client) Rotate(ctx context.Context) error {
	if err := c.Send(ctx, NewRequest(http.MethodPut, "sys", "rotate"), nil); err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}
	return nil
}

// RekeyStatus is the progress of a rekey attempt.
type RekeyStatus struct {
	Nonce                string   `json:"nonce"`
	Started              bool     `json:"started"`
	Threshold            int      `json:"t"`
	Shares               int      `json:"n"`
	Progress             int      `json:"progress"`
	Required             int      `json:"required"`
	PGPFingerprints      []string `json:"pgp_fingerprints"`
	Backup               bool     `json:"backup"`
	VerificationRequired bool     `json:"verification_required"`
}

// RekeyInput starts a rekey attempt.
type RekeyInput struct {
	SecretShares        int      `json:"secret_shares"`
	SecretThreshold     int      `json:"secret_threshold"`
	PGPKeys             []string `json:"pgp_keys,omitempty"`
	Backup              bool     `json:"backup,omitempty"`
	RequireVerification bool     `json:"require_verification,omitempty"`
}

// RekeyUpdate is the answer to a submitted key share. Keys are only set once
// Complete is true.
type RekeyUpdate struct {
	Nonce                string   `json:"nonce"`
	Complete             bool     `json:"complete"`
	Progress             int      `json:"progress,omitempty"`
	Required             int      `json:"required,omitempty"`
	Keys                 []string `json:"keys,omitempty"`
	KeysBase64           []string `json:"keys_base64,omitempty"`
	PGPFingerprints      []string `json:"pgp_fingerprints,omitempty"`
	Backup               bool     `json:"backup,omitempty"`
	VerificationRequired bool     `json:"verification_required,omitempty"`
	VerificationNonce    string   `json:"verification_nonce,omitempty"`
}

// RekeyBackup holds the PGP encrypted key shares stored during a rekey,
// keyed by PGP fingerprint.
type RekeyBackup struct {
	Nonce string              `json:"nonce"`
	Keys  map[string][]string `json:"keys"`
}

// RekeyVerifyStatus is the progress of a rekey verification.
type RekeyVerifyStatus struct {
	Nonce     string `json:"nonce"`
	Started   bool   `json:"started"`
	Threshold int    `json:"t"`
	Shares    int    `json:"n"`
	Progress  int    `json:"progress"`
}

// RekeyVerifyUpdate is the answer to a submitted verification share.
type RekeyVerifyUpdate struct {
	Nonce    string `json:"nonce"`
	Complete bool   `json:"complete"`
}

type keyShareBody struct {
	Key   string `json:"key"`
	Nonce string `json:"nonce"`
}

// Rekey drives the rekey workflow for either the unseal keys or, with
// recovery set, the recovery keys of an auto-unsealed server.
type Rekey struct {
	client   *Client
	recovery bool
}

// Rekey returns the rekey workflow for the unseal keys, or the recovery keys
// when recovery is true.
func (c *Client) Rekey(recovery bool) *Rekey {
	return &Rekey{client: c, recovery: recovery}
}

func (r *Rekey) base() string {
	if r.recovery {
		return "sys/rekey-recovery-key"
	}
	return "sys/rekey"
}

func (r *Rekey) backupPath() string {
	if r.recovery {
		return "sys/rekey/recovery-key-backup"
	}
	return "sys/rekey/backup"
}

func (r *Rekey) what() string {
	if r.recovery {
		return "recovery key rekey"
	}
	return "rekey"
}

func rekeyStartRequest(base string, in RekeyInput) (*Request, error) {
	if in.SecretShares < 1 || in.SecretThreshold < 1 {
		return nil, fmt.Errorf("rekey needs positive shares and threshold, got %d/%d", in.SecretShares, in.SecretThreshold)
	}
	if in.SecretThreshold > in.SecretShares {
		return nil, fmt.Errorf("secret threshold %d exceeds secret shares %d", in.SecretThreshold, in.SecretShares)
	}
	if len(in.PGPKeys) > 0 && len(in.PGPKeys) != in.SecretShares {
		return nil, fmt.Errorf("got %d pgp keys for %d secret shares", len(in.PGPKeys), in.SecretShares)
	}
	if in.Backup && len(in.PGPKeys) == 0 {
		return nil, missing("pgp keys for backup")
	}
	return NewRequest(http.MethodPut, base, "init").WithBody(in), nil
}

func keyShareRequest(path, key, nonce string) (*Request, error) {
	if key == "" {
		return nil, missing("key share")
	}
	if nonce == "" {
		return nil, missing("nonce")
	}
	return NewRequest(http.MethodPut, path).WithBody(keyShareBody{Key: key, Nonce: nonce}), nil
}

// Status returns the progress of the current attempt
func (r *Rekey) Status(ctx context.Context) (*RekeyStatus, error) {
	var status RekeyStatus
	if err := r.client.Send(ctx, NewRequest(http.MethodGet, r.base(), "init"), &status); err != nil {
		return nil, fmt.Errorf("failed to read %s status: %w", r.what(), err)
	}
	return &status, nil
}

// Start begins a new attempt, returning its nonce in the status.
func (r *Rekey) Start(ctx context.Context, in RekeyInput) (*RekeyStatus, error) {
	req, err := rekeyStartRequest(r.base(), in)
	if err != nil {
		return nil, err
	}

	var status RekeyStatus
	if err := r.client.Send(ctx, req, &status); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", r.what(), err)
	}
	return &status, nil
}

// Cancel aborts the current attempt and discards submitted shares.
func (r *Rekey) Cancel(ctx context.Context) error {
	if err := r.client.Send(ctx, NewRequest(http.MethodDelete, r.base(), "init"), nil); err != nil {
		return fmt.Errorf("failed to cancel %s: %w", r.what(), err)
	}
	return nil
}

// Update submits one existing key share for the attempt identified by nonce.
func (r *Rekey) Update(ctx context.Context, key, nonce string) (*RekeyUpdate, error) {
	req, err := keyShareRequest(r.base()+"/update", key, nonce)
	if err != nil {
		return nil, err
	}

	var update RekeyUpdate
	if err := r.client.Send(ctx, req, &update); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.what(), err)
	}
	return &update, nil
}

// ReadBackup returns the encrypted key shares backed up by the last attempt.
func (r *Rekey) ReadBackup(ctx context.Context) (*RekeyBackup, error) {
	var backup RekeyBackup
	if err := r.client.sendDataOrBody(ctx, NewRequest(http.MethodGet, r.backupPath()), &backup); err != nil {
		return nil, fmt.Errorf("failed to read %s backup: %w", r.what(), err)
	}
	return &backup, nil
}

// DeleteBackup removes the stored backup shares.
func (r *Rekey) DeleteBackup(ctx context.Context) error {
	if err := r.client.Send(ctx, NewRequest(http.MethodDelete, r.backupPath()), nil); err != nil {
		return fmt.Errorf("failed to delete %s backup: %w", r.what(), err)
	}
	return nil
}

// VerifyStatus returns the progress of the verification of new shares.
func (r *Rekey) VerifyStatus(ctx context.Context) (*RekeyVerifyStatus, error) {
	var status RekeyVerifyStatus
	if err := r.client.Send(ctx, NewRequest(http.MethodGet, r.base(), "verify"), &status); err != nil {
		return nil, fmt.Errorf("failed to read %s verification: %w", r.what(), err)
	}
	return &status, nil
}

// VerifyCancel restarts verification, discarding submitted new shares.
func (r *Rekey) VerifyCancel(ctx context.Context) (*RekeyVerifyStatus, error) {
	var status RekeyVerifyStatus
	if err := r.client.Send(ctx, NewRequest(http.MethodDelete, r.base(), "verify"), &status); err != nil {
		return nil, fmt.Errorf("failed to cancel %s verification: %w", r.what(), err)
	}
	return &status, nil
}

// VerifyUpdate submits one new key share for verification.
func (r *Rekey) VerifyUpdate(ctx context.Context, key, nonce string) (*RekeyVerifyUpdate, error) {
	req, err := keyShareRequest(r.base()+"/verify", key, nonce)
	if err != nil {
		return nil, err
	}

	var update RekeyVerifyUpdate
	if err := r.client.Send(ctx, req, &update); err != nil {
		return nil, fmt.Errorf("failed to verify %s: %w", r.what(), err)
	}
	return &update, nil
}
