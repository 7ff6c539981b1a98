package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const authPath = "sys/auth"

func authRequest(method, path string, suffix ...string) (*Request, error) {
	if err := checkPath("auth path", path); err != nil {
		return nil, err
	}
	return NewRequest(method, append([]string{authPath, path}, suffix...)...), nil
}

// ListAuth returns the enabled auth methods sorted by path. Auth mounts share
// the shape of secret engine mounts.
func (c *Client) ListAuth(ctx context.Context) ([]MountOutput, error) {
	var body json.RawMessage
	if err := c.Send(ctx, NewRequest(http.MethodGet, authPath), &body); err != nil {
		return nil, fmt.Errorf("failed to list auth methods: %w", err)
	}
	return decodeMountTable(body)
}

// EnableAuth enables an auth method at path
func (c *Client) EnableAuth(ctx context.Context, path string, in MountInput) error {
	if in.Type == "" {
		return missing("auth type")
	}
	r, err := authRequest(http.MethodPost, path)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r.WithBody(in), nil); err != nil {
		return fmt.Errorf("failed to enable auth %s: %w", path, err)
	}
	return nil
}

// DisableAuth disables the auth method at path
func (c *Client) DisableAuth(ctx context.Context, path string) error {
	r, err := authRequest(http.MethodDelete, path)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to disable auth %s: %w", path, err)
	}
	return nil
}

// ReadAuthTune returns the tuned configuration of the auth method at path
func (c *Client) ReadAuthTune(ctx context.Context, path string) (*MountConfigOutput, error) {
	r, err := authRequest(http.MethodGet, path, "tune")
	if err != nil {
		return nil, err
	}

	var cfg MountConfigOutput
	if err := c.sendDataOrBody(ctx, r, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read auth tune %s: %w", path, err)
	}
	return &cfg, nil
}

// TuneAuth updates the configuration of the auth method at path
func (c *Client) TuneAuth(ctx context.Context, path string, in TuneInput) error {
	r, err := authRequest(http.MethodPost, path, "tune")
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r.WithBody(in), nil); err != nil {
		return fmt.Errorf("failed to tune auth %s: %w", path, err)
	}
	return nil
}
