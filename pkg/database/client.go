package database

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getgrowly/vault-client/pkg/vault"
)

// DefaultMount is the path the database secret engine is usually mounted at.
const DefaultMount = "database"

// Client manages a database secret engine mount
type Client struct {
	vault *vault.Client
	mount string
}

// NewClient returns a client for the engine mounted at mount. An empty mount
// means DefaultMount.
func NewClient(v *vault.Client, mount string) *Client {
	if mount == "" {
		mount = DefaultMount
	}
	return &Client{vault: v, mount: mount}
}

// Mount returns the engine mount path.
func (c *Client) Mount() string {
	return c.mount
}

// Enable mounts the database secret engine at the client's mount path.
func (c *Client) Enable(ctx context.Context, description string) error {
	return c.vault.Mount(ctx, c.mount, vault.MountInput{Type: "database", Description: description})
}

func (c *Client) request(method, kind, name string) (*vault.Request, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %s name", vault.ErrMissingArgument, kind)
	}
	return vault.NewRequest(method, c.mount, kind, name), nil
}

func (c *Client) write(ctx context.Context, kind, name string, body interface{}) error {
	r, err := c.request(http.MethodPost, kind, name)
	if err != nil {
		return err
	}
	if err := c.vault.Send(ctx, r.WithBody(body), nil); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, name, err)
	}
	return nil
}

func (c *Client) read(ctx context.Context, kind, name string, out interface{}) error {
	r, err := c.request(http.MethodGet, kind, name)
	if err != nil {
		return err
	}
	if err := c.vault.SendData(ctx, r, out); err != nil {
		return fmt.Errorf("failed to read %s %s: %w", kind, name, err)
	}
	return nil
}

func (c *Client) list(ctx context.Context, kind string) ([]string, error) {
	keys, err := c.vault.SendList(ctx, vault.NewRequest(vault.MethodList, c.mount, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return keys, nil
}

func (c *Client) remove(ctx context.Context, kind, name string) error {
	r, err := c.request(http.MethodDelete, kind, name)
	if err != nil {
		return err
	}
	if err := c.vault.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, name, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, kind, name string) error {
	r, err := c.request(http.MethodPost, kind, name)
	if err != nil {
		return err
	}
	if err := c.vault.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to %s %s: %w", kind, name, err)
	}
	return nil
}

// WriteConnection creates or replaces the connection called name
func (c *Client) WriteConnection(ctx context.Context, name string, cfg ConnectionConfig) error {
	return c.write(ctx, "config", name, cfg)
}

// ReadConnection returns the connection called name
func (c *Client) ReadConnection(ctx context.Context, name string) (*ConnectionConfig, error) {
	var cfg ConnectionConfig
	if err := c.read(ctx, "config", name, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListConnections lists the configured connection names
func (c *Client) ListConnections(ctx context.Context) ([]string, error) {
	return c.list(ctx, "config")
}

// DeleteConnection removes the connection called name
func (c *Client) DeleteConnection(ctx context.Context, name string) error {
	return c.remove(ctx, "config", name)
}

// ResetConnection closes the connection and reopens it with the stored configuration.
func (c *Client) ResetConnection(ctx context.Context, name string) error {
	return c.post(ctx, "reset", name)
}

// RotateRoot rotates the root credential of the connection. Afterwards only
// Vault knows the password.
func (c *Client) RotateRoot(ctx context.Context, name string) error {
	return c.post(ctx, "rotate-root", name)
}

// WriteRole creates or replaces the dynamic role called name
func (c *Client) WriteRole(ctx context.Context, name string, role Role) error {
	if role.DBName == "" {
		return fmt.Errorf("%w: db_name", vault.ErrMissingArgument)
	}
	return c.write(ctx, "roles", name, role)
}

// ReadRole returns the dynamic role called name
func (c *Client) ReadRole(ctx context.Context, name string) (*Role, error) {
	var role Role
	if err := c.read(ctx, "roles", name, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// ListRoles lists the dynamic role names
func (c *Client) ListRoles(ctx context.Context) ([]string, error) {
	return c.list(ctx, "roles")
}

// DeleteRole removes the dynamic role called name
func (c *Client) DeleteRole(ctx context.Context, name string) error {
	return c.remove(ctx, "roles", name)
}

// GenerateCredentials creates a new database user for role. The returned
// credentials carry the lease that controls the user's lifetime.
func (c *Client) GenerateCredentials(ctx context.Context, role string) (*Credentials, error) {
	r, err := c.request(http.MethodGet, "creds", role)
	if err != nil {
		return nil, err
	}

	var secret vault.Secret
	if err := c.vault.Send(ctx, r, &secret); err != nil {
		return nil, fmt.Errorf("failed to generate credentials for %s: %w", role, err)
	}
	var creds Credentials
	if err := secret.DecodeData(&creds); err != nil {
		return nil, fmt.Errorf("failed to generate credentials for %s: %w", role, err)
	}
	creds.LeaseID = secret.LeaseID
	creds.LeaseTTL = secret.TTL()
	creds.Renewable = secret.Renewable
	return &creds, nil
}

// WriteStaticRole creates or replaces the static role called name
func (c *Client) WriteStaticRole(ctx context.Context, name string, role StaticRole) error {
	if role.DBName == "" {
		return fmt.Errorf("%w: db_name", vault.ErrMissingArgument)
	}
	if role.Username == "" {
		return fmt.Errorf("%w: username", vault.ErrMissingArgument)
	}
	return c.write(ctx, "static-roles", name, role)
}

// ReadStaticRole returns the static role called name
func (c *Client) ReadStaticRole(ctx context.Context, name string) (*StaticRole, error) {
	var role StaticRole
	if err := c.read(ctx, "static-roles", name, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// ListStaticRoles lists the static role names
func (c *Client) ListStaticRoles(ctx context.Context) ([]string, error) {
	return c.list(ctx, "static-roles")
}

// DeleteStaticRole removes the static role called name
func (c *Client) DeleteStaticRole(ctx context.Context, name string) error {
	return c.remove(ctx, "static-roles", name)
}

// ReadStaticCredentials returns the current credentials of the static role called name
func (c *Client) ReadStaticCredentials(ctx context.Context, name string) (*StaticCredentials, error) {
	var creds StaticCredentials
	if err := c.read(ctx, "static-creds", name, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// RotateStaticRole rotates the password of the static role called name now.
func (c *Client) RotateStaticRole(ctx context.Context, name string) error {
	return c.post(ctx, "rotate-role", name)
}
