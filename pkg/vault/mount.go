package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

const mountsPath = "sys/mounts"

// Visibility controls whether a mount shows up in the unauthenticated
// listing of the UI.
type Visibility string

const (
	// VisibilityDefault leaves the server setting untouched.
	VisibilityDefault Visibility = ""
	VisibilityHidden  Visibility = "hidden"
	VisibilityUnauth  Visibility = "unauth"
)

func (v Visibility) valid() bool {
	switch v {
	case VisibilityDefault, VisibilityHidden, VisibilityUnauth:
		return true
	}
	return false
}

// MarshalText rejects anything but the known visibility values.
func (v Visibility) MarshalText() ([]byte, error) {
	if !v.valid() {
		return nil, fmt.Errorf("invalid listing visibility %q", string(v))
	}
	return []byte(v), nil
}

// UnmarshalText rejects anything but the known visibility values.
func (v *Visibility) UnmarshalText(b []byte) error {
	vis := Visibility(b)
	if !vis.valid() {
		return fmt.Errorf("invalid listing visibility %q", string(b))
	}
	*v = vis
	return nil
}

// KeyPairs is a pair of request-side and response-side key lists.
type KeyPairs struct {
	Request  []string
	Response []string
}

// Options are the engine specific mount options. Vault stores them as
// strings but older servers echo numbers for "version", so decoding is loose.
type Options map[string]string

// UnmarshalJSON accepts any scalar option value and stores it as a string.
func (o *Options) UnmarshalJSON(b []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*o = nil
		return nil
	}
	opts, err := cast.ToStringMapStringE(raw)
	if err != nil {
		return fmt.Errorf("invalid mount options: %w", err)
	}
	*o = opts
	return nil
}

// MountConfigInput is the config block sent when a mount is created.
type MountConfigInput struct {
	DefaultLeaseTTL           Duration   `json:"default_lease_ttl,omitempty"`
	MaxLeaseTTL               Duration   `json:"max_lease_ttl,omitempty"`
	ForceNoCache              bool       `json:"force_no_cache,omitempty"`
	AuditNonHMACRequestKeys   []string   `json:"audit_non_hmac_request_keys,omitempty"`
	AuditNonHMACResponseKeys  []string   `json:"audit_non_hmac_response_keys,omitempty"`
	ListingVisibility         Visibility `json:"listing_visibility,omitempty"`
	PassthroughRequestHeaders []string   `json:"passthrough_request_headers,omitempty"`
	AllowedResponseHeaders    []string   `json:"allowed_response_headers,omitempty"`
}

// MountInput describes a secret engine to enable.
type MountInput struct {
	Type                  string           `json:"type"`
	Description           string           `json:"description,omitempty"`
	Config                MountConfigInput `json:"config"`
	Options               Options          `json:"options,omitempty"`
	Local                 bool             `json:"local,omitempty"`
	SealWrap              bool             `json:"seal_wrap,omitempty"`
	ExternalEntropyAccess bool             `json:"external_entropy_access,omitempty"`
	PluginVersion         string           `json:"plugin_version,omitempty"`
}

// WithVersion sets the "version" option, used by the kv engine.
func (in MountInput) WithVersion(version int) MountInput {
	opts := Options{}
	for k, v := range in.Options {
		opts[k] = v
	}
	opts["version"] = cast.ToString(version)
	in.Options = opts
	return in
}

// MountConfigOutput is the effective configuration of a mount.
type MountConfigOutput struct {
	DefaultLeaseTTL           Duration   `json:"default_lease_ttl"`
	MaxLeaseTTL               Duration   `json:"max_lease_ttl"`
	ForceNoCache              bool       `json:"force_no_cache"`
	Description               string     `json:"description,omitempty"`
	AuditNonHMACRequestKeys   []string   `json:"audit_non_hmac_request_keys,omitempty"`
	AuditNonHMACResponseKeys  []string   `json:"audit_non_hmac_response_keys,omitempty"`
	ListingVisibility         Visibility `json:"listing_visibility,omitempty"`
	PassthroughRequestHeaders []string   `json:"passthrough_request_headers,omitempty"`
	AllowedResponseHeaders    []string   `json:"allowed_response_headers,omitempty"`
	Options                   Options    `json:"options,omitempty"`
}

// MountOutput is one entry of the mount table.
type MountOutput struct {
	// Path is the mount point, filled in from the table key.
	Path                  string            `json:"-"`
	UUID                  string            `json:"uuid,omitempty"`
	Type                  string            `json:"type"`
	Description           string            `json:"description"`
	Accessor              string            `json:"accessor"`
	Config                MountConfigOutput `json:"config"`
	Options               Options           `json:"options"`
	Local                 bool              `json:"local"`
	SealWrap              bool              `json:"seal_wrap"`
	ExternalEntropyAccess bool              `json:"external_entropy_access"`
	PluginVersion         string            `json:"plugin_version,omitempty"`
	RunningPluginVersion  string            `json:"running_plugin_version,omitempty"`
}

// TuneInput changes the configuration of an existing mount. Zero values are
// left out of the request and keep the current setting.
type TuneInput struct {
	DefaultLeaseTTL   Duration
	MaxLeaseTTL       Duration
	Description       *string
	Audit             KeyPairs
	ListingVisibility Visibility
	Headers           KeyPairs
	Options           Options
}

// MarshalJSON spreads the key pairs over their individual Vault fields.
func (in TuneInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DefaultLeaseTTL           Duration   `json:"default_lease_ttl,omitempty"`
		MaxLeaseTTL               Duration   `json:"max_lease_ttl,omitempty"`
		Description               *string    `json:"description,omitempty"`
		AuditNonHMACRequestKeys   []string   `json:"audit_non_hmac_request_keys,omitempty"`
		AuditNonHMACResponseKeys  []string   `json:"audit_non_hmac_response_keys,omitempty"`
		ListingVisibility         Visibility `json:"listing_visibility,omitempty"`
		PassthroughRequestHeaders []string   `json:"passthrough_request_headers,omitempty"`
		AllowedResponseHeaders    []string   `json:"allowed_response_headers,omitempty"`
		Options                   Options    `json:"options,omitempty"`
	}{
		DefaultLeaseTTL:           in.DefaultLeaseTTL,
		MaxLeaseTTL:               in.MaxLeaseTTL,
		Description:               in.Description,
		AuditNonHMACRequestKeys:   in.Audit.Request,
		AuditNonHMACResponseKeys:  in.Audit.Response,
		ListingVisibility:         in.ListingVisibility,
		PassthroughRequestHeaders: in.Headers.Request,
		AllowedResponseHeaders:    in.Headers.Response,
		Options:                   in.Options,
	})
}

type remountBody struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func mountRequest(method, path string, suffix ...string) (*Request, error) {
	if err := checkPath("mount path", path); err != nil {
		return nil, err
	}
	return NewRequest(method, append([]string{mountsPath, path}, suffix...)...), nil
}

func remountRequest(from, to string) (*Request, error) {
	from, to = strings.Trim(from, "/"), strings.Trim(to, "/")
	if from == "" {
		return nil, missing("remount source")
	}
	if to == "" {
		return nil, missing("remount destination")
	}
	if from == to {
		return nil, fmt.Errorf("remount source and destination are both %q", from)
	}
	return NewRequest(http.MethodPost, "sys", "remount").WithBody(remountBody{From: from, To: to}), nil
}

// decodeMountTable turns a mount table response into a list sorted by path.
// Newer servers nest the table under "data", older ones return it at the
// top level next to the envelope fields, which are skipped.
func decodeMountTable(body json.RawMessage) ([]MountOutput, error) {
	var table map[string]json.RawMessage
	if err := json.Unmarshal(dataOrBody(body), &table); err != nil {
		return nil, fmt.Errorf("failed to decode mount table: %w", err)
	}

	mounts := make([]MountOutput, 0, len(table))
	for path, raw := range table {
		if !isObject(raw) {
			continue
		}
		var m MountOutput
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to decode mount %s: %w", path, err)
		}
		if m.Type == "" {
			continue
		}
		m.Path = path
		mounts = append(mounts, m)
	}
	sort.Slice(mounts, func(i, j int) bool { return mounts[i].Path < mounts[j].Path })
	return mounts, nil
}

// ListMounts returns all secret engine mounts sorted by path
func (c *Client) ListMounts(ctx context.Context) ([]MountOutput, error) {
	var body json.RawMessage
	if err := c.Send(ctx, NewRequest(http.MethodGet, mountsPath), &body); err != nil {
		return nil, fmt.Errorf("failed to list mounts: %w", err)
	}
	return decodeMountTable(body)
}

// Mount enables a secret engine at path
func (c *Client) Mount(ctx context.Context, path string, in MountInput) error {
	if in.Type == "" {
		return missing("mount type")
	}
	r, err := mountRequest(http.MethodPost, path)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r.WithBody(in), nil); err != nil {
		return fmt.Errorf("failed to mount %s: %w", path, err)
	}
	return nil
}

// Unmount disables the secret engine at path, revoking its leases.
func (c *Client) Unmount(ctx context.Context, path string) error {
	r, err := mountRequest(http.MethodDelete, path)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", path, err)
	}
	return nil
}

// ReadMount returns the tuned configuration of the mount at path
func (c *Client) ReadMount(ctx context.Context, path string) (*MountConfigOutput, error) {
	r, err := mountRequest(http.MethodGet, path, "tune")
	if err != nil {
		return nil, err
	}

	var cfg MountConfigOutput
	if err := c.sendDataOrBody(ctx, r, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read mount %s: %w", path, err)
	}
	return &cfg, nil
}

// TuneMount updates the configuration of the mount at path
func (c *Client) TuneMount(ctx context.Context, path string, in TuneInput) error {
	r, err := mountRequest(http.MethodPost, path, "tune")
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r.WithBody(in), nil); err != nil {
		return fmt.Errorf("failed to tune mount %s: %w", path, err)
	}
	return nil
}

// Remount moves a mount to a new path.
func (c *Client) Remount(ctx context.Context, from, to string) error {
	r, err := remountRequest(from, to)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to remount %s to %s: %w", from, to, err)
	}
	return nil
}

// ErrMountNotFound is returned by FindMount when no mount matches.
var ErrMountNotFound = errors.New("mount not found")

// FindMount returns the mount whose path equals path, with or without the
// trailing slash the mount table uses.
func (c *Client) FindMount(ctx context.Context, path string) (*MountOutput, error) {
	mounts, err := c.ListMounts(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.Trim(path, "/")
	for i := range mounts {
		if strings.Trim(mounts[i].Path, "/") == want {
			return &mounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMountNotFound, path)
}
