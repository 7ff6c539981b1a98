package database

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ConnectionConfig is the configuration of one database connection. The
// backend fields are flat next to the common ones when written, and nested
// under "connection_details" when read back.
type ConnectionConfig struct {
	PluginName             string     `json:"plugin_name"`
	PluginVersion          string     `json:"plugin_version,omitempty"`
	AllowedRoles           StringList `json:"allowed_roles,omitempty"`
	RootRotationStatements []string   `json:"root_rotation_statements,omitempty"`
	VerifyConnection       *bool      `json:"verify_connection,omitempty"`
	PasswordPolicy         string     `json:"password_policy,omitempty"`
	Backend                Backend    `json:"-"`
}

// MarshalJSON writes the flat form Vault expects on writes. PluginName
// defaults to the backend's plugin name.
func (c ConnectionConfig) MarshalJSON() ([]byte, error) {
	if c.Backend == nil {
		return nil, errors.New("connection config has no backend")
	}
	type plain ConnectionConfig
	p := plain(c)
	if p.PluginName == "" {
		p.PluginName = c.Backend.PluginName()
	}
	if p.PluginName == "" {
		return nil, errors.New("connection config has no plugin name")
	}
	return flatten(c.Backend, p)
}

// UnmarshalJSON selects the backend from plugin_name and decodes it from
// connection_details when present, or from the flat document otherwise.
func (c *ConnectionConfig) UnmarshalJSON(b []byte) error {
	type plain ConnectionConfig
	var doc struct {
		plain
		ConnectionDetails json.RawMessage `json:"connection_details"`
		// reads report the rotation statements under this name
		RootCredentialsRotateStatements []string `json:"root_credentials_rotate_statements"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc.PluginName == "" {
		return errors.New("connection config: missing plugin_name")
	}

	backend, err := newBackend(doc.PluginName)
	if err != nil {
		return err
	}
	details := b
	if len(doc.ConnectionDetails) > 0 && string(doc.ConnectionDetails) != "null" {
		details = doc.ConnectionDetails
	}
	if err := json.Unmarshal(details, backend); err != nil {
		return fmt.Errorf("failed to decode %s connection details: %w", doc.PluginName, err)
	}

	*c = ConnectionConfig(doc.plain)
	if len(c.RootRotationStatements) == 0 {
		c.RootRotationStatements = doc.RootCredentialsRotateStatements
	}
	c.Backend = backend
	return nil
}
