package database

import (
	"time"

	"github.com/getgrowly/vault-client/pkg/vault"
)

// Role maps a name to the statements used to create dynamic database users.
type Role struct {
	DBName               string         `json:"db_name"`
	DefaultTTL           vault.Duration `json:"default_ttl,omitempty"`
	MaxTTL               vault.Duration `json:"max_ttl,omitempty"`
	CreationStatements   []string       `json:"creation_statements,omitempty"`
	RevocationStatements []string       `json:"revocation_statements,omitempty"`
	RollbackStatements   []string       `json:"rollback_statements,omitempty"`
	RenewStatements      []string       `json:"renew_statements,omitempty"`
	CredentialType       string         `json:"credential_type,omitempty"`
}

// StaticRole maps a name to an existing database user whose password Vault rotates.
type StaticRole struct {
	Username           string         `json:"username"`
	DBName             string         `json:"db_name"`
	RotationPeriod     vault.Duration `json:"rotation_period,omitempty"`
	RotationStatements []string       `json:"rotation_statements,omitempty"`
	CredentialType     string         `json:"credential_type,omitempty"`
}

// Credentials are generated for a dynamic role and bound to a lease.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`

	LeaseID   string        `json:"-"`
	LeaseTTL  time.Duration `json:"-"`
	Renewable bool          `json:"-"`
}

// StaticCredentials are the current credentials of a static role.
type StaticCredentials struct {
	Username          string         `json:"username"`
	Password          string         `json:"password"`
	LastVaultRotation time.Time      `json:"last_vault_rotation"`
	RotationPeriod    vault.Duration `json:"rotation_period"`
	TTL               vault.Duration `json:"ttl"`
}
