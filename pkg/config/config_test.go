package config

import (
	"testing"
	"time"

	"github.com/getgrowly/vault-client/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Test default values
	cfg := LoadConfig()
	assert.Equal(t, "vault", cfg.PodNamespace)
	assert.Equal(t, "8200", cfg.VaultPort)
	assert.Equal(t, "http", cfg.VaultScheme)
	assert.Equal(t, 10*time.Second, cfg.CheckInterval)
	assert.Equal(t, 5, cfg.SecretShares)
	assert.Equal(t, 3, cfg.SecretThreshold)
	assert.Equal(t, "8080", cfg.ListenPort)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NotNil(t, cfg.Vault)
	assert.Equal(t, vault.DefaultAddress, cfg.Vault.Address)
	assert.Equal(t, vault.DefaultTimeout, cfg.Vault.Timeout)
	assert.Nil(t, cfg.Vault.TLS)

	// Test custom values
	t.Setenv("POD_NAMESPACE", "custom-namespace")
	t.Setenv("VAULT_PORT", "8201")
	t.Setenv("CHECK_INTERVAL", "20")
	t.Setenv("SECRET_SHARES", "1")
	t.Setenv("SECRET_THRESHOLD", "1")
	t.Setenv("VAULT_ADDR", "https://vault.example.com:8200")
	t.Setenv("VAULT_TOKEN", "s.token")
	t.Setenv("VAULT_NAMESPACE", "team-a")
	t.Setenv("VAULT_CLIENT_TIMEOUT", "5s")

	cfg = LoadConfig()
	assert.Equal(t, "custom-namespace", cfg.PodNamespace)
	assert.Equal(t, "8201", cfg.VaultPort)
	assert.Equal(t, 20*time.Second, cfg.CheckInterval)
	assert.Equal(t, 1, cfg.SecretShares)
	assert.Equal(t, 1, cfg.SecretThreshold)
	assert.Equal(t, "https://vault.example.com:8200", cfg.Vault.Address)
	assert.Equal(t, "s.token", cfg.Vault.Token)
	assert.Equal(t, "team-a", cfg.Vault.Namespace)
	assert.Equal(t, 5*time.Second, cfg.Vault.Timeout)

	// Test duration strings
	t.Setenv("CHECK_INTERVAL", "1m")
	cfg = LoadConfig()
	assert.Equal(t, time.Minute, cfg.CheckInterval)

	// Test invalid values
	t.Setenv("CHECK_INTERVAL", "invalid")
	t.Setenv("SECRET_SHARES", "many")
	cfg = LoadConfig()
	assert.Equal(t, 10*time.Second, cfg.CheckInterval)
	assert.Equal(t, 5, cfg.SecretShares)
}

func TestLoadConfigThresholdAboveShares(t *testing.T) {
	t.Setenv("SECRET_SHARES", "2")
	t.Setenv("SECRET_THRESHOLD", "4")

	cfg := LoadConfig()
	assert.Equal(t, 5, cfg.SecretShares)
	assert.Equal(t, 3, cfg.SecretThreshold)
}

func TestLoadConfigTLS(t *testing.T) {
	t.Setenv("VAULT_CACERT", "/etc/vault/ca.pem")
	t.Setenv("VAULT_TLS_SERVER_NAME", "vault.internal")
	t.Setenv("VAULT_SKIP_VERIFY", "true")

	cfg := LoadConfig()
	require.NotNil(t, cfg.Vault.TLS)
	assert.Equal(t, &vault.TLSConfig{
		CACert:        "/etc/vault/ca.pem",
		TLSServerName: "vault.internal",
		Insecure:      true,
	}, cfg.Vault.TLS)
}
