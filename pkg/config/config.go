package config

import (
	"time"

	"github.com/getgrowly/vault-client/pkg/vault"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	defaultPodNamespace    = "vault"
	defaultVaultPort       = "8200"
	defaultVaultScheme     = "http"
	defaultPodSelector     = "app.kubernetes.io/name=vault,component=server"
	defaultCheckInterval   = 10 * time.Second
	defaultSecretShares    = 5
	defaultSecretThreshold = 3
	defaultListenPort      = "8080"
	defaultLogLevel        = "info"
)

// env maps configuration keys to the environment variables they are read from.
var env = map[string]string{
	"vault.address":         "VAULT_ADDR",
	"vault.token":           "VAULT_TOKEN",
	"vault.namespace":       "VAULT_NAMESPACE",
	"vault.cacert":          "VAULT_CACERT",
	"vault.capath":          "VAULT_CAPATH",
	"vault.client_cert":     "VAULT_CLIENT_CERT",
	"vault.client_key":      "VAULT_CLIENT_KEY",
	"vault.tls_server_name": "VAULT_TLS_SERVER_NAME",
	"vault.skip_verify":     "VAULT_SKIP_VERIFY",
	"vault.timeout":         "VAULT_CLIENT_TIMEOUT",
	"pod_namespace":         "POD_NAMESPACE",
	"pod_selector":          "POD_SELECTOR",
	"vault_port":            "VAULT_PORT",
	"vault_scheme":          "VAULT_SCHEME",
	"check_interval":        "CHECK_INTERVAL",
	"secret_shares":         "SECRET_SHARES",
	"secret_threshold":      "SECRET_THRESHOLD",
	"listen_port":           "LISTEN_PORT",
	"log_level":             "LOG_LEVEL",
}

// Config represents the application configuration
type Config struct {
	// Vault holds the client settings from the standard VAULT_* variables.
	// The unseal controller takes only TLS and timeout from it; address,
	// token and namespace are for API clients built with vault.NewClientWithConfig.
	Vault *vault.Config
	// PodNamespace is the Kubernetes namespace where Vault is running
	PodNamespace string
	// PodSelector is the label selector matching the Vault server pods
	PodSelector string
	// VaultPort is the port number where Vault is listening on each pod
	VaultPort string
	// VaultScheme is http or https for per-pod addresses
	VaultScheme string
	// CheckInterval is the interval between Vault status checks
	CheckInterval time.Duration
	// SecretShares and SecretThreshold are used when initializing Vault
	SecretShares    int
	SecretThreshold int
	// ListenPort is where the health server listens
	ListenPort string
	// LogLevel is the hclog level name
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	v := viper.New()
	for key, name := range env {
		_ = v.BindEnv(key, name)
	}
	v.SetDefault("vault.address", vault.DefaultAddress)
	v.SetDefault("pod_namespace", defaultPodNamespace)
	v.SetDefault("pod_selector", defaultPodSelector)
	v.SetDefault("vault_port", defaultVaultPort)
	v.SetDefault("vault_scheme", defaultVaultScheme)
	v.SetDefault("listen_port", defaultListenPort)
	v.SetDefault("log_level", defaultLogLevel)

	cfg := &Config{
		Vault: &vault.Config{
			Address:   v.GetString("vault.address"),
			Token:     v.GetString("vault.token"),
			Namespace: v.GetString("vault.namespace"),
			Timeout:   durationOrDefault(v, "vault.timeout", vault.DefaultTimeout),
		},
		PodNamespace:    v.GetString("pod_namespace"),
		PodSelector:     v.GetString("pod_selector"),
		VaultPort:       v.GetString("vault_port"),
		VaultScheme:     v.GetString("vault_scheme"),
		CheckInterval:   durationOrDefault(v, "check_interval", defaultCheckInterval),
		SecretShares:    intOrDefault(v, "secret_shares", defaultSecretShares),
		SecretThreshold: intOrDefault(v, "secret_threshold", defaultSecretThreshold),
		ListenPort:      v.GetString("listen_port"),
		LogLevel:        v.GetString("log_level"),
	}

	tls := &vault.TLSConfig{
		CACert:        v.GetString("vault.cacert"),
		CAPath:        v.GetString("vault.capath"),
		ClientCert:    v.GetString("vault.client_cert"),
		ClientKey:     v.GetString("vault.client_key"),
		TLSServerName: v.GetString("vault.tls_server_name"),
		Insecure:      cast.ToBool(v.GetString("vault.skip_verify")),
	}
	if *tls != (vault.TLSConfig{}) {
		cfg.Vault.TLS = tls
	}

	if cfg.SecretThreshold > cfg.SecretShares {
		cfg.SecretShares, cfg.SecretThreshold = defaultSecretShares, defaultSecretThreshold
	}

	return cfg
}

// intOrDefault returns the positive integer stored under key or defaultValue
func intOrDefault(v *viper.Viper, key string, defaultValue int) int {
	if i, err := cast.ToIntE(v.GetString(key)); err == nil && i > 0 {
		return i
	}
	return defaultValue
}

// durationOrDefault accepts plain seconds ("20") or a duration string ("1m")
func durationOrDefault(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	if d, err := vault.ParseDuration(v.GetString(key)); err == nil && d > 0 {
		return d.Duration()
	}
	return defaultValue
}
