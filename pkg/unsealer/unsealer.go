package unsealer

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/getgrowly/vault-client/pkg/config"
	"github.com/getgrowly/vault-client/pkg/kubernetes"
	"github.com/getgrowly/vault-client/pkg/vault"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Unsealer keeps the Vault pods of a namespace initialized and unsealed.
type Unsealer struct {
	kube       *kubernetes.Client
	cfg        *config.Config
	httpClient *http.Client
	logger     hclog.Logger
}

// New creates an Unsealer for the pods described by cfg. The HTTP client for
// the pods is built once from the TLS and timeout settings of cfg.Vault.
func New(kube *kubernetes.Client, cfg *config.Config, logger hclog.Logger) (*Unsealer, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	vaultCfg := cfg.Vault
	if vaultCfg == nil {
		vaultCfg = vault.DefaultConfig()
	}
	httpClient, err := vaultCfg.NewHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create vault http client: %w", err)
	}
	return &Unsealer{kube: kube, cfg: cfg, httpClient: httpClient, logger: logger}, nil
}

// podConfig returns the client settings for a single pod. It carries the
// shared transport but no token or namespace: init, unseal and seal-status
// are unauthenticated root namespace endpoints.
func (u *Unsealer) podConfig(pod kubernetes.VaultPod) *vault.Config {
	return &vault.Config{
		Address:    fmt.Sprintf("%s://%s", u.cfg.VaultScheme, net.JoinHostPort(pod.IP, u.cfg.VaultPort)),
		HTTPClient: u.httpClient,
		Logger:     u.logger.Named("vault").With("pod", pod.Name),
	}
}

func (u *Unsealer) vaultClient(pod kubernetes.VaultPod) (*vault.Client, error) {
	return vault.NewClientWithConfig(u.podConfig(pod))
}

// Reconcile checks every Vault pod once, initializing and unsealing as
// needed. A failing pod does not stop the others; all failures are returned together.
func (u *Unsealer) Reconcile(ctx context.Context) error {
	pods, err := u.kube.GetVaultPods(ctx, u.cfg.PodNamespace, u.cfg.PodSelector)
	if err != nil {
		return err
	}
	if len(pods) == 0 {
		u.logger.Warn("no Vault pods found", "namespace", u.cfg.PodNamespace)
		return nil
	}
	u.logger.Debug("found Vault pods", "count", len(pods))

	var result *multierror.Error
	for _, pod := range pods {
		if err := u.reconcilePod(ctx, pod); err != nil {
			u.logger.Error("failed to reconcile Vault pod", "pod", pod.Name, "error", err)
			result = multierror.Append(result, fmt.Errorf("pod %s: %w", pod.Name, err))
		}
	}
	return result.ErrorOrNil()
}

func (u *Unsealer) reconcilePod(ctx context.Context, pod kubernetes.VaultPod) error {
	client, err := u.vaultClient(pod)
	if err != nil {
		return err
	}

	status, err := client.SealStatus(ctx)
	if err != nil {
		return err
	}

	if !status.Initialized {
		initialized, err := u.initialize(ctx, client, pod)
		if err != nil {
			return err
		}
		if !initialized {
			return nil
		}
	} else if !status.Sealed {
		u.logger.Debug("Vault pod is unsealed and healthy", "pod", pod.Name)
		return nil
	}

	u.logger.Info("Vault pod is sealed, attempting to unseal", "pod", pod.Name)
	keys, err := u.kube.GetUnsealKeys(ctx, u.cfg.PodNamespace)
	if err != nil {
		return fmt.Errorf("failed to read unseal keys: %w", err)
	}
	status, err = client.UnsealWithKeys(ctx, keys)
	if err != nil {
		return err
	}
	if status.Sealed {
		return fmt.Errorf("still sealed after %d keys (progress %d/%d)", len(keys), status.Progress, status.Threshold)
	}

	u.logger.Info("successfully unsealed Vault pod", "pod", pod.Name)
	return nil
}

// initialize initializes the Vault behind client and stores its root token
// and unseal keys. When the keys secret already exists the cluster was
// initialized through another pod, so this pod is left to join on its own.
func (u *Unsealer) initialize(ctx context.Context, client *vault.Client, pod kubernetes.VaultPod) (bool, error) {
	_, err := u.kube.GetSecret(ctx, u.cfg.PodNamespace, kubernetes.UnsealKeysSecret)
	switch {
	case err == nil:
		u.logger.Warn("Vault pod is not initialized but unseal keys exist, waiting for it to join", "pod", pod.Name)
		return false, nil
	case !kubernetes.IsNotFound(err):
		return false, err
	}

	u.logger.Info("initializing Vault", "pod", pod.Name, "shares", u.cfg.SecretShares, "threshold", u.cfg.SecretThreshold)
	resp, err := client.Initialize(ctx, &vault.InitRequest{
		SecretShares:    u.cfg.SecretShares,
		SecretThreshold: u.cfg.SecretThreshold,
	})
	if err != nil {
		return false, err
	}

	// Vault returns the keys only once, so they go in before the root token.
	if err := u.kube.CreateUnsealKeySecret(ctx, u.cfg.PodNamespace, resp.Keys); err != nil {
		return false, fmt.Errorf("failed to store unseal keys: %w", err)
	}
	if err := u.kube.CreateRootTokenSecret(ctx, u.cfg.PodNamespace, resp.RootToken); err != nil {
		if !kubernetes.IsAlreadyExists(err) {
			return false, fmt.Errorf("failed to store root token: %w", err)
		}
		u.logger.Warn("root token secret already exists, keeping it", "pod", pod.Name, "secret", kubernetes.RootTokenSecret)
	}

	u.logger.Info("successfully initialized Vault and stored secrets", "pod", pod.Name)
	return true, nil
}

// Run reconciles immediately and then every check interval until ctx is done.
func (u *Unsealer) Run(ctx context.Context) error {
	interval := u.cfg.CheckInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := u.Reconcile(ctx); err != nil {
			u.logger.Error("reconcile failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Ready reports whether there is at least one Vault pod and every pod is
// initialized and unsealed.
func (u *Unsealer) Ready(ctx context.Context) (bool, error) {
	pods, err := u.kube.GetVaultPods(ctx, u.cfg.PodNamespace, u.cfg.PodSelector)
	if err != nil {
		return false, err
	}
	if len(pods) == 0 {
		return false, nil
	}

	for _, pod := range pods {
		client, err := u.vaultClient(pod)
		if err != nil {
			return false, err
		}
		status, err := client.SealStatus(ctx)
		if err != nil {
			u.logger.Debug("failed to check Vault pod", "pod", pod.Name, "error", err)
			return false, nil
		}
		if !status.Initialized || status.Sealed {
			return false, nil
		}
	}
	return true, nil
}
