package kubernetes

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	// UnsealKeysSecret is the name of the Kubernetes secret storing unseal keys
	UnsealKeysSecret = "vault-unseal-keys"
	// RootTokenSecret is the name of the Kubernetes secret storing the root token
	RootTokenSecret = "vault-root-token"

	// DefaultVaultSelector matches the server pods of the official Helm chart
	DefaultVaultSelector = "app.kubernetes.io/name=vault,component=server"

	unsealKeyPrefix = "key"
)

// Client represents a Kubernetes client for managing Kubernetes operations
type Client struct {
	clientset kubernetes.Interface
	logger    hclog.Logger
}

// VaultPod is a Vault server pod with an assigned IP.
type VaultPod struct {
	Name string
	IP   string
}

// NewClient creates a new Kubernetes client using in-cluster configuration or local kubeconfig
func NewClient(logger hclog.Logger) (*Client, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	config, err := rest.InClusterConfig()
	if err != nil {
		logger.Debug("not running in cluster, falling back to kubeconfig", "error", err)
		kubeconfig, err := kubeconfigPath()
		if err != nil {
			return nil, err
		}
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", kubeconfig, err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return NewClientWithInterface(clientset, logger), nil
}

// kubeconfigPath returns $KUBECONFIG, or ~/.kube/config when unset.
func kubeconfigPath() (string, error) {
	path := os.Getenv("KUBECONFIG")
	if path == "" {
		path = "~/.kube/config"
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand kubeconfig path %q: %w", path, err)
	}
	return expanded, nil
}

// NewClientWithInterface creates a new Kubernetes client with a provided interface
func NewClientWithInterface(clientset kubernetes.Interface, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{clientset: clientset, logger: logger}
}

// GetVaultPods returns the Vault pods matching selector in namespace, sorted by
// name. Pods without an IP yet are skipped. An empty selector means DefaultVaultSelector.
func (c *Client) GetVaultPods(ctx context.Context, namespace, selector string) ([]VaultPod, error) {
	if selector == "" {
		selector = DefaultVaultSelector
	}
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list Vault pods: %w", err)
	}

	var vaultPods []VaultPod
	for _, pod := range pods.Items {
		if pod.Status.PodIP == "" {
			c.logger.Debug("skipping Vault pod without IP", "pod", pod.Name)
			continue
		}
		c.logger.Debug("found Vault pod", "pod", pod.Name, "ip", pod.Status.PodIP)
		vaultPods = append(vaultPods, VaultPod{Name: pod.Name, IP: pod.Status.PodIP})
	}
	sort.Slice(vaultPods, func(i, j int) bool { return vaultPods[i].Name < vaultPods[j].Name })

	return vaultPods, nil
}

// CreateSecret creates a new Kubernetes secret
func (c *Client) CreateSecret(ctx context.Context, secret *corev1.Secret) error {
	_, err := c.clientset.CoreV1().Secrets(secret.Namespace).Create(ctx, secret, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create secret %s: %w", secret.Name, err)
	}

	c.logger.Info("created secret", "namespace", secret.Namespace, "name", secret.Name)
	return nil
}

// GetSecret retrieves a Kubernetes secret
func (c *Client) GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error) {
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", name, err)
	}

	return secret, nil
}

// IsNotFound reports whether err comes from a missing Kubernetes object.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// IsAlreadyExists reports whether err comes from creating an object that exists.
func IsAlreadyExists(err error) bool {
	return apierrors.IsAlreadyExists(err)
}

// CreateUnsealKeySecret creates a secret containing Vault unseal keys
func (c *Client) CreateUnsealKeySecret(ctx context.Context, namespace string, keys []string) error {
	unsealKeysData := make(map[string][]byte)
	for i, key := range keys {
		unsealKeysData[fmt.Sprintf("%s%d", unsealKeyPrefix, i+1)] = []byte(key)
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      UnsealKeysSecret,
			Namespace: namespace,
			Labels: map[string]string{
				"app.kubernetes.io/component":     "vault-secrets",
				"vault.hashicorp.com/secret-type": "unseal-keys",
			},
		},
		Type: corev1.SecretTypeOpaque,
		Data: unsealKeysData,
	}

	return c.CreateSecret(ctx, secret)
}

// CreateRootTokenSecret creates a secret containing the Vault root token
func (c *Client) CreateRootTokenSecret(ctx context.Context, namespace, rootToken string) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      RootTokenSecret,
			Namespace: namespace,
			Labels: map[string]string{
				"app.kubernetes.io/component":     "vault-secrets",
				"vault.hashicorp.com/secret-type": "root-token",
			},
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			"token": []byte(rootToken),
		},
	}

	return c.CreateSecret(ctx, secret)
}

// GetUnsealKeys reads the unseal keys stored by CreateUnsealKeySecret, in
// the order they were issued.
func (c *Client) GetUnsealKeys(ctx context.Context, namespace string) ([]string, error) {
	secret, err := c.GetSecret(ctx, namespace, UnsealKeysSecret)
	if err != nil {
		return nil, err
	}

	type indexedKey struct {
		index int
		value string
	}
	var indexed []indexedKey
	for name, value := range secret.Data {
		n, err := strconv.Atoi(strings.TrimPrefix(name, unsealKeyPrefix))
		if !strings.HasPrefix(name, unsealKeyPrefix) || err != nil {
			continue
		}
		indexed = append(indexed, indexedKey{index: n, value: string(value)})
	}
	sort.Slice(indexed, func(i, j int) bool { return indexed[i].index < indexed[j].index })

	keys := make([]string, 0, len(indexed))
	for _, k := range indexed {
		keys = append(keys, k.value)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("secret %s holds no unseal keys", UnsealKeysSecret)
	}
	return keys, nil
}

// GetRootToken reads the root token stored by CreateRootTokenSecret.
func (c *Client) GetRootToken(ctx context.Context, namespace string) (string, error) {
	secret, err := c.GetSecret(ctx, namespace, RootTokenSecret)
	if err != nil {
		return "", err
	}
	token := string(secret.Data["token"])
	if token == "" {
		return "", fmt.Errorf("secret %s holds no token", RootTokenSecret)
	}
	return token, nil
}
