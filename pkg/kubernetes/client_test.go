package kubernetes

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func vaultPod(name, ip string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "vault",
			Labels:    labels,
		},
		Status: corev1.PodStatus{
			PodIP: ip,
		},
	}
}

func TestGetVaultPods(t *testing.T) {
	serverLabels := map[string]string{
		"app.kubernetes.io/name": "vault",
		"component":              "server",
	}

	// Create a fake Kubernetes clientset with test pods
	clientset := fake.NewSimpleClientset(
		vaultPod("vault-1", "10.0.0.2", serverLabels),
		vaultPod("vault-0", "10.0.0.1", serverLabels),
		vaultPod("vault-2", "", serverLabels),
		vaultPod("vault-agent-injector", "10.0.0.9", map[string]string{"app.kubernetes.io/name": "vault-agent-injector"}),
	)

	client := NewClientWithInterface(clientset, nil)

	pods, err := client.GetVaultPods(context.Background(), "vault", "")
	require.NoError(t, err)
	assert.Equal(t, []VaultPod{
		{Name: "vault-0", IP: "10.0.0.1"},
		{Name: "vault-1", IP: "10.0.0.2"},
	}, pods)

	pods, err = client.GetVaultPods(context.Background(), "vault", "app.kubernetes.io/name=vault-agent-injector")
	require.NoError(t, err)
	assert.Equal(t, []VaultPod{{Name: "vault-agent-injector", IP: "10.0.0.9"}}, pods)

	pods, err = client.GetVaultPods(context.Background(), "other", "")
	require.NoError(t, err)
	assert.Empty(t, pods)
}

func TestCreateAndGetSecret(t *testing.T) {
	// Create a fake Kubernetes clientset
	clientset := fake.NewSimpleClientset()
	client := NewClientWithInterface(clientset, nil)
	ctx := context.Background()

	_, err := client.GetUnsealKeys(ctx, "vault")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	// Test creating unseal key secret
	keys := []string{"key-a", "key-b", "key-c", "key-d", "key-e", "key-f", "key-g", "key-h", "key-i", "key-j", "key-k"}
	require.NoError(t, client.CreateUnsealKeySecret(ctx, "vault", keys))

	// Test getting the created secret
	secret, err := client.GetSecret(ctx, "vault", UnsealKeysSecret)
	require.NoError(t, err)
	assert.Equal(t, "key-a", string(secret.Data["key1"]))
	assert.Equal(t, "unseal-keys", secret.Labels["vault.hashicorp.com/secret-type"])

	// keys come back in issue order, key10 after key9
	stored, err := client.GetUnsealKeys(ctx, "vault")
	require.NoError(t, err)
	assert.Equal(t, keys, stored)

	// Test creating root token secret
	rootToken := "test-root-token"
	require.NoError(t, client.CreateRootTokenSecret(ctx, "vault", rootToken))

	token, err := client.GetRootToken(ctx, "vault")
	require.NoError(t, err)
	assert.Equal(t, rootToken, token)

	// creating it twice fails
	assert.Error(t, client.CreateRootTokenSecret(ctx, "vault", rootToken))
}

func TestKubeconfigPath(t *testing.T) {
	t.Setenv("KUBECONFIG", "/etc/kube/admin.conf")
	path, err := kubeconfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/kube/admin.conf", path)

	t.Setenv("KUBECONFIG", "")
	path, err = kubeconfigPath()
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(path, "~"))
	assert.Equal(t, filepath.Join(".kube", "config"), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
