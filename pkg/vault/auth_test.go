package vault

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMethods(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /v1/sys/auth":
			fmt.Fprintln(w, `{"data": {"token/": {"type": "token", "accessor": "auth_token_1", "config": {}}, "kubernetes/": {"type": "kubernetes", "accessor": "auth_kubernetes_1", "local": true, "config": {}}}}`)
		case "POST /v1/sys/auth/kubernetes":
			body := decodeBody(t, r)
			assert.Equal(t, "kubernetes", body["type"])
			assert.Equal(t, "cluster login", body["description"])
			w.WriteHeader(http.StatusNoContent)
		case "GET /v1/sys/auth/kubernetes/tune":
			fmt.Fprintln(w, `{"data": {"default_lease_ttl": "1h", "max_lease_ttl": 86400}}`)
		case "POST /v1/sys/auth/kubernetes/tune":
			assert.Equal(t, float64(600), decodeBody(t, r)["default_lease_ttl"])
			w.WriteHeader(http.StatusNoContent)
		case "DELETE /v1/sys/auth/kubernetes":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	methods, err := client.ListAuth(ctx)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "kubernetes/", methods[0].Path)
	assert.True(t, methods[0].Local)
	assert.Equal(t, "token/", methods[1].Path)

	require.NoError(t, client.EnableAuth(ctx, "kubernetes", MountInput{Type: "kubernetes", Description: "cluster login"}))

	cfg, err := client.ReadAuthTune(ctx, "kubernetes")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.DefaultLeaseTTL.Duration())
	assert.Equal(t, 24*time.Hour, cfg.MaxLeaseTTL.Duration())

	require.NoError(t, client.TuneAuth(ctx, "kubernetes", TuneInput{DefaultLeaseTTL: Duration(10 * time.Minute)}))
	require.NoError(t, client.DisableAuth(ctx, "kubernetes"))

	assert.Error(t, client.EnableAuth(ctx, "kubernetes", MountInput{}))
}
