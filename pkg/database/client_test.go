package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getgrowly/vault-client/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mount string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(vault.NewClient(server.URL), mount)
}

func TestNewClientDefaultMount(t *testing.T) {
	assert.Equal(t, DefaultMount, NewClient(vault.NewClient("http://vault:8200"), "").Mount())
	assert.Equal(t, "db/prod", NewClient(vault.NewClient("http://vault:8200"), "db/prod").Mount())
}

func TestClientRequests(t *testing.T) {
	tests := []struct {
		name       string
		call       func(*Client) error
		wantMethod string
		wantPath   string
	}{
		{
			name: "write connection",
			call: func(c *Client) error {
				return c.WriteConnection(context.Background(), "pg", ConnectionConfig{
					Backend: &SQL{Plugin: "postgresql-database-plugin", ConnectionURL: "postgresql://db"},
				})
			},
			wantMethod: http.MethodPost,
			wantPath:   "/v1/db/prod/config/pg",
		},
		{
			name:       "delete connection",
			call:       func(c *Client) error { return c.DeleteConnection(context.Background(), "pg") },
			wantMethod: http.MethodDelete,
			wantPath:   "/v1/db/prod/config/pg",
		},
		{
			name:       "reset connection",
			call:       func(c *Client) error { return c.ResetConnection(context.Background(), "pg") },
			wantMethod: http.MethodPost,
			wantPath:   "/v1/db/prod/reset/pg",
		},
		{
			name:       "rotate root",
			call:       func(c *Client) error { return c.RotateRoot(context.Background(), "pg") },
			wantMethod: http.MethodPost,
			wantPath:   "/v1/db/prod/rotate-root/pg",
		},
		{
			name: "write role",
			call: func(c *Client) error {
				return c.WriteRole(context.Background(), "readonly", Role{DBName: "pg", DefaultTTL: vault.Duration(time.Hour)})
			},
			wantMethod: http.MethodPost,
			wantPath:   "/v1/db/prod/roles/readonly",
		},
		{
			name:       "delete role",
			call:       func(c *Client) error { return c.DeleteRole(context.Background(), "readonly") },
			wantMethod: http.MethodDelete,
			wantPath:   "/v1/db/prod/roles/readonly",
		},
		{
			name: "write static role",
			call: func(c *Client) error {
				return c.WriteStaticRole(context.Background(), "app", StaticRole{DBName: "pg", Username: "app", RotationPeriod: vault.Duration(24 * time.Hour)})
			},
			wantMethod: http.MethodPost,
			wantPath:   "/v1/db/prod/static-roles/app",
		},
		{
			name:       "delete static role",
			call:       func(c *Client) error { return c.DeleteStaticRole(context.Background(), "app") },
			wantMethod: http.MethodDelete,
			wantPath:   "/v1/db/prod/static-roles/app",
		},
		{
			name:       "rotate static role",
			call:       func(c *Client) error { return c.RotateStaticRole(context.Background(), "app") },
			wantMethod: http.MethodPost,
			wantPath:   "/v1/db/prod/rotate-role/app",
		},
		{
			name:       "enable engine",
			call:       func(c *Client) error { return c.Enable(context.Background(), "production databases") },
			wantMethod: http.MethodPost,
			wantPath:   "/v1/sys/mounts/db/prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, "db/prod", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				w.WriteHeader(http.StatusNoContent)
			})

			assert.NoError(t, tt.call(client))
		})
	}
}

func TestWriteRoleBody(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{
			"db_name":             "pg",
			"default_ttl":         float64(3600),
			"max_ttl":             float64(86400),
			"creation_statements": []interface{}{"CREATE ROLE"},
		}, body)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.WriteRole(context.Background(), "readonly", Role{
		DBName:             "pg",
		DefaultTTL:         vault.Duration(time.Hour),
		MaxTTL:             vault.Duration(24 * time.Hour),
		CreationStatements: []string{"CREATE ROLE"},
	})
	assert.NoError(t, err)
}

func TestReadConnection(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/database/config/pg", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		fmt.Fprintln(w, `{"data": {
			"plugin_name": "postgresql-database-plugin",
			"allowed_roles": ["readonly"],
			"connection_details": {"connection_url": "postgresql://{{username}}:{{password}}@db/app", "username": "vault", "max_open_connections": 4}
		}}`)
	})

	cfg, err := client.ReadConnection(context.Background(), "pg")
	require.NoError(t, err)
	assert.Equal(t, StringList{"readonly"}, cfg.AllowedRoles)

	sql, ok := cfg.Backend.(*SQL)
	require.True(t, ok)
	assert.Equal(t, "postgresql-database-plugin", sql.PluginName())
	assert.Equal(t, 4, sql.MaxOpenConnections)
	assert.Equal(t, "vault", sql.Username)
}

func TestReadRoles(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/database/roles/readonly":
			fmt.Fprintln(w, `{"data": {"db_name": "pg", "default_ttl": 3600, "max_ttl": "24h", "creation_statements": ["CREATE ROLE"]}}`)
		case "/v1/database/static-roles/app":
			fmt.Fprintln(w, `{"data": {"db_name": "pg", "username": "app", "rotation_period": 86400}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	role, err := client.ReadRole(context.Background(), "readonly")
	require.NoError(t, err)
	assert.Equal(t, &Role{
		DBName:             "pg",
		DefaultTTL:         vault.Duration(time.Hour),
		MaxTTL:             vault.Duration(24 * time.Hour),
		CreationStatements: []string{"CREATE ROLE"},
	}, role)

	static, err := client.ReadStaticRole(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, &StaticRole{DBName: "pg", Username: "app", RotationPeriod: vault.Duration(24 * time.Hour)}, static)

	_, err = client.ReadRole(context.Background(), "missing")
	assert.True(t, vault.IsNotFound(err))
}

func TestListing(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, vault.MethodList, r.Method)
		switch r.URL.Path {
		case "/v1/database/config":
			fmt.Fprintln(w, `{"data": {"keys": ["pg", "mysql"]}}`)
		case "/v1/database/roles":
			fmt.Fprintln(w, `{"data": {"keys": ["readonly"]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	conns, err := client.ListConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pg", "mysql"}, conns)

	roles, err := client.ListRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"readonly"}, roles)

	static, err := client.ListStaticRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, static)
}

func TestGenerateCredentials(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/database/creds/readonly", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		fmt.Fprintln(w, `{
			"lease_id": "database/creds/readonly/abc",
			"lease_duration": 3600,
			"renewable": true,
			"data": {"username": "v-token-readonly-x", "password": "A1a-pw"}
		}`)
	})

	creds, err := client.GenerateCredentials(context.Background(), "readonly")
	require.NoError(t, err)
	assert.Equal(t, &Credentials{
		Username:  "v-token-readonly-x",
		Password:  "A1a-pw",
		LeaseID:   "database/creds/readonly/abc",
		LeaseTTL:  time.Hour,
		Renewable: true,
	}, creds)
}

func TestReadStaticCredentials(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/database/static-creds/app", r.URL.Path)
		fmt.Fprintln(w, `{"data": {"username": "app", "password": "pw", "last_vault_rotation": "2024-05-01T12:00:00Z", "rotation_period": 86400, "ttl": 3600}}`)
	})

	creds, err := client.ReadStaticCredentials(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, "pw", creds.Password)
	assert.Equal(t, time.Hour, creds.TTL.Duration())
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), creds.LastVaultRotation.UTC())
}

func TestArgumentValidation(t *testing.T) {
	client := NewClient(vault.NewClient("http://vault:8200"), "")
	ctx := context.Background()

	errs := []error{
		client.WriteConnection(ctx, "", ConnectionConfig{}),
		client.WriteRole(ctx, "readonly", Role{}),
		client.WriteStaticRole(ctx, "app", StaticRole{DBName: "pg"}),
		client.RotateStaticRole(ctx, ""),
	}
	for _, err := range errs {
		assert.True(t, errors.Is(err, vault.ErrMissingArgument), "got %v", err)
	}
	_, err := client.GenerateCredentials(ctx, "")
	assert.True(t, errors.Is(err, vault.ErrMissingArgument))
}
