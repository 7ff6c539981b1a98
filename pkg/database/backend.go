package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getgrowly/vault-client/pkg/vault"
	"github.com/spf13/cast"
)

const pluginSuffix = "-database-plugin"

// Backend is the plugin specific part of a connection configuration.
type Backend interface {
	// PluginName is the plugin_name the backend is written with.
	PluginName() string
}

// StringList decodes from a JSON list or a comma separated string.
type StringList []string

// UnmarshalJSON accepts ["a","b"] as well as "a,b".
func (l *StringList) UnmarshalJSON(b []byte) error {
	list, err := parseStringList(b)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

// CommaList is like StringList but encodes as a comma separated string.
type CommaList []string

// MarshalJSON joins the list with commas.
func (l CommaList) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.Join(l, ","))
}

// UnmarshalJSON accepts ["a","b"] as well as "a,b".
func (l *CommaList) UnmarshalJSON(b []byte) error {
	list, err := parseStringList(b)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

func parseStringList(b []byte) ([]string, error) {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		var list []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		return list, nil
	default:
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("invalid string list: %w", err)
		}
		return list, nil
	}
}

// Cassandra configures the cassandra-database-plugin.
type Cassandra struct {
	Hosts           CommaList      `json:"hosts"`
	Port            int            `json:"port,omitempty"`
	Credential      Credential     `json:"-"`
	ProtocolVersion int            `json:"protocol_version,omitempty"`
	Consistency     string         `json:"consistency,omitempty"`
	ConnectTimeout  vault.Duration `json:"connect_timeout,omitempty"`
	SocketKeepAlive vault.Duration `json:"socket_keep_alive,omitempty"`
}

// PluginName implements Backend.
func (Cassandra) PluginName() string { return "cassandra" + pluginSuffix }

// MarshalJSON flattens the credential into the backend fields.
func (c Cassandra) MarshalJSON() ([]byte, error) {
	type plain Cassandra
	return flatten(plain(c), c.Credential)
}

// UnmarshalJSON decodes the backend fields and the credential next to them.
func (c *Cassandra) UnmarshalJSON(b []byte) error {
	type plain Cassandra
	if err := json.Unmarshal(b, (*plain)(c)); err != nil {
		return err
	}
	cred, err := decodeCredential(b)
	if err != nil {
		return fmt.Errorf("cassandra: %w", err)
	}
	c.Credential = cred
	return nil
}

// Elasticsearch configures the elasticsearch-database-plugin.
type Elasticsearch struct {
	URL        string     `json:"url"`
	Credential Credential `json:"-"`
}

// PluginName implements Backend.
func (Elasticsearch) PluginName() string { return "elasticsearch" + pluginSuffix }

// MarshalJSON flattens the credential into the backend fields.
func (e Elasticsearch) MarshalJSON() ([]byte, error) {
	type plain Elasticsearch
	return flatten(plain(e), e.Credential)
}

// UnmarshalJSON decodes the backend fields and the credential next to them.
func (e *Elasticsearch) UnmarshalJSON(b []byte) error {
	type plain Elasticsearch
	if err := json.Unmarshal(b, (*plain)(e)); err != nil {
		return err
	}
	cred, err := decodeCredential(b)
	if err != nil {
		return fmt.Errorf("elasticsearch: %w", err)
	}
	e.Credential = cred
	return nil
}

// InfluxDB configures the influxdb-database-plugin.
type InfluxDB struct {
	Host       string     `json:"host"`
	Port       int        `json:"port,omitempty"`
	Credential Credential `json:"-"`
}

// PluginName implements Backend.
func (InfluxDB) PluginName() string { return "influxdb" + pluginSuffix }

// MarshalJSON flattens the credential into the backend fields.
func (i InfluxDB) MarshalJSON() ([]byte, error) {
	type plain InfluxDB
	return flatten(plain(i), i.Credential)
}

// UnmarshalJSON decodes the backend fields and the credential next to them.
func (i *InfluxDB) UnmarshalJSON(b []byte) error {
	type plain InfluxDB
	if err := json.Unmarshal(b, (*plain)(i)); err != nil {
		return err
	}
	cred, err := decodeCredential(b)
	if err != nil {
		return fmt.Errorf("influxdb: %w", err)
	}
	i.Credential = cred
	return nil
}

// SQL configures one of the connection_url based SQL plugins.
type SQL struct {
	// Plugin is the plugin name, e.g. "postgresql-database-plugin".
	Plugin                string         `json:"-"`
	ConnectionURL         string         `json:"connection_url"`
	MaxOpenConnections    int            `json:"max_open_connections,omitempty"`
	MaxIdleConnections    int            `json:"max_idle_connections,omitempty"`
	MaxConnectionLifetime vault.Duration `json:"max_connection_lifetime,omitempty"`
	BasicCredential
}

// PluginName implements Backend.
func (s SQL) PluginName() string { return s.Plugin }

// MongoDB configures the mongodb-database-plugin.
type MongoDB struct {
	ConnectionURL string `json:"connection_url"`
	WriteConcern  string `json:"write_concern,omitempty"`
	BasicCredential
}

// PluginName implements Backend.
func (MongoDB) PluginName() string { return "mongodb" + pluginSuffix }

var backendFactories = map[string]func(plugin string) Backend{
	"cassandra":     func(string) Backend { return &Cassandra{} },
	"elasticsearch": func(string) Backend { return &Elasticsearch{} },
	"influxdb":      func(string) Backend { return &InfluxDB{} },
	"mongodb":       func(string) Backend { return &MongoDB{} },
	"mysql":         newSQL,
	"mysql-aurora":  newSQL,
	"mysql-rds":     newSQL,
	"mysql-legacy":  newSQL,
	"postgresql":    newSQL,
	"mssql":         newSQL,
	"hana":          newSQL,
	"redshift":      newSQL,
}

func newSQL(plugin string) Backend { return &SQL{Plugin: plugin} }

// newBackend returns an empty backend for plugin. Both the short name
// ("postgresql") and the full plugin name are accepted.
func newBackend(plugin string) (Backend, error) {
	factory, ok := backendFactories[strings.TrimSuffix(plugin, pluginSuffix)]
	if !ok {
		return nil, fmt.Errorf("unsupported database plugin %q", plugin)
	}
	return factory(plugin), nil
}

// SupportedPlugins returns the short names of the plugins backends exist for.
func SupportedPlugins() []string {
	names := make([]string, 0, len(backendFactories))
	for name := range backendFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
