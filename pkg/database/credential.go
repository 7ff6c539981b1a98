package database

import (
	"encoding/json"
	"errors"
)

// Credential is how the plugin authenticates against the database. It is
// one of BasicCredential, PEMBundle or CertBundle, and its fields are
// flattened into the connection configuration.
type Credential interface {
	credential()
}

// BasicCredential is a username and password pair.
type BasicCredential struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// PEMBundle is a TLS client identity given as one PEM block or as the JSON
// output of a PKI issue call.
type PEMBundle struct {
	PEMBundle string `json:"pem_bundle,omitempty"`
	PEMJSON   string `json:"pem_json,omitempty"`
}

// CertBundle is a TLS client identity given as separate PEM fields.
type CertBundle struct {
	CACert        string `json:"ca_cert,omitempty"`
	ClientCert    string `json:"client_cert,omitempty"`
	ClientKey     string `json:"client_key,omitempty"`
	TLSServerName string `json:"tls_server_name,omitempty"`
	InsecureTLS   bool   `json:"insecure_tls,omitempty"`
}

func (BasicCredential) credential() {}
func (PEMBundle) credential()       {}
func (CertBundle) credential()      {}

// MarshalJSON writes the bundle with tls enabled, which is what selects it
// when the configuration is read back.
func (p PEMBundle) MarshalJSON() ([]byte, error) {
	type plain PEMBundle
	return json.Marshal(struct {
		TLS bool `json:"tls"`
		plain
	}{TLS: true, plain: plain(p)})
}

var errNoCredential = errors.New("no credential fields in connection details")

// decodeCredential picks the credential variant from the fields of a
// flattened document. A PEM bundle wins when tls is set or PEM fields are
// present, then separate certificate fields, then a username.
func decodeCredential(b []byte) (Credential, error) {
	var doc struct {
		TLS       *bool   `json:"tls"`
		Username  *string `json:"username"`
		Password  string  `json:"password"`
		PEMBundle
		CertBundle
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}

	hasPEM := doc.PEMBundle.PEMBundle != "" || doc.PEMJSON != ""
	tlsSet := doc.TLS != nil && *doc.TLS
	switch {
	case tlsSet || hasPEM:
		if doc.TLS != nil && !*doc.TLS {
			return nil, errors.New("pem bundle given with tls disabled")
		}
		return doc.PEMBundle, nil
	case doc.CACert != "" || doc.ClientCert != "" || doc.ClientKey != "":
		return doc.CertBundle, nil
	case doc.Username != nil:
		return BasicCredential{Username: *doc.Username, Password: doc.Password}, nil
	}
	return nil, errNoCredential
}

// flatten merges the JSON objects of docs into one object. Nil docs are skipped.
func flatten(docs ...interface{}) ([]byte, error) {
	merged := map[string]json.RawMessage{}
	for _, d := range docs {
		if d == nil {
			continue
		}
		b, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
