package vault

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	apiVersion = "v1"

	// MethodList is the non-standard verb Vault uses for key listings.
	MethodList = "LIST"

	headerToken     = "X-Vault-Token"
	headerNamespace = "X-Vault-Namespace"
	headerRequest   = "X-Vault-Request"
)

// Request describes a single call against the Vault HTTP API.
//
// Path is relative to the versioned API root, so "sys/health" ends up as
// "<address>/v1/sys/health". Body is encoded as JSON when non-nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}

	// accept lists extra status codes that carry a decodable body.
	accept []int
	// err is set when the path segments were rejected; Send returns it.
	err error
}

// ErrInvalidPath is returned for path arguments containing "." or ".." segments.
var ErrInvalidPath = errors.New("invalid path")

// NewRequest returns a Request for the given method and path segments.
func NewRequest(method string, segments ...string) *Request {
	path, err := joinPath(segments...)
	return &Request{
		Method: method,
		Path:   path,
		err:    err,
	}
}

// WithBody sets the JSON body of the request.
func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

// WithQuery adds a query parameter to the request.
func (r *Request) WithQuery(key, value string) *Request {
	if r.Query == nil {
		r.Query = url.Values{}
	}
	r.Query.Add(key, value)
	return r
}

func (r *Request) accepts(code int) bool {
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return true
	}
	for _, c := range r.accept {
		if c == code {
			return true
		}
	}
	return false
}

// joinPath joins API path segments with "/", dropping empty pieces and
// escaping each element so lease ids and mount paths survive intact. Dot
// segments are rejected since they would move the request to another endpoint.
func joinPath(segments ...string) (string, error) {
	var parts []string
	for _, s := range segments {
		for _, p := range strings.Split(s, "/") {
			switch p {
			case "":
				continue
			case ".", "..":
				return "", fmt.Errorf("%w: %q contains a %q segment", ErrInvalidPath, s, p)
			}
			parts = append(parts, url.PathEscape(p))
		}
	}
	return strings.Join(parts, "/"), nil
}

// checkPath validates a single path argument named name: it must be non-empty
// and free of dot segments.
func checkPath(name, path string) error {
	joined, err := joinPath(path)
	if err != nil {
		return err
	}
	if joined == "" {
		return missing(name)
	}
	return nil
}
