package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrMissingArgument is returned by request builders when a required value is empty.
var ErrMissingArgument = errors.New("missing required argument")

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingArgument, name)
}

// ResponseError represents a Vault API error with status code and details
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Errors     []string // From the "errors" array of the response body
	RawBody    string   // Body as received when it was not a Vault error document
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vault api error (status %d): %s %s", e.StatusCode, e.Method, e.URL)
	switch {
	case len(e.Errors) > 0:
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Errors, "; "))
	case e.RawBody != "":
		b.WriteString(": ")
		b.WriteString(e.RawBody)
	}
	return b.String()
}

// AsResponseError checks if an error is a ResponseError and returns it
func AsResponseError(err error) (*ResponseError, bool) {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 answer from Vault.
func IsNotFound(err error) bool {
	respErr, ok := AsResponseError(err)
	return ok && respErr.StatusCode == http.StatusNotFound
}

func newResponseError(req *http.Request, resp *http.Response) *ResponseError {
	respErr := &ResponseError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return respErr
	}

	var doc struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && doc.Errors != nil {
		respErr.Errors = doc.Errors
		return respErr
	}

	respErr.RawBody = strings.TrimSpace(string(body))
	return respErr
}
