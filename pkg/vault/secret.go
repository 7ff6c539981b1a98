package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Secret is the envelope Vault wraps most logical responses in.
type Secret struct {
	RequestID     string          `json:"request_id"`
	LeaseID       string          `json:"lease_id"`
	LeaseDuration int             `json:"lease_duration"`
	Renewable     bool            `json:"renewable"`
	Data          json.RawMessage `json:"data"`
	Warnings      []string        `json:"warnings"`
}

// TTL returns the lease duration of the secret.
func (s *Secret) TTL() time.Duration {
	return time.Duration(s.LeaseDuration) * time.Second
}

// DecodeData decodes the data object of the envelope into out.
func (s *Secret) DecodeData(out interface{}) error {
	if len(s.Data) == 0 || string(s.Data) == "null" {
		return errors.New("response carries no data")
	}
	if err := json.Unmarshal(s.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// sendDataOrBody decodes the envelope's data when present and the whole body
// otherwise. Some sys endpoints answer with both shapes depending on version.
func (c *Client) sendDataOrBody(ctx context.Context, r *Request, out interface{}) error {
	var body json.RawMessage
	if err := c.Send(ctx, r, &body); err != nil {
		return err
	}
	return json.Unmarshal(dataOrBody(body), out)
}

func dataOrBody(body json.RawMessage) json.RawMessage {
	var secret Secret
	if err := json.Unmarshal(body, &secret); err == nil && isObject(secret.Data) {
		return secret.Data
	}
	return body
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
