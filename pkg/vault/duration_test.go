package vault

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		raw     interface{}
		want    time.Duration
		wantErr bool
	}{
		{name: "nil", raw: nil, want: 0},
		{name: "float seconds", raw: float64(90), want: 90 * time.Second},
		{name: "int seconds", raw: 30, want: 30 * time.Second},
		{name: "numeric string", raw: "3600", want: time.Hour},
		{name: "duration string", raw: "768h", want: 768 * time.Hour},
		{name: "empty string", raw: "", want: 0},
		{name: "garbage string", raw: "soon", wantErr: true},
		{name: "slice", raw: []string{"1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Duration())
		})
	}
}

func TestDurationJSON(t *testing.T) {
	var v struct {
		TTL Duration `json:"ttl"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"ttl": "1m30s"}`), &v))
	assert.Equal(t, int64(90), v.TTL.Seconds())

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ttl": 90}`, string(b))
}
