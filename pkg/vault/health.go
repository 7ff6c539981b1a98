package vault

import (
	"context"
	"fmt"
	"net/http"
)

// Status codes /sys/health uses to report node state. Each of them still
// carries a regular health document.
const (
	HealthStatusStandby            = 429
	HealthStatusDRSecondary        = 472
	HealthStatusPerformanceStandby = 473
	HealthStatusNotInitialized     = http.StatusNotImplemented
	HealthStatusSealed             = http.StatusServiceUnavailable
)

// HealthInfo represents the health document of a Vault node.
type HealthInfo struct {
	Initialized                bool   `json:"initialized"`
	Sealed                     bool   `json:"sealed"`
	Standby                    bool   `json:"standby"`
	PerformanceStandby         bool   `json:"performance_standby"`
	ReplicationPerformanceMode string `json:"replication_performance_mode"`
	ReplicationDRMode          string `json:"replication_dr_mode"`
	ServerTimeUTC              int64  `json:"server_time_utc"`
	Version                    string `json:"version"`
	ClusterName                string `json:"cluster_name,omitempty"`
	ClusterID                  string `json:"cluster_id,omitempty"`
}

func healthRequest() *Request {
	r := NewRequest(http.MethodGet, "sys", "health")
	r.accept = []int{
		HealthStatusStandby,
		HealthStatusDRSecondary,
		HealthStatusPerformanceStandby,
		HealthStatusNotInitialized,
		HealthStatusSealed,
	}
	return r
}

// Health queries the Vault health endpoint. Standby, sealed and
// uninitialised nodes are reported through the returned document, not as errors.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	var info HealthInfo
	if err := c.Send(ctx, healthRequest(), &info); err != nil {
		return nil, fmt.Errorf("failed to check health: %w", err)
	}
	return &info, nil
}
