package vault

import (
	"context"
	"fmt"
	"net/http"
)

// LeaderInfo describes the HA state as seen from the queried node.
type LeaderInfo struct {
	HAEnabled                       bool   `json:"ha_enabled"`
	IsSelf                          bool   `json:"is_self"`
	ActiveTime                      string `json:"active_time,omitempty"`
	LeaderAddress                   string `json:"leader_address"`
	LeaderClusterAddress            string `json:"leader_cluster_address"`
	PerformanceStandby              bool   `json:"performance_standby"`
	PerformanceStandbyLastRemoteWAL uint64 `json:"performance_standby_last_remote_wal"`
	RaftCommittedIndex              uint64 `json:"raft_committed_index,omitempty"`
	RaftAppliedIndex                uint64 `json:"raft_applied_index,omitempty"`
}

// Leader returns the HA leader information.
func (c *Client) Leader(ctx context.Context) (*LeaderInfo, error) {
	var info LeaderInfo
	if err := c.Send(ctx, NewRequest(http.MethodGet, "sys", "leader"), &info); err != nil {
		return nil, fmt.Errorf("failed to read leader: %w", err)
	}
	return &info, nil
}

// StepDown forces the active node to give up leadership.
func (c *Client) StepDown(ctx context.Context) error {
	if err := c.Send(ctx, NewRequest(http.MethodPut, "sys", "step-down"), nil); err != nil {
		return fmt.Errorf("failed to step down: %w", err)
	}
	return nil
}
