package serialmux

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

const (
	EventTypePoseFrame = "pose_frame"
	EventTypeStatus    = "status"
	EventTypeUnknown   = "unknown"
)

// ClassifyPayload inspects an oracle line and returns a simple event type
// token. Frame lines carry "frame" or "joints"; status lines are JSON
// objects with a top-level "status" key.
func ClassifyPayload(payload string) string {
	p := strings.TrimSpace(payload)
	if !strings.HasPrefix(p, "{") {
		return EventTypeUnknown
	}
	if strings.Contains(p, `"status"`) && !strings.Contains(p, `"joints"`) {
		return EventTypeStatus
	}
	if strings.Contains(p, `"frame"`) || strings.Contains(p, `"joints"`) || strings.Contains(p, `"detected"`) {
		return EventTypePoseFrame
	}
	return EventTypeUnknown
}

// OracleStatus holds the latest values the oracle reported about itself
// (model, fps, camera) from {"status": {...}} lines.
type OracleStatus struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewOracleStatus() *OracleStatus {
	return &OracleStatus{values: make(map[string]any)}
}

// HandleLine merges a status line into the current values. Other line types
// are ignored.
func (o *OracleStatus) HandleLine(payload string) error {
	if ClassifyPayload(payload) != EventTypeStatus {
		return nil
	}
	var msg struct {
		Status map[string]any `json:"status"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal status line: %w", err)
	}

	o.mu.Lock()
	for k, v := range msg.Status {
		o.values[k] = v
	}
	o.mu.Unlock()
	diagf("oracle status: %s", strings.TrimSpace(payload))
	return nil
}

// Snapshot returns a copy of the current values.
func (o *OracleStatus) Snapshot() map[string]any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}

// oracleStatusHandler serves the status, line counters and whether an oracle
// is attached at all.
func oracleStatusHandler(enabled bool, status *OracleStatus, counts func() (read, dropped uint64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		read, dropped := counts()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"enabled":       enabled,
			"status":        status.Snapshot(),
			"lines_read":    read,
			"lines_dropped": dropped,
		})
	}
}
