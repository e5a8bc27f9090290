package api

import (
	"go.uber.org/zap"

	"github.com/banshee-data/repcount/internal/monitoring"
)

var streams monitoring.Streams

// SetLogger configures the api package's log streams. Pass nil to mute.
func SetLogger(l *zap.Logger) {
	streams = monitoring.NewStreams(l, "api")
}

// opsf logs to the ops stream (actionable warnings, unexpected errors).
func opsf(format string, args ...interface{}) { streams.Opsf(format, args...) }

// diagf logs to the diag stream (server lifecycle, client connects).
func diagf(format string, args ...interface{}) { streams.Diagf(format, args...) }

// tracef logs to the trace stream (per-event telemetry).
func tracef(format string, args ...interface{}) { streams.Tracef(format, args...) }

// DO NOT add Debugf, that's an anti-pattern. Each callsite needs to use opsf, diagf, or tracef.
