package pipeline

import (
	"go.uber.org/zap"

	"github.com/banshee-data/repcount/internal/monitoring"
)

var streams monitoring.Streams

// SetLogger configures the pipeline package's log streams. Pass nil to mute.
func SetLogger(l *zap.Logger) {
	streams = monitoring.NewStreams(l, "pipeline")
}

// opsf logs to the ops stream (actionable warnings, unexpected errors).
func opsf(format string, args ...interface{}) { streams.Opsf(format, args...) }

// diagf logs to the diag stream (loop start and stop, decode summaries).
func diagf(format string, args ...interface{}) { streams.Diagf(format, args...) }

// tracef logs to the trace stream (per-line telemetry).
func tracef(format string, args ...interface{}) { streams.Tracef(format, args...) }

// DO NOT add Debugf, that's an anti-pattern. Each callsite needs to use opsf, diagf, or tracef.
