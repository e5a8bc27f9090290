package monitoring

import "go.uber.org/zap"

// Streams splits one component's logging into three streams:
//
//   - ops: actionable warnings, errors, data loss
//   - diag: day-to-day diagnostics and tuning context
//   - trace: high-frequency per-frame telemetry
//
// The zero value discards everything.
type Streams struct {
	ops   func(string, ...interface{})
	diag  func(string, ...interface{})
	trace func(string, ...interface{})
}

// NewStreams binds the three streams to l, tagged with the component name.
// A nil logger yields muted streams.
func NewStreams(l *zap.Logger, component string) Streams {
	if l == nil {
		return Streams{}
	}
	s := l.With(zap.String("component", component)).Sugar()
	return Streams{
		ops:   s.Warnf,
		diag:  s.Infof,
		trace: s.Debugf,
	}
}

// Opsf logs to the ops stream.
func (s Streams) Opsf(format string, args ...interface{}) {
	if s.ops != nil {
		s.ops(format, args...)
	}
}

// Diagf logs to the diag stream.
func (s Streams) Diagf(format string, args ...interface{}) {
	if s.diag != nil {
		s.diag(format, args...)
	}
}

// Tracef logs to the trace stream.
func (s Streams) Tracef(format string, args ...interface{}) {
	if s.trace != nil {
		s.trace(format, args...)
	}
}
