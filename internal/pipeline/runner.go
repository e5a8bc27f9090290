// Package pipeline drives the per-frame loop: oracle lines in, decoded
// detections through the motion tracker, results out to the publish sinks.
//
// The Runner is the tracker's single writer. Everything else reads the
// tracker through its snapshot accessors or receives results via a sink.
package pipeline

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/repcount/internal/motion"
	"github.com/banshee-data/repcount/internal/pose"
	"github.com/banshee-data/repcount/internal/serialmux"
)

// FrameProcessor turns one detection into a result. *motion.Tracker
// satisfies it.
type FrameProcessor interface {
	Process(d pose.Detection) motion.Result
}

// PublishSink sends per-frame results to external consumers (SSE clients,
// recorders, overlays). Publish is called on the analysis goroutine and must
// not block.
type PublishSink interface {
	Publish(r motion.Result)
}

// SinkFunc adapts a function to PublishSink.
type SinkFunc func(motion.Result)

// Publish calls f(r).
func (f SinkFunc) Publish(r motion.Result) { f(r) }

// isNilInterface checks if an interface value is nil or contains a nil pointer.
func isNilInterface(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Counters are the loop's running totals.
type Counters struct {
	Lines        uint64 `json:"lines"`
	Frames       uint64 `json:"frames"`
	Skipped      uint64 `json:"skipped"`
	DecodeErrors uint64 `json:"decode_errors"`
	BlankLines   uint64 `json:"blank_lines"`
	CommentLines uint64 `json:"comment_lines"`
	StatusLines  uint64 `json:"status_lines"`
}

// Runner feeds oracle lines through a FrameProcessor.
type Runner struct {
	processor FrameProcessor

	sinksMu sync.RWMutex
	sinks   []PublishSink

	lines        atomic.Uint64
	frames       atomic.Uint64
	skipped      atomic.Uint64
	decodeErrors atomic.Uint64
	blankLines   atomic.Uint64
	commentLines atomic.Uint64
	statusLines  atomic.Uint64
}

// NewRunner builds a Runner around p. Nil sinks are ignored.
func NewRunner(p FrameProcessor, sinks ...PublishSink) *Runner {
	r := &Runner{processor: p}
	for _, s := range sinks {
		r.AddSink(s)
	}
	return r
}

// AddSink registers another consumer. Safe while Run is active.
func (r *Runner) AddSink(s PublishSink) {
	if isNilInterface(s) {
		return
	}
	r.sinksMu.Lock()
	r.sinks = append(r.sinks, s)
	r.sinksMu.Unlock()
}

// Run consumes lines until ctx is cancelled or lines is closed. Per-line
// failures are logged and counted, never returned. The error is ctx.Err()
// on cancellation and nil when the input ends.
func (r *Runner) Run(ctx context.Context, lines <-chan string) error {
	diagf("processing loop started")
	defer func() {
		c := r.Counters()
		diagf("processing loop stopped: %d lines, %d frames (%d skipped), %d decode errors",
			c.Lines, c.Frames, c.Skipped, c.DecodeErrors)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			r.HandleLine(line)
		}
	}
}

// HandleLine processes a single line synchronously. It reports whether the
// line produced a result. Blank lines, '#' comments (fixture headers) and
// oracle status lines are counted but never reach the processor.
func (r *Runner) HandleLine(line string) bool {
	r.lines.Add(1)
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		r.blankLines.Add(1)
		return false
	case strings.HasPrefix(trimmed, "#"):
		r.commentLines.Add(1)
		return false
	case serialmux.ClassifyPayload(trimmed) == serialmux.EventTypeStatus:
		r.statusLines.Add(1)
		tracef("oracle status line: %s", truncate(trimmed, 120))
		return false
	}

	d, err := pose.DecodeLine(line)
	if err != nil {
		n := r.decodeErrors.Add(1)
		opsf("dropping oracle line (%d so far): %v", n, err)
		tracef("undecodable line: %q", truncate(line, 120))
		return false
	}

	r.HandleDetection(d)
	return true
}

// HandleDetection runs one already decoded frame through the processor and
// publishes the result.
func (r *Runner) HandleDetection(d pose.Detection) motion.Result {
	res := r.processor.Process(d)
	r.frames.Add(1)
	if res.Skipped {
		r.skipped.Add(1)
	}

	r.sinksMu.RLock()
	sinks := r.sinks
	r.sinksMu.RUnlock()
	for _, s := range sinks {
		s.Publish(res)
	}
	return res
}

// Counters returns the running totals.
func (r *Runner) Counters() Counters {
	return Counters{
		Lines:        r.lines.Load(),
		Frames:       r.frames.Load(),
		Skipped:      r.skipped.Load(),
		DecodeErrors: r.decodeErrors.Load(),
		BlankLines:   r.blankLines.Load(),
		CommentLines: r.commentLines.Load(),
		StatusLines:  r.statusLines.Load(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
