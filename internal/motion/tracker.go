package motion

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/repcount/internal/geometry"
	"github.com/banshee-data/repcount/internal/pose"
	"github.com/banshee-data/repcount/internal/timeutil"
)

// Tracker owns one session's MotionState. Process and Update must be called
// from a single analysis goroutine. Reset, Snapshot, Stats, History and Config
// are safe from any goroutine and always see a whole frame's update.
type Tracker struct {
	cfg      Config
	exercise Exercise
	clock    timeutil.Clock

	mu        sync.RWMutex
	sessionID string
	startedAt time.Time
	state     State
	last      Result
	stats     SessionStats
	rep       repInProgress
	counted   repSamples
	history   *angleHistory
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock stamps frames that arrive without a timestamp from c.
func WithClock(c timeutil.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithExercise replaces the default push-up geometry.
func WithExercise(e Exercise) Option {
	return func(t *Tracker) { t.exercise = e }
}

// NewTracker validates cfg and starts a session. A configuration error is
// fatal: no tracker is returned.
func NewTracker(cfg Config, opts ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cannot start session: %w", err)
	}
	t := &Tracker{
		cfg:      cfg,
		exercise: PushUpExercise(cfg.FormSide),
		clock:    timeutil.RealClock{},
		history:  newAngleHistory(cfg.HistoryLength),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.startSession()
	return t, nil
}

// startSession resets every per-session field. Caller holds mu or owns t
// exclusively.
func (t *Tracker) startSession() {
	t.sessionID = uuid.NewString()
	t.startedAt = t.clock.Now()
	t.state = InitialState()
	t.rep = repInProgress{}
	t.counted = repSamples{}
	t.history.reset()
	t.stats = SessionStats{
		SessionID:     t.sessionID,
		StartedAt:     t.startedAt,
		SkippedFrames: make(map[SkipReason]int),
		FormFrames:    make(map[FormStatus]int),
	}
	t.last = Result{
		SessionID:  t.sessionID,
		Timestamp:  t.startedAt,
		Stage:      t.state.Stage,
		FormStatus: t.state.FormStatus,
		FormLabel:  t.state.FormStatus.Label(),
	}
	diagf("session %s started (%s, down<%.0f up>%.0f alignment>=%.0f secondary>=%.0f count_only_good_form=%v)",
		t.sessionID, t.exercise.Name, t.cfg.DownAngleThreshold, t.cfg.UpAngleThreshold,
		t.cfg.AlignmentThreshold, t.cfg.SecondaryThreshold, t.cfg.CountOnlyGoodForm)
}

// Reset discards the session and starts a new one with the same config.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.sessionID
	t.startSession()
	diagf("session %s replaced by %s", prev, t.sessionID)
}

// Process analyses one oracle frame. It never fails: frames without a
// person, with missing joints or with degenerate geometry are skipped and
// the returned record repeats the last known state.
func (t *Tracker) Process(d pose.Detection) Result {
	if !d.Found() {
		return t.skip(d.Frame, d.Timestamp, SkipNoDetection, nil)
	}

	snap := d.Snapshot.FilterVisibility(t.cfg.MinVisibility)
	angles, err := t.exercise.Measure(snap)
	if err != nil {
		return t.skip(d.Frame, d.Timestamp, skipReasonFor(err), err)
	}
	return t.Update(d.Frame, d.Timestamp, angles)
}

// Update applies already measured angles. Non-finite or out-of-range angles
// are skipped as invalid measurements.
func (t *Tracker) Update(frame int64, ts time.Time, a Angles) Result {
	if !validAngle(a.Primary) || !validAngle(a.Alignment) || !validAngle(a.Secondary) {
		return t.skip(frame, ts, SkipInvalidMeasurement, fmt.Errorf("angles out of range: %+v", a))
	}
	if ts.IsZero() {
		ts = t.clock.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next, tr := Step(t.state, a, t.cfg)

	switch tr {
	case TransitionDown:
		t.rep.begin(frame, ts, a, next.FormStatus)
	case TransitionRep, TransitionRejected:
		t.rep.observe(a, next.FormStatus)
		rec := t.rep.finish(frame, ts, tr == TransitionRep, next.RepetitionCount, next.FormStatus)
		t.stats.appendRepRecord(rec)
		if tr == TransitionRep {
			t.counted.add(rec)
			diagf("rep %d counted: depth %.1f°, %.2fs, form %s", rec.Number, rec.DepthAngle, rec.DurationSeconds, rec.FormAtTop)
		} else {
			t.stats.RejectedReps++
			diagf("rep rejected for form %s: depth %.1f°, count stays %d", rec.FormAtTop, rec.DepthAngle, next.RepetitionCount)
		}
	default:
		t.rep.observe(a, next.FormStatus)
	}

	t.state = next
	t.stats.Frames++
	t.stats.AnalysedFrames++
	t.stats.FormFrames[next.FormStatus]++
	t.stats.RepetitionCount = next.RepetitionCount
	t.history.add(AngleSample{
		Frame:      frame,
		Timestamp:  ts,
		Angles:     a,
		Stage:      next.Stage,
		FormStatus: next.FormStatus,
		Transition: tr,
	})

	t.last = Result{
		SessionID:       t.sessionID,
		Frame:           frame,
		Timestamp:       ts,
		RepetitionCount: next.RepetitionCount,
		Stage:           next.Stage,
		FormStatus:      next.FormStatus,
		FormLabel:       next.FormStatus.Label(),
		PrimaryAngle:    a.Primary,
		AlignmentAngle:  a.Alignment,
		SecondaryAngle:  a.Secondary,
		Transition:      tr,
	}
	tracef("frame %d: primary %.1f° alignment %.1f° secondary %.1f° -> %s %s reps=%d",
		frame, a.Primary, a.Alignment, a.Secondary, next.Stage, next.FormStatus, next.RepetitionCount)
	return t.last
}

// skip records a frame that cannot move the state machine.
func (t *Tracker) skip(frame int64, ts time.Time, reason SkipReason, cause error) Result {
	if ts.IsZero() {
		ts = t.clock.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Frames++
	t.stats.SkippedFrames[reason]++

	r := t.last
	r.Frame = frame
	r.Timestamp = ts
	r.Transition = TransitionNone
	r.Skipped = true
	r.SkipReason = reason

	if reason == SkipInvalidMeasurement {
		opsf("frame %d skipped: %v", frame, cause)
	} else if cause != nil {
		tracef("frame %d skipped (%s): %v", frame, reason, cause)
	} else {
		tracef("frame %d skipped (%s)", frame, reason)
	}
	return r
}

func skipReasonFor(err error) SkipReason {
	switch {
	case errors.Is(err, pose.ErrMissingJoint):
		return SkipMissingJoint
	case errors.Is(err, geometry.ErrDegenerateGeometry):
		return SkipDegenerateGeometry
	default:
		return SkipInvalidMeasurement
	}
}

func validAngle(a float64) bool {
	return !math.IsNaN(a) && a >= 0 && a <= 180
}

// Snapshot returns the most recent per-frame record.
func (t *Tracker) Snapshot() Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// State returns the current MotionState.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Stats returns a deep copy of the session statistics with derived fields
// filled in.
func (t *Tracker) Stats() SessionStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.stats
	s.SkippedFrames = make(map[SkipReason]int, len(t.stats.SkippedFrames))
	for k, v := range t.stats.SkippedFrames {
		s.SkippedFrames[k] = v
	}
	s.FormFrames = make(map[FormStatus]int, len(t.stats.FormFrames))
	for k, v := range t.stats.FormFrames {
		s.FormFrames[k] = v
	}
	s.Reps = append([]RepRecord(nil), t.stats.Reps...)
	s.summarise(t.clock.Since(t.startedAt), &t.counted)
	return s
}

// History returns the recent analysed frames, oldest first.
func (t *Tracker) History() []AngleSample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.history.samples()
}

// SessionID identifies the current session.
func (t *Tracker) SessionID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionID
}

// Config returns the tracker's configuration.
func (t *Tracker) Config() Config { return t.cfg }

// Exercise returns the geometry being measured.
func (t *Tracker) Exercise() Exercise { return t.exercise }
