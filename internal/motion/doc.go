// Package motion owns the per-session motion state: repetition counting,
// stage tracking and form classification.
//
// Responsibilities: turning one frame's joint angles into the next
// MotionState (Step), classifying form by precedence (ClassifyForm),
// measuring an exercise's angles from a pose snapshot (Exercise), and
// holding the session behind a single-writer Tracker that readers can
// snapshot consistently.
// Key types: State, Result, Tracker, Exercise, SessionStats.
//
// Per-frame failures (no detection, missing joint, degenerate geometry)
// never change State and never surface as errors from Tracker.Process.
// Only configuration errors are returned, and only from NewTracker.
package motion
