package pose

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrMissingJoint matches every *MissingJointError via errors.Is.
var ErrMissingJoint = errors.New("missing joint")

// MissingJointError reports a joint that an angle computation needed but the
// snapshot did not carry, or carried with non-finite coordinates.
type MissingJointError struct {
	Joint Joint
}

func (e *MissingJointError) Error() string {
	return fmt.Sprintf("missing joint %s", e.Joint)
}

func (e *MissingJointError) Is(target error) bool { return target == ErrMissingJoint }

// Position is one joint in normalised frame space ([0,1]x[0,1], origin top
// left). Z is carried through from 3D-capable oracles but never used for
// angles. Visibility is the oracle's confidence in [0,1]; 1 when the oracle
// does not report one.
type Position struct {
	X          float64
	Y          float64
	Z          float64
	Visibility float64
}

// Vec returns the 2D projection used for angle math.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Finite reports whether both planar coordinates are usable.
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Snapshot holds every joint the oracle reported for one frame.
type Snapshot struct {
	Frame     int64
	Timestamp time.Time
	Joints    map[Joint]Position
}

// NewSnapshot returns an empty snapshot for the given frame.
func NewSnapshot(frame int64, ts time.Time) *Snapshot {
	return &Snapshot{
		Frame:     frame,
		Timestamp: ts,
		Joints:    make(map[Joint]Position),
	}
}

// Set records a joint position with full visibility.
func (s *Snapshot) Set(j Joint, x, y float64) *Snapshot {
	s.Joints[j] = Position{X: x, Y: y, Visibility: 1}
	return s
}

// Position returns the joint's position, or a *MissingJointError when it is
// absent or non-finite.
func (s *Snapshot) Position(j Joint) (Position, error) {
	if s == nil {
		return Position{}, &MissingJointError{Joint: j}
	}
	p, ok := s.Joints[j]
	if !ok || !p.Finite() {
		return Position{}, &MissingJointError{Joint: j}
	}
	return p, nil
}

// Require checks that every listed joint is present and finite, returning the
// first one that is not.
func (s *Snapshot) Require(joints ...Joint) error {
	for _, j := range joints {
		if _, err := s.Position(j); err != nil {
			return err
		}
	}
	return nil
}

// FilterVisibility returns a copy without the joints whose visibility is
// below min. A min of zero or less returns s unchanged.
func (s *Snapshot) FilterVisibility(min float64) *Snapshot {
	if s == nil || min <= 0 {
		return s
	}
	out := NewSnapshot(s.Frame, s.Timestamp)
	for j, p := range s.Joints {
		if p.Visibility >= min {
			out.Joints[j] = p
		}
	}
	return out
}

// Detection is the oracle's verdict for one frame: either a snapshot or an
// explicit "no person detected".
type Detection struct {
	Frame     int64
	Timestamp time.Time
	Snapshot  *Snapshot
}

// Detected wraps a snapshot.
func Detected(s *Snapshot) Detection {
	return Detection{Frame: s.Frame, Timestamp: s.Timestamp, Snapshot: s}
}

// NotDetected is the "no person in frame" signal.
func NotDetected(frame int64, ts time.Time) Detection {
	return Detection{Frame: frame, Timestamp: ts}
}

// Found reports whether the oracle saw a person this frame.
func (d Detection) Found() bool { return d.Snapshot != nil }
