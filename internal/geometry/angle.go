// Package geometry computes interior joint angles from 2D joint positions.
//
// Every function here is pure: no state, no logging, no clock.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/repcount/internal/pose"
)

// ErrDegenerateGeometry matches every *DegenerateGeometryError via errors.Is.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// minArmLength is the shortest vertex-to-neighbour distance, in normalised
// frame units, for which the angle is considered defined.
const minArmLength = 1e-9

// DegenerateGeometryError reports a triple for which no angle exists: a
// neighbour coincides with the vertex, or a coordinate is not finite.
type DegenerateGeometryError struct {
	A, B, C r2.Vec
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry: angle undefined at vertex (%g, %g) for a=(%g, %g) c=(%g, %g)",
		e.B.X, e.B.Y, e.A.X, e.A.Y, e.C.X, e.C.Y)
}

func (e *DegenerateGeometryError) Is(target error) bool { return target == ErrDegenerateGeometry }

// AngleDegrees returns the interior angle abc in degrees, in [0, 180], with b
// as the vertex. It never returns a sentinel: undefined angles come back as a
// *DegenerateGeometryError.
func AngleDegrees(a, b, c r2.Vec) (float64, error) {
	if !finite(a) || !finite(b) || !finite(c) {
		return 0, &DegenerateGeometryError{A: a, B: b, C: c}
	}
	ba := r2.Sub(a, b)
	bc := r2.Sub(c, b)
	if r2.Norm(ba) < minArmLength || r2.Norm(bc) < minArmLength {
		return 0, &DegenerateGeometryError{A: a, B: b, C: c}
	}

	radians := math.Atan2(bc.Y, bc.X) - math.Atan2(ba.Y, ba.X)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180.0 {
		angle = 360.0 - angle
	}
	return angle, nil
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Triple names the three joints of an angle; Vertex is where it is measured.
type Triple struct {
	A      pose.Joint
	Vertex pose.Joint
	C      pose.Joint
}

func (t Triple) String() string {
	return fmt.Sprintf("%s-%s-%s", t.A, t.Vertex, t.C)
}

// Joints lists the triple's joints in order.
func (t Triple) Joints() []pose.Joint { return []pose.Joint{t.A, t.Vertex, t.C} }

// JointAngle resolves t against the snapshot and measures it. A missing joint
// yields a *pose.MissingJointError; coincident joints a
// *DegenerateGeometryError.
func JointAngle(s *pose.Snapshot, t Triple) (float64, error) {
	a, err := s.Position(t.A)
	if err != nil {
		return 0, err
	}
	b, err := s.Position(t.Vertex)
	if err != nil {
		return 0, err
	}
	c, err := s.Position(t.C)
	if err != nil {
		return 0, err
	}
	angle, err := AngleDegrees(a.Vec(), b.Vec(), c.Vec())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", t, err)
	}
	return angle, nil
}

// MeanAngle averages bilateral measurements of the same angle.
func MeanAngle(angles ...float64) float64 {
	if len(angles) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, a := range angles {
		sum += a
	}
	return sum / float64(len(angles))
}
