package motion

import (
	"fmt"

	"github.com/banshee-data/repcount/internal/geometry"
	"github.com/banshee-data/repcount/internal/pose"
)

// Exercise names the joint triples measured every frame. The primary angle
// is the mean over Primary, one triple per side, to smooth bilateral
// asymmetry and single-side tracking noise.
type Exercise struct {
	Name      string
	Primary   []geometry.Triple
	Alignment geometry.Triple
	Secondary geometry.Triple
}

// PushUpExercise measures both elbows for counting and the given side's
// shoulder-hip-ankle and hip-knee-ankle lines for form.
func PushUpExercise(side pose.Side) Exercise {
	return Exercise{
		Name: "push-up",
		Primary: []geometry.Triple{
			{A: pose.LeftShoulder, Vertex: pose.LeftElbow, C: pose.LeftWrist},
			{A: pose.RightShoulder, Vertex: pose.RightElbow, C: pose.RightWrist},
		},
		Alignment: geometry.Triple{A: side.Shoulder(), Vertex: side.Hip(), C: side.Ankle()},
		Secondary: geometry.Triple{A: side.Hip(), Vertex: side.Knee(), C: side.Ankle()},
	}
}

// Joints lists every joint the exercise needs, without duplicates.
func (e Exercise) Joints() []pose.Joint {
	seen := make(map[pose.Joint]bool)
	var out []pose.Joint
	add := func(t geometry.Triple) {
		for _, j := range t.Joints() {
			if !seen[j] {
				seen[j] = true
				out = append(out, j)
			}
		}
	}
	for _, t := range e.Primary {
		add(t)
	}
	add(e.Alignment)
	add(e.Secondary)
	return out
}

// Measure computes the frame's angles. Any missing joint or degenerate
// triple fails the whole frame; the error matches pose.ErrMissingJoint or
// geometry.ErrDegenerateGeometry.
func (e Exercise) Measure(s *pose.Snapshot) (Angles, error) {
	if len(e.Primary) == 0 {
		return Angles{}, fmt.Errorf("exercise %q has no primary angle", e.Name)
	}
	if err := s.Require(e.Joints()...); err != nil {
		return Angles{}, err
	}

	primaries := make([]float64, 0, len(e.Primary))
	for _, t := range e.Primary {
		a, err := geometry.JointAngle(s, t)
		if err != nil {
			return Angles{}, err
		}
		primaries = append(primaries, a)
	}
	alignment, err := geometry.JointAngle(s, e.Alignment)
	if err != nil {
		return Angles{}, err
	}
	secondary, err := geometry.JointAngle(s, e.Secondary)
	if err != nil {
		return Angles{}, err
	}
	return Angles{
		Primary:   geometry.MeanAngle(primaries...),
		Alignment: alignment,
		Secondary: secondary,
	}, nil
}
