package pose

import "fmt"

// Joint names one anatomical landmark reported by the pose oracle.
type Joint int

const (
	Nose Joint = iota
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	jointCount
)

var jointNames = [jointCount]string{
	Nose:          "nose",
	LeftShoulder:  "left_shoulder",
	RightShoulder: "right_shoulder",
	LeftElbow:     "left_elbow",
	RightElbow:    "right_elbow",
	LeftWrist:     "left_wrist",
	RightWrist:    "right_wrist",
	LeftHip:       "left_hip",
	RightHip:      "right_hip",
	LeftKnee:      "left_knee",
	RightKnee:     "right_knee",
	LeftAnkle:     "left_ankle",
	RightAnkle:    "right_ankle",
}

var jointsByName = func() map[string]Joint {
	m := make(map[string]Joint, jointCount)
	for j, name := range jointNames {
		m[name] = Joint(j)
	}
	return m
}()

// String returns the wire name of the joint.
func (j Joint) String() string {
	if j < 0 || j >= jointCount {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// Valid reports whether j is one of the enumerated joints.
func (j Joint) Valid() bool { return j >= 0 && j < jointCount }

// ParseJoint maps a wire name to its Joint.
func ParseJoint(name string) (Joint, bool) {
	j, ok := jointsByName[name]
	return j, ok
}

// AllJoints lists every enumerated joint in declaration order.
func AllJoints() []Joint {
	out := make([]Joint, 0, jointCount)
	for j := Joint(0); j < jointCount; j++ {
		out = append(out, j)
	}
	return out
}

// Side selects the left or right half of the body.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide accepts "left" or "right".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideLeft, SideRight:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown body side %q: expected left or right", s)
}

func (s Side) pick(left, right Joint) Joint {
	if s == SideLeft {
		return left
	}
	return right
}

func (s Side) Shoulder() Joint { return s.pick(LeftShoulder, RightShoulder) }
func (s Side) Elbow() Joint    { return s.pick(LeftElbow, RightElbow) }
func (s Side) Wrist() Joint    { return s.pick(LeftWrist, RightWrist) }
func (s Side) Hip() Joint      { return s.pick(LeftHip, RightHip) }
func (s Side) Knee() Joint     { return s.pick(LeftKnee, RightKnee) }
func (s Side) Ankle() Joint    { return s.pick(LeftAnkle, RightAnkle) }
