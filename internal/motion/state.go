package motion

import "time"

// Stage is the position in the repetition cycle.
type Stage string

const (
	StageUp   Stage = "UP"
	StageDown Stage = "DOWN"
)

// FormStatus is the per-frame posture classification.
type FormStatus string

const (
	FormGood         FormStatus = "GOOD"
	FormBadPrimary   FormStatus = "BAD_PRIMARY"   // body line broken, e.g. sagging hips
	FormBadSecondary FormStatus = "BAD_SECONDARY" // secondary joint bent, e.g. knees
	FormUnknown      FormStatus = "UNKNOWN"
)

// Label is the operator-facing text for the push-up overlay.
func (f FormStatus) Label() string {
	switch f {
	case FormGood:
		return "GOOD FORM"
	case FormBadPrimary:
		return "BAD FORM (HIPS)"
	case FormBadSecondary:
		return "BAD FORM (KNEES)"
	default:
		return "UNKNOWN"
	}
}

// Transition records what Step did to the repetition state machine.
type Transition string

const (
	TransitionNone     Transition = ""
	TransitionDown     Transition = "down"     // UP -> DOWN
	TransitionRep      Transition = "rep"      // DOWN -> UP, counted
	TransitionRejected Transition = "rejected" // DOWN -> UP, not counted because of form
)

// SkipReason says why a frame left the state untouched.
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipNoDetection        SkipReason = "no_detection"
	SkipMissingJoint       SkipReason = "missing_joint"
	SkipDegenerateGeometry SkipReason = "degenerate_geometry"
	SkipInvalidMeasurement SkipReason = "invalid_measurement"
)

// State is the only data carried from one frame to the next.
type State struct {
	RepetitionCount int        `json:"repetition_count"`
	Stage           Stage      `json:"stage"`
	FormStatus      FormStatus `json:"form_status"`
}

// InitialState is the state every session starts in.
func InitialState() State {
	return State{RepetitionCount: 0, Stage: StageUp, FormStatus: FormGood}
}

// Angles are one frame's measurements, in degrees.
type Angles struct {
	Primary   float64 `json:"primary"`
	Alignment float64 `json:"alignment"`
	Secondary float64 `json:"secondary"`
}

// Result is the per-frame record handed to reporting collaborators. Skipped
// frames repeat the last analysed frame's state and angles.
type Result struct {
	SessionID       string     `json:"session_id"`
	Frame           int64      `json:"frame"`
	Timestamp       time.Time  `json:"timestamp"`
	RepetitionCount int        `json:"repetition_count"`
	Stage           Stage      `json:"stage"`
	FormStatus      FormStatus `json:"form_status"`
	FormLabel       string     `json:"form_label"`
	PrimaryAngle    float64    `json:"primary_angle"`
	AlignmentAngle  float64    `json:"alignment_angle"`
	SecondaryAngle  float64    `json:"secondary_angle"`
	Transition      Transition `json:"transition,omitempty"`
	Skipped         bool       `json:"skipped"`
	SkipReason      SkipReason `json:"skip_reason,omitempty"`
}

// State extracts the MotionState portion of the record.
func (r Result) State() State {
	return State{RepetitionCount: r.RepetitionCount, Stage: r.Stage, FormStatus: r.FormStatus}
}
