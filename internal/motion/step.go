package motion

import (
	"fmt"

	"github.com/banshee-data/repcount/internal/config"
	"github.com/banshee-data/repcount/internal/pose"
)

// Config holds the session's static thresholds and policies.
type Config struct {
	DownAngleThreshold float64 // primary below this enters DOWN
	UpAngleThreshold   float64 // primary above this while DOWN completes a rep
	AlignmentThreshold float64 // alignment below this is BAD_PRIMARY
	SecondaryThreshold float64 // secondary below this is BAD_SECONDARY
	CountOnlyGoodForm  bool    // completed reps only count when form is GOOD

	FormSide      pose.Side // side whose alignment/secondary angles are checked
	MinVisibility float64   // joints below this oracle visibility count as missing
	HistoryLength int       // analysed frames kept for charts
}

// DefaultConfig returns the compiled-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		DownAngleThreshold: cfg.GetDownAngleThreshold(),
		UpAngleThreshold:   cfg.GetUpAngleThreshold(),
		AlignmentThreshold: cfg.GetAlignmentThreshold(),
		SecondaryThreshold: cfg.GetSecondaryThreshold(),
		CountOnlyGoodForm:  cfg.GetCountOnlyGoodForm(),
		FormSide:           pose.Side(cfg.GetFormSide()),
		MinVisibility:      cfg.GetMinVisibility(),
		HistoryLength:      cfg.GetAngleHistoryLength(),
	}
}

// Validate returns a *config.ConfigurationError for settings a session
// cannot start with.
func (c Config) Validate() error {
	if err := config.ValidateThresholds(c.DownAngleThreshold, c.UpAngleThreshold,
		c.AlignmentThreshold, c.SecondaryThreshold); err != nil {
		return err
	}
	if c.FormSide != pose.SideLeft && c.FormSide != pose.SideRight {
		return &config.ConfigurationError{Field: "form_side", Reason: fmt.Sprintf("expected left or right, got %q", c.FormSide)}
	}
	if !(c.MinVisibility >= 0 && c.MinVisibility <= 1) {
		return &config.ConfigurationError{Field: "min_visibility", Reason: fmt.Sprintf("must be within [0, 1], got %g", c.MinVisibility)}
	}
	if c.HistoryLength <= 0 {
		return &config.ConfigurationError{Field: "angle_history_length", Reason: fmt.Sprintf("must be positive, got %d", c.HistoryLength)}
	}
	return nil
}

// ClassifyForm applies the form checks in precedence order; the first
// failing check wins, so a broken body line masks bent knees.
func ClassifyForm(alignment, secondary float64, c Config) FormStatus {
	switch {
	case alignment < c.AlignmentThreshold:
		return FormBadPrimary
	case secondary < c.SecondaryThreshold:
		return FormBadSecondary
	default:
		return FormGood
	}
}

// Step advances the state by one analysed frame. Form is classified first so
// that CountOnlyGoodForm judges the frame that completes the rep.
//
// Between the two thresholds nothing moves: that band is what stops noisy
// angles near a single boundary from double counting.
func Step(s State, a Angles, c Config) (State, Transition) {
	next := s
	next.FormStatus = ClassifyForm(a.Alignment, a.Secondary, c)

	tr := TransitionNone
	if a.Primary < c.DownAngleThreshold {
		if next.Stage != StageDown {
			tr = TransitionDown
		}
		next.Stage = StageDown
	}
	if a.Primary > c.UpAngleThreshold && next.Stage == StageDown {
		next.Stage = StageUp
		if !c.CountOnlyGoodForm || next.FormStatus == FormGood {
			next.RepetitionCount++
			tr = TransitionRep
		} else {
			tr = TransitionRejected
		}
	}
	return next, tr
}
