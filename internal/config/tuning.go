package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Default values. config/tuning.defaults.json mirrors these.
const (
	DefaultDownAngleThreshold = 100.0
	DefaultUpAngleThreshold   = 160.0
	DefaultAlignmentThreshold = 165.0
	DefaultSecondaryThreshold = 170.0
	DefaultFormSide           = "right"
	DefaultAngleHistoryLength = 600
	DefaultFrameInterval      = 33 * time.Millisecond
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError reports a setting that must stop a session from
// starting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// TuningConfig is the session configuration. Every field is optional; the
// Get* accessors fall back to the defaults above, so partial files are safe.
type TuningConfig struct {
	// Repetition state machine (degrees)
	DownAngleThreshold *float64 `json:"down_angle_threshold,omitempty"`
	UpAngleThreshold   *float64 `json:"up_angle_threshold,omitempty"`

	// Form classification (degrees)
	AlignmentThreshold *float64 `json:"alignment_threshold,omitempty"`
	SecondaryThreshold *float64 `json:"secondary_threshold,omitempty"`
	CountOnlyGoodForm  *bool    `json:"count_only_good_form,omitempty"`
	FormSide           *string  `json:"form_side,omitempty"`      // "left" or "right"
	MinVisibility      *float64 `json:"min_visibility,omitempty"` // 0 disables the filter

	// Reporting
	AngleHistoryLength *int `json:"angle_history_length,omitempty"`

	// Frame source
	FrameInterval       *string  `json:"frame_interval,omitempty"` // duration string like "33ms"
	OracleStartCommands []string `json:"oracle_start_commands,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the compiled-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		DownAngleThreshold: ptrFloat64(DefaultDownAngleThreshold),
		UpAngleThreshold:   ptrFloat64(DefaultUpAngleThreshold),
		AlignmentThreshold: ptrFloat64(DefaultAlignmentThreshold),
		SecondaryThreshold: ptrFloat64(DefaultSecondaryThreshold),
		CountOnlyGoodForm:  ptrBool(false),
		FormSide:           ptrString(DefaultFormSide),
		MinVisibility:      ptrFloat64(0),
		AngleHistoryLength: ptrInt(DefaultAngleHistoryLength),
		FrameInterval:      ptrString(DefaultFrameInterval.String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and its parents.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/tools/angle-plot/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// ValidateThresholds checks the angle thresholds that drive the tracker:
// each in [0, 180] and down strictly below up.
func ValidateThresholds(down, up, alignment, secondary float64) error {
	for _, th := range []struct {
		field string
		v     float64
	}{
		{"down_angle_threshold", down},
		{"up_angle_threshold", up},
		{"alignment_threshold", alignment},
		{"secondary_threshold", secondary},
	} {
		// written as a negation so NaN fails too
		if !(th.v >= 0 && th.v <= 180) {
			return &ConfigurationError{Field: th.field, Reason: fmt.Sprintf("must be within [0, 180] degrees, got %g", th.v)}
		}
	}
	if !(down < up) {
		return &ConfigurationError{
			Field:  "down_angle_threshold",
			Reason: fmt.Sprintf("must be below up_angle_threshold (%g >= %g)", down, up),
		}
	}
	return nil
}

// Validate checks the effective values, defaults included, so a file that
// only raises down_angle_threshold past the default up threshold is
// rejected.
func (c *TuningConfig) Validate() error {
	if err := ValidateThresholds(c.GetDownAngleThreshold(), c.GetUpAngleThreshold(),
		c.GetAlignmentThreshold(), c.GetSecondaryThreshold()); err != nil {
		return err
	}

	if c.FormSide != nil && *c.FormSide != "left" && *c.FormSide != "right" {
		return &ConfigurationError{Field: "form_side", Reason: fmt.Sprintf("expected left or right, got %q", *c.FormSide)}
	}

	if c.MinVisibility != nil && !(*c.MinVisibility >= 0 && *c.MinVisibility <= 1) {
		return &ConfigurationError{Field: "min_visibility", Reason: fmt.Sprintf("must be within [0, 1], got %g", *c.MinVisibility)}
	}

	if c.AngleHistoryLength != nil && *c.AngleHistoryLength <= 0 {
		return &ConfigurationError{Field: "angle_history_length", Reason: fmt.Sprintf("must be positive, got %d", *c.AngleHistoryLength)}
	}

	if c.FrameInterval != nil && *c.FrameInterval != "" {
		d, err := time.ParseDuration(*c.FrameInterval)
		if err != nil {
			return &ConfigurationError{Field: "frame_interval", Reason: err.Error()}
		}
		if d <= 0 {
			return &ConfigurationError{Field: "frame_interval", Reason: fmt.Sprintf("must be positive, got %s", d)}
		}
	}
	return nil
}

// SetCountOnlyGoodForm overrides count_only_good_form, e.g. from a CLI flag.
func (c *TuningConfig) SetCountOnlyGoodForm(v bool) { c.CountOnlyGoodForm = ptrBool(v) }

// GetDownAngleThreshold returns the down_angle_threshold value or the default.
func (c *TuningConfig) GetDownAngleThreshold() float64 {
	if c.DownAngleThreshold == nil {
		return DefaultDownAngleThreshold
	}
	return *c.DownAngleThreshold
}

// GetUpAngleThreshold returns the up_angle_threshold value or the default.
func (c *TuningConfig) GetUpAngleThreshold() float64 {
	if c.UpAngleThreshold == nil {
		return DefaultUpAngleThreshold
	}
	return *c.UpAngleThreshold
}

// GetAlignmentThreshold returns the alignment_threshold value or the default.
func (c *TuningConfig) GetAlignmentThreshold() float64 {
	if c.AlignmentThreshold == nil {
		return DefaultAlignmentThreshold
	}
	return *c.AlignmentThreshold
}

// GetSecondaryThreshold returns the secondary_threshold value or the default.
func (c *TuningConfig) GetSecondaryThreshold() float64 {
	if c.SecondaryThreshold == nil {
		return DefaultSecondaryThreshold
	}
	return *c.SecondaryThreshold
}

// GetCountOnlyGoodForm returns the count_only_good_form value or the default.
func (c *TuningConfig) GetCountOnlyGoodForm() bool {
	if c.CountOnlyGoodForm == nil {
		return false // default: count every rep
	}
	return *c.CountOnlyGoodForm
}

// GetFormSide returns the form_side value or the default.
func (c *TuningConfig) GetFormSide() string {
	if c.FormSide == nil || *c.FormSide == "" {
		return DefaultFormSide
	}
	return *c.FormSide
}

// GetMinVisibility returns the min_visibility value or the default.
func (c *TuningConfig) GetMinVisibility() float64 {
	if c.MinVisibility == nil {
		return 0
	}
	return *c.MinVisibility
}

// GetAngleHistoryLength returns the angle_history_length value or the default.
func (c *TuningConfig) GetAngleHistoryLength() int {
	if c.AngleHistoryLength == nil {
		return DefaultAngleHistoryLength
	}
	return *c.AngleHistoryLength
}

// GetFrameInterval parses and returns the FrameInterval as a time.Duration.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return DefaultFrameInterval
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil || d <= 0 {
		return DefaultFrameInterval // default on parse error
	}
	return d
}

// GetOracleStartCommands returns the commands written to the pose oracle
// when the link comes up.
func (c *TuningConfig) GetOracleStartCommands() []string {
	return append([]string(nil), c.OracleStartCommands...)
}
