package motion

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/repcount/internal/config"
	"github.com/banshee-data/repcount/internal/pose"
)

// good holds form angles comfortably above both form thresholds.
func good(primary float64) Angles {
	return Angles{Primary: primary, Alignment: 178, Secondary: 179}
}

func run(t *testing.T, cfg Config, s State, primaries ...float64) (State, []Transition) {
	t.Helper()
	var trs []Transition
	for _, p := range primaries {
		var tr Transition
		s, tr = Step(s, good(p), cfg)
		trs = append(trs, tr)
	}
	return s, trs
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 100.0, cfg.DownAngleThreshold)
	assert.Equal(t, 160.0, cfg.UpAngleThreshold)
	assert.Equal(t, 165.0, cfg.AlignmentThreshold)
	assert.Equal(t, 170.0, cfg.SecondaryThreshold)
	assert.False(t, cfg.CountOnlyGoodForm)
	assert.Equal(t, pose.SideRight, cfg.FormSide)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	for name, mutate := range map[string]func(*Config){
		"down equals up":      func(c *Config) { c.DownAngleThreshold = c.UpAngleThreshold },
		"down above up":       func(c *Config) { c.DownAngleThreshold, c.UpAngleThreshold = 150, 120 },
		"up above 180":        func(c *Config) { c.UpAngleThreshold = 190 },
		"negative down":       func(c *Config) { c.DownAngleThreshold = -5 },
		"alignment above 180": func(c *Config) { c.AlignmentThreshold = 181 },
		"unknown side":        func(c *Config) { c.FormSide = "both" },
		"visibility above 1":  func(c *Config) { c.MinVisibility = 2 },
		"no history":          func(c *Config) { c.HistoryLength = 0 },
	} {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrConfiguration)

			tr, err := NewTracker(cfg)
			assert.Nil(t, tr, "a tracker must not initialise with a bad config")
			assert.ErrorIs(t, err, config.ErrConfiguration)
		})
	}
}

func TestClassifyForm_Precedence(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	tests := []struct {
		name                 string
		alignment, secondary float64
		want                 FormStatus
	}{
		{"primary fault masks passing secondary", 150, 175, FormBadPrimary},
		{"primary fault masks failing secondary", 150, 120, FormBadPrimary},
		{"secondary fault", 170, 160, FormBadSecondary},
		{"good", 170, 175, FormGood},
		{"thresholds are inclusive for good", 165, 170, FormGood},
		{"just below alignment", 164.999, 180, FormBadPrimary},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ClassifyForm(tc.alignment, tc.secondary, cfg))
		})
	}
}

func TestStep_OneRep(t *testing.T) {
	t.Parallel()

	s, trs := run(t, DefaultConfig(), InitialState(), 170, 90, 170)
	assert.Equal(t, 1, s.RepetitionCount)
	assert.Equal(t, StageUp, s.Stage)
	assert.Equal(t, []Transition{TransitionNone, TransitionDown, TransitionRep}, trs)
}

func TestStep_DownIsIdempotent(t *testing.T) {
	t.Parallel()

	s, trs := run(t, DefaultConfig(), InitialState(), 170, 90, 95, 170)
	assert.Equal(t, 1, s.RepetitionCount, "re-entering DOWN must not count twice")
	assert.Equal(t, []Transition{TransitionNone, TransitionDown, TransitionNone, TransitionRep}, trs)

	s, _ = run(t, DefaultConfig(), InitialState(), 170, 90, 130, 80, 140, 99, 165)
	assert.Equal(t, 1, s.RepetitionCount, "dead-zone wobble while DOWN is one rep")
}

func TestStep_DeadZoneIsInert(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(42))
	for _, start := range []State{
		InitialState(),
		{RepetitionCount: 4, Stage: StageDown, FormStatus: FormGood},
	} {
		s := start
		for i := 0; i < 2000; i++ {
			p := cfg.DownAngleThreshold + rng.Float64()*(cfg.UpAngleThreshold-cfg.DownAngleThreshold)
			if p == cfg.DownAngleThreshold {
				continue
			}
			var tr Transition
			s, tr = Step(s, good(p), cfg)
			require.Equal(t, TransitionNone, tr)
		}
		assert.Equal(t, start.RepetitionCount, s.RepetitionCount)
		assert.Equal(t, start.Stage, s.Stage)
	}
}

func TestStep_BoundariesAreExclusive(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	s, _ := run(t, cfg, InitialState(), 100)
	assert.Equal(t, StageUp, s.Stage, "exactly the down threshold is not below it")

	s, _ = run(t, cfg, InitialState(), 99, 160)
	assert.Equal(t, StageDown, s.Stage, "exactly the up threshold is not above it")
	assert.Equal(t, 0, s.RepetitionCount)
}

func TestStep_UpWithoutDownDoesNotCount(t *testing.T) {
	t.Parallel()

	s, _ := run(t, DefaultConfig(), InitialState(), 170, 175, 179, 165)
	assert.Equal(t, 0, s.RepetitionCount)
	assert.Equal(t, StageUp, s.Stage)
}

func TestStep_CountIsMonotonic(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CountOnlyGoodForm = true
	rng := rand.New(rand.NewSource(99))
	s := InitialState()
	for i := 0; i < 10000; i++ {
		a := Angles{
			Primary:   rng.Float64() * 180,
			Alignment: 140 + rng.Float64()*40,
			Secondary: 150 + rng.Float64()*30,
		}
		next, tr := Step(s, a, cfg)
		require.GreaterOrEqual(t, next.RepetitionCount, s.RepetitionCount)
		require.LessOrEqual(t, next.RepetitionCount-s.RepetitionCount, 1)
		if tr == TransitionRep {
			require.Equal(t, FormGood, next.FormStatus)
		}
		s = next
	}
}

func TestStep_CountOnlyGoodForm(t *testing.T) {
	t.Parallel()

	sagging := Angles{Primary: 170, Alignment: 150, Secondary: 179}

	t.Run("baseline counts regardless of form", func(t *testing.T) {
		t.Parallel()
		s, _ := Step(InitialState(), good(90), DefaultConfig())
		s, tr := Step(s, sagging, DefaultConfig())
		assert.Equal(t, TransitionRep, tr)
		assert.Equal(t, 1, s.RepetitionCount)
		assert.Equal(t, FormBadPrimary, s.FormStatus)
	})

	t.Run("opt-in rejects bad-form reps but still resets the stage", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.CountOnlyGoodForm = true
		s, _ := Step(InitialState(), good(90), cfg)
		s, tr := Step(s, sagging, cfg)
		assert.Equal(t, TransitionRejected, tr)
		assert.Equal(t, 0, s.RepetitionCount)
		assert.Equal(t, StageUp, s.Stage)

		s, _ = Step(s, good(90), cfg)
		s, tr = Step(s, good(170), cfg)
		assert.Equal(t, TransitionRep, tr)
		assert.Equal(t, 1, s.RepetitionCount)
	})
}

func TestFormStatus_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GOOD FORM", FormGood.Label())
	assert.Equal(t, "BAD FORM (HIPS)", FormBadPrimary.Label())
	assert.Equal(t, "BAD FORM (KNEES)", FormBadSecondary.Label())
	assert.Equal(t, "UNKNOWN", FormUnknown.Label())
}
