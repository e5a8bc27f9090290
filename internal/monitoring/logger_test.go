package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	called = false
	SetLogger(nil)
	Logf("test message")
	assert.False(t, called, "no-op logger should not reach the previous callback")
}

func TestLogf_Default(t *testing.T) {
	require.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}

func TestUseLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	core, logs := observer.New(zapcore.InfoLevel)
	UseLogger(zap.New(core))
	Logf("reps=%d", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "reps=3", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	UseLogger(nil)
	Logf("dropped")
	assert.Len(t, logs.All(), 1)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		level, format string
		enabled       zapcore.Level
		disabled      zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", "json", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", "json", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", "console", zapcore.ErrorLevel, zapcore.WarnLevel},
		{"bogus", "json", zapcore.InfoLevel, zapcore.DebugLevel},
	} {
		tc := tc
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			t.Parallel()
			l, err := NewLogger(tc.level, tc.format, "repcount")
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tc.enabled))
			assert.False(t, l.Core().Enabled(tc.disabled))
		})
	}
}
