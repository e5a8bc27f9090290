package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/repcount/internal/config"
	"github.com/banshee-data/repcount/internal/motion"
	"github.com/banshee-data/repcount/internal/testutil"
)

func openSession(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "..", "..", "fixtures", "pushups.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestAnalyse_RecordedSession(t *testing.T) {
	t.Parallel()

	a, err := analyse(context.Background(), openSession(t), motion.ConfigFromTuning(config.MustLoadDefaultConfig()))
	require.NoError(t, err)

	// one header comment, then a frame per line
	assert.Equal(t, uint64(601), a.Counters.Lines)
	assert.Equal(t, uint64(1), a.Counters.CommentLines)
	assert.Len(t, a.Results, 600)
	assert.Equal(t, 10, a.Stats.RepetitionCount)
	assert.Zero(t, a.Counters.DecodeErrors)
	assert.Equal(t, a.Counters.Skipped, uint64(a.Stats.SkippedFrames[motion.SkipNoDetection]))
	assert.Contains(t, a.Summary(), "10 reps (0 rejected)")
}

func TestAnalyse_CountOnlyGoodForm(t *testing.T) {
	t.Parallel()

	cfg := config.MustLoadDefaultConfig()
	cfg.SetCountOnlyGoodForm(true)
	a, err := analyse(context.Background(), openSession(t), motion.ConfigFromTuning(cfg))
	require.NoError(t, err)

	// repetitions 4 and 8 sag through the bottom
	assert.Equal(t, 8, a.Stats.RepetitionCount)
	assert.Equal(t, 2, a.Stats.RejectedReps)
}

func TestAnalyse_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := motion.DefaultConfig()
	cfg.DownAngleThreshold = 170
	_, err := analyse(context.Background(), strings.NewReader(""), cfg)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestAnalyse_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := analyse(ctx, openSession(t), motion.DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderPlot(t *testing.T) {
	t.Parallel()

	var lines []string
	for i, e := range []float64{170, 120, 90, 120, 170, 120, 90, 120, 170} {
		a := testutil.Straight
		a.Elbow = e
		lines = append(lines, testutil.PushUpLine(t, int64(i), a))
	}
	a, err := analyse(context.Background(), strings.NewReader(strings.Join(lines, "\n")), motion.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 2, a.Stats.RepetitionCount)

	path := filepath.Join(t.TempDir(), "angles.png")
	require.NoError(t, renderPlot(a, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "output is a PNG")
}

func TestRenderPlot_NothingAnalysed(t *testing.T) {
	t.Parallel()

	a, err := analyse(context.Background(), strings.NewReader(`{"frame":0,"detected":false}`+"\n"), motion.DefaultConfig())
	require.NoError(t, err)
	assert.Error(t, renderPlot(a, filepath.Join(t.TempDir(), "empty.png")))
}
