package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/repcount/internal/motion"
	"github.com/banshee-data/repcount/internal/pipeline"
	"github.com/banshee-data/repcount/internal/pose"
)

func TestWriteFixture(t *testing.T) {
	t.Parallel()

	g := pose.NewSyntheticGenerator(5, time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC))
	g.Noise = 0
	g.DropoutRate = 0

	// five full repetitions; the fourth sags
	n := int(g.FrameRate*g.RepSeconds) * 5
	var buf bytes.Buffer
	require.NoError(t, writeFixture(&buf, g, n))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, n+1)
	assert.True(t, strings.HasPrefix(lines[0], "# synthetic"))

	tr, err := motion.NewTracker(motion.DefaultConfig())
	require.NoError(t, err)
	runner := pipeline.NewRunner(tr)
	for _, l := range lines[1:] {
		runner.HandleLine(l)
	}
	assert.Equal(t, 5, tr.Snapshot().RepetitionCount)
	assert.Equal(t, pipeline.Counters{Lines: uint64(n), Frames: uint64(n)}, runner.Counters())

	// DOWN is entered 21 frames into each cycle and left after 54
	stats := tr.Stats()
	assert.InDelta(t, 1.1, stats.MeanRepDurationSeconds, 0.05)
	assert.Greater(t, stats.FormFrames[motion.FormBadPrimary], 0, "the sagging repetition is seen as bad form")
}
