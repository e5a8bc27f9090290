package pose

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestSyntheticGenerator_Profile(t *testing.T) {
	t.Parallel()

	g := NewSyntheticGenerator(1, time.Time{})
	top := g.AnglesAt(0)
	assert.InDelta(t, g.TopElbow, top.Elbow, 1e-9)
	assert.Equal(t, 178.0, top.Alignment)

	half := int64(g.FrameRate * g.RepSeconds / 2)
	assert.InDelta(t, g.BottomElbow, g.AnglesAt(half).Elbow, 1e-9)

	// the fourth repetition sags
	sag := int64(g.FrameRate*g.RepSeconds) * 3
	assert.Equal(t, 150.0, g.AnglesAt(sag).Alignment)
	assert.Equal(t, 178.0, g.AnglesAt(sag-1).Alignment)
}

func TestSyntheticGenerator_NextFrame(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)
	g := NewSyntheticGenerator(7, start)
	g.Noise = 0
	g.DropoutRate = 0

	for i := int64(0); i < 5; i++ {
		d := g.NextFrame()
		require.True(t, d.Found())
		assert.Equal(t, i, d.Frame)
		want := start.Add(time.Duration(float64(i) / g.FrameRate * float64(time.Second)))
		assert.WithinDuration(t, want, d.Timestamp, time.Microsecond)
		require.NoError(t, d.Snapshot.Require(SideRight.Shoulder(), SideRight.Elbow(), SideRight.Wrist()))
	}
	assert.Equal(t, 1, g.Rep())
}

func TestSyntheticGenerator_Dropouts(t *testing.T) {
	t.Parallel()

	g := NewSyntheticGenerator(3, time.Time{})
	g.DropoutRate = 1
	for i := 0; i < 10; i++ {
		assert.False(t, g.NextFrame().Found())
	}
}

func TestSyntheticGenerator_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewSyntheticGenerator(42, time.Time{})
	b := NewSyntheticGenerator(42, time.Time{})
	for i := 0; i < 50; i++ {
		la, err := EncodeLine(a.NextFrame())
		require.NoError(t, err)
		lb, err := EncodeLine(b.NextFrame())
		require.NoError(t, err)
		require.Equal(t, la, lb)
	}
}

func TestSyntheticPushUp_Elbow(t *testing.T) {
	t.Parallel()

	s := SyntheticPushUp(0, time.Time{}, SyntheticAngles{Elbow: 90, Alignment: 178, Knee: 179})
	sh, _ := s.Position(RightShoulder)
	el, _ := s.Position(RightElbow)
	wr, _ := s.Position(RightWrist)
	u := r2.Sub(sh.Vec(), el.Vec())
	v := r2.Sub(wr.Vec(), el.Vec())
	deg := math.Acos((u.X*v.X+u.Y*v.Y)/(math.Hypot(u.X, u.Y)*math.Hypot(v.X, v.Y))) * 180 / math.Pi
	assert.InDelta(t, 90, deg, 1e-9)
}
