package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/repcount/internal/pose"
)

const angleTolerance = 1e-9

func TestAngleDegrees_KnownAngles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a, b, c r2.Vec
		want    float64
	}{
		{"right angle", r2.Vec{X: 1, Y: 0}, r2.Vec{}, r2.Vec{X: 0, Y: 1}, 90},
		{"straight line", r2.Vec{X: 0, Y: 0}, r2.Vec{X: 1, Y: 0}, r2.Vec{X: 2, Y: 0}, 180},
		{"same side", r2.Vec{X: 2, Y: 0}, r2.Vec{X: 0, Y: 0}, r2.Vec{X: 1, Y: 0}, 0},
		{"45 degrees", r2.Vec{X: 1, Y: 0}, r2.Vec{}, r2.Vec{X: 1, Y: 1}, 45},
		{"just below the axis", r2.Vec{X: 1, Y: -0.0001}, r2.Vec{}, r2.Vec{X: -1, Y: -0.0001}, 180 - 2*math.Atan(0.0001)*180/math.Pi},
		{"reflex folded to interior", r2.Vec{X: -1, Y: 0.1}, r2.Vec{}, r2.Vec{X: -1, Y: -0.1}, 2 * math.Atan(0.1) * 180 / math.Pi},
		{"normalised elbow", r2.Vec{X: 0.40, Y: 0.30}, r2.Vec{X: 0.45, Y: 0.45}, r2.Vec{X: 0.60, Y: 0.45}, 180 - math.Atan2(0.15, 0.05)*180/math.Pi},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := AngleDegrees(tc.a, tc.b, tc.c)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-6)
		})
	}
}

func TestAngleDegrees_Collinear(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		b := r2.Vec{X: rng.Float64(), Y: rng.Float64()}
		theta := rng.Float64() * 2 * math.Pi
		dir := r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
		d1 := 0.01 + rng.Float64()
		d2 := 0.01 + rng.Float64()

		between, err := AngleDegrees(r2.Add(b, r2.Scale(-d1, dir)), b, r2.Add(b, r2.Scale(d2, dir)))
		require.NoError(t, err)
		assert.InDelta(t, 180, between, 1e-6, "b between a and c")

		sameSide, err := AngleDegrees(r2.Add(b, r2.Scale(d1, dir)), b, r2.Add(b, r2.Scale(d2, dir)))
		require.NoError(t, err)
		assert.InDelta(t, 0, sameSide, 1e-6, "a and c on the same side of b")
	}
}

func TestAngleDegrees_Properties(t *testing.T) {
	t.Parallel()

	seed := time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))
	point := func() r2.Vec { return r2.Vec{X: rng.Float64(), Y: rng.Float64()} }

	for i := 0; i < 5000; i++ {
		a, b, c := point(), point(), point()
		ab, err := AngleDegrees(a, b, c)
		require.NoError(t, err, "seed %d", seed)
		ba, err := AngleDegrees(c, b, a)
		require.NoError(t, err, "seed %d", seed)

		assert.Equal(t, ab, ba, "symmetry (seed %d)", seed)
		assert.GreaterOrEqual(t, ab, 0.0, "seed %d", seed)
		assert.LessOrEqual(t, ab, 180.0, "seed %d", seed)
	}
}

func TestAngleDegrees_Degenerate(t *testing.T) {
	t.Parallel()

	p := r2.Vec{X: 0.5, Y: 0.5}
	q := r2.Vec{X: 0.7, Y: 0.1}
	cases := map[string][3]r2.Vec{
		"a on vertex":    {p, p, q},
		"c on vertex":    {q, p, p},
		"all coincident": {p, p, p},
		"nan":            {{X: math.NaN(), Y: 0}, p, q},
		"inf":            {q, {X: math.Inf(1), Y: 0}, q},
	}
	for name, in := range cases {
		in := in
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := AngleDegrees(in[0], in[1], in[2])
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDegenerateGeometry)
			var dg *DegenerateGeometryError
			assert.True(t, errors.As(err, &dg))
		})
	}
}

func TestJointAngle(t *testing.T) {
	t.Parallel()

	elbow := Triple{A: pose.RightShoulder, Vertex: pose.RightElbow, C: pose.RightWrist}
	assert.Equal(t, "right_shoulder-right_elbow-right_wrist", elbow.String())
	assert.Equal(t, []pose.Joint{pose.RightShoulder, pose.RightElbow, pose.RightWrist}, elbow.Joints())

	s := pose.NewSnapshot(1, time.Time{}).
		Set(pose.RightShoulder, 0.5, 0.2).
		Set(pose.RightElbow, 0.5, 0.4)

	_, err := JointAngle(s, elbow)
	assert.ErrorIs(t, err, pose.ErrMissingJoint)

	s.Set(pose.RightWrist, 0.7, 0.4)
	got, err := JointAngle(s, elbow)
	require.NoError(t, err)
	assert.InDelta(t, 90, got, angleTolerance)

	s.Set(pose.RightWrist, 0.5, 0.4)
	_, err = JointAngle(s, elbow)
	assert.ErrorIs(t, err, ErrDegenerateGeometry)
	assert.Contains(t, err.Error(), elbow.String())
}

func TestMeanAngle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 95.0, MeanAngle(90, 100))
	assert.Equal(t, 42.0, MeanAngle(42))
	assert.True(t, math.IsNaN(MeanAngle()))
}
