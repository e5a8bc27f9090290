package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/repcount/internal/geometry"
	"github.com/banshee-data/repcount/internal/pose"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest(http.MethodPost, "/api/reset")
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/reset", req.URL.Path)
}

func TestPushUpSnapshot_ProducesRequestedAngles(t *testing.T) {
	t.Parallel()

	cases := []PushUpAngles{
		Straight,
		{Elbow: 90, Alignment: 150, Knee: 175},
		{Elbow: 45, Alignment: 180, Knee: 180},
		{Elbow: 179.5, Alignment: 120, Knee: 100},
	}
	for _, a := range cases {
		s := PushUpSnapshot(3, time.Time{}, a)
		for _, side := range []pose.Side{pose.SideLeft, pose.SideRight} {
			elbow, err := geometry.JointAngle(s, geometry.Triple{A: side.Shoulder(), Vertex: side.Elbow(), C: side.Wrist()})
			require.NoError(t, err)
			assert.InDelta(t, a.Elbow, elbow, 1e-9, "%s elbow for %+v", side, a)

			align, err := geometry.JointAngle(s, geometry.Triple{A: side.Shoulder(), Vertex: side.Hip(), C: side.Ankle()})
			require.NoError(t, err)
			assert.InDelta(t, a.Alignment, align, 1e-9, "%s alignment for %+v", side, a)

			knee, err := geometry.JointAngle(s, geometry.Triple{A: side.Hip(), Vertex: side.Knee(), C: side.Ankle()})
			require.NoError(t, err)
			assert.InDelta(t, a.Knee, knee, 1e-6, "%s knee for %+v", side, a)
		}
	}
}

func TestPushUpLine_RoundTrips(t *testing.T) {
	t.Parallel()

	line := PushUpLine(t, 12, Straight)
	d, err := pose.DecodeLine(line)
	require.NoError(t, err)
	require.True(t, d.Found())
	assert.Equal(t, int64(12), d.Frame)
	assert.NoError(t, d.Snapshot.Require(pose.AllJoints()...))
}

func TestElbowSequence(t *testing.T) {
	t.Parallel()

	ds := ElbowSequence(5, 170, 90)
	require.Len(t, ds, 2)
	assert.Equal(t, int64(5), ds[0].Frame)
	assert.Equal(t, int64(6), ds[1].Frame)
	assert.Empty(t, ElbowSequence(0))
}
