// Package testutil provides shared test utilities and fixtures: HTTP
// assertion helpers and synthetic push-up poses whose joint angles are known
// exactly.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banshee-data/repcount/internal/pose"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// PushUpAngles are the three angles a synthetic pose is built to produce.
type PushUpAngles = pose.SyntheticAngles

// Straight is a textbook top-of-push-up pose.
var Straight = PushUpAngles{Elbow: 175, Alignment: 178, Knee: 179}

// PushUpSnapshot builds a side-on pose whose elbow, shoulder-hip-ankle and
// hip-knee-ankle angles equal a.
func PushUpSnapshot(frame int64, ts time.Time, a PushUpAngles) *pose.Snapshot {
	return pose.SyntheticPushUp(frame, ts, a)
}

// PushUpLine renders PushUpSnapshot in the oracle wire format.
func PushUpLine(t testing.TB, frame int64, a PushUpAngles) string {
	t.Helper()
	line, err := pose.EncodeLine(pose.Detected(PushUpSnapshot(frame, time.Time{}, a)))
	if err != nil {
		t.Fatalf("failed to encode synthetic pose: %v", err)
	}
	return line
}

// ElbowSequence builds one detection per elbow angle, every other angle held
// at Straight.
func ElbowSequence(start int64, elbows ...float64) []pose.Detection {
	out := make([]pose.Detection, 0, len(elbows))
	for i, e := range elbows {
		a := Straight
		a.Elbow = e
		out = append(out, pose.Detected(PushUpSnapshot(start+int64(i), time.Time{}, a)))
	}
	return out
}
