package pose

import (
	"errors"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrNotAFrame is returned by DecodeLine for JSON objects that carry none of
// the frame keys, such as oracle status lines.
var ErrNotAFrame = errors.New("not a pose frame")

// wireFrame is one line of the oracle stream:
//
//	{"frame":12,"ts":1712345678.123,"detected":true,
//	 "joints":{"left_shoulder":{"x":0.41,"y":0.32,"visibility":0.98}, ...}}
type wireFrame struct {
	Frame    *int64               `json:"frame"`
	TS       *float64             `json:"ts,omitempty"`
	Detected *bool                `json:"detected,omitempty"`
	Joints   map[string]wireJoint `json:"joints,omitempty"`
}

type wireJoint struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Z          *float64 `json:"z,omitempty"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// DecodeLine parses one oracle line. The returned error reports a malformed
// line or a JSON object that is not a frame (no "frame", "detected" or
// "joints" key); a well-formed "no detection" is a Detection without a
// snapshot. Unknown joint names and joints without both coordinates are
// dropped.
func DecodeLine(line string) (Detection, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Detection{}, fmt.Errorf("empty pose line")
	}

	var wf wireFrame
	if err := json.Unmarshal([]byte(line), &wf); err != nil {
		return Detection{}, fmt.Errorf("failed to unmarshal pose line: %w", err)
	}

	if wf.Frame == nil && wf.Detected == nil && wf.Joints == nil {
		return Detection{}, ErrNotAFrame
	}

	var frame int64
	if wf.Frame != nil {
		frame = *wf.Frame
	}
	ts := unixSeconds(wf.TS)
	if wf.Detected != nil && !*wf.Detected {
		return NotDetected(frame, ts), nil
	}

	snap := NewSnapshot(frame, ts)
	for name, wj := range wf.Joints {
		j, ok := ParseJoint(name)
		if !ok || wj.X == nil || wj.Y == nil {
			continue
		}
		p := Position{X: *wj.X, Y: *wj.Y, Visibility: 1}
		if wj.Z != nil {
			p.Z = *wj.Z
		}
		if wj.Visibility != nil {
			p.Visibility = *wj.Visibility
		}
		snap.Joints[j] = p
	}
	if len(snap.Joints) == 0 {
		return NotDetected(frame, ts), nil
	}
	return Detected(snap), nil
}

// EncodeLine renders a detection in the oracle wire format. Fixture tooling
// uses it to write synthetic sessions.
func EncodeLine(d Detection) (string, error) {
	frame := d.Frame
	wf := wireFrame{Frame: &frame}
	if !d.Timestamp.IsZero() {
		ts := float64(d.Timestamp.UnixNano()) / 1e9
		wf.TS = &ts
	}
	detected := d.Found()
	wf.Detected = &detected
	if detected {
		wf.Joints = make(map[string]wireJoint, len(d.Snapshot.Joints))
		for j, p := range d.Snapshot.Joints {
			x, y, vis := p.X, p.Y, p.Visibility
			wj := wireJoint{X: &x, Y: &y, Visibility: &vis}
			if p.Z != 0 {
				z := p.Z
				wj.Z = &z
			}
			wf.Joints[j.String()] = wj
		}
	}
	b, err := json.Marshal(wf)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pose line: %w", err)
	}
	return string(b), nil
}

func unixSeconds(ts *float64) time.Time {
	if ts == nil || math.IsNaN(*ts) || math.IsInf(*ts, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(*ts)
	return time.Unix(int64(sec), int64(frac*1e9))
}
