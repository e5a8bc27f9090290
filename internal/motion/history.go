package motion

import "time"

// AngleSample is one analysed frame as kept for charting.
type AngleSample struct {
	Frame      int64      `json:"frame"`
	Timestamp  time.Time  `json:"timestamp"`
	Angles     Angles     `json:"angles"`
	Stage      Stage      `json:"stage"`
	FormStatus FormStatus `json:"form_status"`
	Transition Transition `json:"transition,omitempty"`
}

// angleHistory is a fixed-capacity ring of the most recent samples.
type angleHistory struct {
	buf   []AngleSample
	next  int
	count int
}

func newAngleHistory(capacity int) *angleHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &angleHistory{buf: make([]AngleSample, capacity)}
}

func (h *angleHistory) add(s AngleSample) {
	h.buf[h.next] = s
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// samples returns a copy, oldest first.
func (h *angleHistory) samples() []AngleSample {
	out := make([]AngleSample, 0, h.count)
	start := (h.next - h.count + len(h.buf)) % len(h.buf)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)])
	}
	return out
}

func (h *angleHistory) reset() {
	h.next, h.count = 0, 0
}
