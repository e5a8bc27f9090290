package motion

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RepRecord describes one completed DOWN -> UP cycle.
type RepRecord struct {
	Number          int        `json:"number"` // count after this rep; unchanged for rejected reps
	Counted         bool       `json:"counted"`
	StartFrame      int64      `json:"start_frame"`
	EndFrame        int64      `json:"end_frame"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	DurationSeconds float64    `json:"duration_seconds"`
	DepthAngle      float64    `json:"depth_angle"` // lowest primary angle reached
	FormAtTop       FormStatus `json:"form_at_top"`
	BadFormFrames   int        `json:"bad_form_frames"`
	Frames          int        `json:"frames"`
}

// SessionStats summarises the current session.
type SessionStats struct {
	SessionID      string             `json:"session_id"`
	StartedAt      time.Time          `json:"started_at"`
	Frames         int                `json:"frames"`
	AnalysedFrames int                `json:"analysed_frames"`
	SkippedFrames  map[SkipReason]int `json:"skipped_frames"`
	FormFrames     map[FormStatus]int `json:"form_frames"`

	RepetitionCount int `json:"repetition_count"`
	RejectedReps    int `json:"rejected_reps"`
	// Reps holds the most recent maxRepRecords completed reps, oldest first.
	Reps              []RepRecord `json:"reps"`
	RepRecordsDropped int         `json:"rep_records_dropped"`

	// Over counted reps only; zero until there is data.
	MeanDepthAngle           float64 `json:"mean_depth_angle"`
	DepthAngleStdDev         float64 `json:"depth_angle_std_dev"`
	DeepestAngle             float64 `json:"deepest_angle"`
	MeanRepDurationSeconds   float64 `json:"mean_rep_duration_seconds"`
	RepDurationStdDevSeconds float64 `json:"rep_duration_std_dev_seconds"`
	RepsPerMinute            float64 `json:"reps_per_minute"`
	GoodFormFrameFraction    float64 `json:"good_form_frame_fraction"`
}

// maxRepRecords bounds SessionStats.Reps. The aggregates below it cover
// every rep of the session regardless.
const maxRepRecords = 100

// repSamples keeps the per-rep values the aggregates are computed from.
type repSamples struct {
	depths    []float64
	durations []float64
}

func (r *repSamples) add(rec RepRecord) {
	r.depths = append(r.depths, rec.DepthAngle)
	r.durations = append(r.durations, rec.DurationSeconds)
}

// appendRepRecord appends rec, evicting the oldest record once the list is
// full.
func (s *SessionStats) appendRepRecord(rec RepRecord) {
	if len(s.Reps) >= maxRepRecords {
		n := copy(s.Reps, s.Reps[1:])
		s.Reps = s.Reps[:n]
		s.RepRecordsDropped++
	}
	s.Reps = append(s.Reps, rec)
}

// repInProgress accumulates the DOWN phase of the current rep.
type repInProgress struct {
	active        bool
	startFrame    int64
	start         time.Time
	minPrimary    float64
	badFormFrames int
	frames        int
}

func (r *repInProgress) begin(frame int64, ts time.Time, a Angles, form FormStatus) {
	*r = repInProgress{active: true, startFrame: frame, start: ts, minPrimary: a.Primary}
	r.observe(a, form)
}

func (r *repInProgress) observe(a Angles, form FormStatus) {
	if !r.active {
		return
	}
	r.frames++
	if a.Primary < r.minPrimary {
		r.minPrimary = a.Primary
	}
	if form != FormGood {
		r.badFormFrames++
	}
}

func (r *repInProgress) finish(frame int64, ts time.Time, counted bool, number int, form FormStatus) RepRecord {
	rec := RepRecord{
		Number:          number,
		Counted:         counted,
		StartFrame:      r.startFrame,
		EndFrame:        frame,
		Start:           r.start,
		End:             ts,
		DurationSeconds: ts.Sub(r.start).Seconds(),
		DepthAngle:      r.minPrimary,
		FormAtTop:       form,
		BadFormFrames:   r.badFormFrames,
		Frames:          r.frames,
	}
	*r = repInProgress{}
	return rec
}

// summarise fills the derived fields from the counted reps' samples and the
// frame counters. elapsed is the session's wall-clock age.
func (s *SessionStats) summarise(elapsed time.Duration, counted *repSamples) {
	depths, durations := counted.depths, counted.durations

	s.MeanDepthAngle, s.DepthAngleStdDev = meanStdDev(depths)
	s.MeanRepDurationSeconds, s.RepDurationStdDevSeconds = meanStdDev(durations)
	if len(depths) > 0 {
		s.DeepestAngle = floats.Min(depths)
	}
	if minutes := elapsed.Minutes(); minutes > 0 {
		s.RepsPerMinute = float64(s.RepetitionCount) / minutes
	}
	if s.AnalysedFrames > 0 {
		s.GoodFormFrameFraction = float64(s.FormFrames[FormGood]) / float64(s.AnalysedFrames)
	}
}

// meanStdDev is stat.MeanStdDev with JSON-safe results for short samples.
func meanStdDev(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	mean, std = stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}
