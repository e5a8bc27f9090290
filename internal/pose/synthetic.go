package pose

import (
	"math"
	"math/rand"
	"time"
)

// SyntheticAngles are the three angles a synthetic pose is built to produce.
type SyntheticAngles struct {
	Elbow     float64 // both elbows, degrees
	Alignment float64 // shoulder-hip-ankle, degrees
	Knee      float64 // hip-knee-ankle, degrees
}

// SyntheticPushUp builds a side-on pose whose elbow, shoulder-hip-ankle and
// hip-knee-ankle angles equal a (to floating point precision). Both body
// sides share the same coordinates. Angles must lie in (0, 180].
func SyntheticPushUp(frame int64, ts time.Time, a SyntheticAngles) *Snapshot {
	const (
		torso   = 0.30
		upper   = 0.15
		fore    = 0.15
		legSpan = 0.40
	)
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	hipX, hipY := 0.55, 0.50
	// shoulder straight towards -x from the hip
	shX, shY := hipX-torso, hipY
	// ankle at the requested alignment angle from the hip-shoulder ray
	alpha := rad(a.Alignment)
	anX, anY := hipX-legSpan*math.Cos(alpha), hipY+legSpan*math.Sin(alpha)
	// knee on the perpendicular bisector of hip-ankle, apex angle = knee angle
	d := math.Hypot(anX-hipX, anY-hipY)
	beta := rad(a.Knee)
	h := (d / 2) * math.Cos(beta/2) / math.Sin(beta/2)
	mx, my := (hipX+anX)/2, (hipY+anY)/2
	nx, ny := -(anY-hipY)/d, (anX-hipX)/d
	knX, knY := mx+h*nx, my+h*ny
	// elbow straight below the shoulder, wrist at the elbow angle
	elX, elY := shX, shY+upper
	theta := rad(a.Elbow)
	wrX, wrY := elX+fore*math.Sin(theta), elY-fore*math.Cos(theta)

	s := NewSnapshot(frame, ts)
	for _, side := range []Side{SideLeft, SideRight} {
		s.Set(side.Shoulder(), shX, shY)
		s.Set(side.Elbow(), elX, elY)
		s.Set(side.Wrist(), wrX, wrY)
		s.Set(side.Hip(), hipX, hipY)
		s.Set(side.Knee(), knX, knY)
		s.Set(side.Ankle(), anX, anY)
	}
	s.Set(Nose, shX-0.05, shY-0.02)
	return s
}

// SyntheticGenerator produces a stream of push-up detections for fixtures
// and replay. Each repetition is a cosine sweep of the elbow from TopElbow to
// BottomElbow and back.
type SyntheticGenerator struct {
	frame int64
	start time.Time

	// Configuration
	FrameRate   float64 // frames per second
	RepSeconds  float64 // duration of one full repetition
	TopElbow    float64 // degrees at the top of the movement
	BottomElbow float64 // degrees at the bottom of the movement
	Noise       float64 // standard deviation of per-frame angle jitter, degrees
	SagEvery    int     // every Nth repetition is performed with sagging hips; 0 disables
	DropoutRate float64 // fraction of frames with no detection

	rng *rand.Rand
}

// NewSyntheticGenerator creates a generator whose first frame is stamped
// start. The same seed always yields the same session.
func NewSyntheticGenerator(seed int64, start time.Time) *SyntheticGenerator {
	return &SyntheticGenerator{
		start:       start,
		FrameRate:   30,
		RepSeconds:  2,
		TopElbow:    172,
		BottomElbow: 78,
		Noise:       1.5,
		SagEvery:    4,
		DropoutRate: 0.02,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Rep returns the 1-based repetition the next frame belongs to.
func (g *SyntheticGenerator) Rep() int {
	return int(g.elapsed(g.frame)/g.RepSeconds) + 1
}

func (g *SyntheticGenerator) elapsed(frame int64) float64 {
	return float64(frame) / g.FrameRate
}

// AnglesAt returns the noise-free angles of frame.
func (g *SyntheticGenerator) AnglesAt(frame int64) SyntheticAngles {
	t := g.elapsed(frame)
	phase := math.Mod(t, g.RepSeconds) / g.RepSeconds
	mid := (g.TopElbow + g.BottomElbow) / 2
	amp := (g.TopElbow - g.BottomElbow) / 2

	a := SyntheticAngles{
		Elbow:     mid + amp*math.Cos(2*math.Pi*phase),
		Alignment: 178,
		Knee:      179,
	}
	rep := int(t/g.RepSeconds) + 1
	if g.SagEvery > 0 && rep%g.SagEvery == 0 {
		a.Alignment = 150
	}
	return a
}

// NextFrame generates the next synthetic detection.
func (g *SyntheticGenerator) NextFrame() Detection {
	frame := g.frame
	g.frame++
	ts := g.start.Add(time.Duration(g.elapsed(frame) * float64(time.Second)))

	if g.DropoutRate > 0 && g.rng.Float64() < g.DropoutRate {
		return NotDetected(frame, ts)
	}

	a := g.AnglesAt(frame)
	a.Elbow = clampAngle(a.Elbow + g.jitter())
	a.Alignment = clampAngle(a.Alignment + g.jitter())
	a.Knee = clampAngle(a.Knee + g.jitter())
	return Detected(SyntheticPushUp(frame, ts, a))
}

func (g *SyntheticGenerator) jitter() float64 {
	if g.Noise <= 0 {
		return 0
	}
	return g.rng.NormFloat64() * g.Noise
}

func clampAngle(deg float64) float64 {
	return math.Max(1, math.Min(180, deg))
}
