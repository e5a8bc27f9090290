package main

import (
	"context"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/repcount/internal/motion"
	"github.com/banshee-data/repcount/internal/pipeline"
)

// analysis is one replayed session.
type analysis struct {
	Config   motion.Config
	Results  []motion.Result
	Stats    motion.SessionStats
	Counters pipeline.Counters
}

// analyse streams oracle lines from r through a fresh tracker, collecting
// every result.
func analyse(ctx context.Context, r io.Reader, cfg motion.Config) (*analysis, error) {
	tr, err := motion.NewTracker(cfg)
	if err != nil {
		return nil, err
	}

	a := &analysis{Config: cfg}
	runner := pipeline.NewRunner(tr, pipeline.SinkFunc(func(r motion.Result) {
		a.Results = append(a.Results, r)
	}))
	if err := runner.Run(ctx, pipeline.ReadLines(ctx, r)); err != nil {
		return nil, err
	}
	// a cancelled reader also closes its channel; don't report a partial session
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.Stats = tr.Stats()
	a.Counters = runner.Counters()
	return a, nil
}

// Summary is a one-line description of the session.
func (a *analysis) Summary() string {
	s := a.Stats
	return fmt.Sprintf("%d reps (%d rejected) over %d frames (%d skipped, %d undecodable); depth %.1f±%.1f°, %.2fs/rep, %.1f reps/min, %.0f%% good form",
		s.RepetitionCount, s.RejectedReps, a.Counters.Frames, a.Counters.Skipped, a.Counters.DecodeErrors,
		s.MeanDepthAngle, s.DepthAngleStdDev, s.MeanRepDurationSeconds, s.RepsPerMinute, 100*s.GoodFormFrameFraction)
}

var (
	colorPrimary   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorAlignment = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	colorSecondary = color.RGBA{R: 148, G: 103, B: 189, A: 255}
	colorThreshold = color.RGBA{R: 127, G: 127, B: 127, A: 255}
	colorRep       = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorRejected  = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// renderPlot draws the analysed angles with the counting thresholds and a
// marker for every counted or rejected repetition.
func renderPlot(a *analysis, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Push-up angles - %d reps", a.Stats.RepetitionCount)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Angle (°)"
	p.Y.Min = 0
	p.Y.Max = 185

	primary := make(plotter.XYs, 0, len(a.Results))
	alignment := make(plotter.XYs, 0, len(a.Results))
	secondary := make(plotter.XYs, 0, len(a.Results))
	var reps, rejected plotter.XYs
	for _, r := range a.Results {
		if r.Skipped {
			continue
		}
		x := float64(r.Frame)
		primary = append(primary, plotter.XY{X: x, Y: r.PrimaryAngle})
		alignment = append(alignment, plotter.XY{X: x, Y: r.AlignmentAngle})
		secondary = append(secondary, plotter.XY{X: x, Y: r.SecondaryAngle})
		switch r.Transition {
		case motion.TransitionRep:
			reps = append(reps, plotter.XY{X: x, Y: r.PrimaryAngle})
		case motion.TransitionRejected:
			rejected = append(rejected, plotter.XY{X: x, Y: r.PrimaryAngle})
		}
	}
	if len(primary) == 0 {
		return fmt.Errorf("no analysed frames to plot")
	}

	for _, series := range []struct {
		name string
		pts  plotter.XYs
		c    color.Color
	}{
		{"primary", primary, colorPrimary},
		{"alignment", alignment, colorAlignment},
		{"secondary", secondary, colorSecondary},
	} {
		line, err := plotter.NewLine(series.pts)
		if err != nil {
			return err
		}
		line.Color = series.c
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}

	first, last := primary[0].X, primary[len(primary)-1].X
	for _, th := range []struct {
		name  string
		value float64
	}{
		{"down", a.Config.DownAngleThreshold},
		{"up", a.Config.UpAngleThreshold},
		{"alignment", a.Config.AlignmentThreshold},
	} {
		line, err := plotter.NewLine(plotter.XYs{{X: first, Y: th.value}, {X: last, Y: th.value}})
		if err != nil {
			return err
		}
		line.Color = colorThreshold
		line.Width = vg.Points(0.5)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(line)
	}

	if err := addMarkers(p, "rep", reps, colorRep, draw.CircleGlyph{}); err != nil {
		return err
	}
	if err := addMarkers(p, "rejected", rejected, colorRejected, draw.CrossGlyph{}); err != nil {
		return err
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}

func addMarkers(p *plot.Plot, name string, pts plotter.XYs, c color.Color, shape draw.GlyphDrawer) error {
	if len(pts) == 0 {
		return nil
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(4)
	sc.GlyphStyle.Shape = shape
	p.Add(sc)
	p.Legend.Add(name, sc)
	return nil
}
