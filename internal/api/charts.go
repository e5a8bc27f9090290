package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/repcount/internal/motion"
)

// handleAngleChart renders the recent angle history (HTML) with the counting
// and form thresholds as mark lines. ?n= limits the number of samples.
func (s *Server) handleAngleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	history := s.session.History()
	if v := r.URL.Query().Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'n' parameter")
			return
		}
		if n < len(history) {
			history = history[len(history)-n:]
		}
	}

	cfg := s.session.Config()
	snap := s.session.Snapshot()
	line := angleChart(history, cfg, snap)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func angleChart(history []motion.AngleSample, cfg motion.Config, snap motion.Result) *charts.Line {
	x := make([]string, 0, len(history))
	primary := make([]opts.LineData, 0, len(history))
	alignment := make([]opts.LineData, 0, len(history))
	secondary := make([]opts.LineData, 0, len(history))
	for _, h := range history {
		x = append(x, strconv.FormatInt(h.Frame, 10))
		primary = append(primary, opts.LineData{Value: round1(h.Angles.Primary)})
		alignment = append(alignment, opts.LineData{Value: round1(h.Angles.Alignment)})
		secondary = append(secondary, opts.LineData{Value: round1(h.Angles.Secondary)})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Rep Angles", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Joint Angles",
			Subtitle: fmt.Sprintf("session=%s reps=%d stage=%s form=%s samples=%d", snap.SessionID, snap.RepetitionCount, snap.Stage, snap.FormLabel, len(history)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 180, Name: "degrees", NameLocation: "middle", NameGap: 35}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)

	line.SetXAxis(x).
		AddSeries("primary", primary,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "down", YAxis: cfg.DownAngleThreshold},
				opts.MarkLineNameYAxisItem{Name: "up", YAxis: cfg.UpAngleThreshold},
			),
		).
		AddSeries("alignment", alignment,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "alignment", YAxis: cfg.AlignmentThreshold},
			),
		).
		AddSeries("secondary", secondary,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "secondary", YAxis: cfg.SecondaryThreshold},
			),
		)
	return line
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
