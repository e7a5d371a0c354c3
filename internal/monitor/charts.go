package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/banshee-data/robot.sensors/internal/units"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	defaultChartTicks = 200
	maxChartTicks     = 5000
)

// handleReadingsChart renders raw against filtered front obstacle distance
// and heading over the recent recorded ticks.
// Query params:
//   - limit (optional; default 200) number of ticks
//   - units (optional; rad or deg) heading units
func (ws *WebServer) handleReadingsChart(w http.ResponseWriter, r *http.Request) {
	if ws.history == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no tick history configured")
		return
	}
	limit, ok := intParam(r, "limit", defaultChartTicks, maxChartTicks)
	if !ok {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	u, ok := ws.angleUnits(w, r)
	if !ok {
		return
	}

	ticks, err := ws.history.RecentTicks(ws.session.ID(), limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load ticks: %v", err))
		return
	}
	if len(ticks) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no ticks recorded")
		return
	}

	x := make([]string, len(ticks))
	rawFront := make([]float64, len(ticks))
	filtFront := make([]float64, len(ticks))
	rawHeading := make([]float64, len(ticks))
	filtHeading := make([]float64, len(ticks))
	for i, t := range ticks {
		x[i] = strconv.FormatUint(t.Raw.Tick, 10)
		rawFront[i] = t.Raw.Obstacles.Front
		filtFront[i] = t.Filtered.Obstacles.Front
		rawHeading[i] = units.ConvertAngle(sensors.WrapAngle(t.Raw.Pose.Theta), u)
		filtHeading[i] = units.ConvertAngle(t.Filtered.Pose.Theta, u)
	}

	front := lineChart("Front obstacle", "cm", x, rawFront, filtFront)
	heading := lineChart("Heading", u, x, rawHeading, filtHeading)

	page := components.NewPage()
	page.AddCharts(front, heading)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func lineChart(title, unit string, x []string, raw, filtered []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sensor readings", Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Subtitle: fmt.Sprintf("raw %.2f..%.2f, filtered %.2f..%.2f %s",
				floats.Min(raw), floats.Max(raw), floats.Min(filtered), floats.Max(filtered), unit),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
	)
	line.SetXAxis(x).
		AddSeries("raw", lineData(raw)).
		AddSeries("filtered", lineData(filtered))
	return line
}

func lineData(v []float64) []opts.LineData {
	out := make([]opts.LineData, len(v))
	for i, f := range v {
		out[i] = opts.LineData{Value: f}
	}
	return out
}

// handleTrailPlot renders the breadcrumbs and their simplified path as a PNG.
func (ws *WebServer) handleTrailPlot(w http.ResponseWriter, r *http.Request) {
	tol, ok := floatParam(r, "tolerance", defaultSimplifyTolerance)
	if !ok || tol < 0 {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid tolerance")
		return
	}
	crumbs := ws.session.LastFiltered().Breadcrumbs
	if len(crumbs) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no breadcrumbs recorded")
		return
	}

	p, err := trailPlot(crumbs, sensors.SimplifyPath(crumbs, tol), ws.session.TrailLength())
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to plot trail: %v", err))
		return
	}
	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render trail: %v", err))
		return
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render trail: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func trailPlot(crumbs, simplified []sensors.Pose, length float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Breadcrumbs (%d points, %.2f m)", len(crumbs), length)
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(plotter.NewGrid())

	points, err := plotter.NewScatter(poseXYs(crumbs))
	if err != nil {
		return nil, err
	}
	points.GlyphStyle.Radius = vg.Points(2)
	points.GlyphStyle.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	p.Add(points)
	p.Legend.Add("breadcrumbs", points)

	if len(simplified) > 1 {
		path, err := plotter.NewLine(poseXYs(simplified))
		if err != nil {
			return nil, err
		}
		path.Width = vg.Points(1)
		path.Color = color.RGBA{R: 220, G: 80, B: 40, A: 255}
		p.Add(path)
		p.Legend.Add(fmt.Sprintf("simplified (%d)", len(simplified)), path)
	}
	return p, nil
}

func poseXYs(poses []sensors.Pose) plotter.XYs {
	pts := make(plotter.XYs, len(poses))
	for i, p := range poses {
		pts[i] = plotter.XY{X: p.X, Y: p.Y}
	}
	return pts
}
