package dashboard

import (
	"fmt"
	"strings"

	"github.com/xtxerr/cardiowatch/internal/monitor"
)

const (
	chartWidth  = 720
	chartHeight = 240
	chartPad    = 30
)

type chartPoint struct {
	X, Y    float64
	BPM     int
	Label   string
	Anomaly bool
}

type chartData struct {
	Width, Height int
	Line          string
	Points        []chartPoint
	MinLabel      string
	MaxLabel      string
}

// buildChart lays out rows as an SVG polyline, oldest on the left.
func buildChart(rows []monitor.Row) chartData {
	c := chartData{Width: chartWidth, Height: chartHeight}
	if len(rows) == 0 {
		return c
	}

	lo, hi := rows[0].BPM, rows[0].BPM
	for _, r := range rows {
		lo = min(lo, r.BPM)
		hi = max(hi, r.BPM)
	}
	lo -= 5
	hi += 5

	plotW := float64(chartWidth - 2*chartPad)
	plotH := float64(chartHeight - 2*chartPad)
	step := 0.0
	if len(rows) > 1 {
		step = plotW / float64(len(rows)-1)
	}

	var line strings.Builder
	c.Points = make([]chartPoint, len(rows))
	for i, r := range rows {
		x := float64(chartPad) + float64(i)*step
		y := float64(chartPad) + plotH*(1-float64(r.BPM-lo)/float64(hi-lo))
		c.Points[i] = chartPoint{
			X:       x,
			Y:       y,
			BPM:     r.BPM,
			Label:   r.Time.Format("02/01 15:04:05"),
			Anomaly: r.Anomaly,
		}
		if i > 0 {
			line.WriteByte(' ')
		}
		fmt.Fprintf(&line, "%.1f,%.1f", x, y)
	}
	c.Line = line.String()
	c.MinLabel = fmt.Sprint(lo)
	c.MaxLabel = fmt.Sprint(hi)
	return c
}
