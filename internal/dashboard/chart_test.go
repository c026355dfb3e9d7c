package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/cardiowatch/internal/monitor"
)

func TestBuildChartEmpty(t *testing.T) {
	c := buildChart(nil)
	assert.Empty(t, c.Points)
	assert.Empty(t, c.Line)
	assert.Equal(t, chartWidth, c.Width)
}

func TestBuildChartLayout(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []monitor.Row{
		{BPM: 60, Time: base},
		{BPM: 80, Time: base.Add(2 * time.Second), Anomaly: true},
		{BPM: 70, Time: base.Add(4 * time.Second)},
	}

	c := buildChart(rows)
	require.Len(t, c.Points, 3)

	assert.InDelta(t, float64(chartPad), c.Points[0].X, 1e-9)
	assert.InDelta(t, float64(chartWidth-chartPad), c.Points[2].X, 1e-9)

	// Higher BPM is drawn closer to the top.
	assert.Less(t, c.Points[1].Y, c.Points[2].Y)
	assert.Less(t, c.Points[2].Y, c.Points[0].Y)

	assert.True(t, c.Points[1].Anomaly)
	assert.False(t, c.Points[0].Anomaly)
	assert.Equal(t, "01/03 12:00:02", c.Points[1].Label)
	assert.Equal(t, "55", c.MinLabel)
	assert.Equal(t, "85", c.MaxLabel)
	assert.Len(t, strings.Fields(c.Line), 3)
}

func TestBuildChartSingleRow(t *testing.T) {
	c := buildChart([]monitor.Row{{BPM: 72}})
	require.Len(t, c.Points, 1)
	assert.InDelta(t, float64(chartPad), c.Points[0].X, 1e-9)
	assert.InDelta(t, float64(chartHeight)/2, c.Points[0].Y, 1e-9)
}
