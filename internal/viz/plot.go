// Package viz renders forecast diagnostics for the terminal.
package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/Oscarrrhhhh/neuralgcm/internal/analysis"
	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
)

// PlotSeries renders a time series as an ASCII line chart.
func PlotSeries(series []float64, caption string) string {
	if len(series) < 2 {
		return "not enough data to plot"
	}
	return asciigraph.Plot(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}

// PlotFieldMean extracts a field's global mean over the trajectory and
// plots it.
func PlotFieldMean(traj hybrid.Trajectory, field string) (string, error) {
	series, err := analysis.FieldMeanSeries(traj, field)
	if err != nil {
		return "", err
	}
	caption := fmt.Sprintf("global mean %s (drift %+.4g)", field, analysis.Drift(series))
	return PlotSeries(series, caption), nil
}

// PlotSpectrum plots the power spectrum of a series.
func PlotSpectrum(series []float64, caption string) string {
	power := analysis.PowerSpectrum(series)
	if len(power) < 2 {
		return "not enough data to plot"
	}
	return asciigraph.Plot(power,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}
