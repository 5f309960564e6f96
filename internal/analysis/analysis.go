// Package analysis extracts diagnostic time series from forecast
// trajectories and computes their spectral content.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
)

// FieldMeanSeries extracts the global mean of a named field at every
// trajectory entry.
func FieldMeanSeries(traj hybrid.Trajectory, name string) ([]float64, error) {
	series := make([]float64, 0, len(traj))
	for _, s := range traj {
		f, err := s.Field(name)
		if err != nil {
			return nil, err
		}
		series = append(series, f.Mean())
	}
	return series, nil
}

// Drift is the total change of a series from its first to its last value.
func Drift(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	return series[len(series)-1] - series[0]
}

// PowerSpectrum returns the one-sided power spectrum of the series. The
// input is mean-removed and zero-padded to the next power of two.
func PowerSpectrum(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	n := 1
	for n < len(series) {
		n *= 2
	}
	padded := make([]float64, n)
	for i, v := range series {
		padded[i] = v - mean
	}

	spectrum := fft.FFTReal(padded)
	power := make([]float64, n/2+1)
	for i := range power {
		power[i] = math.Pow(cmplx.Abs(spectrum[i]), 2) / float64(n)
	}
	return power
}

// DominantPeriod returns the period (in steps) of the strongest spectral
// component, or 0 when the series is flat.
func DominantPeriod(series []float64) float64 {
	power := PowerSpectrum(series)
	if len(power) < 2 {
		return 0
	}
	best, bestIdx := 0.0, 0
	for i := 1; i < len(power); i++ {
		if power[i] > best {
			best = power[i]
			bestIdx = i
		}
	}
	if bestIdx == 0 || best == 0 {
		return 0
	}
	n := 2 * (len(power) - 1)
	return float64(n) / float64(bestIdx)
}
