package services

import (
	"errors"
	"math"
	"time"

	"nazar/internal/models"
)

// ErrNoSamples is returned when a prediction is asked for an empty series
var ErrNoSamples = errors.New("no samples")

// Predict extrapolates the next value of an evenly spaced series using a
// least-squares line fit. The result is clamped to mean ± 2 standard
// deviations and never falls below floor. A single sample is returned as is.
func Predict(history []float64, floor float64) (float64, error) {
	switch len(history) {
	case 0:
		return 0, ErrNoSamples
	case 1:
		return history[0], nil
	}

	slope, intercept := LinearFit(history)
	raw := slope*float64(len(history)) + intercept

	mean, sd := MeanStdDev(history)
	upper := mean + 2*sd
	lower := math.Max(floor, mean-2*sd)

	// floor wins when it sits above the upper band
	return math.Max(math.Min(raw, upper), lower), nil
}

// LinearFit returns slope and intercept of y over x = 0..n-1.
// A degenerate fit has slope 0 and the mean as intercept.
func LinearFit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// MeanStdDev returns the mean and population standard deviation.
func MeanStdDev(ys []float64) (mean, sd float64) {
	if len(ys) == 0 {
		return 0, 0
	}
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))

	var variance float64
	for _, y := range ys {
		d := y - mean
		variance += d * d
	}
	variance /= float64(len(ys))
	return mean, math.Sqrt(variance)
}

// Trend compares the mean of the last window samples against the mean of the
// first window samples. Differences within deadband (same unit as the series)
// are stable. Short series shrink the window to fit.
func Trend(history []float64, window int, deadband float64) models.TrendDirection {
	if len(history) < 2 {
		return models.TrendStable
	}
	if window <= 0 || len(history) < 2*window {
		window = len(history) / 2
	}

	recent := history[len(history)-window:]
	earliest := history[:window]
	recentMean, _ := MeanStdDev(recent)
	earliestMean, _ := MeanStdDev(earliest)

	switch diff := recentMean - earliestMean; {
	case diff > deadband:
		return models.TrendRising
	case diff < -deadband:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}

// TimeToThreshold estimates when the fitted line reaches limit, given the
// spacing between samples. ok is false when the series is flat, falling,
// already at or above the limit, or too short to fit.
func TimeToThreshold(history []float64, limit float64, interval time.Duration) (time.Duration, bool) {
	if len(history) < 2 || interval <= 0 {
		return 0, false
	}
	if history[len(history)-1] >= limit {
		return 0, false
	}
	slope, intercept := LinearFit(history)
	if slope <= 0 {
		return 0, false
	}

	last := float64(len(history) - 1)
	current := slope*last + intercept
	steps := (limit - current) / slope
	if steps < 0 {
		steps = 0
	}
	return time.Duration(steps * float64(interval)), true
}
