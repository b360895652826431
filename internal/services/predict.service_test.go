package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nazar/internal/models"
)

func TestPredict_Empty(t *testing.T) {
	_, err := Predict(nil, 0)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestPredict_SingleSample(t *testing.T) {
	got, err := Predict([]float64{42}, 0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)

	// returned unchanged, even below the floor
	got, err = Predict([]float64{3}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
}

func TestPredict_LinearSeries(t *testing.T) {
	got, err := Predict([]float64{10, 12, 14, 16, 18}, 0)
	require.NoError(t, err)
	// the raw fit says 20; the 2σ band caps it just below
	assert.InDelta(t, 20, got, 0.5)
	assert.LessOrEqual(t, got, 20.0)
}

func TestPredict_FlatSeries(t *testing.T) {
	got, err := Predict([]float64{7, 7, 7, 7}, 0)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
}

func TestPredict_ClampedToBand(t *testing.T) {
	history := []float64{10, 10, 10, 10, 10, 10, 10, 100}
	got, err := Predict(history, 0)
	require.NoError(t, err)

	mean, sd := MeanStdDev(history)
	assert.LessOrEqual(t, got, mean+2*sd)
	assert.GreaterOrEqual(t, got, mean-2*sd)
}

func TestPredict_Floor(t *testing.T) {
	falling := []float64{5, 4, 3, 2, 1}

	got, err := Predict(falling, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 0.0)

	got, err = Predict(falling, 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	// a floor above the band wins
	got, err = Predict(falling, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)
}

func TestLinearFit(t *testing.T) {
	slope, intercept := LinearFit([]float64{1, 3, 5, 7})
	assert.InDelta(t, 2, slope, 1e-9)
	assert.InDelta(t, 1, intercept, 1e-9)

	slope, intercept = LinearFit([]float64{4})
	assert.Zero(t, slope)
	assert.Equal(t, 4.0, intercept)

	slope, intercept = LinearFit(nil)
	assert.Zero(t, slope)
	assert.Zero(t, intercept)
}

func TestMeanStdDev(t *testing.T) {
	mean, sd := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, mean, 1e-9)
	assert.InDelta(t, 2, sd, 1e-9)
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name    string
		history []float64
		window  int
		want    models.TrendDirection
	}{
		{"rising", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 3, models.TrendRising},
		{"falling", []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 3, models.TrendFalling},
		{"within deadband", []float64{50, 51, 50, 52, 51, 50}, 3, models.TrendStable},
		{"window shrinks on short series", []float64{1, 2, 9}, 10, models.TrendRising},
		{"single sample", []float64{42}, 3, models.TrendStable},
		{"empty", nil, 3, models.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trend(tt.history, tt.window, DefaultTrendDeadband))
		})
	}
}

func TestTimeToThreshold(t *testing.T) {
	d, ok := TimeToThreshold([]float64{10, 20, 30}, 60, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, 6*time.Second, d)

	_, ok = TimeToThreshold([]float64{30, 30, 30}, 60, 2*time.Second)
	assert.False(t, ok, "flat series never reaches the limit")

	_, ok = TimeToThreshold([]float64{30, 20, 10}, 60, 2*time.Second)
	assert.False(t, ok, "falling series")

	_, ok = TimeToThreshold([]float64{50, 60, 70}, 60, 2*time.Second)
	assert.False(t, ok, "already above the limit")

	_, ok = TimeToThreshold([]float64{10}, 60, 2*time.Second)
	assert.False(t, ok)
}
