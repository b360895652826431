package models

// TrendDirection labels a moving-average comparison
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendStable  TrendDirection = "stable"
)

// Forecast is the predictor output for one metric series
type Forecast struct {
	Metric         string         `json:"metric"`
	Samples        int            `json:"samples"`
	Predicted      float64        `json:"predicted"`
	Trend          TrendDirection `json:"trend"`
	SecondsToLimit float64        `json:"seconds_to_limit,omitempty"`
	WillCrossLimit bool           `json:"will_cross_limit"`
	Limit          float64        `json:"limit,omitempty"`
}
