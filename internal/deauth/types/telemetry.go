package types

import "time"

// DistanceSample is one proximity reading pushed by the ranging companion.
type DistanceSample struct {
	Meters     float64
	ReceivedAt time.Time
}

// Measurement is a sample as exposed by the status endpoint.
type Measurement struct {
	Distance          float64  `json:"distance"`
	Timestamp         int64    `json:"timestamp"`                     // unix ms
	TimeSincePrevious *float64 `json:"time_since_previous,omitempty"` // seconds; nil for the first sample
}

type Statistics struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// StatusSnapshot is a point-in-time view of the telemetry state.
type StatusSnapshot struct {
	TotalMeasurements    int           `json:"total_measurements"`
	MostRecent           *float64      `json:"most_recent"`
	Average              *float64      `json:"average"`
	LastTime             *int64        `json:"last_time"` // unix ms
	RecentMeasurements   []float64     `json:"recent_measurements"`
	AllMeasurements      []float64     `json:"all_measurements"`
	MeasurementsWithTime []Measurement `json:"measurements_with_time"`
	Statistics           *Statistics   `json:"statistics,omitempty"`

	Epoch           uint64  `json:"epoch"`
	ThresholdMeters float64 `json:"threshold_m"`
	TimeoutSeconds  float64 `json:"timeout_s"`
	ServerTime      string  `json:"server_time"`
}
