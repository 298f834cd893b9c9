package motility

// TrackMetrics is the per-track row of a motility analysis. Distances are
// micron-scaled; LIN is computed from the unscaled pixel path so it stays
// a pure ratio in [0, 1].
type TrackMetrics struct {
	TrackID          int     `json:"track_id"`
	Length           int     `json:"length"`
	Duration         float64 `json:"duration"`
	TotalDistance    float64 `json:"total_distance"`
	StraightDistance float64 `json:"straight_distance"`
	VCL              float64 `json:"vcl"`
	VSL              float64 `json:"vsl"`
	VAP              float64 `json:"vap"`
	LIN              float64 `json:"lin"`
	IsMotile         bool    `json:"is_motile"`
}

// Result is the aggregate motility snapshot for one analysis run.
// Velocity fields are column means over the per-track table; Wobble and
// Progression are ratios of those aggregate means, not means of per-track
// ratios. Immutable once returned.
type Result struct {
	TotalCount      int     `json:"total_count"`
	MotileCount     int     `json:"motile_count"`
	ImmotileCount   int     `json:"immotile_count"`
	MotilityPercent float64 `json:"motility_percent"`
	VCL             float64 `json:"vcl"` // curvilinear velocity, µm/s
	VSL             float64 `json:"vsl"` // straight-line velocity, µm/s
	VAP             float64 `json:"vap"` // average path velocity, µm/s
	LIN             float64 `json:"lin"` // linearity, mean of per-track ratios
	Wobble          float64 `json:"wobble"`      // VAP/VCL
	Progression     float64 `json:"progression"` // VSL/VAP
	BCF             float64 `json:"bcf"`         // beat-cross frequency, Hz

	Tracks []TrackMetrics `json:"tracks"`
}

// ClassCounts buckets tracks into WHO-style motility grades.
type ClassCounts struct {
	Rapid    int `json:"rapid"`
	Medium   int `json:"medium"`
	Slow     int `json:"slow"`
	Immotile int `json:"immotile"`
}
