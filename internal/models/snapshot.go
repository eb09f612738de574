package models

// Snapshot is the derived state of one successful poll cycle.
type Snapshot struct {
	Reading     Reading `json:"reading"`
	Band        Band    `json:"band"`
	Detection   string  `json:"detection"`
	Peak        int     `json:"peak"`
	PeakChanged bool    `json:"peak_changed"`
	Alerting    bool    `json:"alerting"`
}

// Health is the body served on the health endpoint.
type Health struct {
	LoopState      string `json:"loop_state"`
	BusState       string `json:"bus_state"`
	Online         bool   `json:"online"`
	LastReadingPPM *int   `json:"last_reading_ppm"`
	PeakPPM        int    `json:"peak_ppm"`
	LastReadingAt  string `json:"last_reading_at,omitempty"`
}
