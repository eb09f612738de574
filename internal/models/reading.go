package models

import "time"

// Reading is a single CO2 concentration sample taken from the sensor.
type Reading struct {
	PPM       int       `json:"ppm"`
	Timestamp time.Time `json:"timestamp"`
}

// Band is a named severity range of CO2 concentration.
// Max is inclusive; an Unbounded band has no upper limit.
type Band struct {
	Name        string `json:"name"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Unbounded   bool   `json:"unbounded"`
	Description string `json:"description"`
}

// Contains reports whether ppm falls inside the band.
func (b Band) Contains(ppm int) bool {
	if ppm < b.Min {
		return false
	}
	return b.Unbounded || ppm <= b.Max
}
