// Package classifier maps CO2 concentrations to severity bands.
package classifier

import (
	"github.com/benmeehan/s8-co2-bridge/internal/constants"
	"github.com/benmeehan/s8-co2-bridge/internal/models"
)

// Band names
const (
	Great   = "GREAT"
	Normal  = "NORMAL"
	Sleepy  = "SLEEPY"
	Warning = "WARNING"
	Alert   = "ALERT"
)

// bands is ordered by Min and partitions the non-negative integers.
// The last entry must be unbounded.
var bands = []models.Band{
	{Name: Great, Min: 0, Max: 450, Description: "Same as outdoor level"},
	{Name: Normal, Min: 451, Max: 1000, Description: "Normal indoor level"},
	{Name: Sleepy, Min: 1001, Max: 2000, Description: "May cause drowsiness"},
	{Name: Warning, Min: 2001, Max: 5000, Description: "Warning level - Poor air quality"},
	{Name: Alert, Min: 5001, Unbounded: true, Description: "ALERT - Dangerous level"},
}

// alerting holds the bands that increment the alert counter.
var alerting = map[string]struct{}{
	Warning: {},
	Alert:   {},
}

// Bands returns a copy of the band table in ascending order.
func Bands() []models.Band {
	out := make([]models.Band, len(bands))
	copy(out, bands)
	return out
}

// Classify returns the band containing ppm. Negative values are clamped to
// zero so the lookup stays total.
func Classify(ppm int) models.Band {
	if ppm < 0 {
		ppm = 0
	}
	for i := len(bands) - 1; i >= 0; i-- {
		if ppm >= bands[i].Min {
			return bands[i]
		}
	}
	return bands[0]
}

// IsAlerting reports whether readings in the band count as alerts.
func IsAlerting(band models.Band) bool {
	_, ok := alerting[band.Name]
	return ok
}

// Detect returns the coarse two-state detection status for ppm.
func Detect(ppm int) string {
	if ppm <= constants.DetectionThresholdPPM {
		return constants.DetectionNormal
	}
	return constants.DetectionAbnormal
}
