package state_managers

import (
	"sync"
	"time"

	"github.com/benmeehan/s8-co2-bridge/internal/classifier"
	"github.com/benmeehan/s8-co2-bridge/internal/models"
	"github.com/rs/zerolog"
)

// SensorStateManager owns the process-wide sensor state shared between the
// poll loop and the metrics endpoint.
type SensorStateManager struct {
	peak   *PeakTracker
	logger zerolog.Logger

	mu       sync.RWMutex
	online   bool
	last     *models.Snapshot
	failures int
}

// NewSensorStateManager initializes a new SensorStateManager.
func NewSensorStateManager(logger zerolog.Logger) *SensorStateManager {
	return &SensorStateManager{
		peak:   NewPeakTracker(),
		logger: logger,
	}
}

// RecordReading classifies the reading, updates the peak and marks the sensor online.
func (sm *SensorStateManager) RecordReading(reading models.Reading) models.Snapshot {
	band := classifier.Classify(reading.PPM)
	peak, changed := sm.peak.Update(reading.PPM)

	snapshot := models.Snapshot{
		Reading:     reading,
		Band:        band,
		Detection:   classifier.Detect(reading.PPM),
		Peak:        peak,
		PeakChanged: changed,
		Alerting:    classifier.IsAlerting(band),
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.online && sm.failures > 0 {
		sm.logger.Info().Int("failed_reads", sm.failures).Msg("Sensor back online")
	}
	sm.online = true
	sm.failures = 0
	sm.last = &snapshot
	return snapshot
}

// RecordFailure marks the sensor offline and returns the consecutive failure count.
// The last successful snapshot is kept.
func (sm *SensorStateManager) RecordFailure() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.online = false
	sm.failures++
	return sm.failures
}

// Online reports the current connectivity status.
func (sm *SensorStateManager) Online() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.online
}

// Last returns a copy of the last successful snapshot, if any.
func (sm *SensorStateManager) Last() (models.Snapshot, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.last == nil {
		return models.Snapshot{}, false
	}
	return *sm.last, true
}

// Health fills the sensor part of the health report.
func (sm *SensorStateManager) Health(h *models.Health) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	h.Online = sm.online
	h.PeakPPM = sm.peak.Peak()
	if sm.last != nil {
		ppm := sm.last.Reading.PPM
		h.LastReadingPPM = &ppm
		h.LastReadingAt = sm.last.Reading.Timestamp.UTC().Format(time.RFC3339)
	}
}
