package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benmeehan/s8-co2-bridge/internal/constants"
	"github.com/benmeehan/s8-co2-bridge/internal/models"
	"github.com/benmeehan/s8-co2-bridge/internal/state_managers"
	"github.com/rs/zerolog"
)

// SensorReader reads the current CO2 concentration.
type SensorReader interface {
	Read(ctx context.Context) (int, error)
	Close() error
}

// Publisher queues messages for the bus.
type Publisher interface {
	Publish(topic, payload string, retained bool) error
}

// MetricsObserver receives every successful poll cycle.
type MetricsObserver interface {
	Observe(snapshot models.Snapshot)
}

// LoopState is the state of the poll loop.
type LoopState int32

const (
	LoopStarting LoopState = iota
	LoopRunning
	LoopDegraded
)

func (s LoopState) String() string {
	switch s {
	case LoopStarting:
		return "STARTING"
	case LoopRunning:
		return "RUNNING"
	case LoopDegraded:
		return "DEGRADED"
	default:
		return "UNKNOWN"
	}
}

// MonitorService polls the sensor on a fixed interval and drives the metrics
// registry and the bus. Neither sink can stop the loop.
type MonitorService struct {
	// Configuration fields
	interval      time.Duration
	onlineTopic   string
	detectedTopic string
	levelTopic    string
	peakTopic     string

	// Dependencies
	sensor    SensorReader
	state     *state_managers.SensorStateManager
	metrics   MetricsObserver
	publisher Publisher
	logger    zerolog.Logger

	loopState atomic.Int32

	// Internal state management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMonitorService initializes a new MonitorService.
func NewMonitorService(
	topicPrefix string,
	interval time.Duration,
	sensor SensorReader,
	state *state_managers.SensorStateManager,
	metrics MetricsObserver,
	publisher Publisher,
	logger zerolog.Logger,
) *MonitorService {
	prefix := strings.TrimRight(topicPrefix, "/")
	return &MonitorService{
		interval:      interval,
		onlineTopic:   prefix + constants.TopicOnline,
		detectedTopic: prefix + constants.TopicDetected,
		levelTopic:    prefix + constants.TopicLevel,
		peakTopic:     prefix + constants.TopicPeak,
		sensor:        sensor,
		state:         state,
		metrics:       metrics,
		publisher:     publisher,
		logger:        logger,
	}
}

// LoopState returns the current loop state.
func (m *MonitorService) LoopState() LoopState {
	return LoopState(m.loopState.Load())
}

// Start launches the poll loop in a separate goroutine. The first poll runs immediately.
func (m *MonitorService) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		m.logger.Warn().Msg("MonitorService is already running")
		return errors.New("monitor service is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.loopState.Store(int32(LoopStarting))

	ctx := m.ctx
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runPollLoop(ctx)
	}()

	m.logger.Info().Dur("interval", m.interval).Str("topic", m.onlineTopic).Msg("MonitorService started")
	return nil
}

// Stop ends the poll loop and releases the sensor.
func (m *MonitorService) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		m.logger.Warn().Msg("MonitorService is not running")
		return errors.New("monitor service is not running")
	}

	m.cancel()
	m.wg.Wait()
	m.ctx = nil
	m.cancel = nil

	if err := m.sensor.Close(); err != nil {
		m.logger.Error().Err(err).Msg("Failed to close sensor")
		return err
	}

	m.logger.Info().Msg("MonitorService stopped")
	return nil
}

func (m *MonitorService) runPollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Poll(ctx)
	for {
		select {
		case <-ticker.C:
			m.Poll(ctx)
		case <-ctx.Done():
			m.logger.Info().Msg("MonitorService stopping gracefully")
			return
		}
	}
}

// Poll runs a single poll cycle. A read is bounded by the poll interval.
func (m *MonitorService) Poll(ctx context.Context) {
	readCtx, cancel := context.WithTimeout(ctx, m.interval)
	ppm, err := m.sensor.Read(readCtx)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.handleReadFailure(err)
		return
	}

	snapshot := m.state.RecordReading(models.Reading{PPM: ppm, Timestamp: time.Now()})
	if prev := m.transition(LoopRunning); prev == LoopDegraded {
		m.logger.Info().Int("ppm", ppm).Msg("Sensor recovered")
	}

	m.logger.Info().
		Int("ppm", ppm).
		Str("level", snapshot.Band.Name).
		Str("description", snapshot.Band.Description).
		Msg("CO2 reading")

	m.metrics.Observe(snapshot)

	level := strconv.Itoa(ppm)
	m.publish(m.detectedTopic, snapshot.Detection, false)
	m.publish(m.levelTopic, level, false)
	m.publish(m.peakTopic, strconv.Itoa(snapshot.Peak), true)
	m.publish(m.onlineTopic, constants.StatusOnline, true)

	if snapshot.PeakChanged {
		m.logger.Info().Int("peak", snapshot.Peak).Str("topic", m.peakTopic).Msg("New peak value")
	}
}

func (m *MonitorService) handleReadFailure(err error) {
	failures := m.state.RecordFailure()
	if prev := m.transition(LoopDegraded); prev != LoopDegraded {
		m.logger.Warn().Str("from", prev.String()).Msg("Sensor offline, entering degraded mode")
	}

	m.logger.Error().
		Err(err).
		Str("operation", "read").
		Int("consecutive_failures", failures).
		Dur("next_retry", m.interval).
		Msg("Failed to read CO2 sensor")

	m.publish(m.onlineTopic, constants.StatusOffline, true)
}

func (m *MonitorService) transition(to LoopState) LoopState {
	return LoopState(m.loopState.Swap(int32(to)))
}

// publish hands a message to the bus. Failures are logged by the publisher
// and never interrupt the cycle.
func (m *MonitorService) publish(topic, payload string, retained bool) {
	if err := m.publisher.Publish(topic, payload, retained); err != nil {
		m.logger.Debug().Err(err).Str("topic", topic).Msg("Message not queued")
	}
}
