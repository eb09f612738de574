package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benmeehan/s8-co2-bridge/internal/constants"
	"github.com/benmeehan/s8-co2-bridge/internal/models"
	"github.com/benmeehan/s8-co2-bridge/internal/utils"
	"github.com/benmeehan/s8-co2-bridge/pkg/mqtt"
	"github.com/rs/zerolog"
)

var (
	// ErrBusConnection is returned when the broker cannot be reached.
	ErrBusConnection = errors.New("bus connection error")
	// ErrBusPublish is returned when the broker does not acknowledge a publish.
	ErrBusPublish = errors.New("bus publish error")
	// ErrPublishQueueFull is returned when a message is dropped because the bus worker is behind.
	ErrPublishQueueFull = errors.New("bus publish queue full")
	// ErrPublisherStopped is returned for publishes outside Start/Stop.
	ErrPublisherStopped = errors.New("bus publisher is not running")
)

// BusState is the connection state of the BusPublisher.
type BusState int32

const (
	BusDisconnected BusState = iota
	BusConnecting
	BusConnected
	BusDisconnectedOnError
)

func (s BusState) String() string {
	switch s {
	case BusDisconnected:
		return "DISCONNECTED"
	case BusConnecting:
		return "CONNECTING"
	case BusConnected:
		return "CONNECTED"
	case BusDisconnectedOnError:
		return "DISCONNECTED_ON_ERROR"
	default:
		return "UNKNOWN"
	}
}

// BusPublisher serialises all broker I/O on a single worker. Publishes are
// queued without blocking the caller and retried through reconnects with
// capped exponential backoff until they succeed or the publisher stops.
type BusPublisher struct {
	// Configuration fields
	onlineTopic     string
	qos             byte
	connectTimeout  time.Duration
	publishTimeout  time.Duration
	shutdownTimeout time.Duration
	queueSize       int

	// Dependencies
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger

	// Connection state
	backoff *backoff
	state   atomic.Int32

	// Internal state management
	ctx        context.Context
	cancel     context.CancelFunc
	workerPool *utils.WorkerPool
	mu         sync.Mutex
}

// NewBusPublisher creates a new BusPublisher. onlineTopic receives "1" after
// every successful connect and "0" on shutdown.
func NewBusPublisher(
	onlineTopic string,
	baseDelay time.Duration,
	maxDelay time.Duration,
	connectTimeout time.Duration,
	publishTimeout time.Duration,
	shutdownTimeout time.Duration,
	queueSize int,
	mqttClient mqtt.MQTTClient,
	logger zerolog.Logger,
) *BusPublisher {
	return &BusPublisher{
		onlineTopic:     onlineTopic,
		qos:             constants.QOSAtLeastOnce,
		connectTimeout:  connectTimeout,
		publishTimeout:  publishTimeout,
		shutdownTimeout: shutdownTimeout,
		queueSize:       queueSize,
		mqttClient:      mqttClient,
		logger:          logger,
		backoff:         newBackoff(baseDelay, maxDelay),
	}
}

// State returns the current connection state.
func (p *BusPublisher) State() BusState {
	return BusState(p.state.Load())
}

func (p *BusPublisher) setState(s BusState) {
	prev := BusState(p.state.Swap(int32(s)))
	if prev != s {
		p.logger.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("Bus state changed")
	}
}

// Start makes one connection attempt and starts the worker. A failed attempt
// is retried in the background and does not fail Start.
func (p *BusPublisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		p.logger.Warn().Msg("BusPublisher is already running")
		return errors.New("bus publisher is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.workerPool = utils.NewWorkerPool(1, p.queueSize)

	if err := p.connect(); err != nil {
		delay := p.backoff.Next()
		p.logger.Error().
			Err(err).
			Str("operation", "connect").
			Int("attempt", p.backoff.Attempt()).
			Dur("next_retry", delay).
			Msg("Failed to connect to MQTT broker, continuing without bus")

		ctx := p.ctx
		p.workerPool.TrySubmit(func() {
			if sleepContext(ctx, delay) == nil {
				_ = p.ensureConnected(ctx)
			}
		})
	}

	p.logger.Info().
		Str("online_topic", p.onlineTopic).
		Str("state", p.State().String()).
		Msg("BusPublisher started")
	return nil
}

// Publish queues a message for delivery and returns immediately.
func (p *BusPublisher) Publish(topic, payload string, retained bool) error {
	p.mu.Lock()
	ctx, pool := p.ctx, p.workerPool
	p.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return ErrPublisherStopped
	}

	msg := models.BusMessage{Topic: topic, Payload: payload, QOS: p.qos, Retained: retained}
	if !pool.TrySubmit(func() { p.deliver(ctx, msg) }) {
		p.logger.Warn().
			Str("topic", topic).
			Str("payload", payload).
			Int("queue_size", p.queueSize).
			Msg("Publish queue full, dropping message")
		return fmt.Errorf("%w: %s", ErrPublishQueueFull, topic)
	}
	return nil
}

// deliver publishes msg, reconnecting and backing off until it succeeds or ctx ends.
func (p *BusPublisher) deliver(ctx context.Context, msg models.BusMessage) {
	for {
		if err := p.ensureConnected(ctx); err != nil {
			return
		}

		err := p.publishOnce(msg)
		if err == nil {
			p.backoff.Reset()
			return
		}

		p.setState(BusDisconnectedOnError)
		delay := p.backoff.Next()
		p.logger.Error().
			Err(err).
			Str("operation", "publish").
			Str("topic", msg.Topic).
			Int("attempt", p.backoff.Attempt()).
			Dur("next_retry", delay).
			Msg("Failed to publish message")

		if err := sleepContext(ctx, delay); err != nil {
			return
		}
	}
}

// ensureConnected blocks until the client holds a live connection or ctx ends.
func (p *BusPublisher) ensureConnected(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if p.mqttClient.IsConnectionOpen() {
			p.setState(BusConnected)
			return nil
		}

		err := p.connect()
		if err == nil {
			return nil
		}

		delay := p.backoff.Next()
		p.logger.Error().
			Err(err).
			Str("operation", "connect").
			Int("attempt", p.backoff.Attempt()).
			Dur("next_retry", delay).
			Msg("Failed to connect to MQTT broker")

		if err := sleepContext(ctx, delay); err != nil {
			return err
		}
	}
}

// connect performs one connection attempt and announces the bridge online.
func (p *BusPublisher) connect() error {
	p.setState(BusConnecting)

	token := p.mqttClient.Connect()
	if !token.WaitTimeout(p.connectTimeout) {
		p.setState(BusDisconnectedOnError)
		return fmt.Errorf("%w: connect timed out after %s", ErrBusConnection, p.connectTimeout)
	}
	if err := token.Error(); err != nil {
		p.setState(BusDisconnectedOnError)
		return fmt.Errorf("%w: %v", ErrBusConnection, err)
	}

	p.setState(BusConnected)
	p.backoff.Reset()

	online := models.BusMessage{Topic: p.onlineTopic, Payload: constants.StatusOnline, QOS: p.qos, Retained: true}
	if err := p.publishOnce(online); err != nil {
		p.logger.Error().Err(err).Str("topic", p.onlineTopic).Msg("Failed to publish online status after connect")
	}
	return nil
}

func (p *BusPublisher) publishOnce(msg models.BusMessage) error {
	token := p.mqttClient.Publish(msg.Topic, msg.QOS, msg.Retained, msg.Payload)
	if !token.WaitTimeout(p.publishTimeout) {
		return fmt.Errorf("%w: no acknowledgement for %s within %s", ErrBusPublish, msg.Topic, p.publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBusPublish, msg.Topic, err)
	}

	p.logger.Debug().
		Str("topic", msg.Topic).
		Str("payload", msg.Payload).
		Bool("retained", msg.Retained).
		Msg("Published message")
	return nil
}

// Stop abandons queued messages, announces the bridge offline if still
// connected, and disconnects. Every step is bounded by the shutdown timeout.
func (p *BusPublisher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		p.logger.Warn().Msg("BusPublisher is not running")
		return errors.New("bus publisher is not running")
	}

	p.cancel()

	drained := make(chan struct{})
	go func() {
		p.workerPool.Shutdown()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(p.shutdownTimeout):
		p.logger.Warn().Dur("timeout", p.shutdownTimeout).Msg("Bus worker did not stop in time")
	}

	var err error
	if p.mqttClient.IsConnectionOpen() {
		offline := models.BusMessage{Topic: p.onlineTopic, Payload: constants.StatusOffline, QOS: p.qos, Retained: true}
		if err = p.publishOnce(offline); err != nil {
			p.logger.Error().Err(err).Str("topic", p.onlineTopic).Msg("Failed to publish offline status")
		}
	}
	p.mqttClient.Disconnect(250)
	p.setState(BusDisconnected)

	p.ctx = nil
	p.cancel = nil
	p.logger.Info().Msg("BusPublisher stopped")
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
