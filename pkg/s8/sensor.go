package s8

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

// ErrSensorUnavailable is returned for any failure to obtain a valid reading.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Port is the serial transport used by the sensor.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Opener opens a serial port from its configuration.
type Opener func(cfg *serial.Config) (Port, error)

// OpenSerialPort opens a real serial device.
func OpenSerialPort(cfg *serial.Config) (Port, error) {
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Sensor reads CO2 concentration from a Senseair S8 over a serial port.
// The port is opened lazily and reopened on the next call after any failure.
type Sensor struct {
	portName    string
	address     byte
	readTimeout time.Duration
	settleDelay time.Duration
	maxPPM      int
	open        Opener
	logger      zerolog.Logger

	mu   sync.Mutex
	port Port
}

// Option customises a Sensor.
type Option func(*Sensor)

// WithOpener replaces the serial opener.
func WithOpener(open Opener) Option {
	return func(s *Sensor) { s.open = open }
}

// WithSettleDelay sets the pause after flushing and after writing the request.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Sensor) { s.settleDelay = d }
}

// WithMaxPPM sets the largest accepted reading.
func WithMaxPPM(ppm int) Option {
	return func(s *Sensor) { s.maxPPM = ppm }
}

// NewSensor creates a new Sensor on portName.
func NewSensor(portName string, readTimeout time.Duration, logger zerolog.Logger, opts ...Option) *Sensor {
	s := &Sensor{
		portName:    portName,
		address:     DefaultAddress,
		readTimeout: readTimeout,
		settleDelay: 100 * time.Millisecond,
		maxPPM:      DefaultMaxPPM,
		open:        OpenSerialPort,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the current CO2 concentration in ppm.
func (s *Sensor) Read(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}

	ppm, err := s.read(ctx)
	if err != nil {
		s.invalidate()
		return 0, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}
	return ppm, nil
}

func (s *Sensor) read(ctx context.Context) (int, error) {
	if s.port == nil {
		port, err := s.open(&serial.Config{
			Name:        s.portName,
			Baud:        BaudRate,
			ReadTimeout: s.readTimeout,
			Size:        8,
			Parity:      serial.ParityNone,
			StopBits:    serial.Stop1,
		})
		if err != nil {
			return 0, fmt.Errorf("open %s: %w", s.portName, err)
		}
		s.port = port
		s.logger.Info().Str("port", s.portName).Msg("Connected to sensor")
	}

	if err := s.port.Flush(); err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	if err := s.pause(ctx); err != nil {
		return 0, err
	}

	request := readCO2Request(s.address)
	s.logger.Debug().Hex("request", request).Msg("Sending command")
	if _, err := s.port.Write(request); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	if err := s.pause(ctx); err != nil {
		return 0, err
	}

	response := make([]byte, responseLength)
	n, err := io.ReadFull(s.port, response)
	s.logger.Debug().Hex("response", response[:n]).Int("bytes", n).Msg("Received response")
	if err != nil {
		return 0, fmt.Errorf("read after %d bytes: %w", n, err)
	}

	ppm, err := parseCO2Response(s.address, response)
	if err != nil {
		return 0, err
	}
	if ppm > s.maxPPM {
		return 0, fmt.Errorf("reading %d ppm out of range", ppm)
	}
	return ppm, nil
}

func (s *Sensor) pause(ctx context.Context) error {
	if s.settleDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(s.settleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// invalidate drops the current port so the next Read reopens it.
func (s *Sensor) invalidate() {
	if s.port == nil {
		return
	}
	if err := s.port.Close(); err != nil {
		s.logger.Debug().Err(err).Str("port", s.portName).Msg("Failed to close serial port")
	}
	s.port = nil
}

// Close releases the serial port.
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.logger.Debug().Str("port", s.portName).Msg("Serial port closed")
	return err
}
