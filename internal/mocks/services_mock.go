package mocks

import (
	"context"

	"github.com/benmeehan/s8-co2-bridge/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockSensorReader is a mock implementation of the SensorReader interface
type MockSensorReader struct {
	mock.Mock
}

func (m *MockSensorReader) Read(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSensorReader) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPublisher is a mock implementation of the Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic, payload string, retained bool) error {
	args := m.Called(topic, payload, retained)
	return args.Error(0)
}

// Published returns the payloads published to topic, in order.
func (m *MockPublisher) Published(topic string) []string {
	var payloads []string
	for _, call := range m.Calls {
		if call.Method == "Publish" && call.Arguments.String(0) == topic {
			payloads = append(payloads, call.Arguments.String(1))
		}
	}
	return payloads
}

// MockMetricsObserver is a mock implementation of the MetricsObserver interface
type MockMetricsObserver struct {
	mock.Mock
}

func (m *MockMetricsObserver) Observe(snapshot models.Snapshot) {
	m.Called(snapshot)
}
