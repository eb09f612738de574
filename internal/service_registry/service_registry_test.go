package service_registry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/s8-co2-bridge/internal/mocks"
	"github.com/benmeehan/s8-co2-bridge/internal/service_registry"
	"github.com/benmeehan/s8-co2-bridge/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (f *fakeService) Start() error {
	*f.events = append(*f.events, "start "+f.name)
	return f.startErr
}

func (f *fakeService) Stop() error {
	*f.events = append(*f.events, "stop "+f.name)
	return f.stopErr
}

func TestStartServices_RollsBackOnFailure(t *testing.T) {
	var events []string
	sr := service_registry.NewServiceRegistry(new(mocks.MockMQTTClient), new(mocks.MockSensorReader), zerolog.Nop())
	sr.RegisterService("a", &fakeService{name: "a", events: &events})
	sr.RegisterService("b", &fakeService{name: "b", events: &events, startErr: errors.New("bind failed")})
	sr.RegisterService("c", &fakeService{name: "c", events: &events})

	err := sr.StartServices()
	require.Error(t, err)
	assert.Equal(t, "failed to start b: bind failed", err.Error())
	assert.Equal(t, []string{"start a", "start b", "stop a"}, events)
}

func TestStopServices_ReverseOrderJoinsErrors(t *testing.T) {
	var events []string
	sr := service_registry.NewServiceRegistry(new(mocks.MockMQTTClient), new(mocks.MockSensorReader), zerolog.Nop())
	sr.RegisterService("a", &fakeService{name: "a", events: &events})
	sr.RegisterService("a", &fakeService{name: "duplicate", events: &events})
	sr.RegisterService("b", &fakeService{name: "b", events: &events, stopErr: errors.New("busy")})

	err := sr.StopServices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop b: busy")
	assert.Equal(t, []string{"stop b", "stop a"}, events)
}

// TestRegisterServices_RunsWithoutBroker wires the real services against an
// unreachable broker and checks the loop still reaches RUNNING.
func TestRegisterServices_RunsWithoutBroker(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Connect").Return(mocks.NewCompletedToken(errors.New("connection refused")))
	client.On("IsConnectionOpen").Return(false)
	client.On("Disconnect", uint(250)).Return()

	sensor := new(mocks.MockSensorReader)
	sensor.On("Read", mock.Anything).Return(650, nil)
	sensor.On("Close").Return(nil)

	config := utils.DefaultConfig()
	config.MQTT.BackoffBase = time.Millisecond
	config.MQTT.BackoffMax = 5 * time.Millisecond
	config.Metrics.Port = 0
	config.Metrics.HostMetrics = false
	config.PollInterval = 20 * time.Millisecond

	sr := service_registry.NewServiceRegistry(client, sensor, zerolog.Nop())
	assert.Equal(t, "STARTING", sr.Health().LoopState)

	require.NoError(t, sr.RegisterServices(config))
	assert.Equal(t, []string{"metrics", "bus", "monitor"}, sr.Services())
	assert.Error(t, sr.RegisterServices(config))

	require.NoError(t, sr.StartServices())
	assert.Eventually(t, func() bool {
		h := sr.Health()
		return h.LoopState == "RUNNING" && h.Online
	}, 2*time.Second, 10*time.Millisecond)

	health := sr.Health()
	require.NotNil(t, health.LastReadingPPM)
	assert.Equal(t, 650, *health.LastReadingPPM)
	assert.Equal(t, 650, health.PeakPPM)
	assert.NotEqual(t, "CONNECTED", health.BusState)

	require.NoError(t, sr.StopServices())
	sensor.AssertCalled(t, "Close")
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
