package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/s8-co2-bridge/internal/constants"
	"github.com/benmeehan/s8-co2-bridge/internal/metrics_collectors"
	"github.com/benmeehan/s8-co2-bridge/internal/models"
	"github.com/benmeehan/s8-co2-bridge/internal/registry"
	"github.com/benmeehan/s8-co2-bridge/internal/services"
	"github.com/benmeehan/s8-co2-bridge/internal/state_managers"
	"github.com/benmeehan/s8-co2-bridge/internal/utils"
	"github.com/benmeehan/s8-co2-bridge/pkg/mqtt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// ServiceRegistry manages the lifecycle of the bridge services.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	sensor      services.SensorReader
	Logger      zerolog.Logger

	// Shared state read by the health endpoint
	state   *state_managers.SensorStateManager
	bus     *services.BusPublisher
	monitor *services.MonitorService
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, sensor services.SensorReader, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]registry.Service),
		mqttClient: mqttClient,
		sensor:     sensor,
		Logger:     logger,
		state:      state_managers.NewSensorStateManager(logger),
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Services returns the registered service names in start order.
func (sr *ServiceRegistry) Services() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices builds the metrics server, the bus publisher and the poll
// loop from the configuration. They start in that order and stop in reverse,
// so the loop stops before the bus announces the bridge offline.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	if sr.monitor != nil {
		return errors.New("services are already registered")
	}

	var extra []prometheus.Collector
	if config.Metrics.HostMetrics {
		extra = append(extra, metrics_collectors.NewHostCollector(
			sr.Logger.With().Str("component", "host_metrics").Logger(),
			constants.HostMetricsTimeout,
			metrics_collectors.DefaultHostCollectors()...,
		))
	}
	metricsRegistry := metrics_collectors.NewRegistry(extra...)

	sr.bus = services.NewBusPublisher(
		config.Topic(constants.TopicOnline),
		config.MQTT.BackoffBase,
		config.MQTT.BackoffMax,
		constants.DefaultConnectTimeout,
		constants.DefaultPublishTimeout,
		constants.DefaultShutdownTimeout,
		constants.DefaultPublishQueue,
		sr.mqttClient,
		sr.Logger.With().Str("service", "bus").Logger(),
	)

	sr.monitor = services.NewMonitorService(
		config.MQTT.TopicPrefix,
		config.PollInterval,
		sr.sensor,
		sr.state,
		metricsRegistry,
		sr.bus,
		sr.Logger.With().Str("service", "monitor").Logger(),
	)

	metricsServer := services.NewMetricsServer(
		fmt.Sprintf(":%d", config.Metrics.Port),
		constants.DefaultShutdownTimeout,
		metricsRegistry.Handler(),
		sr.Health,
		sr.Logger.With().Str("service", "metrics").Logger(),
	)

	sr.RegisterService("metrics", metricsServer)
	sr.RegisterService("bus", sr.bus)
	sr.RegisterService("monitor", sr.monitor)

	sr.Logger.Info().Msgf("Registered services in order: %v", sr.serviceKeys)
	return nil
}

// Health combines the loop, bus and sensor state into one report.
func (sr *ServiceRegistry) Health() models.Health {
	health := models.Health{
		LoopState: services.LoopStarting.String(),
		BusState:  services.BusDisconnected.String(),
	}
	if sr.monitor != nil {
		health.LoopState = sr.monitor.LoopState().String()
	}
	if sr.bus != nil {
		health.BusState = sr.bus.State().String()
	}
	sr.state.Health(&health)
	return health
}
