package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/s8-co2-bridge/internal/classifier"
	"github.com/benmeehan/s8-co2-bridge/internal/constants"
	"github.com/benmeehan/s8-co2-bridge/internal/service_registry"
	"github.com/benmeehan/s8-co2-bridge/internal/utils"
	"github.com/benmeehan/s8-co2-bridge/pkg/file"
	"github.com/benmeehan/s8-co2-bridge/pkg/mqtt"
	"github.com/benmeehan/s8-co2-bridge/pkg/s8"
	"github.com/google/uuid"
)

func main() {
	// Bootstrap logger until the configured level is known
	log, _ := utils.NewLogger(os.Stdout, constants.DefaultLogLevel)

	fileClient := file.NewFileService()

	// Load .env before reading the environment
	if loaded, err := utils.LoadEnvFile(constants.DefaultEnvFile, fileClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to load env file")
	} else if loaded {
		log.Info().Str("file", constants.DefaultEnvFile).Msg("Loaded environment file")
	}

	configFile := constants.DefaultConfigFile
	if v, ok := os.LookupEnv("CONFIG_FILE"); ok && v != "" {
		configFile = v
	}

	config, err := utils.LoadConfig(configFile, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("file", configFile).Msg("Failed to load configuration")
	}

	logger, validLevel := utils.NewLogger(os.Stdout, config.LogLevel)
	if !validLevel {
		logger.Warn().Str("log_level", config.LogLevel).Msg("Unknown log level, using info")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	clientID := config.MQTT.ClientID + "-" + uuid.New().String()

	logger.Info().
		Str("broker", config.MQTT.Host).
		Int("broker_port", config.MQTT.Port).
		Str("client_id", clientID).
		Str("topic_prefix", config.MQTT.TopicPrefix).
		Str("serial_port", config.Sensor.Port).
		Dur("serial_timeout", config.Sensor.Timeout).
		Int("prometheus_port", config.Metrics.Port).
		Dur("poll_interval", config.PollInterval).
		Bool("host_metrics", config.Metrics.HostMetrics).
		Msg("Configuration loaded")

	for _, band := range classifier.Bands() {
		event := logger.Info().Str("level", band.Name).Int("min_ppm", band.Min)
		if !band.Unbounded {
			event = event.Int("max_ppm", band.Max)
		}
		event.Str("description", band.Description).Msg("CO2 band")
	}

	// The broker publishes "0" on the online topic if the bridge vanishes
	mqttClient := mqtt.NewMqttService(mqtt.BrokerOptions{
		Host:           config.MQTT.Host,
		Port:           config.MQTT.Port,
		ClientID:       clientID,
		Username:       config.MQTT.Username,
		Password:       config.MQTT.Password,
		KeepAlive:      config.MQTT.KeepAlive,
		ConnectTimeout: constants.DefaultConnectTimeout,
		WillTopic:      config.Topic(constants.TopicOnline),
		WillPayload:    constants.StatusOffline,
		WillQOS:        constants.QOSAtLeastOnce,
		WillRetained:   true,
	}, logger.With().Str("component", "mqtt").Logger())

	sensor := s8.NewSensor(
		config.Sensor.Port,
		config.Sensor.Timeout,
		logger.With().Str("component", "s8").Logger(),
		s8.WithMaxPPM(constants.MaxReadingPPM),
	)

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, sensor, logger)

	if err := serviceRegistry.RegisterServices(config); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stopCh

	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Shutdown completed with errors")
		os.Exit(1)
	}
	logger.Info().Msg("Shutdown complete")
}
