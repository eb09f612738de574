package constants

import "time"

// Topic suffixes appended to the configured topic prefix.
const (
	TopicOnline   = "/online"
	TopicDetected = "/detected"
	TopicLevel    = "/level"
	TopicPeak     = "/peak"
)

// Online status payloads
const (
	StatusOnline  = "1"
	StatusOffline = "0"
)

// Detection status payloads
const (
	DetectionNormal   = "NORMAL"
	DetectionAbnormal = "ABNORMAL"
)

// QOSAtLeastOnce is used for every bus message.
const QOSAtLeastOnce byte = 1

const (
	// DetectionThresholdPPM is the highest reading still reported as NORMAL on the detected topic.
	DetectionThresholdPPM = 1000

	// MaxReadingPPM is the upper end of the sensor's measurement range.
	MaxReadingPPM = 10000
)

const (
	DefaultMQTTHost        = "localhost"
	DefaultMQTTPort        = 1883
	DefaultTopicPrefix     = "sensors/co2"
	DefaultClientID        = "s8-co2-bridge"
	DefaultKeepAlive       = 60 * time.Second
	DefaultBackoffBase     = 1 * time.Second
	DefaultBackoffMax      = 60 * time.Second
	DefaultSerialPort      = "/dev/ttyAMA0"
	DefaultSerialTimeout   = 500 * time.Millisecond
	DefaultPrometheusPort  = 9100
	DefaultPollInterval    = 10 * time.Second
	DefaultConfigFile      = "configs/config.yaml"
	DefaultEnvFile         = ".env"
	DefaultLogLevel        = "info"
	DefaultPublishQueue    = 32
	DefaultConnectTimeout  = 10 * time.Second
	DefaultPublishTimeout  = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second

	// HostMetricsTimeout bounds host collection during a scrape.
	HostMetricsTimeout = 2 * time.Second
)
