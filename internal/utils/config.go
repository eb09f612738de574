package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benmeehan/s8-co2-bridge/internal/constants"
	"github.com/benmeehan/s8-co2-bridge/pkg/file"
	"github.com/joho/godotenv"
)

// Config represents the runtime configuration of the bridge.
type Config struct {
	MQTT struct {
		Host        string        `yaml:"host"`         // MQTT broker host
		Port        int           `yaml:"port"`         // MQTT broker port
		TopicPrefix string        `yaml:"topic_prefix"` // Prefix for all published topics
		ClientID    string        `yaml:"client_id"`    // MQTT client ID prefix
		Username    string        `yaml:"username"`     // Optional broker username
		Password    string        `yaml:"password"`     // Optional broker password
		KeepAlive   time.Duration `yaml:"keep_alive"`   // Keep-alive interval, bounds last-will latency
		BackoffBase time.Duration `yaml:"backoff_base"` // Initial reconnect delay
		BackoffMax  time.Duration `yaml:"backoff_max"`  // Maximum reconnect delay
	} `yaml:"mqtt"`

	Sensor struct {
		Port    string        `yaml:"port"`    // Serial device of the S8 sensor
		Timeout time.Duration `yaml:"timeout"` // Serial read timeout
	} `yaml:"sensor"`

	Metrics struct {
		Port        int  `yaml:"port"`         // Port of the /metrics listener
		HostMetrics bool `yaml:"host_metrics"` // Expose host cpu, memory and disk gauges
	} `yaml:"metrics"`

	PollInterval time.Duration `yaml:"poll_interval"` // Interval between sensor reads
	LogLevel     string        `yaml:"log_level"`     // zerolog level name
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	var c Config
	c.MQTT.Host = constants.DefaultMQTTHost
	c.MQTT.Port = constants.DefaultMQTTPort
	c.MQTT.TopicPrefix = constants.DefaultTopicPrefix
	c.MQTT.ClientID = constants.DefaultClientID
	c.MQTT.KeepAlive = constants.DefaultKeepAlive
	c.MQTT.BackoffBase = constants.DefaultBackoffBase
	c.MQTT.BackoffMax = constants.DefaultBackoffMax
	c.Sensor.Port = constants.DefaultSerialPort
	c.Sensor.Timeout = constants.DefaultSerialTimeout
	c.Metrics.Port = constants.DefaultPrometheusPort
	c.Metrics.HostMetrics = true
	c.PollInterval = constants.DefaultPollInterval
	c.LogLevel = constants.DefaultLogLevel
	return &c
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadEnvFile(filename string, fileClient file.FileOperations) (bool, error) {
	exists, err := fileClient.IsFileExists(filename)
	if err != nil || !exists {
		return false, err
	}
	if err := godotenv.Load(filename); err != nil {
		return false, fmt.Errorf("failed to load env file %s: %w", filename, err)
	}
	return true, nil
}

// LoadConfig loads the optional YAML configuration file, applies environment
// overrides and validates the result.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()

	if filename != "" {
		exists, err := fileClient.IsFileExists(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if exists {
			if err := fileClient.ReadYamlFile(filename, config); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
			}
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s value %q: %w", key, v, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s value %q: %w", key, v, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s value %q: %w", key, v, err))
				return
			}
			*dst = b
		}
	}

	str("MQTT_HOST", &c.MQTT.Host)
	num("MQTT_PORT", &c.MQTT.Port)
	str("MQTT_TOPIC_PREFIX", &c.MQTT.TopicPrefix)
	str("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	str("MQTT_USERNAME", &c.MQTT.Username)
	str("MQTT_PASSWORD", &c.MQTT.Password)
	dur("MQTT_KEEPALIVE", &c.MQTT.KeepAlive)
	dur("MQTT_BACKOFF_BASE", &c.MQTT.BackoffBase)
	dur("MQTT_BACKOFF_MAX", &c.MQTT.BackoffMax)
	str("SERIAL_PORT", &c.Sensor.Port)
	dur("SERIAL_TIMEOUT", &c.Sensor.Timeout)
	num("PROMETHEUS_PORT", &c.Metrics.Port)
	flag("HOST_METRICS_ENABLED", &c.Metrics.HostMetrics)
	dur("POLL_INTERVAL", &c.PollInterval)
	str("LOG_LEVEL", &c.LogLevel)

	return errors.Join(errs...)
}

// ParseDuration accepts a Go duration ("10s", "1m30s") or a whole number of seconds.
func ParseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.MQTT.Host) == "" {
		errs = append(errs, errors.New("mqtt host must not be empty"))
	}
	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		errs = append(errs, fmt.Errorf("mqtt port %d out of range", c.MQTT.Port))
	}
	if strings.Trim(c.MQTT.TopicPrefix, "/ ") == "" {
		errs = append(errs, errors.New("topic prefix must not be empty"))
	}
	if c.MQTT.KeepAlive <= 0 {
		errs = append(errs, errors.New("mqtt keep alive must be positive"))
	}
	if c.MQTT.BackoffBase <= 0 || c.MQTT.BackoffMax <= 0 {
		errs = append(errs, errors.New("mqtt backoff delays must be positive"))
	} else if c.MQTT.BackoffBase > c.MQTT.BackoffMax {
		errs = append(errs, fmt.Errorf("mqtt backoff base %s exceeds max %s", c.MQTT.BackoffBase, c.MQTT.BackoffMax))
	}
	if strings.TrimSpace(c.Sensor.Port) == "" {
		errs = append(errs, errors.New("serial port must not be empty"))
	}
	if c.Sensor.Timeout <= 0 {
		errs = append(errs, errors.New("serial timeout must be positive"))
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("prometheus port %d out of range", c.Metrics.Port))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	return errors.Join(errs...)
}

// Topic joins the configured prefix with a topic suffix such as "/online".
func (c *Config) Topic(suffix string) string {
	return strings.TrimRight(c.MQTT.TopicPrefix, "/") + suffix
}
