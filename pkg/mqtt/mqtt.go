package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTClient defines the interface for an MQTT client.
type MQTTClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
	IsConnectionOpen() bool
}

// BrokerOptions describes how to reach the broker and what to leave behind
// if the connection drops without a clean disconnect.
type BrokerOptions struct {
	Host           string
	Port           int
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration

	WillTopic    string
	WillPayload  string
	WillQOS      byte
	WillRetained bool
}

// BrokerURL returns the tcp URL of the broker.
func (o BrokerOptions) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", o.Host, o.Port)
}

// MqttService provides methods for MQTT operations.
type MqttService struct {
	client MQTTClient
	logger zerolog.Logger
}

// NewClientOptions builds the paho options. Reconnection is left to the
// caller, so the client never reconnects on its own.
func NewClientOptions(o BrokerOptions, logger zerolog.Logger) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL())
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	opts.SetKeepAlive(o.KeepAlive)
	opts.SetConnectTimeout(o.ConnectTimeout)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	if o.WillTopic != "" {
		opts.SetWill(o.WillTopic, o.WillPayload, o.WillQOS, o.WillRetained)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info().Str("broker", o.BrokerURL()).Msg("Successfully connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Str("broker", o.BrokerURL()).Msg("Connection to MQTT broker lost")
	})

	return opts
}

// NewMqttService creates a new MqttService with a client built from o.
// No connection is attempted.
func NewMqttService(o BrokerOptions, logger zerolog.Logger) *MqttService {
	return &MqttService{
		client: mqtt.NewClient(NewClientOptions(o, logger)),
		logger: logger,
	}
}

// Connect connects to the MQTT broker.
func (s *MqttService) Connect() mqtt.Token {
	return s.client.Connect()
}

// Publish sends a message to the specified topic.
func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

// Disconnect gracefully disconnects the MQTT client.
func (s *MqttService) Disconnect(quiesce uint) {
	s.client.Disconnect(quiesce)
}

// IsConnectionOpen reports whether the client currently holds a live connection.
func (s *MqttService) IsConnectionOpen() bool {
	return s.client.IsConnectionOpen()
}
