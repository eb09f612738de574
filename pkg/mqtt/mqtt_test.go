package mqtt_test

import (
	"testing"
	"time"

	"github.com/benmeehan/s8-co2-bridge/pkg/mqtt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBrokerOptions() mqtt.BrokerOptions {
	return mqtt.BrokerOptions{
		Host:           "broker.local",
		Port:           1883,
		ClientID:       "s8-co2-bridge-test",
		KeepAlive:      30 * time.Second,
		ConnectTimeout: 5 * time.Second,
		WillTopic:      "sensors/co2/online",
		WillPayload:    "0",
		WillQOS:        1,
		WillRetained:   true,
	}
}

func TestNewClientOptions_LastWill(t *testing.T) {
	opts := mqtt.NewClientOptions(testBrokerOptions(), zerolog.Nop())

	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "sensors/co2/online", opts.WillTopic)
	assert.Equal(t, []byte("0"), opts.WillPayload)
	assert.Equal(t, byte(1), opts.WillQos)
	assert.True(t, opts.WillRetained)
}

func TestNewClientOptions_Connection(t *testing.T) {
	opts := mqtt.NewClientOptions(testBrokerOptions(), zerolog.Nop())

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://broker.local:1883", opts.Servers[0].String())
	assert.Equal(t, "s8-co2-bridge-test", opts.ClientID)
	assert.Equal(t, int64(30), opts.KeepAlive)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
	assert.False(t, opts.AutoReconnect)
	assert.False(t, opts.ConnectRetry)
	assert.Empty(t, opts.Username)
}

func TestNewClientOptions_Credentials(t *testing.T) {
	o := testBrokerOptions()
	o.Username = "bridge"
	o.Password = "secret"

	opts := mqtt.NewClientOptions(o, zerolog.Nop())
	assert.Equal(t, "bridge", opts.Username)
	assert.Equal(t, "secret", opts.Password)
}

func TestNewClientOptions_NoWill(t *testing.T) {
	o := testBrokerOptions()
	o.WillTopic = ""

	opts := mqtt.NewClientOptions(o, zerolog.Nop())
	assert.False(t, opts.WillEnabled)
}
