package s8

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCO2Request(t *testing.T) {
	assert.Equal(t, []byte{0xFE, 0x04, 0x00, 0x03, 0x00, 0x01, 0xD5, 0xC5}, readCO2Request(DefaultAddress))
}

func TestParseCO2Response(t *testing.T) {
	ppm, err := parseCO2Response(DefaultAddress, []byte{0xFE, 0x04, 0x02, 0x01, 0x90, 0xAC, 0xD8})
	require.NoError(t, err)
	assert.Equal(t, 400, ppm)

	ppm, err = parseCO2Response(DefaultAddress, []byte{0xFE, 0x04, 0x02, 0x13, 0x88, 0xA0, 0x72})
	require.NoError(t, err)
	assert.Equal(t, 5000, ppm)
}

func TestParseCO2Response_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"short":      {0xFE, 0x04, 0x02, 0x01},
		"address":    {0xFD, 0x04, 0x02, 0x01, 0x90, 0xAC, 0xD8},
		"function":   {0xFE, 0x03, 0x02, 0x01, 0x90, 0xAC, 0xD8},
		"exception":  {0xFE, 0x84, 0x02, 0x01, 0x90, 0xAC, 0xD8},
		"byte count": {0xFE, 0x04, 0x04, 0x01, 0x90, 0xAC, 0xD8},
		"crc":        {0xFE, 0x04, 0x02, 0x01, 0x90, 0x00, 0x00},
	}

	for name, frame := range cases {
		_, err := parseCO2Response(DefaultAddress, frame)
		assert.Error(t, err, name)
	}
}
