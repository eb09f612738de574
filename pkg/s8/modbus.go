package s8

import (
	"encoding/binary"
	"fmt"
)

const (
	// BaudRate is fixed by the S8 UART interface (8N1).
	BaudRate = 9600

	// DefaultMaxPPM is the upper end of the extended measurement range.
	DefaultMaxPPM = 10000

	// DefaultAddress is the S8 "any sensor" Modbus address.
	DefaultAddress byte = 0xFE

	funcReadInputRegisters byte = 0x04

	// co2Register is the input register holding the space CO2 value.
	co2Register uint16 = 0x0003

	responseLength = 7
)

// crc16 computes the Modbus RTU CRC (poly 0xA001, init 0xFFFF).
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// appendCRC appends the CRC low byte first, as Modbus RTU requires.
func appendCRC(frame []byte) []byte {
	return binary.LittleEndian.AppendUint16(frame, crc16(frame))
}

// readCO2Request builds the request frame for the CO2 register.
func readCO2Request(address byte) []byte {
	frame := []byte{address, funcReadInputRegisters, 0, 0, 0, 1}
	binary.BigEndian.PutUint16(frame[2:4], co2Register)
	return appendCRC(frame)
}

// parseCO2Response validates a 7 byte response frame and returns the ppm value.
func parseCO2Response(address byte, frame []byte) (int, error) {
	if len(frame) != responseLength {
		return 0, fmt.Errorf("invalid response length %d", len(frame))
	}
	if frame[0] != address {
		return 0, fmt.Errorf("unexpected address 0x%02x", frame[0])
	}
	if frame[1] != funcReadInputRegisters {
		if frame[1] == funcReadInputRegisters|0x80 {
			return 0, fmt.Errorf("sensor exception code 0x%02x", frame[2])
		}
		return 0, fmt.Errorf("unexpected function 0x%02x", frame[1])
	}
	if frame[2] != 2 {
		return 0, fmt.Errorf("unexpected byte count %d", frame[2])
	}

	want := crc16(frame[:5])
	got := binary.LittleEndian.Uint16(frame[5:])
	if want != got {
		return 0, fmt.Errorf("crc mismatch: got 0x%04x, want 0x%04x", got, want)
	}

	return int(binary.BigEndian.Uint16(frame[3:5])), nil
}
