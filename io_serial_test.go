package parexis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tarm/serial"
)

func TestNewSerialIORejectsUnsupportedBaud(t *testing.T) {
	_, err := NewSerialIO("/dev/null", 4321, 8, ParityNone, false)
	assert.ErrorIs(t, err, ErrFatalIO)
}

func TestNewSerialIORejectsUnsupportedDataBits(t *testing.T) {
	_, err := NewSerialIO("/dev/null", 9600, 6, ParityNone, false)
	assert.ErrorIs(t, err, ErrFatalIO)
}

func TestSerialIOConfigTranslatesParityAndStopBits(t *testing.T) {
	s := &SerialIO{dev: "/dev/null", baud: 9600, dataBits: 7, parity: ParityEven, stopBits: true}
	cfg := s.config()
	assert.Equal(t, "/dev/null", cfg.Name)
	assert.Equal(t, 9600, cfg.Baud)
	assert.Equal(t, byte(7), cfg.Size)
	assert.Equal(t, serial.ParityEven, cfg.Parity)
	assert.Equal(t, serial.Stop2, cfg.StopBits)
}
