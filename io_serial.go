package parexis

import (
	"fmt"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Parity mirrors the three parities the CLI accepts: none, odd, even.
type Parity byte

const (
	ParityNone Parity = 'N'
	ParityOdd  Parity = 'O'
	ParityEven Parity = 'E'
)

// validBaudRates enumerates the baud rates the CLI recognises; anything
// else is a construction failure.
var validBaudRates = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true, 19200: true,
	38400: true, 57600: true, 115200: true, 230400: true,
}

// serialReadPoll is how long a single Read blocks before returning with no
// data; it stands in for the WOULD_BLOCK a non-blocking tty read would give.
const serialReadPoll = 50 * time.Millisecond

// SerialIO is the TTY endpoint: raw mode, no flow control, local +
// enable-receiver, built on github.com/tarm/serial.
type SerialIO struct {
	dev      string
	baud     int
	dataBits byte
	parity   Parity
	stopBits bool // true == 2 stop bits

	mu   sync.Mutex
	port *serial.Port
}

// NewSerialIO opens dev at baud with dataBits (7 or 8), parity, and
// twoStopBits, backing an "open serial <name> <dev> <bps> <dpS>" channel.
func NewSerialIO(dev string, baud int, dataBits byte, parity Parity, twoStopBits bool) (*SerialIO, error) {
	if !validBaudRates[baud] {
		return nil, fmt.Errorf("%w: unsupported baud rate %d", ErrFatalIO, baud)
	}
	if dataBits != 7 && dataBits != 8 {
		return nil, fmt.Errorf("%w: unsupported data bits %d", ErrFatalIO, dataBits)
	}
	s := &SerialIO{dev: dev, baud: baud, dataBits: dataBits, parity: parity, stopBits: twoStopBits}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SerialIO) config() *serial.Config {
	cfg := &serial.Config{
		Name:        s.dev,
		Baud:        s.baud,
		Size:        s.dataBits,
		ReadTimeout: serialReadPoll,
	}
	switch s.parity {
	case ParityOdd:
		cfg.Parity = serial.ParityOdd
	case ParityEven:
		cfg.Parity = serial.ParityEven
	default:
		cfg.Parity = serial.ParityNone
	}
	if s.stopBits {
		cfg.StopBits = serial.Stop2
	} else {
		cfg.StopBits = serial.Stop1
	}
	return cfg
}

func (s *SerialIO) open() error {
	port, err := serial.OpenPort(s.config())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFatalIO, err)
	}
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
	return nil
}

// SelectFD has no meaningful descriptor to hand back: github.com/tarm/serial
// does not expose the underlying fd, and this driver's readiness wait is
// implemented by per-channel reader goroutines (see driver.go), not raw
// select(2), so the value is diagnostic only.
func (s *SerialIO) SelectFD() int { return -1 }

func (s *SerialIO) GetByte() (byte, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	var b [1]byte
	n, err := port.Read(b[:])
	if n == 0 {
		if err == nil {
			return 0, ErrWouldBlock
		}
		return 0, classifyIOErr(err)
	}
	return b[0], nil
}

func (s *SerialIO) PutByte(b byte) error {
	_, err := s.Write([]byte{b})
	return err
}

func (s *SerialIO) Write(p []byte) (int, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	n, err := port.Write(p)
	if err != nil {
		return n, classifyIOErr(err)
	}
	return n, nil
}

func (s *SerialIO) Reopen() error {
	s.mu.Lock()
	old := s.port
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return s.open()
}

func (s *SerialIO) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
