//go:build !tinygo

package gps

import (
	"context"
	"time"

	"go.bug.st/serial"
)

// SerialPort is a host serial device read in short timeouts so
// cancellation is observed.
type SerialPort struct {
	p serial.Port
}

// OpenSerial opens dev (e.g. /dev/ttyUSB0) at baud, 8N1.
func OpenSerial(dev string, baud int) (*SerialPort, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(100 * time.Millisecond); err != nil {
		_ = p.Close()
		return nil, err
	}
	return &SerialPort{p: p}, nil
}

func (s *SerialPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := s.p.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (s *SerialPort) Close() error { return s.p.Close() }
