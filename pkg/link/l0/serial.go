package l0

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate is used when none is given.
const DefaultBaudRate = 115200

// SerialConn is a Conn over a serial port.
type SerialConn struct {
	*Conn
	Port serial.Port
}

// OpenSerial opens a serial port and wraps it with the protocol.
func OpenSerial(name string, baudRate int) (*SerialConn, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	// lets the read loop notice cancellation
	if err := port.SetReadTimeout(DefaultSyncTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return &SerialConn{Conn: NewConn(port), Port: port}, nil
}

// Close implements io.Closer.
func (c *SerialConn) Close() error {
	return c.Port.Close()
}

var _ io.Closer = (*SerialConn)(nil)
