// Package stream frames packets on a byte stream such as a TCP
// connection.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// MaxPacketSize bounds inbound packets.
const MaxPacketSize = 1024

// ErrTooLarge is returned for packets above MaxPacketSize.
var ErrTooLarge = errors.New("packet too large")

// ReadWriter implements link.PacketReadWriter.
// Each packet is prefixed by its length as 4-byte little-endian.
type ReadWriter struct {
	io.ReadWriter

	wlock sync.Mutex
}

// New creates a ReadWriter over s.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s}
}

// Dial connects to a TCP endpoint.
func Dial(addr string) (*ReadWriter, io.Closer, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect %s: %w", addr, err)
	}
	return New(conn), conn, nil
}

// ReadPacket implements link.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket implements link.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > MaxPacketSize {
		return ErrTooLarge
	}
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	p.wlock.Lock()
	defer p.wlock.Unlock()
	_, err := p.Write(buf)
	return err
}
