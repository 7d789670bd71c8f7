// Package websocket carries packets as binary websocket messages.
package websocket

import (
	"fmt"

	"golang.org/x/net/websocket"
)

// ReadWriter implements link.PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket endpoint. The origin defaults to the
// endpoint with an http scheme.
func Dial(url, origin string) (*ReadWriter, error) {
	if origin == "" {
		origin = "http://localhost/"
	}
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", url, err)
	}
	return New(conn), nil
}

// Conn returns the wrapped connection.
func (p *ReadWriter) Conn() *websocket.Conn {
	return (*websocket.Conn)(p)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return p.Conn().Close()
}

// ReadPacket implements link.PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(p.Conn(), &pkt)
	return
}

// WritePacket implements link.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send(p.Conn(), pkt)
}
