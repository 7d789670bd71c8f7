package l0

import (
	"io"
	"time"
)

// Seq is a packet sequence number, valid in 1..0xef.
type Seq byte

// NewSeq picks a starting sequence number.
func NewSeq() Seq {
	return Seq(byte(time.Now().UnixNano())).Next()
}

// Next returns the sequence number following s.
func (s Seq) Next() Seq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return Seq(n)
}

// Valid reports whether s may appear on the wire as a sequence number.
func (s Seq) Valid() bool {
	return s > 0 && s < 0xf0
}

// Codes.
const (
	// CodeFrame carries one encoded bus frame.
	CodeFrame byte = 0x01
	// CodeEvent marks unsolicited packets.
	CodeEvent byte = 0x80
)

// Packet is one unit on the link.
//
// The header is the sequence number and a code byte whose bits 4..6
// hold the payload length. Length 7 means the real length follows in
// an extra byte.
type Packet struct {
	Seq  Seq
	Code byte
	Data []byte
}

func (p *Packet) header() []byte {
	h := []byte{byte(p.Seq), p.Code & 0x8f, byte(len(p.Data))}
	if h[2] < 7 {
		h[1] |= h[2] << 4
		return h[:2]
	}
	h[1] |= 0x70
	return h
}

// Bytes encodes the packet.
func (p *Packet) Bytes() []byte {
	return append(p.header(), p.Data...)
}

// WriteTo implements io.WriterTo.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}
