// Package link connects a node's dispatcher to remote nodes.
//
// A transport only needs to move whole packets; Medium turns any
// PacketReadWriter into a bus.Medium by encoding one frame per packet.
package link

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}
