package mqtt

import (
	"context"
	"fmt"
)

// FrameTopic is the topic carrying frames for a node address.
func FrameTopic(addr byte) string {
	return fmt.Sprintf("frames/%02x", addr)
}

// ReadWriter implements link.PacketReadWriter for bus frames. Outbound
// packets are published to the topic of their destination byte;
// inbound packets arrive on the topic of the local node.
type ReadWriter struct {
	Queue   *Queue
	Address byte

	packetCh chan []byte
	done     chan struct{}
}

// NewReadWriter creates the ReadWriter for the node at addr.
func NewReadWriter(q *Queue, addr byte) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		Address:  addr,
		packetCh: make(chan []byte, 8),
		done:     make(chan struct{}),
	}
}

// ReadPacket implements link.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, context.Canceled
	}
}

// WritePacket implements link.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) == 0 {
		return fmt.Errorf("empty packet")
	}
	token := p.Queue.Pub(FrameTopic(pkt[0]), pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(FrameTopic(p.Address), p.handleMsg)
	defer sub.Close()
	defer close(p.done)
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
