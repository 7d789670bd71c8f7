package l0

// Sync is the synchronization state of a link.
type Sync int

// Sync flags.
const (
	Syncing   Sync = 0
	Ready     Sync = 0x01
	Receiving Sync = 0x02
)

// IsReady reports whether packets can be exchanged.
func (s Sync) IsReady() bool { return s&Ready != 0 }

// IsReceiving reports a handshake or packet in progress.
func (s Sync) IsReceiving() bool { return s&Receiving != 0 }

func (s Sync) String() string {
	switch s {
	case Syncing:
		return "syncing"
	case Syncing | Receiving:
		return "handshaking"
	case Ready:
		return "ready"
	case Ready | Receiving:
		return "receiving"
	}
	return "invalid"
}

// Result is the outcome of feeding the parser.
type Result struct {
	// Reply is a sync byte to send back, 0 for none.
	Reply  byte
	State  Sync
	Packet *Packet
}

// RestartTimer reports whether the sync timer should be (re)armed.
func (r Result) RestartTimer() bool {
	return r.State.IsReceiving() || r.Reply == syncREQ
}

// StopTimer reports whether the sync timer should be cancelled.
func (r Result) StopTimer() bool {
	return !r.RestartTimer() && r.State.IsReady()
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type parseState int

const (
	waitAck parseState = iota
	waitReqSeq
	waitAckSeq
	waitSeq
	waitPeerAckSeq
	waitCode
	waitLen
	waitData
)

// Parser decodes the inbound byte stream.
type Parser struct {
	peer  Seq
	state parseState
	pkt   *Packet
	n     int
}

// State returns the current sync state.
func (p *Parser) State() Sync {
	switch {
	case p.state == waitAck:
		return Syncing
	case p.state == waitSeq:
		return Ready
	case p.state > waitSeq:
		return Ready | Receiving
	}
	return Syncing | Receiving
}

// Reset starts a new handshake.
func (p *Parser) Reset() Result {
	p.pkt = nil
	return p.result(p.resync())
}

// Feed consumes one byte.
func (p *Parser) Feed(b byte) Result {
	return p.result(p.feed(b))
}

// Expire is called when the sync timer fires.
func (p *Parser) Expire() Result {
	if p.state == waitSeq {
		return p.result(0, nil)
	}
	return p.result(p.resync())
}

func (p *Parser) result(reply byte, pkt *Packet) Result {
	return Result{Reply: reply, State: p.State(), Packet: pkt}
}

func (p *Parser) feed(b byte) (byte, *Packet) {
	switch p.state {
	case waitAck:
		switch b {
		case syncREQ:
			p.state = waitReqSeq
		case syncACK:
			p.state = waitAckSeq
		}
	case waitReqSeq, waitAckSeq:
		seq := Seq(b)
		if !seq.Valid() {
			return p.resync()
		}
		reply := byte(0)
		if p.state == waitReqSeq {
			reply = syncACK
		}
		p.peer, p.state = seq, waitSeq
		return reply, nil
	case waitSeq:
		switch {
		case b == syncREQ:
			p.state = waitReqSeq
		case b == syncACK:
			p.state = waitPeerAckSeq
		case Seq(b) != p.peer:
			return p.resync()
		default:
			p.pkt = &Packet{Seq: p.peer}
			p.peer = p.peer.Next()
			p.state = waitCode
		}
	case waitPeerAckSeq:
		if Seq(b) != p.peer {
			return p.resync()
		}
		p.state = waitSeq
	case waitCode:
		p.pkt.Code = b & 0x8f
		switch size := int(b>>4) & 7; size {
		case 0:
			return p.done()
		case 7:
			p.state = waitLen
		default:
			p.pkt.Data, p.n = make([]byte, size), 0
			p.state = waitData
		}
	case waitLen:
		if b >= 0x80 {
			return p.resync()
		}
		if b == 0 {
			return p.done()
		}
		p.pkt.Data, p.n = make([]byte, b), 0
		p.state = waitData
	case waitData:
		p.pkt.Data[p.n] = b
		if p.n++; p.n >= len(p.pkt.Data) {
			return p.done()
		}
	}
	return 0, nil
}

func (p *Parser) resync() (byte, *Packet) {
	p.state = waitAck
	return syncREQ, nil
}

func (p *Parser) done() (byte, *Packet) {
	pkt := p.pkt
	p.pkt, p.state = nil, waitSeq
	return 0, pkt
}
