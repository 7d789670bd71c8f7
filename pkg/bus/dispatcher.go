package bus

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/fifo"
)

// MaxInterfaces is the registry capacity.
const MaxInterfaces = 16

// DefaultLoopbackSize is the loopback queue capacity when not configured.
const DefaultLoopbackSize = 8

// MaxReceivePerPass bounds frames taken from the medium in one Run.
const MaxReceivePerPass = 8

// Interface is a module's registration.
type Interface struct {
	Channel Address
	Mask    Mask
	Queue   *fifo.Queue[Frame]
}

// Port is what modules need from the dispatcher.
type Port interface {
	Register(*Interface) error
	Lock(*Interface) error
	Unlock(*Interface) error
	Transmit(*Interface, Frame) error
}

// Medium carries frames to and from peers. Send must not block: it
// returns ErrBusy when the frame cannot be taken now. Receive returns
// false when nothing is pending.
type Medium interface {
	Send(Frame) error
	Receive() (Frame, bool)
}

// Direction tells an Observer where a frame went.
type Direction int

// Directions.
const (
	// Rx is a frame routed to local interfaces.
	Rx Direction = iota
	// Tx is a frame accepted by Transmit.
	Tx
)

func (d Direction) String() string {
	if d == Tx {
		return "tx"
	}
	return "rx"
}

// Observer is notified of traffic. It runs inside the dispatcher and
// must return promptly.
type Observer func(Direction, Frame)

// Stats are traffic counters.
type Stats struct {
	Routed       uint32
	Delivered    uint32
	Dropped      uint32
	Unrouted     uint32
	Foreign      uint32
	Transmitted  uint32
	Busy         uint32
	Locks        uint32
	LeaseExpired uint32
}

// InterfaceStats are per registration counters.
type InterfaceStats struct {
	Channel   Address
	Delivered uint32
	Dropped   uint32
}

// Config configures a Dispatcher.
type Config struct {
	// Address is the node address on the medium.
	Address Address
	// LoopbackSize is the capacity of the local delivery queue.
	LoopbackSize int
	// LockLease bounds how many passes the lock may be held.
	// Zero keeps the lock until released.
	LockLease uint32
}

type registration struct {
	iface *Interface
	stats InterfaceStats
}

// Dispatcher is the message router and transmit lock arbiter.
// It is not safe for concurrent use; every call happens from the
// polling loop.
type Dispatcher struct {
	Config

	medium    Medium
	loopback  *fifo.Queue[Frame]
	regs      []registration
	observers []Observer
	owner     *Interface
	held      uint32
	started   bool
	stats     Stats
}

// New creates a Dispatcher. medium may be nil for a standalone node.
func New(conf Config, medium Medium) *Dispatcher {
	if conf.LoopbackSize <= 0 {
		conf.LoopbackSize = DefaultLoopbackSize
	}
	return &Dispatcher{
		Config:   conf,
		medium:   medium,
		loopback: fifo.MustNew[Frame](conf.LoopbackSize),
		regs:     make([]registration, 0, MaxInterfaces),
	}
}

// Register binds an Interface. It must happen before the first Run.
func (d *Dispatcher) Register(iface *Interface) error {
	switch {
	case iface == nil || iface.Queue == nil:
		return ErrNilQueue
	case iface.Channel == Self:
		return ErrInvalidChannel
	case d.started:
		return ErrRegisterAfterStart
	case len(d.regs) >= MaxInterfaces:
		return ErrRegistryFull
	}
	for _, reg := range d.regs {
		if reg.iface.Channel == iface.Channel {
			return fmt.Errorf("%w: %d", ErrDuplicateChannel, iface.Channel)
		}
		if reg.iface.Mask.Overlaps(iface.Mask) {
			glog.V(1).Infof("channel %d shares commands %016x with channel %d",
				iface.Channel, uint64(reg.iface.Mask&iface.Mask), reg.iface.Channel)
		}
	}
	d.regs = append(d.regs, registration{iface: iface, stats: InterfaceStats{Channel: iface.Channel}})
	return nil
}

// Observe adds an Observer.
func (d *Dispatcher) Observe(o Observer) {
	d.observers = append(d.observers, o)
}

// Lock acquires the transmit path for iface. Locking again while owning
// it succeeds.
func (d *Dispatcher) Lock(iface *Interface) error {
	if d.owner == iface {
		return nil
	}
	if d.owner != nil {
		return ErrLocked
	}
	d.owner, d.held = iface, 0
	d.stats.Locks++
	return nil
}

// Unlock releases the transmit path.
func (d *Dispatcher) Unlock(iface *Interface) error {
	if d.owner == nil || d.owner != iface {
		return ErrNotOwner
	}
	d.owner, d.held = nil, 0
	return nil
}

// LockOwner returns the interface holding the lock, nil when free.
func (d *Dispatcher) LockOwner() *Interface {
	return d.owner
}

// LockHeldFor counts passes since the lock was taken.
func (d *Dispatcher) LockHeldFor() uint32 {
	return d.held
}

// IsLocal reports whether addr designates this node.
func (d *Dispatcher) IsLocal(addr Address) bool {
	return addr == Self || addr == d.Address
}

// Transmit makes one attempt to send fr. The caller must own the lock.
func (d *Dispatcher) Transmit(iface *Interface, fr Frame) error {
	if d.owner == nil {
		return ErrNotLocked
	}
	if d.owner != iface {
		d.stats.Busy++
		return ErrBusy
	}
	if d.IsLocal(fr.Destination) {
		if err := d.loopback.Put(fr); err != nil {
			d.stats.Busy++
			return ErrBusy
		}
	} else {
		if d.medium == nil {
			return ErrNoMedium
		}
		if fr.Origin == Self {
			fr.Origin = d.Address
		}
		if err := d.medium.Send(fr); err != nil {
			if IsRetryable(err) {
				d.stats.Busy++
			}
			return err
		}
	}
	d.stats.Transmitted++
	glog.V(2).Infof("TX %s", fr)
	d.notify(Tx, fr)
	return nil
}

// Run performs one routing pass: frames looped back since the last pass
// and frames received from the medium are delivered to all interfaces
// whose mask has the command.
func (d *Dispatcher) Run() {
	d.started = true
	if d.owner != nil {
		d.held++
		if d.LockLease > 0 && d.held > d.LockLease {
			glog.Warningf("transmit lock of channel %d expired after %d passes", d.owner.Channel, d.held)
			d.owner, d.held = nil, 0
			d.stats.LeaseExpired++
		}
	}

	var fr Frame
	for n := d.loopback.Len(); n > 0; n-- {
		if d.loopback.Get(&fr) != nil {
			break
		}
		d.route(fr)
	}
	if d.medium == nil {
		return
	}
	for n := 0; n < MaxReceivePerPass; n++ {
		fr, ok := d.medium.Receive()
		if !ok {
			break
		}
		if !d.IsLocal(fr.Destination) {
			d.stats.Foreign++
			continue
		}
		d.route(fr)
	}
}

func (d *Dispatcher) route(fr Frame) {
	d.stats.Routed++
	glog.V(2).Infof("RX %s", fr)
	var matched bool
	for i := range d.regs {
		reg := &d.regs[i]
		if !reg.iface.Mask.Has(fr.Command) {
			continue
		}
		matched = true
		if err := reg.iface.Queue.Put(fr); err != nil {
			reg.stats.Dropped++
			d.stats.Dropped++
			glog.V(1).Infof("channel %d queue full, dropped %s", reg.iface.Channel, fr)
			continue
		}
		reg.stats.Delivered++
		d.stats.Delivered++
	}
	if !matched {
		d.stats.Unrouted++
	}
	d.notify(Rx, fr)
}

func (d *Dispatcher) notify(dir Direction, fr Frame) {
	for _, o := range d.observers {
		o(dir, fr)
	}
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return d.stats
}

// InterfaceStats returns per interface counters in registration order.
func (d *Dispatcher) InterfaceStats() []InterfaceStats {
	out := make([]InterfaceStats, len(d.regs))
	for i, reg := range d.regs {
		out[i] = reg.stats
	}
	return out
}
