package bus

import (
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/minut.go/pkg/fifo"
	"github.com/robotalks/minut.go/pkg/pt"
)

// Sender is the transmit routine shared by modules: it takes one frame
// from Out, acquires the lock, retries Transmit until the frame is
// accepted and releases the lock.
type Sender struct {
	pt.T

	Port  Port
	Iface *Interface
	Out   *fifo.Queue[Frame]

	frame        Frame
	failed       uint32
	unlockFailed uint32
}

// NewSender creates a Sender.
func NewSender(port Port, iface *Interface, out *fifo.Queue[Frame]) *Sender {
	return &Sender{Port: port, Iface: iface, Out: out}
}

// Failed counts frames discarded after a non retryable error.
func (s *Sender) Failed() uint32 { return s.failed }

// UnlockFailures counts releases refused by the port, e.g. after the
// lock was taken away by a lease expiry.
func (s *Sender) UnlockFailures() uint32 { return s.unlockFailed }

// Step implements pt.Thread.
func (s *Sender) Step() pt.Status {
	switch s.At() {
	case 0:
		fallthrough
	case 1:
		if !s.WaitUntil(1, s.Out.Get(&s.frame) == nil) {
			return pt.Waiting
		}
		fallthrough
	case 2:
		if !s.WaitUntil(2, s.Port.Lock(s.Iface) == nil) {
			return pt.Waiting
		}
		fallthrough
	case 3:
		err := s.Port.Transmit(s.Iface, s.frame)
		switch {
		case IsRetryable(err):
			s.WaitUntil(3, false)
			return pt.Waiting
		case errors.Is(err, ErrNotLocked):
			// lease expired, take the lock again
			s.WaitUntil(2, false)
			return pt.Waiting
		case err != nil:
			s.failed++
			glog.Warningf("channel %d: discard %s: %v", s.Iface.Channel, s.frame, err)
			s.unlock()
			return s.Exit()
		}
		s.unlock()
	}
	return s.Restart()
}

func (s *Sender) unlock() {
	if err := s.Port.Unlock(s.Iface); err != nil {
		s.unlockFailed++
		glog.V(1).Infof("channel %d: unlock: %v", s.Iface.Channel, err)
	}
}
