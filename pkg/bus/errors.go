package bus

import "errors"

var (
	// ErrBusy means the transmit path cannot take the frame now. Retry.
	ErrBusy = errors.New("busy")
	// ErrLocked means another interface owns the transmit lock.
	ErrLocked = errors.New("locked by another interface")
	// ErrNotLocked means Transmit was called without holding the lock.
	ErrNotLocked = errors.New("transmit lock not held")
	// ErrNotOwner means Unlock was called by an interface not owning the lock.
	ErrNotOwner = errors.New("not the lock owner")
	// ErrNoMedium means a frame left the node while no medium is attached.
	ErrNoMedium = errors.New("no medium attached")

	// ErrNilQueue rejects an Interface without inbound queue.
	ErrNilQueue = errors.New("interface has no queue")
	// ErrInvalidChannel rejects the reserved Self address as channel.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrDuplicateChannel rejects a second registration of a channel.
	ErrDuplicateChannel = errors.New("channel already registered")
	// ErrRegistryFull means MaxInterfaces are already registered.
	ErrRegistryFull = errors.New("registry full")
	// ErrRegisterAfterStart rejects registration once routing began.
	ErrRegisterAfterStart = errors.New("register after traffic started")

	// ErrFrameSize is returned when decoding a frame of wrong length.
	ErrFrameSize = errors.New("invalid frame size")
)

// IsRetryable tells whether a Transmit error should be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}
