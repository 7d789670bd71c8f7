package bus

import (
	"fmt"
	"strings"
)

// Address is a logical bus address.
type Address uint8

// Self designates local delivery.
const Self Address = 0xff

// Command identifies the operation a frame carries.
type Command uint8

// MaxCommand is the highest routable command id.
const MaxCommand Command = 63

// ArgvSize is the payload capacity of a frame.
const ArgvSize = 6

// FrameSize is the encoded size of a frame.
const FrameSize = 5 + ArgvSize

// status bits
const (
	statusResponse byte = 0x80
	statusError    byte = 0x40
)

// Frame is the unit of communication. The bus never looks at Argv,
// its layout is agreed between sender and receiver per Command.
type Frame struct {
	Destination   Address
	Origin        Address
	TransactionID uint8
	Command       Command
	IsResponse    bool
	Error         bool
	Argv          [ArgvSize]byte
}

// NewFrame creates a request frame.
func NewFrame(orig, dest Address, cmd Command, argv ...byte) Frame {
	fr := Frame{Origin: orig, Destination: dest, Command: cmd}
	copy(fr.Argv[:], argv)
	return fr
}

// Reply turns a request into its response: addresses are swapped,
// the response flag set and the command kept.
func (f Frame) Reply() Frame {
	f.Origin, f.Destination = f.Destination, f.Origin
	f.IsResponse = true
	return f
}

// Fail is Reply with the error flag set.
func (f Frame) Fail() Frame {
	f = f.Reply()
	f.Error = true
	return f
}

// MarshalBinary encodes the frame as dest, orig, t_id, cmd, status, argv.
func (f Frame) MarshalBinary() ([]byte, error) {
	b := make([]byte, FrameSize)
	b[0], b[1], b[2], b[3] = byte(f.Destination), byte(f.Origin), f.TransactionID, byte(f.Command)
	if f.IsResponse {
		b[4] |= statusResponse
	}
	if f.Error {
		b[4] |= statusError
	}
	copy(b[5:], f.Argv[:])
	return b, nil
}

// UnmarshalBinary decodes from MarshalBinary output.
func (f *Frame) UnmarshalBinary(b []byte) error {
	if len(b) != FrameSize {
		return fmt.Errorf("%w: %d", ErrFrameSize, len(b))
	}
	f.Destination, f.Origin, f.TransactionID, f.Command = Address(b[0]), Address(b[1]), b[2], Command(b[3])
	f.IsResponse = b[4]&statusResponse != 0
	f.Error = b[4]&statusError != 0
	copy(f.Argv[:], b[5:])
	return nil
}

func (f Frame) String() string {
	var flags []string
	if f.IsResponse {
		flags = append(flags, "resp")
	}
	if f.Error {
		flags = append(flags, "err")
	}
	return fmt.Sprintf("%02x->%02x #%d cmd=%02x [%s] % x",
		f.Origin, f.Destination, f.TransactionID, f.Command,
		strings.Join(flags, ","), f.Argv[:])
}
