package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameEncoding(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		expect []byte
	}{
		{"request", NewFrame(Self, 0x10, 0x0a, 0, 0, 0, 2),
			[]byte{0x10, 0xff, 0, 0x0a, 0, 0, 0, 0, 2, 0, 0}},
		{"response", Frame{Destination: 1, Origin: 2, TransactionID: 9, Command: 0x11, IsResponse: true, Argv: [ArgvSize]byte{0xff, 85}},
			[]byte{1, 2, 9, 0x11, 0x80, 0xff, 85, 0, 0, 0, 0}},
		{"error", Frame{Destination: 1, Origin: 2, Command: 0x13, IsResponse: true, Error: true, Argv: [ArgvSize]byte{1, 2, 3, 4, 5, 6}},
			[]byte{1, 2, 0, 0x13, 0xc0, 1, 2, 3, 4, 5, 6}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.frame.MarshalBinary()
			require.NoError(t, err)
			require.Equal(t, tc.expect, b)
			var fr Frame
			require.NoError(t, fr.UnmarshalBinary(b))
			require.Equal(t, tc.frame, fr)
		})
	}
}

func TestFrameSizeError(t *testing.T) {
	var fr Frame
	require.ErrorIs(t, fr.UnmarshalBinary([]byte{1, 2, 3}), ErrFrameSize)
	require.ErrorIs(t, fr.UnmarshalBinary(make([]byte, FrameSize+1)), ErrFrameSize)
}

func TestReply(t *testing.T) {
	req := NewFrame(3, 7, 0x11, 0xff)
	resp := req.Reply()
	assert.Equal(t, Address(7), resp.Origin)
	assert.Equal(t, Address(3), resp.Destination)
	assert.Equal(t, req.Command, resp.Command)
	assert.True(t, resp.IsResponse)
	assert.False(t, resp.Error)
	assert.Equal(t, req.Argv, resp.Argv)

	fail := req.Fail()
	assert.True(t, fail.IsResponse)
	assert.True(t, fail.Error)
	assert.False(t, req.IsResponse)
}

func TestNewFrameTruncatesArgs(t *testing.T) {
	fr := NewFrame(Self, Self, 1, 1, 2, 3, 4, 5, 6, 7, 8)
	assert.Equal(t, [ArgvSize]byte{1, 2, 3, 4, 5, 6}, fr.Argv)
}

func TestFrameString(t *testing.T) {
	fr := Frame{Origin: 1, Destination: 2, Command: 3, IsResponse: true, Error: true}
	assert.Contains(t, fr.String(), "resp,err")
}

func TestMask(t *testing.T) {
	m := MaskOf(0, 5, MaxCommand, MaxCommand+1)
	assert.True(t, m.Has(0))
	assert.True(t, m.Has(5))
	assert.True(t, m.Has(MaxCommand))
	assert.False(t, m.Has(MaxCommand+1))
	assert.False(t, m.Has(4))
	assert.Equal(t, Mask(1|1<<5|1<<63), m)

	assert.True(t, m.Overlaps(MaskOf(5)))
	assert.False(t, m.Overlaps(MaskOf(6, 7)))
	assert.True(t, MaskOf(6).Add(7).Has(7))
}
