package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/frames"
)

const slotsYAML = `
version: "1"
slots:
  - name: reset
    frames:
      - cmd: minut_servo_info
        argv: [0xc0, 0x5a, 0x09, -90]
      - cmd: appli_start
  - name: waiting
    frames:
      - cmd: state
        argv: [0x5e, 4]
      - cmd: led
        dest: 32
        argv: [0xa1, 0, 90, 10]
`

func TestLoadSlots(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "slots.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(slotsYAML), 0644))
	slots, err := LoadSlots(fn)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Len(t, slots[0], 2)
	assert.Equal(t, frames.NewServoSave(frames.ServoOpen, -90), slots[0][0])
	assert.Equal(t, frames.AppliStart, slots[0][1].Command)
	assert.Equal(t, frames.NewStateSet(frames.StateWaiting), slots[1][0])
	assert.Equal(t, bus.Address(32), slots[1][1].Destination)
	assert.Equal(t, byte(90), slots[1][1].Argv[2])
}

func TestLoadSlotsMissingFile(t *testing.T) {
	_, err := LoadSlots(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestParseSlotsErrors(t *testing.T) {
	cases := map[string]string{
		"version":   "version: \"2\"\nslots: [{frames: []}]",
		"empty":     "version: \"1\"\nslots: []",
		"command":   "version: \"1\"\nslots: [{frames: [{cmd: bogus}]}]",
		"argc":      "version: \"1\"\nslots: [{frames: [{cmd: led, argv: [1,2,3,4,5,6,7]}]}]",
		"range":     "version: \"1\"\nslots: [{frames: [{cmd: led, argv: [256]}]}]",
		"dest":      "version: \"1\"\nslots: [{frames: [{cmd: led, dest: -1}]}]",
		"malformed": "version: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSlots([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestDefaultSlots(t *testing.T) {
	slots := DefaultSlots()
	require.Len(t, slots, 7)
	states := []byte{
		frames.StateInit, frames.StateOpen, frames.StateClose,
		frames.StateWaiting, frames.StateFlight, frames.StateParachute,
	}
	for i, st := range states {
		fr := slots[i+1][0]
		assert.Equal(t, frames.State, fr.Command)
		assert.Equal(t, st, fr.Argv[1])
	}
}
