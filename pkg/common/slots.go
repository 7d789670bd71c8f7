package common

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/frames"
)

// Slots are the frame sequences played by container frames, indexed
// by slot number. Slot 0 plays at boot.
type Slots [][]bus.Frame

// SlotsFile is the YAML form of Slots.
type SlotsFile struct {
	Version string     `yaml:"version"`
	Slots   []SlotSpec `yaml:"slots"`
}

// SlotSpec is one slot.
type SlotSpec struct {
	Name   string      `yaml:"name,omitempty"`
	Frames []FrameSpec `yaml:"frames"`
}

// FrameSpec is one frame. Cmd is a catalog name; argv values may be
// negative for signed parameters such as servo positions.
type FrameSpec struct {
	Cmd  string `yaml:"cmd"`
	Dest *int   `yaml:"dest,omitempty"`
	Argv []int  `yaml:"argv,omitempty"`
}

// DefaultSlots is the recovery sequence table.
func DefaultSlots() Slots {
	return Slots{
		// reset
		{
			frames.NewServoSave(frames.ServoOpen, -90),
			frames.NewServoSave(frames.ServoClose, 45),
			frames.NewOpenTimeSave(85),
			frames.NewAppliStart(),
		},
		// init
		{
			frames.NewStateSet(frames.StateInit),
			frames.NewLedSet(10, 5),
		},
		// hatch opening
		{
			frames.NewStateSet(frames.StateOpen),
			frames.NewServoCmd(frames.ServoOpen),
			frames.NewLedSet(10, 40),
		},
		// hatch closing
		{
			frames.NewStateSet(frames.StateClose),
			frames.NewServoCmd(frames.ServoClose),
			frames.NewLedSet(40, 10),
		},
		// waiting for take-off
		{
			frames.NewStateSet(frames.StateWaiting),
			frames.NewLedSet(90, 10),
		},
		// flight
		{
			frames.NewStateSet(frames.StateFlight),
			frames.NewLedSet(10, 10),
		},
		// parachute released
		{
			frames.NewStateSet(frames.StateParachute),
			frames.NewServoCmd(frames.ServoOpen),
			frames.NewLedSet(20, 20),
		},
	}
}

// LoadSlots reads a slots file.
func LoadSlots(path string) (Slots, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read slots file: %w", err)
	}
	return ParseSlots(data)
}

// ParseSlots decodes and validates YAML slots.
func ParseSlots(data []byte) (Slots, error) {
	var f SlotsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse slots: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.Build(), nil
}

// Validate checks version, commands and argument ranges.
func (f *SlotsFile) Validate() error {
	if f.Version != "1" {
		return fmt.Errorf("unsupported slots version: %q (expected: 1)", f.Version)
	}
	if len(f.Slots) == 0 {
		return fmt.Errorf("no slots defined")
	}
	if len(f.Slots) > 0x100 {
		return fmt.Errorf("too many slots: %d", len(f.Slots))
	}
	for n, slot := range f.Slots {
		for i, fr := range slot.Frames {
			if _, ok := frames.Lookup(fr.Cmd); !ok {
				return fmt.Errorf("slot %d frame %d: unknown command %q", n, i, fr.Cmd)
			}
			if len(fr.Argv) > bus.ArgvSize {
				return fmt.Errorf("slot %d frame %d: %d arguments, at most %d", n, i, len(fr.Argv), bus.ArgvSize)
			}
			for _, v := range fr.Argv {
				if v < -128 || v > 255 {
					return fmt.Errorf("slot %d frame %d: argument %d out of byte range", n, i, v)
				}
			}
			if fr.Dest != nil && (*fr.Dest < 0 || *fr.Dest > 255) {
				return fmt.Errorf("slot %d frame %d: invalid dest %d", n, i, *fr.Dest)
			}
		}
	}
	return nil
}

// Build converts a validated file.
func (f *SlotsFile) Build() Slots {
	slots := make(Slots, len(f.Slots))
	for n, slot := range f.Slots {
		for _, spec := range slot.Frames {
			cmd, _ := frames.Lookup(spec.Cmd)
			fr := bus.NewFrame(bus.Self, bus.Self, cmd)
			if spec.Dest != nil {
				fr.Destination = bus.Address(*spec.Dest)
			}
			for i, v := range spec.Argv {
				fr.Argv[i] = byte(v)
			}
			slots[n] = append(slots[n], fr)
		}
	}
	return slots
}
