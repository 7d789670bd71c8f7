// Package hal abstracts the few hardware resources the node drives.
package hal

import "sync/atomic"

// InputPin is a digital input.
type InputPin interface {
	Read() bool
}

// OutputPin is a digital output.
type OutputPin interface {
	Write(bool)
}

// PWM is a timer compare channel. Zero keeps the output low.
type PWM interface {
	SetCompare(uint16)
}

// SimPin is an in-memory pin usable as input and output.
// It may be written from another goroutine, e.g. a bench shell.
type SimPin struct {
	level   atomic.Bool
	toggles atomic.Uint32
}

// Read implements InputPin.
func (p *SimPin) Read() bool { return p.level.Load() }

// Write implements OutputPin.
func (p *SimPin) Write(v bool) {
	if p.level.Swap(v) != v {
		p.toggles.Add(1)
	}
}

// Set is Write under the name used when the pin is an input.
func (p *SimPin) Set(v bool) { p.Write(v) }

// Toggles counts level changes.
func (p *SimPin) Toggles() uint32 { return p.toggles.Load() }

// SimPWM records the compare value.
type SimPWM struct {
	compare atomic.Uint32
	writes  atomic.Uint32
}

// SetCompare implements PWM.
func (p *SimPWM) SetCompare(v uint16) {
	p.compare.Store(uint32(v))
	p.writes.Add(1)
}

// Compare returns the last compare value.
func (p *SimPWM) Compare() uint16 { return uint16(p.compare.Load()) }

// Writes counts SetCompare calls.
func (p *SimPWM) Writes() uint32 { return p.writes.Load() }
