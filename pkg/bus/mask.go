package bus

// Mask is a set of commands.
type Mask uint64

// MaskOf builds a Mask. Commands above MaxCommand are ignored.
func MaskOf(cmds ...Command) Mask {
	return Mask(0).Add(cmds...)
}

// Add returns m with cmds included.
func (m Mask) Add(cmds ...Command) Mask {
	for _, c := range cmds {
		if c <= MaxCommand {
			m |= 1 << c
		}
	}
	return m
}

// Has reports whether c is in the set.
func (m Mask) Has(c Command) bool {
	return c <= MaxCommand && m&(1<<c) != 0
}

// Overlaps reports whether m and o share a command.
func (m Mask) Overlaps(o Mask) bool {
	return m&o != 0
}
