package progress

import "sync/atomic"

// Flag marks that some progress bar is live somewhere in the process.
// It is injected into every scheduler hierarchy that may show one, so
// hierarchies sharing a terminal never stack two live bars.
//
// Thread-safe: Yes (atomic underneath)
type Flag struct {
	set atomic.Bool
}

// NewFlag returns a cleared flag.
func NewFlag() *Flag {
	return &Flag{}
}

// TrySet claims the flag. It returns false when another holder already
// has it; the caller must then skip its indicator.
func (f *Flag) TrySet() bool {
	return f.set.CompareAndSwap(false, true)
}

// Clear releases the flag so the next caller can claim it.
func (f *Flag) Clear() {
	f.set.Store(false)
}

// IsSet reports whether the flag is currently claimed.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}
