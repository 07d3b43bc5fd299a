// Package logic contains the pure state machines of the remote: per-button
// debouncing, the action model, and the post-fire lockout gate.
// This package has NO external dependencies (no GPIO, transport, OS, or time.Sleep).
// Time is always injectable via Millis parameters.
package logic

import "time"

// Level is an electrical pin level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Millis is a monotonic millisecond counter. It wraps after ~49.7 days, so
// elapsed time must always be computed as an unsigned difference (now - then).
type Millis uint32

// MillisOf converts a duration to a Millis span, truncating to whole ms.
func MillisOf(d time.Duration) Millis {
	return Millis(d / time.Millisecond)
}

// Duration converts a Millis span back to a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// Since returns now - then with wraparound.
func Since(now, then Millis) Millis {
	return now - then
}

// Edge is a committed, debounced transition.
type Edge int

const (
	PressEdge Edge = iota + 1
	ReleaseEdge
)

func (e Edge) String() string {
	switch e {
	case PressEdge:
		return "PRESS"
	case ReleaseEdge:
		return "RELEASE"
	}
	return "NONE"
}

// Default timing constants.
const (
	DefaultDebounce = 50 * time.Millisecond
	DefaultLockout  = 200 * time.Millisecond
	DefaultHold     = 100 * time.Millisecond
)
