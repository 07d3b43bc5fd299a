package sink

import (
	"sort"

	"github.com/sweeney/tv-remote/internal/keys"
)

// Call is one recorded sink operation.
type Call struct {
	Op   Op
	Code keys.Code
}

// FakeSink is a test double that records calls and tracks held keys.
type FakeSink struct {
	// Connected controls the return value of IsConnected.
	Connected bool

	// Calls contains every operation attempted, including failed ones.
	Calls []Call

	// WriteError, if set, is returned by Write.
	WriteError error

	// PressErrors maps a key to the error Press returns for it.
	PressErrors map[keys.Code]error

	// ReleaseError, if set, is returned by Release.
	ReleaseError error

	// ReleaseAllError, if set, is returned by ReleaseAll.
	ReleaseAllError error

	held map[keys.Code]bool
}

// NewFakeSink creates a connected FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{
		Connected: true,
		held:      make(map[keys.Code]bool),
	}
}

// IsConnected reports whether the fake is "connected".
func (f *FakeSink) IsConnected() bool {
	return f.Connected
}

// Write records a tap.
func (f *FakeSink) Write(code keys.Code) error {
	f.Calls = append(f.Calls, Call{OpWrite, code})
	return f.WriteError
}

// Press records a key down. A failed press leaves the key up.
func (f *FakeSink) Press(code keys.Code) error {
	f.Calls = append(f.Calls, Call{OpPress, code})
	if err := f.PressErrors[code]; err != nil {
		return err
	}
	if f.held == nil {
		f.held = make(map[keys.Code]bool)
	}
	f.held[code] = true
	return nil
}

// Release records a key up. A failed release leaves the key held.
func (f *FakeSink) Release(code keys.Code) error {
	f.Calls = append(f.Calls, Call{OpRelease, code})
	if f.ReleaseError != nil {
		return f.ReleaseError
	}
	delete(f.held, code)
	return nil
}

// ReleaseAll records a release of every key. A failed ReleaseAll leaves keys held.
func (f *FakeSink) ReleaseAll() error {
	f.Calls = append(f.Calls, Call{Op: OpReleaseAll})
	if f.ReleaseAllError != nil {
		return f.ReleaseAllError
	}
	f.held = make(map[keys.Code]bool)
	return nil
}

// Held returns the keys currently held, sorted.
func (f *FakeSink) Held() []keys.Code {
	out := make([]keys.Code, 0, len(f.held))
	for c := range f.held {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Writes returns the keys tapped with Write, in order.
func (f *FakeSink) Writes() []keys.Code {
	var out []keys.Code
	for _, c := range f.Calls {
		if c.Op == OpWrite {
			out = append(out, c.Code)
		}
	}
	return out
}

// Reset clears recorded calls and held keys.
func (f *FakeSink) Reset() {
	f.Calls = nil
	f.held = make(map[keys.Code]bool)
	f.WriteError = nil
	f.PressErrors = nil
	f.ReleaseError = nil
	f.ReleaseAllError = nil
}
