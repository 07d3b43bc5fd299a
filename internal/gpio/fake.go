package gpio

import (
	"fmt"

	"github.com/sweeney/tv-remote/internal/logic"
)

// FakeReader is a test double holding a settable level per pin.
// Unset pins read High (an open button with pull-up).
type FakeReader struct {
	levels map[int]logic.Level

	// Errors maps a pin to the error Read returns for it.
	Errors map[int]error

	// Reads records every pin read, in order.
	Reads []int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeReader creates a FakeReader with every pin idle.
func NewFakeReader() *FakeReader {
	return &FakeReader{levels: make(map[int]logic.Level)}
}

// Set forces the raw level of pin.
func (f *FakeReader) Set(pin int, level logic.Level) {
	if f.levels == nil {
		f.levels = make(map[int]logic.Level)
	}
	f.levels[pin] = level
}

// Press drives pin Low.
func (f *FakeReader) Press(pin int) { f.Set(pin, logic.Low) }

// Release drives pin High.
func (f *FakeReader) Release(pin int) { f.Set(pin, logic.High) }

// Read returns the current level of pin.
func (f *FakeReader) Read(pin int) (logic.Level, error) {
	f.Reads = append(f.Reads, pin)
	if err := f.Errors[pin]; err != nil {
		return logic.High, fmt.Errorf("read pin %d: %w", pin, err)
	}
	level, ok := f.levels[pin]
	if !ok {
		return logic.High, nil
	}
	return level, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset idles every pin and clears recorded reads.
func (f *FakeReader) Reset() {
	f.levels = make(map[int]logic.Level)
	f.Errors = nil
	f.Reads = nil
	f.Closed = false
}
