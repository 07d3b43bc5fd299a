//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/tv-remote/internal/logic"
)

// RealReader reads buttons from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
	order []int
}

// NewRealReader requests every pin as an input, biased towards its released
// level.
func NewRealReader(chipName string, pins []Pin) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line, len(pins)),
	}
	for _, p := range pins {
		line, err := chip.RequestLine(p.Offset, gpiocdev.AsInput, biasFor(p.Active))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request pin %d: %w", p.Offset, err)
		}
		r.lines[p.Offset] = line
		r.order = append(r.order, p.Offset)
	}
	return r, nil
}

// biasFor holds an open switch at the opposite of its active level: pull-up
// for buttons to ground, pull-down for buttons to 3V3.
func biasFor(active logic.Level) gpiocdev.LineBias {
	if active == logic.High {
		return gpiocdev.WithPullDown
	}
	return gpiocdev.WithPullUp
}

// Read returns the raw level of pin.
func (r *RealReader) Read(pin int) (logic.Level, error) {
	line, ok := r.lines[pin]
	if !ok {
		return logic.High, fmt.Errorf("pin %d not requested", pin)
	}
	v, err := line.Value()
	if err != nil {
		return logic.High, fmt.Errorf("read pin %d: %w", pin, err)
	}
	return logic.Level(v != 0), nil
}

// Close releases GPIO resources.
// Pins are returned to plain inputs with bias disabled.
func (r *RealReader) Close() error {
	var errs []error

	for _, pin := range r.order {
		line := r.lines[pin]
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	r.lines = nil
	r.order = nil

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
