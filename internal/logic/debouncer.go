package logic

// Debouncer turns a noisy raw level into a stable level and edges.
// Every raw change restarts the settle window; a level is committed only once
// it has been unchanged for longer than the window.
type Debouncer struct {
	window     Millis
	active     Level
	sample     Level
	stable     Level
	lastChange Millis
}

// NewDebouncer creates a debouncer for an input whose asserted level is
// active (Low for a switch to ground with pull-up). The input starts
// deasserted.
func NewDebouncer(window Millis, active Level) *Debouncer {
	return &Debouncer{
		window: window,
		active: active,
		sample: !active,
		stable: !active,
	}
}

// Update feeds one raw sample taken at now and returns the edge committed by
// it, if any.
func (d *Debouncer) Update(level Level, now Millis) (Edge, bool) {
	if level != d.sample {
		d.sample = level
		d.lastChange = now
	}

	if Since(now, d.lastChange) > d.window && level != d.stable {
		d.stable = level
		if d.stable == d.active {
			return PressEdge, true
		}
		return ReleaseEdge, true
	}
	return 0, false
}

// Pressed reports whether the stable level is the asserted level.
func (d *Debouncer) Pressed() bool {
	return d.stable == d.active
}

// Stable returns the last committed level.
func (d *Debouncer) Stable() Level {
	return d.stable
}

// Settling reports whether the raw level differs from the stable level.
func (d *Debouncer) Settling() bool {
	return d.sample != d.stable
}
