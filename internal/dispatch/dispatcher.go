// Package dispatch runs the remote's polling tick: it samples every button,
// debounces it, and turns press edges into key reports on the sink.
//
// A Dispatcher is not safe for concurrent use; it is driven from a single
// loop goroutine, which is what makes the lockout ordering hold without locks.
package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/tv-remote/internal/gpio"
	"github.com/sweeney/tv-remote/internal/keys"
	"github.com/sweeney/tv-remote/internal/logic"
	"github.com/sweeney/tv-remote/internal/sink"
)

// Button is one physical switch.
type Button struct {
	ID     string
	Pin    int
	Active logic.Level // Low for a switch to ground with pull-up
}

// Config holds the dispatcher timing.
type Config struct {
	Debounce time.Duration
	Lockout  time.Duration
	Scope    logic.LockoutScope
}

// EdgeEvent is a debounced edge seen on a button during a tick.
type EdgeEvent struct {
	ID   string
	Pin  int
	Edge logic.Edge
}

// Report describes what a single Tick did.
type Report struct {
	Connected bool
	Edges     []EdgeEvent

	// Fired is the id of the button whose action was attempted this tick.
	Fired  string
	Action logic.Action

	// Suppressed lists press edges blocked by the lockout.
	Suppressed []string
	// Dropped lists press edges seen while the sink was not connected.
	Dropped []string

	// Holding is set while a chord is held down, including while keys whose
	// release failed are still being retried.
	Holding bool
	// Released is set on the tick that lets the chord's keys go.
	Released bool
}

// ButtonError ties a read or sink failure to the button it happened on.
type ButtonError struct {
	ID  string
	Err error
}

func (e *ButtonError) Error() string {
	return fmt.Sprintf("button %s: %v", e.ID, e.Err)
}

func (e *ButtonError) Unwrap() error {
	return e.Err
}

// ButtonState is a point-in-time view of one button.
type ButtonState struct {
	ID       string
	Pin      int
	Pressed  bool
	Settling bool
}

type channel struct {
	Button
	deb *logic.Debouncer
}

type heldChord struct {
	id    string
	codes []keys.Code
	start logic.Millis
	hold  logic.Millis
}

// Dispatcher routes debounced presses to actions.
type Dispatcher struct {
	channels []*channel
	bindings *logic.Bindings
	in       gpio.Reader
	out      sink.Sink
	gate     *logic.Gate
	held     *heldChord

	// stuck holds keys whose release failed entirely; every tick retries
	// them before sampling.
	stuck   []keys.Code
	stuckID string
}

// New creates a Dispatcher. Every button needs exactly one binding and every
// binding needs a button.
func New(buttons []Button, bindings *logic.Bindings, in gpio.Reader, out sink.Sink, cfg Config) (*Dispatcher, error) {
	if len(buttons) == 0 {
		return nil, errors.New("no buttons")
	}
	if bindings == nil {
		return nil, errors.New("no bindings")
	}

	d := &Dispatcher{
		bindings: bindings,
		in:       in,
		out:      out,
		gate:     logic.NewGate(logic.MillisOf(cfg.Lockout), cfg.Scope),
	}

	seen := make(map[string]bool, len(buttons))
	window := logic.MillisOf(cfg.Debounce)
	for _, b := range buttons {
		if seen[b.ID] {
			return nil, fmt.Errorf("button %q: duplicate id", b.ID)
		}
		seen[b.ID] = true
		if _, ok := bindings.Lookup(b.ID); !ok {
			return nil, fmt.Errorf("button %q: no binding", b.ID)
		}
		d.channels = append(d.channels, &channel{
			Button: b,
			deb:    logic.NewDebouncer(window, b.Active),
		})
	}
	for _, id := range bindings.IDs() {
		if !seen[id] {
			return nil, fmt.Errorf("binding %q: no button", id)
		}
	}
	return d, nil
}

// Tick runs one polling cycle at now. At most one action is attempted per
// tick: the first press edge, in button order, whose lockout has expired.
// Failures come back as *ButtonError wrapping a *sink.Error or a read error; the
// dispatcher stays consistent and polling simply continues next tick. Keys
// that could not be released are retried at the start of every tick, and no
// button is sampled until they are up.
func (d *Dispatcher) Tick(now logic.Millis) (Report, error) {
	rep := Report{Connected: d.out.IsConnected()}

	if d.held != nil {
		if logic.Since(now, d.held.start) < d.held.hold {
			rep.Holding = true
			return rep, nil
		}
		h := d.held
		d.held = nil
		return d.releaseTick(rep, h.id, h.codes)
	}
	if len(d.stuck) > 0 {
		return d.releaseTick(rep, d.stuckID, d.stuck)
	}

	var errs []error
	for _, ch := range d.channels {
		level, err := d.in.Read(ch.Pin)
		if err != nil {
			errs = append(errs, &ButtonError{ID: ch.ID, Err: err})
			continue
		}

		edge, ok := ch.deb.Update(level, now)
		if !ok {
			continue
		}
		rep.Edges = append(rep.Edges, EdgeEvent{ID: ch.ID, Pin: ch.Pin, Edge: edge})
		if edge != logic.PressEdge {
			continue
		}
		if !rep.Connected {
			rep.Dropped = append(rep.Dropped, ch.ID)
			continue
		}
		if !d.gate.Open(ch.ID, now) {
			rep.Suppressed = append(rep.Suppressed, ch.ID)
			continue
		}

		action, _ := d.bindings.Lookup(ch.ID)
		rep.Fired = ch.ID
		rep.Action = action
		delivered, err := d.fire(ch.ID, action, now)
		if delivered {
			d.gate.Arm(ch.ID, now)
		}
		if err != nil {
			errs = append(errs, &ButtonError{ID: ch.ID, Err: err})
		}
		rep.Holding = d.held != nil || len(d.stuck) > 0
		break
	}
	return rep, errors.Join(errs...)
}

// fire executes a. delivered reports whether the key report reached the sink,
// which is what arms the lockout.
func (d *Dispatcher) fire(id string, a logic.Action, now logic.Millis) (delivered bool, err error) {
	switch a := a.(type) {
	case logic.SingleKey:
		if err := d.out.Write(a.Code); err != nil {
			return false, &sink.Error{Op: sink.OpWrite, Code: a.Code, Err: err}
		}
		return true, nil

	case logic.KeyChord:
		pressed := make([]keys.Code, 0, len(a.Codes))
		for _, c := range a.Codes {
			if err := d.out.Press(c); err != nil {
				// the failed key may be half-down on the peer, so release it too
				perr := &sink.Error{Op: sink.OpPress, Code: c, Err: err}
				return false, errors.Join(perr, d.releaseOrKeep(id, append(pressed, c)))
			}
			pressed = append(pressed, c)
		}
		hold := logic.MillisOf(a.Hold)
		if hold == 0 {
			return true, d.releaseOrKeep(id, pressed)
		}
		d.held = &heldChord{id: id, codes: pressed, start: now, hold: hold}
		return true, nil
	}
	return false, fmt.Errorf("unsupported action %T", a)
}

// releaseTick ends a chord on a tick of its own. Keys that could not be
// released stay stuck and the report keeps Holding set.
func (d *Dispatcher) releaseTick(rep Report, id string, codes []keys.Code) (Report, error) {
	err := d.releaseOrKeep(id, codes)
	rep.Released = len(d.stuck) == 0
	rep.Holding = !rep.Released
	if err != nil {
		return rep, &ButtonError{ID: id, Err: err}
	}
	return rep, nil
}

// releaseOrKeep releases codes and remembers whichever keys are still down
// for the next tick to retry.
func (d *Dispatcher) releaseOrKeep(id string, codes []keys.Code) error {
	left, err := d.release(codes)
	d.stuck, d.stuckID = left, id
	if len(left) == 0 {
		d.stuckID = ""
	}
	return err
}

// release lets every key in codes go. ReleaseAll is tried first; if it
// fails each key is released individually, last pressed first. left lists
// the keys that are still down afterwards.
func (d *Dispatcher) release(codes []keys.Code) (left []keys.Code, err error) {
	rerr := d.out.ReleaseAll()
	if rerr == nil {
		return nil, nil
	}
	errs := []error{&sink.Error{Op: sink.OpReleaseAll, Err: rerr}}
	for i := len(codes) - 1; i >= 0; i-- {
		if rerr := d.out.Release(codes[i]); rerr != nil {
			errs = append(errs, &sink.Error{Op: sink.OpRelease, Code: codes[i], Err: rerr})
			left = append([]keys.Code{codes[i]}, left...)
		}
	}
	return left, errors.Join(errs...)
}

// HoldRemaining returns how long the current chord hold has left at now.
// ok is false when no chord is held.
func (d *Dispatcher) HoldRemaining(now logic.Millis) (remaining time.Duration, ok bool) {
	if d.held == nil {
		return 0, false
	}
	el := logic.Since(now, d.held.start)
	if el >= d.held.hold {
		return 0, true
	}
	return (d.held.hold - el).Duration(), true
}

// Flush releases a chord that is still held, or keys left down by a failed
// release, e.g. at shutdown.
func (d *Dispatcher) Flush() error {
	id, codes := d.stuckID, d.stuck
	if d.held != nil {
		id, codes = d.held.id, d.held.codes
		d.held = nil
	}
	if len(codes) == 0 {
		return nil
	}
	if err := d.releaseOrKeep(id, codes); err != nil {
		return &ButtonError{ID: id, Err: err}
	}
	return nil
}

// States returns the debounced state of every button in configuration order.
func (d *Dispatcher) States() []ButtonState {
	out := make([]ButtonState, len(d.channels))
	for i, ch := range d.channels {
		out[i] = ButtonState{
			ID:       ch.ID,
			Pin:      ch.Pin,
			Pressed:  ch.deb.Pressed(),
			Settling: ch.deb.Settling(),
		}
	}
	return out
}

// LockoutRemaining returns how long id stays locked out at now.
func (d *Dispatcher) LockoutRemaining(id string, now logic.Millis) time.Duration {
	return d.gate.Remaining(id, now).Duration()
}
