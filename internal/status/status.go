// Package status provides a thread-safe status tracker for the tv-remote daemon.
// It is written by the run loop and read by the HTTP handlers and heartbeat.
package status

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/tv-remote/internal/dispatch"
)

// Config contains daemon configuration for display.
type Config struct {
	Name         string
	PollMs       int64
	DebounceMs   int64
	LockoutMs    int64
	LockoutScope string
	HeartbeatMs  int64
	Input        string // "gpio" or "term"
	Sink         string // "mqtt", "ws" or "log"
	Target       string // broker or websocket URL
	HTTPAddr     string
}

// ButtonStatus is the view of one button.
type ButtonStatus struct {
	ID       string
	Pin      int
	Action   string
	Pressed  bool
	Settling bool
	Lockout  time.Duration // remaining lockout
	Fires    int
	Failures int
	Blocked  int // suppressed by the lockout
}

// Counts are totals across all buttons.
type Counts struct {
	Fires      int
	Failures   int
	Suppressed int
	Dropped    int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and owns its slices, so it is safe to use after the lock is released.
type Snapshot struct {
	Buttons   []ButtonStatus
	Connected bool
	Holding   bool
	Counts    Counts
	Recent    []Record // oldest first
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	index map[string]int
	hist  *history
}

// NewTracker creates a Tracker for buttons with the given start time and
// config. actions maps button ids to the string form of their action.
func NewTracker(startTime time.Time, cfg Config, buttons []dispatch.Button, actions map[string]string, historySize int) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		index: make(map[string]int, len(buttons)),
		hist:  newHistory(historySize),
	}
	for i, b := range buttons {
		t.index[b.ID] = i
		t.snap.Buttons = append(t.snap.Buttons, ButtonStatus{ID: b.ID, Pin: b.Pin, Action: actions[b.ID]})
	}
	return t
}

// Update sets the debounced button states. lockout returns the remaining
// lockout for a button id and may be nil.
func (t *Tracker) Update(states []dispatch.ButtonState, lockout func(id string) time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range states {
		i, ok := t.index[st.ID]
		if !ok {
			continue
		}
		b := &t.snap.Buttons[i]
		b.Pressed = st.Pressed
		b.Settling = st.Settling
		if lockout != nil {
			b.Lockout = lockout(st.ID)
		}
	}
}

// Record folds the outcome of one tick into the counts and history.
// err is the error returned by the tick.
func (t *Tracker) Record(rep dispatch.Report, err error, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Connected = rep.Connected
	t.snap.Holding = rep.Holding

	for _, id := range rep.Suppressed {
		t.snap.Counts.Suppressed++
		if b := t.button(id); b != nil {
			b.Blocked++
		}
		t.hist.push(Record{Time: at, Button: id, Action: t.action(id), Result: ResultSuppressed})
	}
	for _, id := range rep.Dropped {
		t.snap.Counts.Dropped++
		t.hist.push(Record{Time: at, Button: id, Action: t.action(id), Result: ResultDropped})
	}

	var fireErr error
	for _, e := range splitErrors(err) {
		var be *dispatch.ButtonError
		if errors.As(e, &be) && be.ID == rep.Fired {
			fireErr = e
			continue
		}
		// read failures and the release at the end of a chord hold
		r := Record{Time: at, Result: ResultFailed, Error: e.Error()}
		if be != nil {
			r.Button = be.ID
			r.Action = t.action(be.ID)
			if b := t.button(be.ID); b != nil {
				b.Failures++
			}
		}
		t.snap.Counts.Failures++
		t.hist.push(r)
	}

	if rep.Fired == "" {
		return
	}
	r := Record{Time: at, Button: rep.Fired, Action: t.action(rep.Fired), Result: ResultFired}
	if rep.Action != nil {
		r.Action = rep.Action.String()
	}
	b := t.button(rep.Fired)
	if fireErr != nil {
		r.Result = ResultFailed
		r.Error = fireErr.Error()
		t.snap.Counts.Failures++
		if b != nil {
			b.Failures++
		}
	} else {
		t.snap.Counts.Fires++
		if b != nil {
			b.Fires++
		}
	}
	t.hist.push(r)
}

// splitErrors flattens an errors.Join tree into its leaves.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, splitErrors(e)...)
		}
		return out
	}
	return []error{err}
}

func (t *Tracker) button(id string) *ButtonStatus {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return &t.snap.Buttons[i]
}

func (t *Tracker) action(id string) string {
	if b := t.button(id); b != nil {
		return b.Action
	}
	return ""
}

// SetConnected sets the sink connection status.
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	t.snap.Connected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Buttons = append([]ButtonStatus(nil), t.snap.Buttons...)
	s.Recent = t.hist.list()
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
