package gpio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/sweeney/tv-remote/internal/logic"
)

// TermKey identifies a terminal key: either a rune or a special tcell key.
type TermKey struct {
	Key  tcell.Key
	Rune rune
}

// ParseTermKey accepts a single character ("u") or a tcell key name
// ("Up", "Enter", "Backspace2"), case insensitive for names.
func ParseTermKey(s string) (TermKey, error) {
	r := []rune(s)
	if len(r) == 1 {
		return TermKey{Key: tcell.KeyRune, Rune: r[0]}, nil
	}
	for k, name := range tcell.KeyNames {
		if strings.EqualFold(name, s) {
			return TermKey{Key: k}, nil
		}
	}
	return TermKey{}, fmt.Errorf("unknown terminal key %q", s)
}

func termKeyOf(ev *tcell.EventKey) TermKey {
	if ev.Key() == tcell.KeyRune {
		return TermKey{Key: tcell.KeyRune, Rune: ev.Rune()}
	}
	return TermKey{Key: ev.Key()}
}

// TermBinding maps a terminal key to a button pin.
type TermBinding struct {
	Key    TermKey
	Pin    int
	Active logic.Level
}

// TermReader is a bench Reader driven by a terminal. Terminals only report
// key presses, so each press holds its pin asserted for a fixed tap time.
type TermReader struct {
	screen tcell.Screen
	tap    time.Duration
	now    func() time.Time
	onQuit func()

	byKey  map[TermKey]int
	active map[int]logic.Level

	mu      sync.Mutex
	until   map[int]time.Time
	lines   []string
	started bool

	done chan struct{}
}

// maxLogLines bounds the lines kept for display.
const maxLogLines = 200

// NewTermReader creates a reader on screen. onQuit is called when Esc or
// Ctrl+C is pressed; it may be nil.
func NewTermReader(screen tcell.Screen, bindings []TermBinding, tap time.Duration, now func() time.Time, onQuit func()) *TermReader {
	r := &TermReader{
		screen: screen,
		tap:    tap,
		now:    now,
		onQuit: onQuit,
		byKey:  make(map[TermKey]int, len(bindings)),
		active: make(map[int]logic.Level, len(bindings)),
		until:  make(map[int]time.Time),
		done:   make(chan struct{}),
	}
	for _, b := range bindings {
		r.byKey[b.Key] = b.Pin
		r.active[b.Pin] = b.Active
	}
	return r
}

// Start initialises the screen and begins consuming key events.
func (r *TermReader) Start() error {
	if err := r.screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	r.mu.Lock()
	r.started = true
	r.drawLocked()
	r.mu.Unlock()
	go r.loop()
	return nil
}

// Write shows p under the banner, one screen row per line, so log output
// can go to the terminal without tearing it. It implements io.Writer.
func (r *TermReader) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, strings.Split(strings.TrimRight(string(p), "\n"), "\n")...)
	if len(r.lines) > maxLogLines {
		r.lines = r.lines[len(r.lines)-maxLogLines:]
	}
	if r.started {
		r.drawLocked()
	}
	return len(p), nil
}

// Lines returns the lines written so far, oldest first.
func (r *TermReader) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *TermReader) drawLocked() {
	r.screen.Clear()
	putLine(r.screen, 0, "tv-remote bench input: press mapped keys, Esc or Ctrl+C to quit", tcell.StyleDefault.Bold(true))

	_, h := r.screen.Size()
	rows := h - 2
	if rows <= 0 {
		r.screen.Show()
		return
	}
	lines := r.lines
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	for i, line := range lines {
		putLine(r.screen, i+2, line, tcell.StyleDefault)
	}
	r.screen.Show()
}

func putLine(screen tcell.Screen, y int, text string, style tcell.Style) {
	x := 0
	for _, c := range text {
		screen.SetContent(x, y, c, nil, style)
		x++
	}
}

func (r *TermReader) loop() {
	defer close(r.done)
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			return // screen finalised
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if isQuit(ev) {
				if r.onQuit != nil {
					r.onQuit()
				}
				continue
			}
			r.tapKey(termKeyOf(ev))
		case *tcell.EventResize:
			r.mu.Lock()
			r.drawLocked()
			r.mu.Unlock()
			r.screen.Sync()
		}
	}
}

func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'c' && ev.Modifiers()&tcell.ModCtrl != 0
	}
	return false
}

func (r *TermReader) tapKey(k TermKey) {
	pin, ok := r.byKey[k]
	if !ok {
		return
	}
	r.mu.Lock()
	r.until[pin] = r.now().Add(r.tap)
	r.mu.Unlock()
}

// Read returns the asserted level while pin's tap is in progress.
func (r *TermReader) Read(pin int) (logic.Level, error) {
	active, ok := r.active[pin]
	if !ok {
		return logic.High, fmt.Errorf("pin %d has no terminal key", pin)
	}
	r.mu.Lock()
	until := r.until[pin]
	r.mu.Unlock()

	if r.now().Before(until) {
		return active, nil
	}
	return !active, nil
}

// Close restores the terminal and waits for the event loop to exit.
func (r *TermReader) Close() error {
	r.mu.Lock()
	started := r.started
	r.started = false
	r.mu.Unlock()
	if !started {
		return nil
	}
	r.screen.Fini()
	select {
	case <-r.done:
	case <-time.After(time.Second):
	}
	return nil
}
