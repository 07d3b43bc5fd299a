package gpio

import (
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/sweeney/tv-remote/internal/logic"
)

var _ Reader = (*TermReader)(nil)

// manualClock is a settable clock shared between the test and the reader's
// event goroutine.
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestTermReader(t *testing.T, onQuit func()) (*TermReader, tcell.SimulationScreen, *manualClock) {
	t.Helper()
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	screen := tcell.NewSimulationScreen("UTF-8")

	up, err := ParseTermKey("Up")
	if err != nil {
		t.Fatalf("ParseTermKey: %v", err)
	}
	r := NewTermReader(screen, []TermBinding{
		{Key: TermKey{Key: tcell.KeyRune, Rune: 'h'}, Pin: 4, Active: logic.Low},
		{Key: up, Pin: 19, Active: logic.Low},
		{Key: TermKey{Key: tcell.KeyRune, Rune: 'x'}, Pin: 7, Active: logic.High},
	}, 150*time.Millisecond, clock.Now, onQuit)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, screen, clock
}

// waitLevel polls Read until it returns want or the deadline passes.
func waitLevel(t *testing.T, r *TermReader, pin int, want logic.Level) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		level, err := r.Read(pin)
		if err != nil {
			t.Fatalf("Read(%d): %v", pin, err)
		}
		if level == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pin %d never read %s", pin, want)
}

func TestParseTermKey(t *testing.T) {
	k, err := ParseTermKey("u")
	if err != nil || k.Key != tcell.KeyRune || k.Rune != 'u' {
		t.Errorf("rune key: got %+v, %v", k, err)
	}
	k, err = ParseTermKey("enter")
	if err != nil || k.Key != tcell.KeyEnter {
		t.Errorf("named key: got %+v, %v", k, err)
	}
	if _, err := ParseTermKey("NotAKey"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestTermReaderIdle(t *testing.T) {
	r, _, _ := newTestTermReader(t, nil)

	if level, err := r.Read(4); err != nil || level != logic.High {
		t.Errorf("expected idle active-low pin HIGH, got %s, %v", level, err)
	}
	if level, err := r.Read(7); err != nil || level != logic.Low {
		t.Errorf("expected idle active-high pin LOW, got %s, %v", level, err)
	}
	if _, err := r.Read(99); err == nil {
		t.Error("expected error for unbound pin")
	}
}

func TestTermReaderTap(t *testing.T) {
	r, screen, clock := newTestTermReader(t, nil)

	screen.InjectKey(tcell.KeyRune, 'h', tcell.ModNone)
	waitLevel(t, r, 4, logic.Low)

	// other pins unaffected
	if level, _ := r.Read(19); level != logic.High {
		t.Errorf("expected pin 19 idle, got %s", level)
	}

	clock.Advance(149 * time.Millisecond)
	if level, _ := r.Read(4); level != logic.Low {
		t.Errorf("expected pin still asserted inside tap, got %s", level)
	}
	clock.Advance(time.Millisecond)
	if level, _ := r.Read(4); level != logic.High {
		t.Errorf("expected pin released after tap, got %s", level)
	}
}

func TestTermReaderSpecialKeyAndActiveHigh(t *testing.T) {
	r, screen, _ := newTestTermReader(t, nil)

	screen.InjectKey(tcell.KeyUp, 0, tcell.ModNone)
	waitLevel(t, r, 19, logic.Low)

	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	waitLevel(t, r, 7, logic.High)
}

func TestTermReaderQuit(t *testing.T) {
	quit := make(chan struct{}, 1)
	_, screen, _ := newTestTermReader(t, func() {
		select {
		case quit <- struct{}{}:
		default:
		}
	})

	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onQuit after Esc")
	}
}

func TestTermReaderCloseWithoutStart(t *testing.T) {
	r := NewTermReader(tcell.NewSimulationScreen("UTF-8"), nil, time.Millisecond, time.Now, nil)
	if err := r.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTermReaderWriteShowsLines(t *testing.T) {
	r, screen, _ := newTestTermReader(t, nil)

	if _, err := r.Write([]byte("level=info msg=fired\nsecond\n")); err != nil {
		t.Fatal(err)
	}
	lines := r.Lines()
	if len(lines) != 2 || lines[0] != "level=info msg=fired" || lines[1] != "second" {
		t.Fatalf("Lines: got %q", lines)
	}

	for x, want := range "second" {
		c, _, _, _ := screen.GetContent(x, 3)
		if c != want {
			t.Fatalf("row 3 col %d: got %q, want %q", x, c, want)
		}
	}
}

func TestTermReaderWriteBeforeStartIsKept(t *testing.T) {
	r := NewTermReader(tcell.NewSimulationScreen("UTF-8"), nil, time.Millisecond, time.Now, nil)
	for i := 0; i < maxLogLines+5; i++ {
		r.Write([]byte("x\n"))
	}
	if got := len(r.Lines()); got != maxLogLines {
		t.Errorf("kept %d lines, want %d", got, maxLogLines)
	}
}
