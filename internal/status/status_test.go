package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/tv-remote/internal/dispatch"
	"github.com/sweeney/tv-remote/internal/keys"
	"github.com/sweeney/tv-remote/internal/logic"
)

var (
	testStart   = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	testButtons = []dispatch.Button{
		{ID: "HOME", Pin: 4},
		{ID: "UP", Pin: 19},
	}
	testActions = map[string]string{
		"HOME": "MEDIA_WWW_HOME",
		"UP":   "UP_ARROW",
	}
)

func newTestTracker() *Tracker {
	cfg := Config{Name: "den", PollMs: 10, DebounceMs: 50, LockoutMs: 200, LockoutScope: "global", Sink: "mqtt", Target: "tcp://localhost:1883"}
	return NewTracker(testStart, cfg, testButtons, testActions, 5)
}

func TestNewTracker(t *testing.T) {
	tr := newTestTracker()

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(testStart) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, testStart)
	}
	if snap.Config.PollMs != 10 {
		t.Errorf("Config.PollMs: got %d, want 10", snap.Config.PollMs)
	}
	if len(snap.Buttons) != 2 {
		t.Fatalf("Buttons: got %d, want 2", len(snap.Buttons))
	}
	if snap.Buttons[1].ID != "UP" || snap.Buttons[1].Pin != 19 || snap.Buttons[1].Action != "UP_ARROW" {
		t.Errorf("Buttons[1]: got %+v", snap.Buttons[1])
	}
	if snap.Connected {
		t.Error("expected Connected=false initially")
	}
	if snap.Recent != nil {
		t.Errorf("expected no history, got %v", snap.Recent)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := newTestTracker()

	tr.Update([]dispatch.ButtonState{
		{ID: "HOME", Pin: 4, Pressed: true},
		{ID: "UP", Pin: 19, Settling: true},
		{ID: "GONE", Pin: 99, Pressed: true},
	}, func(id string) time.Duration {
		if id == "HOME" {
			return 120 * time.Millisecond
		}
		return 0
	})

	snap := tr.Snapshot()
	if !snap.Buttons[0].Pressed || snap.Buttons[0].Lockout != 120*time.Millisecond {
		t.Errorf("HOME: got %+v", snap.Buttons[0])
	}
	if snap.Buttons[1].Pressed || !snap.Buttons[1].Settling {
		t.Errorf("UP: got %+v", snap.Buttons[1])
	}
	if len(snap.Buttons) != 2 {
		t.Errorf("unknown button added: %d buttons", len(snap.Buttons))
	}
}

func TestRecordFire(t *testing.T) {
	tr := newTestTracker()
	at := testStart.Add(time.Second)

	tr.Record(dispatch.Report{
		Connected:  true,
		Fired:      "UP",
		Action:     logic.SingleKey{Code: keys.UpArrow},
		Suppressed: []string{"HOME"},
	}, nil, at)

	snap := tr.Snapshot()
	if !snap.Connected {
		t.Error("expected Connected=true")
	}
	if snap.Counts.Fires != 1 || snap.Counts.Suppressed != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if snap.Buttons[1].Fires != 1 || snap.Buttons[0].Blocked != 1 {
		t.Errorf("per-button counts: %+v", snap.Buttons)
	}
	if len(snap.Recent) != 2 {
		t.Fatalf("Recent: got %d, want 2", len(snap.Recent))
	}
	if snap.Recent[0].Result != ResultSuppressed || snap.Recent[0].Button != "HOME" {
		t.Errorf("Recent[0]: got %+v", snap.Recent[0])
	}
	if r := snap.Recent[1]; r.Result != ResultFired || r.Action != "UP_ARROW" || !r.Time.Equal(at) {
		t.Errorf("Recent[1]: got %+v", r)
	}
}

func TestRecordDropped(t *testing.T) {
	tr := newTestTracker()

	tr.Record(dispatch.Report{Dropped: []string{"HOME"}}, nil, testStart)

	snap := tr.Snapshot()
	if snap.Counts.Dropped != 1 || snap.Counts.Fires != 0 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if snap.Recent[0].Result != ResultDropped || snap.Recent[0].Action != "MEDIA_WWW_HOME" {
		t.Errorf("Recent[0]: got %+v", snap.Recent[0])
	}
}

func TestRecordFailedFire(t *testing.T) {
	tr := newTestTracker()
	err := &dispatch.ButtonError{ID: "UP", Err: errors.New("queue full")}

	tr.Record(dispatch.Report{Connected: true, Fired: "UP", Action: logic.SingleKey{Code: keys.UpArrow}}, err, testStart)

	snap := tr.Snapshot()
	if snap.Counts.Fires != 0 || snap.Counts.Failures != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if snap.Buttons[1].Failures != 1 {
		t.Errorf("UP failures: got %d, want 1", snap.Buttons[1].Failures)
	}
	r := snap.Recent[0]
	if r.Result != ResultFailed || r.Error != "button UP: queue full" {
		t.Errorf("Recent[0]: got %+v", r)
	}
}

func TestRecordReadErrorDoesNotFailFire(t *testing.T) {
	tr := newTestTracker()
	err := errors.Join(&dispatch.ButtonError{ID: "HOME", Err: errors.New("line busy")})

	tr.Record(dispatch.Report{Connected: true, Fired: "UP", Action: logic.SingleKey{Code: keys.UpArrow}}, err, testStart)

	snap := tr.Snapshot()
	if snap.Counts.Fires != 1 || snap.Counts.Failures != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if snap.Buttons[0].Failures != 1 || snap.Buttons[1].Fires != 1 {
		t.Errorf("per-button counts: %+v", snap.Buttons)
	}
}

func TestRecordReleaseFailure(t *testing.T) {
	tr := newTestTracker()
	err := &dispatch.ButtonError{ID: "HOME", Err: errors.New("gone")}

	tr.Record(dispatch.Report{Released: true}, err, testStart)

	snap := tr.Snapshot()
	if snap.Counts.Failures != 1 {
		t.Errorf("Failures: got %d, want 1", snap.Counts.Failures)
	}
	if snap.Recent[0].Button != "HOME" || snap.Recent[0].Result != ResultFailed {
		t.Errorf("Recent[0]: got %+v", snap.Recent[0])
	}
}

func TestHistoryIsBounded(t *testing.T) {
	tr := newTestTracker()
	for i := 0; i < 8; i++ {
		tr.Record(dispatch.Report{Dropped: []string{"UP"}}, nil, testStart.Add(time.Duration(i)*time.Second))
	}

	snap := tr.Snapshot()
	if len(snap.Recent) != 5 {
		t.Fatalf("Recent: got %d, want 5", len(snap.Recent))
	}
	if !snap.Recent[0].Time.Equal(testStart.Add(3 * time.Second)) {
		t.Errorf("oldest kept: got %v", snap.Recent[0].Time)
	}
	if snap.Counts.Dropped != 8 {
		t.Errorf("Dropped: got %d, want 8", snap.Counts.Dropped)
	}
}

func TestSetConnected(t *testing.T) {
	tr := newTestTracker()

	tr.SetConnected(true)
	if !tr.Snapshot().Connected {
		t.Error("expected Connected=true")
	}

	tr.SetConnected(false)
	if tr.Snapshot().Connected {
		t.Error("expected Connected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{
		StartTime: testStart,
		Now:       testStart.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := newTestTracker()

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := newTestTracker()
	tr.Update([]dispatch.ButtonState{{ID: "HOME", Pressed: true}}, nil)

	snap1 := tr.Snapshot()

	tr.Update([]dispatch.ButtonState{{ID: "HOME", Pressed: false}}, nil)

	// snap1 should still reflect old state
	if !snap1.Buttons[0].Pressed {
		t.Error("snapshot should be a copy; Buttons was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	tr := newTestTracker()
	tr.Update([]dispatch.ButtonState{{ID: "UP", Pressed: true}}, func(string) time.Duration { return 150 * time.Millisecond })
	tr.Record(dispatch.Report{Connected: true, Fired: "UP", Action: logic.SingleKey{Code: keys.UpArrow}}, nil, testStart.Add(time.Minute))

	snap := tr.Snapshot()
	snap.Now = testStart.Add(15 * time.Minute)
	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Name != "den" {
		t.Errorf("Name: got %q, want den", s.Name)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.Sink.Connected || s.Sink.Type != "mqtt" || s.Sink.Target != "tcp://localhost:1883" {
		t.Errorf("Sink: got %+v", s.Sink)
	}
	if s.Counts.Fires != 1 {
		t.Errorf("Counts.Fires: got %d, want 1", s.Counts.Fires)
	}
	if len(s.Buttons) != 2 || !s.Buttons[1].Pressed || s.Buttons[1].LockoutMs != 150 || s.Buttons[1].Fires != 1 {
		t.Errorf("Buttons: got %+v", s.Buttons)
	}
	if len(s.Recent) != 1 || s.Recent[0].Result != "FIRED" || s.Recent[0].Timestamp != "2026-01-01T00:01:00Z" {
		t.Errorf("Recent: got %+v", s.Recent)
	}
	if s.Config.LockoutScope != "global" {
		t.Errorf("Config.LockoutScope: got %q", s.Config.LockoutScope)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty Event/Reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONEmptyListsAreArrays(t *testing.T) {
	data := FormatJSON(Snapshot{StartTime: testStart, Now: testStart})

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["status"]["buttons"]) != "[]" || string(raw["status"]["recent"]) != "[]" {
		t.Errorf("expected empty arrays, got buttons=%s recent=%s", raw["status"]["buttons"], raw["status"]["recent"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{StartTime: testStart, Now: testStart.Add(time.Hour)}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Event/Reason: got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 3600 {
		t.Errorf("UptimeSeconds: got %d, want 3600", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(Snapshot{StartTime: testStart, Now: testStart}, "HEARTBEAT", "")

	var raw map[string]map[string]interface{}
	json.Unmarshal(data, &raw)
	if _, ok := raw["status"]["reason"]; ok {
		t.Error("expected reason to be omitted")
	}
	if raw["status"]["event"] != "HEARTBEAT" {
		t.Errorf("event: got %v", raw["status"]["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := newTestTracker()
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update([]dispatch.ButtonState{{ID: "UP", Pressed: i%2 == 0}}, nil)
			tr.Record(dispatch.Report{Connected: i%2 == 0, Dropped: []string{"HOME"}}, nil, time.Now())
			tr.SetConnected(i%3 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
