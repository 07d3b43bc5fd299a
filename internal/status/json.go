package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Name          string       `json:"name"`
	Holding       bool         `json:"holding"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Sink          SinkStatus   `json:"sink"`
	Counts        CountsJSON   `json:"counts"`
	Buttons       []ButtonJSON `json:"buttons"`
	Recent        []RecordJSON `json:"recent"`
	Config        ConfigJSON   `json:"config"`
}

// SinkStatus reports the output connection state.
type SinkStatus struct {
	Type      string `json:"type"`
	Target    string `json:"target,omitempty"`
	Connected bool   `json:"connected"`
}

// CountsJSON is the JSON representation of totals.
type CountsJSON struct {
	Fires      int `json:"fires"`
	Failures   int `json:"failures"`
	Suppressed int `json:"suppressed"`
	Dropped    int `json:"dropped"`
}

// ButtonJSON is the JSON representation of one button.
type ButtonJSON struct {
	ID         string `json:"id"`
	Pin        int    `json:"pin"`
	Action     string `json:"action"`
	Pressed    bool   `json:"pressed"`
	Settling   bool   `json:"settling"`
	LockoutMs  int64  `json:"lockout_ms"`
	Fires      int    `json:"fires"`
	Failures   int    `json:"failures"`
	Suppressed int    `json:"suppressed"`
}

// RecordJSON is the JSON representation of a history record.
type RecordJSON struct {
	Timestamp string `json:"timestamp"`
	Button    string `json:"button,omitempty"`
	Action    string `json:"action,omitempty"`
	Result    string `json:"result"`
	Error     string `json:"error,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	DebounceMs   int64  `json:"debounce_ms"`
	LockoutMs    int64  `json:"lockout_ms"`
	LockoutScope string `json:"lockout_scope"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Input        string `json:"input"`
	HTTPAddr     string `json:"http_addr,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Name:          snap.Config.Name,
		Holding:       snap.Holding,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Sink: SinkStatus{
			Type:      snap.Config.Sink,
			Target:    snap.Config.Target,
			Connected: snap.Connected,
		},
		Counts: CountsJSON{
			Fires:      snap.Counts.Fires,
			Failures:   snap.Counts.Failures,
			Suppressed: snap.Counts.Suppressed,
			Dropped:    snap.Counts.Dropped,
		},
		Buttons: make([]ButtonJSON, 0, len(snap.Buttons)),
		Recent:  make([]RecordJSON, 0, len(snap.Recent)),
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			DebounceMs:   snap.Config.DebounceMs,
			LockoutMs:    snap.Config.LockoutMs,
			LockoutScope: snap.Config.LockoutScope,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Input:        snap.Config.Input,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}

	for _, b := range snap.Buttons {
		inner.Buttons = append(inner.Buttons, ButtonJSON{
			ID:         b.ID,
			Pin:        b.Pin,
			Action:     b.Action,
			Pressed:    b.Pressed,
			Settling:   b.Settling,
			LockoutMs:  b.Lockout.Milliseconds(),
			Fires:      b.Fires,
			Failures:   b.Failures,
			Suppressed: b.Blocked,
		})
	}
	for _, r := range snap.Recent {
		inner.Recent = append(inner.Recent, RecordJSON{
			Timestamp: r.Time.UTC().Format(time.RFC3339Nano),
			Button:    r.Button,
			Action:    r.Action,
			Result:    string(r.Result),
			Error:     r.Error,
		})
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
