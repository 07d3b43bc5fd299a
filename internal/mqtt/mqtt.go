// Package mqtt carries the remote's traffic over MQTT. Key reports
// (sink.Message) go to <base>/keys for a bridge on the paired host to replay
// as HID input; lifecycle events go to <base>/system.
package mqtt

import (
	"encoding/json"
	"time"
)

// DefaultBaseTopic is the topic prefix used when none is configured.
const DefaultBaseTopic = "tv-remote"

// KeysTopic returns the topic for key reports under base.
func KeysTopic(base string) string {
	return base + "/keys"
}

// SystemTopic returns the topic for lifecycle events under base.
func SystemTopic(base string) string {
	return base + "/system"
}

// SystemPublisher announces lifecycle events.
type SystemPublisher interface {
	PublishSystem(event SystemEvent) error
}

// SystemEvent is a STARTUP, SHUTDOWN, HEARTBEAT or OFFLINE announcement.
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string // signal name on SHUTDOWN, "LWT" on OFFLINE
	Retained  bool

	// RawPayload replaces the generated payload, normally with a full
	// status snapshot.
	RawPayload []byte
}

type systemBody struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload renders event as {"system":{...}}, or returns
// RawPayload untouched when set.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(struct {
		System systemBody `json:"system"`
	}{systemBody{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Event,
		Reason:    event.Reason,
	}})
}
