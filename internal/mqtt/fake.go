package mqtt

import "sync"

// Sent is one lifecycle event recorded by FakeAnnouncer.
type Sent struct {
	Event   SystemEvent
	Payload []byte
}

// FakeAnnouncer is a SystemPublisher that records what it is given.
type FakeAnnouncer struct {
	mu   sync.Mutex
	sent []Sent
	err  error
}

// NewFakeAnnouncer returns an empty FakeAnnouncer.
func NewFakeAnnouncer() *FakeAnnouncer {
	return &FakeAnnouncer{}
}

// Fail makes every later PublishSystem return err. nil clears it.
func (f *FakeAnnouncer) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// PublishSystem records event with the payload that would go on the wire.
func (f *FakeAnnouncer) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, Sent{Event: event, Payload: payload})
	return nil
}

// Sent returns a copy of everything recorded so far.
func (f *FakeAnnouncer) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// Names returns the recorded event names in order.
func (f *FakeAnnouncer) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.Event.Event
	}
	return out
}
