// Package sink defines the output side of the remote: the paired host that
// receives key reports. Transports (MQTT, WebSocket) implement Sink; the
// dispatcher only ever talks to this interface.
package sink

import (
	"errors"
	"fmt"

	"github.com/sweeney/tv-remote/internal/keys"
)

// Sink sends key reports to the remote peer.
type Sink interface {
	// IsConnected reports whether the peer is reachable. Not being connected
	// is a normal state, not an error.
	IsConnected() bool

	// Write taps a key (press then release).
	Write(code keys.Code) error

	// Press holds a key down.
	Press(code keys.Code) error

	// Release lets a held key go.
	Release(code keys.Code) error

	// ReleaseAll lets every held key go.
	ReleaseAll() error
}

// ErrNotConnected is returned by transports asked to send while the peer is
// unreachable.
var ErrNotConnected = errors.New("sink not connected")

// Op names a sink operation.
type Op string

const (
	OpWrite      Op = "write"
	OpPress      Op = "press"
	OpRelease    Op = "release"
	OpReleaseAll Op = "release_all"
)

// Error is a failed sink operation.
type Error struct {
	Op   Op
	Code keys.Code // zero for OpReleaseAll
	Err  error
}

func (e *Error) Error() string {
	if e.Op == OpReleaseAll {
		return fmt.Sprintf("sink %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sink %s %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
