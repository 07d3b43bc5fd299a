package logic

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/tv-remote/internal/keys"
)

// Action is what a button does when pressed. It is one of SingleKey or
// KeyChord.
type Action interface {
	fmt.Stringer
	action()
}

// SingleKey taps one key.
type SingleKey struct {
	Code keys.Code
}

// KeyChord presses Codes in order, holds them for Hold, then releases all.
type KeyChord struct {
	Codes []keys.Code
	Hold  time.Duration
}

func (SingleKey) action() {}
func (KeyChord) action()  {}

func (a SingleKey) String() string {
	return a.Code.String()
}

func (a KeyChord) String() string {
	parts := make([]string, len(a.Codes))
	for i, c := range a.Codes {
		parts[i] = c.String()
	}
	return strings.Join(parts, "+") + "/" + a.Hold.String()
}

// Binding ties a button id to its action.
type Binding struct {
	ID     string
	Action Action
}

// Bindings resolves button ids to actions. It is immutable once built.
type Bindings struct {
	order   []string
	actions map[string]Action
}

// NewBindings builds the lookup table, rejecting empty ids, nil actions,
// empty chords and duplicate ids.
func NewBindings(bs []Binding) (*Bindings, error) {
	b := &Bindings{
		order:   make([]string, 0, len(bs)),
		actions: make(map[string]Action, len(bs)),
	}
	for i, bind := range bs {
		if bind.ID == "" {
			return nil, fmt.Errorf("binding #%d: empty id", i)
		}
		if _, dup := b.actions[bind.ID]; dup {
			return nil, fmt.Errorf("binding %q: duplicate id", bind.ID)
		}
		switch a := bind.Action.(type) {
		case SingleKey:
		case KeyChord:
			if len(a.Codes) == 0 {
				return nil, fmt.Errorf("binding %q: empty chord", bind.ID)
			}
			if a.Hold < 0 {
				return nil, fmt.Errorf("binding %q: negative hold %v", bind.ID, a.Hold)
			}
			// copy so later mutation of the caller's slice can't leak in
			bind.Action = KeyChord{Codes: append([]keys.Code(nil), a.Codes...), Hold: a.Hold}
		default:
			return nil, fmt.Errorf("binding %q: no action", bind.ID)
		}
		b.order = append(b.order, bind.ID)
		b.actions[bind.ID] = bind.Action
	}
	return b, nil
}

// Lookup returns the action bound to id.
func (b *Bindings) Lookup(id string) (Action, bool) {
	a, ok := b.actions[id]
	return a, ok
}

// IDs returns the bound ids in configuration order.
func (b *Bindings) IDs() []string {
	return append([]string(nil), b.order...)
}

// Len returns the number of bindings.
func (b *Bindings) Len() int {
	return len(b.order)
}
