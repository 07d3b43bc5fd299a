package logic

import "fmt"

// LockoutScope selects whether the post-fire lockout is shared by all
// buttons or kept per button.
type LockoutScope string

const (
	// ScopeGlobal: a fire on any button locks out every button.
	ScopeGlobal LockoutScope = "global"
	// ScopeChannel: a fire only locks out the button that fired.
	ScopeChannel LockoutScope = "channel"
)

// ParseScope validates a scope name. Empty means ScopeGlobal.
func ParseScope(s string) (LockoutScope, error) {
	switch LockoutScope(s) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeChannel:
		return ScopeChannel, nil
	}
	return "", fmt.Errorf("unknown lockout scope %q", s)
}

type stamp struct {
	at    Millis
	armed bool
}

// Gate suppresses fires for a lockout period after each successful fire.
type Gate struct {
	lockout Millis
	scope   LockoutScope
	global  stamp
	per     map[string]stamp
}

// NewGate creates an open gate.
func NewGate(lockout Millis, scope LockoutScope) *Gate {
	if scope == "" {
		scope = ScopeGlobal
	}
	return &Gate{
		lockout: lockout,
		scope:   scope,
		per:     make(map[string]stamp),
	}
}

func (g *Gate) stampFor(id string) stamp {
	if g.scope == ScopeChannel {
		return g.per[id]
	}
	return g.global
}

// Open reports whether id may fire at now.
func (g *Gate) Open(id string, now Millis) bool {
	s := g.stampFor(id)
	return !s.armed || Since(now, s.at) >= g.lockout
}

// Arm starts the lockout after a fire of id at now.
func (g *Gate) Arm(id string, now Millis) {
	s := stamp{at: now, armed: true}
	if g.scope == ScopeChannel {
		g.per[id] = s
		return
	}
	g.global = s
}

// Remaining returns how long id stays locked out at now.
func (g *Gate) Remaining(id string, now Millis) Millis {
	s := g.stampFor(id)
	if !s.armed {
		return 0
	}
	el := Since(now, s.at)
	if el >= g.lockout {
		return 0
	}
	return g.lockout - el
}

// Scope returns the gate's lockout scope.
func (g *Gate) Scope() LockoutScope {
	return g.scope
}
