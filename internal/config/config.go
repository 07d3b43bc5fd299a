// Package config loads and validates the remote's button table.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/tv-remote/internal/dispatch"
	"github.com/sweeney/tv-remote/internal/gpio"
	"github.com/sweeney/tv-remote/internal/keys"
	"github.com/sweeney/tv-remote/internal/logic"
)

// Defaults applied when a field is left out.
const (
	DefaultPollMs     = 10
	DefaultDebounceMs = 50
	DefaultLockoutMs  = 200
	DefaultHoldMs     = 100
	DefaultTermTapMs  = 150
)

// Button is one [[button]] entry.
type Button struct {
	Name       string   `toml:"name"`
	Pin        int      `toml:"pin"`
	Key        string   `toml:"key"`
	Chord      []string `toml:"chord"`
	HoldMs     *int64   `toml:"hold_ms"`
	ActiveHigh bool     `toml:"active_high"`
	TermKey    string   `toml:"term_key"`
}

// Config is the whole configuration file.
type Config struct {
	Name         string   `toml:"name"`
	Chip         string   `toml:"chip"`
	PollMs       int64    `toml:"poll_ms"`
	DebounceMs   int64    `toml:"debounce_ms"`
	LockoutMs    int64    `toml:"lockout_ms"`
	LockoutScope string   `toml:"lockout_scope"`
	HeartbeatMs  int64    `toml:"heartbeat_ms"`
	TermTapMs    int64    `toml:"term_tap_ms"`
	Buttons      []Button `toml:"button"`
}

// Error lists every problem found in a configuration. The run loop never
// starts with an invalid configuration.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// Default returns the built-in Fire TV layout.
func Default() *Config {
	c, err := Parse(DefaultTOML)
	if err != nil {
		panic("default config: " + err.Error())
	}
	return c
}

// Parse decodes, defaults and validates a TOML document.
func Parse(doc string) (*Config, error) {
	var c Config
	md, err := toml.Decode(doc, &c)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		names := make([]string, len(undecoded))
		for i, k := range undecoded {
			names[i] = k.String()
		}
		return nil, &Error{Problems: []string{"unknown fields: " + strings.Join(names, ", ")}}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Chip == "" {
		c.Chip = gpio.DefaultChip
	}
	if c.PollMs == 0 {
		c.PollMs = DefaultPollMs
	}
	if c.DebounceMs == 0 {
		c.DebounceMs = DefaultDebounceMs
	}
	if c.LockoutMs == 0 {
		c.LockoutMs = DefaultLockoutMs
	}
	if c.LockoutScope == "" {
		c.LockoutScope = string(logic.ScopeGlobal)
	}
	if c.TermTapMs == 0 {
		c.TermTapMs = DefaultTermTapMs
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.PollMs < 0 {
		add("poll_ms must not be negative")
	}
	if c.DebounceMs < 0 {
		add("debounce_ms must not be negative")
	}
	if c.LockoutMs < 0 {
		add("lockout_ms must not be negative")
	}
	if c.HeartbeatMs < 0 {
		add("heartbeat_ms must not be negative")
	}
	if c.TermTapMs < 0 {
		add("term_tap_ms must not be negative")
	}
	if _, err := logic.ParseScope(c.LockoutScope); err != nil {
		add("%v", err)
	}
	if len(c.Buttons) == 0 {
		add("no buttons configured")
	}

	names := make(map[string]bool, len(c.Buttons))
	pins := make(map[int]string, len(c.Buttons))
	termKeys := make(map[gpio.TermKey]string, len(c.Buttons))
	for i, b := range c.Buttons {
		label := fmt.Sprintf("button #%d", i)
		if b.Name != "" {
			label = fmt.Sprintf("button %q", b.Name)
		}

		if b.Name == "" {
			add("%s: missing name", label)
		} else if names[b.Name] {
			add("%s: duplicate name", label)
		}
		names[b.Name] = true

		if b.Pin < 0 {
			add("%s: negative pin %d", label, b.Pin)
		} else if other, dup := pins[b.Pin]; dup {
			add("%s: pin %d already used by %q", label, b.Pin, other)
		} else {
			pins[b.Pin] = b.Name
		}

		if _, err := b.action(); err != nil {
			add("%s: %v", label, err)
		}

		if b.TermKey != "" {
			k, err := gpio.ParseTermKey(b.TermKey)
			if err != nil {
				add("%s: %v", label, err)
			} else if other, dup := termKeys[k]; dup {
				add("%s: term_key %q already used by %q", label, b.TermKey, other)
			} else {
				termKeys[k] = b.Name
			}
		}
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

func (b Button) action() (logic.Action, error) {
	switch {
	case b.Key != "" && len(b.Chord) > 0:
		return nil, fmt.Errorf("both key and chord set")
	case b.Key != "":
		if b.HoldMs != nil {
			return nil, fmt.Errorf("hold_ms only applies to chords")
		}
		code, err := keys.Parse(b.Key)
		if err != nil {
			return nil, err
		}
		return logic.SingleKey{Code: code}, nil
	case len(b.Chord) > 0:
		codes := make([]keys.Code, len(b.Chord))
		for i, name := range b.Chord {
			code, err := keys.Parse(name)
			if err != nil {
				return nil, err
			}
			codes[i] = code
		}
		hold := int64(DefaultHoldMs)
		if b.HoldMs != nil {
			hold = *b.HoldMs
		}
		if hold < 0 {
			return nil, fmt.Errorf("hold_ms must not be negative")
		}
		return logic.KeyChord{Codes: codes, Hold: time.Duration(hold) * time.Millisecond}, nil
	}
	return nil, fmt.Errorf("no key or chord")
}

// Poll returns the polling interval.
func (c *Config) Poll() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

// Debounce returns the debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Lockout returns the post-fire lockout.
func (c *Config) Lockout() time.Duration {
	return time.Duration(c.LockoutMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval; zero disables it.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// TermTap returns how long a terminal key press holds a button.
func (c *Config) TermTap() time.Duration {
	return time.Duration(c.TermTapMs) * time.Millisecond
}

// Pins returns every configured pin with its active level, in button order.
func (c *Config) Pins() []gpio.Pin {
	out := make([]gpio.Pin, len(c.Buttons))
	for i, b := range c.Buttons {
		out[i] = gpio.Pin{Offset: b.Pin, Active: b.active()}
	}
	return out
}

// DispatchButtons converts the button table for the dispatcher.
func (c *Config) DispatchButtons() []dispatch.Button {
	out := make([]dispatch.Button, len(c.Buttons))
	for i, b := range c.Buttons {
		out[i] = dispatch.Button{ID: b.Name, Pin: b.Pin, Active: b.active()}
	}
	return out
}

// Bindings builds the immutable action table.
func (c *Config) Bindings() (*logic.Bindings, error) {
	bs := make([]logic.Binding, 0, len(c.Buttons))
	for _, b := range c.Buttons {
		a, err := b.action()
		if err != nil {
			return nil, fmt.Errorf("button %q: %w", b.Name, err)
		}
		bs = append(bs, logic.Binding{ID: b.Name, Action: a})
	}
	return logic.NewBindings(bs)
}

// DispatchConfig returns the dispatcher timing.
func (c *Config) DispatchConfig() dispatch.Config {
	scope, _ := logic.ParseScope(c.LockoutScope)
	return dispatch.Config{
		Debounce: c.Debounce(),
		Lockout:  c.Lockout(),
		Scope:    scope,
	}
}

// TermBindings returns the terminal key of every button. Terminal input
// needs a key on each button, so a missing term_key is a config error.
func (c *Config) TermBindings() ([]gpio.TermBinding, error) {
	var out []gpio.TermBinding
	var missing []string
	for _, b := range c.Buttons {
		if b.TermKey == "" {
			missing = append(missing, fmt.Sprintf("button %q: no term_key for terminal input", b.Name))
			continue
		}
		k, err := gpio.ParseTermKey(b.TermKey)
		if err != nil {
			return nil, fmt.Errorf("button %q: %w", b.Name, err)
		}
		out = append(out, gpio.TermBinding{Key: k, Pin: b.Pin, Active: b.active()})
	}
	if len(missing) > 0 {
		return nil, &Error{Problems: missing}
	}
	return out, nil
}

func (b Button) active() logic.Level {
	if b.ActiveHigh {
		return logic.High
	}
	return logic.Low
}
