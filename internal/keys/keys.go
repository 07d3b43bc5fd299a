// Package keys defines the key codes understood by the remote's output sinks.
//
// Keyboard codes use the values of the ESP32 BLE keyboard library: printable
// ASCII is sent as-is and non-printing keys live in 0x80-0xFF. Consumer
// (media) keys are 16-bit report masks and are tagged with MediaFlag so both
// kinds fit in one Code.
package keys

import (
	"fmt"
	"sort"
	"strings"
)

// Code identifies a single key.
type Code uint32

// MediaFlag marks a Code as a consumer-control (media) key.
const MediaFlag Code = 1 << 16

// Modifiers
const (
	LeftCtrl   Code = 0x80
	LeftShift  Code = 0x81
	LeftAlt    Code = 0x82
	LeftGUI    Code = 0x83
	RightCtrl  Code = 0x84
	RightShift Code = 0x85
	RightAlt   Code = 0x86
	RightGUI   Code = 0x87
)

// Navigation and editing
const (
	Return     Code = 0xB0
	Esc        Code = 0xB1
	Backspace  Code = 0xB2
	Tab        Code = 0xB3
	CapsLock   Code = 0xC1
	Insert     Code = 0xD1
	Home       Code = 0xD2
	PageUp     Code = 0xD3
	Delete     Code = 0xD4
	End        Code = 0xD5
	PageDown   Code = 0xD6
	RightArrow Code = 0xD7
	LeftArrow  Code = 0xD8
	DownArrow  Code = 0xD9
	UpArrow    Code = 0xDA
)

// Function keys. F2..F12 follow F1 consecutively.
const (
	F1  Code = 0xC2
	F12 Code = 0xCD
)

// Media keys
const (
	MediaNextTrack     = MediaFlag | 0x0001
	MediaPreviousTrack = MediaFlag | 0x0002
	MediaStop          = MediaFlag | 0x0004
	MediaPlayPause     = MediaFlag | 0x0008
	MediaMute          = MediaFlag | 0x0010
	MediaVolumeUp      = MediaFlag | 0x0020
	MediaVolumeDown    = MediaFlag | 0x0040
	MediaWWWHome       = MediaFlag | 0x0080
	MediaLocalBrowser  = MediaFlag | 0x0100
	MediaCalculator    = MediaFlag | 0x0200
	MediaWWWBookmarks  = MediaFlag | 0x0400
	MediaWWWSearch     = MediaFlag | 0x0800
	MediaWWWStop       = MediaFlag | 0x1000
	MediaWWWBack       = MediaFlag | 0x2000
	MediaConsumerCtrl  = MediaFlag | 0x4000
	MediaEmailReader   = MediaFlag | 0x8000
)

var names = map[Code]string{
	LeftCtrl:   "LEFT_CTRL",
	LeftShift:  "LEFT_SHIFT",
	LeftAlt:    "LEFT_ALT",
	LeftGUI:    "LEFT_GUI",
	RightCtrl:  "RIGHT_CTRL",
	RightShift: "RIGHT_SHIFT",
	RightAlt:   "RIGHT_ALT",
	RightGUI:   "RIGHT_GUI",

	Return:     "RETURN",
	Esc:        "ESC",
	Backspace:  "BACKSPACE",
	Tab:        "TAB",
	CapsLock:   "CAPS_LOCK",
	Insert:     "INSERT",
	Home:       "HOME",
	PageUp:     "PAGE_UP",
	Delete:     "DELETE",
	End:        "END",
	PageDown:   "PAGE_DOWN",
	RightArrow: "RIGHT_ARROW",
	LeftArrow:  "LEFT_ARROW",
	DownArrow:  "DOWN_ARROW",
	UpArrow:    "UP_ARROW",
	' ':        "SPACE",

	MediaNextTrack:     "MEDIA_NEXT_TRACK",
	MediaPreviousTrack: "MEDIA_PREVIOUS_TRACK",
	MediaStop:          "MEDIA_STOP",
	MediaPlayPause:     "MEDIA_PLAY_PAUSE",
	MediaMute:          "MEDIA_MUTE",
	MediaVolumeUp:      "MEDIA_VOLUME_UP",
	MediaVolumeDown:    "MEDIA_VOLUME_DOWN",
	MediaWWWHome:       "MEDIA_WWW_HOME",
	MediaLocalBrowser:  "MEDIA_LOCAL_MACHINE_BROWSER",
	MediaCalculator:    "MEDIA_CALCULATOR",
	MediaWWWBookmarks:  "MEDIA_WWW_BOOKMARKS",
	MediaWWWSearch:     "MEDIA_WWW_SEARCH",
	MediaWWWStop:       "MEDIA_WWW_STOP",
	MediaWWWBack:       "MEDIA_WWW_BACK",
	MediaConsumerCtrl:  "MEDIA_CONSUMER_CONTROL_CONFIGURATION",
	MediaEmailReader:   "MEDIA_EMAIL_READER",
}

var byName map[string]Code

func init() {
	for c := F1; c <= F12; c++ {
		names[c] = fmt.Sprintf("F%d", c-F1+1)
	}
	byName = make(map[string]Code, len(names))
	for c, n := range names {
		byName[n] = c
	}
}

// IsMedia reports whether c is a consumer-control key.
func (c Code) IsMedia() bool {
	return c&MediaFlag != 0
}

// MediaReport returns the two-byte consumer report for a media key.
func (c Code) MediaReport() [2]byte {
	m := uint16(c &^ MediaFlag)
	return [2]byte{byte(m), byte(m >> 8)}
}

// String returns the config name of the key. Printable ASCII keys are
// returned as the character itself.
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	if c > ' ' && c < 0x7F {
		return string(rune(c))
	}
	return fmt.Sprintf("0x%02X", uint32(c))
}

// Parse resolves a key name as written in the config file. Names are case
// insensitive and may carry a KEY_ prefix; a single character is taken
// literally, so "m" and "M" are different keys.
func Parse(s string) (Code, error) {
	if len(s) == 1 && s[0] > ' ' && s[0] < 0x7F {
		return Code(s[0]), nil
	}
	n := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "KEY_")
	if c, ok := byName[n]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// Names lists every named key, sorted.
func Names() []string {
	out := make([]string, 0, len(byName))
	for n := range byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
