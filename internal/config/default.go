package config

// DefaultTOML is the Fire TV remote layout. Pins are GPIO line offsets on
// the configured chip.
const DefaultTOML = `# tv-remote configuration

name = "Fire TV Remote"
chip = "gpiochip0"

# Polling cadence, debounce window and post-fire lockout.
poll_ms = 10
debounce_ms = 50
lockout_ms = 200

# "global": any fire locks out every button (default).
# "channel": a fire only locks out the button that fired.
lockout_scope = "global"

# MQTT heartbeat interval (0 disables).
heartbeat_ms = 900000

# How long a terminal key press holds its button down with --input=term.
term_tap_ms = 150

[[button]]
	name = "HOME"
	pin = 4
	key = "MEDIA_WWW_HOME"
	term_key = "h"

[[button]]
	name = "UP"
	pin = 19
	key = "UP_ARROW"
	term_key = "Up"

[[button]]
	name = "DOWN"
	pin = 22
	key = "DOWN_ARROW"
	term_key = "Down"

[[button]]
	name = "LEFT"
	pin = 18
	key = "LEFT_ARROW"
	term_key = "Left"

[[button]]
	name = "RIGHT"
	pin = 21
	key = "RIGHT_ARROW"
	term_key = "Right"

# Fire TV has no plain Back key over HID; Alt+Left does the same job.
[[button]]
	name = "BACK"
	pin = 2
	chord = ["LEFT_ALT", "LEFT_ARROW"]
	hold_ms = 100
	term_key = "b"

# Ctrl+M opens the menu.
[[button]]
	name = "OPTION"
	pin = 5
	chord = ["LEFT_CTRL", "m"]
	hold_ms = 100
	term_key = "o"

[[button]]
	name = "PLAY_PAUSE"
	pin = 12
	key = "MEDIA_PLAY_PAUSE"
	term_key = "p"

# D-pad right/left scrub during playback.
[[button]]
	name = "FORWARD"
	pin = 14
	key = "RIGHT_ARROW"
	term_key = "f"

[[button]]
	name = "BACKWARD"
	pin = 13
	key = "LEFT_ARROW"
	term_key = "r"
	# Uncomment to treat a HIGH pin as pressed instead of LOW (the default).
	# active_high = true
`
