// Package gpio provides button input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware, and the terminal
// implementation drives the remote from a keyboard on the bench.
package gpio

import "github.com/sweeney/tv-remote/internal/logic"

// Reader reads raw button pin levels.
type Reader interface {
	// Read returns the electrical level of pin. An active-low button is
	// wired to ground with a pull-up, so pressed reads Low.
	Read(pin int) (logic.Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Pin is a line offset and the level it reads when its button is pressed.
type Pin struct {
	Offset int
	Active logic.Level
}

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"
