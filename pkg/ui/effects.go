package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Effects is cosmetic feedback on screen transitions. Implementations must be safe to call when unsupported.
type Effects interface {
	// Vibrate signals a recorded vote
	Vibrate()
	// Burst celebrates reaching the summary
	Burst()
}

// NopEffects does nothing
type NopEffects struct{}

func (NopEffects) Vibrate() {}
func (NopEffects) Burst()   {}

// TerminalEffects rings the bell and prints a burst, but only on an interactive terminal
type TerminalEffects struct {
	out     io.Writer
	enabled bool
}

// NewTerminalEffects enables effects when f is a terminal
func NewTerminalEffects(f *os.File) *TerminalEffects {
	fd := f.Fd()
	return &TerminalEffects{
		out:     f,
		enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// Enabled reports whether the output supports effects
func (e *TerminalEffects) Enabled() bool { return e.enabled }

func (e *TerminalEffects) Vibrate() {
	if !e.enabled {
		return
	}
	fmt.Fprint(e.out, "\a")
}

func (e *TerminalEffects) Burst() {
	if !e.enabled {
		return
	}
	fmt.Fprintln(e.out, "\033[33m  *  .  *  .  *  .  *  .  *\033[0m")
}
