// Package utils provides terminal and /proc helpers for the engine.
package utils

import (
	"os"

	"golang.org/x/term"
)

// TermState captures terminal modes so they can be restored after a
// debugger child has run. gdb leaves raw modes behind when it is killed
// or when the user detaches abruptly.
type TermState struct {
	fd    int
	state *term.State
}

// SaveTerminal snapshots the state of the terminal on stderr. It returns
// nil when stderr is not a terminal; Restore on a nil state is a no-op.
func SaveTerminal() *TermState {
	fd := int(os.Stderr.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	state, err := term.GetState(fd)
	if err != nil {
		return nil
	}
	return &TermState{fd: fd, state: state}
}

// Restore puts the terminal back into the saved state.
func (t *TermState) Restore() {
	if t == nil || t.state == nil {
		return
	}
	_ = term.Restore(t.fd, t.state)
}
