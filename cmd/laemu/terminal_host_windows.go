//go:build windows

package main

import (
	"os"

	"golang.org/x/term"
)

// TerminalHost is the Windows counterpart of terminal_host.go; see that
// file's doc comment. golang.org/x/term's MakeRaw/Restore cover both
// platforms, so the only difference is the build tag that keeps the two
// definitions from colliding.
type TerminalHost struct {
	fd           int
	oldTermState *term.State
}

// NewTerminalHost returns a host adapter for stdin.
func NewTerminalHost() *TerminalHost {
	return &TerminalHost{fd: int(os.Stdin.Fd())}
}

// Start puts stdin into raw mode, if it is a terminal.
func (h *TerminalHost) Start() {
	if !term.IsTerminal(h.fd) {
		return
	}
	oldState, err := term.MakeRaw(h.fd)
	if err == nil {
		h.oldTermState = oldState
	}
}

// Stop restores stdin to its original mode.
func (h *TerminalHost) Stop() {
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
