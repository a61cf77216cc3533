//go:build !windows

package main

import (
	"os"

	"golang.org/x/term"
)

// TerminalHost brackets a guest run with raw terminal mode on stdin, so
// a guest program reading fd 0 byte-at-a-time (no line buffering, no
// local echo) behaves the way it would under a real kernel's tty
// driver. The guest reads stdin directly via the read(2) syscall
// binding (syscalls_linux.go) while the host fd is in raw mode.
type TerminalHost struct {
	fd           int
	oldTermState *term.State
}

// NewTerminalHost returns a host adapter for stdin.
func NewTerminalHost() *TerminalHost {
	return &TerminalHost{fd: int(os.Stdin.Fd())}
}

// Start puts stdin into raw mode. A no-op (recorded, not fatal) if
// stdin is not a terminal, e.g. when input is piped or redirected.
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
