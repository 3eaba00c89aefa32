// Package pty drives interactive programs through a pseudo-terminal: it
// spawns the child on a pty, sends input with a typing delay, reads output
// with bounded timeouts, tracks the child's exit status and tears it down
// with an escalating signal sequence.
//
// Reads report their outcome through errors: ErrTimeout when the child is
// alive but quiet, an error wrapping io.EOF once no more output can arrive.
package pty
