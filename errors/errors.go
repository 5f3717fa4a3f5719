// Package errors classifies gdb-pounce failures by how the engine must
// react to them. The split mirrors the tool's propagation policy: a setup
// failure (bad command line, missing privileges, probe load) tears the
// tool down with a nonzero exit, while a runtime failure (one bad event,
// a debugger that would not spawn) must leave the engine live and the
// frozen target released.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the engine's required reaction.
type Kind int

const (
	// KindArgs means the command line cannot run.
	KindArgs Kind = iota
	// KindPrivilege means tracing capabilities are missing.
	KindPrivilege
	// KindProbe means the probe could not be loaded, attached, or read
	// from at the channel level.
	KindProbe
	// KindEvent means one candidate could not be read, decoded, or
	// verified. The engine drops the event and stays live.
	KindEvent
	// KindSpawn means the debugger could not be started. The target is
	// released and the engine stays live.
	KindSpawn
	// KindSignal means a signal send failed for a reason other than the
	// target being gone.
	KindSignal
)

// Error makes each Kind an error in its own right, so call sites
// classify with the standard machinery:
//
//	if errors.Is(err, cerrors.KindSpawn) { ... }
func (k Kind) Error() string {
	switch k {
	case KindArgs:
		return "invalid command line"
	case KindPrivilege:
		return "insufficient privileges"
	case KindProbe:
		return "probe failure"
	case KindEvent:
		return "event failure"
	case KindSpawn:
		return "debugger spawn failure"
	case KindSignal:
		return "signal delivery failure"
	default:
		return "unknown failure"
	}
}

// Fatal reports whether a failure of this kind must stop the tool.
// Everything up to and including probe setup is fatal; the runtime kinds
// are absorbed by the verifier loop.
func (k Kind) Fatal() bool {
	return k <= KindProbe
}

// Error is one classified failure, optionally tied to a target task.
type Error struct {
	// Kind is the failure classification.
	Kind Kind
	// Op names the operation that failed, e.g. "load probe".
	Op string
	// Pid is the target task, when the failure concerns one.
	Pid int
	// Err is the underlying cause.
	Err error
}

// Error renders "op (pid N): cause", omitting whatever is absent. An
// error with no Op falls back to the kind's description.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Op
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Pid != 0 {
		msg += fmt.Sprintf(" (pid %d)", e.Pid)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches a Kind target, making errors.Is(err, KindX) the
// classification test for wrapped errors. It also matches the sentinel a
// WithPid copy was stamped from, so errors.Is(err, ErrX) survives stamping.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return t != nil && t.Pid == 0 && t.Err != nil &&
			e.Kind == t.Kind && e.Op == t.Op && e.Err == t.Err
	}
	return false
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf creates a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WithPid returns a copy tied to a target task. The receiver is not
// modified, so sentinels can be stamped safely.
func (e *Error) WithPid(pid int) *Error {
	c := *e
	c.Pid = pid
	return &c
}

// Fatal reports whether err requires teardown. Errors this package never
// classified are treated as fatal: only failures the engine knows how to
// absorb keep it running.
func Fatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Fatal()
	}
	return true
}
