// Package errors provides predefined sentinel errors for common failure cases.
package errors

import "errors"

// Setup sentinels.
var (
	// ErrNotPrivileged indicates the process lacks the capabilities to trace.
	ErrNotPrivileged = &Error{
		Kind: KindPrivilege,
		Err:  errors.New("tracing requires CAP_SYS_ADMIN (or CAP_BPF and CAP_PERFMON) and CAP_KILL"),
	}

	// ErrNoProgram indicates the program name argument is missing.
	ErrNoProgram = &Error{
		Kind: KindArgs,
		Err:  errors.New("program name is required"),
	}

	// ErrUnknownUser indicates a --uid value that is neither numeric nor
	// in the system user database.
	ErrUnknownUser = &Error{
		Kind: KindArgs,
		Err:  errors.New("unknown user"),
	}
)

// Runtime sentinels.
var (
	// ErrTargetGone indicates the target exited before it could be
	// inspected; its freeze died with it.
	ErrTargetGone = &Error{
		Kind: KindEvent,
		Err:  errors.New("target process is gone"),
	}

	// ErrShortEvent indicates a truncated record on the event channel.
	ErrShortEvent = &Error{
		Kind: KindEvent,
		Op:   "decode event",
		Err:  errors.New("short event record"),
	}

	// ErrDebuggerNotFound indicates the debugger executable is not
	// installed or not on PATH.
	ErrDebuggerNotFound = &Error{
		Kind: KindSpawn,
		Err:  errors.New("debugger executable not found"),
	}
)
