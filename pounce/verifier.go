package pounce

import (
	"errors"
	"os"
	"syscall"

	cerrors "gdb-pounce/errors"
	"gdb-pounce/utils"
)

// verdict is the outcome of fine matching one frozen candidate.
type verdict int

const (
	// verdictMatch hands the task to the debugger.
	verdictMatch verdict = iota
	// verdictArgvMismatch rejects on the argv suffix. Reported under the
	// kernel-stage label: argv is part of the coarse predicate family
	// even though only userspace can evaluate it.
	verdictArgvMismatch
	// verdictExeMismatch rejects on the canonical exe basename, the
	// userspace-only predicate.
	verdictExeMismatch
	// verdictGone means the target cannot be inspected; the returned
	// error says why. A dead target's freeze died with it.
	verdictGone
)

// classify applies the authoritative fine match to a task frozen by the
// coarse filter. /proc/<pid>/cmdline is the canonical view of the new
// image's argv; the probe cannot see it from the syscall exit path.
func classify(spec *MatchSpec, pid int) (verdict, error) {
	argv, err := utils.Cmdline(pid)
	if err != nil {
		return verdictGone, goneError(err, pid)
	}

	base, err := utils.ExeBasename(pid)
	if err != nil {
		return verdictGone, goneError(err, pid)
	}

	if !spec.MatchArgvSuffix(argv) {
		return verdictArgvMismatch, nil
	}
	if !spec.MatchBasename(base) {
		return verdictExeMismatch, nil
	}
	return verdictMatch, nil
}

// goneError classifies a failed /proc read: a vanished target is the
// expected case, anything else still only costs this one event.
func goneError(err error, pid int) error {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ESRCH) {
		return cerrors.ErrTargetGone.WithPid(pid)
	}
	return cerrors.Wrap(cerrors.KindEvent, "inspect target", err).WithPid(pid)
}
