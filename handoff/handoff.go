// Package handoff transfers responsibility for a frozen task to a
// debugger, and guarantees that every freeze ends in exactly one of: a
// debugger continuing the task, or a SIGCONT from here.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	cerrors "gdb-pounce/errors"
	"gdb-pounce/logging"
	"gdb-pounce/utils"
)

// sigstopPrelude tells gdb not to stop on the very SIGSTOP used to freeze
// the target.
const sigstopPrelude = "handle SIGSTOP nostop noprint nopass"

// Controller spawns the debugger for a matched task and reaps it.
type Controller struct {
	// Strace selects strace -p instead of gdb -p.
	Strace bool
	// DebuggerArgs are extra arguments forwarded to the debugger.
	DebuggerArgs []string
}

// label names the debugger in status lines.
func (c *Controller) label() string {
	if c.Strace {
		return "strace"
	}
	return "GDB"
}

// command composes the debugger invocation for the given pid. The gdb
// prelude is mandatory; without it gdb would stop on the freeze SIGSTOP
// before the user sees a prompt.
func (c *Controller) command(pid int) []string {
	if c.Strace {
		return append([]string{"strace", "-p", strconv.Itoa(pid)}, c.DebuggerArgs...)
	}
	argv := []string{"gdb", "-p", strconv.Itoa(pid), "-ex", sigstopPrelude}
	return append(argv, c.DebuggerArgs...)
}

// startLine renders the stable "Starting ..." status line. The prelude is
// shown single-quoted, the way a shell user would have to type it.
func (c *Controller) startLine(pid int) string {
	var parts []string
	if c.Strace {
		parts = []string{"strace", "-p", strconv.Itoa(pid)}
	} else {
		parts = []string{"gdb", "-p", strconv.Itoa(pid), "-ex", "'" + sigstopPrelude + "'"}
	}
	parts = append(parts, c.DebuggerArgs...)
	return "Starting " + strings.Join(parts, " ") + "..."
}

// Attach runs the debugger against the frozen task and blocks until it
// exits. The debugger inherits our stdio and owns continuing the target;
// only if it quits with the target still stopped does the controller send
// the releasing SIGCONT. A SIGINT arriving while the debugger runs is not
// forwarded - the child finishes naturally.
func (c *Controller) Attach(ctx context.Context, pid int) error {
	// Shutdown already in progress: release instead of spawning into it.
	select {
	case <-ctx.Done():
		Release(pid)
		return ctx.Err()
	default:
	}

	fmt.Fprintln(os.Stderr, c.startLine(pid))

	argv := c.command(pid)
	term := utils.SaveTerminal()
	defer term.Restore()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		// The freeze must not outlive a failed spawn.
		Release(pid)
		if errors.Is(err, exec.ErrNotFound) {
			return cerrors.ErrDebuggerNotFound.WithPid(pid)
		}
		return cerrors.Wrap(cerrors.KindSpawn, "spawn "+argv[0], err).WithPid(pid)
	}

	logging.Debug("debugger running", "pid", pid, "debugger", argv[0],
		"debugger_pid", cmd.Process.Pid)

	if err := cmd.Wait(); err != nil {
		// A nonzero debugger exit is the user's business, not ours.
		logging.Debug("debugger exit", "pid", pid, "error", err)
	}
	fmt.Fprintf(os.Stderr, "%s exited.\n", c.label())

	stopped, err := utils.TaskStopped(pid)
	if err != nil {
		return cerrors.Wrap(cerrors.KindEvent, "inspect target", err).WithPid(pid)
	}
	if stopped {
		fmt.Fprintf(os.Stderr, "%s left the process stopped - sending SIGCONT...\n", c.label())
		Release(pid)
	}
	return nil
}

// Release lifts a freeze with SIGCONT. A target that already exited is
// not an error; targets are short-lived by nature here.
func Release(pid int) {
	if err := unix.Kill(pid, unix.SIGCONT); err != nil && err != unix.ESRCH {
		logging.Warn("release failed", "error",
			cerrors.Wrap(cerrors.KindSignal, "SIGCONT", err).WithPid(pid))
	}
}
