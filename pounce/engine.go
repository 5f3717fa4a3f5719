package pounce

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	cerrors "gdb-pounce/errors"
	"gdb-pounce/handoff"
	"gdb-pounce/linux"
	"gdb-pounce/logging"
	"gdb-pounce/probe"
)

// pollInterval bounds how long the verifier loop blocks in the ring
// buffer before it looks at the shutdown signal again.
const pollInterval = 200 * time.Millisecond

// Config carries everything the engine needs, all of it from the command
// line.
type Config struct {
	// Program is the name to pounce on.
	Program string
	// ArgvSuffix are trailing argv tokens the target must carry.
	ArgvSuffix []string
	// UIDSpec restricts matching to a uid or username when nonempty.
	UIDSpec string
	// FollowFork keeps catching after the first match.
	FollowFork bool
	// Strace attaches strace instead of gdb.
	Strace bool
	// DebuggerArgs are forwarded to the debugger.
	DebuggerArgs []string
}

// Engine owns the verifier loop and the engine lifecycle.
type Engine struct {
	spec *MatchSpec
	ctrl *handoff.Controller
	cfg  Config
}

// New builds the immutable match spec and the handoff controller.
func New(cfg Config) (*Engine, error) {
	spec, err := NewMatchSpec(cfg.Program, cfg.ArgvSuffix, cfg.UIDSpec)
	if err != nil {
		return nil, err
	}
	return &Engine{
		spec: spec,
		ctrl: &handoff.Controller{Strace: cfg.Strace, DebuggerArgs: cfg.DebuggerArgs},
		cfg:  cfg,
	}, nil
}

// Run loads and attaches the probe, then consumes events until the
// context is cancelled or, without FollowFork, until the first matched
// task has been handed off and its debugger has exited. On every exit
// path the probe is detached and remaining frozen tasks are released.
func (e *Engine) Run(ctx context.Context) error {
	if err := linux.CheckTracePrivileges(); err != nil {
		return err
	}

	p, err := probe.New(e.spec.FilterSpec())
	if err != nil {
		return err
	}
	defer p.Close()

	logging.Debug("probe attached",
		"comm_prefix", string(e.spec.CommPrefix),
		"exe_basename", e.spec.ExeBasename,
		"argv_suffix", e.cfg.ArgvSuffix)
	fmt.Fprintln(os.Stderr, "Running, press Ctrl+C to stop...")

	for {
		select {
		case <-ctx.Done():
			e.drain(p)
			return nil
		default:
		}

		p.SetReadDeadline(time.Now().Add(pollInterval))
		ev, err := p.Read()
		if err != nil {
			if probe.IsExhausted(err) {
				continue
			}
			if !cerrors.Fatal(err) {
				// A bad record costs only that event.
				logging.Warn("dropping event", "error", err)
				continue
			}
			e.drain(p)
			return cerrors.Wrap(cerrors.KindProbe, "read event", err)
		}

		attached, err := e.handle(ctx, ev)
		if err != nil {
			e.drain(p)
			return err
		}
		if attached && !e.cfg.FollowFork {
			e.drain(p)
			return nil
		}
	}
}

// handle verifies one event and reports whether a debugger was attached.
// Runtime failures are absorbed here so the engine stays live; only an
// error the engine cannot classify as absorbable bubbles up.
// The two "filtered by" labels are a stable contract: they name the
// predicate family that failed, not the stage that evaluated it.
func (e *Engine) handle(ctx context.Context, ev *probe.ExecEvent) (bool, error) {
	pid := int(ev.Pid)

	if ev.FilterResult == probe.MismatchBPF {
		fmt.Fprintf(os.Stderr, "Skipping non-matching pid %d (filtered by BPF)...\n", pid)
		return false, nil
	}

	log := logging.WithComm(logging.WithPID(logging.Default(), pid), ev.CommString())
	log.Debug("coarse match", "tgid", ev.Tgid, "uid", ev.UID)

	v, verr := classify(e.spec, pid)
	switch v {
	case verdictGone:
		log.Debug("dropping candidate", "reason", verr)
		// Harmless for a dead target; lifts the freeze if it is alive
		// but could not be inspected.
		handoff.Release(pid)
		return false, nil
	case verdictArgvMismatch:
		logging.WithStage(log, "bpf").Debug("argv suffix mismatch")
		fmt.Fprintf(os.Stderr, "Skipping non-matching pid %d (filtered by BPF)...\n", pid)
		handoff.Release(pid)
		return false, nil
	case verdictExeMismatch:
		logging.WithStage(log, "userspace").Debug("exe basename mismatch")
		fmt.Fprintf(os.Stderr, "Skipping non-matching pid %d (filtered by Python)...\n", pid)
		handoff.Release(pid)
		return false, nil
	}

	if err := e.ctrl.Attach(ctx, pid); err != nil {
		// The controller has already released the target.
		if errors.Is(err, context.Canceled) {
			return false, nil
		}
		if cerrors.Fatal(err) {
			return false, err
		}
		logging.Error("debugger handoff failed", "pid", pid, "error", err)
		return false, nil
	}
	return true, nil
}

// drain detaches the tracepoints so no new tasks freeze, then releases
// every frozen task still sitting in the ring buffer. Candidates that
// were never verified are released without a status line: they may well
// have matched.
func (e *Engine) drain(p *probe.Probe) {
	p.Detach()
	for {
		p.SetReadDeadline(time.Now())
		ev, err := p.Read()
		if err != nil {
			if !probe.IsExhausted(err) {
				logging.Warn("drain read failed", "error", err)
			}
			return
		}
		if ev.FilterResult == probe.CoarseMatch {
			logging.Debug("releasing frozen task on shutdown", "pid", ev.Pid)
			handoff.Release(int(ev.Pid))
		}
	}
}
