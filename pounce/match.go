// Package pounce implements the userspace half of the process-catch
// engine: the match specification, the candidate verifier and the engine
// lifecycle.
package pounce

import (
	"fmt"
	"os/user"
	"path/filepath"
	"strconv"

	cerrors "gdb-pounce/errors"
	"gdb-pounce/probe"
)

// MatchSpec is the full match predicate, built once at startup and never
// mutated after the probe is loaded.
type MatchSpec struct {
	// ExeBasename is matched against the canonical basename of the
	// target's /proc/<pid>/exe.
	ExeBasename string
	// CommPrefix is the kernel-side coarse predicate, at most 15 bytes.
	CommPrefix []byte
	// ArgvSuffix are tokens that must appear, in order, as the tail of
	// the target's argv. May be empty.
	ArgvSuffix []string
	// UID restricts matching to one uid when non-nil.
	UID *uint32
}

// NewMatchSpec builds the predicate from the command line. The comm
// prefix is the first 15 bytes of the program's basename as given; the
// exe basename is taken from the program path with symlinks resolved, so
// pouncing on a symlink catches what the symlink really runs. uidSpec is
// a numeric uid or a username; empty disables the uid predicate.
func NewMatchSpec(program string, argvSuffix []string, uidSpec string) (*MatchSpec, error) {
	if program == "" {
		return nil, cerrors.ErrNoProgram
	}

	base := filepath.Base(program)
	prefix := []byte(base)
	if len(prefix) > probe.CommPrefixMax {
		prefix = prefix[:probe.CommPrefixMax]
	}

	exeBase := base
	if resolved, err := filepath.EvalSymlinks(program); err == nil {
		exeBase = filepath.Base(resolved)
	}

	m := &MatchSpec{
		ExeBasename: exeBase,
		CommPrefix:  prefix,
		ArgvSuffix:  argvSuffix,
	}

	if uidSpec != "" {
		uid, err := resolveUID(uidSpec)
		if err != nil {
			return nil, err
		}
		m.UID = &uid
	}
	return m, nil
}

// resolveUID accepts a numeric uid or a username from the system user
// database.
func resolveUID(spec string) (uint32, error) {
	if n, err := strconv.ParseUint(spec, 10, 32); err == nil {
		return uint32(n), nil
	}

	u, err := user.Lookup(spec)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", spec, cerrors.ErrUnknownUser)
	}
	n, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindArgs, "resolve uid "+u.Uid, err)
	}
	return uint32(n), nil
}

// FilterSpec derives the kernel-side coarse filter. The coarse match set
// is a superset of the fine match set: prefix over at most 15 bytes plus
// the optional uid.
func (m *MatchSpec) FilterSpec() probe.FilterSpec {
	return probe.NewFilterSpec(m.CommPrefix, m.UID)
}

// MatchArgvSuffix reports whether the last len(ArgvSuffix) tokens of argv
// equal ArgvSuffix element-wise. An empty suffix matches anything.
func (m *MatchSpec) MatchArgvSuffix(argv []string) bool {
	n := len(m.ArgvSuffix)
	if n == 0 {
		return true
	}
	if len(argv) < n {
		return false
	}
	tail := argv[len(argv)-n:]
	for i, want := range m.ArgvSuffix {
		if tail[i] != want {
			return false
		}
	}
	return true
}

// MatchBasename reports whether the canonical exe basename matches.
func (m *MatchSpec) MatchBasename(base string) bool {
	return base == m.ExeBasename
}
