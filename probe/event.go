package probe

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/sys/unix"

	cerrors "gdb-pounce/errors"
)

// FilterResult tells userspace which predicates the kernel stage confirmed.
type FilterResult uint32

const (
	// MismatchBPF marks a task rejected by the in-kernel coarse filter.
	// The task was never frozen.
	MismatchBPF FilterResult = 0
	// CoarseMatch marks a task that passed the coarse filter and is
	// frozen with a pending SIGSTOP until userspace decides.
	CoarseMatch FilterResult = 1
)

// EventSize is the fixed wire size of one record on the ring buffer.
// It must match the stores emitted by the probe program.
const EventSize = 32

// ExecEvent is one record per observed exec, in wire layout.
type ExecEvent struct {
	// Pid is the task id of the thread that ran exec.
	Pid uint32
	// Tgid is the thread-group id.
	Tgid uint32
	// UID is the real uid of the task.
	UID uint32
	// FilterResult is the coarse filter outcome.
	FilterResult FilterResult
	// Comm is the kernel-truncated, NUL-padded process name.
	Comm [16]byte
}

// CommString returns the comm with NUL padding stripped.
func (e *ExecEvent) CommString() string {
	return unix.ByteSliceToString(e.Comm[:])
}

// decodeEvent parses one raw ring buffer sample.
func decodeEvent(raw []byte) (*ExecEvent, error) {
	if len(raw) < EventSize {
		return nil, cerrors.ErrShortEvent
	}

	var ev ExecEvent
	if err := binary.Read(bytes.NewReader(raw), binary.NativeEndian, &ev); err != nil {
		return nil, cerrors.Wrap(cerrors.KindEvent, "decode event", err)
	}
	return &ev, nil
}
