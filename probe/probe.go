// Package probe implements the kernel side of the process-catch engine:
// a tracepoint program on the exec syscall exit path, the read-only
// coarse filter map, and the ring buffer that ships one record per
// observed exec to userspace.
package probe

import (
	"errors"
	"os"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/hashicorp/go-multierror"

	cerrors "gdb-pounce/errors"
)

// probeObjects receives the loaded kernel objects.
type probeObjects struct {
	ExecExit *ebpf.Program `ebpf:"exec_exit"`
	Filter   *ebpf.Map     `ebpf:"pounce_filter"`
	Events   *ebpf.Map     `ebpf:"pounce_events"`
}

func (o *probeObjects) Close() error {
	var merr error
	if o.ExecExit != nil {
		if err := o.ExecExit.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if o.Filter != nil {
		if err := o.Filter.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if o.Events != nil {
		if err := o.Events.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr
}

// Probe is the loaded and attached kernel probe plus its event channel
// reader. It must be closed to release kernel resources.
type Probe struct {
	objs   probeObjects
	links  []link.Link
	reader *ringbuf.Reader
}

// New loads the probe with the given coarse filter, attaches it to the
// execve and execveat syscall exit tracepoints and opens the ring buffer.
// The filter map is populated at load time and is never written again.
func New(fs FilterSpec) (*Probe, error) {
	// No-op on 5.11+ kernels which account eBPF memory via memcg.
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, cerrors.Wrap(cerrors.KindProbe, "remove memlock", err)
	}

	p := &Probe{}
	if err := newCollectionSpec(fs).LoadAndAssign(&p.objs, nil); err != nil {
		return nil, cerrors.Wrap(cerrors.KindProbe, "load probe", err)
	}

	ok := false
	defer func() {
		if !ok {
			_ = p.Close()
		}
	}()

	// execve must attach; execveat may be missing on old kernels.
	l, err := link.Tracepoint("syscalls", "sys_exit_execve", p.objs.ExecExit, nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProbe, "attach sys_exit_execve", err)
	}
	p.links = append(p.links, l)

	if l, err := link.Tracepoint("syscalls", "sys_exit_execveat", p.objs.ExecExit, nil); err == nil {
		p.links = append(p.links, l)
	}

	rd, err := ringbuf.NewReader(p.objs.Events)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProbe, "open ring buffer", err)
	}
	p.reader = rd

	ok = true
	return p, nil
}

// Read blocks until the next event, the configured deadline, or Close.
func (p *Probe) Read() (*ExecEvent, error) {
	record, err := p.reader.Read()
	if err != nil {
		return nil, err
	}
	return decodeEvent(record.RawSample)
}

// SetReadDeadline bounds the next Read. Reads past the deadline fail with
// os.ErrDeadlineExceeded; pending records are still returned first.
func (p *Probe) SetReadDeadline(t time.Time) {
	p.reader.SetDeadline(t)
}

// Detach closes the tracepoint links so no further tasks are frozen, but
// leaves the ring buffer readable for draining.
func (p *Probe) Detach() {
	for _, l := range p.links {
		_ = l.Close()
	}
	p.links = nil
}

// IsExhausted reports whether a Read error means the channel has nothing
// more to deliver: the deadline passed or the reader was closed.
func IsExhausted(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, ringbuf.ErrClosed)
}

// Close detaches the probe and releases all kernel resources, in reverse
// order of setup.
func (p *Probe) Close() error {
	var merr error
	if p.reader != nil {
		if err := p.reader.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
		p.reader = nil
	}
	for _, l := range p.links {
		if err := l.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	p.links = nil
	if err := p.objs.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr
}
