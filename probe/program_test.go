package probe

import (
	"testing"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
)

// The probe program cannot run without a kernel, but its construction is
// pure: the spec and the instruction stream carry the invariants that
// matter, and those are checked here.

func testSpec() *ebpf.CollectionSpec {
	return newCollectionSpec(NewFilterSpec([]byte("hello"), nil))
}

func TestCollectionSpec_Maps(t *testing.T) {
	spec := testSpec()

	filter, ok := spec.Maps[filterMapName]
	if !ok {
		t.Fatalf("missing map %q", filterMapName)
	}
	if filter.Type != ebpf.Array || filter.KeySize != 4 ||
		filter.ValueSize != filterSpecSize || filter.MaxEntries != 1 {
		t.Errorf("filter map spec = %+v", filter)
	}
	if len(filter.Contents) != 1 {
		t.Fatalf("filter map must be populated at load time, got %d entries",
			len(filter.Contents))
	}

	events, ok := spec.Maps[eventsMapName]
	if !ok {
		t.Fatalf("missing map %q", eventsMapName)
	}
	if events.Type != ebpf.RingBuf {
		t.Errorf("events map type = %v, want RingBuf", events.Type)
	}
	if n := events.MaxEntries; n&(n-1) != 0 || n == 0 {
		t.Errorf("ring size %d is not a power of two", n)
	}
}

func TestCollectionSpec_Program(t *testing.T) {
	spec := testSpec()

	prog, ok := spec.Programs[progName]
	if !ok {
		t.Fatalf("missing program %q", progName)
	}
	if prog.Type != ebpf.TracePoint {
		t.Errorf("program type = %v, want TracePoint", prog.Type)
	}
	// bpf_send_signal is a GPL-only helper.
	if prog.License != "GPL" {
		t.Errorf("license = %q, want GPL", prog.License)
	}
}

// callIndices returns the instruction indices that call the given helper.
func callIndices(insns asm.Instructions, fn asm.BuiltinFunc) []int {
	call := fn.Call()
	var out []int
	for i, ins := range insns {
		if ins.OpCode == call.OpCode && ins.Constant == call.Constant {
			out = append(out, i)
		}
	}
	return out
}

func TestProgram_FreezeDiscipline(t *testing.T) {
	insns := execExitInstructions()

	signals := callIndices(insns, asm.FnSendSignal)
	if len(signals) != 1 {
		t.Fatalf("send_signal calls = %d, want exactly 1", len(signals))
	}

	reserves := callIndices(insns, asm.FnRingbufReserve)
	if len(reserves) != 1 {
		t.Fatalf("ringbuf_reserve calls = %d, want exactly 1", len(reserves))
	}

	// Ring space is reserved before the freeze: a full ring must never
	// leave a stopped task with no record for userspace.
	if reserves[0] >= signals[0] {
		t.Errorf("reserve at %d does not precede send_signal at %d",
			reserves[0], signals[0])
	}

	if n := len(callIndices(insns, asm.FnRingbufSubmit)); n != 1 {
		t.Errorf("ringbuf_submit calls = %d, want 1", n)
	}
}

func TestProgram_MapReferences(t *testing.T) {
	insns := execExitInstructions()

	refs := map[string]int{}
	for _, ins := range insns {
		if ref := ins.Reference(); ref != "" && ins.IsLoadFromMap() {
			refs[ref]++
		}
	}
	if refs[filterMapName] != 1 {
		t.Errorf("filter map references = %d, want 1", refs[filterMapName])
	}
	if refs[eventsMapName] != 1 {
		t.Errorf("events map references = %d, want 1", refs[eventsMapName])
	}
}

func TestProgram_JumpLabelsResolve(t *testing.T) {
	insns := execExitInstructions()

	symbols := map[string]int{}
	for _, ins := range insns {
		if sym := ins.Symbol(); sym != "" {
			symbols[sym]++
		}
	}
	for sym, n := range symbols {
		if n > 1 {
			t.Errorf("symbol %q defined %d times", sym, n)
		}
	}

	for i, ins := range insns {
		if ins.IsLoadFromMap() {
			continue
		}
		if ref := ins.Reference(); ref != "" && symbols[ref] == 0 {
			t.Errorf("instruction %d jumps to undefined label %q", i, ref)
		}
	}
}

func TestProgram_EndsWithExit(t *testing.T) {
	insns := execExitInstructions()
	last := insns[len(insns)-1]
	if last.OpCode != asm.Return().OpCode {
		t.Errorf("last instruction = %v, want exit", last)
	}
}
