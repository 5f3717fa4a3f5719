package probe

import (
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
)

// Map and program names as they appear in the kernel.
const (
	filterMapName = "pounce_filter"
	eventsMapName = "pounce_events"
	progName      = "exec_exit"
)

// ringSize is the event channel capacity in bytes. Must be a power-of-two
// multiple of the page size.
const ringSize = 1 << 16

// Offsets into the sys_exit_* tracepoint context: 8 bytes of common
// fields, then the 4-byte syscall number plus padding, then the return
// value.
const tracepointRetOffset = 16

// Field offsets within FilterSpec as laid out in the filter map.
const (
	filterPrefixOffset = 0
	filterLenOffset    = 15
	filterUIDOffset    = 16
	filterUIDSetOffset = 20
)

// Field offsets within ExecEvent as laid out on the ring buffer. Comm sits
// last so every store is naturally aligned.
const (
	eventPidOffset    = 0
	eventTgidOffset   = 4
	eventUIDOffset    = 8
	eventResultOffset = 12
	eventCommOffset   = 16
)

const sigStop = 19 // SIGSTOP

// newCollectionSpec assembles the probe: the read-only filter map
// (populated before load, so it is complete before the program can run),
// the event ring buffer and the tracepoint program. cilium/ebpf is the
// loader: it takes this spec and installs program and maps in the kernel.
func newCollectionSpec(fs FilterSpec) *ebpf.CollectionSpec {
	return &ebpf.CollectionSpec{
		Maps: map[string]*ebpf.MapSpec{
			filterMapName: {
				Name:       filterMapName,
				Type:       ebpf.Array,
				KeySize:    4,
				ValueSize:  filterSpecSize,
				MaxEntries: 1,
				Contents:   []ebpf.MapKV{{Key: uint32(0), Value: fs}},
			},
			eventsMapName: {
				Name:       eventsMapName,
				Type:       ebpf.RingBuf,
				MaxEntries: ringSize,
			},
		},
		Programs: map[string]*ebpf.ProgramSpec{
			progName: {
				Name:         progName,
				Type:         ebpf.TracePoint,
				Instructions: execExitInstructions(),
				License:      "GPL",
			},
		},
	}
}

// execExitInstructions emits the program attached to the exec syscall exit
// tracepoints.
//
// Register use: R6 return value, then ring record pointer. R7 real uid.
// R8 filter map value pointer. R9 comm prefix length, then filter result.
// Stack: comm at fp-16..fp-1, map key at fp-20.
//
// The comm comparison is emitted unrolled because the program must stay
// verifiable on kernels without bounded-loop support.
func execExitInstructions() asm.Instructions {
	insns := asm.Instructions{
		// A failed exec did not install a new image; nothing to catch.
		asm.LoadMem(asm.R6, asm.R1, tracepointRetOffset, asm.DWord),
		asm.JNE.Imm(asm.R6, 0, "exit"),

		// comm of the new image onto the stack.
		asm.Mov.Reg(asm.R1, asm.R10),
		asm.Add.Imm(asm.R1, -16),
		asm.Mov.Imm(asm.R2, 16),
		asm.FnGetCurrentComm.Call(),

		// Real uid into R7.
		asm.FnGetCurrentUidGid.Call(),
		asm.Mov.Reg(asm.R7, asm.R0),
		asm.LSh.Imm(asm.R7, 32),
		asm.RSh.Imm(asm.R7, 32),

		// Look up the filter at index 0.
		asm.StoreImm(asm.R10, -20, 0, asm.Word),
		asm.LoadMapPtr(asm.R1, 0).WithReference(filterMapName),
		asm.Mov.Reg(asm.R2, asm.R10),
		asm.Add.Imm(asm.R2, -20),
		asm.FnMapLookupElem.Call(),
		asm.JEq.Imm(asm.R0, 0, "exit"),
		asm.Mov.Reg(asm.R8, asm.R0),

		// uid predicate: absent filter or equal uid passes.
		asm.LoadMem(asm.R1, asm.R8, filterUIDSetOffset, asm.Word),
		asm.JEq.Imm(asm.R1, 0, "comm"),
		asm.LoadMem(asm.R1, asm.R8, filterUIDOffset, asm.Word),
		asm.JNE.Reg(asm.R1, asm.R7, "mismatch"),

		// comm prefix predicate over CommPrefixLen bytes.
		asm.LoadMem(asm.R9, asm.R8, filterLenOffset, asm.Byte).WithSymbol("comm"),
	}

	for i := 0; i < CommPrefixMax; i++ {
		insns = append(insns,
			asm.JLE.Imm(asm.R9, int32(i), "match"),
			asm.LoadMem(asm.R1, asm.R10, int16(-16+i), asm.Byte),
			asm.LoadMem(asm.R2, asm.R8, int16(filterPrefixOffset+i), asm.Byte),
			asm.JNE.Reg(asm.R1, asm.R2, "mismatch"),
		)
	}

	insns = append(insns,
		asm.Mov.Imm(asm.R9, int32(CoarseMatch)).WithSymbol("match"),
		asm.Ja.Label("reserve"),
		asm.Mov.Imm(asm.R9, int32(MismatchBPF)).WithSymbol("mismatch"),

		// Reserve ring space before SIGSTOP: a full ring must drop the
		// event without freezing, or the task would stay stopped with no
		// record for userspace to act on.
		asm.LoadMapPtr(asm.R1, 0).WithReference(eventsMapName).WithSymbol("reserve"),
		asm.Mov.Imm(asm.R2, EventSize),
		asm.Mov.Imm(asm.R3, 0),
		asm.FnRingbufReserve.Call(),
		asm.JEq.Imm(asm.R0, 0, "exit"),
		asm.Mov.Reg(asm.R6, asm.R0),

		// Freeze only on a coarse match, before the task can return to
		// userspace.
		asm.JEq.Imm(asm.R9, int32(MismatchBPF), "fill"),
		asm.Mov.Imm(asm.R1, sigStop),
		asm.FnSendSignal.Call(),

		// Fill and submit the record.
		asm.FnGetCurrentPidTgid.Call().WithSymbol("fill"),
		asm.Mov.Reg(asm.R1, asm.R0),
		asm.LSh.Imm(asm.R1, 32),
		asm.RSh.Imm(asm.R1, 32),
		asm.StoreMem(asm.R6, eventPidOffset, asm.R1, asm.Word),
		asm.Mov.Reg(asm.R1, asm.R0),
		asm.RSh.Imm(asm.R1, 32),
		asm.StoreMem(asm.R6, eventTgidOffset, asm.R1, asm.Word),
		asm.StoreMem(asm.R6, eventUIDOffset, asm.R7, asm.Word),
		asm.StoreMem(asm.R6, eventResultOffset, asm.R9, asm.Word),
		asm.LoadMem(asm.R1, asm.R10, -16, asm.DWord),
		asm.StoreMem(asm.R6, eventCommOffset, asm.R1, asm.DWord),
		asm.LoadMem(asm.R1, asm.R10, -8, asm.DWord),
		asm.StoreMem(asm.R6, eventCommOffset+8, asm.R1, asm.DWord),
		asm.Mov.Reg(asm.R1, asm.R6),
		asm.Mov.Imm(asm.R2, 0),
		asm.FnRingbufSubmit.Call(),

		asm.Mov.Imm(asm.R0, 0).WithSymbol("exit"),
		asm.Return(),
	)

	return insns
}
