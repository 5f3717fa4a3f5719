// Package linux provides the privilege preflight check for tracing.
package linux

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	cerrors "gdb-pounce/errors"
)

// Capability constants (from linux/capability.h).
const (
	CAP_KILL       = 5
	CAP_SYS_PTRACE = 19
	CAP_SYS_ADMIN  = 21
	CAP_PERFMON    = 38
	CAP_BPF        = 39
)

const capabilityVersion3 = 0x20080522

// capUserHeader mirrors struct __user_cap_header_struct.
type capUserHeader struct {
	version uint32
	pid     int32
}

// capUserData mirrors struct __user_cap_data_struct.
type capUserData struct {
	effective   uint32
	permitted   uint32
	inheritable uint32
}

var (
	// lastCapOnce ensures we only detect the last capability once.
	lastCapOnce sync.Once
	// lastCapValue holds the detected last capability value.
	lastCapValue int = CAP_BPF // fallback for older kernels
)

// getLastCap returns the highest capability supported by the kernel.
func getLastCap() int {
	lastCapOnce.Do(func() {
		data, err := os.ReadFile("/proc/sys/kernel/cap_last_cap")
		if err != nil {
			return
		}
		if v, ok := parseLastCap(data); ok {
			lastCapValue = v
		}
	})
	return lastCapValue
}

// parseLastCap parses the contents of /proc/sys/kernel/cap_last_cap.
func parseLastCap(data []byte) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// effectiveCaps reads the effective capability sets of the current process.
// The kernel fills two 32-bit words for the v3 interface.
func effectiveCaps() ([2]uint32, error) {
	hdr := capUserHeader{version: capabilityVersion3}
	var data [2]capUserData

	_, _, errno := syscall.Syscall(syscall.SYS_CAPGET,
		uintptr(unsafe.Pointer(&hdr)), uintptr(unsafe.Pointer(&data[0])), 0)
	if errno != 0 {
		return [2]uint32{}, errno
	}
	return [2]uint32{data[0].effective, data[1].effective}, nil
}

// hasCap reports whether the given capability is in the effective set.
func hasCap(caps [2]uint32, c int) bool {
	if c > getLastCap() {
		return false
	}
	return caps[c/32]&(1<<(uint(c)%32)) != 0
}

// CheckTracePrivileges verifies that the current process can load the probe
// and signal arbitrary tasks. Loading the probe needs CAP_SYS_ADMIN on older
// kernels, or CAP_BPF plus CAP_PERFMON on 5.8+; freezing and releasing
// targets needs CAP_KILL.
func CheckTracePrivileges() error {
	if os.Geteuid() == 0 {
		return nil
	}

	caps, err := effectiveCaps()
	if err != nil {
		return cerrors.Wrap(cerrors.KindPrivilege, "read capabilities", err)
	}

	canLoad := hasCap(caps, CAP_SYS_ADMIN) ||
		(hasCap(caps, CAP_BPF) && hasCap(caps, CAP_PERFMON))
	if !canLoad || !hasCap(caps, CAP_KILL) {
		return cerrors.ErrNotPrivileged
	}
	return nil
}
