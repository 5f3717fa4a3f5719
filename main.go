// gdb-pounce attaches a debugger to a process precisely after a
// successful execve() / execveat(), before the first userspace
// instruction of the new image runs.
//
// It is built for short-lived or hard-to-intercept programs that would
// race past any shell-based attach: a kernel tracepoint probe freezes
// matching tasks at the exec boundary and hands them, still stopped, to
// gdb or strace.
package main

import (
	"fmt"
	"os"

	"gdb-pounce/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gdb-pounce: %v\n", err)
		os.Exit(1)
	}
}
