package handoff

import (
	"reflect"
	"testing"
)

func TestCommand_GDB(t *testing.T) {
	c := &Controller{DebuggerArgs: []string{"-nx", "-batch", "-ex", "c", "-ex", "q"}}
	got := c.command(4321)
	want := []string{
		"gdb", "-p", "4321",
		"-ex", "handle SIGSTOP nostop noprint nopass",
		"-nx", "-batch", "-ex", "c", "-ex", "q",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("command = %v\nwant %v", got, want)
	}
}

func TestCommand_Strace(t *testing.T) {
	c := &Controller{Strace: true}
	got := c.command(99)
	// strace gets no signal prelude: it does not stop on SIGSTOP.
	want := []string{"strace", "-p", "99"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("command = %v, want %v", got, want)
	}
}

func TestStartLine(t *testing.T) {
	tests := []struct {
		name string
		c    Controller
		pid  int
		want string
	}{
		{
			name: "gdb with extra args",
			c:    Controller{DebuggerArgs: []string{"-nx", "-batch", "-ex", "c", "-ex", "q"}},
			pid:  4321,
			want: "Starting gdb -p 4321 -ex 'handle SIGSTOP nostop noprint nopass' -nx -batch -ex c -ex q...",
		},
		{
			name: "gdb without extra args",
			c:    Controller{},
			pid:  7,
			want: "Starting gdb -p 7 -ex 'handle SIGSTOP nostop noprint nopass'...",
		},
		{
			name: "strace",
			c:    Controller{Strace: true},
			pid:  8,
			want: "Starting strace -p 8...",
		},
		{
			name: "strace with extra args",
			c:    Controller{Strace: true, DebuggerArgs: []string{"-f"}},
			pid:  8,
			want: "Starting strace -p 8 -f...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.startLine(tt.pid); got != tt.want {
				t.Errorf("startLine = %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if got := (&Controller{}).label(); got != "GDB" {
		t.Errorf("label = %q, want GDB", got)
	}
	if got := (&Controller{Strace: true}).label(); got != "strace" {
		t.Errorf("label = %q, want strace", got)
	}
}

func TestRelease_GonePid(t *testing.T) {
	// Releasing an already-dead target must be harmless; targets are
	// short-lived by nature.
	Release(1 << 30)
}
