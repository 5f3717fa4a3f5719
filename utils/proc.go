package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Cmdline reads the argv of the given pid as of its current image.
// The kernel presents it as NUL-separated tokens with a trailing NUL.
func Cmdline(pid int) ([]string, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return nil, err
	}
	return SplitCmdline(data), nil
}

// SplitCmdline splits raw /proc/<pid>/cmdline contents into argv tokens.
func SplitCmdline(data []byte) []string {
	data = bytes.TrimSuffix(data, []byte{0})
	if len(data) == 0 {
		return nil
	}
	parts := bytes.Split(data, []byte{0})
	argv := make([]string, len(parts))
	for i, p := range parts {
		argv[i] = string(p)
	}
	return argv
}

// ExeBasename resolves /proc/<pid>/exe to its canonical path and returns
// the basename. Symlinks in the target's path are resolved, so a program
// invoked through a symlink is matched by what was really executed.
func ExeBasename(pid int) (string, error) {
	path, err := filepath.EvalSymlinks(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", err
	}
	return filepath.Base(path), nil
}

// TaskStopped reports whether the task is in the stopped (T) state.
// A pid that no longer exists reports false.
func TaskStopped(pid int) (bool, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	state, err := ParseStatState(data)
	if err != nil {
		return false, err
	}
	return state == 'T', nil
}

// ParseStatState extracts the process state letter from a /proc/<pid>/stat
// line. The comm field is enclosed in parentheses and may itself contain
// parentheses and spaces, so the state is found after the last ')'.
func ParseStatState(data []byte) (byte, error) {
	i := bytes.LastIndexByte(data, ')')
	if i < 0 || i+2 >= len(data) {
		return 0, fmt.Errorf("malformed stat line")
	}
	return data[i+2], nil
}
