package cmd

import (
	"strings"

	cerrors "gdb-pounce/errors"
)

// options is the parsed command line.
type options struct {
	// UIDSpec is the --uid value, numeric or username.
	UIDSpec string
	// Fork keeps catching after the first match.
	Fork bool
	// Strace selects strace instead of gdb.
	Strace bool
	// Help and Version short-circuit the run.
	Help    bool
	Version bool
	// DebuggerArgs are the unrecognized flags forwarded to the debugger.
	DebuggerArgs []string
	// Program is the name to pounce on.
	Program string
	// ArgvSuffix are the trailing argv tokens to require.
	ArgvSuffix []string
}

// gdbValueFlags are gdb options that consume the following token, so that
// "-ex c" forwards both tokens and "c" is not mistaken for the program.
var gdbValueFlags = map[string]bool{
	"-ex":                 true,
	"-x":                  true,
	"-iex":                true,
	"-ix":                 true,
	"-d":                  true,
	"-cd":                 true,
	"-s":                  true,
	"-e":                  true,
	"-se":                 true,
	"-eval-command":       true,
	"--eval-command":      true,
	"--command":           true,
	"--init-command":      true,
	"--init-eval-command": true,
}

// parseArgs partitions the command line: recognized flags configure the
// engine, any other flag is forwarded to the debugger verbatim, the first
// token claimed by neither is the program name and the rest is the argv
// suffix.
func parseArgs(args []string) (*options, error) {
	opts := &options{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--uid":
			if i+1 >= len(args) {
				return nil, cerrors.Errorf(cerrors.KindArgs, "--uid requires a value")
			}
			i++
			opts.UIDSpec = args[i]
		case strings.HasPrefix(arg, "--uid="):
			opts.UIDSpec = strings.TrimPrefix(arg, "--uid=")
		case arg == "--fork":
			opts.Fork = true
		case arg == "--strace":
			opts.Strace = true
		case arg == "-h" || arg == "--help":
			opts.Help = true
		case arg == "--version":
			opts.Version = true
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			opts.DebuggerArgs = append(opts.DebuggerArgs, arg)
			if gdbValueFlags[arg] && i+1 < len(args) {
				i++
				opts.DebuggerArgs = append(opts.DebuggerArgs, args[i])
			}
		default:
			opts.Program = arg
			opts.ArgvSuffix = args[i+1:]
			return opts, validate(opts)
		}
	}
	return opts, validate(opts)
}

// validate rejects a command line that cannot run.
func validate(opts *options) error {
	if opts.Help || opts.Version {
		return nil
	}
	if opts.Program == "" {
		return cerrors.ErrNoProgram
	}
	return nil
}
