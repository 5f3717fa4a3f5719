// Package cmd implements the gdb-pounce command line.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"gdb-pounce/pounce"
)

// Version information set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd is the single command: there are no subcommands, and flag
// parsing is ours because unknown flags are part of the debugger's
// argument surface, not an error.
var rootCmd = &cobra.Command{
	Use:   "gdb-pounce [--uid=<uid-or-username>] [--fork] [--strace] [<debugger-args>...] <program> [<argv-token>...]",
	Short: "attach gdb to a process precisely after a successful execve() / execveat()",
	Long: `gdb-pounce attaches gdb (or strace) to a process at the earliest
userspace instruction of its newly executed program image.

A kernel tracepoint probe observes every successful exec on the host,
freezes coarse candidates with SIGSTOP before they can run, and userspace
verifies the full predicate before handing the stopped task to gdb.

Flags:
      --uid=UID     restrict to a uid or username
      --fork        keep catching after the first match
      --strace      attach strace -p instead of gdb -p
      --version     print version information
  -h, --help        show this help

Any other flag before <program> is forwarded to the debugger, e.g.
gdb-pounce -nx -batch -ex c -ex q hello.`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE:               runPounce,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runPounce(cmd *cobra.Command, args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.Help {
		return cmd.Help()
	}
	if opts.Version {
		fmt.Printf("gdb-pounce version %s\n", Version)
		fmt.Printf("go: %s\n", runtime.Version())
		if BuildTime != "unknown" {
			fmt.Printf("build: %s\n", BuildTime)
		}
		return nil
	}

	eng, err := pounce.New(pounce.Config{
		Program:      opts.Program,
		ArgvSuffix:   opts.ArgvSuffix,
		UIDSpec:      opts.UIDSpec,
		FollowFork:   opts.Fork,
		Strace:       opts.Strace,
		DebuggerArgs: opts.DebuggerArgs,
	})
	if err != nil {
		return err
	}

	// First SIGINT cancels the verifier loop at its next suspension
	// point; further SIGINTs during teardown land in the notify buffer
	// and are absorbed.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT)
	defer stop()

	return eng.Run(ctx)
}
