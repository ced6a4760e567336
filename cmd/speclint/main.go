// Package main is the entry point for speclint.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/speclint/internal/runner"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	code := runner.ExitOK
	root := newRootCmd(&code)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "speclint: %v\n", err)
		return runner.ExitError
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	opts := &runner.Options{}

	root := &cobra.Command{
		Use:   "speclint [flags] [files...]",
		Short: "Lint RSpec spec files",
		Long: `speclint checks RSpec spec files for style offenses and can correct
some of them. With no files, it reads from stdin.

Exit status is 0 when no offenses remain, 1 when offenses were found and
2 when a file, the configuration or a rule could not be processed.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Files = args
			opts.Stdin = cmd.InOrStdin()
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			*code = runner.Run(opts)
			return nil
		},
	}

	f := root.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file")
	f.BoolVarP(&opts.Autocorrect, "autocorrect", "a", false, "correct offenses in place (stdin: print corrected source)")
	f.BoolVar(&opts.Diff, "diff", false, "print a unified diff of corrections instead of writing them")
	f.BoolVar(&opts.Check, "check", false, "report only through the exit status and offending paths")
	f.StringVarP(&opts.Format, "format", "f", "", "output format: text or json (default from config)")
	f.StringVar(&opts.Color, "color", "", "colorize output: auto, always or never (default from config)")
	f.IntVarP(&opts.Jobs, "jobs", "j", 0, "files to lint in parallel (default: number of CPUs)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress informational output")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "print files as they are processed")
	root.MarkFlagsMutuallyExclusive("check", "diff")
	root.MarkFlagsMutuallyExclusive("quiet", "verbose")

	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "speclint %s (%s) %s\n", version, commit, date)
		},
	}
}
