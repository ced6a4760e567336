// Package runner orchestrates the parse -> lint -> correct -> report pipeline.
package runner

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/speclint/internal/config"
	"github.com/donaldgifford/speclint/internal/lint"
	"github.com/donaldgifford/speclint/internal/parser"
	"github.com/donaldgifford/speclint/internal/report"
	"github.com/donaldgifford/speclint/internal/rules"
	"github.com/donaldgifford/speclint/pkg/diff"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitOffenses = 1
	ExitError    = 2
)

// MaxPasses bounds the autocorrect loop.
const MaxPasses = 10

// StdinName is the path reported for source read from stdin.
const StdinName = "<stdin>"

// ErrInfiniteCorrection is returned when corrections keep changing the
// source after MaxPasses passes.
var ErrInfiniteCorrection = errors.New("autocorrect did not settle")

// Options configures the runner behavior.
type Options struct {
	Files       []string
	ConfigPath  string
	Autocorrect bool
	Diff        bool
	Check       bool
	Format      string // Overrides output.format from the config when set.
	Color       string // Overrides output.color from the config when set.
	Jobs        int    // Files linted in parallel; <= 0 means one per CPU.
	Quiet       bool
	Verbose     bool
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
}

// SourceResult is the outcome of linting one source text.
type SourceResult struct {
	// Offenses found in the original source, in source order.
	Offenses []report.Offense
	// Source after autocorrection. Equal to the input when nothing was
	// corrected or autocorrect is off.
	Source string
	// Passes is the number of correction passes applied.
	Passes int
}

// LintSource parses src and runs rules over it. With autocorrect, the
// corrections are applied and the result re-linted until no corrections
// remain or MaxPasses is reached.
//
// Offenses always refer to the original source. An offense is marked
// Corrected when a correction from the same rule was applied inside its
// range in the first pass.
func LintSource(src string, ruleSet []lint.Rule, autocorrect bool) (SourceResult, error) {
	res := SourceResult{Source: src}

	root, err := parser.Parse(src)
	if err != nil {
		return res, err
	}
	first := lint.Run(root, ruleSet, lint.Options{Autocorrect: autocorrect})

	res.Offenses = make([]report.Offense, len(first.Diagnostics))
	for i, d := range first.Diagnostics {
		res.Offenses[i] = report.Offense{Diagnostic: d}
	}
	if !autocorrect || len(first.Corrections) == 0 {
		return res, nil
	}

	current := src
	corrections := first.Corrections
	for pass := 1; ; pass++ {
		out, skipped, err := lint.Apply(current, corrections)
		if err != nil {
			return res, err
		}
		if pass == 1 {
			markCorrected(res.Offenses, corrections, skipped)
		}
		if out == current {
			break
		}
		current = out
		res.Passes = pass

		root, err := parser.Parse(current)
		if err != nil {
			return res, fmt.Errorf("after autocorrect pass %d: %w", pass, err)
		}
		corrections = lint.Run(root, ruleSet, lint.Options{Autocorrect: true}).Corrections
		if len(corrections) == 0 {
			break
		}
		if pass == MaxPasses {
			return res, fmt.Errorf("%w after %d passes", ErrInfiniteCorrection, MaxPasses)
		}
	}

	res.Source = current
	return res, nil
}

func markCorrected(offenses []report.Offense, corrections, skipped []lint.Correction) {
	for _, c := range corrections {
		if slices.Contains(skipped, c) {
			continue
		}
		for i := range offenses {
			o := &offenses[i]
			if o.Rule == c.Rule && o.Range.Start <= c.Range.Start && c.Range.End <= o.Range.End {
				o.Corrected = true
			}
		}
	}
}

// outcome is the result for one input, kept in argument order.
type outcome struct {
	file      report.File
	corrected string
	passes    int
}

type run struct {
	opts  *Options
	rules []lint.Rule
}

// Run executes the lint pipeline and returns an exit code.
func Run(opts *Options) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		writeErr(opts.Stderr, "speclint: %v\n", err)
		return ExitError
	}
	cfg.Output.Format = cmp.Or(opts.Format, cfg.Output.Format)
	cfg.Output.Color = cmp.Or(opts.Color, cfg.Output.Color)
	if err := cfg.Validate(); err != nil {
		writeErr(opts.Stderr, "speclint: %v\n", err)
		return ExitError
	}

	exitCode := ExitOK
	ruleSet, errs := rules.Build(cfg)
	for _, err := range errs {
		writeErr(opts.Stderr, "speclint: %v\n", err)
		exitCode = ExitError
	}

	r := &run{opts: opts, rules: ruleSet}
	var results []outcome
	if len(opts.Files) == 0 {
		results = []outcome{r.stdin()}
	} else {
		results = r.files(dedupe(opts.Files))
	}

	return max(exitCode, r.finish(cfg, results))
}

func (r *run) correcting() bool {
	return r.opts.Autocorrect || r.opts.Diff
}

// writes reports whether corrected source replaces the input.
func (r *run) writes() bool {
	return r.opts.Autocorrect && !r.opts.Diff && !r.opts.Check
}

func (r *run) lint(path, src string) outcome {
	o := outcome{file: report.File{Path: path, Source: src}, corrected: src}
	res, err := LintSource(src, r.rules, r.correcting())
	if err != nil {
		o.file.Err = fmt.Errorf("%s: %w", path, err)
		return o
	}
	o.file.Offenses = res.Offenses
	o.corrected = res.Source
	o.passes = res.Passes
	return o
}

func (r *run) stdin() outcome {
	src, err := io.ReadAll(r.opts.Stdin)
	if err != nil {
		return outcome{file: report.File{Path: StdinName, Err: fmt.Errorf("reading stdin: %w", err)}}
	}
	return r.lint(StdinName, string(src))
}

// files lints paths on a bounded pool. Each worker owns one slot of the
// result slice.
func (r *run) files(paths []string) []outcome {
	jobs := r.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	results := make([]outcome, len(paths))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = r.file(path)
			return nil
		})
	}
	_ = g.Wait() // Workers record failures in their slot.
	return results
}

func (r *run) file(path string) outcome {
	src, err := os.ReadFile(path)
	if err != nil {
		return outcome{file: report.File{Path: path, Err: err}}
	}

	o := r.lint(path, string(src))
	if o.file.Err != nil || !r.writes() || o.corrected == o.file.Source {
		return o
	}

	info, err := os.Stat(path)
	if err != nil {
		o.file.Err = err
		return o
	}
	if err := os.WriteFile(path, []byte(o.corrected), info.Mode().Perm()); err != nil {
		o.file.Err = fmt.Errorf("writing %s: %w", path, err)
	}
	return o
}

// finish writes output for every result in argument order and returns the
// exit code they imply.
func (r *run) finish(cfg *config.Config, results []outcome) int {
	opts := r.opts
	exitCode := ExitOK
	files := make([]report.File, len(results))

	for i, o := range results {
		files[i] = o.file
		if o.file.Err != nil {
			writeErr(opts.Stderr, "speclint: %v\n", o.file.Err)
			exitCode = ExitError
			continue
		}
		if opts.Verbose {
			if r.correcting() {
				writeErr(opts.Stderr, "%s: autocorrect passes: %d\n", o.file.Path, o.passes)
			} else {
				writeErr(opts.Stderr, "%s\n", o.file.Path)
			}
		}
		if r.remaining(o.file) > 0 {
			exitCode = max(exitCode, ExitOffenses)
		}
	}

	switch {
	case opts.Check:
		if !opts.Quiet {
			for _, f := range files {
				if f.Err == nil && len(f.Offenses) > 0 {
					writeErr(opts.Stderr, "%s\n", f.Path)
				}
			}
		}
	case opts.Diff:
		for _, o := range results {
			if o.file.Err == nil {
				writeOut(opts.Stdout, diff.Unified(o.file.Path, o.file.Source, o.corrected))
			}
		}
	case opts.Autocorrect && len(opts.Files) == 0:
		// The corrected source owns stdout; the report moves to stderr.
		if results[0].file.Err == nil {
			writeOut(opts.Stdout, results[0].corrected)
		}
		if !opts.Quiet {
			if err := r.report(opts.Stderr, cfg, files); err != nil {
				writeErr(opts.Stderr, "speclint: %v\n", err)
				return ExitError
			}
		}
	default:
		if opts.Quiet && cfg.Output.Format == config.FormatText && report.Summarize(files).Offenses == 0 {
			break
		}
		if err := r.report(opts.Stdout, cfg, files); err != nil {
			writeErr(opts.Stderr, "speclint: %v\n", err)
			return ExitError
		}
	}

	return exitCode
}

// remaining counts offenses still present once the run is over.
func (r *run) remaining(f report.File) int {
	n := len(f.Offenses)
	if r.writes() {
		for _, o := range f.Offenses {
			if o.Corrected {
				n--
			}
		}
	}
	return n
}

func (r *run) report(w io.Writer, cfg *config.Config, files []report.File) error {
	if cfg.Output.Format == config.FormatJSON {
		return report.JSON(w, files)
	}
	return report.Text(w, files, report.TextOpts{Color: report.ColorEnabled(cfg.Output.Color, w)})
}

// dedupe drops repeated paths, keeping the first occurrence.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// writeOut writes to stdout.
func writeOut(w io.Writer, s string) {
	fmt.Fprint(w, s)
}

// writeErr formats and writes to stderr.
func writeErr(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
