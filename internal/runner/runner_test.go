package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donaldgifford/speclint/internal/config"
	"github.com/donaldgifford/speclint/internal/lint"
	"github.com/donaldgifford/speclint/internal/parser"
	"github.com/donaldgifford/speclint/internal/report"
	"github.com/donaldgifford/speclint/internal/rules"
	"github.com/donaldgifford/speclint/internal/testutil"
)

func defaultRules(t *testing.T) []lint.Rule {
	t.Helper()
	built, errs := rules.Build(config.DefaultConfig())
	if len(errs) > 0 {
		t.Fatalf("building default rules: %v", errs)
	}
	return built
}

func TestGoldenCorrected(t *testing.T) {
	ruleSet := defaultRules(t)
	testutil.RunGoldenDir(t, "testdata/golden", "expected.rb", func(input string) string {
		res, err := LintSource(input, ruleSet, true)
		if err != nil {
			t.Errorf("LintSource: %v", err)
		}
		return res.Source
	})
}

func TestGoldenReport(t *testing.T) {
	ruleSet := defaultRules(t)
	testutil.RunGoldenDir(t, "testdata/golden", "expected.txt", func(input string) string {
		res, err := LintSource(input, ruleSet, false)
		if err != nil {
			t.Errorf("LintSource: %v", err)
		}
		var buf bytes.Buffer
		files := []report.File{{Path: "input.rb", Source: input, Offenses: res.Offenses}}
		if err := report.Text(&buf, files, report.TextOpts{}); err != nil {
			t.Error(err)
		}
		return buf.String()
	})
}

func TestLintSourceMarksCorrected(t *testing.T) {
	src := "it { subject }\nit_should_behave_like 'a'\n"

	res, err := LintSource(src, defaultRules(t), true)
	if err != nil {
		t.Fatal(err)
	}

	if want := "it { subject }\nit_behaves_like 'a'\n"; res.Source != want {
		t.Errorf("source: got %q, want %q", res.Source, want)
	}
	if res.Passes != 1 {
		t.Errorf("passes: got %d, want 1", res.Passes)
	}
	if len(res.Offenses) != 2 {
		t.Fatalf("expected 2 offenses, got %+v", res.Offenses)
	}
	if o := res.Offenses[0]; o.Rule != "RSpec/NamedSubject" || o.Corrected {
		t.Errorf("first offense: got %+v", o)
	}
	if o := res.Offenses[1]; o.Rule != "RSpec/ItBehavesLike" || !o.Corrected {
		t.Errorf("second offense: got %+v", o)
	}
}

func TestLintSourceWithoutAutocorrect(t *testing.T) {
	src := "it_should_behave_like 'a'\n"

	res, err := LintSource(src, defaultRules(t), false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != src || res.Passes != 0 {
		t.Errorf("source changed without autocorrect: %+v", res)
	}
	if len(res.Offenses) != 1 || res.Offenses[0].Corrected {
		t.Errorf("offenses: got %+v", res.Offenses)
	}
}

func TestLintSourceSubjectInInterpolation(t *testing.T) {
	src := "it 'x' do\n  expect(\"#{subject}\").to eq('a')\nend\n"

	res, err := LintSource(src, defaultRules(t), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Offenses) != 1 {
		t.Fatalf("expected 1 offense, got %+v", res.Offenses)
	}
	o := res.Offenses[0]
	if o.Rule != "RSpec/NamedSubject" || o.Range != (parser.Range{Start: 22, End: 29}) {
		t.Errorf("offense: got %+v", o)
	}
}

func TestLintSourceCommonIdioms(t *testing.T) {
	src := "it { expect(items.map(&:id)).to eq(ok ? [*1..2] : %w[a]) }\n" +
		"it_should_behave_like 'a', -> { run }\n"

	res, err := LintSource(src, defaultRules(t), true)
	if err != nil {
		t.Fatal(err)
	}
	want := "it { expect(items.map(&:id)).to eq(ok ? [*1..2] : %w[a]) }\n" +
		"it_behaves_like 'a', -> { run }\n"
	if res.Source != want {
		t.Errorf("source: got %q, want %q", res.Source, want)
	}
	if len(res.Offenses) != 1 || !res.Offenses[0].Corrected {
		t.Errorf("offenses: got %+v", res.Offenses)
	}
}

func TestLintSourceSyntaxError(t *testing.T) {
	_, err := LintSource("it 'x' do\n", defaultRules(t), false)
	var synErr *parser.SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("expected *parser.SyntaxError, got %v", err)
	}
}

// renameRule flags calls whose name is a key of renames and corrects them to
// the mapped name.
type renameRule struct {
	renames map[string]string
}

func (r renameRule) Name() string         { return "Test/Rename" }
func (r renameRule) Kinds() []parser.Kind { return []parser.Kind{parser.KindSend} }

func (r renameRule) Evaluate(n *parser.Node) []lint.Diagnostic {
	if _, ok := r.renames[n.MethodName()]; !ok {
		return nil
	}
	return []lint.Diagnostic{{Rule: r.Name(), Range: n.Selector, Message: "rename"}}
}

func (r renameRule) Correct(n *parser.Node) (lint.Correction, bool) {
	to, ok := r.renames[n.MethodName()]
	if !ok {
		return lint.Correction{}, false
	}
	return lint.Correction{Rule: r.Name(), Range: n.Selector, Replacement: to}, true
}

// growRule corrects every call by appending to its name, so it never settles.
type growRule struct{}

func (growRule) Name() string         { return "Test/Grow" }
func (growRule) Kinds() []parser.Kind { return []parser.Kind{parser.KindSend} }

func (growRule) Evaluate(n *parser.Node) []lint.Diagnostic {
	return []lint.Diagnostic{{Rule: "Test/Grow", Range: n.Selector, Message: "grow"}}
}

func (growRule) Correct(n *parser.Node) (lint.Correction, bool) {
	return lint.Correction{Rule: "Test/Grow", Range: n.Selector, Replacement: n.MethodName() + "x"}, true
}

func TestLintSourceFixedPoint(t *testing.T) {
	rule := renameRule{renames: map[string]string{"foo": "bar", "bar": "baz"}}

	res, err := LintSource("foo\n", []lint.Rule{rule}, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != "baz\n" {
		t.Errorf("source: got %q, want %q", res.Source, "baz\n")
	}
	if res.Passes != 2 {
		t.Errorf("passes: got %d, want 2", res.Passes)
	}
	if len(res.Offenses) != 1 || !res.Offenses[0].Corrected {
		t.Errorf("offenses: got %+v", res.Offenses)
	}
}

func TestLintSourceNoFixedPoint(t *testing.T) {
	res, err := LintSource("a\n", []lint.Rule{growRule{}}, true)
	if !errors.Is(err, ErrInfiniteCorrection) {
		t.Fatalf("expected ErrInfiniteCorrection, got %v", err)
	}
	if res.Passes != MaxPasses {
		t.Errorf("passes: got %d, want %d", res.Passes, MaxPasses)
	}
}

func writeSpec(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const (
	badSpec   = "describe Foo do\n  it_should_behave_like 'a foo'\nend\n"
	fixedSpec = "describe Foo do\n  it_behaves_like 'a foo'\nend\n"
	goodSpec  = "describe Foo do\n  it_behaves_like 'a foo'\nend\n"
)

func TestRunLint(t *testing.T) {
	path := writeSpec(t, t.TempDir(), "foo_spec.rb", badSpec)

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: []string{path}, Stdout: &stdout, Stderr: &stderr})

	if code != ExitOffenses {
		t.Errorf("exit code: got %d, want %d", code, ExitOffenses)
	}
	if !strings.Contains(stdout.String(), path+":2:3: RSpec/ItBehavesLike: ") {
		t.Errorf("missing offense in output:\n%s", stdout.String())
	}
	if got := readFile(t, path); got != badSpec {
		t.Errorf("lint mode modified the file: %q", got)
	}
}

func TestRunClean(t *testing.T) {
	path := writeSpec(t, t.TempDir(), "foo_spec.rb", goodSpec)

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: []string{path}, Stdout: &stdout, Stderr: &stderr})

	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d (stderr: %s)", code, ExitOK, stderr.String())
	}
	if want := "1 file inspected, no offenses detected\n"; stdout.String() != want {
		t.Errorf("stdout: got %q, want %q", stdout.String(), want)
	}
}

func TestRunQuietClean(t *testing.T) {
	path := writeSpec(t, t.TempDir(), "foo_spec.rb", goodSpec)

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: []string{path}, Quiet: true, Stdout: &stdout, Stderr: &stderr})

	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output, got %q", stdout.String())
	}
}

func TestRunAutocorrect(t *testing.T) {
	path := writeSpec(t, t.TempDir(), "foo_spec.rb", badSpec)

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: []string{path}, Autocorrect: true, Stdout: &stdout, Stderr: &stderr})

	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d (stderr: %s)", code, ExitOK, stderr.String())
	}
	if got := readFile(t, path); got != fixedSpec {
		t.Errorf("file after autocorrect: got %q, want %q", got, fixedSpec)
	}
	if !strings.Contains(stdout.String(), "[Corrected] RSpec/ItBehavesLike") {
		t.Errorf("missing corrected marker:\n%s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "1 offense detected, 1 offense corrected") {
		t.Errorf("missing summary:\n%s", stdout.String())
	}
}

func TestRunAutocorrectLeavesUncorrectable(t *testing.T) {
	path := writeSpec(t, t.TempDir(), "foo_spec.rb", "it { subject }\n")

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: []string{path}, Autocorrect: true, Stdout: &stdout, Stderr: &stderr})

	if code != ExitOffenses {
		t.Errorf("exit code: got %d, want %d", code, ExitOffenses)
	}
	if got := readFile(t, path); got != "it { subject }\n" {
		t.Errorf("file changed: %q", got)
	}
}

func TestRunDiff(t *testing.T) {
	path := writeSpec(t, t.TempDir(), "foo_spec.rb", badSpec)

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: []string{path}, Diff: true, Stdout: &stdout, Stderr: &stderr})

	if code != ExitOffenses {
		t.Errorf("exit code: got %d, want %d", code, ExitOffenses)
	}
	want := fmt.Sprintf("--- a/%s\n+++ b/%s\n@@ -1,3 +1,3 @@\n describe Foo do\n"+
		"-  it_should_behave_like 'a foo'\n+  it_behaves_like 'a foo'\n end\n", path, path)
	if stdout.String() != want {
		t.Errorf("diff mismatch:\n--- expected\n%s\n--- actual\n%s", want, stdout.String())
	}
	if got := readFile(t, path); got != badSpec {
		t.Errorf("diff mode modified the file: %q", got)
	}
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	bad := writeSpec(t, dir, "bad_spec.rb", badSpec)
	good := writeSpec(t, dir, "good_spec.rb", goodSpec)

	tests := []struct {
		name       string
		files      []string
		quiet      bool
		wantCode   int
		wantStderr string
	}{
		{"offenses", []string{bad, good}, false, ExitOffenses, bad + "\n"},
		{"offenses quiet", []string{bad}, true, ExitOffenses, ""},
		{"clean", []string{good}, false, ExitOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := Run(&Options{Files: tt.files, Check: true, Quiet: tt.quiet, Stdout: &stdout, Stderr: &stderr})

			if code != tt.wantCode {
				t.Errorf("exit code: got %d, want %d", code, tt.wantCode)
			}
			if stdout.Len() != 0 {
				t.Errorf("check mode wrote to stdout: %q", stdout.String())
			}
			if stderr.String() != tt.wantStderr {
				t.Errorf("stderr: got %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestRunStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(&Options{
		Stdin:  strings.NewReader("it_should_behave_like 'a foo'\n"),
		Stdout: &stdout,
		Stderr: &stderr,
	})

	if code != ExitOffenses {
		t.Errorf("exit code: got %d, want %d", code, ExitOffenses)
	}
	if !strings.HasPrefix(stdout.String(), "<stdin>:1:1: RSpec/ItBehavesLike: ") {
		t.Errorf("stdout: got %q", stdout.String())
	}
}

func TestRunStdinAutocorrect(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(&Options{
		Autocorrect: true,
		Stdin:       strings.NewReader(badSpec),
		Stdout:      &stdout,
		Stderr:      &stderr,
	})

	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if stdout.String() != fixedSpec {
		t.Errorf("stdout: got %q, want %q", stdout.String(), fixedSpec)
	}
	if !strings.Contains(stderr.String(), "1 offense corrected") {
		t.Errorf("report missing from stderr: %q", stderr.String())
	}
}

func TestRunJSONKeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := range 12 {
		content := goodSpec
		if i%3 == 0 {
			content = badSpec
		}
		paths = append(paths, writeSpec(t, dir, fmt.Sprintf("f%02d_spec.rb", i), content))
	}

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: paths, Format: config.FormatJSON, Jobs: 4, Stdout: &stdout, Stderr: &stderr})

	if code != ExitOffenses {
		t.Errorf("exit code: got %d, want %d", code, ExitOffenses)
	}

	var out report.Output
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout.String())
	}
	if len(out.Files) != len(paths) {
		t.Fatalf("expected %d files, got %d", len(paths), len(out.Files))
	}
	for i, f := range out.Files {
		if f.Path != paths[i] {
			t.Errorf("file %d: got %s, want %s", i, f.Path, paths[i])
		}
		wantOffenses := 0
		if i%3 == 0 {
			wantOffenses = 1
		}
		if len(f.Offenses) != wantOffenses {
			t.Errorf("%s: got %d offenses, want %d", f.Path, len(f.Offenses), wantOffenses)
		}
	}
	if out.Summary.Offenses != 4 {
		t.Errorf("summary offenses: got %d, want 4", out.Summary.Offenses)
	}
}

func TestRunDuplicatePaths(t *testing.T) {
	path := writeSpec(t, t.TempDir(), "foo_spec.rb", goodSpec)

	var stdout, stderr bytes.Buffer
	Run(&Options{Files: []string{path, path}, Stdout: &stdout, Stderr: &stderr})

	if want := "1 file inspected, no offenses detected\n"; stdout.String() != want {
		t.Errorf("stdout: got %q, want %q", stdout.String(), want)
	}
}

func TestRunFileErrors(t *testing.T) {
	dir := t.TempDir()
	broken := writeSpec(t, dir, "broken_spec.rb", "it 'x' do\n")
	good := writeSpec(t, dir, "good_spec.rb", goodSpec)
	missing := filepath.Join(dir, "missing_spec.rb")

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: []string{broken, missing, good}, Stdout: &stdout, Stderr: &stderr})

	if code != ExitError {
		t.Errorf("exit code: got %d, want %d", code, ExitError)
	}
	if !strings.Contains(stderr.String(), "speclint: "+broken+": ") {
		t.Errorf("missing syntax error on stderr: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), missing) {
		t.Errorf("missing read error on stderr: %q", stderr.String())
	}
	if want := "1 file inspected, no offenses detected\n"; stdout.String() != want {
		t.Errorf("good file not reported: %q", stdout.String())
	}
}

func TestRunInvalidStyleKeepsOtherRules(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeSpec(t, dir, "speclint.yml", "rules:\n  it_behaves_like:\n    enforced_style: include_examples\n")
	path := writeSpec(t, dir, "foo_spec.rb", "it { subject }\nit_should_behave_like 'a'\n")

	var stdout, stderr bytes.Buffer
	code := Run(&Options{Files: []string{path}, ConfigPath: cfgPath, Stdout: &stdout, Stderr: &stderr})

	if code != ExitError {
		t.Errorf("exit code: got %d, want %d", code, ExitError)
	}
	if !strings.Contains(stderr.String(), "speclint: RSpec/ItBehavesLike: ") {
		t.Errorf("missing rule error on stderr: %q", stderr.String())
	}
	if !strings.Contains(stdout.String(), "RSpec/NamedSubject") {
		t.Errorf("other rules did not run:\n%s", stdout.String())
	}
	if strings.Contains(stdout.String(), "RSpec/ItBehavesLike") {
		t.Errorf("broken rule still ran:\n%s", stdout.String())
	}
}

func TestRunConfigErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "foo_spec.rb", goodSpec)

	tests := []struct {
		name string
		opts Options
	}{
		{"missing config", Options{ConfigPath: filepath.Join(dir, "nope.yml")}},
		{"unknown format", Options{Format: "xml"}},
		{"unknown color", Options{Color: "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			opts := tt.opts
			opts.Files = []string{path}
			opts.Stdout = &stdout
			opts.Stderr = &stderr

			if code := Run(&opts); code != ExitError {
				t.Errorf("exit code: got %d, want %d", code, ExitError)
			}
			if !strings.HasPrefix(stderr.String(), "speclint: ") {
				t.Errorf("stderr: got %q", stderr.String())
			}
		})
	}
}

func TestRunVerbose(t *testing.T) {
	path := writeSpec(t, t.TempDir(), "foo_spec.rb", badSpec)

	var stdout, stderr bytes.Buffer
	Run(&Options{Files: []string{path}, Autocorrect: true, Verbose: true, Stdout: &stdout, Stderr: &stderr})

	if want := path + ": autocorrect passes: 1\n"; stderr.String() != want {
		t.Errorf("stderr: got %q, want %q", stderr.String(), want)
	}
}
