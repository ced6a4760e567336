package diff

import (
	"fmt"
	"slices"
	"strings"
	"testing"
)

func TestUnified(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		want     string
	}{
		{
			name: "identical",
			old:  "it_behaves_like 'a'\n",
			new:  "it_behaves_like 'a'\n",
			want: "",
		},
		{
			name: "both empty",
			want: "",
		},
		{
			name: "changed selector",
			old:  "describe 'x' do\n  it_should_behave_like 'a'\nend\n",
			new:  "describe 'x' do\n  it_behaves_like 'a'\nend\n",
			want: "--- a/x_spec.rb\n+++ b/x_spec.rb\n" +
				"@@ -1,3 +1,3 @@\n" +
				" describe 'x' do\n" +
				"-  it_should_behave_like 'a'\n" +
				"+  it_behaves_like 'a'\n" +
				" end\n",
		},
		{
			name: "from empty",
			new:  "a\n",
			want: "--- a/x_spec.rb\n+++ b/x_spec.rb\n@@ -0,0 +1,1 @@\n+a\n",
		},
		{
			name: "to empty",
			old:  "a\n",
			want: "--- a/x_spec.rb\n+++ b/x_spec.rb\n@@ -1,1 +0,0 @@\n-a\n",
		},
		{
			name: "no trailing newline",
			old:  "a",
			new:  "b",
			want: "--- a/x_spec.rb\n+++ b/x_spec.rb\n@@ -1,1 +1,1 @@\n" +
				"-a\n\\ No newline at end of file\n" +
				"+b\n\\ No newline at end of file\n",
		},
		{
			name: "pure insertion",
			old:  "a\nb\n",
			new:  "a\nc\nb\n",
			want: "--- a/x_spec.rb\n+++ b/x_spec.rb\n@@ -1,2 +1,3 @@\n a\n+c\n b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unified("x_spec.rb", tt.old, tt.new)
			if got != tt.want {
				t.Errorf("diff mismatch:\n--- expected\n%s\n--- actual\n%s", tt.want, got)
			}
		})
	}
}

func numbered(prefix string, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%s%d\n", prefix, i+1)
	}
	return lines
}

func hunkHeaders(d string) []string {
	var headers []string
	for line := range strings.SplitSeq(d, "\n") {
		if strings.HasPrefix(line, "@@") {
			headers = append(headers, line)
		}
	}
	return headers
}

func TestUnifiedSeparateHunks(t *testing.T) {
	old := numbered("l", 20)
	updated := slices.Clone(old)
	updated[1] = "L2\n"
	updated[18] = "L19\n"

	d := Unified("x_spec.rb", strings.Join(old, ""), strings.Join(updated, ""))

	want := []string{"@@ -1,5 +1,5 @@", "@@ -16,5 +16,5 @@"}
	if got := hunkHeaders(d); !slices.Equal(got, want) {
		t.Errorf("headers: got %q, want %q\n%s", got, want, d)
	}
	for _, s := range []string{"-l2\n", "+L2\n", "-l19\n", "+L19\n", " l5\n", " l16\n"} {
		if !strings.Contains(d, s) {
			t.Errorf("diff missing %q:\n%s", s, d)
		}
	}
	if strings.Contains(d, " l6\n") || strings.Contains(d, " l15\n") {
		t.Errorf("diff shows more than 3 lines of context:\n%s", d)
	}
}

func TestUnifiedMergesCloseHunks(t *testing.T) {
	old := numbered("l", 12)
	updated := slices.Clone(old)
	updated[1] = "L2\n"
	updated[8] = "L9\n"

	d := Unified("x_spec.rb", strings.Join(old, ""), strings.Join(updated, ""))

	want := []string{"@@ -1,12 +1,12 @@"}
	if got := hunkHeaders(d); !slices.Equal(got, want) {
		t.Errorf("headers: got %q, want %q\n%s", got, want, d)
	}
}

// rebuild recovers both inputs from an edit script.
func rebuild(a, b []string, edits []Edit) (oldOut, newOut []string) {
	for _, e := range edits {
		switch e.Op {
		case Equal:
			if a[e.Old] != b[e.New] {
				return nil, nil
			}
			oldOut = append(oldOut, a[e.Old])
			newOut = append(newOut, b[e.New])
		case Delete:
			oldOut = append(oldOut, a[e.Old])
		case Insert:
			newOut = append(newOut, b[e.New])
		}
	}
	return oldOut, newOut
}

func TestLinesCoversBothInputs(t *testing.T) {
	tests := []struct {
		a, b    string
		changes int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abcabba", "cbabac", 5},
		{"xaxbx", "abc", 4},
		{"describe", "subject", 9},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			a := strings.Split(tt.a, "")
			b := strings.Split(tt.b, "")
			edits := Lines(a, b)

			oldOut, newOut := rebuild(a, b, edits)
			if !slices.Equal(oldOut, a) || !slices.Equal(newOut, b) {
				t.Fatalf("edit script does not cover inputs: %+v", edits)
			}

			changes := 0
			for _, e := range edits {
				if e.Op != Equal {
					changes++
				}
			}
			if changes != tt.changes {
				t.Errorf("got %d changes, want %d", changes, tt.changes)
			}
		})
	}
}

func TestLinesInsertion(t *testing.T) {
	got := Lines([]string{"a", "b"}, []string{"a", "c", "b"})
	want := []Edit{
		{Op: Equal, Old: 0, New: 0},
		{Op: Insert, Old: -1, New: 1},
		{Op: Equal, Old: 1, New: 2},
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "", 0},
		{"one line with newline", "subject\n", 1},
		{"one line no newline", "subject", 1},
		{"two lines", "a\nb\n", 2},
		{"trailing blank", "a\n\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := splitLines(tt.input)
			if len(lines) != tt.want {
				t.Errorf("splitLines(%q) = %d lines, want %d: %q", tt.input, len(lines), tt.want, lines)
			}
		})
	}
}
