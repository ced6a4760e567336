// Package diff renders unified diffs between two versions of a file.
package diff

import (
	"fmt"
	"slices"
	"strings"
)

// contextLines is the number of unchanged lines shown around each hunk.
const contextLines = 3

// Op is the kind of a line edit.
type Op uint8

const (
	Equal  Op = iota
	Insert    // line exists only in the new text.
	Delete    // line exists only in the old text.
)

// Edit is one step of an edit script. Old and New index the old and new
// lines; the side an edit does not touch is -1.
type Edit struct {
	Op  Op
	Old int
	New int
}

// Unified returns a unified diff turning oldText into newText, or "" when
// they are identical.
func Unified(filename, oldText, newText string) string {
	if oldText == newText {
		return ""
	}

	a, b := splitLines(oldText), splitLines(newText)
	hunks := group(Lines(a, b))
	if len(hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n", filename)
	fmt.Fprintf(&sb, "+++ b/%s\n", filename)
	for _, h := range hunks {
		h.write(&sb, a, b)
	}
	return sb.String()
}

// splitLines splits s after each newline. A final line without a newline
// is kept as is; "" has no lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Lines computes a shortest edit script turning a into b. Equal edits are
// included so the script covers both inputs in order.
func Lines(a, b []string) []Edit {
	pre := 0
	for pre < len(a) && pre < len(b) && a[pre] == b[pre] {
		pre++
	}
	suf := 0
	for suf < len(a)-pre && suf < len(b)-pre && a[len(a)-1-suf] == b[len(b)-1-suf] {
		suf++
	}

	edits := make([]Edit, 0, len(a)+len(b))
	for i := range pre {
		edits = append(edits, Edit{Op: Equal, Old: i, New: i})
	}
	for _, e := range myers(a[pre:len(a)-suf], b[pre:len(b)-suf]) {
		if e.Old >= 0 {
			e.Old += pre
		}
		if e.New >= 0 {
			e.New += pre
		}
		edits = append(edits, e)
	}
	for i := suf; i > 0; i-- {
		edits = append(edits, Edit{Op: Equal, Old: len(a) - i, New: len(b) - i})
	}
	return edits
}

// myers is the greedy O(ND) algorithm. v[off+k] holds the furthest x
// reached on diagonal k = x - y; one copy of v is kept per step d for
// walking the path back.
func myers(a, b []string) []Edit {
	n, m := len(a), len(b)
	off := n + m
	if off == 0 {
		return nil
	}

	v := make([]int, 2*off+2)
	var trace [][]int

	for d := 0; d <= off; d++ {
		trace = append(trace, slices.Clone(v))
		for k := -d; k <= d; k += 2 {
			var x int
			if down(v, off, k, d) {
				x = v[off+k+1]
			} else {
				x = v[off+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[off+k] = x
			if x >= n && y >= m {
				return walkBack(trace, off, n, m)
			}
		}
	}
	return nil
}

// down reports whether diagonal k at step d is reached from k+1, i.e. by
// an insertion.
func down(v []int, off, k, d int) bool {
	return k == -d || (k != d && v[off+k-1] < v[off+k+1])
}

func walkBack(trace [][]int, off, x, y int) []Edit {
	var rev []Edit
	for d := len(trace) - 1; d > 0; d-- {
		v := trace[d]
		k := x - y
		ins := down(v, off, k, d)

		pk := k - 1
		if ins {
			pk = k + 1
		}
		px := v[off+pk]
		py := px - pk

		for x > px && y > py {
			x--
			y--
			rev = append(rev, Edit{Op: Equal, Old: x, New: y})
		}
		if ins {
			y--
			rev = append(rev, Edit{Op: Insert, Old: -1, New: y})
		} else {
			x--
			rev = append(rev, Edit{Op: Delete, Old: x, New: -1})
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		rev = append(rev, Edit{Op: Equal, Old: x, New: y})
	}
	slices.Reverse(rev)
	return rev
}

// hunk is a run of edits with its position in both files. Starts are
// 1-based, except that an empty side starts at the line before it as in
// GNU diff.
type hunk struct {
	oldStart, oldLines int
	newStart, newLines int
	edits              []Edit
}

// group splits an edit script into hunks. Changes separated by no more
// than 2*contextLines equal lines share a hunk.
func group(edits []Edit) []hunk {
	var hunks []hunk
	i := 0
	for i < len(edits) {
		for i < len(edits) && edits[i].Op == Equal {
			i++
		}
		if i == len(edits) {
			break
		}

		start := max(i-contextLines, 0)
		end := i
		for end < len(edits) {
			if edits[end].Op != Equal {
				end++
				continue
			}
			run := end
			for run < len(edits) && edits[run].Op == Equal {
				run++
			}
			if run == len(edits) || run-end > 2*contextLines {
				break
			}
			end = run
		}
		stop := min(end+contextLines, len(edits))

		hunks = append(hunks, newHunk(edits[:start], edits[start:stop]))
		i = stop
	}
	return hunks
}

func newHunk(before, edits []Edit) hunk {
	oldPos, newPos := count(before)
	h := hunk{edits: edits}
	h.oldLines, h.newLines = count(edits)
	h.oldStart, h.newStart = oldPos, newPos
	if h.oldLines > 0 {
		h.oldStart++
	}
	if h.newLines > 0 {
		h.newStart++
	}
	return h
}

// count returns how many old and new lines edits span.
func count(edits []Edit) (oldN, newN int) {
	for _, e := range edits {
		if e.Op != Insert {
			oldN++
		}
		if e.Op != Delete {
			newN++
		}
	}
	return oldN, newN
}

func (h hunk) write(sb *strings.Builder, a, b []string) {
	fmt.Fprintf(sb, "@@ -%d,%d +%d,%d @@\n", h.oldStart, h.oldLines, h.newStart, h.newLines)
	for _, e := range h.edits {
		switch e.Op {
		case Equal:
			writeLine(sb, ' ', a[e.Old])
		case Delete:
			writeLine(sb, '-', a[e.Old])
		case Insert:
			writeLine(sb, '+', b[e.New])
		}
	}
}

func writeLine(sb *strings.Builder, prefix byte, line string) {
	sb.WriteByte(prefix)
	sb.WriteString(line)
	if !strings.HasSuffix(line, "\n") {
		sb.WriteString("\n\\ No newline at end of file\n")
	}
}
