package parser

import (
	"fmt"
	"sort"
)

// SyntaxError reports source text the reader does not understand.
type SyntaxError struct {
	Offset uint32
	Line   int // 1-indexed.
	Col    int // 1-indexed, in bytes.
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

func newSyntaxError(src string, pos int, format string, args ...any) *SyntaxError {
	off := uint32(pos)
	line, col := NewLineIndex(src).Position(off)
	return &SyntaxError{
		Offset: off,
		Line:   line,
		Col:    col,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// LineIndex maps byte offsets to line and column numbers.
type LineIndex struct {
	starts []uint32 // Offset of the first byte of each line.
}

// NewLineIndex indexes the line starts of src.
func NewLineIndex(src string) *LineIndex {
	starts := []uint32{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return &LineIndex{starts: starts}
}

// Position returns the 1-indexed line and byte column of off.
func (x *LineIndex) Position(off uint32) (line, col int) {
	i := sort.Search(len(x.starts), func(i int) bool {
		return x.starts[i] > off
	}) - 1
	return i + 1, int(off-x.starts[i]) + 1
}

// LineStart returns the offset of the first byte of the 1-indexed line.
func (x *LineIndex) LineStart(line int) uint32 {
	if line < 1 {
		return 0
	}
	if line > len(x.starts) {
		return x.starts[len(x.starts)-1]
	}
	return x.starts[line-1]
}

// Lines returns the number of lines in the indexed source.
func (x *LineIndex) Lines() int {
	return len(x.starts)
}
