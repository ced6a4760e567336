// Package report renders lint results for people (text) and tools (JSON).
package report

import (
	"fmt"
	"unicode/utf8"

	"github.com/donaldgifford/speclint/internal/lint"
	"github.com/donaldgifford/speclint/internal/parser"
)

// Offense is a diagnostic together with whether autocorrect fixed it.
type Offense struct {
	lint.Diagnostic
	Corrected bool
}

// File is the outcome of linting one input.
type File struct {
	Path     string
	Source   string
	Offenses []Offense
	Err      error // Set when the file could not be read or parsed.
}

// Summary totals a set of files.
type Summary struct {
	Files     int `json:"files"`
	Errors    int `json:"errors"`
	Offenses  int `json:"offenses"`
	Corrected int `json:"corrected"`
}

// Summarize counts inspected files and offenses. Files with an error are
// counted separately.
func Summarize(files []File) Summary {
	var s Summary
	for _, f := range files {
		if f.Err != nil {
			s.Errors++
			continue
		}
		s.Files++
		s.Offenses += len(f.Offenses)
		for _, o := range f.Offenses {
			if o.Corrected {
				s.Corrected++
			}
		}
	}
	return s
}

// String renders the summary line, e.g.
// "2 files inspected, 1 offense detected, 1 offense corrected".
func (s Summary) String() string {
	out := fmt.Sprintf("%s inspected, %s detected", plural(s.Files, "file"), offenses(s.Offenses))
	if s.Corrected > 0 {
		out += fmt.Sprintf(", %s corrected", offenses(s.Corrected))
	}
	return out
}

func offenses(n int) string {
	if n == 0 {
		return "no offenses"
	}
	return plural(n, "offense")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// position is the 1-based line and character column of a byte offset.
type position struct {
	line, col int
	lineStart uint32
}

func locate(idx *parser.LineIndex, src string, off uint32) position {
	line, _ := idx.Position(off)
	start := idx.LineStart(line)
	return position{
		line:      line,
		col:       utf8.RuneCountInString(src[start:off]) + 1,
		lineStart: start,
	}
}
