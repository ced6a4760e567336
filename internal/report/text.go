package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/donaldgifford/speclint/internal/parser"
)

// TextOpts configures Text.
type TextOpts struct {
	Color bool
}

type palette struct {
	path, rule, corrected, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		path:      color.New(color.Bold),
		rule:      color.New(color.FgYellow),
		corrected: color.New(color.FgGreen),
		caret:     color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.path, p.rule, p.corrected, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Text writes each offense as
//
//	path:line:col: Rule: message
//	<source line>
//	    ^^^^
//
// followed by a summary line. Files with errors are left to the caller.
func Text(w io.Writer, files []File, opts TextOpts) error {
	p := newPalette(opts.Color)
	var b strings.Builder

	for _, f := range files {
		if f.Err != nil || len(f.Offenses) == 0 {
			continue
		}
		idx := parser.NewLineIndex(f.Source)
		for _, o := range f.Offenses {
			writeOffense(&b, p, f, idx, o)
		}
	}

	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(Summarize(files).String())
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

func writeOffense(b *strings.Builder, p palette, f File, idx *parser.LineIndex, o Offense) {
	pos := locate(idx, f.Source, o.Range.Start)

	fmt.Fprintf(b, "%s: ", p.path.Sprintf("%s:%d:%d", f.Path, pos.line, pos.col))
	if o.Corrected {
		b.WriteString(p.corrected.Sprint("[Corrected]") + " ")
	}
	fmt.Fprintf(b, "%s: %s\n", p.rule.Sprint(o.Rule), o.Message)

	line := sourceLine(f.Source, pos.lineStart)
	b.WriteString(line)
	b.WriteByte('\n')
	b.WriteString(caretLine(line, o.Range.Start-pos.lineStart, o.Range.End-pos.lineStart, p))
	b.WriteByte('\n')
}

// sourceLine returns the line starting at off, without its newline.
func sourceLine(src string, off uint32) string {
	line := src[off:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSuffix(line, "\r")
}

// caretLine underlines line[start:end] with carets. Offenses spanning
// several lines are underlined to the end of the first. Columns are
// measured in display cells so wide characters stay aligned; tabs are
// copied through.
func caretLine(line string, start, end uint32, p palette) string {
	if int(start) > len(line) {
		start = uint32(len(line))
	}
	if int(end) > len(line) {
		end = uint32(len(line))
	}

	var pad strings.Builder
	for _, r := range line[:start] {
		if r == '\t' {
			pad.WriteByte('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}

	width := max(runewidth.StringWidth(line[start:end]), 1)
	return pad.String() + p.caret.Sprint(strings.Repeat("^", width))
}
