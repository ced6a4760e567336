package report

import (
	"encoding/json"
	"io"

	"github.com/donaldgifford/speclint/internal/parser"
)

// LocationJSON is the position of an offense.
type LocationJSON struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
}

// OffenseJSON is one offense in JSON output.
type OffenseJSON struct {
	Rule      string       `json:"rule"`
	Message   string       `json:"message"`
	Corrected bool         `json:"corrected"`
	Location  LocationJSON `json:"location"`
}

// FileJSON is the result for one input in JSON output.
type FileJSON struct {
	Path     string        `json:"path"`
	Error    string        `json:"error,omitempty"`
	Offenses []OffenseJSON `json:"offenses"`
}

// Output is the root of JSON output.
type Output struct {
	Files   []FileJSON `json:"files"`
	Summary Summary    `json:"summary"`
}

// BuildOutput converts results into the JSON document structure.
func BuildOutput(files []File) Output {
	out := Output{
		Files:   make([]FileJSON, 0, len(files)),
		Summary: Summarize(files),
	}
	for _, f := range files {
		fj := FileJSON{Path: f.Path, Offenses: make([]OffenseJSON, 0, len(f.Offenses))}
		if f.Err != nil {
			fj.Error = f.Err.Error()
			out.Files = append(out.Files, fj)
			continue
		}

		idx := parser.NewLineIndex(f.Source)
		for _, o := range f.Offenses {
			pos := locate(idx, f.Source, o.Range.Start)
			fj.Offenses = append(fj.Offenses, OffenseJSON{
				Rule:      o.Rule,
				Message:   o.Message,
				Corrected: o.Corrected,
				Location: LocationJSON{
					StartByte: o.Range.Start,
					EndByte:   o.Range.End,
					Line:      pos.line,
					Column:    pos.col,
				},
			})
		}
		out.Files = append(out.Files, fj)
	}
	return out
}

// JSON writes results as an indented JSON document.
func JSON(w io.Writer, files []File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildOutput(files))
}
