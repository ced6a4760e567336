package lint

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/donaldgifford/speclint/internal/parser"
)

// ErrOutOfRange is returned when a correction does not fit the source.
var ErrOutOfRange = errors.New("correction out of range")

// Apply rewrites src with the given corrections and returns the new text.
//
// Corrections are applied from the highest offset down so that earlier
// offsets stay valid. A correction overlapping one already applied is left
// out and returned in skipped, ordered by position.
func Apply(src string, corrections []Correction) (out string, skipped []Correction, err error) {
	for _, c := range corrections {
		if c.Range.Start > c.Range.End || int(c.Range.End) > len(src) {
			return "", nil, fmt.Errorf("%w: %s at %s, source has %d bytes", ErrOutOfRange, c.Rule, c.Range, len(src))
		}
	}

	ordered := slices.Clone(corrections)
	slices.SortStableFunc(ordered, func(a, b Correction) int {
		return -cmpFinding(a.Range, b.Range, a.Rule, b.Rule)
	})

	// pieces collects the output back to front; tail is where the part of
	// src not yet copied ends.
	var accepted []parser.Range
	var pieces []string
	tail := uint32(len(src))

	for _, c := range ordered {
		if slices.ContainsFunc(accepted, c.Range.Overlaps) {
			skipped = append(skipped, c)
			continue
		}
		accepted = append(accepted, c.Range)
		pieces = append(pieces, src[c.Range.End:tail], c.Replacement)
		tail = c.Range.Start
	}
	pieces = append(pieces, src[:tail])

	var b strings.Builder
	b.Grow(len(src))
	for i := len(pieces) - 1; i >= 0; i-- {
		b.WriteString(pieces[i])
	}

	slices.Reverse(skipped)
	return b.String(), skipped, nil
}
