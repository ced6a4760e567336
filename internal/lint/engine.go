package lint

import (
	"cmp"
	"slices"

	"github.com/donaldgifford/speclint/internal/parser"
)

// Options controls a lint run.
type Options struct {
	// Autocorrect asks Corrector rules for a correction at every node that
	// produced a diagnostic.
	Autocorrect bool
}

// Result holds the outcome of Run, ordered by source position.
type Result struct {
	Diagnostics []Diagnostic
	Corrections []Correction
}

type findingKey struct {
	rule string
	rng  parser.Range
}

// Run walks root in pre-order and dispatches each node to the rules
// interested in its kind.
//
// A finding is recorded once per rule and range. Rules that search the
// subtree of a node (for example nested example groups) can reach the same
// descendant from several ancestors.
func Run(root *parser.Node, rules []Rule, opts Options) Result {
	byKind := make(map[parser.Kind][]Rule)
	for _, r := range rules {
		for _, k := range r.Kinds() {
			byKind[k] = append(byKind[k], r)
		}
	}

	var res Result
	seenDiag := make(map[findingKey]bool)
	seenCorr := make(map[findingKey]bool)

	parser.Walk(root, func(n *parser.Node) bool {
		for _, r := range byKind[n.Kind] {
			diags := r.Evaluate(n)
			for _, d := range diags {
				k := findingKey{rule: d.Rule, rng: d.Range}
				if seenDiag[k] {
					continue
				}
				seenDiag[k] = true
				res.Diagnostics = append(res.Diagnostics, d)
			}

			if !opts.Autocorrect || len(diags) == 0 {
				continue
			}
			c, ok := r.(Corrector)
			if !ok {
				continue
			}
			corr, ok := c.Correct(n)
			if !ok {
				continue
			}
			k := findingKey{rule: corr.Rule, rng: corr.Range}
			if seenCorr[k] {
				continue
			}
			seenCorr[k] = true
			res.Corrections = append(res.Corrections, corr)
		}
		return true
	})

	slices.SortStableFunc(res.Diagnostics, func(a, b Diagnostic) int {
		return cmpFinding(a.Range, b.Range, a.Rule, b.Rule)
	})
	slices.SortStableFunc(res.Corrections, func(a, b Correction) int {
		return cmpFinding(a.Range, b.Range, a.Rule, b.Rule)
	})
	return res
}

func cmpFinding(a, b parser.Range, ruleA, ruleB string) int {
	return cmp.Or(
		cmp.Compare(a.Start, b.Start),
		cmp.Compare(a.End, b.End),
		cmp.Compare(ruleA, ruleB),
	)
}
