// Package lint provides the rule contract, the tree-walking engine, and the
// correction applier.
package lint

import (
	"github.com/donaldgifford/speclint/internal/parser"
)

// Rule inspects syntax tree nodes. The engine only feeds a rule the node
// kinds it declares interest in.
type Rule interface {
	// Name returns the rule identifier (e.g., "RSpec/NamedSubject").
	Name() string

	// Kinds lists the node kinds passed to Evaluate.
	Kinds() []parser.Kind

	// Evaluate returns the offenses found at n. Rules must not mutate n
	// and must not keep state between calls.
	Evaluate(n *parser.Node) []Diagnostic
}

// Corrector is implemented by rules that can rewrite what they flag.
type Corrector interface {
	// Correct returns the text replacement for a node Evaluate flagged.
	// Applying it and re-evaluating must not produce the same correction.
	Correct(n *parser.Node) (Correction, bool)
}

// Diagnostic is a single offense. Line and column are derived from Range
// when reporting.
type Diagnostic struct {
	Rule    string
	Range   parser.Range
	Message string
}

// Correction replaces the source text covered by Range with Replacement.
type Correction struct {
	Rule        string
	Range       parser.Range
	Replacement string
}
