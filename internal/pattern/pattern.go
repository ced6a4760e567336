// Package pattern compiles and evaluates node patterns: a small s-expression
// language describing syntax tree shapes, e.g. (send nil :subject).
package pattern

import (
	"fmt"

	"github.com/donaldgifford/speclint/internal/parser"
)

// Op identifies the variant of an Expr.
type Op int

const (
	// OpAny matches any node, including an absent slot.
	OpAny Op = iota
	// OpAbsent matches only an absent slot.
	OpAbsent
	// OpKind matches a node of Kind regardless of its children.
	OpKind
	// OpNode matches a node of Kind whose children match positionally.
	OpNode
	// OpOneOf matches when any alternative matches.
	OpOneOf
	// OpLiteral matches an atom whose value equals Value.
	OpLiteral
	// OpCapture matches Inner and records the matched node.
	OpCapture
)

var opNames = [...]string{
	OpAny:     "any",
	OpAbsent:  "absent",
	OpKind:    "kind",
	OpNode:    "node",
	OpOneOf:   "oneof",
	OpLiteral: "literal",
	OpCapture: "capture",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Expr is one element of a compiled pattern. Which fields are meaningful
// depends on Op.
type Expr struct {
	Op   Op
	Kind parser.Kind // OpKind, OpNode.

	// Children holds the positional child patterns of OpNode, without the
	// rest wildcard, or the alternatives of OpOneOf.
	Children []*Expr
	// Rest is the index in Children where the rest wildcard sits, or -1.
	Rest int

	Value string // OpLiteral.

	Name  string // OpCapture; empty for positional-only captures.
	Index int    // OpCapture; position in Captures.Nodes.
	Inner *Expr  // OpCapture.
}

// Pattern is a compiled node pattern. It holds no match state and may be
// shared between goroutines.
type Pattern struct {
	src      string
	root     *Expr
	captures int
	names    map[string]int
}

// Root returns the top-level expression of the pattern.
func (p *Pattern) Root() *Expr {
	return p.root
}

// NumCaptures returns how many capture markers the pattern contains.
func (p *Pattern) NumCaptures() int {
	return p.captures
}

// String returns the source the pattern was compiled from.
func (p *Pattern) String() string {
	return p.src
}

// Captures holds the nodes recorded by a successful match.
type Captures struct {
	// Nodes lists captured nodes in the order their markers appear in the
	// pattern source. A capture of an absent slot records nil.
	Nodes []*parser.Node
	// Named maps $name= captures to their node.
	Named map[string]*parser.Node
}

// Get returns the named capture, or nil.
func (c Captures) Get(name string) *parser.Node {
	return c.Named[name]
}

// Error reports a malformed pattern.
type Error struct {
	Pattern string
	Offset  int
	Msg     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pattern %q: offset %d: %s", e.Pattern, e.Offset, e.Msg)
}
