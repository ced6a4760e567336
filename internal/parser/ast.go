// Package parser reads RSpec-style Ruby sources into an immutable syntax tree.
package parser

import (
	"fmt"
	"strings"
)

// Kind classifies a syntax tree node.
type Kind int

const (
	// KindAtom is a literal value slot: a method name, a symbol or string body.
	KindAtom Kind = iota
	// KindBegin is a sequence of statements. The file root is always a begin.
	KindBegin
	// KindSend is a method call: receiver, method name atom, arguments.
	KindSend
	// KindBlock is a call with a do/end or brace block: call, params, body.
	KindBlock
	// KindArgs is a block parameter list.
	KindArgs
	// KindArg is a single block parameter.
	KindArg
	// KindStr is a string literal.
	KindStr
	// KindSym is a symbol literal.
	KindSym
	// KindInt is an integer literal.
	KindInt
	// KindFloat is a float literal.
	KindFloat
	// KindConst is a constant reference, optionally scoped (Foo::Bar).
	KindConst
	// KindIvar is an instance variable read.
	KindIvar
	// KindLvasgn is a local variable assignment.
	KindLvasgn
	// KindIvasgn is an instance variable assignment.
	KindIvasgn
	// KindArray is an array literal.
	KindArray
	// KindHash is a hash literal, braced or trailing keyword arguments.
	KindHash
	// KindPair is a single key/value entry of a hash.
	KindPair
	// KindIf is a conditional: condition, then-branch, else-branch.
	KindIf
	// KindAnd is a short-circuit conjunction (&& or and).
	KindAnd
	// KindOr is a short-circuit disjunction (|| or or).
	KindOr
	// KindSelf is the self keyword.
	KindSelf
	// KindNil is the nil literal.
	KindNil
	// KindTrue is the true literal.
	KindTrue
	// KindFalse is the false literal.
	KindFalse
	// KindDstr is a double-quoted string with interpolation: str parts and
	// one begin node per #{ ... }.
	KindDstr
	// KindDsym is an interpolated quoted symbol, shaped like KindDstr.
	KindDsym
	// KindIrange is an inclusive range (a..b); the upper slot may be absent.
	KindIrange
	// KindErange is an exclusive range (a...b).
	KindErange
	// KindBlockPass is a &block argument.
	KindBlockPass
	// KindSplat is a *splat argument or array element.
	KindSplat
	// KindKwsplat is a **double splat inside a hash.
	KindKwsplat
	// KindLambda is the callee of a stabby lambda block, -> { }.
	KindLambda
)

var kindNames = [...]string{
	KindAtom:   "atom",
	KindBegin:  "begin",
	KindSend:   "send",
	KindBlock:  "block",
	KindArgs:   "args",
	KindArg:    "arg",
	KindStr:    "str",
	KindSym:    "sym",
	KindInt:    "int",
	KindFloat:  "float",
	KindConst:  "const",
	KindIvar:   "ivar",
	KindLvasgn: "lvasgn",
	KindIvasgn: "ivasgn",
	KindArray:  "array",
	KindHash:   "hash",
	KindPair:   "pair",
	KindIf:     "if",
	KindAnd:    "and",
	KindOr:     "or",
	KindSelf:   "self",
	KindNil:    "nil",
	KindTrue:   "true",
	KindFalse:  "false",

	KindDstr:      "dstr",
	KindDsym:      "dsym",
	KindIrange:    "irange",
	KindErange:    "erange",
	KindBlockPass: "block_pass",
	KindSplat:     "splat",
	KindKwsplat:   "kwsplat",
	KindLambda:    "lambda",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindByName returns the Kind whose String form is name.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Range is a half-open byte range [Start, End) into the source text.
type Range struct {
	Start uint32
	End   uint32
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() uint32 {
	return r.End - r.Start
}

// Empty reports whether the range covers no bytes.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Overlaps reports whether r and o share at least one byte. Two empty ranges
// at the same offset also overlap, since both would insert at one position.
func (r Range) Overlaps(o Range) bool {
	if r.Empty() && o.Empty() {
		return r.Start == o.Start
	}
	return r.Start < o.End && o.Start < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// cover returns the smallest range spanning both r and o.
func (r Range) cover(o Range) Range {
	if o.Start < r.Start {
		r.Start = o.Start
	}
	if o.End > r.End {
		r.End = o.End
	}
	return r
}

// Node is a single element of the syntax tree. Nodes are never modified
// after Parse returns them.
type Node struct {
	Kind     Kind
	Value    string  // Literal text; set on KindAtom only.
	Children []*Node // A nil entry is an absent slot (e.g. no receiver).
	Range    Range
	Selector Range // Method name token; set on KindSend only.
}

// Child returns the i-th child, or nil when the slot is absent or out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// MethodName returns the called method for send and block nodes.
func (n *Node) MethodName() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindSend:
		if name := n.Child(1); name != nil {
			return name.Value
		}
	case KindBlock:
		return n.Child(0).MethodName()
	}
	return ""
}

// Text returns the source text covered by the node.
func (n *Node) Text(src string) string {
	if n == nil || int(n.Range.End) > len(src) {
		return ""
	}
	return src[n.Range.Start:n.Range.End]
}

// String renders the node as an s-expression, e.g. (send nil :subject).
func (n *Node) String() string {
	if n == nil {
		return "nil"
	}
	if n.Kind == KindAtom {
		return fmt.Sprintf(":%s", n.Value)
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(n.Kind.String())
	for _, c := range n.Children {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Walk visits n and its descendants in pre-order. Absent child slots are
// skipped. If fn returns false the children of that node are not visited.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
