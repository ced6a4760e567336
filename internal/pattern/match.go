package pattern

import "github.com/donaldgifford/speclint/internal/parser"

// Match reports whether n has the shape described by the pattern. n may be
// nil, standing for an absent slot. On failure the returned Captures is
// empty.
func (p *Pattern) Match(n *parser.Node) (Captures, bool) {
	var slots []*parser.Node
	if p.captures > 0 {
		slots = make([]*parser.Node, p.captures)
	}
	if !match(p.root, n, slots) {
		return Captures{}, false
	}

	caps := Captures{Nodes: slots}
	if len(p.names) > 0 {
		caps.Named = make(map[string]*parser.Node, len(p.names))
		for name, i := range p.names {
			caps.Named[name] = slots[i]
		}
	}
	return caps, true
}

// Matches is Match without the captures.
func (p *Pattern) Matches(n *parser.Node) bool {
	return match(p.root, n, nil)
}

// match evaluates e against n. Matching never backtracks: the prefix before
// a rest wildcard is matched left to right, the suffix right-aligned, and
// the rest absorbs whatever lies between.
func match(e *Expr, n *parser.Node, slots []*parser.Node) bool {
	switch e.Op {
	case OpAny:
		return true

	case OpAbsent:
		return n == nil

	case OpKind:
		return n != nil && n.Kind == e.Kind

	case OpLiteral:
		return n != nil && n.Kind == parser.KindAtom && n.Value == e.Value

	case OpOneOf:
		for _, alt := range e.Children {
			if match(alt, n, slots) {
				return true
			}
		}
		return false

	case OpCapture:
		if !match(e.Inner, n, slots) {
			return false
		}
		if slots != nil {
			slots[e.Index] = n
		}
		return true

	case OpNode:
		if n == nil || n.Kind != e.Kind {
			return false
		}
		return matchChildren(e, n.Children, slots)
	}
	return false
}

func matchChildren(e *Expr, children []*parser.Node, slots []*parser.Node) bool {
	if e.Rest < 0 {
		if len(children) != len(e.Children) {
			return false
		}
		for i, c := range e.Children {
			if !match(c, children[i], slots) {
				return false
			}
		}
		return true
	}

	if len(children) < len(e.Children) {
		return false
	}
	prefix, suffix := e.Children[:e.Rest], e.Children[e.Rest:]
	for i, c := range prefix {
		if !match(c, children[i], slots) {
			return false
		}
	}
	offset := len(children) - len(suffix)
	for i, c := range suffix {
		if !match(c, children[offset+i], slots) {
			return false
		}
	}
	return true
}
