package pattern

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/speclint/internal/parser"
)

type ptokKind int

const (
	pEOF ptokKind = iota
	pLParen
	pRParen
	pLBrace
	pRBrace
	pDollar
	pEquals
	pRest
	pWord
	pSymbol
	pString
)

type ptok struct {
	kind  ptokKind
	text  string
	value string
	start int
	end   int
}

// Compile parses src into a Pattern. Malformed sources return *Error.
func Compile(src string) (*Pattern, error) {
	toks, err := lexPattern(src)
	if err != nil {
		return nil, err
	}

	c := &compiler{src: src, toks: toks, names: make(map[string]int)}
	root, err := c.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := c.peek(); t.kind != pEOF {
		return nil, c.errorf(t.start, "unexpected %s after pattern", describeTok(t))
	}

	p := &Pattern{src: src, root: root, captures: c.captures}
	if len(c.names) > 0 {
		p.names = c.names
	}
	return p, nil
}

// MustCompile is like Compile but panics on error. It is meant for patterns
// written as constants.
func MustCompile(src string) *Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

type compiler struct {
	src      string
	toks     []ptok
	pos      int
	captures int
	names    map[string]int
	inAlt    int
}

func (c *compiler) peek() ptok {
	return c.toks[c.pos]
}

func (c *compiler) advance() ptok {
	t := c.toks[c.pos]
	if t.kind != pEOF {
		c.pos++
	}
	return t
}

func (c *compiler) errorf(offset int, format string, args ...any) *Error {
	return &Error{Pattern: c.src, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// parseExpr reads one pattern element. Rest wildcards are consumed by
// parseNode before it calls here, so any rest seen here is misplaced.
func (c *compiler) parseExpr() (*Expr, error) {
	t := c.advance()
	switch t.kind {
	case pEOF:
		if t.start == 0 {
			return nil, c.errorf(0, "empty pattern")
		}
		return nil, c.errorf(t.start, "unexpected end of pattern")

	case pRest:
		return nil, c.errorf(t.start, "rest wildcard outside a child list")

	case pDollar:
		return c.parseCapture(t)

	case pSymbol, pString:
		return &Expr{Op: OpLiteral, Value: t.value}, nil

	case pWord:
		switch t.text {
		case "_":
			return &Expr{Op: OpAny}, nil
		case "nil":
			return &Expr{Op: OpAbsent}, nil
		}
		kind, ok := parser.KindByName(t.text)
		if !ok {
			return nil, c.errorf(t.start, "unknown node kind %q", t.text)
		}
		return &Expr{Op: OpKind, Kind: kind}, nil

	case pLParen:
		return c.parseNode(t)

	case pLBrace:
		return c.parseOneOf(t)
	}
	return nil, c.errorf(t.start, "unexpected %s", describeTok(t))
}

func (c *compiler) parseCapture(dollar ptok) (*Expr, error) {
	if c.inAlt > 0 {
		return nil, c.errorf(dollar.start, "captures are not allowed inside alternatives")
	}

	var name string
	if t := c.peek(); t.kind == pWord && c.toks[c.pos+1].kind == pEquals && c.toks[c.pos+1].start == t.end {
		name = t.text
		c.advance()
		c.advance()
		if _, dup := c.names[name]; dup {
			return nil, c.errorf(t.start, "duplicate capture name %q", name)
		}
	}

	switch t := c.peek(); t.kind {
	case pEOF, pRParen, pRBrace:
		return nil, c.errorf(dollar.start, "capture has nothing to capture")
	case pRest:
		return nil, c.errorf(dollar.start, "cannot capture a rest wildcard")
	}

	// Indexes follow source order, so reserve ours before the inner pattern
	// takes any.
	index := c.captures
	c.captures++
	if name != "" {
		c.names[name] = index
	}

	inner, err := c.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Expr{Op: OpCapture, Name: name, Index: index, Inner: inner}, nil
}

func (c *compiler) parseNode(open ptok) (*Expr, error) {
	head := c.advance()
	if head.kind != pWord {
		return nil, c.errorf(head.start, "expected node kind after '(', found %s", describeTok(head))
	}
	kind, ok := parser.KindByName(head.text)
	if !ok {
		return nil, c.errorf(head.start, "unknown node kind %q", head.text)
	}

	e := &Expr{Op: OpNode, Kind: kind, Rest: -1}
	for {
		t := c.peek()
		switch t.kind {
		case pRParen:
			c.advance()
			return e, nil
		case pEOF:
			return nil, c.errorf(t.start, "unbalanced '(' at offset %d", open.start)
		case pRest:
			c.advance()
			if e.Rest >= 0 {
				return nil, c.errorf(t.start, "more than one rest wildcard in a child list")
			}
			e.Rest = len(e.Children)
			continue
		}

		child, err := c.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Children = append(e.Children, child)
	}
}

func (c *compiler) parseOneOf(open ptok) (*Expr, error) {
	c.inAlt++
	defer func() { c.inAlt-- }()

	e := &Expr{Op: OpOneOf}
	for {
		t := c.peek()
		switch t.kind {
		case pRBrace:
			c.advance()
			if len(e.Children) == 0 {
				return nil, c.errorf(open.start, "empty alternation")
			}
			return e, nil
		case pEOF:
			return nil, c.errorf(t.start, "unbalanced '{' at offset %d", open.start)
		}

		alt, err := c.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Children = append(e.Children, alt)
	}
}

// lexPattern splits a pattern source into tokens.
func lexPattern(src string) ([]ptok, error) {
	var toks []ptok
	pos := 0
	fail := func(off int, format string, args ...any) error {
		return &Error{Pattern: src, Offset: off, Msg: fmt.Sprintf(format, args...)}
	}

	for {
		for pos < len(src) && isPatternSpace(src[pos]) {
			pos++
		}
		if pos >= len(src) {
			return append(toks, ptok{kind: pEOF, start: pos, end: pos}), nil
		}

		start := pos
		ch := src[pos]
		switch {
		case strings.IndexByte("(){}$=", ch) >= 0:
			pos++
			toks = append(toks, ptok{kind: punctKind(ch), text: src[start:pos], start: start, end: pos})

		case strings.HasPrefix(src[pos:], "..."):
			pos += 3
			toks = append(toks, ptok{kind: pRest, text: "...", start: start, end: pos})

		case ch == ':':
			pos++
			for pos < len(src) && isSymbolChar(src[pos]) {
				pos++
			}
			if pos == start+1 {
				return nil, fail(start, "empty symbol literal")
			}
			toks = append(toks, ptok{kind: pSymbol, text: src[start:pos], value: src[start+1 : pos], start: start, end: pos})

		case ch == '"':
			var b strings.Builder
			pos++
			closed := false
			for pos < len(src) && !closed {
				switch {
				case src[pos] == '\\' && pos+1 < len(src):
					b.WriteByte(src[pos+1])
					pos += 2
				case src[pos] == '"':
					pos++
					closed = true
				default:
					b.WriteByte(src[pos])
					pos++
				}
			}
			if !closed {
				return nil, fail(start, "unterminated string literal")
			}
			toks = append(toks, ptok{kind: pString, text: src[start:pos], value: b.String(), start: start, end: pos})

		case isWordChar(ch):
			for pos < len(src) && isWordChar(src[pos]) {
				pos++
			}
			toks = append(toks, ptok{kind: pWord, text: src[start:pos], start: start, end: pos})

		default:
			return nil, fail(start, "unexpected character %q", ch)
		}
	}
}

func punctKind(ch byte) ptokKind {
	switch ch {
	case '(':
		return pLParen
	case ')':
		return pRParen
	case '{':
		return pLBrace
	case '}':
		return pRBrace
	case '$':
		return pDollar
	}
	return pEquals
}

func isPatternSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isWordChar(ch byte) bool {
	return ch == '_' || ch == '?' || ch == '!' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// isSymbolChar accepts operator method names such as :[] and :== as well as
// identifiers.
func isSymbolChar(ch byte) bool {
	return !isPatternSpace(ch) && strings.IndexByte("(){}$\"", ch) < 0
}

func describeTok(t ptok) string {
	if t.kind == pEOF {
		return "end of pattern"
	}
	return fmt.Sprintf("%q", t.text)
}
