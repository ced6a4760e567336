package parser

import (
	"fmt"

	"fortio.org/safecast"
)

// binaryPrec orders infix operators; higher binds tighter. || and && build
// KindOr/KindAnd nodes, every other operator is a method call.
var binaryPrec = map[string]int{
	"||":  1,
	"&&":  2,
	"==":  3,
	"!=":  3,
	"===": 3,
	"=~":  3,
	"<=>": 3,
	"<":   4,
	">":   4,
	"<=":  4,
	">=":  4,
	"<<":  5,
	"+":   6,
	"-":   6,
	"*":   7,
	"/":   7,
	"%":   7,
	"**":  8,
}

// bailout unwinds the recursive descent on the first syntax error.
type bailout struct {
	err *SyntaxError
}

// Parse reads spec-file source into a syntax tree. The root is always a
// KindBegin node covering the whole source.
func Parse(src string) (root *Node, err error) {
	size, err := safecast.Conv[uint32](len(src))
	if err != nil {
		return nil, fmt.Errorf("source too large: %w", err)
	}

	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, toks: toks}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.err
		}
	}()

	stmts := p.parseStatements()
	if t := p.peek(); t.kind != tEOF {
		panic(p.errorf(t, "unexpected %s", describe(t)))
	}

	return &Node{Kind: KindBegin, Children: stmts, Range: Range{Start: 0, End: size}}, nil
}

// parser is a recursive-descent reader over the token stream.
type parser struct {
	src  string
	toks []token
	pos  int

	// noDo is positive while reading unparenthesized command arguments, so
	// that a trailing do/end block binds to the outermost command call.
	noDo int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) punct(text string) bool {
	return p.peek().is(tPunct, text)
}

func (p *parser) keyword(text string) bool {
	return p.peek().is(tKeyword, text)
}

func (p *parser) errorf(t token, format string, args ...any) bailout {
	return bailout{err: newSyntaxError(p.src, t.start, format, args...)}
}

func (p *parser) expectPunct(text string) token {
	if t := p.peek(); !t.is(tPunct, text) {
		panic(p.errorf(t, "expected %q, found %s", text, describe(t)))
	}
	return p.advance()
}

func (p *parser) expectKeyword(text string) token {
	if t := p.peek(); !t.is(tKeyword, text) {
		panic(p.errorf(t, "expected %q, found %s", text, describe(t)))
	}
	return p.advance()
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tNewline {
		p.advance()
	}
}

func (p *parser) skipSeparators() {
	for t := p.peek(); t.kind == tNewline || t.is(tPunct, ";"); t = p.peek() {
		p.advance()
	}
}

// atTerminator reports whether the next token closes the enclosing
// statement list.
func (p *parser) atTerminator() bool {
	t := p.peek()
	switch t.kind {
	case tEOF:
		return true
	case tKeyword:
		return t.text == "end" || t.text == "else" || t.text == "elsif"
	case tPunct:
		return t.text == "}" || t.text == ")"
	}
	return false
}

// parseStatements reads statements up to the next terminator.
func (p *parser) parseStatements() []*Node {
	var stmts []*Node
	for {
		p.skipSeparators()
		if p.atTerminator() {
			return stmts
		}
		stmts = append(stmts, p.parseStatement())

		t := p.peek()
		if t.kind != tNewline && !t.is(tPunct, ";") && !p.atTerminator() {
			panic(p.errorf(t, "unexpected %s", describe(t)))
		}
	}
}

// parseBody reads a statement list and folds it into a single node: nil
// when empty, the statement itself when alone, a begin node otherwise.
func (p *parser) parseBody() *Node {
	stmts := p.parseStatements()
	switch len(stmts) {
	case 0:
		return nil
	case 1:
		return stmts[0]
	}
	r := stmts[0].Range.cover(stmts[len(stmts)-1].Range)
	return &Node{Kind: KindBegin, Children: stmts, Range: r}
}

func (p *parser) parseStatement() *Node {
	n := p.parseExprStmt()
	for {
		t := p.peek()
		switch {
		case t.is(tKeyword, "if"), t.is(tKeyword, "unless"):
			p.advance()
			cond := p.parseExprStmt()
			r := n.Range.cover(cond.Range)
			if t.text == "if" {
				n = &Node{Kind: KindIf, Children: []*Node{cond, n, nil}, Range: r}
			} else {
				n = &Node{Kind: KindIf, Children: []*Node{cond, nil, n}, Range: r}
			}
		case t.is(tKeyword, "while"), t.is(tKeyword, "until"), t.is(tKeyword, "rescue"):
			panic(p.errorf(t, "%q modifiers are not supported", t.text))
		default:
			return n
		}
	}
}

// parseExprStmt handles the low-precedence keyword operators.
func (p *parser) parseExprStmt() *Node {
	left := p.parseNotExpr()
	for {
		t := p.peek()
		var kind Kind
		switch {
		case t.is(tKeyword, "and"):
			kind = KindAnd
		case t.is(tKeyword, "or"):
			kind = KindOr
		default:
			return left
		}
		p.advance()
		p.skipNewlines()
		right := p.parseNotExpr()
		left = &Node{Kind: kind, Children: []*Node{left, right}, Range: left.Range.cover(right.Range)}
	}
}

func (p *parser) parseNotExpr() *Node {
	if t := p.peek(); t.is(tKeyword, "not") {
		p.advance()
		return unaryCall(t, p.parseNotExpr(), "!")
	}
	return p.parseExpr()
}

func (p *parser) parseExpr() *Node {
	lhs := p.parseTernary()
	eq := p.peek()
	if !eq.is(tPunct, "=") {
		return lhs
	}
	p.advance()
	p.skipNewlines()
	rhs := p.parseExpr()
	r := lhs.Range.cover(rhs.Range)

	switch {
	case lhs.Kind == KindIvar:
		return &Node{Kind: KindIvasgn, Children: []*Node{lhs.Child(0), rhs}, Range: r}
	case lhs.Kind == KindSend && len(lhs.Children) == 2 && lhs.Child(0) == nil:
		return &Node{Kind: KindLvasgn, Children: []*Node{lhs.Child(1), rhs}, Range: r}
	case lhs.Kind == KindSend && len(lhs.Children) == 2:
		name := lhs.Child(1)
		setter := &Node{Kind: KindAtom, Value: name.Value + "=", Range: name.Range}
		return &Node{
			Kind:     KindSend,
			Children: []*Node{lhs.Child(0), setter, rhs},
			Range:    r,
			Selector: lhs.Selector,
		}
	}
	panic(p.errorf(eq, "invalid assignment target"))
}

// parseTernary reads cond ? a : b as an if node. It nests to the right.
func (p *parser) parseTernary() *Node {
	cond := p.parseRange()
	if !p.punct("?") {
		return cond
	}
	p.advance()
	p.skipNewlines()
	then := p.parseTernary()
	p.skipNewlines()
	p.expectPunct(":")
	p.skipNewlines()
	alt := p.parseTernary()
	return &Node{Kind: KindIf, Children: []*Node{cond, then, alt}, Range: cond.Range.cover(alt.Range)}
}

// parseRange reads a .. or ... range. Without an upper operand the range is
// endless and its second slot is absent.
func (p *parser) parseRange() *Node {
	left := p.parseBinary(0)
	op := p.peek()
	if !op.is(tPunct, "..") && !op.is(tPunct, "...") {
		return left
	}
	p.advance()

	kind := KindIrange
	if op.text == "..." {
		kind = KindErange
	}
	if p.atRangeEnd() {
		return &Node{Kind: kind, Children: []*Node{left, nil}, Range: left.Range.cover(op.rng())}
	}
	right := p.parseBinary(0)
	return &Node{Kind: kind, Children: []*Node{left, right}, Range: left.Range.cover(right.Range)}
}

func (p *parser) atRangeEnd() bool {
	t := p.peek()
	switch t.kind {
	case tNewline, tEOF:
		return true
	case tPunct:
		switch t.text {
		case ")", "]", "}", ",", ";", ":":
			return true
		}
	case tKeyword:
		return t.text == "then" || t.text == "do" || t.text == "end" || t.text == "if" || t.text == "unless"
	}
	return false
}

func (p *parser) parseBinary(minPrec int) *Node {
	left := p.parseUnary()
	for {
		t := p.peek()
		prec, ok := binaryPrec[t.text]
		if t.kind != tPunct || !ok || prec <= minPrec {
			return left
		}
		p.advance()
		p.skipNewlines()

		next := prec
		if t.text == "**" {
			next-- // Right associative.
		}
		right := p.parseBinary(next)
		r := left.Range.cover(right.Range)

		switch t.text {
		case "||":
			left = &Node{Kind: KindOr, Children: []*Node{left, right}, Range: r}
		case "&&":
			left = &Node{Kind: KindAnd, Children: []*Node{left, right}, Range: r}
		default:
			left = &Node{
				Kind:     KindSend,
				Children: []*Node{left, atomOf(t), right},
				Range:    r,
				Selector: t.rng(),
			}
		}
	}
}

func (p *parser) parseUnary() *Node {
	t := p.peek()
	switch {
	case t.is(tPunct, "!"):
		p.advance()
		return unaryCall(t, p.parseUnary(), "!")
	case t.is(tPunct, "-"):
		p.advance()
		if next := p.peek(); (next.kind == tInt || next.kind == tFloat) && !next.space {
			p.advance()
			kind := KindInt
			if next.kind == tFloat {
				kind = KindFloat
			}
			r := t.rng().cover(next.rng())
			value := &Node{Kind: KindAtom, Value: "-" + next.value, Range: r}
			return p.parsePostfix(&Node{Kind: kind, Children: []*Node{value}, Range: r})
		}
		return unaryCall(t, p.parseUnary(), "-@")
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *parser) parsePostfix(n *Node) *Node {
	for {
		t := p.peek()
		switch {
		case t.is(tPunct, "."), t.is(tPunct, "&."):
			p.advance()
			p.skipNewlines()
			n = p.parseMethodCall(n)

		case t.kind == tNewline && (p.peekAt(1).is(tPunct, ".") || p.peekAt(1).is(tPunct, "&.")):
			// Leading-dot chains continue the previous line.
			p.advance()

		case t.is(tPunct, "::"):
			p.advance()
			name := p.advance()
			switch {
			case name.kind == tConst && !(p.punct("(") && !p.peek().space):
				n = &Node{Kind: KindConst, Children: []*Node{n, atomOf(name)}, Range: n.Range.cover(name.rng())}
			case name.kind == tConst || name.kind == tIdent:
				n = p.parseCall(n, name)
			default:
				panic(p.errorf(name, "unexpected %s after '::'", describe(name)))
			}

		case t.is(tPunct, "[") && !t.space:
			open := p.advance()
			args, closing := p.parseDelimited("]", true)
			n = &Node{
				Kind:     KindSend,
				Children: append([]*Node{n, atomValue("[]", open.rng())}, args...),
				Range:    n.Range.cover(closing.rng()),
				Selector: open.rng().cover(closing.rng()),
			}

		default:
			return n
		}
	}
}

func (p *parser) parseMethodCall(recv *Node) *Node {
	name := p.advance()
	switch name.kind {
	case tIdent, tConst, tKeyword:
		return p.parseCall(recv, name)
	}
	panic(p.errorf(name, "expected method name, found %s", describe(name)))
}

// parseCall builds a send node for name and reads its arguments and block.
func (p *parser) parseCall(recv *Node, name token) *Node {
	r := name.rng()
	if recv != nil {
		r = recv.Range.cover(r)
	}
	send := &Node{
		Kind:     KindSend,
		Children: []*Node{recv, atomOf(name)},
		Range:    r,
		Selector: name.rng(),
	}

	t := p.peek()
	switch {
	case t.is(tPunct, "(") && !t.space:
		p.advance()
		args, closing := p.parseDelimited(")", true)
		send.Children = append(send.Children, args...)
		send.Range = send.Range.cover(closing.rng())

	case p.commandArgStart(t):
		p.noDo++
		args := p.parseArgs("", true)
		p.noDo--
		send.Children = append(send.Children, args...)
		send.Range = send.Range.cover(args[len(args)-1].Range)
	}

	return p.parseBlock(send)
}

// commandArgStart reports whether t begins the first argument of a call
// written without parentheses, e.g. the string in `it 'works' do`.
func (p *parser) commandArgStart(t token) bool {
	if !t.space {
		return false
	}
	switch t.kind {
	case tString, tWords, tSymbol, tInt, tFloat, tIdent, tConst, tIvar, tLabel:
		return true
	case tKeyword:
		return t.text == "nil" || t.text == "true" || t.text == "false" || t.text == "self"
	case tPunct:
		switch t.text {
		case "[", "(", "!", "->":
			return true
		case "-", "*", "**", "&":
			// foo -1, foo *args, foo &blk; with a space after, it is an operator.
			next := p.peekAt(1)
			return !next.space && next.kind != tNewline && next.kind != tEOF
		}
	}
	return false
}

// parseDelimited reads arguments up to closer and returns them with the
// closing token. Do/end blocks are allowed again inside the delimiters.
func (p *parser) parseDelimited(closer string, groupPairs bool) ([]*Node, token) {
	saved := p.noDo
	p.noDo = 0
	defer func() { p.noDo = saved }()

	args := p.parseArgs(closer, groupPairs)
	p.skipNewlines()
	return args, p.expectPunct(closer)
}

// parseArgs reads comma-separated arguments. With a closer the list may span
// lines and allows a trailing comma. With groupPairs, key/value arguments
// are collected into one trailing hash node as Ruby does for keyword
// arguments; otherwise pairs are returned individually.
func (p *parser) parseArgs(closer string, groupPairs bool) []*Node {
	var args []*Node
	var hash *Node
	for {
		if closer != "" {
			p.skipNewlines()
			if p.punct(closer) {
				return args
			}
		}

		arg, isPair := p.parseArg()
		switch {
		case isPair && groupPairs:
			if hash == nil {
				hash = &Node{Kind: KindHash, Range: arg.Range}
				args = append(args, hash)
			}
			hash.Children = append(hash.Children, arg)
			hash.Range = hash.Range.cover(arg.Range)
		default:
			args = append(args, arg)
		}

		if !p.punct(",") {
			return args
		}
		p.advance()
		p.skipNewlines()
	}
}

// parseArg reads one argument, reporting whether it belongs in the keyword
// hash: a key/value pair or a **splat.
func (p *parser) parseArg() (*Node, bool) {
	switch t := p.peek(); {
	case t.is(tPunct, "&"):
		return p.prefixed(KindBlockPass), false
	case t.is(tPunct, "*"):
		return p.prefixed(KindSplat), false
	case t.is(tPunct, "**"):
		return p.prefixed(KindKwsplat), true
	}

	if t := p.peek(); t.kind == tLabel {
		p.advance()
		p.skipNewlines()
		name := Range{Start: uint32(t.start), End: uint32(t.end - 1)}
		key := &Node{Kind: KindSym, Children: []*Node{atomValue(t.value, name)}, Range: t.rng()}
		value := p.parseExpr()
		return &Node{Kind: KindPair, Children: []*Node{key, value}, Range: key.Range.cover(value.Range)}, true
	}

	v := p.parseExpr()
	if p.punct("=>") {
		p.advance()
		p.skipNewlines()
		value := p.parseExpr()
		return &Node{Kind: KindPair, Children: []*Node{v, value}, Range: v.Range.cover(value.Range)}, true
	}
	return v, false
}

// prefixed reads the operand of a &, * or ** argument.
func (p *parser) prefixed(kind Kind) *Node {
	op := p.advance()
	v := p.parseTernary()
	return &Node{Kind: kind, Children: []*Node{v}, Range: op.rng().cover(v.Range)}
}

// parseBlock attaches a brace or do/end block to call, if one follows.
func (p *parser) parseBlock(call *Node) *Node {
	switch open := p.peek(); {
	case open.is(tPunct, "{"), open.is(tKeyword, "do") && p.noDo == 0:
		return p.parseBlockBody(call, nil)
	}
	return call
}

// parseBlockBody reads a block starting at its opening brace or do. When
// params is nil they are read from |...| after the opener.
func (p *parser) parseBlockBody(call, params *Node) *Node {
	open := p.advance()

	saved := p.noDo
	p.noDo = 0
	defer func() { p.noDo = saved }()

	if params == nil {
		params = p.parseBlockParams(open)
	}
	body := p.parseBody()

	var end token
	if open.text == "{" {
		end = p.expectPunct("}")
	} else {
		end = p.expectKeyword("end")
	}

	return &Node{
		Kind:     KindBlock,
		Children: []*Node{call, params, body},
		Range:    call.Range.cover(end.rng()),
	}
}

func (p *parser) parseBlockParams(open token) *Node {
	if !p.punct("|") {
		return emptyArgs(open)
	}
	return p.parseParamList(p.advance(), "|")
}

// parseParamList reads comma-separated parameter names up to closer. The
// args node spans both delimiters.
func (p *parser) parseParamList(open token, closer string) *Node {
	var params []*Node
	for !p.punct(closer) {
		name := p.advance()
		if name.kind != tIdent {
			panic(p.errorf(name, "expected parameter, found %s", describe(name)))
		}
		params = append(params, &Node{Kind: KindArg, Children: []*Node{atomOf(name)}, Range: name.rng()})
		if p.punct(",") {
			p.advance()
			continue
		}
		if !p.punct(closer) {
			t := p.peek()
			panic(p.errorf(t, "expected %q, found %s", closer, describe(t)))
		}
	}
	closing := p.advance()
	return &Node{Kind: KindArgs, Children: params, Range: open.rng().cover(closing.rng())}
}

// parseLambda reads -> with optional parenthesized parameters and a brace
// or do/end body. The do always binds to the lambda.
func (p *parser) parseLambda(arrow token) *Node {
	params := emptyArgs(arrow)
	if p.punct("(") {
		params = p.parseParamList(p.advance(), ")")
	}
	if t := p.peek(); !t.is(tPunct, "{") && !t.is(tKeyword, "do") {
		panic(p.errorf(t, "expected lambda body, found %s", describe(t)))
	}
	return p.parseBlockBody(&Node{Kind: KindLambda, Range: arrow.rng()}, params)
}

// parseInterpolated builds a dstr or dsym node. Each #{ ... } segment is
// read as its own statement list into a begin node spanning the braces.
func (p *parser) parseInterpolated(kind Kind, t token) *Node {
	n := &Node{Kind: kind, Range: t.rng()}
	for _, part := range t.parts {
		if part.toks == nil {
			n.Children = append(n.Children, &Node{Kind: KindStr, Children: []*Node{atomValue(part.text, part.rng())}, Range: part.rng()})
			continue
		}
		sub := &parser{src: p.src, toks: part.toks}
		stmts := sub.parseStatements()
		if next := sub.peek(); next.kind != tEOF {
			panic(sub.errorf(next, "unexpected %s", describe(next)))
		}
		n.Children = append(n.Children, &Node{Kind: KindBegin, Children: stmts, Range: part.rng()})
	}
	return n
}

func (p *parser) parsePrimary() *Node {
	t := p.advance()
	switch t.kind {
	case tString:
		if t.parts != nil {
			return p.parseInterpolated(KindDstr, t)
		}
		return literal(KindStr, t)
	case tSymbol:
		if t.parts != nil {
			return p.parseInterpolated(KindDsym, t)
		}
		return literal(KindSym, t)
	case tWords:
		return words(t)
	case tInt:
		return literal(KindInt, t)
	case tFloat:
		return literal(KindFloat, t)
	case tIvar:
		return literal(KindIvar, t)
	case tIdent:
		return p.parseCall(nil, t)

	case tConst:
		if next := p.peek(); next.is(tPunct, "(") && !next.space {
			return p.parseCall(nil, t)
		}
		return &Node{Kind: KindConst, Children: []*Node{nil, atomOf(t)}, Range: t.rng()}

	case tKeyword:
		switch t.text {
		case "nil":
			return &Node{Kind: KindNil, Range: t.rng()}
		case "true":
			return &Node{Kind: KindTrue, Range: t.rng()}
		case "false":
			return &Node{Kind: KindFalse, Range: t.rng()}
		case "self":
			return &Node{Kind: KindSelf, Range: t.rng()}
		case "if", "unless":
			return p.parseIf(t)
		}
		panic(p.errorf(t, "unsupported keyword %q", t.text))

	case tPunct:
		switch t.text {
		case "(":
			saved := p.noDo
			p.noDo = 0
			stmts := p.parseStatements()
			p.noDo = saved
			closing := p.expectPunct(")")
			return &Node{Kind: KindBegin, Children: stmts, Range: t.rng().cover(closing.rng())}
		case "[":
			elems, closing := p.parseDelimited("]", true)
			return &Node{Kind: KindArray, Children: elems, Range: t.rng().cover(closing.rng())}
		case "{":
			pairs, closing := p.parseDelimited("}", false)
			for _, pair := range pairs {
				if pair.Kind != KindPair && pair.Kind != KindKwsplat {
					panic(bailout{err: newSyntaxError(p.src, int(pair.Range.Start), "expected key/value pair in hash literal")})
				}
			}
			return &Node{Kind: KindHash, Children: pairs, Range: t.rng().cover(closing.rng())}
		case "->":
			return p.parseLambda(t)
		}
	}
	panic(p.errorf(t, "unexpected %s", describe(t)))
}

// parseIf reads an if/unless expression after its keyword. An elsif chain
// nests in the else slot and shares the final end.
func (p *parser) parseIf(kw token) *Node {
	saved := p.noDo
	p.noDo = 0
	defer func() { p.noDo = saved }()

	cond := p.parseExprStmt()
	if p.keyword("then") {
		p.advance()
	}
	body := p.parseBody()

	var alt *Node
	var end Range
	switch t := p.peek(); {
	case t.is(tKeyword, "elsif"):
		p.advance()
		alt = p.parseIf(t)
		end = alt.Range
	case t.is(tKeyword, "else"):
		p.advance()
		alt = p.parseBody()
		end = p.expectKeyword("end").rng()
	default:
		end = p.expectKeyword("end").rng()
	}

	children := []*Node{cond, body, alt}
	if kw.text == "unless" {
		children = []*Node{cond, alt, body}
	}
	return &Node{Kind: KindIf, Children: children, Range: kw.rng().cover(end)}
}

func atomValue(value string, r Range) *Node {
	return &Node{Kind: KindAtom, Value: value, Range: r}
}

func atomOf(t token) *Node {
	value := t.value
	if value == "" {
		value = t.text
	}
	return atomValue(value, t.rng())
}

func emptyArgs(after token) *Node {
	return &Node{Kind: KindArgs, Range: Range{Start: uint32(after.end), End: uint32(after.end)}}
}

// words builds the array of a %w (strings) or %i (symbols) literal.
func words(t token) *Node {
	kind := KindStr
	if t.value == "i" {
		kind = KindSym
	}
	n := &Node{Kind: KindArray, Range: t.rng()}
	for _, w := range t.parts {
		n.Children = append(n.Children, &Node{Kind: kind, Children: []*Node{atomValue(w.text, w.rng())}, Range: w.rng()})
	}
	return n
}

func literal(kind Kind, t token) *Node {
	return &Node{Kind: kind, Children: []*Node{atomValue(t.value, t.rng())}, Range: t.rng()}
}

func unaryCall(op token, operand *Node, name string) *Node {
	return &Node{
		Kind:     KindSend,
		Children: []*Node{operand, atomValue(name, op.rng())},
		Range:    op.rng().cover(operand.Range),
		Selector: op.rng(),
	}
}

func describe(t token) string {
	switch t.kind {
	case tEOF:
		return "end of input"
	case tNewline:
		return "newline"
	}
	return fmt.Sprintf("%q", t.text)
}
