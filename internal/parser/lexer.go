package parser

import "strings"

// tokenKind classifies a lexical token.
type tokenKind int

const (
	tEOF tokenKind = iota
	tNewline
	tIdent   // foo, valid?, save!
	tConst   // User
	tIvar    // @user
	tLabel   // name: (the colon is part of the token)
	tString  // 'x' or "x"
	tWords   // %w[a b] or %i[a b]
	tSymbol  // :foo or :"foo"
	tInt     // 42
	tFloat   // 4.2
	tKeyword // do, end, if, ...
	tPunct   // operators and delimiters
)

// keywords are reserved words the reader understands or refuses explicitly.
var keywords = map[string]bool{
	"do":     true,
	"end":    true,
	"if":     true,
	"unless": true,
	"elsif":  true,
	"else":   true,
	"then":   true,
	"nil":    true,
	"true":   true,
	"false":  true,
	"self":   true,
	"and":    true,
	"or":     true,
	"not":    true,
	"def":    true,
	"class":  true,
	"module": true,
	"while":  true,
	"until":  true,
	"case":   true,
	"begin":  true,
	"rescue": true,
	"ensure": true,
}

// puncts lists operators longest first so that prefixes never win.
var puncts = []string{
	"<=>", "===", "**", "...",
	"==", "!=", "=~", "<=", ">=", "&&", "||", "::", "=>", "&.", "->", "<<", "..",
	"(", ")", "[", "]", "{", "}", ",", ".", "=", "<", ">", "+", "-", "*", "/", "%", "!", "|", "&", "?", ":", ";",
}

type token struct {
	kind  tokenKind
	text  string // Raw source text of the token.
	value string // Decoded value for strings, symbols and labels.
	start int
	end   int
	space bool // Whitespace directly precedes the token.

	// parts holds the segments of an interpolated string or symbol and the
	// words of a %w/%i literal. Nil for plain literals.
	parts []strPart
}

// strPart is a segment of a string-like literal: decoded text, or the
// tokens of a #{ ... } interpolation ending in tEOF.
type strPart struct {
	text  string
	toks  []token
	start int
	end   int
}

func (t token) rng() Range {
	return Range{Start: uint32(t.start), End: uint32(t.end)}
}

func (s strPart) rng() Range {
	return Range{Start: uint32(s.start), End: uint32(s.end)}
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

type lexer struct {
	src string
	pos int
}

// lex splits src into tokens. Consecutive newlines and comments collapse
// into a single tNewline token.
func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	return l.tokens(-1)
}

// tokens reads to the end of input, or with open >= 0 up to the brace that
// closes the interpolation opened at that offset. The closing brace is
// replaced by tEOF.
func (l *lexer) tokens(open int) ([]token, error) {
	var toks []token
	depth := 0
	for {
		space := l.skipSpace()
		if l.pos >= len(l.src) {
			if open >= 0 {
				return nil, l.errorf(open, "unterminated string interpolation")
			}
			return append(toks, token{kind: tEOF, start: l.pos, end: l.pos, space: space}), nil
		}
		if open >= 0 && depth == 0 && l.src[l.pos] == '}' {
			toks = append(toks, token{kind: tEOF, start: l.pos, end: l.pos, space: space})
			l.pos++
			return toks, nil
		}

		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tok.space = space
		switch {
		case tok.is(tPunct, "{"):
			depth++
		case tok.is(tPunct, "}"):
			depth--
		case tok.kind == tNewline && len(toks) > 0 && toks[len(toks)-1].kind == tNewline:
			continue
		}
		toks = append(toks, tok)
	}
}

// skipSpace consumes blanks, comments and escaped newlines. It reports
// whether anything was skipped.
func (l *lexer) skipSpace() bool {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '\\' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '\n':
			l.pos += 2
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return l.pos > start
		}
	}
	return l.pos > start
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return newSyntaxError(l.src, pos, format, args...)
}

func (l *lexer) next() (token, error) {
	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == '\n':
		l.pos++
		return token{kind: tNewline, text: "\n", start: start, end: l.pos}, nil

	case c == '\'' || c == '"':
		value, parts, err := l.scanString(c)
		if err != nil {
			return token{}, err
		}
		return token{kind: tString, text: l.src[start:l.pos], value: value, start: start, end: l.pos, parts: parts}, nil

	case c == '%' && l.pos+2 < len(l.src) && (l.src[l.pos+1] == 'w' || l.src[l.pos+1] == 'i') &&
		wordClosers[l.src[l.pos+2]] != 0:
		return l.scanWords()

	case c == '@':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '@' {
			return token{}, l.errorf(start, "class variables are not supported")
		}
		if l.pos >= len(l.src) || !isIdentStart(l.src[l.pos]) {
			return token{}, l.errorf(start, "invalid instance variable name")
		}
		l.scanIdent()
		return token{kind: tIvar, text: l.src[start:l.pos], value: l.src[start:l.pos], start: start, end: l.pos}, nil

	case c == ':' && l.pos+1 < len(l.src) && l.src[l.pos+1] != ':':
		return l.scanSymbol()

	case isDigit(c):
		return l.scanNumber(), nil

	case isIdentStart(c):
		return l.scanWord(), nil
	}

	for _, p := range puncts {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			return token{kind: tPunct, text: p, start: start, end: l.pos}, nil
		}
	}
	return token{}, l.errorf(start, "unexpected character %q", c)
}

func (l *lexer) scanIdent() {
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}
}

// scanWord reads an identifier, constant, keyword or label.
func (l *lexer) scanWord() token {
	start := l.pos
	l.scanIdent()

	// Predicate and bang methods: valid?, save!. Not when the next byte
	// turns the suffix into an operator (x!=y).
	if l.pos < len(l.src) && (l.src[l.pos] == '?' || l.src[l.pos] == '!') {
		if l.pos+1 >= len(l.src) || l.src[l.pos+1] != '=' {
			l.pos++
		}
	}
	word := l.src[start:l.pos]

	// Label: name: value. A following colon would make it a scope operator.
	if l.pos < len(l.src) && l.src[l.pos] == ':' &&
		(l.pos+1 >= len(l.src) || l.src[l.pos+1] != ':') {
		l.pos++
		return token{kind: tLabel, text: l.src[start:l.pos], value: word, start: start, end: l.pos}
	}

	switch {
	case keywords[word]:
		return token{kind: tKeyword, text: word, start: start, end: l.pos}
	case isUpper(word[0]):
		return token{kind: tConst, text: word, value: word, start: start, end: l.pos}
	default:
		return token{kind: tIdent, text: word, value: word, start: start, end: l.pos}
	}
}

func (l *lexer) scanSymbol() (token, error) {
	start := l.pos
	l.pos++ // ':'
	c := l.src[l.pos]
	switch {
	case c == '"' || c == '\'':
		value, parts, err := l.scanString(c)
		if err != nil {
			return token{}, err
		}
		return token{kind: tSymbol, text: l.src[start:l.pos], value: value, start: start, end: l.pos, parts: parts}, nil
	case isIdentStart(c):
		l.scanIdent()
		if l.pos < len(l.src) && strings.IndexByte("?!=", l.src[l.pos]) >= 0 {
			l.pos++
		}
		return token{kind: tSymbol, text: l.src[start:l.pos], value: l.src[start+1 : l.pos], start: start, end: l.pos}, nil
	case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		// The else separator of a ternary.
		return token{kind: tPunct, text: ":", start: start, end: l.pos}, nil
	}
	// Operator symbols such as :+ are outside the subset.
	return token{}, l.errorf(start, "unexpected ':'")
}

func (l *lexer) scanNumber() token {
	start := l.pos
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	kind := tInt
	// A dot followed by a digit is a fraction; 1.times is a method call.
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		kind = tFloat
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	return token{kind: kind, text: text, value: strings.ReplaceAll(text, "_", ""), start: start, end: l.pos}
}

// scanString reads a quoted string starting at the opening quote and returns
// its decoded body. A double-quoted string containing #{ ... } also returns
// its segments, with each interpolation lexed in place.
func (l *lexer) scanString(quote byte) (string, []strPart, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	var parts []strPart
	seg := l.pos

	flush := func(end int) {
		if end > seg {
			parts = append(parts, strPart{text: b.String(), start: seg, end: end})
		}
		b.Reset()
	}

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			next := l.src[l.pos+1]
			l.pos += 2
			if quote == '\'' {
				if next != '\'' && next != '\\' {
					b.WriteByte('\\')
				}
				b.WriteByte(next)
				continue
			}
			b.WriteByte(unescape(next))
			continue
		case quote == '"' && c == '#' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '{':
			flush(l.pos)
			open := l.pos
			l.pos += 2
			toks, err := l.tokens(open)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, strPart{toks: toks, start: open, end: l.pos})
			seg = l.pos
			continue
		case c == quote:
			end := l.pos
			l.pos++
			if parts == nil {
				return b.String(), nil, nil
			}
			flush(end)
			return l.src[start+1 : end], parts, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return "", nil, l.errorf(start, "unterminated string")
}

// wordClosers maps the opening delimiters accepted by %w and %i.
var wordClosers = map[byte]byte{'[': ']', '(': ')', '{': '}', '<': '>'}

// scanWords reads a %w or %i literal. Each word becomes a part; a backslash
// makes the next byte part of the word.
func (l *lexer) scanWords() (token, error) {
	start := l.pos
	open := l.src[l.pos+2]
	closer := wordClosers[open]
	l.pos += 3

	var parts []strPart
	var b strings.Builder
	word := -1
	flush := func() {
		if word >= 0 {
			parts = append(parts, strPart{text: b.String(), start: word, end: l.pos})
			b.Reset()
			word = -1
		}
	}

	depth := 0
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
			l.pos++
			continue
		case c == closer && depth == 0:
			flush()
			l.pos++
			return token{kind: tWords, text: l.src[start:l.pos], value: l.src[start+1 : start+2], start: start, end: l.pos, parts: parts}, nil
		case c == open:
			depth++
		case c == closer:
			depth--
		case c == '\\' && l.pos+1 < len(l.src):
			if word < 0 {
				word = l.pos
			}
			b.WriteByte(l.src[l.pos+1])
			l.pos += 2
			continue
		}
		if word < 0 {
			word = l.pos
		}
		b.WriteByte(c)
		l.pos++
	}
	return token{}, l.errorf(start, "unterminated %s literal", l.src[start:start+2])
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	}
	return c
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || isUpper(c) || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
