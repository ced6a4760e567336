// Package rspec implements style rules for RSpec spec files.
package rspec

import (
	"fmt"

	"github.com/donaldgifford/speclint/internal/config"
	"github.com/donaldgifford/speclint/internal/lint"
	"github.com/donaldgifford/speclint/internal/parser"
	"github.com/donaldgifford/speclint/internal/pattern"
)

// ItBehavesLikeName is the identifier of the ItBehavesLike rule.
const ItBehavesLikeName = "RSpec/ItBehavesLike"

const itBehavesLikeMsg = "Prefer %s over %s when including examples in a nested context."

// ItBehavesLike checks that only one of it_behaves_like and
// it_should_behave_like is used.
//
//	# bad (enforced style it_behaves_like)
//	it_should_behave_like 'a foo'
//
//	# good
//	it_behaves_like 'a foo'
type ItBehavesLike struct {
	style config.StyleConfig
	call  *pattern.Pattern
}

// NewItBehavesLike builds the rule for the given style. Alternative names
// that are not valid method names fail to compile into the call pattern.
func NewItBehavesLike(style config.StyleConfig) (*ItBehavesLike, error) {
	src := fmt.Sprintf("(send _ $sel={:%s :%s} ...)", style.Alternatives[0], style.Alternatives[1])
	call, err := pattern.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ItBehavesLikeName, err)
	}
	return &ItBehavesLike{style: style, call: call}, nil
}

// Name returns the rule identifier.
func (r *ItBehavesLike) Name() string {
	return ItBehavesLikeName
}

// Kinds returns the node kinds the rule inspects.
func (r *ItBehavesLike) Kinds() []parser.Kind {
	return []parser.Kind{parser.KindSend}
}

// Evaluate flags a call using the discouraged name. The offense covers the
// whole call.
func (r *ItBehavesLike) Evaluate(n *parser.Node) []lint.Diagnostic {
	used, ok := r.discouraged(n)
	if !ok {
		return nil
	}
	return []lint.Diagnostic{{
		Rule:    ItBehavesLikeName,
		Range:   n.Range,
		Message: fmt.Sprintf(itBehavesLikeMsg, r.style.Preferred(), used),
	}}
}

// Correct renames the method, leaving receiver and arguments untouched.
func (r *ItBehavesLike) Correct(n *parser.Node) (lint.Correction, bool) {
	if _, ok := r.discouraged(n); !ok {
		return lint.Correction{}, false
	}
	return lint.Correction{
		Rule:        ItBehavesLikeName,
		Range:       n.Selector,
		Replacement: r.style.Preferred(),
	}, true
}

// discouraged returns the method name when n calls one of the alternatives
// other than the preferred one.
func (r *ItBehavesLike) discouraged(n *parser.Node) (string, bool) {
	caps, ok := r.call.Match(n)
	if !ok {
		return "", false
	}
	used := caps.Get("sel").Value
	if used == r.style.Preferred() {
		return "", false
	}
	return used, true
}
