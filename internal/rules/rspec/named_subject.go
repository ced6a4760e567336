package rspec

import (
	"github.com/donaldgifford/speclint/internal/lint"
	"github.com/donaldgifford/speclint/internal/parser"
	"github.com/donaldgifford/speclint/internal/pattern"
)

// NamedSubjectName is the identifier of the NamedSubject rule.
const NamedSubjectName = "RSpec/NamedSubject"

const namedSubjectMsg = "Name your test subject if you need to reference it explicitly."

var (
	exampleBlock = pattern.MustCompile(
		"(block (send nil {:it :specify :before :after :around} ...) ...)")
	unnamedSubject = pattern.MustCompile("$(send nil :subject)")
)

// NamedSubject checks for explicit references to the implicit subject
// inside examples and hooks.
//
//	# bad
//	subject { described_class.new }
//	it 'is valid' do
//	  expect(subject.valid?).to be(true)
//	end
//
//	# good
//	subject(:user) { described_class.new }
//	it 'is valid' do
//	  expect(user.valid?).to be(true)
//	end
type NamedSubject struct{}

// NewNamedSubject builds the rule.
func NewNamedSubject() *NamedSubject {
	return &NamedSubject{}
}

// Name returns the rule identifier.
func (r *NamedSubject) Name() string {
	return NamedSubjectName
}

// Kinds returns the node kinds the rule inspects.
func (r *NamedSubject) Kinds() []parser.Kind {
	return []parser.Kind{parser.KindBlock}
}

// Evaluate flags every bare subject call anywhere in an example or hook
// block, including blocks nested inside it. Each offense covers the method
// name only.
func (r *NamedSubject) Evaluate(n *parser.Node) []lint.Diagnostic {
	if !exampleBlock.Matches(n) {
		return nil
	}

	var diags []lint.Diagnostic
	parser.Walk(n, func(d *parser.Node) bool {
		caps, ok := unnamedSubject.Match(d)
		if ok {
			diags = append(diags, lint.Diagnostic{
				Rule:    NamedSubjectName,
				Range:   caps.Nodes[0].Selector,
				Message: namedSubjectMsg,
			})
		}
		return true
	})
	return diags
}
