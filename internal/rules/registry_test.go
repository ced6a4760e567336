package rules

import (
	"errors"
	"slices"
	"testing"

	"github.com/donaldgifford/speclint/internal/config"
	"github.com/donaldgifford/speclint/internal/rules/rspec"
)

func TestNames(t *testing.T) {
	want := []string{rspec.ItBehavesLikeName, rspec.NamedSubjectName}
	if got := Names(); !slices.Equal(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestBuildDefaults(t *testing.T) {
	built, errs := Build(config.DefaultConfig())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(built) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(built))
	}
	for i, name := range Names() {
		if built[i].Name() != name {
			t.Errorf("rule %d: got %q, want %q", i, built[i].Name(), name)
		}
	}
}

func TestBuildSkipsBrokenRule(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules.ItBehavesLike.EnforcedStyle = "include_examples"

	built, errs := Build(cfg)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if !errors.Is(errs[0], config.ErrInvalidStyle) {
		t.Errorf("expected ErrInvalidStyle, got %v", errs[0])
	}
	if len(built) != 1 || built[0].Name() != rspec.NamedSubjectName {
		t.Errorf("expected only %s to be built, got %d rules", rspec.NamedSubjectName, len(built))
	}
}
