// Package rules manages registration and construction of lint rules.
package rules

import (
	"github.com/donaldgifford/speclint/internal/config"
	"github.com/donaldgifford/speclint/internal/lint"
)

// Factory builds a rule from the loaded configuration.
type Factory func(cfg *config.Config) (lint.Rule, error)

type registration struct {
	name    string
	factory Factory
}

var registry []registration

// Register adds a rule factory to the registry. Rules are built in the
// order they are registered.
func Register(name string, f Factory) {
	registry = append(registry, registration{name: name, factory: f})
}

// Names returns the names of all registered rules in registration order.
func Names() []string {
	names := make([]string, len(registry))
	for i, r := range registry {
		names[i] = r.name
	}
	return names
}

// Build constructs every registered rule. A rule whose factory fails is
// left out and its error returned; the remaining rules are still built.
func Build(cfg *config.Config) ([]lint.Rule, []error) {
	var built []lint.Rule
	var errs []error
	for _, r := range registry {
		rule, err := r.factory(cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		built = append(built, rule)
	}
	return built, errs
}
