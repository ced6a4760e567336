package rules

import (
	"fmt"

	"github.com/donaldgifford/speclint/internal/config"
	"github.com/donaldgifford/speclint/internal/lint"
	"github.com/donaldgifford/speclint/internal/rules/rspec"
)

func init() {
	Register(rspec.ItBehavesLikeName, func(cfg *config.Config) (lint.Rule, error) {
		style, err := cfg.Rules.ItBehavesLike.Resolve()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rspec.ItBehavesLikeName, err)
		}
		r, err := rspec.NewItBehavesLike(style)
		if err != nil {
			return nil, err
		}
		return r, nil
	})

	Register(rspec.NamedSubjectName, func(*config.Config) (lint.Rule, error) {
		return rspec.NewNamedSubject(), nil
	})
}
