// Package config defines the configuration types and defaults for speclint.
package config

import (
	"errors"
	"fmt"
	"slices"
)

// Style names accepted by RSpec/ItBehavesLike.
const (
	StyleItBehavesLike      = "it_behaves_like"
	StyleItShouldBehaveLike = "it_should_behave_like"
)

// Output formats and colour modes.
const (
	FormatText = "text"
	FormatJSON = "json"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration.
type Config struct {
	Rules  RulesConfig  `yaml:"rules" toml:"rules"`
	Output OutputConfig `yaml:"output" toml:"output"`
}

// RulesConfig holds per-rule settings, keyed like the rule names.
type RulesConfig struct {
	ItBehavesLike StyleRuleConfig `yaml:"it_behaves_like" toml:"it_behaves_like"`
}

// StyleRuleConfig configures a rule that enforces one of two alternative
// method names.
type StyleRuleConfig struct {
	EnforcedStyle   string   `yaml:"enforced_style" toml:"enforced_style"`
	SupportedStyles []string `yaml:"supported_styles" toml:"supported_styles"`
}

// OutputConfig controls how diagnostics are rendered.
type OutputConfig struct {
	Format string `yaml:"format" toml:"format"`
	Color  string `yaml:"color" toml:"color"`
}

// DefaultConfig returns a Config with the RuboCop RSpec defaults.
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			ItBehavesLike: StyleRuleConfig{
				EnforcedStyle:   StyleItBehavesLike,
				SupportedStyles: []string{StyleItBehavesLike, StyleItShouldBehaveLike},
			},
		},
		Output: OutputConfig{
			Format: FormatText,
			Color:  ColorAuto,
		},
	}
}

// Validate checks the output settings. Rule settings are checked when the
// rule is built, so that one bad rule does not stop the others.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{FormatText, FormatJSON}, c.Output.Format) {
		errs = append(errs, fmt.Errorf("%w: output.format %q must be %q or %q",
			ErrInvalidConfig, c.Output.Format, FormatText, FormatJSON))
	}
	if !slices.Contains([]string{ColorAuto, ColorAlways, ColorNever}, c.Output.Color) {
		errs = append(errs, fmt.Errorf("%w: output.color %q must be %q, %q or %q",
			ErrInvalidConfig, c.Output.Color, ColorAuto, ColorAlways, ColorNever))
	}
	return errors.Join(errs...)
}
