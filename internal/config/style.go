package config

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidStyle reports an enforced style that is not one of the
// supported pair.
var ErrInvalidStyle = errors.New("invalid style")

// Style selects one of the two alternatives of a StyleConfig.
type Style int

const (
	// StyleA enforces Alternatives[0].
	StyleA Style = iota
	// StyleB enforces Alternatives[1].
	StyleB
)

// StyleConfig is the resolved, read-only form of a StyleRuleConfig.
type StyleConfig struct {
	Enforced     Style
	Alternatives [2]string
}

// Preferred returns the enforced method name.
func (s StyleConfig) Preferred() string {
	return s.Alternatives[s.Enforced]
}

// Discouraged returns the alternative that is flagged.
func (s StyleConfig) Discouraged() string {
	return s.Alternatives[1-s.Enforced]
}

// Resolve checks the settings and returns the StyleConfig they describe.
func (c StyleRuleConfig) Resolve() (StyleConfig, error) {
	if len(c.SupportedStyles) != 2 {
		return StyleConfig{}, fmt.Errorf("%w: supported_styles must name exactly two styles, got %d",
			ErrInvalidStyle, len(c.SupportedStyles))
	}
	if c.SupportedStyles[0] == c.SupportedStyles[1] {
		return StyleConfig{}, fmt.Errorf("%w: supported_styles lists %q twice",
			ErrInvalidStyle, c.SupportedStyles[0])
	}

	i := slices.Index(c.SupportedStyles, c.EnforcedStyle)
	if i < 0 {
		return StyleConfig{}, fmt.Errorf("%w: enforced_style %q is not one of %q",
			ErrInvalidStyle, c.EnforcedStyle, c.SupportedStyles)
	}
	return StyleConfig{
		Enforced:     Style(i),
		Alternatives: [2]string{c.SupportedStyles[0], c.SupportedStyles[1]},
	}, nil
}
