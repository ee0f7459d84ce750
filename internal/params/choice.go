package params

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/narvanalabs/persistent-params/internal/models"
)

var choicesDelimiter = regexp.MustCompile(`\r?\n`)

// SplitChoices splits a newline-delimited choices blob into its entries.
func SplitChoices(blob string) []string {
	return choicesDelimiter.Split(blob, -1)
}

// ValidateChoices reports whether blob declares at least one choice.
func ValidateChoices(blob string) bool {
	stripped := strings.TrimSpace(blob)
	return stripped != "" && len(SplitChoices(stripped)) > 0
}

// Choice is a parameter restricted to an ordered list of strings.
//
// A resolved historical value only selects the default; the presented order of
// the choices is never changed.
type Choice struct {
	base
	choices      []string
	defaultValue string
}

// NewChoice creates a choice parameter from a list of choices.
func NewChoice(name string, choices []string, successfulOnly bool, description string) *Choice {
	return &Choice{
		base:    newBase(name, description, successfulOnly),
		choices: slices.Clone(choices),
	}
}

// NewChoiceFromText creates a choice parameter from a newline-delimited blob.
func NewChoiceFromText(name, choices string, successfulOnly bool, description string) *Choice {
	return NewChoice(name, SplitChoices(choices), successfulOnly, description)
}

// Type returns models.ParameterTypeChoice.
func (p *Choice) Type() models.ParameterType { return models.ParameterTypeChoice }

// Choices returns a copy of the declared choices in order.
func (p *Choice) Choices() []string { return slices.Clone(p.choices) }

// IsValid reports whether s is one of the declared choices.
func (p *Choice) IsValid(s string) bool { return slices.Contains(p.choices, s) }

// StaticDefault returns the configured default when it is a declared choice,
// and the first choice otherwise.
func (p *Choice) StaticDefault() (models.ParameterValue, bool) {
	if p.defaultValue != "" && p.IsValid(p.defaultValue) {
		return ChoiceValue(p.name, p.defaultValue, p.description), true
	}
	if len(p.choices) == 0 {
		return models.ParameterValue{}, false
	}
	return ChoiceValue(p.name, p.choices[0], p.description), true
}

// EffectiveDefault returns the last recorded value when it is still a declared choice.
func (p *Choice) EffectiveDefault(ctx context.Context, src HistorySource) (models.ParameterValue, bool) {
	return effectiveDefault(ctx, src, p, p.convert)
}

func (p *Choice) convert(last models.ParameterValue) (models.ParameterValue, bool) {
	s, ok := last.StringValue()
	if !ok || !p.IsValid(s) {
		return models.ParameterValue{}, false
	}
	return ChoiceValue(p.name, s, p.description), true
}

func (p *Choice) check(s string) (models.ParameterValue, error) {
	if !p.IsValid(s) {
		return models.ParameterValue{}, fmt.Errorf("%w: illegal choice for parameter %s: %s", ErrInvalidValue, p.name, s)
	}
	return ChoiceValue(p.name, s, p.description), nil
}

// CreateValue fails with ErrInvalidValue when raw is not a declared choice.
func (p *Choice) CreateValue(raw string) (models.ParameterValue, error) {
	return p.check(raw)
}

// BindValue fails with ErrInvalidValue when the payload is not a declared choice.
func (p *Choice) BindValue(v models.ParameterValue) (models.ParameterValue, error) {
	s, ok := v.StringValue()
	if !ok {
		return models.ParameterValue{}, fmt.Errorf("%w: parameter %s expects a string, got %T", ErrInvalidValue, p.name, v.Value)
	}
	return p.check(s)
}

// CopyWithDefault returns a new definition with the same choices defaulting to v.
func (p *Choice) CopyWithDefault(v models.ParameterValue) Definition {
	s, ok := v.StringValue()
	if !ok {
		return p
	}
	c := NewChoice(p.name, p.choices, p.successfulOnly, p.description)
	c.defaultValue = s
	return c
}

// Spec returns the stored configuration of the definition.
func (p *Choice) Spec() models.ParameterSpec {
	return models.ParameterSpec{
		Token:          p.token,
		Type:           models.ParameterTypeChoice,
		Name:           p.name,
		Description:    p.description,
		DefaultValue:   p.defaultValue,
		SuccessfulOnly: p.successfulOnly,
		Choices:        slices.Clone(p.choices),
	}
}

// Descriptor returns the UI metadata of choice parameters.
func (p *Choice) Descriptor() Descriptor { return descriptors[models.ParameterTypeChoice] }
