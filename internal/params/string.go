package params

import (
	"context"
	"fmt"
	"strings"

	"github.com/narvanalabs/persistent-params/internal/models"
)

// StringParameter is a free-form string parameter. The same type backs both
// single-line string parameters and multi-line text parameters; only the
// rendering hint and the type of the values it creates differ.
type StringParameter struct {
	base
	defaultValue string
	trim         bool
	multiLine    bool
}

// NewString creates a single-line string parameter definition.
// When trim is set, surrounding whitespace is removed from every value it produces.
func NewString(name, defaultValue string, successfulOnly bool, description string, trim bool) *StringParameter {
	return &StringParameter{
		base:         newBase(name, description, successfulOnly),
		defaultValue: defaultValue,
		trim:         trim,
	}
}

// NewText creates a multi-line text parameter definition.
func NewText(name, defaultValue string, successfulOnly bool, description string, trim bool) *StringParameter {
	p := NewString(name, defaultValue, successfulOnly, description, trim)
	p.multiLine = true
	return p
}

// Type returns models.ParameterTypeText for multi-line parameters and models.ParameterTypeString otherwise.
func (p *StringParameter) Type() models.ParameterType {
	if p.multiLine {
		return models.ParameterTypeText
	}
	return models.ParameterTypeString
}

// DefaultValue returns the configured default exactly as configured.
func (p *StringParameter) DefaultValue() string { return p.defaultValue }

// IsTrim reports whether values are trimmed. The configured default is never rewritten.
func (p *StringParameter) IsTrim() bool { return p.trim }

// IsMultiLine reports whether the parameter renders as a text area.
func (p *StringParameter) IsMultiLine() bool { return p.multiLine }

func (p *StringParameter) value(s string) models.ParameterValue {
	if p.trim {
		s = strings.TrimSpace(s)
	}
	if p.multiLine {
		return TextValue(p.name, s, p.description)
	}
	return StringValue(p.name, s, p.description)
}

// StaticDefault returns the configured default, trimmed when trimming is enabled.
func (p *StringParameter) StaticDefault() (models.ParameterValue, bool) {
	return p.value(p.defaultValue), true
}

// EffectiveDefault returns the last recorded string value.
func (p *StringParameter) EffectiveDefault(ctx context.Context, src HistorySource) (models.ParameterValue, bool) {
	return effectiveDefault(ctx, src, p, p.convert)
}

func (p *StringParameter) convert(last models.ParameterValue) (models.ParameterValue, bool) {
	s, ok := last.StringValue()
	if !ok {
		return models.ParameterValue{}, false
	}
	return p.value(s), true
}

// CreateValue wraps raw, trimming it when configured.
func (p *StringParameter) CreateValue(raw string) (models.ParameterValue, error) {
	return p.value(raw), nil
}

// BindValue requires a string payload.
func (p *StringParameter) BindValue(v models.ParameterValue) (models.ParameterValue, error) {
	switch s := v.Value.(type) {
	case string:
		return p.value(s), nil
	case nil:
		return p.value(""), nil
	default:
		return models.ParameterValue{}, fmt.Errorf("%w: parameter %s expects a string, got %T", ErrInvalidValue, p.name, v.Value)
	}
}

// CopyWithDefault returns a new definition defaulting to v when v carries a string.
func (p *StringParameter) CopyWithDefault(v models.ParameterValue) Definition {
	s, ok := v.StringValue()
	if !ok {
		return p
	}
	c := NewString(p.name, s, p.successfulOnly, p.description, p.trim)
	c.multiLine = p.multiLine
	return c
}

// Spec returns the stored configuration of the definition.
func (p *StringParameter) Spec() models.ParameterSpec {
	return models.ParameterSpec{
		Token:          p.token,
		Type:           p.Type(),
		Name:           p.name,
		Description:    p.description,
		DefaultValue:   p.defaultValue,
		SuccessfulOnly: p.successfulOnly,
		Trim:           p.trim,
	}
}

// Descriptor returns the UI metadata for string or text parameters.
func (p *StringParameter) Descriptor() Descriptor { return descriptors[p.Type()] }
