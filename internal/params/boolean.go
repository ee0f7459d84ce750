package params

import (
	"context"
	"fmt"
	"strconv"

	"github.com/narvanalabs/persistent-params/internal/models"
)

// Boolean is a parameter whose value is either true or false.
type Boolean struct {
	base
	defaultValue bool
}

// NewBoolean creates a boolean parameter definition.
func NewBoolean(name string, defaultValue, successfulOnly bool, description string) *Boolean {
	return &Boolean{
		base:         newBase(name, description, successfulOnly),
		defaultValue: defaultValue,
	}
}

// Type returns models.ParameterTypeBoolean.
func (p *Boolean) Type() models.ParameterType { return models.ParameterTypeBoolean }

// DefaultValue returns the configured default.
func (p *Boolean) DefaultValue() bool { return p.defaultValue }

// StaticDefault returns the configured default.
func (p *Boolean) StaticDefault() (models.ParameterValue, bool) {
	return BooleanValue(p.name, p.defaultValue, p.description), true
}

// EffectiveDefault returns the last recorded value, parsed as a boolean.
func (p *Boolean) EffectiveDefault(ctx context.Context, src HistorySource) (models.ParameterValue, bool) {
	return effectiveDefault(ctx, src, p, p.convert)
}

func (p *Boolean) convert(last models.ParameterValue) (models.ParameterValue, bool) {
	switch v := last.Value.(type) {
	case bool:
		return BooleanValue(p.name, v, p.description), true
	case string:
		return BooleanValue(p.name, ParseBool(v), p.description), true
	default:
		return models.ParameterValue{}, false
	}
}

// CreateValue parses raw with ParseBool; it never fails.
func (p *Boolean) CreateValue(raw string) (models.ParameterValue, error) {
	return BooleanValue(p.name, ParseBool(raw), p.description), nil
}

// BindValue accepts a bool payload or its textual form.
func (p *Boolean) BindValue(v models.ParameterValue) (models.ParameterValue, error) {
	switch b := v.Value.(type) {
	case bool:
		return BooleanValue(p.name, b, p.description), nil
	case string:
		return p.CreateValue(b)
	case nil:
		return BooleanValue(p.name, false, p.description), nil
	default:
		return models.ParameterValue{}, fmt.Errorf("%w: parameter %s expects a boolean, got %T", ErrInvalidValue, p.name, v.Value)
	}
}

// CopyWithDefault returns a new definition defaulting to v when v is boolean.
func (p *Boolean) CopyWithDefault(v models.ParameterValue) Definition {
	b, ok := v.BoolValue()
	if !ok {
		return p
	}
	return NewBoolean(p.name, b, p.successfulOnly, p.description)
}

// Spec returns the stored configuration of the definition.
func (p *Boolean) Spec() models.ParameterSpec {
	return models.ParameterSpec{
		Token:          p.token,
		Type:           models.ParameterTypeBoolean,
		Name:           p.name,
		Description:    p.description,
		DefaultValue:   strconv.FormatBool(p.defaultValue),
		SuccessfulOnly: p.successfulOnly,
	}
}

// Descriptor returns the UI metadata of boolean parameters.
func (p *Boolean) Descriptor() Descriptor { return descriptors[models.ParameterTypeBoolean] }
