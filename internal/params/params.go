// Package params implements persistent parameter definitions: build parameters
// whose default value is the one recorded on the owning job's last build.
package params

import (
	"context"
	"errors"

	"github.com/narvanalabs/persistent-params/internal/models"
)

// Common errors returned by parameter definitions.
var (
	// ErrInvalidValue is returned when a submitted value is outside the parameter's domain.
	ErrInvalidValue = errors.New("invalid parameter value")
	// ErrInvalidDefinition is returned when a stored configuration cannot produce a definition.
	ErrInvalidDefinition = errors.New("invalid parameter definition")
)

// HistorySource yields the most recently recorded value for a definition.
// Implementations must not fail: anything that prevents a lookup is reported as not found.
type HistorySource interface {
	LastValue(ctx context.Context, def Definition) (models.ParameterValue, bool)
}

// Definition is a typed template for one build input.
type Definition interface {
	// Token identifies this configured instance. Owner resolution matches on it.
	Token() models.Token
	Name() string
	Description() string
	Type() models.ParameterType
	SuccessfulOnly() bool

	// StaticDefault returns the configured default. ok is false only for a
	// choice parameter without choices.
	StaticDefault() (v models.ParameterValue, ok bool)
	// EffectiveDefault returns the last recorded value when src can find one
	// that converts to this parameter's type, and the static default otherwise.
	EffectiveDefault(ctx context.Context, src HistorySource) (v models.ParameterValue, ok bool)

	// CreateValue builds a value from raw text input.
	CreateValue(raw string) (models.ParameterValue, error)
	// BindValue post-processes a value produced by form binding.
	BindValue(v models.ParameterValue) (models.ParameterValue, error)
	// CopyWithDefault returns a new definition using v as its static default,
	// or the receiver when v is not of a compatible type.
	CopyWithDefault(v models.ParameterValue) Definition

	Spec() models.ParameterSpec
	Descriptor() Descriptor
}

// base holds what every variant shares.
type base struct {
	token          models.Token
	name           string
	description    string
	successfulOnly bool
}

func newBase(name, description string, successfulOnly bool) base {
	return base{
		token:          models.NewToken(),
		name:           name,
		description:    description,
		successfulOnly: successfulOnly,
	}
}

func (b *base) Token() models.Token  { return b.token }
func (b *base) Name() string         { return b.name }
func (b *base) Description() string  { return b.description }
func (b *base) SuccessfulOnly() bool { return b.successfulOnly }

// converter turns a recorded value into a value of the caller's type.
type converter func(last models.ParameterValue) (models.ParameterValue, bool)

// effectiveDefault is the decision shared by all variants: use the converted
// historical value when there is one, otherwise fall back to the static default.
func effectiveDefault(ctx context.Context, src HistorySource, def Definition, convert converter) (models.ParameterValue, bool) {
	static, ok := def.StaticDefault()
	if src == nil {
		return static, ok
	}
	last, found := src.LastValue(ctx, def)
	if !found {
		return static, ok
	}
	v, converted := convert(last)
	if !converted {
		return static, ok
	}
	return v, true
}
