package models

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// ParameterType identifies a parameter definition variant.
type ParameterType string

const (
	ParameterTypeBoolean ParameterType = "boolean"
	ParameterTypeString  ParameterType = "string"
	ParameterTypeText    ParameterType = "text"
	ParameterTypeChoice  ParameterType = "choice"
)

// Token identifies one configured parameter definition instance.
// Two definitions with the same name and type but different tokens are distinct.
type Token uuid.UUID

// NewToken returns a fresh random token.
func NewToken() Token {
	return Token(uuid.New())
}

// ParseToken parses the textual form of a token.
func ParseToken(s string) (Token, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Token{}, fmt.Errorf("parsing token %q: %w", s, err)
	}
	return Token(id), nil
}

// IsZero reports whether the token was never assigned.
func (t Token) IsZero() bool {
	return uuid.UUID(t) == uuid.Nil
}

func (t Token) String() string {
	return uuid.UUID(t).String()
}

// MarshalText implements encoding.TextMarshaler.
func (t Token) MarshalText() ([]byte, error) {
	return uuid.UUID(t).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Token) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(t).UnmarshalText(data)
}

// ParameterSpec is the stored configuration of one parameter definition.
type ParameterSpec struct {
	Token          Token         `json:"token"`
	Type           ParameterType `json:"type"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	DefaultValue   string        `json:"default_value,omitempty"`
	SuccessfulOnly bool          `json:"successful_only"`
	Trim           bool          `json:"trim,omitempty"`
	Choices        []string      `json:"choices,omitempty"`
}

// Clone returns a copy of the spec that shares no slices with the original.
func (s ParameterSpec) Clone() ParameterSpec {
	s.Choices = slices.Clone(s.Choices)
	return s
}

// Equal reports whether s and o hold the same configuration. Nil and empty
// choice lists are equal.
func (s ParameterSpec) Equal(o ParameterSpec) bool {
	return s.Token == o.Token &&
		s.Type == o.Type &&
		s.Name == o.Name &&
		s.Description == o.Description &&
		s.DefaultValue == o.DefaultValue &&
		s.SuccessfulOnly == o.SuccessfulOnly &&
		s.Trim == o.Trim &&
		slices.Equal(s.Choices, o.Choices)
}

// ParameterValue is a concrete value bound to a parameter on one build.
// Value holds a bool for boolean parameters and a string otherwise.
type ParameterValue struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type"`
	Value       any           `json:"value"`
	Description string        `json:"description,omitempty"`
}

// StringValue returns the payload when it is a string.
func (v ParameterValue) StringValue() (string, bool) {
	s, ok := v.Value.(string)
	return s, ok
}

// BoolValue returns the payload when it is a bool.
func (v ParameterValue) BoolValue() (bool, bool) {
	b, ok := v.Value.(bool)
	return b, ok
}
