package params

import (
	"fmt"
	"strings"

	"github.com/narvanalabs/persistent-params/internal/models"
)

// Descriptor carries the UI registration metadata of a parameter type.
type Descriptor struct {
	Type        models.ParameterType `json:"type"`
	DisplayName string               `json:"display_name"`
	HelpFile    string               `json:"help_file"`
	Symbols     []string             `json:"symbols"`
}

var descriptors = map[models.ParameterType]Descriptor{
	models.ParameterTypeBoolean: {
		Type:        models.ParameterTypeBoolean,
		DisplayName: "Persistent Boolean Parameter",
		HelpFile:    "/help/parameter/boolean.html",
		Symbols:     []string{"persistentBoolean"},
	},
	models.ParameterTypeString: {
		Type:        models.ParameterTypeString,
		DisplayName: "Persistent String Parameter",
		HelpFile:    "/help/parameter/string.html",
		Symbols:     []string{"persistentString", "persistentStringParam"},
	},
	models.ParameterTypeText: {
		Type:        models.ParameterTypeText,
		DisplayName: "Persistent Text Parameter",
		HelpFile:    "/help/parameter/text.html",
		Symbols:     []string{"persistentText", "persistentTextParam"},
	},
	models.ParameterTypeChoice: {
		Type:        models.ParameterTypeChoice,
		DisplayName: "Persistent Choice Parameter",
		HelpFile:    "/help/parameter/choice.html",
		Symbols:     []string{"persistentChoice", "persistentChoiceParam"},
	},
}

// Descriptors returns the metadata of every parameter type in a stable order.
func Descriptors() []Descriptor {
	return []Descriptor{
		descriptors[models.ParameterTypeBoolean],
		descriptors[models.ParameterTypeString],
		descriptors[models.ParameterTypeText],
		descriptors[models.ParameterTypeChoice],
	}
}

// ParseType resolves a type name or one of its symbols, case-insensitively.
func ParseType(s string) (models.ParameterType, bool) {
	for t, d := range descriptors {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
		for _, sym := range d.Symbols {
			if strings.EqualFold(s, sym) {
				return t, true
			}
		}
	}
	return "", false
}

// FromSpec builds a definition from its stored configuration. The spec's token is
// kept; a zero token is replaced by a fresh one.
func FromSpec(spec models.ParameterSpec) (Definition, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}

	var def Definition
	switch spec.Type {
	case models.ParameterTypeBoolean:
		var b bool
		switch strings.ToLower(spec.DefaultValue) {
		case "", "false":
		case "true":
			b = true
		default:
			return nil, fmt.Errorf("%w: parameter %s: boolean default must be true or false, got %q", ErrInvalidDefinition, spec.Name, spec.DefaultValue)
		}
		p := NewBoolean(spec.Name, b, spec.SuccessfulOnly, spec.Description)
		setToken(&p.base, spec.Token)
		def = p
	case models.ParameterTypeString:
		p := NewString(spec.Name, spec.DefaultValue, spec.SuccessfulOnly, spec.Description, spec.Trim)
		setToken(&p.base, spec.Token)
		def = p
	case models.ParameterTypeText:
		p := NewText(spec.Name, spec.DefaultValue, spec.SuccessfulOnly, spec.Description, spec.Trim)
		setToken(&p.base, spec.Token)
		def = p
	case models.ParameterTypeChoice:
		if len(spec.Choices) == 0 {
			return nil, fmt.Errorf("%w: parameter %s requires choices", ErrInvalidDefinition, spec.Name)
		}
		p := NewChoice(spec.Name, spec.Choices, spec.SuccessfulOnly, spec.Description)
		p.defaultValue = spec.DefaultValue
		setToken(&p.base, spec.Token)
		def = p
	default:
		return nil, fmt.Errorf("%w: parameter %s: unknown type %q", ErrInvalidDefinition, spec.Name, spec.Type)
	}
	return def, nil
}

// FromJob builds every definition attached to job, skipping specs that no longer
// produce a valid definition.
func FromJob(job *models.Job) ([]Definition, []error) {
	var (
		defs []Definition
		errs []error
	)
	for _, spec := range job.ParameterSpecs() {
		def, err := FromSpec(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

func setToken(b *base, t models.Token) {
	if !t.IsZero() {
		b.token = t
	}
}
