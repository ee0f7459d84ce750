package params

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/persistent-params/internal/models"
)

// fakeHistory returns a fixed recorded value per parameter name.
type fakeHistory map[string]models.ParameterValue

func (f fakeHistory) LastValue(_ context.Context, def Definition) (models.ParameterValue, bool) {
	v, ok := f[def.Name()]
	return v, ok
}

// **Feature: persistent-params, Property 3: Effective default falls back to static**
// For any definition, an effective default computed without a recorded value
// equals the static default.

func genDefinition() gopter.Gen {
	return gen.OneGenOf(
		gen.Bool().Map(func(b bool) Definition {
			return NewBoolean("FLAG", b, false, "")
		}),
		gen.AlphaString().Map(func(s string) Definition {
			return NewString("NAME", s, false, "", false)
		}),
		gen.AlphaString().Map(func(s string) Definition {
			return NewText("NOTES", s, true, "", true)
		}),
		gen.SliceOfN(3, gen.Identifier()).Map(func(choices []string) Definition {
			return NewChoice("ENV", choices, false, "")
		}),
	)
}

func TestEffectiveDefaultFallsBackToStatic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("no history yields the static default", prop.ForAll(
		func(def Definition) bool {
			static, staticOK := def.StaticDefault()

			nilSource, nilOK := def.EffectiveDefault(context.Background(), nil)
			empty, emptyOK := def.EffectiveDefault(context.Background(), fakeHistory{})

			return staticOK == nilOK && staticOK == emptyOK &&
				static.Value == nilSource.Value && static.Value == empty.Value
		},
		genDefinition(),
	))

	properties.Property("a value of the wrong shape yields the static default", prop.ForAll(
		func(def Definition) bool {
			static, _ := def.StaticDefault()
			src := fakeHistory{def.Name(): {Name: def.Name(), Value: 42}}
			got, _ := def.EffectiveDefault(context.Background(), src)
			return got.Value == static.Value
		},
		genDefinition(),
	))

	properties.TestingRun(t)
}

// **Feature: persistent-params, Property 4: Choice defaults stay within the choices**
// For any choice definition and any recorded value, the effective default is a
// declared choice and the choice order is unchanged.

func TestChoiceDefaultWithinChoices(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("effective default is a declared choice", prop.ForAll(
		func(choices []string, recorded string) bool {
			p := NewChoice("ENV", choices, false, "")
			before := p.Choices()

			src := fakeHistory{"ENV": ChoiceValue("ENV", recorded, "")}
			v, ok := p.EffectiveDefault(context.Background(), src)
			if !ok {
				return false
			}
			s, _ := v.StringValue()
			if !slices.Contains(choices, s) {
				return false
			}
			if slices.Contains(choices, recorded) && s != recorded {
				return false
			}
			return slices.Equal(before, p.Choices())
		},
		gen.SliceOfN(4, gen.Identifier()),
		gen.OneGenOf(gen.Identifier(), gen.Const("")),
	))

	properties.TestingRun(t)
}

// **Feature: persistent-params, Property 5: Trimmed values carry no surrounding whitespace**
// For any string and a trimming definition, every produced value is trimmed and
// trimming twice changes nothing.

func TestTrimIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genPadded := gen.AlphaString().Map(func(s string) string {
		return " \t" + s + "\n "
	})

	properties.Property("trimmed values are idempotent", prop.ForAll(
		func(raw string) bool {
			p := NewString("VERSION", raw, false, "", true)

			created, err := p.CreateValue(raw)
			if err != nil {
				return false
			}
			s, _ := created.StringValue()
			if s != strings.TrimSpace(raw) {
				return false
			}

			again, _ := p.CreateValue(s)
			s2, _ := again.StringValue()

			static, _ := p.StaticDefault()
			return s2 == s && static.Value == s && p.DefaultValue() == raw
		},
		genPadded,
	))

	properties.TestingRun(t)
}

// **Feature: persistent-params, Property 6: Boolean text parsing**
// For any string, ParseBool is true exactly when the string is "true" ignoring case.

func TestParseBool(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genCased := gen.SliceOfN(4, gen.Bool()).Map(func(upper []bool) string {
		var b strings.Builder
		for i, c := range "true" {
			if upper[i] {
				b.WriteString(strings.ToUpper(string(c)))
			} else {
				b.WriteRune(c)
			}
		}
		return b.String()
	})

	properties.Property("any casing of true parses as true", prop.ForAll(
		func(s string) bool { return ParseBool(s) },
		genCased,
	))

	properties.Property("other strings parse as false", prop.ForAll(
		func(s string) bool { return !ParseBool(s) },
		gen.AnyString().SuchThat(func(s string) bool { return !strings.EqualFold(s, "true") }),
	))

	properties.TestingRun(t)
}
