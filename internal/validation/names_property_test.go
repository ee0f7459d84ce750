package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// **Feature: persistent-params, Property 13: Job name validity**
// For any sequence of identifier segments joined with "/", the name is valid;
// inserting an empty or relative segment makes it invalid.

func TestJobNameValidity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genSegments := gen.SliceOfN(3, gen.Identifier())

	properties.Property("identifier segments form a valid name", prop.ForAll(
		func(segments []string) bool {
			return ValidateJobName(strings.Join(segments, "/")) == nil
		},
		genSegments,
	))

	properties.Property("bad segments are rejected", prop.ForAll(
		func(segments []string, bad string) bool {
			name := strings.Join(append(segments, bad), "/")
			var verr *ValidationError
			return errors.As(ValidateJobName(name), &verr) && verr.Field == "name"
		},
		genSegments,
		gen.OneConstOf("", ".", "..", " padded", "tab\there"),
	))

	properties.TestingRun(t)
}

func TestValidateParameterName(t *testing.T) {
	tests := map[string]bool{
		"ENV":                    true,
		"deploy target":          true,
		"":                       false,
		"   ":                    false,
		"A=B":                    false,
		"line\nbreak":            false,
		strings.Repeat("x", 257): false,
	}
	for name, valid := range tests {
		if err := ValidateParameterName(name); (err == nil) != valid {
			t.Errorf("ValidateParameterName(%q) = %v, want valid=%v", name, err, valid)
		}
	}
}

func TestIsEnvKey(t *testing.T) {
	for _, key := range []string{"ENV", "_private", "a1"} {
		if !IsEnvKey(key) {
			t.Errorf("IsEnvKey(%q) = false", key)
		}
	}
	for _, key := range []string{"", "1A", "deploy target", "A-B"} {
		if IsEnvKey(key) {
			t.Errorf("IsEnvKey(%q) = true", key)
		}
	}
}
