package params

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/narvanalabs/persistent-params/internal/models"
)

func TestBooleanEffectiveDefault(t *testing.T) {
	p := NewBoolean("DEPLOY_NOW", false, false, "")

	tests := []struct {
		name     string
		recorded models.ParameterValue
		want     bool
	}{
		{"bool value", BooleanValue("DEPLOY_NOW", true, ""), true},
		{"text true", StringValue("DEPLOY_NOW", "TRUE", ""), true},
		{"text other", StringValue("DEPLOY_NOW", "yes", ""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := p.EffectiveDefault(context.Background(), fakeHistory{"DEPLOY_NOW": tt.recorded})
			if !ok {
				t.Fatal("expected a default")
			}
			if v.Value != tt.want || v.Type != models.ParameterTypeBoolean {
				t.Errorf("got %+v, want %v", v, tt.want)
			}
		})
	}
}

func TestBooleanBindValue(t *testing.T) {
	p := NewBoolean("FLAG", true, false, "")

	if v, err := p.BindValue(models.ParameterValue{Value: "True"}); err != nil || v.Value != true {
		t.Errorf("BindValue(\"True\") = %+v, %v", v, err)
	}
	if v, err := p.BindValue(models.ParameterValue{}); err != nil || v.Value != false {
		t.Errorf("BindValue(nil) = %+v, %v", v, err)
	}
	if _, err := p.BindValue(models.ParameterValue{Value: 1.0}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("BindValue(1.0) error = %v, want ErrInvalidValue", err)
	}
}

func TestStringKeepsConfiguredDefault(t *testing.T) {
	p := NewString("VERSION", "  1.0  ", false, "", true)

	if p.DefaultValue() != "  1.0  " || p.Spec().DefaultValue != "  1.0  " {
		t.Errorf("configured default was rewritten: %q", p.DefaultValue())
	}
	if v, _ := p.StaticDefault(); v.Value != "1.0" {
		t.Errorf("StaticDefault = %q, want %q", v.Value, "1.0")
	}

	v, ok := p.EffectiveDefault(context.Background(), fakeHistory{"VERSION": StringValue("VERSION", "  1.2.3  ", "")})
	if !ok || v.Value != "1.2.3" {
		t.Errorf("EffectiveDefault = %+v, want 1.2.3", v)
	}

	if _, err := p.BindValue(models.ParameterValue{Value: true}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("BindValue(bool) error = %v, want ErrInvalidValue", err)
	}
}

func TestTextParameter(t *testing.T) {
	p := NewText("NOTES", "a\nb", false, "", false)

	if p.Type() != models.ParameterTypeText || !p.IsMultiLine() {
		t.Errorf("text parameter type = %s", p.Type())
	}
	v, _ := p.CreateValue(" line\n")
	if v.Type != models.ParameterTypeText || v.Value != " line\n" {
		t.Errorf("CreateValue = %+v", v)
	}

	c := p.CopyWithDefault(StringValue("NOTES", "x", ""))
	if c.Type() != models.ParameterTypeText {
		t.Errorf("copy type = %s, want text", c.Type())
	}
	if d, _ := c.StaticDefault(); d.Value != "x" {
		t.Errorf("copy default = %v", d.Value)
	}
}

func TestChoice(t *testing.T) {
	p := NewChoiceFromText("ENV", "dev\r\nstaging\nprod", false, "")

	if got := p.Choices(); !slices.Equal(got, []string{"dev", "staging", "prod"}) {
		t.Fatalf("choices = %v", got)
	}
	if v, _ := p.StaticDefault(); v.Value != "dev" {
		t.Errorf("StaticDefault = %v, want dev", v.Value)
	}

	if _, err := p.CreateValue("qa"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("CreateValue(qa) error = %v, want ErrInvalidValue", err)
	}
	if v, err := p.CreateValue("prod"); err != nil || v.Value != "prod" {
		t.Errorf("CreateValue(prod) = %+v, %v", v, err)
	}

	v, _ := p.EffectiveDefault(context.Background(), fakeHistory{"ENV": ChoiceValue("ENV", "removed", "")})
	if v.Value != "dev" {
		t.Errorf("stale recorded choice should fall back, got %v", v.Value)
	}

	c := p.CopyWithDefault(ChoiceValue("ENV", "prod", ""))
	if d, _ := c.StaticDefault(); d.Value != "prod" {
		t.Errorf("copy default = %v, want prod", d.Value)
	}
	if got := c.(*Choice).Choices(); !slices.Equal(got, p.Choices()) {
		t.Errorf("copy reordered choices: %v", got)
	}
}

func TestValidateChoices(t *testing.T) {
	tests := map[string]bool{
		"":          false,
		"   \n  ":   false,
		"a":         true,
		"a\nb\r\nc": true,
	}
	for blob, want := range tests {
		if got := ValidateChoices(blob); got != want {
			t.Errorf("ValidateChoices(%q) = %v, want %v", blob, got, want)
		}
	}
}

func TestFromSpec(t *testing.T) {
	token := models.NewToken()

	tests := []struct {
		name    string
		spec    models.ParameterSpec
		wantErr bool
	}{
		{"boolean", models.ParameterSpec{Type: models.ParameterTypeBoolean, Name: "A", DefaultValue: "TRUE"}, false},
		{"bad boolean default", models.ParameterSpec{Type: models.ParameterTypeBoolean, Name: "A", DefaultValue: "yes"}, true},
		{"string", models.ParameterSpec{Type: models.ParameterTypeString, Name: "B", Trim: true}, false},
		{"text", models.ParameterSpec{Type: models.ParameterTypeText, Name: "C"}, false},
		{"choice", models.ParameterSpec{Type: models.ParameterTypeChoice, Name: "D", Choices: []string{"x"}}, false},
		{"choice without choices", models.ParameterSpec{Type: models.ParameterTypeChoice, Name: "D"}, true},
		{"missing name", models.ParameterSpec{Type: models.ParameterTypeString}, true},
		{"unknown type", models.ParameterSpec{Type: "password", Name: "E"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.spec
			spec.Token = token
			def, err := FromSpec(spec)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDefinition) {
					t.Errorf("error = %v, want ErrInvalidDefinition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromSpec: %v", err)
			}
			if def.Token() != token || def.Type() != spec.Type || def.Name() != spec.Name {
				t.Errorf("definition = %+v", def.Spec())
			}
		})
	}

	def, err := FromSpec(models.ParameterSpec{Type: models.ParameterTypeString, Name: "F"})
	if err != nil || def.Token().IsZero() {
		t.Errorf("zero token should be replaced, got %v, %v", def, err)
	}
}

func TestParseType(t *testing.T) {
	tests := map[string]models.ParameterType{
		"boolean":               models.ParameterTypeBoolean,
		"persistentString":      models.ParameterTypeString,
		"PERSISTENTTEXTPARAM":   models.ParameterTypeText,
		"persistentChoiceParam": models.ParameterTypeChoice,
	}
	for in, want := range tests {
		if got, ok := ParseType(in); !ok || got != want {
			t.Errorf("ParseType(%q) = %s, %v", in, got, ok)
		}
	}
	if _, ok := ParseType("password"); ok {
		t.Error("ParseType(password) should fail")
	}
	if len(Descriptors()) != 4 {
		t.Errorf("Descriptors() = %d entries", len(Descriptors()))
	}
}
