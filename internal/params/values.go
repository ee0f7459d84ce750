package params

import (
	"strings"

	"github.com/narvanalabs/persistent-params/internal/models"
)

// BooleanValue returns a boolean parameter value.
func BooleanValue(name string, value bool, description string) models.ParameterValue {
	return models.ParameterValue{Name: name, Type: models.ParameterTypeBoolean, Value: value, Description: description}
}

// StringValue returns a single-line string parameter value.
func StringValue(name, value, description string) models.ParameterValue {
	return models.ParameterValue{Name: name, Type: models.ParameterTypeString, Value: value, Description: description}
}

// TextValue returns a multi-line string parameter value.
func TextValue(name, value, description string) models.ParameterValue {
	return models.ParameterValue{Name: name, Type: models.ParameterTypeText, Value: value, Description: description}
}

// ChoiceValue returns a choice parameter value.
func ChoiceValue(name, value, description string) models.ParameterValue {
	return models.ParameterValue{Name: name, Type: models.ParameterTypeChoice, Value: value, Description: description}
}

// ParseBool parses text the way the build server's boolean parameters do:
// "true" in any letter case is true, everything else is false.
func ParseBool(s string) bool {
	return strings.EqualFold(s, "true")
}
