// Package validation checks the names jobs and parameters are configured with.
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// envKeyRegex matches names usable as environment variable keys.
var envKeyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const (
	// MaxNameSegmentLength bounds each "/"-separated segment of a job name.
	MaxNameSegmentLength = 255
	// MaxParameterNameLength bounds parameter names.
	MaxParameterNameLength = 256
)

// ValidationError describes why a configured name was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateJobName checks a job's full name. Folders are separated by "/";
// every segment must be non-empty, printable and not a relative path element.
func ValidateJobName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "job name is required"}
	}
	for _, segment := range strings.Split(name, "/") {
		switch {
		case segment == "":
			return &ValidationError{Field: "name", Message: "job name must not contain empty segments"}
		case segment == "." || segment == "..":
			return &ValidationError{Field: "name", Message: "job name must not contain . or .. segments"}
		case len(segment) > MaxNameSegmentLength:
			return &ValidationError{Field: "name", Message: "job name segments must be 255 characters or less"}
		case strings.TrimSpace(segment) != segment:
			return &ValidationError{Field: "name", Message: "job name segments must not start or end with whitespace"}
		case hasControl(segment):
			return &ValidationError{Field: "name", Message: "job name must not contain control characters"}
		}
	}
	return nil
}

// ValidateParameterName checks a parameter name. Names are bound into the
// build environment, so "=" is rejected along with control characters.
func ValidateParameterName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "parameter", Message: "parameter name is required"}
	}
	if len(name) > MaxParameterNameLength {
		return &ValidationError{Field: "parameter", Message: "parameter name must be 256 characters or less"}
	}
	if strings.Contains(name, "=") {
		return &ValidationError{Field: "parameter", Message: "parameter name must not contain ="}
	}
	if hasControl(name) {
		return &ValidationError{Field: "parameter", Message: "parameter name must not contain control characters"}
	}
	return nil
}

// IsEnvKey reports whether name can appear as a key of a build's environment.
func IsEnvKey(name string) bool {
	return envKeyRegex.MatchString(name)
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
