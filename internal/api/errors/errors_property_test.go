package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/persistent-params/internal/auth"
	"github.com/narvanalabs/persistent-params/internal/params"
	"github.com/narvanalabs/persistent-params/internal/store"
)

var genErrorCode = gen.OneConstOf(
	CodeInvalidRequest,
	CodeNotFound,
	CodeUnauthorized,
	CodeForbidden,
	CodeInternalError,
	CodeConflict,
)

var genNonEmptyString = gen.AlphaString().SuchThat(func(s string) bool {
	return len(s) > 0
})

// **Feature: persistent-params, Property 8: Structured error response format**
// *For any* API error response, the body contains code, message and request_id
// and the status matches the code.
func TestPropertyStructuredErrorResponseFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	genRequestID := gen.RegexMatch("[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}")

	properties.Property("error response round-trips its fields", prop.ForAll(
		func(code, message, requestID string) bool {
			rr := httptest.NewRecorder()
			WriteErrorWithRequestID(rr, New(code, message), requestID)

			if rr.Header().Get("Content-Type") != "application/json" {
				t.Logf("Content-Type = %s", rr.Header().Get("Content-Type"))
				return false
			}
			if rr.Code != New(code, message).HTTPStatusCode() {
				t.Logf("status = %d for %s", rr.Code, code)
				return false
			}

			var response map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Logf("Failed to decode response: %v", err)
				return false
			}
			return response["code"] == code &&
				response["message"] == message &&
				response["request_id"] == requestID
		},
		genErrorCode,
		genNonEmptyString,
		genRequestID,
	))

	properties.TestingRun(t)
}

// **Feature: persistent-params, Property 9: Field error details**
// *For any* set of field errors, the response details list every field with its message.
func TestPropertyFieldErrorDetails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	genFieldError := gopter.CombineGens(
		gen.RegexMatch("[A-Z][A-Z0-9_]{0,20}"),
		genNonEmptyString,
	).Map(func(values []interface{}) FieldError {
		return FieldError{Field: values[0].(string), Message: values[1].(string)}
	})

	properties.Property("field errors are listed in details", prop.ForAll(
		func(fieldErrors []FieldError) bool {
			if len(fieldErrors) == 0 {
				return true
			}
			var errs FieldErrors
			for _, fe := range fieldErrors {
				errs.Add(fe.Field, fe.Message)
			}

			rr := httptest.NewRecorder()
			WriteError(rr, errs.ToAPIError())

			var response struct {
				Code    string `json:"code"`
				Details struct {
					Fields []FieldError `json:"fields"`
				} `json:"details"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Logf("Failed to decode response: %v", err)
				return false
			}
			if rr.Code != http.StatusBadRequest || response.Code != CodeInvalidRequest {
				t.Logf("status %d code %s", rr.Code, response.Code)
				return false
			}
			if len(response.Details.Fields) != len(fieldErrors) {
				return false
			}
			for i := range fieldErrors {
				if response.Details.Fields[i] != fieldErrors[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, genFieldError),
	))

	properties.TestingRun(t)
}

// **Feature: persistent-params, Property 10: Error log completeness**
// *For any* logged error, the entry carries correlation id, code, message and stack trace.
func TestPropertyErrorLogCompleteness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("error log entry contains all required fields", prop.ForAll(
		func(correlationID, errorCode, message string) bool {
			entry := NewErrorLogEntry(correlationID, errorCode, message)
			attrs := entry.ToSlogAttrs()
			return entry.CorrelationID == correlationID &&
				entry.ErrorCode == errorCode &&
				entry.Message == message &&
				entry.StackTrace != "" &&
				len(attrs) == 8
		},
		gen.Identifier(),
		genErrorCode,
		genNonEmptyString,
	))

	properties.TestingRun(t)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid value", fmt.Errorf("binding parameter ENV: %w", params.ErrInvalidValue), http.StatusBadRequest},
		{"invalid definition", fmt.Errorf("job deploy: %w", params.ErrInvalidDefinition), http.StatusBadRequest},
		{"not found", fmt.Errorf("querying job: %w", store.ErrNotFound), http.StatusNotFound},
		{"duplicate", store.ErrDuplicateName, http.StatusConflict},
		{"duplicate token", fmt.Errorf("parameter VERSION: %w", store.ErrDuplicateToken), http.StatusConflict},
		{"permission", auth.ErrPermissionDenied, http.StatusForbidden},
		{"api error passthrough", NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got.HTTPStatusCode() != tt.want {
				t.Errorf("FromError(%v) status = %d, want %d", tt.err, got.HTTPStatusCode(), tt.want)
			}
		})
	}

	if msg := FromError(fmt.Errorf("secret dsn")).Message; msg == "secret dsn" {
		t.Error("internal error text leaked into response")
	}
}
