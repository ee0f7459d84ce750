// Package handlers provides HTTP request handlers for the API.
package handlers

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/persistent-params/internal/api/errors"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	apierrors.WriteJSON(w, status, data)
}

// WriteError writes err as a structured error response carrying the request ID.
// Errors that map to internal errors are logged.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr := apierrors.FromError(err)
	requestID := chimiddleware.GetReqID(r.Context())
	if apiErr.Code == apierrors.CodeInternalError {
		logger.Error("request failed", "error", err, "path", r.URL.Path, "request_id", requestID)
	}
	apierrors.WriteErrorWithRequestID(w, apiErr, requestID)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	apierrors.WriteErrorWithRequestID(w, apierrors.NewInvalidRequestError(message), chimiddleware.GetReqID(r.Context()))
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	apierrors.WriteErrorWithRequestID(w, apierrors.NewNotFoundError(message), chimiddleware.GetReqID(r.Context()))
}

// WriteMethodNotAllowed writes a 405 response listing the allowed methods.
func WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	WriteJSON(w, http.StatusMethodNotAllowed, &apierrors.APIError{
		Code:      apierrors.CodeInvalidRequest,
		Message:   "method " + r.Method + " not allowed",
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}
