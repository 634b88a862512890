package shared

import (
	"errors"
	"net/http"

	"idadmin/internal/transport/http/shared/json"
	dErrors "idadmin/pkg/domain-errors"
)

// StatusClientClosedRequest is the nginx convention for requests the client
// abandoned; there is no stdlib constant for it.
const StatusClientClosedRequest = 499

// WriteError centralizes domain error translation to HTTP responses.
// It translates transport-agnostic domain errors into HTTP status codes and
// error responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		status := DomainCodeToHTTPStatus(domainErr.Code)
		response := map[string]string{
			"error": string(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		json.WriteJSON(w, status, response)
		return
	}

	// Fallback for unexpected errors
	json.WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
// Caller faults map to 4xx, store and aggregation faults to 5xx.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeCancelled:
		return StatusClientClosedRequest
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeAggregation, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
