package apierrors

import "errors"

// Error codes returned to API clients
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Sentinel errors for the failure modes of the bridge and its collaborators.
// Call sites wrap these with fmt.Errorf("...: %w", ...) so errors.Is works
// across package boundaries.
var (
	// ErrExternalService indicates a non-success response or malformed body
	// from an external endpoint (knowledge-base query, call creation).
	ErrExternalService = errors.New("external service error")

	// ErrExtraction indicates the structured-extraction completion returned
	// no content or content that does not match the required schema.
	ErrExtraction = errors.New("extraction error")
)

// APIError carries a status code and sanitized message for the HTTP surface
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// MapError converts an internal error into an APIError suitable for a client
// response. Unknown errors map to a generic 500.
func MapError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, ErrExternalService):
		return &APIError{StatusCode: 502, Code: CodeExternalService, Message: "An upstream service failed. Please try again later."}
	default:
		return &APIError{StatusCode: 500, Code: CodeInternalError, Message: "An internal error occurred. Please try again later."}
	}
}
