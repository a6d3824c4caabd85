package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-sprint/internal/api/shared"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/store"
)

// Codes used for failures that carry no domain code.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL"
)

const genericMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps an error to its HTTP status using the domain
// error kind. Unknown errors are internal.
func MapErrorToStatusCode(err error) int {
	status, _, _ := classify(err)
	return status
}

// classify returns the status, machine code and client-safe message for err.
func classify(err error) (int, string, string) {
	var de *domain.Error
	if errors.As(err, &de) {
		return statusForKind(de.Kind()), string(de.Code), de.Message
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest, CodeBadRequest, SanitizeValidationError(err)
	}

	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, CodeNotFound, "Resource not found"
	}

	return http.StatusInternalServerError, CodeInternal, genericMessage
}

func statusForKind(k domain.ErrorKind) int {
	switch k {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindState:
		return http.StatusConflict
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleAPIError writes the response for err. Internal details never reach
// the client; they are logged in redacted form.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	shared.RespondWithErrorAndLog(w, r, status, code, message, err)
}

// SanitizeValidationError turns validator failures into a message that
// names the first offending field and rule without echoing its value.
func SanitizeValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "Validation error"
	}
	fe := ve[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "invalid id"
	default:
		return "validation failed"
	}
}

// badRequest writes a 400 for a request that could not be decoded.
func badRequest(w http.ResponseWriter, r *http.Request, message string, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, CodeBadRequest, message, err)
}
