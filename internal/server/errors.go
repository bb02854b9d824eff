package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/cv-matcher/internal/db"
	"github.com/jonathan/cv-matcher/internal/docx"
	"github.com/jonathan/cv-matcher/internal/matching"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, matching.ErrTooManyFiles),
		errors.Is(err, matching.ErrNoFiles),
		errors.Is(err, docx.ErrNotDocx):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// validationError turns validator output into an *ErrValidation for the first
// failing field.
func validationError(field string, err error) *ErrValidation {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return &ErrValidation{Field: field, Message: describeTag(ve[0])}
	}
	return &ErrValidation{Field: field, Message: "invalid value"}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		return "must have at least " + fe.Param() + unit(fe)
	case "max":
		return "must have at most " + fe.Param() + unit(fe)
	default:
		return "failed " + fe.Tag()
	}
}

func unit(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		return " characters"
	}
	return ""
}
