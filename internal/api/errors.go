package api

import (
	"errors"
	"net/http"

	"sqlregress/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		// GenerationError, ExecutionError, ReportError and everything else.
		return http.StatusInternalServerError
	}
}
