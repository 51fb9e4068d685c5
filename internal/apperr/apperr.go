// Package apperr defines the error taxonomy shared by the service and the
// HTTP layer.
package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/CamberLoid/FHEVault/internal/strategy"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("strategy not found")
	ErrConflict     = errors.New("conflicting strategy state")
)

func Kind(err error) string {
	var verr *strategy.ValidationError
	switch {
	case err == nil:
		return ""

	case errors.As(err, &verr), errors.Is(err, ErrInvalidInput):
		return "invalid_input"

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrConflict), errors.Is(err, strategy.ErrNotCompleted):
		return "conflict"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case "invalid_input":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "timeout":
		return http.StatusGatewayTimeout
	case "canceled":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Details returns the field-level errors carried by err, if any.
func Details(err error) []strategy.FieldError {
	var verr *strategy.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
