package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/CamberLoid/FHEVault/internal/apperr"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/stretchr/testify/assert"
)

func TestKindAndStatus(t *testing.T) {
	validation := strategy.Input{RiskLevel: 11, Allocation: 1, Timeframe: 1}.Validate()

	tests := []struct {
		name   string
		err    error
		kind   string
		status int
	}{
		{"nil", nil, "", http.StatusOK},
		{"validation", validation, "invalid_input", http.StatusBadRequest},
		{"wrapped invalid", fmt.Errorf("decode: %w", apperr.ErrInvalidInput), "invalid_input", http.StatusBadRequest},
		{"not found", fmt.Errorf("get: %w", apperr.ErrNotFound), "not_found", http.StatusNotFound},
		{"conflict", strategy.ErrNotCompleted, "conflict", http.StatusConflict},
		{"timeout", context.DeadlineExceeded, "timeout", http.StatusGatewayTimeout},
		{"canceled", context.Canceled, "canceled", http.StatusBadRequest},
		{"other", errors.New("disk on fire"), "internal", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, apperr.Kind(tt.err))
			assert.Equal(t, tt.status, apperr.HTTPStatus(tt.err))
		})
	}
}

func TestDetails(t *testing.T) {
	err := strategy.Input{RiskLevel: 0, Allocation: 0, Timeframe: 0}.Validate()
	details := apperr.Details(fmt.Errorf("submit: %w", err))
	assert.Len(t, details, 2)

	assert.Nil(t, apperr.Details(errors.New("x")))
}
