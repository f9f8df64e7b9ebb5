package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewForbidden("admin only"))
		de := ToDomainError(err)
		assert.Equal(t, "FORBIDDEN", de.Code)
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	})

	t.Run("maps no rows to not found", func(t *testing.T) {
		de := ToDomainError(pgx.ErrNoRows)
		assert.Equal(t, "NOT_FOUND", de.Code)
		assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})

	t.Run("maps fiber errors", func(t *testing.T) {
		de := ToDomainError(fiber.NewError(http.StatusForbidden, "insufficient role"))
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
		assert.Equal(t, "insufficient role", de.Message)
	})

	t.Run("wraps unknown errors as internal", func(t *testing.T) {
		de := ToDomainError(errors.New("boom"))
		assert.Equal(t, "INTERNAL_ERROR", de.Code)
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	})

	assert.Nil(t, ToDomainError(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, ToDomainError(NewUnavailable("profile lookup failed", errors.New("timeout"))).Retryable())
	assert.True(t, ToDomainError(NewWriteFailed("insert failed", errors.New("conn reset"))).Retryable())
	assert.False(t, ToDomainError(NewValidationError("title required", nil)).Retryable())
}

func TestNewWriteFailedCarriesCause(t *testing.T) {
	de := ToDomainError(NewWriteFailed("failed to submit report", errors.New("duplicate key")))
	assert.Equal(t, "duplicate key", de.Details["cause"])
	assert.Equal(t, true, de.Details["retry"])
}
