package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("keeps wrapped domain errors", func(t *testing.T) {
		err := fmt.Errorf("reply: %w", NewTicketClosed("t1"))
		de := ToDomainError(err)
		require.NotNil(t, de)
		assert.Equal(t, CodeTicketClosed, de.Code)
		assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	})

	t.Run("deadline becomes unavailable", func(t *testing.T) {
		de := ToDomainError(fmt.Errorf("get ticket: %w", context.DeadlineExceeded))
		assert.Equal(t, CodeUnavailable, de.Code)
		assert.True(t, de.Retryable())
	})

	t.Run("unknown becomes internal", func(t *testing.T) {
		de := ToDomainError(errors.New("boom"))
		assert.Equal(t, CodeInternal, de.Code)
		assert.False(t, de.Retryable())
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
		assert.Equal(t, "", CodeOf(nil))
	})
}

func TestUnauthorizedHidesReason(t *testing.T) {
	err := NewUnauthorized("not-owner")
	de := ToDomainError(err)
	assert.Equal(t, "not permitted", de.Message)
	assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	assert.Empty(t, de.Details)
	assert.EqualError(t, de.Unwrap(), "not-owner")
}
