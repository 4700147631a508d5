package zerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsDefaultRetryable(t *testing.T) {
	assert.True(t, New(Embedding, "timeout", nil).Retryable)
	assert.True(t, New(Database, "locked", nil).Retryable)
	assert.False(t, New(Validation, "bad input", nil).Retryable)
	assert.False(t, New(NotFound, "missing", nil).Retryable)
	assert.False(t, New(Conflict, "stale", nil).Retryable)
}

func TestWrapPreservesExistingError(t *testing.T) {
	inner := New(NotFound, "item missing", nil)
	wrapped := Wrap(Database, inner)
	assert.Same(t, inner, wrapped)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(Database, nil))
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := New(Database, "write failed", cause)
	require.ErrorIs(t, err, err)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsMatchesByCode(t *testing.T) {
	target := New(Conflict, "", nil)
	actual := New(Conflict, "supersedes mismatch", nil)
	assert.True(t, errors.Is(actual, target))

	other := New(Validation, "", nil)
	assert.False(t, errors.Is(actual, other))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(Embedding, "down", nil)))
	assert.False(t, IsRetryable(New(Validation, "bad", nil)))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, NotFound, GetCode(New(NotFound, "gone", nil)))
	assert.Equal(t, Code(""), GetCode(errors.New("plain")))
}

func TestWithRetryableOverride(t *testing.T) {
	err := New(Validation, "bad", nil).WithRetryable(true)
	assert.True(t, err.Retryable)
}
