package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindMatching(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", ErrInternalDb)

	testCases := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"not found matches sentinel", NewNotFoundError("find"), ErrNotFound, true},
		{"not found is not a db error", NewNotFoundError("find"), ErrInternalDb, false},
		{"repository matches db sentinel", NewRepositoryError("list", cause), ErrInternalDb, true},
		{"repository is not not found", NewRepositoryError("list", cause), ErrNotFound, false},
		{"validation matches invalid input", NewValidationError("add", errors.New("price: must be no less than 0")), ErrInvalidInput, true},
		{"wrapped twice still matches", fmt.Errorf("handler: %w", NewNotFoundError("remove")), ErrNotFound, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, errors.Is(tc.err, tc.target))
		})
	}
}

func TestErrorCarriesCause(t *testing.T) {
	err := NewRepositoryError("find", fmt.Errorf("query: %w", context.DeadlineExceeded))

	assert.True(t, IsTimeout(err))
	assert.Equal(t, KindRepository, KindOf(err))
	assert.Equal(t, "find: repository failure: query: context deadline exceeded", err.Error())

	var domainErr *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &domainErr))
	assert.Equal(t, "find", domainErr.Op)
	assert.False(t, IsTimeout(NewNotFoundError("find")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestCorruptEntryIsCacheError(t *testing.T) {
	err := fmt.Errorf("%w: key products:1", ErrCorruptCacheEntry)
	assert.True(t, errors.Is(err, ErrInternalCache))
	assert.True(t, errors.Is(err, ErrCorruptCacheEntry))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestErrorContainer(t *testing.T) {
	c := NewErrorContainer(errors.New("first"), nil)
	assert.Equal(t, 1, c.Len())

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(fmt.Errorf("error #%d", i))
		}()
	}
	wg.Wait()

	assert.Len(t, c.Unwrap(), 11)
	assert.Contains(t, c.Error(), "first;\n")

	ctx := WithErrorContainer(context.Background(), c)
	assert.Same(t, c, ErrorContainerFromContext(ctx))
	assert.Nil(t, ErrorContainerFromContext(context.Background()))
}

func TestLoggable(t *testing.T) {
	err := NewRepositoryError("list", ErrInternalDb)
	v := Loggable(err).LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())

	attrs := v.Group()
	require.Len(t, attrs, 2)
	assert.Equal(t, "message", attrs[0].Key)
	assert.Equal(t, []string{err.Error(), ErrInternalDb.Error()}, attrs[1].Value.Any())

	assert.Empty(t, Loggable(nil).LogValue().Group())
}
