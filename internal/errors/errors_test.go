package errors_test

import (
	"errors"
	"fmt"
	"testing"

	customerrors "github.com/linkgate/urlshortener/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ClassifiesConcreteErrors(t *testing.T) {
	cases := []struct {
		err  error
		want customerrors.Kind
	}{
		{customerrors.ErrInvalidURL, customerrors.KindValidation},
		{customerrors.ErrShortCodeTaken, customerrors.KindConflict},
		{customerrors.ErrShortCodeNotFound, customerrors.KindNotFound},
		{customerrors.ErrLinkNotFound, customerrors.KindNotFound},
		{customerrors.ErrLinkInactive, customerrors.KindForbidden},
		{customerrors.ErrLinkExpired, customerrors.KindForbidden},
		{customerrors.ErrPasswordRequired, customerrors.KindForbidden},
		{customerrors.ErrInvalidPassword, customerrors.KindUnauthorized},
		{customerrors.ErrShortCodeGenerationFailed, customerrors.KindInternal},
		{errors.New("disk on fire"), customerrors.KindInternal},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, customerrors.KindOf(tc.err), "error %q", tc.err)
	}
}

func TestKindOf_SeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("lookup abc: %w", customerrors.ErrShortCodeNotFound)
	assert.Equal(t, customerrors.KindNotFound, customerrors.KindOf(wrapped))
	assert.ErrorIs(t, wrapped, customerrors.ErrNotFound)
}

func TestMessage_HidesInternalCause(t *testing.T) {
	assert.Equal(t, "Internal server error", customerrors.Message(errors.New("sql: connection refused")))
	assert.Equal(t, "Please enter a valid URL", customerrors.Message(customerrors.ErrInvalidURL))
	assert.Contains(t, customerrors.Message(customerrors.ErrLinkExpired), "expired")
}

func TestPasswordRequired_IsDistinctFromGenericRefusal(t *testing.T) {
	assert.False(t, errors.Is(customerrors.ErrLinkInactive, customerrors.ErrPasswordRequired))
	assert.False(t, errors.Is(customerrors.ErrLinkExpired, customerrors.ErrPasswordRequired))
}

func TestMessage_StripsCategoryPrefix(t *testing.T) {
	assert.Equal(t, "URL has expired", customerrors.Message(customerrors.ErrLinkExpired))
	assert.Equal(t, "invalid password", customerrors.Message(customerrors.ErrInvalidPassword))
}
