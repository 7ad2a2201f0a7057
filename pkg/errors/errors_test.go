package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorHidesCause(t *testing.T) {
	cause := stderrors.New("pq: relation \"notices\" does not exist")
	appErr := FromError(cause)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
	assert.ErrorIs(t, appErr, cause)
}

func TestCloneKeepsCode(t *testing.T) {
	clone := Clone(ErrNotFound, "notice not found")
	assert.Equal(t, "notice not found", clone.Message)
	assert.Equal(t, ErrNotFound.Code, clone.Code)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrForbidden, "comments are disabled"))
	assert.True(t, Is(wrapped, ErrForbidden))
	assert.False(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(stderrors.New("plain"), ErrForbidden))
	assert.False(t, Is(nil, ErrForbidden))
}
