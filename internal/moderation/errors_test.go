package moderation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
)

func TestModerationError(t *testing.T) {
	cause := fmt.Errorf("rest: %w", chat.ErrNotFound)
	err := WrapError(cause, ErrFetch, "failed").WithContext("message", "m1").WithContext("author", "alice")

	assert.Equal(t, "[Fetch] failed | context: author=alice, message=m1 | cause: rest: chat: resource not found", err.Error())
	assert.True(t, IsErrorType(err, ErrFetch))
	assert.False(t, IsErrorType(err, ErrThread))
	assert.True(t, IsGone(err))
	assert.Equal(t, "Fetch", err.Fields()["error_type"])

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, IsErrorType(wrapped, ErrFetch))
	assert.False(t, IsErrorType(errors.New("plain"), ErrFetch))
}

func TestSafeExecute(t *testing.T) {
	err := SafeExecute(func() error {
		panic("boom")
	})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrUnknown))

	assert.NoError(t, SafeExecute(func() error { return nil }))
}
