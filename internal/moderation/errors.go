package moderation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
)

type ErrorType int

const (
	// ErrFetch covers partial payloads that could not be resolved against the platform.
	ErrFetch ErrorType = iota
	ErrDelete
	ErrThread
	ErrSend
	ErrUnknown
)

type ModerationError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *ModerationError {
	return &ModerationError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *ModerationError {
	return &ModerationError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *ModerationError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *ModerationError) Unwrap() error {
	return e.Cause
}

func (e *ModerationError) WithContext(key string, value any) *ModerationError {
	e.Context[key] = value
	return e
}

// Fields exposes the context for structured logging.
func (e *ModerationError) Fields() map[string]any {
	ret := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ret[k] = v
	}
	ret["error_type"] = e.Type.String()
	return ret
}

func (t ErrorType) String() string {
	switch t {
	case ErrFetch:
		return "Fetch"
	case ErrDelete:
		return "Delete"
	case ErrThread:
		return "Thread"
	case ErrSend:
		return "Send"
	default:
		return "Unknown"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var modErr *ModerationError
	if errors.As(err, &modErr) {
		return modErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *ModerationError {
	return NewErrorWithCause(errorType, message, err)
}

// IsGone reports whether err means the target was already deleted.
func IsGone(err error) bool {
	return errors.Is(err, chat.ErrNotFound)
}

// SafeExecute runs fn and turns a panic into an ErrUnknown error.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
