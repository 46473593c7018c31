package core

import (
	"errors"
)

var (
	// ErrRateLimited indicates the text-generation service refused the
	// request due to rate limiting.
	ErrRateLimited = errors.New("text generation rate limited")

	// ErrMalformed indicates the text-generation service returned a
	// response that could not be used (empty, no choices, wrong shape).
	ErrMalformed = errors.New("malformed text generation response")

	// ErrNetwork indicates a transient transport failure talking to the
	// text-generation service. Callers may retry with backoff.
	ErrNetwork = errors.New("text generation network error")

	// ErrConversationNotFound is returned when a conversation identifier
	// is not present in the store.
	ErrConversationNotFound = errors.New("conversation not found")
)
