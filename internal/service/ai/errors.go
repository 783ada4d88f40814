package ai

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("completion credential is not configured")
	ErrEmptyResponse     = errors.New("completion response contained no text")
)

// Kind classifies why a completion failed.
type Kind string

const (
	KindCredential    Kind = "credential"
	KindProvider      Kind = "provider"
	KindEmptyResponse Kind = "empty_response"
)

// CompletionError is returned by Client.Complete for every failure.
type CompletionError struct {
	Kind Kind
	Err  error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Notice is a short user-facing description of the failure.
func (e *CompletionError) Notice() string {
	switch e.Kind {
	case KindCredential:
		return "The language model credentials are missing or were rejected."
	case KindEmptyResponse:
		return "The language model returned an empty reply."
	default:
		return "The language model could not be reached."
	}
}

// KindOf extracts the failure kind from err, defaulting to KindProvider.
func KindOf(err error) Kind {
	var completionErr *CompletionError
	if errors.As(err, &completionErr) {
		return completionErr.Kind
	}
	return KindProvider
}
