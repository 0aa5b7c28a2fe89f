package review

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchTransient matches fetch errors raised after the retry policy gave up.
	ErrFetchTransient = errors.New("transient fetch failure")
	// ErrFetchUnknown matches fetch errors that were not retried.
	ErrFetchUnknown = errors.New("fetch failure")
	// ErrLanguageNotFound matches *LanguageNotFoundError.
	ErrLanguageNotFound = errors.New("no language found")
	// ErrEmptyCompletion is returned when the model answers with no text.
	ErrEmptyCompletion = errors.New("model returned empty text")
)

// UnsupportedEventError is returned when the triggering event cannot start a review.
type UnsupportedEventError struct {
	EventName string
	Action    string
}

func (e *UnsupportedEventError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("this action only works on pull_request events. Got: %s (action %s)", e.EventName, e.Action)
	}
	return fmt.Sprintf("this action only works on pull_request events. Got: %s", e.EventName)
}

// FetchError is returned when the changed files could not be listed.
type FetchError struct {
	Owner     string
	Repo      string
	Pull      int
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to list files for %s/%s#%d: %v", e.Owner, e.Repo, e.Pull, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches ErrFetchTransient or ErrFetchUnknown depending on Transient.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrFetchTransient:
		return e.Transient
	case ErrFetchUnknown:
		return !e.Transient
	}
	return false
}

// LanguageNotFoundError is returned when a file extension has no table entry.
type LanguageNotFoundError struct {
	Filename  string
	Extension string
}

func (e *LanguageNotFoundError) Error() string {
	return fmt.Sprintf("%s: no language found for extension %q", e.Filename, e.Extension)
}

func (e *LanguageNotFoundError) Is(target error) bool {
	return target == ErrLanguageNotFound
}

// ModelInvocationError is returned when the model call failed for a file.
type ModelInvocationError struct {
	Filename string
	Err      error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("%s: model invocation failed: %v", e.Filename, e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// PublishError is returned when a GitHub write or head lookup failed.
type PublishError struct {
	Op        string
	Path      string
	Transient bool
	Err       error
}

func (e *PublishError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// ContentFetchError is returned when the instructions file could not be read.
type ContentFetchError struct {
	Path string
	Err  error
}

func (e *ContentFetchError) Error() string {
	return fmt.Sprintf("failed to read instructions %s: %v", e.Path, e.Err)
}

func (e *ContentFetchError) Unwrap() error {
	return e.Err
}
