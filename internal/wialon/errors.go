package wialon

import (
	"errors"
	"fmt"
)

// Sentinel errors for the Remote API client; callers match them with errors.Is.
var (
	// ErrSessionClosed is returned by Call on a session that was logged out.
	ErrSessionClosed = errors.New("wialon: session closed")
	// ErrUnknownOutcome marks a call that timed out: the remote side may or may not have applied it.
	ErrUnknownOutcome = errors.New("wialon: call outcome unknown")
	// ErrConcurrentModification is returned when a read-modify-write observed an external change.
	ErrConcurrentModification = errors.New("wialon: concurrent modification")
)

// Remote API error codes used by this package. See the Wialon Remote API "errors" reference.
const (
	CodeInvalidSession      = 1
	CodeInvalidService      = 2
	CodeInvalidResult       = 3
	CodeInvalidInput        = 4
	CodeRequestFailed       = 5
	CodeUnknown             = 6
	CodeAccessDenied        = 7
	CodeInvalidCredentials  = 8
	CodeAuthServerTimeout   = 9
	CodeItemNotFound        = 1001
	CodeItemAlreadyExists   = 1002
	CodeInvalidNameLength   = 1003
	CodeLimitExceeded       = 1004
	CodeDuplicateUniqueProp = 1011
)

// AuthenticationError is returned when a token is missing or rejected, or when a call is made
// without a live session.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wialon: authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "wialon: authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RemoteAPIError is any non-success response from the Remote API.
type RemoteAPIError struct {
	Service string
	Code    int
	Message string
}

func (e *RemoteAPIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("wialon: %s: error %d: %s", e.Service, e.Code, e.Message)
	}
	return fmt.Sprintf("wialon: %s: error %d", e.Service, e.Code)
}

// ValidationError is a local pre-call check failure. No remote call was attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wialon: invalid %s: %s", e.Field, e.Reason)
}

// AmbiguousResultError is returned when a lookup on a supposedly unique key matched more than one item.
type AmbiguousResultError struct {
	Query string
	Count int
}

func (e *AmbiguousResultError) Error() string {
	return fmt.Sprintf("wialon: %s matched %d items, want exactly one", e.Query, e.Count)
}

// NotFoundError is returned when a lookup matched no items.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("wialon: %s matched no items", e.Query)
}

// IsAlreadyExists reports whether err is a remote rejection caused by a duplicate name or unique property.
func IsAlreadyExists(err error) bool {
	var apiErr *RemoteAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeItemAlreadyExists || apiErr.Code == CodeDuplicateUniqueProp
}

// IsNotFound reports whether err is a NotFoundError or a remote "item not found" response.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var apiErr *RemoteAPIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeItemNotFound
}

// IsAuthentication reports whether err is an AuthenticationError.
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// ValidateName enforces the display-name length bounds shared by every item kind.
func ValidateName(name string) error {
	n := len([]rune(name))
	if n < MinNameLength || n > MaxNameLength {
		return &ValidationError{
			Field:  "name",
			Reason: fmt.Sprintf("must be %d to %d characters, got %d", MinNameLength, MaxNameLength, n),
		}
	}
	return nil
}
