package tracim

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested user, workspace, content or
// comment does not exist or is not visible to the current user.
var ErrNotFound = errors.New("not found")

// Tracim error codes that mean the requested entity is missing.
const (
	codeUserNotFound      = 1001
	codeWorkspaceNotFound = 1002
	codeContentNotFound   = 1003
	codeParentNotFound    = 1004
)

// AuthError indicates that authentication has failed or expired.
// It is returned when the server answers 401.
type AuthError struct {
	BaseURL string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.BaseURL, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-2xx answer carrying the Tracim error payload.
type APIError struct {
	Status  int
	Code    int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf(
			"tracim API error (%d, code %d) on %s %s: %s",
			e.Status, e.Code, e.Method, e.Path, e.Message,
		)
	}
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.Status, e.Method, e.Path, e.Message,
	)
}

// Is makes errors.Is(err, ErrNotFound) true for missing-entity answers.
func (e *APIError) Is(target error) bool {
	if target != ErrNotFound {
		return false
	}
	if e.Status == 404 {
		return true
	}
	switch e.Code {
	case codeUserNotFound, codeWorkspaceNotFound,
		codeContentNotFound, codeParentNotFound:
		return true
	}
	return false
}
