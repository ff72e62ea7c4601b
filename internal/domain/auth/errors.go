package auth

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	CodeInvalidEmail        = "auth/invalid-email"
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeUserDisabled        = "auth/user-disabled"
	CodeEmailAlreadyInUse   = "auth/email-already-in-use"
	CodeWeakPassword        = "auth/weak-password"
	CodeTooManyRequests     = "auth/too-many-requests"
	CodeNetworkFailed       = "auth/network-request-failed"
	CodeInvalidActionCode   = "auth/invalid-action-code"
	CodeMFARequired         = "auth/mfa-required"
	CodeInvalidMFACode      = "auth/invalid-mfa-code"
	CodeRequiresRecentLogin = "auth/requires-recent-login"
	CodeOperationNotAllowed = "auth/operation-not-allowed"
	CodeInternal            = "auth/internal-error"
)

var messages = map[string]string{
	CodeInvalidEmail:        "Please enter a valid email address.",
	CodeUserNotFound:        "No account found with this email.",
	CodeWrongPassword:       "Incorrect password. Please try again.",
	CodeUserDisabled:        "This account has been disabled.",
	CodeEmailAlreadyInUse:   "An account with this email already exists.",
	CodeWeakPassword:        "Password must be at least 8 characters and include upper and lower case letters and a number.",
	CodeTooManyRequests:     "Too many attempts. Please try again later.",
	CodeNetworkFailed:       "Network error. Please check your connection.",
	CodeInvalidActionCode:   "This reset link is invalid or has expired.",
	CodeMFARequired:         "Enter the code from your authenticator app.",
	CodeInvalidMFACode:      "The authenticator code is not valid.",
	CodeRequiresRecentLogin: "Please sign in again to continue.",
	CodeOperationNotAllowed: "This operation is not allowed.",
	CodeInternal:            "Something went wrong. Please try again.",
}

var statuses = map[string]int{
	CodeInvalidEmail:        http.StatusBadRequest,
	CodeUserNotFound:        http.StatusUnauthorized,
	CodeWrongPassword:       http.StatusUnauthorized,
	CodeUserDisabled:        http.StatusForbidden,
	CodeEmailAlreadyInUse:   http.StatusConflict,
	CodeWeakPassword:        http.StatusBadRequest,
	CodeTooManyRequests:     http.StatusTooManyRequests,
	CodeNetworkFailed:       http.StatusServiceUnavailable,
	CodeInvalidActionCode:   http.StatusBadRequest,
	CodeMFARequired:         http.StatusUnauthorized,
	CodeInvalidMFACode:      http.StatusUnauthorized,
	CodeRequiresRecentLogin: http.StatusUnauthorized,
	CodeOperationNotAllowed: http.StatusForbidden,
	CodeInternal:            http.StatusInternalServerError,
}

// Error carries one of the auth/* codes; Err is the underlying cause, if any.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Message returns the user-facing string for a code. Unknown codes get the
// generic internal message.
func Message(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[CodeInternal]
}

func HTTPStatus(code string) int {
	if status, ok := statuses[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// CodeOf extracts the auth code from err, classifying bare infrastructure
// errors as network or internal failures.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		if _, known := messages[authErr.Code]; known {
			return authErr.Code
		}
		return CodeInternal
	}
	if isNetworkError(err) {
		return CodeNetworkFailed
	}
	return CodeInternal
}

func classify(err error) *Error {
	if isNetworkError(err) {
		return newError(CodeNetworkFailed, err)
	}
	return newError(CodeInternal, err)
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
