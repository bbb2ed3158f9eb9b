// Package apperr carries business errors with a stable machine-readable code
// alongside a human-readable message, so callers can branch on the cause.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeDuplicateIntent         Code = "DUPLICATE_INTENT"
	CodeInvalidStateTransition  Code = "INVALID_STATE_TRANSITION"
	CodeExpiredIntent           Code = "EXPIRED_INTENT"
	CodeInvalidWebhook          Code = "INVALID_WEBHOOK"
	CodeUnresolvedIntent        Code = "UNRESOLVED_INTENT"
	CodeGatewayVerification     Code = "GATEWAY_VERIFICATION"
	CodeInsufficientBalance     Code = "INSUFFICIENT_BALANCE"
	CodeCancellationNotEligible Code = "CANCELLATION_NOT_ELIGIBLE"
	CodeNotFound                Code = "NOT_FOUND"
	CodeNotOwner                Code = "NOT_OWNER"
)

type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, cause error) error {
	return &Error{Code: code, Message: msg, cause: cause}
}

// CodeOf extracts the code, or "" for plain errors.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// MessageOf returns the human message, falling back to Error().
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
