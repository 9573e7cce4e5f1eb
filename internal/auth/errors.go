// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a RecordStore when no record matches a lookup.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned by a RecordStore when a create would violate the
// one-record-per-email constraint.
var ErrDuplicate = errors.New("record already exists")

// Kind separates errors that are safe to show a caller from errors that
// indicate a fault in the host system.
type Kind int

// Error kinds.
const (
	// KindCaller is an input or credential problem. The message is safe to
	// return verbatim.
	KindCaller Kind = iota + 1
	// KindSystem is a configuration, integrity, or infrastructure fault. The
	// caller only ever sees GenericMessage.
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindCaller:
		return "caller"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Code identifies a flow failure.
type Code string

// Caller-fault codes.
const (
	CodeEmailRequired          Code = "EMAIL_REQUIRED"
	CodePasswordRequired       Code = "PASSWORD_REQUIRED"
	CodeRepeatPasswordRequired Code = "REPEAT_PASSWORD_REQUIRED"
	CodePasswordMismatch       Code = "PASSWORD_MISMATCH"
	CodeAlreadyRegistered      Code = "ALREADY_REGISTERED"
	CodeInvalidCredentials     Code = "INVALID_CREDENTIALS"
	CodeNotRegistered          Code = "NOT_REGISTERED"
	CodeTokenRequired          Code = "TOKEN_REQUIRED"
	CodeTokenInvalid           Code = "TOKEN_INVALID"
)

// System-fault codes.
const (
	CodeIntegrity          Code = "INTEGRITY_ERROR"
	CodeMisconfigured      Code = "MISCONFIGURED"
	CodeNotificationFailed Code = "NOTIFICATION_FAILED"
	CodeInternal           Code = "INTERNAL"
)

// GenericMessage is the only text a caller receives for a system fault.
const GenericMessage = "An internal error occurred."

var callerMessages = map[Code]string{
	CodeEmailRequired:          "Email is required.",
	CodePasswordRequired:       "Password is required.",
	CodeRepeatPasswordRequired: "Repeat Password is required.",
	CodePasswordMismatch:       "Passwords do not match.",
	CodeAlreadyRegistered:      "Registration already exists.",
	CodeInvalidCredentials:     "Incorrect email or password",
	CodeNotRegistered:          "Not registered",
	CodeTokenRequired:          "Token is required.",
	CodeTokenInvalid:           "Token is invalid.",
}

// Kind reports whether the code is a caller fault or a system fault.
// Unknown codes are treated as system faults.
func (c Code) Kind() Kind {
	if _, ok := callerMessages[c]; ok {
		return KindCaller
	}
	return KindSystem
}

// Message returns the text that may be shown to a caller.
func (c Code) Message() string {
	if msg, ok := callerMessages[c]; ok {
		return msg
	}
	return GenericMessage
}

// Error is the typed failure returned by every flow.
type Error struct {
	Code  Code
	cause error
}

func newError(code Code) *Error {
	return &Error{Code: code}
}

func wrapError(code Code, cause error) *Error {
	return &Error{Code: code, cause: cause}
}

// Error includes the cause for server-side logs. Use SafeMessage for anything
// returned to a caller.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Code.Message())
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Kind reports the error tier.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// SafeMessage returns the caller-facing message.
func (e *Error) SafeMessage() string {
	return e.Code.Message()
}

// Is matches another *Error by code, so errors.Is(err, &Error{Code: ...})
// works without comparing causes.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the flow code from err. It returns "" for nil and
// CodeInternal for errors that did not come from a flow.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
