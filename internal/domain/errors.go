// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so callers can decide how to react
// without inspecting its code.
type ErrorKind int

const (
	// KindValidation marks malformed input rejected before any mutation.
	KindValidation ErrorKind = iota + 1
	// KindState marks a business-rule violation. Safe to retry after the
	// client corrects its view of the world.
	KindState
	// KindAuthorization marks an access to a resource the caller does not own.
	KindAuthorization
	// KindNotFound marks a reference to an entity that does not exist.
	KindNotFound
	// KindTransient marks a failure that a later attempt may not hit.
	KindTransient
)

// String returns the taxonomy name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindState:
		return "StateError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindNotFound:
		return "NotFoundError"
	case KindTransient:
		return "TransientError"
	default:
		return "UnknownError"
	}
}

// ErrorCode is the closed set of machine-readable error codes surfaced to
// callers. Callers branch on codes, never on message text.
type ErrorCode string

// Error codes.
const (
	CodeInvalidGrade       ErrorCode = "INVALID_GRADE"
	CodeInvalidPriority    ErrorCode = "INVALID_PRIORITY"
	CodeInvalidSessionSize ErrorCode = "INVALID_SESSION_SIZE"
	CodeInvalidProfile     ErrorCode = "INVALID_PROFILE"
	CodeInvalidCollection  ErrorCode = "INVALID_COLLECTION"
	CodeInvalidOrigin      ErrorCode = "INVALID_ORIGIN"

	CodeNoEligibleItems   ErrorCode = "NO_ELIGIBLE_ITEMS"
	CodeSessionNotActive  ErrorCode = "SESSION_NOT_ACTIVE"
	CodeSessionExpired    ErrorCode = "SESSION_EXPIRED"
	CodeItemAlreadyGraded ErrorCode = "ITEM_ALREADY_GRADED"
	CodeItemNotInSession  ErrorCode = "ITEM_NOT_IN_SESSION"
	CodeSessionAbandoned  ErrorCode = "SESSION_ABANDONED"
	CodeSessionIncomplete ErrorCode = "SESSION_INCOMPLETE"

	CodeSessionNotOwned ErrorCode = "SESSION_NOT_OWNED"
	CodeItemNotOwned    ErrorCode = "ITEM_NOT_OWNED"

	CodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	CodeItemNotFound    ErrorCode = "ITEM_NOT_FOUND"
	CodeProfileNotFound ErrorCode = "PROFILE_NOT_FOUND"

	CodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"
)

var codeKinds = map[ErrorCode]ErrorKind{
	CodeInvalidGrade:       KindValidation,
	CodeInvalidPriority:    KindValidation,
	CodeInvalidSessionSize: KindValidation,
	CodeInvalidProfile:     KindValidation,
	CodeInvalidCollection:  KindValidation,
	CodeInvalidOrigin:      KindValidation,
	CodeNoEligibleItems:    KindState,
	CodeSessionNotActive:   KindState,
	CodeSessionExpired:     KindState,
	CodeItemAlreadyGraded:  KindState,
	CodeItemNotInSession:   KindState,
	CodeSessionAbandoned:   KindState,
	CodeSessionIncomplete:  KindState,
	CodeSessionNotOwned:    KindAuthorization,
	CodeItemNotOwned:       KindAuthorization,
	CodeSessionNotFound:    KindNotFound,
	CodeItemNotFound:       KindNotFound,
	CodeProfileNotFound:    KindNotFound,
	CodeDeliveryFailed:     KindTransient,
}

// Kind returns the taxonomy kind of the code.
func (c ErrorCode) Kind() ErrorKind {
	return codeKinds[c]
}

// Error is a business error carrying a closed error code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error with the same code, which lets
// the sentinel values below be matched with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Kind returns the taxonomy kind of the error.
func (e *Error) Kind() ErrorKind {
	return e.Code.Kind()
}

// NewError creates a domain error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a domain error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a cause to a new domain error.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the error code from err, if err carries one.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Sentinel errors usable with errors.Is.
var (
	ErrInvalidGrade       = NewError(CodeInvalidGrade, "grade must be one of again, hard, good, easy")
	ErrInvalidPriority    = NewError(CodeInvalidPriority, "priority must be between 0 and 100")
	ErrInvalidSessionSize = NewError(CodeInvalidSessionSize, "session size must be between 3 and 10")
	ErrInvalidProfile     = NewError(CodeInvalidProfile, "invalid reminder profile")
	ErrInvalidCollection  = NewError(CodeInvalidCollection, "invalid collection")
	ErrInvalidOrigin      = NewError(CodeInvalidOrigin, "origin must be one of home, scoped, push")

	ErrNoEligibleItems   = NewError(CodeNoEligibleItems, "no items are due for review")
	ErrSessionNotActive  = NewError(CodeSessionNotActive, "session is not active")
	ErrSessionExpired    = NewError(CodeSessionExpired, "session expired")
	ErrItemAlreadyGraded = NewError(CodeItemAlreadyGraded, "item already graded in this session")
	ErrItemNotInSession  = NewError(CodeItemNotInSession, "item is not part of this session")
	ErrSessionAbandoned  = NewError(CodeSessionAbandoned, "session was abandoned")
	ErrSessionIncomplete = NewError(CodeSessionIncomplete, "session has unreviewed items")

	ErrSessionNotOwned = NewError(CodeSessionNotOwned, "session belongs to another user")
	ErrItemNotOwned    = NewError(CodeItemNotOwned, "item belongs to another user")

	ErrSessionNotFound = NewError(CodeSessionNotFound, "session not found")
	ErrItemNotFound    = NewError(CodeItemNotFound, "item not found")
	ErrProfileNotFound = NewError(CodeProfileNotFound, "reminder profile not found")

	ErrDeliveryFailed = NewError(CodeDeliveryFailed, "delivery failed")
)
