package model

import "errors"

// Error kinds. Every error returned by the domain services matches exactly
// one of them through errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrAuthRequired         = errors.New("sign in required")
	ErrAccessDenied         = errors.New("access denied")
	ErrNotFound             = errors.New("not found")
	ErrDataAccess           = errors.New("data store request failed")
	ErrUpload               = errors.New("file upload failed")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrConfirmationRequired = errors.New("destructive action must be confirmed")
)

var (
	ErrCategoryNotFound = newError(ErrNotFound, "category not found")
	ErrProductNotFound  = newError(ErrNotFound, "product not found")
	ErrOrderNotFound    = newError(ErrNotFound, "order not found")
	ErrCheckoutNotFound = newError(ErrNotFound, "checkout not found")
	ErrCartNotFound     = newError(ErrNotFound, "cart not found")
	ErrUserNotFound     = newError(ErrNotFound, "user not found")
	ErrSessionNotFound  = newError(ErrNotFound, "session not found")

	ErrSlugTaken  = newError(ErrValidation, "slug is already taken")
	ErrEmailTaken = newError(ErrValidation, "email is already taken")

	ErrUnknownCategory = newError(ErrValidation, "category does not exist")

	ErrOptimisticLock = newError(ErrDataAccess, "record has been modified by another transaction")
)

type domainError struct {
	msg  string
	kind error
}

func newError(kind error, msg string) error {
	return &domainError{msg: msg, kind: kind}
}

func (e *domainError) Error() string { return e.msg }

func (e *domainError) Is(target error) bool { return target == e.kind }

// WithKind tags cause with kind while keeping cause reachable through errors.Is and errors.As.
func WithKind(kind, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, kind) {
		return cause
	}
	return &kindError{kind: kind, cause: cause}
}

type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.cause.Error() }

func (e *kindError) Unwrap() []error { return []error{e.kind, e.cause} }
