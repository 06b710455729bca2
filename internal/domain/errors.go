package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrToolNotFound     = fmt.Errorf("tool not found")
	ErrAuthInvalid      = fmt.Errorf("authentication failed")
	ErrRateLimit        = fmt.Errorf("rate limit exceeded")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrPackInactive     = fmt.Errorf("pack not activated")
	ErrPackNotFound     = fmt.Errorf("pack not found")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrHandlerInvalid   = fmt.Errorf("handler missing invoke capability")
	ErrAuditWrite       = fmt.Errorf("audit log write failed")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrDecryption       = fmt.Errorf("decryption failed")
	ErrCounterStore     = fmt.Errorf("counter store operation failed")
	ErrBackendDown      = fmt.Errorf("content backend unavailable")

	// Gateway errors.
	ErrGatewayAuthFailed = fmt.Errorf("gateway: %w", ErrAuthInvalid)
	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("rpc payload invalid")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Router.Route")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// KindOf maps an error to the envelope error kind it should surface as.
// Unrecognized errors fall through to internal_error: handler faults never
// reach callers raw.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrKindInternal
	case errors.Is(err, ErrToolNotFound):
		return ErrKindUnknownTool
	case errors.Is(err, ErrAuthInvalid):
		return ErrKindAuth
	case errors.Is(err, ErrRateLimit):
		return ErrKindRateLimit
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrPackInactive):
		return ErrKindPermission
	case errors.Is(err, ErrInvalidInput):
		return ErrKindValidation
	case errors.Is(err, ErrPackNotFound):
		return ErrKindNotFound
	default:
		return ErrKindInternal
	}
}
