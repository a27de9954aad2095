package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrSuperseded means the plan a job belonged to was replaced.
	ErrSuperseded = errors.New("plan replaced")

	// Generation errors are scoped to the asset cell that produced them.
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrPreconditionNotMet    = errors.New("precondition not met")
	ErrProviderRequestFailed = errors.New("provider request failed")
	ErrResourceNotFound      = errors.New("resource not found")
	ErrTimeout               = errors.New("timeout")
)

// Error codes reported to API callers and stored on failed assets.
const (
	CodeProviderUnavailable   = "provider_unavailable"
	CodePreconditionNotMet    = "precondition_not_met"
	CodeProviderRequestFailed = "provider_request_failed"
	CodeResourceNotFound      = "resource_not_found"
	CodeTimeout               = "timeout"
	CodeNotFound              = "not_found"
	CodeInvalidPlan           = "invalid_plan"
	CodeSuperseded            = "plan_replaced"
	CodeInternal              = "internal_error"
)

// ErrorCode maps err onto a stable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderUnavailable):
		return CodeProviderUnavailable
	case errors.Is(err, ErrPreconditionNotMet):
		return CodePreconditionNotMet
	case errors.Is(err, ErrResourceNotFound):
		return CodeResourceNotFound
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrProviderRequestFailed):
		return CodeProviderRequestFailed
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidPlan):
		return CodeInvalidPlan
	case errors.Is(err, ErrSuperseded):
		return CodeSuperseded
	default:
		return CodeInternal
	}
}

// RequiresReauth reports whether the caller has to re-enter the provider key before retrying.
func RequiresReauth(err error) bool {
	return errors.Is(err, ErrResourceNotFound) || errors.Is(err, ErrProviderUnavailable)
}

// RequestFailed wraps a provider message as ErrProviderRequestFailed.
func RequestFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProviderRequestFailed, fmt.Sprintf(format, args...))
}
