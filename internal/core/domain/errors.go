package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrOwnershipMismatch = errors.New("ownership mismatch")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPipelineStage     = errors.New("pipeline stage failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrNotConfigured     = errors.New("collaborator not configured")
	ErrSizeExceeded      = errors.New("size limit exceeded")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
