package domain

import (
	"errors"
	"fmt"
)

var (
	ErrContractNotFound  = errors.New("contract not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTemporary         = errors.New("temporary failure")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAnalysisNotReady  = errors.New("analysis not completed")

	ErrFetchFailed   = errors.New("fetch file failed")
	ErrExtractFailed = errors.New("extract text failed")
	ErrModelOutput   = errors.New("invalid model output")
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
