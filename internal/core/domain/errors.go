package domain

import (
	"errors"
	"fmt"
)

// Error kinds of the answering pipeline. Soft conditions
// (ErrRetrievalUnavailable) are absorbed at the lowest layer that can apply
// fallback policy; hard failures propagate unchanged to the caller boundary.
var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNotFound             = errors.New("not found")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrRetrievalFailed      = errors.New("retrieval failed")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrRerankFailed         = errors.New("rerank failed")
	ErrBuildFailed          = errors.New("index build failed")
	ErrTemporary            = errors.New("temporary failure")
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
