package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrProtocol     = errors.New("protocol violation")
	ErrConnection   = errors.New("connection failure")
	ErrTemporary    = errors.New("temporary failure")
	ErrLoopLimit    = errors.New("iteration limit exceeded")
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
