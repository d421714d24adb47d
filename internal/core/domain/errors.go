package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid rate limiter config")
	ErrConfiguration    = errors.New("counter store is partially configured")
	ErrStoreUnavailable = errors.New("counter store unavailable")
	ErrDisallowedAgent  = errors.New("user agent is not allowed")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// RateLimitedError carrega a decisão que rejeitou a requisição.
type RateLimitedError struct {
	Decision Decision
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry in %ds", ErrRateLimited, e.Decision.ResetSeconds)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func IsDisallowedAgent(err error) bool {
	return errors.Is(err, ErrDisallowedAgent)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// StoreError embrulha uma falha do backend para casar com ErrStoreUnavailable.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
