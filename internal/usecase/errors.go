package usecase

import (
	"fmt"
	"time"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

// RateLimitExceededError indicates the caller exceeded a sliding-window limit.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e == nil {
		return ""
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Scope, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

// Kind reports the stable error tag used at the service boundary.
func (e *RateLimitExceededError) Kind() string {
	return domain.KindRateLimited
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStore, op, err)
}
