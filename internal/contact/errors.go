package contact

import (
	"errors"
	"fmt"
	"time"
)

var ErrRateLimited = errors.New("contact: too many submissions")

// RateLimitError rejects a submission whose source exhausted its window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("contact: too many submissions, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
