package entities

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRecipientNotFound = errors.New("recipient not found on platform")
	ErrNotAuthorized     = errors.New("account session not authorized")
	ErrLoginTimeout      = errors.New("login code expired before pairing")
	ErrNoMessages        = errors.New("no messages found")
	ErrInvalidProfiles   = errors.New("invalid profile configuration")
)

// RateLimitError is returned by a platform client when the account is throttled
type RateLimitError struct {
	Wait time.Duration
	Err  error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limited for %s: %v", e.Wait, e.Err)
	}
	return fmt.Sprintf("rate limited for %s", e.Wait)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// AsRateLimit extracts the wait duration from a rate-limit error
func AsRateLimit(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.Wait, true
	}
	return 0, false
}
