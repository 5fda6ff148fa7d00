package entities

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func TestAsRateLimit(t *testing.T) {
	cause := errors.New("rate-overlimit")
	wrapped := fmt.Errorf("send to bob: %w", &RateLimitError{Wait: 30 * time.Second, Err: cause})

	wait, ok := AsRateLimit(wrapped)
	be.True(t, ok)
	be.Equal(t, wait, 30*time.Second)
	be.True(t, errors.Is(wrapped, cause))

	_, ok = AsRateLimit(errors.New("network down"))
	be.True(t, !ok)
}

func TestOutcome(t *testing.T) {
	be.True(t, OutcomeSent.Resolved())
	be.True(t, OutcomeAlreadyContacted.Resolved())
	be.True(t, !OutcomeFailed.Resolved())
	be.Equal(t, OutcomeAlreadyContacted.String(), "already_contacted")
	be.Equal(t, OutcomeFailed.String(), "failed")
}
