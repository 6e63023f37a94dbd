package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds retries of external calls (embedding, LLM). Attempts
// counts the total number of tries including the first one.
type Policy struct {
	Attempts        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:        3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Do retries op with exponential backoff until it succeeds, the attempt
// budget is spent, or the context is cancelled.
func Do[T any](ctx context.Context, policy Policy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.Attempts),
	)
}

// Permanent marks an error as non-retriable so Do stops immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
