package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Strategy selects how the delay between 404 retries evolves.
type Strategy string

const (
	// StrategyConstant waits the same delay before every retry.
	StrategyConstant Strategy = "constant"
	// StrategyExponential doubles the delay up to MaxDelay.
	StrategyExponential Strategy = "exponential"
)

// Retry defaults.
const (
	DefaultMaxRetries = 8
	DefaultRetryDelay = 500 * time.Millisecond
)

// RetryPolicy bounds how long a Player waits for an asset that is still
// being generated.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	Strategy   Strategy
	MaxDelay   time.Duration // exponential only; 0 keeps the backoff default
}

// DefaultRetryPolicy returns eight retries at a fixed 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
		Strategy:   StrategyConstant,
	}
}

// Validate checks the policy values.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", p.MaxRetries)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", p.Delay)
	}
	switch p.Strategy {
	case StrategyConstant, StrategyExponential, "":
	default:
		return fmt.Errorf("invalid retry strategy %q, must be %q or %q",
			p.Strategy, StrategyConstant, StrategyExponential)
	}
	return nil
}

// newBackOff builds a fresh delay sequence for one Play call.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	if p.Strategy != StrategyExponential {
		return backoff.NewConstantBackOff(p.Delay)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Delay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.Reset()
	return b
}

// Waiter blocks for d or until ctx is done.
type Waiter func(ctx context.Context, d time.Duration) error

// timerWait is the production Waiter.
func timerWait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
