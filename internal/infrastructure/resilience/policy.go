package resilience

import "time"

// Config governs one Executor. Retries cover a single logical call; the
// breaker is shared by every call with the same operation name.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig suits short calls to infrastructure the process owns, such
// as publishing to the queue.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// SingleAttempt keeps the breaker but disables retries.
func (c Config) SingleAttempt() Config {
	c.RetryMaxAttempts = 1
	return c
}

// WithRetries switches retries on with the given backoff bounds. Attempts
// of 1 or less leave c unchanged.
func (c Config) WithRetries(attempts int, initial, maxBackoff time.Duration) Config {
	if attempts <= 1 {
		return c
	}
	c.RetryMaxAttempts = attempts
	c.RetryInitialBackoff = initial
	c.RetryMaxBackoff = maxBackoff
	return c
}

func (c Config) normalize() Config {
	def := DefaultConfig()

	c.RetryMaxAttempts = positiveOr(c.RetryMaxAttempts, def.RetryMaxAttempts)
	c.RetryInitialBackoff = positiveOr(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = max(positiveOr(c.RetryMaxBackoff, def.RetryMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}

	c.BreakerMinRequests = positiveOr(c.BreakerMinRequests, def.BreakerMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	c.BreakerOpenTimeout = positiveOr(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	c.BreakerHalfOpenMaxCalls = positiveOr(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return c
}

func positiveOr[T int | uint32 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}
