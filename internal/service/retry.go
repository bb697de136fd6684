package service

import "time"

const (
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = 30 * time.Second
	defaultRetryMaxDelay  = 10 * time.Minute
)

// RetryPolicy bounds restarts of a program that fails to start or keeps
// crashing. MaxAttempts == 0 means unlimited.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is what the config layer falls back to.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultRetryAttempts,
		BaseDelay:   defaultRetryBaseDelay,
		MaxDelay:    defaultRetryMaxDelay,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts < 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay is the wait after the n-th consecutive failure:
// min(BaseDelay * 2^(n-1), MaxDelay).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		if d >= p.MaxDelay {
			break
		}
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Exhausted reports whether n consecutive failures use up the policy.
func (p RetryPolicy) Exhausted(n int) bool {
	return p.MaxAttempts > 0 && n >= p.MaxAttempts
}
