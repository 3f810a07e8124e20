package api

import (
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy описывает повторные попытки запроса.
// Таймаут попытки растёт экспоненциально: min(BaseTimeout * 2^attempt, MaxTimeout).
type RetryPolicy struct {
	Attempts    int
	BaseTimeout time.Duration
	MaxTimeout  time.Duration
	// Delay - пауза перед первым повтором, дальше удваивается до MaxTimeout.
	// Ноль: повтор сразу.
	Delay time.Duration
	// Retryable решает, стоит ли повторять попытку после ошибки.
	// nil: повторяются все ошибки, кроме *StatusError.
	Retryable func(err error) bool
}

// DefaultRetryPolicy - 3 попытки, 5s базовый таймаут, потолок 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:    3,
		BaseTimeout: 5 * time.Second,
		MaxTimeout:  30 * time.Second,
		Delay:       500 * time.Millisecond,
	}
}

// AttemptTimeout returns the timeout for the zero-based attempt.
func (p RetryPolicy) AttemptTimeout(attempt int) time.Duration {
	d := p.BaseTimeout
	for i := 0; i < attempt && d < p.MaxTimeout; i++ {
		d *= 2
	}
	if p.MaxTimeout > 0 && d > p.MaxTimeout {
		return p.MaxTimeout
	}
	return d
}

func (p RetryPolicy) attempts() int {
	return max(p.Attempts, 1)
}

// backoff собирает go-retry backoff: не больше attempts-1 повторов.
func (p RetryPolicy) backoff() retry.Backoff {
	var b retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	if p.Delay > 0 {
		b = retry.NewExponential(p.Delay)
		if p.MaxTimeout > 0 {
			b = retry.WithCappedDuration(p.MaxTimeout, b)
		}
	}
	return retry.WithMaxRetries(uint64(p.attempts()-1), b)
}

func (p RetryPolicy) retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return true
}
