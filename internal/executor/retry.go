package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/esteinig/pathfinder/internal/ctxlog"
)

// Retrying re-runs failed tasks up to Request.MaxRetries extra times with a
// backoff between attempts.
type Retrying struct {
	next       StageExecutor
	newBackOff func() backoff.BackOff
}

// RetryOption configures Retrying.
type RetryOption func(*Retrying)

// WithBackOff sets the policy used between attempts. A fresh policy is
// created for every task.
func WithBackOff(newBackOff func() backoff.BackOff) RetryOption {
	return func(r *Retrying) { r.newBackOff = newBackOff }
}

// NewRetrying wraps next. The default policy is exponential, starting at one
// second, with no elapsed-time cap: Request.MaxRetries alone bounds the
// attempts, however long each one runs.
func NewRetrying(next StageExecutor, opts ...RetryOption) *Retrying {
	r := &Retrying{
		next: next,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// exitStatusError marks a non-zero exit as retryable.
type exitStatusError struct{ status int }

func (e *exitStatusError) Error() string { return fmt.Sprintf("exit status %d", e.status) }

// Execute implements StageExecutor. The result of the last attempt is
// returned, so a task that keeps exiting non-zero still reports its status
// rather than an error.
func (r *Retrying) Execute(ctx context.Context, req Request) (Result, error) {
	if req.MaxRetries == 0 {
		return r.next.Execute(ctx, req)
	}
	logger := ctxlog.FromContext(ctx)

	var res Result
	var execErr error
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			logger.Info("Retrying task.", "attempt", attempt, "max_retries", req.MaxRetries)
		}
		res, execErr = r.next.Execute(ctx, req)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if execErr != nil {
			return execErr
		}
		if res.ExitStatus != 0 {
			return &exitStatusError{status: res.ExitStatus}
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), req.MaxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, execErr
	}
	return res, nil
}
