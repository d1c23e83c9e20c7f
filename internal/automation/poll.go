package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrPollTimeout is returned by Poll when the condition never held.
var ErrPollTimeout = errors.New("timed out waiting for condition")

var errPending = errors.New("condition not met")

// Poll evaluates cond every interval until it reports true, the timeout
// elapses or ctx ends. Errors from cond are treated as "not yet".
func Poll(ctx context.Context, interval, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = time.Millisecond
	}

	var last error
	b := retry.WithMaxDuration(timeout, retry.NewConstant(interval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		done, err := cond(ctx)
		if err != nil {
			last = err
			return retry.RetryableError(err)
		}
		if !done {
			return retry.RetryableError(errPending)
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case last != nil && !errors.Is(err, errPending):
		return fmt.Errorf("%w: %v", ErrPollTimeout, last)
	default:
		return ErrPollTimeout
	}
}

// Sleep waits for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
