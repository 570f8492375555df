package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimeout is returned when a bounded wait runs out of time.
var ErrWaitTimeout = errors.New("wait timed out")

// pollInterval is how often bounded waits re-check their condition.
var pollInterval = 100 * time.Millisecond

// poll calls cond until it reports true or returns an error, or until
// timeout elapses. Cancellation of ctx itself is returned as ctx.Err().
func poll(ctx context.Context, timeout time.Duration, cond func(ctx context.Context) (bool, error)) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := cond(wctx)
		if ok {
			return nil
		}
		if err != nil && wctx.Err() == nil {
			return err
		}
		select {
		case <-wctx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
		case <-ticker.C:
		}
	}
}

// Text counts as settled once the same non-empty value was read on
// settleReads consecutive polls spanning at least settleWindow. A tooltip
// can keep showing the previous bar's value for a poll or two after the
// pointer moves.
var (
	settleReads  = 3
	settleWindow = 300 * time.Millisecond
)

// settleText polls read until its text settles. When timeout elapses it
// falls back to the last non-empty text seen, and only fails if nothing was
// ever read.
//
// read reports ok=false when the element is not present yet.
func settleText(ctx context.Context, timeout time.Duration, read func(ctx context.Context) (string, bool, error)) (string, error) {
	var (
		last, seen string
		reads      int
		since      time.Time
	)
	err := poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		txt, ok, err := read(ctx)
		if err != nil || !ok || txt == "" {
			last, reads = "", 0
			return false, nil
		}
		seen = txt
		if txt != last {
			last, reads, since = txt, 0, time.Now()
		}
		reads++
		return reads >= settleReads && time.Since(since) >= settleWindow, nil
	})
	if err == nil {
		return last, nil
	}
	if errors.Is(err, ErrWaitTimeout) && seen != "" {
		return seen, nil
	}
	return "", err
}
