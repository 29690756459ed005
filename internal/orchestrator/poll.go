package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// maxTransientErrors is the number of consecutive probe failures tolerated
// before a poll gives up. This rides out brief daemon hiccups without
// abandoning an operation that is still progressing.
const maxTransientErrors = 3

// pollUntil repeatedly calls probe until it reports done, the total budget is
// spent, or ctx is cancelled. The delay between probes starts at initial and
// doubles up to max, so waiting is always bounded.
func pollUntil(ctx context.Context, initial, max, budget time.Duration, probe func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(budget)
	interval := initial
	var consecutiveErrors int

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		done, err := probe(ctx)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors >= maxTransientErrors {
				return fmt.Errorf("polling failed after %d consecutive errors: %w", consecutiveErrors, err)
			}
		} else {
			consecutiveErrors = 0
			if done {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for condition", budget)
		}

		interval *= 2
		if interval > max {
			interval = max
		}
	}
}
