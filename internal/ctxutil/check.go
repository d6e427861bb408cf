// Package ctxutil provides context helpers for the CLI commands.
package ctxutil

import (
	"context"
	"time"
)

// Canceled returns the context error if ctx is done, nil otherwise.
// Commands call it on entry, before opening any platform component.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}

// Sleep pauses for d or until ctx is done, whichever comes first.
// A non-positive d returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
