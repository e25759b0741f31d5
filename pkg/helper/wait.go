package helper

import (
	"context"
	"os/signal"
	"syscall"
)

// WithSignals returns a copy of ctx that is cancelled on SIGINT or SIGTERM.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
