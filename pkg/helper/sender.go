package helper

import (
	"context"
	"time"
)

// SenderControl paces the replay of recorded items: items go out in batches
// with a pause after each batch, for a number of passes.
type SenderControl[T any] struct {
	interval time.Duration
	repeat   int
	batch    int
}

// NewSenderControl returns a sender making repeat passes over the items, or
// endless passes when repeat is negative. Zero repeat means one pass.
func NewSenderControl[T any](repeat int, interval time.Duration, batch int) *SenderControl[T] {
	if repeat == 0 {
		repeat = 1
	}
	if batch <= 0 {
		batch = 1
	}
	if interval < 0 {
		interval = 0
	}
	return &SenderControl[T]{
		interval: interval,
		repeat:   repeat,
		batch:    batch,
	}
}

// Run sends the items until all passes are done, send fails or the context
// is cancelled. Cancellation is not an error.
func (t *SenderControl[T]) Run(ctx context.Context, items []T, send func(T) error) error {
	if len(items) == 0 {
		return nil
	}
	for pass := 0; t.repeat < 0 || pass < t.repeat; pass++ {
		for start := 0; start < len(items); start += t.batch {
			end := min(start+t.batch, len(items))
			for _, item := range items[start:end] {
				if err := send(item); err != nil {
					return err
				}
			}
			if t.interval <= 0 {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(t.interval):
			}
		}
	}
	return nil
}
