package worker

import (
	"context"
	"time"

	"github.com/fox-one/pkg/logger"
)

// Worker background job
type Worker interface {
	Run(ctx context.Context) error
}

// Tick run fn every interval until ctx is done. A failed round is retried
// after a second instead of a full interval.
func Tick(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx).WithField("worker", name)
	ctx = logger.WithContext(ctx, log)

	dur := time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			if err := fn(ctx); err == nil {
				dur = interval
			} else {
				log.WithError(err).Warnln("round failed")
				dur = time.Second
			}
		}
	}
}
