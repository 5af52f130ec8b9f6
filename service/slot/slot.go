package slot

import (
	"context"
	"fmt"
	"time"

	"lending/core"
)

type slotKey struct{}

type service struct {
	genesis  time.Time
	duration time.Duration
	now      func() time.Time
}

// New new slot service
func New(cfg *core.Config) core.ISlotService {
	return &service{
		genesis:  time.Unix(cfg.App.Genesis, 0).UTC(),
		duration: cfg.App.SlotDuration,
		now:      time.Now,
	}
}

// CurrentSlot current slot
func (s *service) CurrentSlot(ctx context.Context) (uint64, error) {
	if slot, ok := ctx.Value(slotKey{}).(uint64); ok {
		return slot, nil
	}

	return s.GetSlot(ctx, s.now())
}

// GetSlot get slot by time
func (s *service) GetSlot(ctx context.Context, t time.Time) (uint64, error) {
	if s.duration <= 0 {
		return 0, fmt.Errorf("%w: slot duration should be greater than zero", core.ErrInvalidConfig)
	}

	if t.Before(s.genesis) {
		return 0, fmt.Errorf("%w: %s is before genesis", core.ErrInvalidSlot, t.UTC().Format(time.RFC3339))
	}

	return uint64(t.Sub(s.genesis) / s.duration), nil
}

func (s *service) WithSlot(ctx context.Context, slot uint64) context.Context {
	return context.WithValue(ctx, slotKey{}, slot)
}
