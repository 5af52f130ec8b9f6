package core

import (
	"context"
	"time"
)

// ISlotService slot clock
type ISlotService interface {
	// CurrentSlot slot pinned into ctx, or the slot of now
	CurrentSlot(ctx context.Context) (uint64, error)
	GetSlot(ctx context.Context, t time.Time) (uint64, error)
	// WithSlot pin slot so every read under ctx agrees on it
	WithSlot(ctx context.Context, slot uint64) context.Context
}
