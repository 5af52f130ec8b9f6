package slot

import (
	"context"
	"testing"
	"time"

	"lending/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentSlot(t *testing.T) {
	genesis := time.Unix(1603366002, 0)
	s := New(&core.Config{App: core.App{
		Genesis:      genesis.Unix(),
		SlotDuration: 500 * time.Millisecond,
	}}).(*service)
	s.now = func() time.Time { return genesis.Add(10 * time.Second) }

	ctx := context.Background()
	slot, err := s.CurrentSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), slot)

	slot, err = s.GetSlot(ctx, genesis.Add(1250*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), slot)

	_, err = s.GetSlot(ctx, genesis.Add(-time.Second))
	assert.ErrorIs(t, err, core.ErrInvalidSlot)

	pinned := s.WithSlot(ctx, 7)
	slot, err = s.CurrentSlot(pinned)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), slot)
}

func TestZeroSlotDuration(t *testing.T) {
	s := New(&core.Config{})
	_, err := s.CurrentSlot(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
