package ratelimiter

import (
	"testing"

	"lending/pkg/number"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate(t *testing.T) {
	r := New(Config{WindowDuration: 10, MaxOutflow: number.NewFromUint64(100)}, 5)

	require.Nil(t, r.Update(5, number.NewFromUint64(60)))
	require.Nil(t, r.Update(14, number.NewFromUint64(40)))
	assert.Equal(t, number.NewFromUint64(100), r.CurrentWindowTotal)
	assert.Equal(t, uint64(5), r.WindowStart)

	before := r
	err := r.Update(14, number.NewFromScaledUint64(1))
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, before, r, "failed update must not touch state")

	// slot 15 is the first slot outside [5, 15)
	require.Nil(t, r.Update(15, number.NewFromUint64(70)))
	assert.Equal(t, uint64(15), r.WindowStart)
	assert.Equal(t, number.NewFromUint64(70), r.CurrentWindowTotal)
	assert.Equal(t, number.NewFromUint64(30), r.Remaining(20))
	assert.Equal(t, number.NewFromUint64(100), r.Remaining(25))
}

func TestUpdateEarlierSlotResets(t *testing.T) {
	r := New(Config{WindowDuration: 10, MaxOutflow: number.NewFromUint64(100)}, 50)
	require.Nil(t, r.Update(50, number.NewFromUint64(90)))

	require.Nil(t, r.Update(40, number.NewFromUint64(90)))
	assert.Equal(t, uint64(40), r.WindowStart)
	assert.Equal(t, number.NewFromUint64(90), r.CurrentWindowTotal)
}

func TestSingleAmountAboveMax(t *testing.T) {
	r := New(Config{WindowDuration: 1, MaxOutflow: number.NewFromUint64(10)}, 0)
	before := r

	assert.ErrorIs(t, r.Update(100, number.NewFromUint64(11)), ErrRateLimitExceeded)
	assert.Equal(t, before, r)
}

func TestSetConfigKeepsTotal(t *testing.T) {
	r := New(Config{WindowDuration: 10, MaxOutflow: number.NewFromUint64(100)}, 0)
	require.Nil(t, r.Update(1, number.NewFromUint64(80)))

	r.SetConfig(Config{WindowDuration: 10, MaxOutflow: number.NewFromUint64(50)})
	assert.Equal(t, number.NewFromUint64(80), r.CurrentWindowTotal)
	assert.Equal(t, number.Zero(), r.Remaining(2))
	assert.ErrorIs(t, r.Update(2, number.NewFromScaledUint64(1)), ErrRateLimitExceeded)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.Validate())
	assert.Equal(t, Unlimited(), cfg.MaxOutflow)

	r := New(cfg, 0)
	for slot := uint64(0); slot < 3; slot++ {
		require.Nil(t, r.Update(slot, number.NewFromUint64(1<<60)))
	}

	assert.ErrorIs(t, Config{}.Validate(), ErrInvalidConfig)
}

func TestScan(t *testing.T) {
	r := New(Config{WindowDuration: 7, MaxOutflow: number.NewFromUint64(9)}, 3)
	require.Nil(t, r.Update(4, number.MustFromString("1.5")))

	v, err := r.Value()
	require.Nil(t, err)

	var out RateLimiter
	require.Nil(t, out.Scan(v))
	assert.Equal(t, r, out)
}
