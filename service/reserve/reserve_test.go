package reserve

import (
	"context"
	"fmt"
	"testing"
	"time"

	"lending/core"
	"lending/pkg/id"
	"lending/pkg/lending"
	"lending/pkg/metrics"
	"lending/pkg/number"
	"lending/pkg/ratelimiter"

	"github.com/fox-one/pkg/store/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReserves struct {
	core.IReserveStore
	data map[string]*core.Reserve
}

func (s *memReserves) Create(_ context.Context, _ *db.DB, r *core.Reserve) error {
	s.data[r.ID] = r.Clone()
	return nil
}

func (s *memReserves) Find(_ context.Context, id string) (*core.Reserve, error) {
	r, ok := s.data[id]
	if !ok {
		return nil, core.ErrReserveNotFound
	}

	return r.Clone(), nil
}

func (s *memReserves) Update(_ context.Context, _ *db.DB, r *core.Reserve) error {
	if s.data[r.ID].Version != r.Version {
		return core.ErrVersionConflict
	}

	r.Version++
	s.data[r.ID] = r.Clone()
	return nil
}

type memTransactions struct {
	core.TransactionStore
	data []*core.Transaction
}

func (s *memTransactions) Create(_ context.Context, _ *db.DB, t *core.Transaction) error {
	for _, stored := range s.data {
		if stored.TraceID == t.TraceID {
			return fmt.Errorf("duplicate trace id %s", t.TraceID)
		}
	}

	s.data = append(s.data, t)
	return nil
}

func (s *memTransactions) FindByTraceID(_ context.Context, traceID string) (*core.Transaction, error) {
	for _, t := range s.data {
		if t.TraceID == traceID {
			return t, nil
		}
	}

	return nil, nil
}

type fixedOracle struct {
	core.IPriceOracleService
	price number.Decimal
}

func (o *fixedOracle) GetPrice(_ context.Context, _ *core.Reserve) (number.Decimal, error) {
	return o.price, nil
}

type fixedSlots struct {
	slot uint64
}

func (s *fixedSlots) CurrentSlot(_ context.Context) (uint64, error)          { return s.slot, nil }
func (s *fixedSlots) GetSlot(_ context.Context, _ time.Time) (uint64, error) { return s.slot, nil }
func (s *fixedSlots) WithSlot(ctx context.Context, _ uint64) context.Context { return ctx }

func newTestService() (*service, *memReserves, *memTransactions, *fixedOracle, *fixedSlots) {
	reserves := &memReserves{data: map[string]*core.Reserve{}}
	transactions := &memTransactions{}
	oracle := &fixedOracle{price: number.One()}
	slots := &fixedSlots{slot: 10}

	s := &service{
		tx:           func(fn func(tx *db.DB) error) error { return fn(nil) },
		reserves:     reserves,
		transactions: transactions,
		oracle:       oracle,
		slots:        slots,
		metrics:      metrics.New("test"),
	}

	return s, reserves, transactions, oracle, slots
}

func TestReserveService(t *testing.T) {
	ctx := context.Background()
	s, reserves, transactions, oracle, slots := newTestService()

	cfg := lending.DefaultReserveConfig()
	r, err := s.Init(ctx, &core.InitReserveRequest{
		Symbol:       "USDC",
		MintDecimals: 6,
		Price:        number.One(),
		Config:       cfg,
		RateLimiter:  ratelimiter.DefaultConfig(),
	})
	require.NoError(t, err)
	assert.True(t, r.LastUpdate.Stale)
	assert.Contains(t, reserves.data, r.ID)

	r, err = s.DepositLiquidity(ctx, r.ID, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), r.Liquidity.AvailableAmount)
	assert.True(t, r.LastUpdate.Stale)

	oracle.price = number.MustFromString("0.99")
	slots.slot = 12
	r, err = s.Refresh(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, r.LastUpdate.IsStale(12))
	assert.Equal(t, number.MustFromString("0.99"), reserves.data[r.ID].Liquidity.MarketPrice)

	cfg.AttributedBorrowLimit = number.NewFromUint64(5)
	r, err = s.UpdateConfig(ctx, r.ID, cfg, ratelimiter.Config{WindowDuration: 10, MaxOutflow: number.NewFromUint64(100)})
	require.NoError(t, err)
	assert.Equal(t, number.NewFromUint64(5), reserves.data[r.ID].Config.AttributedBorrowLimit)
	assert.Equal(t, uint64(10), reserves.data[r.ID].RateLimiter.Config.WindowDuration)

	require.Len(t, transactions.data, 4)
	assert.Equal(t, core.ActionTypeUpdateReserveConfig, transactions.data[3].Action)
	assert.Equal(t, r.ID, transactions.data[3].ReserveID)
}

func TestReserveServiceRejects(t *testing.T) {
	ctx := context.Background()
	s, reserves, transactions, oracle, _ := newTestService()

	_, err := s.Init(ctx, &core.InitReserveRequest{Symbol: "BAD", Config: lending.DefaultReserveConfig(), RateLimiter: ratelimiter.DefaultConfig()})
	assert.ErrorIs(t, err, core.ErrInvalidPrice)
	assert.Empty(t, reserves.data)

	r, err := s.Init(ctx, &core.InitReserveRequest{Symbol: "USDC", Price: number.One(), Config: lending.DefaultReserveConfig(), RateLimiter: ratelimiter.DefaultConfig()})
	require.NoError(t, err)

	cfg := lending.DefaultReserveConfig()
	cfg.LoanToValueRatio = 100
	_, err = s.UpdateConfig(ctx, r.ID, cfg, ratelimiter.DefaultConfig())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	oracle.price = number.Zero()
	_, err = s.DepositLiquidity(ctx, r.ID, 1)
	assert.ErrorIs(t, err, core.ErrInvalidPrice)

	assert.Equal(t, lending.DefaultReserveConfig(), reserves.data[r.ID].Config)
	assert.Len(t, transactions.data, 1)

	_, err = s.Refresh(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrReserveNotFound)
}

func TestReserveServiceRetry(t *testing.T) {
	ctx := id.WithRequestID(context.Background(), "request")
	s, reserves, transactions, _, slots := newTestService()

	req := &core.InitReserveRequest{Symbol: "USDC", Price: number.One(), Config: lending.DefaultReserveConfig(), RateLimiter: ratelimiter.DefaultConfig()}
	r, err := s.Init(ctx, req)
	require.NoError(t, err)

	again, err := s.Init(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, r.ID, again.ID)
	assert.Len(t, transactions.data, 1)

	r, err = s.DepositLiquidity(ctx, r.ID, 1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), r.Liquidity.AvailableAmount)

	slots.slot++
	again, err = s.DepositLiquidity(ctx, r.ID, 1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), again.Liquidity.AvailableAmount)
	assert.Equal(t, uint64(1_000), reserves.data[r.ID].Liquidity.AvailableAmount)
	assert.Len(t, transactions.data, 2)
}
