package obligation

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
	data     map[string]*core.Reserve
	conflict string
}

func (s *memReserves) Find(_ context.Context, id string) (*core.Reserve, error) {
	r, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrReserveNotFound, id)
	}

	return r.Clone(), nil
}

func (s *memReserves) Update(_ context.Context, _ *db.DB, r *core.Reserve) error {
	stored := s.data[r.ID]
	if r.ID == s.conflict || stored.Version != r.Version {
		return core.ErrVersionConflict
	}

	r.Version++
	s.data[r.ID] = r.Clone()
	return nil
}

type memObligations struct {
	core.IObligationStore
	data map[string]*core.Obligation
}

func (s *memObligations) Create(_ context.Context, _ *db.DB, o *core.Obligation) error {
	s.data[o.ID] = o.Clone()
	return nil
}

func (s *memObligations) Find(_ context.Context, id string) (*core.Obligation, error) {
	o, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrObligationNotFound, id)
	}

	return o.Clone(), nil
}

func (s *memObligations) Update(_ context.Context, _ *db.DB, o *core.Obligation) error {
	if s.data[o.ID].Version != o.Version {
		return core.ErrVersionConflict
	}

	o.Version++
	s.data[o.ID] = o.Clone()
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

type marketOracle struct {
	core.IPriceOracleService
}

func (marketOracle) GetPrice(_ context.Context, r *core.Reserve) (number.Decimal, error) {
	return r.Liquidity.MarketPrice, nil
}

type fixedSlots struct {
	slot uint64
}

func (s *fixedSlots) CurrentSlot(_ context.Context) (uint64, error) {
	return s.slot, nil
}

func (s *fixedSlots) GetSlot(_ context.Context, _ time.Time) (uint64, error) {
	return s.slot, nil
}

func (s *fixedSlots) WithSlot(ctx context.Context, _ uint64) context.Context {
	return ctx
}

type fixture struct {
	svc          *service
	reserves     *memReserves
	obligations  *memObligations
	transactions *memTransactions
	slots        *fixedSlots
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		reserves:     &memReserves{data: map[string]*core.Reserve{}},
		obligations:  &memObligations{data: map[string]*core.Obligation{}},
		transactions: &memTransactions{},
		slots:        &fixedSlots{slot: 100},
	}

	cfg := lending.DefaultReserveConfig()
	cfg.LoanToValueRatio = 80
	cfg.LiquidationThreshold = 81
	cfg.OptimalBorrowRate = 0
	cfg.MaxBorrowRate = 0

	for _, params := range []struct {
		id       string
		decimals uint8
		price    uint64
		supply   uint64
	}{
		{"usdc", 6, 1, 100_000_000_000},
		{"sol", 9, 10, 100_000_000_000},
	} {
		r, err := lending.InitReserve(params.id, &core.InitReserveRequest{
			Symbol:       params.id,
			MintDecimals: params.decimals,
			Price:        number.NewFromUint64(params.price),
			Config:       cfg,
			RateLimiter:  ratelimiter.DefaultConfig(),
		}, f.slots.slot)
		require.NoError(t, err)
		require.NoError(t, lending.DepositReserveLiquidity(r, params.supply))
		f.reserves.data[r.ID] = r
	}

	f.svc = &service{
		obligations:  f.obligations,
		reserves:     f.reserves,
		transactions: f.transactions,
		oracle:       marketOracle{},
		slots:        f.slots,
		metrics:      metrics.New("test"),
	}
	f.svc.tx = f.rollbackTx

	return f
}

// rollbackTx restores the in-memory stores when fn fails
func (f *fixture) rollbackTx(fn func(tx *db.DB) error) error {
	reserves := make(map[string]*core.Reserve, len(f.reserves.data))
	for k, v := range f.reserves.data {
		reserves[k] = v.Clone()
	}

	obligations := make(map[string]*core.Obligation, len(f.obligations.data))
	for k, v := range f.obligations.data {
		obligations[k] = v.Clone()
	}

	transactions := len(f.transactions.data)
	if err := fn(nil); err != nil {
		f.reserves.data = reserves
		f.obligations.data = obligations
		f.transactions.data = f.transactions.data[:transactions]
		return err
	}

	return nil
}

func (f *fixture) open(t *testing.T, usdc, sol, borrowUSDC, borrowSOL uint64) *core.Obligation {
	ctx := context.Background()
	o, err := f.svc.Init(ctx, "owner")
	require.NoError(t, err)

	_, err = f.svc.DepositCollateral(ctx, o.ID, "usdc", usdc)
	require.NoError(t, err)
	_, err = f.svc.DepositCollateral(ctx, o.ID, "sol", sol)
	require.NoError(t, err)
	_, err = f.svc.Borrow(ctx, o.ID, "usdc", borrowUSDC)
	require.NoError(t, err)
	_, err = f.svc.Borrow(ctx, o.ID, "sol", borrowSOL)
	require.NoError(t, err)

	return f.obligations.data[o.ID]
}

func TestObligationService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	o0 := f.open(t, 80_000_000, 2_000_000_000, 10_000_000, 1_000_000_000)
	o1 := f.open(t, 400_000_000, 10_000_000_000, 100_000_000, 2_000_000_000)

	assert.Equal(t, number.NewFromUint64(112), f.reserves.data["usdc"].AttributedBorrowValue)
	assert.Equal(t, number.NewFromUint64(28), f.reserves.data["sol"].AttributedBorrowValue)

	usdc := f.reserves.data["usdc"]
	usdc.Config.AttributedBorrowLimit = number.NewFromUint64(113)

	logged := len(f.transactions.data)
	before := f.obligations.data[o0.ID].Clone()
	_, err := f.svc.Borrow(ctx, o0.ID, "usdc", 10_000_000)
	assert.ErrorIs(t, err, core.ErrBorrowTooLarge)
	assert.Equal(t, before, f.obligations.data[o0.ID])
	assert.Equal(t, logged, len(f.transactions.data))

	usdc.Config.AttributedBorrowLimit = number.NewFromUint64(120)
	f.slots.slot++
	result, err := f.svc.Borrow(ctx, o0.ID, "usdc", 10_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), result.ReceiveAmount)
	assert.Equal(t, number.NewFromUint64(120), f.reserves.data["usdc"].AttributedBorrowValue)
	assert.Equal(t, number.NewFromUint64(30), f.reserves.data["sol"].AttributedBorrowValue)

	last := f.transactions.data[len(f.transactions.data)-1]
	assert.Equal(t, core.ActionTypeBorrow, last.Action)
	assert.Equal(t, o0.ID, last.ObligationID)
	assert.Equal(t, uint64(101), last.Slot)

	o0, err = f.svc.Refresh(ctx, o0.ID)
	require.NoError(t, err)
	assert.Equal(t, number.NewFromUint64(24), o0.Deposits[0].AttributedBorrowValue)
	assert.Equal(t, number.NewFromUint64(6), o0.Deposits[1].AttributedBorrowValue)

	var all []*core.Obligation
	for _, o := range f.obligations.data {
		all = append(all, o)
	}
	divergences, err := lending.AuditAttribution([]*core.Reserve{f.reserves.data["usdc"], f.reserves.data["sol"]}, all)
	require.NoError(t, err)
	assert.Empty(t, divergences)
	assert.NotEqual(t, o0.ID, o1.ID)
}

func TestObligationServiceRepayWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.open(t, 80_000_000, 2_000_000_000, 10_000_000, 1_000_000_000)

	repaid, err := f.svc.Repay(ctx, o.ID, "usdc", 50_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), repaid.RepayAmount)

	_, err = f.svc.WithdrawCollateral(ctx, o.ID, "usdc", 81_000_000)
	assert.ErrorIs(t, err, core.ErrInsufficientCollateral)

	o, err = f.svc.WithdrawCollateral(ctx, o.ID, "usdc", 80_000_000)
	require.NoError(t, err)
	require.Len(t, o.Deposits, 1)
	assert.Equal(t, "sol", o.Deposits[0].ReserveID)
	assert.Equal(t, number.NewFromUint64(10), o.Deposits[0].AttributedBorrowValue)
	assert.True(t, f.reserves.data["usdc"].AttributedBorrowValue.IsZero())
}

func TestObligationServiceVersionConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.open(t, 80_000_000, 2_000_000_000, 10_000_000, 1_000_000_000)

	reserves := map[string]*core.Reserve{
		"usdc": f.reserves.data["usdc"].Clone(),
		"sol":  f.reserves.data["sol"].Clone(),
	}
	before := f.obligations.data[o.ID].Clone()

	f.reserves.conflict = "usdc"
	_, err := f.svc.Borrow(ctx, o.ID, "sol", 100_000_000)
	assert.ErrorIs(t, err, core.ErrVersionConflict)
	assert.Equal(t, before, f.obligations.data[o.ID])
	assert.Equal(t, reserves, f.reserves.data)
}

func TestObligationServiceNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Borrow(ctx, "missing", "usdc", 1)
	assert.ErrorIs(t, err, core.ErrObligationNotFound)

	o, err := f.svc.Init(ctx, "owner")
	require.NoError(t, err)
	_, err = f.svc.DepositCollateral(ctx, o.ID, "btc", 1)
	assert.ErrorIs(t, err, core.ErrReserveNotFound)
}

func TestObligationServiceRetry(t *testing.T) {
	f := newFixture(t)
	o := f.open(t, 80_000_000, 2_000_000_000, 10_000_000, 1_000_000_000)

	t.Run("init", func(t *testing.T) {
		ctx := id.WithRequestID(context.Background(), "init-request")
		first, err := f.svc.Init(ctx, "bob")
		require.NoError(t, err)

		again, err := f.svc.Init(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Len(t, f.obligations.data, 2)
	})

	t.Run("borrow", func(t *testing.T) {
		ctx := id.WithRequestID(context.Background(), "borrow-request")
		first, err := f.svc.Borrow(ctx, o.ID, "usdc", 5_000_000)
		require.NoError(t, err)

		logged := len(f.transactions.data)
		obligation := f.obligations.data[o.ID].Clone()
		usdc := f.reserves.data["usdc"].Clone()

		f.slots.slot++
		again, err := f.svc.Borrow(ctx, o.ID, "usdc", 5_000_000)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, obligation, f.obligations.data[o.ID])
		assert.Equal(t, usdc, f.reserves.data["usdc"])
		assert.Len(t, f.transactions.data, logged)

		// same request id on another operation is a different trace
		repaid, err := f.svc.Repay(ctx, o.ID, "usdc", 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000), repaid.RepayAmount)
		assert.Len(t, f.transactions.data, logged+1)

		again2, err := f.svc.Repay(ctx, o.ID, "usdc", 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, repaid, again2)
		assert.Len(t, f.transactions.data, logged+1)
	})

	t.Run("deposit", func(t *testing.T) {
		ctx := id.WithRequestID(context.Background(), "deposit-request")
		first, err := f.svc.DepositCollateral(ctx, o.ID, "sol", 1_000_000_000)
		require.NoError(t, err)

		f.slots.slot++
		again, err := f.svc.DepositCollateral(ctx, o.ID, "sol", 1_000_000_000)
		require.NoError(t, err)
		assert.Equal(t, first.Deposits, again.Deposits)
		assert.Equal(t, uint64(3_000_000_000), again.Deposits[again.FindDeposit("sol")].DepositedAmount)
	})

	t.Run("rejected operation runs again", func(t *testing.T) {
		ctx := id.WithRequestID(context.Background(), "withdraw-request")
		_, err := f.svc.WithdrawCollateral(ctx, o.ID, "usdc", 81_000_000)
		assert.ErrorIs(t, err, core.ErrInsufficientCollateral)

		_, err = f.svc.WithdrawCollateral(ctx, o.ID, "usdc", 81_000_000)
		assert.ErrorIs(t, err, core.ErrInsufficientCollateral)
	})
}
