package lending

import (
	"errors"
	"testing"

	"lending/core"
	"lending/pkg/number"
	"lending/pkg/ratelimiter"

	"github.com/bmizerany/assert"
)

func TestCurrentBorrowRate(t *testing.T) {
	cfg := DefaultReserveConfig()
	cfg.OptimalUtilizationRate = 80
	cfg.MinBorrowRate = 2
	cfg.OptimalBorrowRate = 10
	cfg.MaxBorrowRate = 50

	for name, tc := range map[string]struct {
		available uint64
		borrowed  uint64
		rate      string
	}{
		"empty":       {rate: "0.02"},
		"unused":      {available: 100, rate: "0.02"},
		"half way":    {available: 60, borrowed: 40, rate: "0.06"},
		"optimal":     {available: 20, borrowed: 80, rate: "0.1"},
		"above kink":  {available: 10, borrowed: 90, rate: "0.3"},
		"fully used":  {borrowed: 100, rate: "0.5"},
		"low optimal": {available: 90, borrowed: 10, rate: "0.03"},
	} {
		t.Run(name, func(t *testing.T) {
			r := &core.Reserve{Config: cfg}
			r.Liquidity.AvailableAmount = tc.available
			r.Liquidity.BorrowedAmountWads = number.NewFromUint64(tc.borrowed)

			rate, err := CurrentBorrowRate(r)
			assert.Equal(t, nil, err)
			assert.Equal(t, number.MustFromString(tc.rate), rate)
		})
	}

	t.Run("optimal at 100", func(t *testing.T) {
		r := &core.Reserve{Config: cfg}
		r.Config.OptimalUtilizationRate = 100
		r.Liquidity.BorrowedAmountWads = number.NewFromUint64(100)

		rate, err := CurrentBorrowRate(r)
		assert.Equal(t, nil, err)
		assert.Equal(t, number.MustFromString("0.1"), rate)
	})
}

func TestCompoundedInterest(t *testing.T) {
	factor, err := CompoundedInterest(number.Zero(), 1_000)
	assert.Equal(t, nil, err)
	assert.Equal(t, number.One(), factor)

	factor, err = CompoundedInterest(number.MustFromString("0.1"), 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, number.One(), factor)

	// one year of 10% per slot compounding lands just under e^0.1
	factor, err = CompoundedInterest(number.MustFromString("0.1"), SlotsPerYear)
	assert.Equal(t, nil, err)
	assert.T(t, factor.GreaterThan(number.MustFromString("1.105")))
	assert.T(t, factor.LessThan(number.MustFromString("1.10518")))
}

func newTestReserve(t *testing.T, cfg core.ReserveConfig, slot uint64) *core.Reserve {
	r, err := InitReserve("r", &core.InitReserveRequest{
		Symbol:       "R",
		MintDecimals: 6,
		Price:        number.NewFromUint64(2),
		Config:       cfg,
		RateLimiter:  ratelimiter.DefaultConfig(),
	}, slot)
	assert.Equal(t, nil, err)
	return r
}

func TestInitReserve(t *testing.T) {
	r := newTestReserve(t, DefaultReserveConfig(), 7)
	assert.Equal(t, core.LastUpdate{Slot: 7, Stale: true}, r.LastUpdate)
	assert.Equal(t, number.One(), r.Liquidity.CumulativeBorrowRateWads)
	assert.T(t, r.AttributedBorrowValue.IsZero())

	_, err := InitReserve("r", &core.InitReserveRequest{
		Config:      DefaultReserveConfig(),
		RateLimiter: ratelimiter.DefaultConfig(),
	}, 7)
	assert.T(t, errors.Is(err, core.ErrInvalidPrice))

	_, err = InitReserve("r", &core.InitReserveRequest{
		Price:  number.One(),
		Config: DefaultReserveConfig(),
	}, 7)
	assert.T(t, errors.Is(err, core.ErrInvalidConfig))

	for _, decimals := range []uint8{MaxMintDecimals + 1, 255} {
		_, err = InitReserve("r", &core.InitReserveRequest{
			MintDecimals: decimals,
			Price:        number.One(),
			Config:       DefaultReserveConfig(),
			RateLimiter:  ratelimiter.DefaultConfig(),
		}, 7)
		assert.T(t, errors.Is(err, core.ErrInvalidConfig))
	}

	r, err = InitReserve("r", &core.InitReserveRequest{
		MintDecimals: MaxMintDecimals,
		Price:        number.One(),
		Config:       DefaultReserveConfig(),
		RateLimiter:  ratelimiter.DefaultConfig(),
	}, 7)
	assert.Equal(t, nil, err)
	_, err = MarketValue(r, number.NewFromUint64(1))
	assert.Equal(t, nil, err)
}

func TestRefreshReserve(t *testing.T) {
	cfg := DefaultReserveConfig()
	cfg.MinBorrowRate = 10
	cfg.OptimalBorrowRate = 10
	cfg.MaxBorrowRate = 10
	cfg.ProtocolTakeRate = 20

	r := newTestReserve(t, cfg, 100)
	assert.Equal(t, nil, DepositReserveLiquidity(r, 1_000_000))
	r.Liquidity.AvailableAmount -= 500_000
	r.Liquidity.BorrowedAmountWads = number.NewFromUint64(500_000)

	t.Run("ahead of current slot", func(t *testing.T) {
		c := r.Clone()
		err := RefreshReserve(c, number.One(), 101, 100)
		assert.T(t, errors.Is(err, core.ErrInvalidSlot))
		assert.Equal(t, r, c)
	})

	t.Run("zero price", func(t *testing.T) {
		c := r.Clone()
		err := RefreshReserve(c, number.Zero(), 100, 100)
		assert.T(t, errors.Is(err, core.ErrInvalidPrice))
		assert.Equal(t, r, c)
	})

	t.Run("behind the last update", func(t *testing.T) {
		c := r.Clone()
		err := RefreshReserve(c, number.One(), 99, 100)
		assert.T(t, errors.Is(err, core.ErrMathUnderflow))
	})

	t.Run("behind the current slot stays stale", func(t *testing.T) {
		c := r.Clone()
		assert.Equal(t, nil, RefreshReserve(c, number.One(), 100, 105))
		assert.T(t, c.LastUpdate.IsStale(105))
		assert.Equal(t, number.One(), c.Liquidity.MarketPrice)
	})

	t.Run("accrues interest", func(t *testing.T) {
		c := r.Clone()
		assert.Equal(t, nil, RefreshReserve(c, number.NewFromUint64(3), 200, 200))
		assert.T(t, !c.LastUpdate.IsStale(200))
		assert.Equal(t, number.NewFromUint64(3), c.Liquidity.MarketPrice)

		factor, err := CompoundedInterest(number.MustFromString("0.1"), 100)
		assert.Equal(t, nil, err)
		assert.Equal(t, factor, c.Liquidity.CumulativeBorrowRateWads)

		borrowed, _ := number.NewFromUint64(500_000).Mul(factor)
		assert.Equal(t, borrowed, c.Liquidity.BorrowedAmountWads)

		interest, _ := borrowed.Sub(number.NewFromUint64(500_000))
		fees, _ := interest.Mul(number.NewFromPercent(20))
		assert.Equal(t, fees, c.Liquidity.AccumulatedProtocolFeesWads)

		// same slot again changes nothing
		again := c.Clone()
		assert.Equal(t, nil, RefreshReserve(again, number.NewFromUint64(3), 200, 200))
		assert.Equal(t, c, again)
	})
}

func TestAccrueObligationBorrow(t *testing.T) {
	b := core.ObligationLiquidity{
		CumulativeBorrowRateWads: number.One(),
		BorrowedAmountWads:       number.NewFromUint64(1_000),
	}

	assert.Equal(t, nil, accrueBorrow(&b, number.MustFromString("1.5")))
	assert.Equal(t, number.NewFromUint64(1_500), b.BorrowedAmountWads)
	assert.Equal(t, number.MustFromString("1.5"), b.CumulativeBorrowRateWads)

	assert.Equal(t, nil, accrueBorrow(&b, number.MustFromString("1.5")))
	assert.Equal(t, number.NewFromUint64(1_500), b.BorrowedAmountWads)

	err := accrueBorrow(&b, number.MustFromString("1.2"))
	assert.Equal(t, core.ErrNegativeInterestRate, err)
}

func TestDepositReserveLiquidity(t *testing.T) {
	cfg := DefaultReserveConfig()
	cfg.DepositLimit = 1_000

	r := newTestReserve(t, cfg, 1)
	assert.Equal(t, nil, RefreshReserve(r, number.One(), 1, 1))

	assert.Equal(t, nil, DepositReserveLiquidity(r, 1_000))
	assert.Equal(t, uint64(1_000), r.Liquidity.AvailableAmount)
	assert.T(t, r.LastUpdate.Stale)

	err := DepositReserveLiquidity(r, 1)
	assert.T(t, errors.Is(err, core.ErrInvalidAmount))
	assert.Equal(t, uint64(1_000), r.Liquidity.AvailableAmount)

	err = DepositReserveLiquidity(r, 0)
	assert.T(t, errors.Is(err, core.ErrInvalidAmount))
}

func TestUpdateReserveConfig(t *testing.T) {
	r := newTestReserve(t, DefaultReserveConfig(), 1)

	for name, mutate := range map[string]func(c *core.ReserveConfig){
		"ltv at 100":              func(c *core.ReserveConfig) { c.LoanToValueRatio = 100 },
		"threshold below ltv":     func(c *core.ReserveConfig) { c.LiquidationThreshold = c.LoanToValueRatio - 1 },
		"optimal rate below min":  func(c *core.ReserveConfig) { c.MinBorrowRate = c.OptimalBorrowRate + 1 },
		"optimal rate above max":  func(c *core.ReserveConfig) { c.MaxBorrowRate = c.OptimalBorrowRate - 1 },
		"borrow fee of 100%":      func(c *core.ReserveConfig) { c.Fees.BorrowFeeWad = 1_000_000_000_000_000_000 },
		"host fee above 100":      func(c *core.ReserveConfig) { c.Fees.HostFeePercentage = 101 },
		"utilization above 100":   func(c *core.ReserveConfig) { c.OptimalUtilizationRate = 101 },
		"protocol take above 100": func(c *core.ReserveConfig) { c.ProtocolTakeRate = 101 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultReserveConfig()
			mutate(&cfg)

			c := r.Clone()
			err := UpdateReserveConfig(c, cfg, ratelimiter.DefaultConfig())
			assert.T(t, errors.Is(err, core.ErrInvalidConfig))
			assert.Equal(t, r, c)
		})
	}

	t.Run("zero window", func(t *testing.T) {
		c := r.Clone()
		err := UpdateReserveConfig(c, DefaultReserveConfig(), ratelimiter.Config{})
		assert.T(t, errors.Is(err, core.ErrInvalidConfig))
	})

	t.Run("applied", func(t *testing.T) {
		c := r.Clone()
		assert.Equal(t, nil, RefreshReserve(c, number.One(), 1, 1))

		cfg := DefaultReserveConfig()
		cfg.AttributedBorrowLimit = number.NewFromUint64(10)
		limiter := ratelimiter.Config{WindowDuration: 5, MaxOutflow: number.NewFromUint64(100)}
		assert.Equal(t, nil, UpdateReserveConfig(c, cfg, limiter))
		assert.Equal(t, cfg, c.Config)
		assert.Equal(t, limiter, c.RateLimiter.Config)
		assert.T(t, c.LastUpdate.Stale)
	})
}

func TestMarketValue(t *testing.T) {
	r := newTestReserve(t, DefaultReserveConfig(), 1)

	v, err := MarketValue(r, number.NewFromUint64(1_500_000))
	assert.Equal(t, nil, err)
	assert.Equal(t, number.NewFromUint64(3), v)

	v, err = MarketValue(r, number.NewFromUint64(1))
	assert.Equal(t, nil, err)
	assert.Equal(t, number.MustFromString("0.000002"), v)
}
