package lending

import (
	"fmt"
	"math"

	"lending/core"
	"lending/pkg/number"
	"lending/pkg/ratelimiter"
)

// MaxMintDecimals largest mint precision whose unit still fits a wad
const MaxMintDecimals = 58

// DefaultReserveConfig conservative curve with every limit open
func DefaultReserveConfig() core.ReserveConfig {
	return core.ReserveConfig{
		OptimalUtilizationRate: 80,
		LoanToValueRatio:       50,
		LiquidationBonus:       5,
		LiquidationThreshold:   55,
		MinBorrowRate:          0,
		OptimalBorrowRate:      4,
		MaxBorrowRate:          30,
		DepositLimit:           math.MaxUint64,
		BorrowLimit:            math.MaxUint64,
		AttributedBorrowLimit:  number.MaxUint64(),
	}
}

// InitReserve new stale reserve with an empty pool
func InitReserve(id string, req *core.InitReserveRequest, slot uint64) (*core.Reserve, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	if err := req.RateLimiter.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	if err := Require(!req.Price.IsZero(), core.ErrInvalidPrice); err != nil {
		return nil, err
	}

	if req.MintDecimals > MaxMintDecimals {
		return nil, fmt.Errorf("%w: mint decimals must be in range [0, %d]", core.ErrInvalidConfig, MaxMintDecimals)
	}

	return &core.Reserve{
		ID:         id,
		Symbol:     req.Symbol,
		LastUpdate: core.NewLastUpdate(slot),
		Liquidity: core.ReserveLiquidity{
			MintDecimals:             req.MintDecimals,
			CumulativeBorrowRateWads: number.One(),
			MarketPrice:              req.Price,
		},
		Config:      req.Config,
		RateLimiter: ratelimiter.New(req.RateLimiter, slot),
	}, nil
}

// TotalSupply available + borrowed - protocol fees
func TotalSupply(l core.ReserveLiquidity) (number.Decimal, error) {
	total, err := number.NewFromUint64(l.AvailableAmount).Add(l.BorrowedAmountWads)
	if err != nil {
		return number.Zero(), err
	}

	return total.Sub(l.AccumulatedProtocolFeesWads)
}

// AccrueInterest compound borrow interest from the last update up to slot
func AccrueInterest(r *core.Reserve, slot uint64) error {
	elapsed, err := r.LastUpdate.SlotsElapsed(slot)
	if err != nil || elapsed == 0 {
		return err
	}

	rate, err := CurrentBorrowRate(r)
	if err != nil {
		return err
	}

	factor, err := CompoundedInterest(rate, elapsed)
	if err != nil {
		return err
	}

	l := r.Liquidity
	cumulative, err := l.CumulativeBorrowRateWads.Mul(factor)
	if err != nil {
		return err
	}

	borrowed, err := l.BorrowedAmountWads.Mul(factor)
	if err != nil {
		return err
	}

	newDebt, err := borrowed.Sub(l.BorrowedAmountWads)
	if err != nil {
		return err
	}

	protocolShare, err := newDebt.Mul(number.NewFromPercent(r.Config.ProtocolTakeRate))
	if err != nil {
		return err
	}

	fees, err := l.AccumulatedProtocolFeesWads.Add(protocolShare)
	if err != nil {
		return err
	}

	r.Liquidity.CumulativeBorrowRateWads = cumulative
	r.Liquidity.BorrowedAmountWads = borrowed
	r.Liquidity.AccumulatedProtocolFeesWads = fees
	return nil
}

// RefreshReserve accrue interest to slot and take the new price.
// The reserve is fresh afterwards only when slot is the current slot.
func RefreshReserve(r *core.Reserve, price number.Decimal, slot, currentSlot uint64) error {
	if err := Require(slot <= currentSlot, core.ErrInvalidSlot, "refresh slot ahead of current slot"); err != nil {
		return err
	}

	if err := Require(!price.IsZero(), core.ErrInvalidPrice); err != nil {
		return err
	}

	c := r.Clone()
	if err := AccrueInterest(c, slot); err != nil {
		return err
	}

	c.Liquidity.MarketPrice = price
	c.LastUpdate.Update(slot)
	if slot != currentSlot {
		c.LastUpdate.MarkStale()
	}

	*r = *c
	return nil
}

// DepositReserveLiquidity add liquidity to the pool
func DepositReserveLiquidity(r *core.Reserve, amount uint64) error {
	if err := Require(amount > 0, core.ErrInvalidAmount); err != nil {
		return err
	}

	available := r.Liquidity.AvailableAmount + amount
	if available < amount {
		return core.ErrMathOverflow
	}

	supply, err := TotalSupply(r.Liquidity)
	if err != nil {
		return err
	}

	supply, err = supply.Add(number.NewFromUint64(amount))
	if err != nil {
		return err
	}

	if supply.GreaterThan(number.NewFromUint64(r.Config.DepositLimit)) {
		return fmt.Errorf("%w: deposit limit %d exceeded", core.ErrInvalidAmount, r.Config.DepositLimit)
	}

	r.Liquidity.AvailableAmount = available
	r.LastUpdate.MarkStale()
	return nil
}

// UpdateReserveConfig replace both configs. The current aggregate and
// window total are not checked against the new limits.
func UpdateReserveConfig(r *core.Reserve, cfg core.ReserveConfig, limiter ratelimiter.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := limiter.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	r.Config = cfg
	r.RateLimiter.SetConfig(limiter)
	r.LastUpdate.MarkStale()
	return nil
}

// MarketValue value of amount token units at the reserve price
func MarketValue(r *core.Reserve, amount number.Decimal) (number.Decimal, error) {
	unit, err := number.NewFromUint64(10).Pow(uint64(r.Liquidity.MintDecimals))
	if err != nil {
		return number.Zero(), err
	}

	return number.MulDiv(amount, r.Liquidity.MarketPrice, unit)
}

// borrowFees fee charged on top of amount and the host share of it
func borrowFees(fees core.ReserveFees, amount uint64) (fee, host uint64, err error) {
	if fees.BorrowFeeWad == 0 || amount == 0 {
		return 0, 0, nil
	}

	v, err := number.NewFromUint64(amount).Mul(number.NewFromScaledUint64(fees.BorrowFeeWad))
	if err != nil {
		return 0, 0, err
	}

	if fee, err = v.Ceil(); err != nil {
		return 0, 0, err
	}

	hv, err := number.NewFromUint64(fee).Mul(number.NewFromPercent(fees.HostFeePercentage))
	if err != nil {
		return 0, 0, err
	}

	if host, err = hv.Floor(); err != nil {
		return 0, 0, err
	}

	return fee, host, nil
}
