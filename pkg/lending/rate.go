package lending

import (
	"lending/core"
	"lending/pkg/number"
)

// SlotsPerYear 2 slots per second
const SlotsPerYear uint64 = 63_072_000

// UtilizationRate borrowed / (borrowed + available), 0 for an empty reserve
func UtilizationRate(l core.ReserveLiquidity) (number.Decimal, error) {
	total, err := l.BorrowedAmountWads.Add(number.NewFromUint64(l.AvailableAmount))
	if err != nil {
		return number.Zero(), err
	}

	if total.IsZero() {
		return number.Zero(), nil
	}

	return l.BorrowedAmountWads.Div(total)
}

// CurrentBorrowRate annual borrow rate on a curve through
// (0, min), (optimal utilization, optimal rate) and (1, max)
func CurrentBorrowRate(r *core.Reserve) (number.Decimal, error) {
	utilization, err := UtilizationRate(r.Liquidity)
	if err != nil {
		return number.Zero(), err
	}

	cfg := r.Config
	optimalUtilization := number.NewFromPercent(cfg.OptimalUtilizationRate)
	minRate := number.NewFromPercent(cfg.MinBorrowRate)
	optimalRate := number.NewFromPercent(cfg.OptimalBorrowRate)
	maxRate := number.NewFromPercent(cfg.MaxBorrowRate)

	if utilization.LessThan(optimalUtilization) || cfg.OptimalUtilizationRate == 100 {
		normalized, err := utilization.Div(optimalUtilization)
		if err != nil {
			return number.Zero(), err
		}

		return interpolate(minRate, optimalRate, normalized)
	}

	excess, err := utilization.Sub(optimalUtilization)
	if err != nil {
		return number.Zero(), err
	}

	span, err := number.One().Sub(optimalUtilization)
	if err != nil {
		return number.Zero(), err
	}

	normalized, err := excess.Div(span)
	if err != nil {
		return number.Zero(), err
	}

	return interpolate(optimalRate, maxRate, normalized)
}

// interpolate from + (to - from) * t
func interpolate(from, to, t number.Decimal) (number.Decimal, error) {
	span, err := to.Sub(from)
	if err != nil {
		return number.Zero(), err
	}

	delta, err := span.Mul(t)
	if err != nil {
		return number.Zero(), err
	}

	return from.Add(delta)
}

// CompoundedInterest (1 + rate / SlotsPerYear) ^ slots
func CompoundedInterest(rate number.Decimal, slots uint64) (number.Decimal, error) {
	perSlot, err := rate.DivUint64(SlotsPerYear)
	if err != nil {
		return number.Zero(), err
	}

	base, err := number.One().Add(perSlot)
	if err != nil {
		return number.Zero(), err
	}

	return base.Pow(slots)
}
