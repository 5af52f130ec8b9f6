package lending

import (
	"fmt"

	"lending/core"
	"lending/pkg/number"
)

// Reserves reserves touched by an obligation operation, keyed by id
type Reserves map[string]*core.Reserve

// NewReserves index reserves by id
func NewReserves(reserves ...*core.Reserve) Reserves {
	rs := make(Reserves, len(reserves))
	for _, r := range reserves {
		rs[r.ID] = r
	}

	return rs
}

// Clone deep copy
func (rs Reserves) Clone() Reserves {
	c := make(Reserves, len(rs))
	for id, r := range rs {
		c[id] = r.Clone()
	}

	return c
}

// Get reserve by id, ErrReserveNotFound if absent
func (rs Reserves) Get(id string) (*core.Reserve, error) {
	r, ok := rs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrReserveNotFound, id)
	}

	return r, nil
}

// atomically runs fn on copies and commits them only when fn succeeds
func atomically(o *core.Obligation, reserves Reserves, fn func(o *core.Obligation, reserves Reserves) error) error {
	oc, rc := o.Clone(), reserves.Clone()
	if err := fn(oc, rc); err != nil {
		return err
	}

	*o = *oc
	for id, r := range rc {
		*reserves[id] = *r
	}

	return nil
}

// updateTotals recompute the cached obligation totals from entry market values
func updateTotals(o *core.Obligation, reserves Reserves) error {
	var (
		deposited = number.Zero()
		allowed   = number.Zero()
		unhealthy = number.Zero()
		borrowed  = number.Zero()
	)

	for _, d := range o.Deposits {
		r, err := reserves.Get(d.ReserveID)
		if err != nil {
			return err
		}

		if deposited, err = deposited.Add(d.MarketValue); err != nil {
			return err
		}

		ltv, err := d.MarketValue.Mul(number.NewFromPercent(r.Config.LoanToValueRatio))
		if err != nil {
			return err
		}

		if allowed, err = allowed.Add(ltv); err != nil {
			return err
		}

		threshold, err := d.MarketValue.Mul(number.NewFromPercent(r.Config.LiquidationThreshold))
		if err != nil {
			return err
		}

		if unhealthy, err = unhealthy.Add(threshold); err != nil {
			return err
		}
	}

	for _, b := range o.Borrows {
		var err error
		if borrowed, err = borrowed.Add(b.MarketValue); err != nil {
			return err
		}
	}

	o.DepositedValue = deposited
	o.AllowedBorrowValue = allowed
	o.UnhealthyBorrowValue = unhealthy
	o.BorrowedValue = borrowed
	return nil
}

// updateBorrowAttribution split BorrowedValue over the deposits in proportion to
// their market value and move every change into the deposit reserve aggregate.
// Shares truncate, the last deposit with a market value takes the remainder so
// the attributions add up to BorrowedValue exactly.
// Returns the reserves whose aggregate went up.
func updateBorrowAttribution(o *core.Obligation, reserves Reserves) (map[string]bool, error) {
	last := -1
	for i, d := range o.Deposits {
		if !d.MarketValue.IsZero() {
			last = i
		}
	}

	grown := make(map[string]bool)
	remaining := o.BorrowedValue
	for i := range o.Deposits {
		d := &o.Deposits[i]

		attributed := number.Zero()
		switch {
		case o.DepositedValue.IsZero(), d.MarketValue.IsZero():
		case i == last:
			attributed = remaining
		default:
			share, err := number.MulDiv(d.MarketValue, o.BorrowedValue, o.DepositedValue)
			if err != nil {
				return nil, err
			}

			if remaining, err = remaining.Sub(share); err != nil {
				return nil, err
			}

			attributed = share
		}

		if attributed.Equal(d.AttributedBorrowValue) {
			continue
		}

		r, err := reserves.Get(d.ReserveID)
		if err != nil {
			return nil, err
		}

		aggregate, err := r.AttributedBorrowValue.Sub(d.AttributedBorrowValue)
		if err != nil {
			return nil, err
		}

		if aggregate, err = aggregate.Add(attributed); err != nil {
			return nil, err
		}

		if attributed.GreaterThan(d.AttributedBorrowValue) {
			grown[d.ReserveID] = true
		}

		r.AttributedBorrowValue = aggregate
		d.AttributedBorrowValue = attributed
	}

	return grown, nil
}

// checkAttributedBorrowLimits every grown reserve must stay within its limit
func checkAttributedBorrowLimits(grown map[string]bool, reserves Reserves) error {
	for id := range grown {
		r, err := reserves.Get(id)
		if err != nil {
			return err
		}

		if r.AttributedBorrowValue.GreaterThan(r.Config.AttributedBorrowLimit) {
			return fmt.Errorf("%w: reserve %s attributed borrow value %s above limit %s",
				core.ErrBorrowTooLarge, r.Symbol, r.AttributedBorrowValue, r.Config.AttributedBorrowLimit)
		}
	}

	return nil
}
