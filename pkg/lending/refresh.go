package lending

import (
	"fmt"

	"lending/core"
	"lending/pkg/number"
)

// InitObligation new empty stale obligation
func InitObligation(id, owner string, slot uint64) *core.Obligation {
	return &core.Obligation{
		ID:         id,
		Owner:      owner,
		LastUpdate: core.NewLastUpdate(slot),
	}
}

// accrueBorrow bring a borrow up to the reserve cumulative borrow rate
func accrueBorrow(b *core.ObligationLiquidity, cumulative number.Decimal) error {
	switch cumulative.Cmp(b.CumulativeBorrowRateWads) {
	case 0:
		return nil
	case -1:
		return core.ErrNegativeInterestRate
	}

	if b.CumulativeBorrowRateWads.IsZero() {
		b.CumulativeBorrowRateWads = cumulative
		return nil
	}

	borrowed, err := number.MulDiv(b.BorrowedAmountWads, cumulative, b.CumulativeBorrowRateWads)
	if err != nil {
		return err
	}

	b.BorrowedAmountWads = borrowed
	b.CumulativeBorrowRateWads = cumulative
	return nil
}

// RefreshObligation reprice deposits and borrows, accrue borrow interest and
// recompute the attribution. Every referenced reserve must be fresh at slot.
func RefreshObligation(o *core.Obligation, reserves Reserves, slot uint64) error {
	return atomically(o, reserves, func(o *core.Obligation, reserves Reserves) error {
		for i := range o.Deposits {
			d := &o.Deposits[i]
			r, err := freshReserve(reserves, d.ReserveID, slot)
			if err != nil {
				return err
			}

			if d.MarketValue, err = MarketValue(r, number.NewFromUint64(d.DepositedAmount)); err != nil {
				return err
			}
		}

		for i := range o.Borrows {
			b := &o.Borrows[i]
			r, err := freshReserve(reserves, b.ReserveID, slot)
			if err != nil {
				return err
			}

			if err := accrueBorrow(b, r.Liquidity.CumulativeBorrowRateWads); err != nil {
				return err
			}

			if b.MarketValue, err = MarketValue(r, b.BorrowedAmountWads); err != nil {
				return err
			}
		}

		if err := updateTotals(o, reserves); err != nil {
			return err
		}

		if _, err := updateBorrowAttribution(o, reserves); err != nil {
			return err
		}

		o.LastUpdate.Update(slot)
		return nil
	})
}

func freshReserve(reserves Reserves, id string, slot uint64) (*core.Reserve, error) {
	r, err := reserves.Get(id)
	if err != nil {
		return nil, err
	}

	if r.LastUpdate.IsStale(slot) {
		return nil, fmt.Errorf("%w: reserve %s", core.ErrStaleData, r.Symbol)
	}

	return r, nil
}
