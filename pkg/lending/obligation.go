package lending

import (
	"fmt"

	"lending/core"
	"lending/pkg/number"
)

func requireEntrySlot(o *core.Obligation) error {
	return Require(len(o.Deposits)+len(o.Borrows) < core.MaxObligationReserves, core.ErrObligationReserveLimit)
}

// requireReserves every reserve the obligation references must be loaded
func requireReserves(o *core.Obligation, reserves Reserves) error {
	for _, id := range o.ReserveIDs() {
		if _, err := reserves.Get(id); err != nil {
			return err
		}
	}

	return nil
}

// DepositCollateral add amount of reserve liquidity to the obligation collateral
func DepositCollateral(o *core.Obligation, reserves Reserves, reserveID string, amount, slot uint64) error {
	if err := Require(amount > 0, core.ErrInvalidAmount); err != nil {
		return err
	}

	if _, err := freshReserve(reserves, reserveID, slot); err != nil {
		return err
	}

	if err := requireReserves(o, reserves); err != nil {
		return err
	}

	return atomically(o, reserves, func(o *core.Obligation, reserves Reserves) error {
		r := reserves[reserveID]

		idx := o.FindDeposit(reserveID)
		if idx < 0 {
			if err := requireEntrySlot(o); err != nil {
				return err
			}

			o.Deposits = append(o.Deposits, core.ObligationCollateral{ReserveID: reserveID})
			idx = len(o.Deposits) - 1
		}

		d := &o.Deposits[idx]
		deposited := d.DepositedAmount + amount
		if deposited < amount {
			return core.ErrMathOverflow
		}

		value, err := MarketValue(r, number.NewFromUint64(deposited))
		if err != nil {
			return err
		}

		d.DepositedAmount = deposited
		d.MarketValue = value

		if err := updateTotals(o, reserves); err != nil {
			return err
		}

		if _, err := updateBorrowAttribution(o, reserves); err != nil {
			return err
		}

		r.LastUpdate.MarkStale()
		o.LastUpdate.MarkStale()
		return nil
	})
}

// Borrow lend amount of reserve liquidity to the obligation.
// The borrow fee is added to the debt. Fails without touching any record when
// a liquidity, borrow limit, attribution limit or rate limit check fails.
func Borrow(o *core.Obligation, reserves Reserves, reserveID string, amount, slot uint64) (*core.BorrowResult, error) {
	if err := Require(amount > 0, core.ErrInvalidAmount); err != nil {
		return nil, err
	}

	if _, err := freshReserve(reserves, reserveID, slot); err != nil {
		return nil, err
	}

	if o.LastUpdate.IsStale(slot) {
		return nil, fmt.Errorf("%w: obligation %s", core.ErrStaleData, o.ID)
	}

	if err := requireReserves(o, reserves); err != nil {
		return nil, err
	}

	var result core.BorrowResult
	err := atomically(o, reserves, func(o *core.Obligation, reserves Reserves) error {
		r := reserves[reserveID]

		if err := Require(!o.DepositedValue.IsZero(), core.ErrBorrowTooLarge, "no collateral"); err != nil {
			return err
		}

		fee, host, err := borrowFees(r.Config.Fees, amount)
		if err != nil {
			return err
		}

		borrowAmount := amount + fee
		if borrowAmount < amount {
			return core.ErrMathOverflow
		}

		if err := Require(borrowAmount <= r.Liquidity.AvailableAmount, core.ErrInsufficientLiquidity); err != nil {
			return err
		}

		borrowWads := number.NewFromUint64(borrowAmount)
		reserveBorrowed, err := r.Liquidity.BorrowedAmountWads.Add(borrowWads)
		if err != nil {
			return err
		}

		if reserveBorrowed.GreaterThan(number.NewFromUint64(r.Config.BorrowLimit)) {
			return fmt.Errorf("%w: reserve borrow limit %d", core.ErrBorrowTooLarge, r.Config.BorrowLimit)
		}

		borrowValue, err := MarketValue(r, borrowWads)
		if err != nil {
			return err
		}

		remaining := number.Zero()
		if o.AllowedBorrowValue.GreaterThan(o.BorrowedValue) {
			if remaining, err = o.AllowedBorrowValue.Sub(o.BorrowedValue); err != nil {
				return err
			}
		}

		if borrowValue.GreaterThan(remaining) {
			return fmt.Errorf("%w: borrow value %s above remaining borrow value %s", core.ErrBorrowTooLarge, borrowValue, remaining)
		}

		idx := o.FindBorrow(reserveID)
		if idx < 0 {
			if err := requireEntrySlot(o); err != nil {
				return err
			}

			o.Borrows = append(o.Borrows, core.ObligationLiquidity{
				ReserveID:                reserveID,
				CumulativeBorrowRateWads: r.Liquidity.CumulativeBorrowRateWads,
			})
			idx = len(o.Borrows) - 1
		}

		b := &o.Borrows[idx]
		if b.BorrowedAmountWads, err = b.BorrowedAmountWads.Add(borrowWads); err != nil {
			return err
		}

		if b.MarketValue, err = MarketValue(r, b.BorrowedAmountWads); err != nil {
			return err
		}

		r.Liquidity.AvailableAmount -= borrowAmount
		r.Liquidity.BorrowedAmountWads = reserveBorrowed

		if err := updateTotals(o, reserves); err != nil {
			return err
		}

		grown, err := updateBorrowAttribution(o, reserves)
		if err != nil {
			return err
		}

		if err := checkAttributedBorrowLimits(grown, reserves); err != nil {
			return err
		}

		if err := r.RateLimiter.Update(slot, borrowWads); err != nil {
			return err
		}

		r.LastUpdate.MarkStale()
		o.LastUpdate.MarkStale()

		result = core.BorrowResult{
			ReceiveAmount: amount,
			BorrowAmount:  borrowWads,
			BorrowFee:     fee,
			HostFee:       host,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Repay settle up to amount of the obligation debt in reserve.
// Repaying the whole debt rounds the token amount up.
func Repay(o *core.Obligation, reserves Reserves, reserveID string, amount, slot uint64) (*core.RepayResult, error) {
	if err := Require(amount > 0, core.ErrInvalidAmount); err != nil {
		return nil, err
	}

	if _, err := reserves.Get(reserveID); err != nil {
		return nil, err
	}

	idx := o.FindBorrow(reserveID)
	if err := Require(idx >= 0, core.ErrBorrowNotFound); err != nil {
		return nil, err
	}

	if err := requireReserves(o, reserves); err != nil {
		return nil, err
	}

	var result core.RepayResult
	err := atomically(o, reserves, func(o *core.Obligation, reserves Reserves) error {
		r := reserves[reserveID]
		b := &o.Borrows[idx]

		if err := accrueBorrow(b, r.Liquidity.CumulativeBorrowRateWads); err != nil {
			return err
		}

		debt, err := b.BorrowedAmountWads.Ceil()
		if err != nil {
			return err
		}

		repayAmount, settle := amount, number.NewFromUint64(amount)
		if amount >= debt {
			repayAmount, settle = debt, b.BorrowedAmountWads
		}

		available := r.Liquidity.AvailableAmount + repayAmount
		if available < repayAmount {
			return core.ErrMathOverflow
		}

		reserveBorrowed, err := settleReserveDebt(r.Liquidity.BorrowedAmountWads, settle)
		if err != nil {
			return err
		}

		if b.BorrowedAmountWads, err = b.BorrowedAmountWads.Sub(settle); err != nil {
			return err
		}

		if b.MarketValue, err = MarketValue(r, b.BorrowedAmountWads); err != nil {
			return err
		}

		r.Liquidity.AvailableAmount = available
		r.Liquidity.BorrowedAmountWads = reserveBorrowed

		if b.BorrowedAmountWads.IsZero() {
			o.Borrows = append(o.Borrows[:idx], o.Borrows[idx+1:]...)
		}

		if err := updateTotals(o, reserves); err != nil {
			return err
		}

		if _, err := updateBorrowAttribution(o, reserves); err != nil {
			return err
		}

		r.LastUpdate.MarkStale()
		o.LastUpdate.MarkStale()

		result = core.RepayResult{
			RepayAmount:  repayAmount,
			SettleAmount: settle,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// settleReserveDebt subtract a settled obligation debt from the reserve debt.
// Per-obligation accrual truncates separately from the reserve, so a full
// settle may exceed the reserve debt by less than one token unit.
func settleReserveDebt(borrowed, settle number.Decimal) (number.Decimal, error) {
	left, err := borrowed.Sub(settle)
	if err == nil {
		return left, nil
	}

	excess, _ := settle.Sub(borrowed)
	if excess.LessThan(number.One()) {
		return number.Zero(), nil
	}

	return number.Zero(), err
}

// WithdrawCollateral remove amount from the obligation deposit in reserve.
// With outstanding borrows the withdrawn value is capped so the obligation
// stays within its allowed borrow value.
func WithdrawCollateral(o *core.Obligation, reserves Reserves, reserveID string, amount, slot uint64) error {
	if err := Require(amount > 0, core.ErrInvalidAmount); err != nil {
		return err
	}

	if _, err := reserves.Get(reserveID); err != nil {
		return err
	}

	idx := o.FindDeposit(reserveID)
	if err := Require(idx >= 0 && o.Deposits[idx].DepositedAmount >= amount, core.ErrInsufficientCollateral); err != nil {
		return err
	}

	if len(o.Borrows) > 0 {
		if _, err := freshReserve(reserves, reserveID, slot); err != nil {
			return err
		}

		if o.LastUpdate.IsStale(slot) {
			return fmt.Errorf("%w: obligation %s", core.ErrStaleData, o.ID)
		}
	}

	if err := requireReserves(o, reserves); err != nil {
		return err
	}

	return atomically(o, reserves, func(o *core.Obligation, reserves Reserves) error {
		r := reserves[reserveID]
		d := &o.Deposits[idx]

		withdrawValue, err := MarketValue(r, number.NewFromUint64(amount))
		if err != nil {
			return err
		}

		if len(o.Borrows) > 0 {
			maxValue, err := maxWithdrawValue(o, d.MarketValue, r.Config.LoanToValueRatio)
			if err != nil {
				return err
			}

			if withdrawValue.GreaterThan(maxValue) {
				return fmt.Errorf("%w: withdraw value %s above max %s", core.ErrInsufficientCollateral, withdrawValue, maxValue)
			}
		}

		d.DepositedAmount -= amount
		if d.MarketValue, err = MarketValue(r, number.NewFromUint64(d.DepositedAmount)); err != nil {
			return err
		}

		if err := updateTotals(o, reserves); err != nil {
			return err
		}

		if len(o.Borrows) > 0 && o.DepositedValue.IsZero() {
			return fmt.Errorf("%w: borrows left without collateral", core.ErrInsufficientCollateral)
		}

		if _, err := updateBorrowAttribution(o, reserves); err != nil {
			return err
		}

		// the emptied deposit has already handed back its attribution
		if d.DepositedAmount == 0 {
			o.Deposits = append(o.Deposits[:idx], o.Deposits[idx+1:]...)
		}

		r.LastUpdate.MarkStale()
		o.LastUpdate.MarkStale()
		return nil
	})
}

// maxWithdrawValue (allowed - borrowed) / ltv, nothing once the borrows use
// up the allowance. Collateral without a loan to value backs no allowance, so
// all of it may leave while headroom remains.
func maxWithdrawValue(o *core.Obligation, deposited number.Decimal, ltv uint8) (number.Decimal, error) {
	if !o.AllowedBorrowValue.GreaterThan(o.BorrowedValue) {
		return number.Zero(), nil
	}

	if ltv == 0 {
		return deposited, nil
	}

	headroom, err := o.AllowedBorrowValue.Sub(o.BorrowedValue)
	if err != nil {
		return number.Zero(), err
	}

	return headroom.Div(number.NewFromPercent(ltv))
}
