package views

import (
	"lending/core"
	"lending/pkg/lending"

	"github.com/shopspring/decimal"
)

// Reserve reserve view
type Reserve struct {
	*core.Reserve
	TotalSupply      decimal.Decimal `json:"total_supply"`
	UtilizationRate  decimal.Decimal `json:"utilization_rate"`
	BorrowRate       decimal.Decimal `json:"borrow_rate"`
	RemainingOutflow decimal.Decimal `json:"remaining_outflow"`
	// AttributedBorrowCapacity attributed borrow value the limit still admits
	AttributedBorrowCapacity decimal.Decimal `json:"attributed_borrow_capacity"`
}

// ReserveView reserve with its rates as of slot
func ReserveView(r *core.Reserve, slot uint64) *Reserve {
	view := &Reserve{
		Reserve:          r,
		RemainingOutflow: r.RateLimiter.Remaining(slot).ToDecimal(),
	}

	if v, err := lending.TotalSupply(r.Liquidity); err == nil {
		view.TotalSupply = v.ToDecimal()
	}

	if v, err := lending.UtilizationRate(r.Liquidity); err == nil {
		view.UtilizationRate = v.ToDecimal()
	}

	if v, err := lending.CurrentBorrowRate(r); err == nil {
		view.BorrowRate = v.ToDecimal()
	}

	if r.Config.AttributedBorrowLimit.GreaterThan(r.AttributedBorrowValue) {
		v, _ := r.Config.AttributedBorrowLimit.Sub(r.AttributedBorrowValue)
		view.AttributedBorrowCapacity = v.ToDecimal()
	}

	return view
}

// ReserveViews reserve views as of slot
func ReserveViews(reserves []*core.Reserve, slot uint64) []*Reserve {
	views := make([]*Reserve, 0, len(reserves))
	for _, r := range reserves {
		views = append(views, ReserveView(r, slot))
	}

	return views
}

// Obligation obligation view
type Obligation struct {
	*core.Obligation
	// LoanToValue borrowed value over deposited value
	LoanToValue decimal.Decimal `json:"loan_to_value"`
	Healthy     bool            `json:"healthy"`
}

// ObligationView obligation with its health as of the last refresh
func ObligationView(o *core.Obligation) *Obligation {
	view := &Obligation{
		Obligation: o,
		Healthy:    !o.BorrowedValue.GreaterThan(o.UnhealthyBorrowValue),
	}

	if !o.DepositedValue.IsZero() {
		if v, err := o.BorrowedValue.Div(o.DepositedValue); err == nil {
			view.LoanToValue = v.ToDecimal()
		}
	}

	return view
}

// Divergence audit result view
type Divergence struct {
	lending.Divergence
	Delta decimal.Decimal `json:"delta"`
}

// DivergenceViews attach the signed recorded - expected delta
func DivergenceViews(divergences []lending.Divergence) []*Divergence {
	views := make([]*Divergence, 0, len(divergences))
	for _, d := range divergences {
		views = append(views, &Divergence{
			Divergence: d,
			Delta:      d.Recorded.ToDecimal().Sub(d.Expected.ToDecimal()),
		})
	}

	return views
}
