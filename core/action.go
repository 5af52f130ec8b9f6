package core

// ActionType operation recorded in the transaction log
type ActionType string

const (
	// ActionTypeInitReserve init reserve
	ActionTypeInitReserve ActionType = "init_reserve"
	// ActionTypeRefreshReserve refresh reserve
	ActionTypeRefreshReserve ActionType = "refresh_reserve"
	// ActionTypeDepositLiquidity deposit reserve liquidity
	ActionTypeDepositLiquidity ActionType = "deposit_liquidity"
	// ActionTypeUpdateReserveConfig update reserve config
	ActionTypeUpdateReserveConfig ActionType = "update_reserve_config"
	// ActionTypeInitObligation init obligation
	ActionTypeInitObligation ActionType = "init_obligation"
	// ActionTypeRefreshObligation refresh obligation
	ActionTypeRefreshObligation ActionType = "refresh_obligation"
	// ActionTypeDepositCollateral deposit obligation collateral
	ActionTypeDepositCollateral ActionType = "deposit_collateral"
	// ActionTypeBorrow borrow obligation liquidity
	ActionTypeBorrow ActionType = "borrow"
	// ActionTypeRepay repay obligation liquidity
	ActionTypeRepay ActionType = "repay"
	// ActionTypeWithdrawCollateral withdraw obligation collateral
	ActionTypeWithdrawCollateral ActionType = "withdraw_collateral"
)

func (a ActionType) String() string {
	return string(a)
}
