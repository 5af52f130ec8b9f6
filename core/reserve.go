package core

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"lending/pkg/number"
	"lending/pkg/ratelimiter"

	"github.com/fox-one/pkg/store/db"
)

// Reserve liquidity pool of a single asset
type Reserve struct {
	ID          string                  `sql:"size:36;PRIMARY_KEY" json:"id"`
	Symbol      string                  `sql:"size:20;unique_index:idx_reserves_symbol" json:"symbol"`
	LastUpdate  LastUpdate              `sql:"type:varchar(64)" json:"last_update"`
	Liquidity   ReserveLiquidity        `sql:"type:TEXT" json:"liquidity"`
	Config      ReserveConfig           `sql:"type:TEXT" json:"config"`
	RateLimiter ratelimiter.RateLimiter `sql:"type:TEXT" json:"rate_limiter"`
	// 所有以该资产为抵押的 obligation 分摊到此的借款价值之和
	AttributedBorrowValue number.Decimal `sql:"type:varchar(96)" json:"attributed_borrow_value"`
	Version               int64          `sql:"default:0" json:"version"`
	CreatedAt             time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Clone deep copy
func (r *Reserve) Clone() *Reserve {
	c := *r
	return &c
}

// ReserveLiquidity liquidity state
type ReserveLiquidity struct {
	MintDecimals    uint8  `json:"mint_decimals"`
	AvailableAmount uint64 `json:"available_amount"`
	// principal plus accrued interest, in token units
	BorrowedAmountWads          number.Decimal `json:"borrowed_amount_wads"`
	CumulativeBorrowRateWads    number.Decimal `json:"cumulative_borrow_rate_wads"`
	AccumulatedProtocolFeesWads number.Decimal `json:"accumulated_protocol_fees_wads"`
	// price of one whole token
	MarketPrice number.Decimal `json:"market_price"`
}

func (l ReserveLiquidity) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *ReserveLiquidity) Scan(src interface{}) error {
	return jsonScan(src, l)
}

// ReserveFees fee schedule
type ReserveFees struct {
	// fee on borrow, scaled by WAD. 1% = 10_000_000_000_000_000
	BorrowFeeWad uint64 `json:"borrow_fee_wad"`
	// share of the borrow fee paid to the host
	HostFeePercentage uint8 `json:"host_fee_percentage"`
}

// ReserveConfig reserve parameters, rates and ratios in percent
type ReserveConfig struct {
	OptimalUtilizationRate uint8       `json:"optimal_utilization_rate"`
	LoanToValueRatio       uint8       `json:"loan_to_value_ratio"`
	LiquidationBonus       uint8       `json:"liquidation_bonus"`
	LiquidationThreshold   uint8       `json:"liquidation_threshold"`
	MinBorrowRate          uint8       `json:"min_borrow_rate"`
	OptimalBorrowRate      uint8       `json:"optimal_borrow_rate"`
	MaxBorrowRate          uint8       `json:"max_borrow_rate"`
	ProtocolTakeRate       uint8       `json:"protocol_take_rate"`
	Fees                   ReserveFees `json:"fees"`
	// max total supply in token units
	DepositLimit uint64 `json:"deposit_limit"`
	// max total borrows in token units
	BorrowLimit uint64 `json:"borrow_limit"`
	// max attributed borrow value, in market value
	AttributedBorrowLimit number.Decimal `json:"attributed_borrow_limit"`
}

// Validate check ratios and rate curve
func (c ReserveConfig) Validate() error {
	switch {
	case c.OptimalUtilizationRate > 100:
		return fmt.Errorf("%w: optimal utilization rate must be in range [0, 100]", ErrInvalidConfig)
	case c.LoanToValueRatio >= 100:
		return fmt.Errorf("%w: loan to value ratio must be in range [0, 100)", ErrInvalidConfig)
	case c.LiquidationBonus > 100:
		return fmt.Errorf("%w: liquidation bonus must be in range [0, 100]", ErrInvalidConfig)
	case c.LiquidationThreshold < c.LoanToValueRatio || c.LiquidationThreshold > 100:
		return fmt.Errorf("%w: liquidation threshold must be in range [LTV, 100]", ErrInvalidConfig)
	case c.OptimalBorrowRate < c.MinBorrowRate:
		return fmt.Errorf("%w: optimal borrow rate must be >= min borrow rate", ErrInvalidConfig)
	case c.OptimalBorrowRate > c.MaxBorrowRate:
		return fmt.Errorf("%w: optimal borrow rate must be <= max borrow rate", ErrInvalidConfig)
	case c.Fees.BorrowFeeWad >= 1_000_000_000_000_000_000:
		return fmt.Errorf("%w: borrow fee must be in range [0, 1)", ErrInvalidConfig)
	case c.Fees.HostFeePercentage > 100:
		return fmt.Errorf("%w: host fee percentage must be in range [0, 100]", ErrInvalidConfig)
	case c.ProtocolTakeRate > 100:
		return fmt.Errorf("%w: protocol take rate must be in range [0, 100]", ErrInvalidConfig)
	}

	return nil
}

func (c ReserveConfig) Value() (driver.Value, error) {
	return jsonValue(c)
}

func (c *ReserveConfig) Scan(src interface{}) error {
	return jsonScan(src, c)
}

// IReserveStore reserve store interface
type IReserveStore interface {
	Create(ctx context.Context, tx *db.DB, reserve *Reserve) error
	Find(ctx context.Context, id string) (*Reserve, error)
	All(ctx context.Context) ([]*Reserve, error)
	// Update optimistic update, ErrVersionConflict if the version moved
	Update(ctx context.Context, tx *db.DB, reserve *Reserve) error
}

// IReserveService reserve operations
type IReserveService interface {
	Init(ctx context.Context, req *InitReserveRequest) (*Reserve, error)
	Refresh(ctx context.Context, id string) (*Reserve, error)
	DepositLiquidity(ctx context.Context, id string, amount uint64) (*Reserve, error)
	UpdateConfig(ctx context.Context, id string, cfg ReserveConfig, limiter ratelimiter.Config) (*Reserve, error)
}

// InitReserveRequest new reserve parameters
type InitReserveRequest struct {
	Symbol       string             `json:"symbol"`
	MintDecimals uint8              `json:"mint_decimals"`
	Price        number.Decimal     `json:"price"`
	Config       ReserveConfig      `json:"config"`
	RateLimiter  ratelimiter.Config `json:"rate_limiter"`
}
