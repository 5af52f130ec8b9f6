package core

import (
	"context"
	"database/sql/driver"
	"time"

	"lending/pkg/number"

	"github.com/fox-one/pkg/store/db"
)

// MaxObligationReserves max distinct deposit plus borrow entries per obligation
const MaxObligationReserves = 10

// Obligation borrower position across reserves
type Obligation struct {
	ID         string                `sql:"size:36;PRIMARY_KEY" json:"id"`
	Owner      string                `sql:"size:64;index:idx_obligations_owner" json:"owner"`
	LastUpdate LastUpdate            `sql:"type:varchar(64)" json:"last_update"`
	Deposits   ObligationCollaterals `sql:"type:TEXT" json:"deposits"`
	Borrows    ObligationLiquidities `sql:"type:TEXT" json:"borrows"`
	// cached totals, valid after refresh
	DepositedValue       number.Decimal `sql:"type:varchar(96)" json:"deposited_value"`
	BorrowedValue        number.Decimal `sql:"type:varchar(96)" json:"borrowed_value"`
	AllowedBorrowValue   number.Decimal `sql:"type:varchar(96)" json:"allowed_borrow_value"`
	UnhealthyBorrowValue number.Decimal `sql:"type:varchar(96)" json:"unhealthy_borrow_value"`
	Version              int64          `sql:"default:0" json:"version"`
	CreatedAt            time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Clone deep copy
func (o *Obligation) Clone() *Obligation {
	c := *o
	c.Deposits = append(ObligationCollaterals(nil), o.Deposits...)
	c.Borrows = append(ObligationLiquidities(nil), o.Borrows...)
	return &c
}

// ReserveIDs every reserve referenced by a deposit or borrow, deposits first
func (o *Obligation) ReserveIDs() []string {
	ids := make([]string, 0, len(o.Deposits)+len(o.Borrows))
	seen := make(map[string]bool, cap(ids))
	for _, d := range o.Deposits {
		if !seen[d.ReserveID] {
			seen[d.ReserveID] = true
			ids = append(ids, d.ReserveID)
		}
	}

	for _, b := range o.Borrows {
		if !seen[b.ReserveID] {
			seen[b.ReserveID] = true
			ids = append(ids, b.ReserveID)
		}
	}

	return ids
}

// FindDeposit index of the deposit in reserve, -1 if none
func (o *Obligation) FindDeposit(reserveID string) int {
	for i, d := range o.Deposits {
		if d.ReserveID == reserveID {
			return i
		}
	}

	return -1
}

// FindBorrow index of the borrow in reserve, -1 if none
func (o *Obligation) FindBorrow(reserveID string) int {
	for i, b := range o.Borrows {
		if b.ReserveID == reserveID {
			return i
		}
	}

	return -1
}

// ObligationCollateral collateral deposited into a reserve
type ObligationCollateral struct {
	ReserveID       string `json:"reserve_id"`
	DepositedAmount uint64 `json:"deposited_amount"`
	// market value as of the last refresh
	MarketValue           number.Decimal `json:"market_value"`
	AttributedBorrowValue number.Decimal `json:"attributed_borrow_value"`
}

// ObligationCollaterals ordered deposits
type ObligationCollaterals []ObligationCollateral

func (c ObligationCollaterals) Value() (driver.Value, error) {
	if c == nil {
		c = ObligationCollaterals{}
	}

	return jsonValue(c)
}

func (c *ObligationCollaterals) Scan(src interface{}) error {
	return jsonScan(src, c)
}

// ObligationLiquidity liquidity borrowed from a reserve
type ObligationLiquidity struct {
	ReserveID                string         `json:"reserve_id"`
	CumulativeBorrowRateWads number.Decimal `json:"cumulative_borrow_rate_wads"`
	BorrowedAmountWads       number.Decimal `json:"borrowed_amount_wads"`
	MarketValue              number.Decimal `json:"market_value"`
}

// ObligationLiquidities ordered borrows
type ObligationLiquidities []ObligationLiquidity

func (l ObligationLiquidities) Value() (driver.Value, error) {
	if l == nil {
		l = ObligationLiquidities{}
	}

	return jsonValue(l)
}

func (l *ObligationLiquidities) Scan(src interface{}) error {
	return jsonScan(src, l)
}

// BorrowResult amounts moved by a borrow
type BorrowResult struct {
	// liquidity sent to the borrower
	ReceiveAmount uint64 `json:"receive_amount"`
	// debt added to the obligation, receive amount plus fee
	BorrowAmount number.Decimal `json:"borrow_amount"`
	BorrowFee    uint64         `json:"borrow_fee"`
	HostFee      uint64         `json:"host_fee"`
}

// RepayResult amounts settled by a repay
type RepayResult struct {
	// liquidity returned to the reserve
	RepayAmount  uint64         `json:"repay_amount"`
	SettleAmount number.Decimal `json:"settle_amount"`
}

// IObligationStore obligation store interface
type IObligationStore interface {
	Create(ctx context.Context, tx *db.DB, obligation *Obligation) error
	Find(ctx context.Context, id string) (*Obligation, error)
	FindByOwner(ctx context.Context, owner string) ([]*Obligation, error)
	// List obligations ordered by id, starting after fromID
	List(ctx context.Context, fromID string, limit int) ([]*Obligation, error)
	// Update optimistic update, ErrVersionConflict if the version moved
	Update(ctx context.Context, tx *db.DB, obligation *Obligation) error
}

// IObligationService obligation operations
type IObligationService interface {
	Init(ctx context.Context, owner string) (*Obligation, error)
	Refresh(ctx context.Context, id string) (*Obligation, error)
	DepositCollateral(ctx context.Context, id, reserveID string, amount uint64) (*Obligation, error)
	Borrow(ctx context.Context, id, reserveID string, amount uint64) (*BorrowResult, error)
	Repay(ctx context.Context, id, reserveID string, amount uint64) (*RepayResult, error)
	WithdrawCollateral(ctx context.Context, id, reserveID string, amount uint64) (*Obligation, error)
}
