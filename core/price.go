package core

import (
	"context"
	"time"

	"lending/pkg/number"

	"github.com/fox-one/pkg/store/db"
)

// Price validated price of one whole token of a reserve asset
type Price struct {
	ID        int64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	ReserveID string         `sql:"size:36;unique_index:idx_prices" json:"reserve_id,omitempty"`
	Slot      uint64         `sql:"default:0;unique_index:idx_prices" json:"slot,omitempty"`
	Price     number.Decimal `sql:"type:varchar(96)" json:"price,omitempty"`
	Source    string         `sql:"size:64" json:"source,omitempty"`
	CreatedAt time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
}

// IPriceStore price store interface
type IPriceStore interface {
	Create(ctx context.Context, tx *db.DB, price *Price) error
	// FindLatest latest price at or before slot
	FindLatest(ctx context.Context, reserveID string, slot uint64) (*Price, error)
	DeleteBefore(ctx context.Context, slot uint64) error
}

// IPriceOracleService price oracle service interface
type IPriceOracleService interface {
	GetPrice(ctx context.Context, reserve *Reserve) (number.Decimal, error)
	SetPrice(ctx context.Context, reserveID string, price number.Decimal, source string) (*Price, error)
}
