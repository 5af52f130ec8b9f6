package price

import (
	"context"
	"fmt"

	"lending/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type priceStore struct {
	db *db.DB
}

// New new price store
func New(db *db.DB) core.IPriceStore {
	return &priceStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Price{})

		if err := tx.AutoMigrate(core.Price{}).Error; err != nil {
			return err
		}

		return nil
	})
}

// Create a second price at the same slot replaces the first
func (s *priceStore) Create(ctx context.Context, tx *db.DB, price *core.Price) error {
	return tx.Update().
		Where("reserve_id=? and slot=?", price.ReserveID, price.Slot).
		Assign(core.Price{Price: price.Price, Source: price.Source}).
		FirstOrCreate(price).Error
}

func (s *priceStore) FindLatest(ctx context.Context, reserveID string, slot uint64) (*core.Price, error) {
	var price core.Price
	if err := s.db.View().Where("reserve_id=? and slot<=?", reserveID, slot).Order("slot DESC").First(&price).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: no price for reserve %s at slot %d", core.ErrInvalidPrice, reserveID, slot)
		}

		return nil, err
	}

	return &price, nil
}

func (s *priceStore) DeleteBefore(ctx context.Context, slot uint64) error {
	return s.db.Update().Where("slot < ?", slot).Delete(core.Price{}).Error
}
