package reserve

import (
	"context"
	"fmt"
	"time"

	"lending/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type reserveStore struct {
	db *db.DB
}

// New new reserve store
func New(db *db.DB) core.IReserveStore {
	return &reserveStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Reserve{})
		if err := tx.AutoMigrate(core.Reserve{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *reserveStore) Create(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	return tx.Update().Create(reserve).Error
}

func (s *reserveStore) Find(ctx context.Context, id string) (*core.Reserve, error) {
	var reserve core.Reserve
	if err := s.db.View().Where("id=?", id).First(&reserve).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrReserveNotFound, id)
		}

		return nil, err
	}

	return &reserve, nil
}

func (s *reserveStore) All(ctx context.Context) ([]*core.Reserve, error) {
	var reserves []*core.Reserve
	if err := s.db.View().Order("symbol").Find(&reserves).Error; err != nil {
		return nil, err
	}

	return reserves, nil
}

func (s *reserveStore) Update(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	version := reserve.Version
	updates := map[string]interface{}{
		"last_update":             reserve.LastUpdate,
		"liquidity":               reserve.Liquidity,
		"config":                  reserve.Config,
		"rate_limiter":            reserve.RateLimiter,
		"attributed_borrow_value": reserve.AttributedBorrowValue,
		"version":                 version + 1,
		"updated_at":              time.Now(),
	}

	update := tx.Update().Model(core.Reserve{}).Where("id=? and version=?", reserve.ID, version).Updates(updates)
	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		return fmt.Errorf("%w: reserve %s version %d", core.ErrVersionConflict, reserve.Symbol, version)
	}

	reserve.Version = version + 1
	return nil
}
