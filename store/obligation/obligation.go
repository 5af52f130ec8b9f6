package obligation

import (
	"context"
	"fmt"
	"time"

	"lending/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type obligationStore struct {
	db *db.DB
}

// New new obligation store
func New(db *db.DB) core.IObligationStore {
	return &obligationStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Obligation{})
		if err := tx.AutoMigrate(core.Obligation{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *obligationStore) Create(ctx context.Context, tx *db.DB, obligation *core.Obligation) error {
	return tx.Update().Create(obligation).Error
}

func (s *obligationStore) Find(ctx context.Context, id string) (*core.Obligation, error) {
	var obligation core.Obligation
	if err := s.db.View().Where("id=?", id).First(&obligation).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrObligationNotFound, id)
		}

		return nil, err
	}

	return &obligation, nil
}

func (s *obligationStore) FindByOwner(ctx context.Context, owner string) ([]*core.Obligation, error) {
	var obligations []*core.Obligation
	if err := s.db.View().Where("owner=?", owner).Order("created_at").Find(&obligations).Error; err != nil {
		return nil, err
	}

	return obligations, nil
}

func (s *obligationStore) List(ctx context.Context, fromID string, limit int) ([]*core.Obligation, error) {
	if limit <= 0 {
		limit = 500
	}

	var obligations []*core.Obligation
	if err := s.db.View().Where("id > ?", fromID).Order("id").Limit(limit).Find(&obligations).Error; err != nil {
		return nil, err
	}

	return obligations, nil
}

func (s *obligationStore) Update(ctx context.Context, tx *db.DB, obligation *core.Obligation) error {
	version := obligation.Version
	updates := map[string]interface{}{
		"last_update":            obligation.LastUpdate,
		"deposits":               obligation.Deposits,
		"borrows":                obligation.Borrows,
		"deposited_value":        obligation.DepositedValue,
		"borrowed_value":         obligation.BorrowedValue,
		"allowed_borrow_value":   obligation.AllowedBorrowValue,
		"unhealthy_borrow_value": obligation.UnhealthyBorrowValue,
		"version":                version + 1,
		"updated_at":             time.Now(),
	}

	update := tx.Update().Model(core.Obligation{}).Where("id=? and version=?", obligation.ID, version).Updates(updates)
	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		return fmt.Errorf("%w: obligation %s version %d", core.ErrVersionConflict, obligation.ID, version)
	}

	obligation.Version = version + 1
	return nil
}
