package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lending/core"
	"lending/pkg/number"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
)

type service struct {
	db     *db.DB
	prices core.IPriceStore
	slots  core.ISlotService
	cache  gcache.Cache
}

// New new price oracle service backed by the price store
func New(db *db.DB, prices core.IPriceStore, slots core.ISlotService) core.IPriceOracleService {
	return &service{
		db:     db,
		prices: prices,
		slots:  slots,
		cache:  gcache.New(1024).LRU().Expiration(time.Minute).Build(),
	}
}

// GetPrice latest price at or before the current slot, the reserve's last
// market price when nothing has been published yet
func (s *service) GetPrice(ctx context.Context, reserve *core.Reserve) (number.Decimal, error) {
	slot, err := s.slots.CurrentSlot(ctx)
	if err != nil {
		return number.Zero(), err
	}

	key := fmt.Sprintf("%s:%d", reserve.ID, slot)
	if v, err := s.cache.Get(key); err == nil {
		return v.(number.Decimal), nil
	}

	price := reserve.Liquidity.MarketPrice
	p, err := s.prices.FindLatest(ctx, reserve.ID, slot)
	switch {
	case err == nil:
		price = p.Price
	case errors.Is(err, core.ErrInvalidPrice):
		logger.FromContext(ctx).WithField("reserve", reserve.Symbol).Debugln("no published price, keep market price")
	default:
		return number.Zero(), err
	}

	if price.IsZero() {
		return number.Zero(), fmt.Errorf("%w: zero price for reserve %s", core.ErrInvalidPrice, reserve.Symbol)
	}

	_ = s.cache.Set(key, price)
	return price, nil
}

// SetPrice publish price at the current slot
func (s *service) SetPrice(ctx context.Context, reserveID string, price number.Decimal, source string) (*core.Price, error) {
	if price.IsZero() {
		return nil, core.ErrInvalidPrice
	}

	slot, err := s.slots.CurrentSlot(ctx)
	if err != nil {
		return nil, err
	}

	p := &core.Price{
		ReserveID: reserveID,
		Slot:      slot,
		Price:     price,
		Source:    source,
	}

	if err := s.db.Tx(func(tx *db.DB) error {
		return s.prices.Create(ctx, tx, p)
	}); err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("save price failed")
		return nil, err
	}

	s.cache.Remove(fmt.Sprintf("%s:%d", reserveID, slot))
	return p, nil
}
