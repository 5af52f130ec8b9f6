package reserve

import (
	"context"

	"lending/core"
	"lending/pkg/id"
	"lending/pkg/lending"
	"lending/pkg/metrics"
	"lending/pkg/ratelimiter"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/sirupsen/logrus"
)

type service struct {
	tx           func(fn func(tx *db.DB) error) error
	reserves     core.IReserveStore
	transactions core.TransactionStore
	oracle       core.IPriceOracleService
	slots        core.ISlotService
	metrics      *metrics.Metrics
}

// New new reserve service
func New(
	database *db.DB,
	reserves core.IReserveStore,
	transactions core.TransactionStore,
	oracle core.IPriceOracleService,
	slots core.ISlotService,
	metrics *metrics.Metrics,
) core.IReserveService {
	return &service{
		tx:           database.Tx,
		reserves:     reserves,
		transactions: transactions,
		oracle:       oracle,
		slots:        slots,
		metrics:      metrics,
	}
}

func (s *service) Init(ctx context.Context, req *core.InitReserveRequest) (*core.Reserve, error) {
	log := logger.FromContext(ctx).WithField("symbol", req.Symbol)

	slot, err := s.slots.CurrentSlot(ctx)
	if err != nil {
		return nil, err
	}

	reserveID := id.Reserve(req.Symbol)
	traceID := id.TraceID(id.RequestID(ctx), string(core.ActionTypeInitReserve), reserveID)
	done, err := s.transactions.FindByTraceID(ctx, traceID)
	if err != nil {
		return nil, err
	}

	if done != nil {
		return s.reserves.Find(ctx, done.ReserveID)
	}

	reserve, err := lending.InitReserve(reserveID, req, slot)
	if err != nil {
		s.metrics.ObserveOperation(core.ActionTypeInitReserve, err)
		log.WithError(err).Infoln("init reserve rejected")
		return nil, err
	}

	extra := core.NewTransactionExtra()
	extra.Put(core.TransactionKeyReserve, reserve)
	t := s.transaction(traceID, core.ActionTypeInitReserve, reserve, slot, 0, extra)

	if err := s.tx(func(tx *db.DB) error {
		if err := s.reserves.Create(ctx, tx, reserve); err != nil {
			return err
		}

		return s.transactions.Create(ctx, tx, t)
	}); err != nil {
		log.WithError(err).Errorln("save reserve failed")
		return nil, err
	}

	s.metrics.ObserveOperation(core.ActionTypeInitReserve, nil)
	s.metrics.ObserveReserve(reserve)
	log.WithField("reserve", reserve.ID).Infoln("reserve initialized")
	return reserve, nil
}

func (s *service) Refresh(ctx context.Context, reserveID string) (*core.Reserve, error) {
	return s.mutate(ctx, core.ActionTypeRefreshReserve, reserveID, 0, func(_ *core.Reserve, _ uint64) error {
		return nil
	})
}

func (s *service) DepositLiquidity(ctx context.Context, reserveID string, amount uint64) (*core.Reserve, error) {
	return s.mutate(ctx, core.ActionTypeDepositLiquidity, reserveID, amount, func(r *core.Reserve, _ uint64) error {
		return lending.DepositReserveLiquidity(r, amount)
	})
}

func (s *service) UpdateConfig(ctx context.Context, reserveID string, cfg core.ReserveConfig, limiter ratelimiter.Config) (*core.Reserve, error) {
	return s.mutate(ctx, core.ActionTypeUpdateReserveConfig, reserveID, 0, func(r *core.Reserve, _ uint64) error {
		return lending.UpdateReserveConfig(r, cfg, limiter)
	})
}

// mutate refresh the reserve at the current slot, apply fn and persist the
// result with a transaction log record. A request already applied returns
// the stored reserve without running fn again.
func (s *service) mutate(ctx context.Context, action core.ActionType, reserveID string, amount uint64, fn func(r *core.Reserve, slot uint64) error) (*core.Reserve, error) {
	traceID := id.TraceID(id.RequestID(ctx), string(action), reserveID)
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"action":  action,
		"reserve": reserveID,
		"amount":  amount,
		"trace":   traceID,
	})

	done, err := s.transactions.FindByTraceID(ctx, traceID)
	if err != nil {
		return nil, err
	}

	if done != nil {
		log.Infoln("operation already applied")
		return s.reserves.Find(ctx, done.ReserveID)
	}

	slot, err := s.slots.CurrentSlot(ctx)
	if err != nil {
		return nil, err
	}
	ctx = s.slots.WithSlot(ctx, slot)

	reserve, err := s.reserves.Find(ctx, reserveID)
	if err != nil {
		return nil, err
	}

	if err := s.refresh(ctx, reserve, slot); err != nil {
		s.metrics.ObserveOperation(action, err)
		log.WithError(err).Infoln("refresh reserve rejected")
		return nil, err
	}

	if err := fn(reserve, slot); err != nil {
		s.metrics.ObserveOperation(action, err)
		log.WithError(err).Infoln("reserve operation rejected")
		return nil, err
	}

	extra := core.NewTransactionExtra()
	extra.Put(core.TransactionKeyReserve, reserve)
	t := s.transaction(traceID, action, reserve, slot, amount, extra)

	if err := s.tx(func(tx *db.DB) error {
		if err := s.reserves.Update(ctx, tx, reserve); err != nil {
			return err
		}

		return s.transactions.Create(ctx, tx, t)
	}); err != nil {
		s.metrics.ObserveOperation(action, err)
		log.WithError(err).Errorln("save reserve failed")
		return nil, err
	}

	s.metrics.ObserveOperation(action, nil)
	s.metrics.ObserveReserve(reserve)
	log.WithField("slot", slot).Debugln("reserve updated")
	return reserve, nil
}

func (s *service) refresh(ctx context.Context, reserve *core.Reserve, slot uint64) error {
	price, err := s.oracle.GetPrice(ctx, reserve)
	if err != nil {
		return err
	}

	return lending.RefreshReserve(reserve, price, slot, slot)
}

func (s *service) transaction(traceID string, action core.ActionType, reserve *core.Reserve, slot, amount uint64, extra core.TransactionExtraData) *core.Transaction {
	t := core.BuildTransaction(traceID, action, slot, extra)
	t.ReserveID = reserve.ID
	t.Amount = amount
	return t
}
