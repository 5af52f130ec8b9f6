package obligation

import (
	"context"

	"lending/core"
	"lending/pkg/id"
	"lending/pkg/lending"
	"lending/pkg/metrics"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	foxuuid "github.com/fox-one/pkg/uuid"
	"github.com/sirupsen/logrus"
)

type service struct {
	tx           func(fn func(tx *db.DB) error) error
	obligations  core.IObligationStore
	reserves     core.IReserveStore
	transactions core.TransactionStore
	oracle       core.IPriceOracleService
	slots        core.ISlotService
	metrics      *metrics.Metrics
}

// New new obligation service
func New(
	database *db.DB,
	obligations core.IObligationStore,
	reserves core.IReserveStore,
	transactions core.TransactionStore,
	oracle core.IPriceOracleService,
	slots core.ISlotService,
	metrics *metrics.Metrics,
) core.IObligationService {
	return &service{
		tx:           database.Tx,
		obligations:  obligations,
		reserves:     reserves,
		transactions: transactions,
		oracle:       oracle,
		slots:        slots,
		metrics:      metrics,
	}
}

func (s *service) Init(ctx context.Context, owner string) (*core.Obligation, error) {
	slot, err := s.slots.CurrentSlot(ctx)
	if err != nil {
		return nil, err
	}

	traceID := id.TraceID(id.RequestID(ctx), string(core.ActionTypeInitObligation), owner)
	done, err := s.transactions.FindByTraceID(ctx, traceID)
	if err != nil {
		return nil, err
	}

	if done != nil {
		return s.obligations.Find(ctx, done.ObligationID)
	}

	obligation := lending.InitObligation(foxuuid.New(), owner, slot)

	extra := core.NewTransactionExtra()
	extra.Put(core.TransactionKeyObligation, obligation)
	t := s.transaction(traceID, core.ActionTypeInitObligation, obligation, "", slot, 0, extra)

	if err := s.tx(func(tx *db.DB) error {
		if err := s.obligations.Create(ctx, tx, obligation); err != nil {
			return err
		}

		return s.transactions.Create(ctx, tx, t)
	}); err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("save obligation failed")
		return nil, err
	}

	s.metrics.ObserveOperation(core.ActionTypeInitObligation, nil)
	return obligation, nil
}

func (s *service) Refresh(ctx context.Context, obligationID string) (*core.Obligation, error) {
	var obligation *core.Obligation
	err := s.mutate(ctx, core.ActionTypeRefreshObligation, obligationID, "", 0, func(o *core.Obligation, _ lending.Reserves, _ uint64, _ core.TransactionExtraData) error {
		obligation = o
		return nil
	}, s.replayObligation(&obligation))

	if err != nil {
		return nil, err
	}

	return obligation, nil
}

func (s *service) DepositCollateral(ctx context.Context, obligationID, reserveID string, amount uint64) (*core.Obligation, error) {
	var obligation *core.Obligation
	err := s.mutate(ctx, core.ActionTypeDepositCollateral, obligationID, reserveID, amount, func(o *core.Obligation, reserves lending.Reserves, slot uint64, _ core.TransactionExtraData) error {
		obligation = o
		return lending.DepositCollateral(o, reserves, reserveID, amount, slot)
	}, s.replayObligation(&obligation))

	if err != nil {
		return nil, err
	}

	return obligation, nil
}

func (s *service) Borrow(ctx context.Context, obligationID, reserveID string, amount uint64) (*core.BorrowResult, error) {
	var result *core.BorrowResult
	err := s.mutate(ctx, core.ActionTypeBorrow, obligationID, reserveID, amount, func(o *core.Obligation, reserves lending.Reserves, slot uint64, extra core.TransactionExtraData) error {
		r, err := lending.Borrow(o, reserves, reserveID, amount, slot)
		if err != nil {
			return err
		}

		result = r
		extra.Put(core.TransactionKeyBorrow, r)
		return nil
	}, func(_ context.Context, t *core.Transaction) error {
		result = &core.BorrowResult{}
		return t.ExtraData(core.TransactionKeyBorrow, result)
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *service) Repay(ctx context.Context, obligationID, reserveID string, amount uint64) (*core.RepayResult, error) {
	var result *core.RepayResult
	err := s.mutate(ctx, core.ActionTypeRepay, obligationID, reserveID, amount, func(o *core.Obligation, reserves lending.Reserves, slot uint64, extra core.TransactionExtraData) error {
		r, err := lending.Repay(o, reserves, reserveID, amount, slot)
		if err != nil {
			return err
		}

		result = r
		extra.Put(core.TransactionKeyRepay, r)
		return nil
	}, func(_ context.Context, t *core.Transaction) error {
		result = &core.RepayResult{}
		return t.ExtraData(core.TransactionKeyRepay, result)
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *service) WithdrawCollateral(ctx context.Context, obligationID, reserveID string, amount uint64) (*core.Obligation, error) {
	var obligation *core.Obligation
	err := s.mutate(ctx, core.ActionTypeWithdrawCollateral, obligationID, reserveID, amount, func(o *core.Obligation, reserves lending.Reserves, slot uint64, _ core.TransactionExtraData) error {
		obligation = o
		return lending.WithdrawCollateral(o, reserves, reserveID, amount, slot)
	}, s.replayObligation(&obligation))

	if err != nil {
		return nil, err
	}

	return obligation, nil
}

type operation func(o *core.Obligation, reserves lending.Reserves, slot uint64, extra core.TransactionExtraData) error

// replay fill the operation results from the log record of its first run
type replay func(ctx context.Context, t *core.Transaction) error

func (s *service) replayObligation(obligation **core.Obligation) replay {
	return func(ctx context.Context, t *core.Transaction) error {
		o, err := s.obligations.Find(ctx, t.ObligationID)
		if err != nil {
			return err
		}

		*obligation = o
		return nil
	}
}

// mutate pin the current slot, refresh every reserve the operation touches and
// the obligation itself, run op and persist all records in one transaction.
// Nothing is written when op fails or a record moved underneath. A request
// already applied is not run again, its results come from replay instead.
func (s *service) mutate(ctx context.Context, action core.ActionType, obligationID, reserveID string, amount uint64, op operation, fill replay) error {
	traceID := id.TraceID(id.RequestID(ctx), string(action), obligationID, reserveID)
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"action":     action,
		"obligation": obligationID,
		"reserve":    reserveID,
		"amount":     amount,
		"trace":      traceID,
	})

	done, err := s.transactions.FindByTraceID(ctx, traceID)
	if err != nil {
		return err
	}

	if done != nil {
		log.Infoln("operation already applied")
		return fill(ctx, done)
	}

	slot, err := s.slots.CurrentSlot(ctx)
	if err != nil {
		return err
	}
	ctx = s.slots.WithSlot(ctx, slot)

	obligation, err := s.obligations.Find(ctx, obligationID)
	if err != nil {
		return err
	}

	reserves, err := s.loadReserves(ctx, obligation, reserveID)
	if err != nil {
		return err
	}

	if err := s.refresh(ctx, obligation, reserves, slot); err != nil {
		s.metrics.ObserveOperation(action, err)
		log.WithError(err).Infoln("refresh rejected")
		return err
	}

	extra := core.NewTransactionExtra()
	if err := op(obligation, reserves, slot, extra); err != nil {
		s.metrics.ObserveOperation(action, err)
		log.WithError(err).Infoln("obligation operation rejected")
		return err
	}

	extra.Put(core.TransactionKeyObligation, obligation)
	extra.Put(core.TransactionKeyReserves, reserves)
	t := s.transaction(traceID, action, obligation, reserveID, slot, amount, extra)

	if err := s.tx(func(tx *db.DB) error {
		for _, rid := range sortedIDs(reserves) {
			if err := s.reserves.Update(ctx, tx, reserves[rid]); err != nil {
				return err
			}
		}

		if err := s.obligations.Update(ctx, tx, obligation); err != nil {
			return err
		}

		return s.transactions.Create(ctx, tx, t)
	}); err != nil {
		s.metrics.ObserveOperation(action, err)
		log.WithError(err).Errorln("save obligation failed")
		return err
	}

	s.metrics.ObserveOperation(action, nil)
	for _, r := range reserves {
		s.metrics.ObserveReserve(r)
	}

	log.WithField("slot", slot).Debugln("obligation updated")
	return nil
}

// loadReserves every reserve referenced by the obligation plus the target
func (s *service) loadReserves(ctx context.Context, obligation *core.Obligation, reserveID string) (lending.Reserves, error) {
	ids := obligation.ReserveIDs()
	if reserveID != "" && obligation.FindDeposit(reserveID) < 0 && obligation.FindBorrow(reserveID) < 0 {
		ids = append(ids, reserveID)
	}

	reserves := make(lending.Reserves, len(ids))
	for _, rid := range ids {
		r, err := s.reserves.Find(ctx, rid)
		if err != nil {
			return nil, err
		}

		reserves[rid] = r
	}

	return reserves, nil
}

func (s *service) refresh(ctx context.Context, obligation *core.Obligation, reserves lending.Reserves, slot uint64) error {
	for _, rid := range sortedIDs(reserves) {
		r := reserves[rid]
		price, err := s.oracle.GetPrice(ctx, r)
		if err != nil {
			return err
		}

		if err := lending.RefreshReserve(r, price, slot, slot); err != nil {
			return err
		}
	}

	return lending.RefreshObligation(obligation, reserves, slot)
}

func (s *service) transaction(traceID string, action core.ActionType, obligation *core.Obligation, reserveID string, slot, amount uint64, extra core.TransactionExtraData) *core.Transaction {
	t := core.BuildTransaction(traceID, action, slot, extra)
	t.ObligationID = obligation.ID
	t.ReserveID = reserveID
	t.Amount = amount
	return t
}
