package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lending/core"
	"lending/pkg/concurrency"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
)

const (
	checkpointKey = "refresher_obligation_checkpoint"
	pageSize      = 100
)

// Config refresher config
type Config struct {
	Interval time.Duration
	// PriceRetention slots of price history kept, 0 keeps all
	PriceRetention uint64
	Concurrency    int
}

// Refresher keep reserves and obligations fresh between user operations
type Refresher struct {
	cfg           Config
	reserves      core.IReserveStore
	obligations   core.IObligationStore
	prices        core.IPriceStore
	reserveSrv    core.IReserveService
	obligationSrv core.IObligationService
	slots         core.ISlotService
	property      property.Store
}

// New new refresher worker
func New(
	cfg Config,
	reserves core.IReserveStore,
	obligations core.IObligationStore,
	prices core.IPriceStore,
	reserveSrv core.IReserveService,
	obligationSrv core.IObligationService,
	slots core.ISlotService,
	property property.Store,
) *Refresher {
	return &Refresher{
		cfg:           cfg,
		reserves:      reserves,
		obligations:   obligations,
		prices:        prices,
		reserveSrv:    reserveSrv,
		obligationSrv: obligationSrv,
		slots:         slots,
		property:      property,
	}
}

var _ worker.Worker = (*Refresher)(nil)

// Run worker run
func (w *Refresher) Run(ctx context.Context) error {
	return worker.Tick(ctx, "refresher", w.cfg.Interval, w.run)
}

func (w *Refresher) run(ctx context.Context) error {
	slot, err := w.slots.CurrentSlot(ctx)
	if err != nil {
		return err
	}

	ctx = w.slots.WithSlot(ctx, slot)

	if err := w.refreshReserves(ctx); err != nil {
		return err
	}

	obligationsErr := w.refreshObligations(ctx)
	if err := w.prune(ctx, slot); err != nil {
		return err
	}

	return obligationsErr
}

// refreshReserves reserves are independent records, refresh them concurrently
func (w *Refresher) refreshReserves(ctx context.Context) error {
	log := logger.FromContext(ctx)

	reserves, err := w.reserves.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("reserves.All")
		return err
	}

	var (
		g     = concurrency.NewGoLimit(w.cfg.Concurrency)
		mu    sync.Mutex
		first error
	)

	for _, r := range reserves {
		reserveID := r.ID
		g.Go(func() {
			if _, err := w.reserveSrv.Refresh(ctx, reserveID); err != nil {
				log.WithError(err).WithField("reserve", reserveID).Errorln("refresh reserve")

				mu.Lock()
				if first == nil {
					first = err
				}
				mu.Unlock()
			}
		})
	}

	g.Wait()
	return first
}

// refreshObligations obligations share reserves, so they are refreshed one by one.
// The page cursor is checkpointed so a restart resumes where it stopped.
// A failed obligation is skipped, the first such error is returned once the
// pass is over.
func (w *Refresher) refreshObligations(ctx context.Context) error {
	log := logger.FromContext(ctx)

	v, err := w.property.Get(ctx, checkpointKey)
	if err != nil {
		log.WithError(err).Errorln("property.Get", checkpointKey)
		return err
	}

	var (
		cursor = v.String()
		first  error
	)

	for {
		next, err := w.refreshPage(ctx, cursor)
		if err != nil && first == nil {
			first = err
		}

		if next == cursor && next != "" {
			return first
		}

		if err := w.property.Save(ctx, checkpointKey, next); err != nil {
			log.WithError(err).Errorln("property.Save", checkpointKey)
			return err
		}

		if next == "" {
			return first
		}

		cursor = next
	}
}

// refreshPage refresh one page of obligations after cursor, returning the
// next cursor or "" once the last page is done. The cursor moves past
// obligations that fail to refresh, the first failure is returned with it.
func (w *Refresher) refreshPage(ctx context.Context, cursor string) (string, error) {
	log := logger.FromContext(ctx)

	obligations, err := w.obligations.List(ctx, cursor, pageSize)
	if err != nil {
		log.WithError(err).Errorln("obligations.List")
		return cursor, err
	}

	var first error
	for _, o := range obligations {
		if _, err := w.obligationSrv.Refresh(ctx, o.ID); err != nil {
			log.WithError(err).WithField("obligation", o.ID).Errorln("refresh obligation")
			if first == nil {
				first = fmt.Errorf("refresh obligation %s: %w", o.ID, err)
			}
		}

		cursor = o.ID
	}

	if len(obligations) < pageSize {
		return "", first
	}

	return cursor, first
}

func (w *Refresher) prune(ctx context.Context, slot uint64) error {
	if w.cfg.PriceRetention == 0 || slot <= w.cfg.PriceRetention {
		return nil
	}

	if err := w.prices.DeleteBefore(ctx, slot-w.cfg.PriceRetention); err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("prices.DeleteBefore")
		return err
	}

	return nil
}
