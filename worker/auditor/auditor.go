package auditor

import (
	"context"
	"time"

	"lending/core"
	"lending/pkg/lending"
	"lending/pkg/metrics"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"
)

const pageSize = 500

// Auditor rescans every obligation and compares the per reserve attribution
// sums with the aggregate stored on each reserve
type Auditor struct {
	interval    time.Duration
	reserves    core.IReserveStore
	obligations core.IObligationStore
	metrics     *metrics.Metrics
}

// New new auditor worker
func New(
	interval time.Duration,
	reserves core.IReserveStore,
	obligations core.IObligationStore,
	metrics *metrics.Metrics,
) *Auditor {
	return &Auditor{
		interval:    interval,
		reserves:    reserves,
		obligations: obligations,
		metrics:     metrics,
	}
}

var _ worker.Worker = (*Auditor)(nil)

// Run worker run
func (w *Auditor) Run(ctx context.Context) error {
	return worker.Tick(ctx, "auditor", w.interval, func(ctx context.Context) error {
		_, err := w.Audit(ctx)
		return err
	})
}

// Audit one full rescan, returning the reserves that diverge
func (w *Auditor) Audit(ctx context.Context) ([]lending.Divergence, error) {
	log := logger.FromContext(ctx)

	reserves, err := w.reserves.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("reserves.All")
		return nil, err
	}

	var (
		obligations []*core.Obligation
		cursor      string
	)

	for {
		page, err := w.obligations.List(ctx, cursor, pageSize)
		if err != nil {
			log.WithError(err).Errorln("obligations.List")
			return nil, err
		}

		obligations = append(obligations, page...)
		if len(page) < pageSize {
			break
		}

		cursor = page[len(page)-1].ID
	}

	divergences, err := lending.AuditAttribution(reserves, obligations)
	if err != nil {
		log.WithError(err).Errorln("audit attribution")
		return nil, err
	}

	for _, r := range reserves {
		w.metrics.ObserveReserve(r)
		w.metrics.SetDivergence(r.Symbol, r.AttributedBorrowValue, r.AttributedBorrowValue)
	}

	for _, d := range divergences {
		w.metrics.SetDivergence(d.Symbol, d.Recorded, d.Expected)
		log.WithFields(logrus.Fields{
			"reserve":  d.Symbol,
			"recorded": d.Recorded,
			"expected": d.Expected,
		}).Warnln("attributed borrow value diverges")
	}

	return divergences, nil
}
