package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"lending/core"
	"lending/handler/render"
	"lending/handler/request"
	"lending/pkg/lending"

	"github.com/go-chi/chi"
)

// Handle handle rest api request
func Handle(
	cfg *core.Config,
	reserveStore core.IReserveStore,
	obligationStore core.IObligationStore,
	transactionStore core.TransactionStore,
	reserveService core.IReserveService,
	obligationService core.IObligationService,
	oracleService core.IPriceOracleService,
	slotService core.ISlotService,
	auditor Auditor,
) http.Handler {
	router := chi.NewRouter()
	router.Use(request.WithRequestID)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/transactions", transactionsHandler(transactionStore))
	router.With(admin(cfg)).Get("/audit", auditHandler(auditor))

	router.Route("/reserves", func(r chi.Router) {
		r.Get("/", reservesHandler(reserveStore, slotService))
		r.With(admin(cfg)).Post("/", initReserveHandler(reserveService))
		r.Get("/{id}", reserveHandler(reserveStore, slotService))
		r.Post("/{id}/refresh", refreshReserveHandler(reserveService))
		r.Post("/{id}/deposit", depositLiquidityHandler(reserveService))
		r.With(admin(cfg)).Put("/{id}/config", updateReserveConfigHandler(reserveService))
		r.With(admin(cfg)).Post("/{id}/price", setPriceHandler(reserveStore, oracleService))
	})

	router.Route("/obligations", func(r chi.Router) {
		r.Get("/", obligationsHandler(obligationStore))
		r.Post("/", initObligationHandler(obligationService))
		r.Get("/{id}", obligationHandler(obligationStore))
		r.Post("/{id}/refresh", refreshObligationHandler(obligationService))
		r.Post("/{id}/deposit", depositCollateralHandler(obligationService))
		r.Post("/{id}/borrow", borrowHandler(obligationService))
		r.Post("/{id}/repay", repayHandler(obligationService))
		r.Post("/{id}/withdraw", withdrawCollateralHandler(obligationService))
	})

	return router
}

// Auditor rescan of the attributed borrow aggregates
type Auditor interface {
	Audit(ctx context.Context) ([]lending.Divergence, error)
}

// HeaderAdmin admin id header, checked against the configured admins
const HeaderAdmin = "X-Admin-Id"

func admin(cfg *core.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !cfg.IsAdmin(r.Header.Get(HeaderAdmin)) {
				render.Fail(w, fmt.Errorf("%w: admin only", core.ErrForbidden))
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
