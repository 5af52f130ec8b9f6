package handler

import (
	"errors"
	"net/http"

	"lending/core"
	"lending/handler/render"
	"lending/handler/rest"

	"github.com/go-chi/chi"
)

// Server server
type Server struct {
	cfg           *core.Config
	reserves      core.IReserveStore
	obligations   core.IObligationStore
	transactions  core.TransactionStore
	reserveSrv    core.IReserveService
	obligationSrv core.IObligationService
	oracleSrv     core.IPriceOracleService
	slotSrv       core.ISlotService
	auditor       rest.Auditor
}

// New new server function
func New(
	cfg *core.Config,
	reserves core.IReserveStore,
	obligations core.IObligationStore,
	transactions core.TransactionStore,
	reserveSrv core.IReserveService,
	obligationSrv core.IObligationService,
	oracleSrv core.IPriceOracleService,
	slotSrv core.ISlotService,
	auditor rest.Auditor,
) Server {
	return Server{
		cfg:           cfg,
		reserves:      reserves,
		obligations:   obligations,
		transactions:  transactions,
		reserveSrv:    reserveSrv,
		obligationSrv: obligationSrv,
		oracleSrv:     oracleSrv,
		slotSrv:       slotSrv,
		auditor:       auditor,
	}
}

// HandleRestAPI handle restful apis
func (s Server) HandleRestAPI() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	r.Mount("/", rest.Handle(
		s.cfg,
		s.reserves,
		s.obligations,
		s.transactions,
		s.reserveSrv,
		s.obligationSrv,
		s.oracleSrv,
		s.slotSrv,
		s.auditor,
	))

	return r
}
