package rest

import (
	"net/http"

	"lending/core"
	"lending/handler/param"
	"lending/handler/render"
	"lending/handler/views"

	"github.com/go-chi/chi"
)

func obligationsHandler(obligationStr core.IObligationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Owner string `json:"owner" valid:"required"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		obligations, err := obligationStr.FindByOwner(r.Context(), params.Owner)
		if err != nil {
			render.Fail(w, err)
			return
		}

		out := make([]*views.Obligation, 0, len(obligations))
		for _, o := range obligations {
			out = append(out, views.ObligationView(o))
		}

		render.JSON(w, out)
	}
}

func obligationHandler(obligationStr core.IObligationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obligation, err := obligationStr.Find(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, views.ObligationView(obligation))
	}
}

func initObligationHandler(obligationSrv core.IObligationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Owner string `json:"owner" valid:"required"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		obligation, err := obligationSrv.Init(r.Context(), params.Owner)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, views.ObligationView(obligation))
	}
}

func refreshObligationHandler(obligationSrv core.IObligationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obligation, err := obligationSrv.Refresh(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, views.ObligationView(obligation))
	}
}

type amountParams struct {
	ReserveID string `json:"reserve_id" valid:"required"`
	Amount    uint64 `json:"amount"`
}

func depositCollateralHandler(obligationSrv core.IObligationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params amountParams
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		obligation, err := obligationSrv.DepositCollateral(r.Context(), chi.URLParam(r, "id"), params.ReserveID, params.Amount)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, views.ObligationView(obligation))
	}
}

func borrowHandler(obligationSrv core.IObligationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params amountParams
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		result, err := obligationSrv.Borrow(r.Context(), chi.URLParam(r, "id"), params.ReserveID, params.Amount)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, result)
	}
}

func repayHandler(obligationSrv core.IObligationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params amountParams
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		result, err := obligationSrv.Repay(r.Context(), chi.URLParam(r, "id"), params.ReserveID, params.Amount)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, result)
	}
}

func withdrawCollateralHandler(obligationSrv core.IObligationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params amountParams
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		obligation, err := obligationSrv.WithdrawCollateral(r.Context(), chi.URLParam(r, "id"), params.ReserveID, params.Amount)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, views.ObligationView(obligation))
	}
}
