package rest

import (
	"net/http"

	"lending/core"
	"lending/handler/param"
	"lending/handler/render"
	"lending/handler/views"
	"lending/pkg/lending"
	"lending/pkg/number"
	"lending/pkg/ratelimiter"

	"github.com/go-chi/chi"
)

func reservesHandler(reserveStr core.IReserveStore, slotSrv core.ISlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		slot, err := slotSrv.CurrentSlot(ctx)
		if err != nil {
			render.Fail(w, err)
			return
		}

		reserves, err := reserveStr.All(ctx)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, views.ReserveViews(reserves, slot))
	}
}

func reserveHandler(reserveStr core.IReserveStore, slotSrv core.ISlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		slot, err := slotSrv.CurrentSlot(ctx)
		if err != nil {
			render.Fail(w, err)
			return
		}

		reserve, err := reserveStr.Find(ctx, chi.URLParam(r, "id"))
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, views.ReserveView(reserve, slot))
	}
}

func initReserveHandler(reserveSrv core.IReserveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Symbol       string              `json:"symbol" valid:"required,alphanum"`
			MintDecimals uint8               `json:"mint_decimals"`
			Price        number.Decimal      `json:"price"`
			Config       *core.ReserveConfig `json:"config"`
			RateLimiter  *ratelimiter.Config `json:"rate_limiter"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		req := &core.InitReserveRequest{
			Symbol:       params.Symbol,
			MintDecimals: params.MintDecimals,
			Price:        params.Price,
			Config:       lending.DefaultReserveConfig(),
			RateLimiter:  ratelimiter.DefaultConfig(),
		}

		if params.Config != nil {
			req.Config = *params.Config
		}

		if params.RateLimiter != nil {
			req.RateLimiter = *params.RateLimiter
		}

		reserve, err := reserveSrv.Init(r.Context(), req)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, reserve)
	}
}

func refreshReserveHandler(reserveSrv core.IReserveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reserve, err := reserveSrv.Refresh(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, reserve)
	}
}

func depositLiquidityHandler(reserveSrv core.IReserveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Amount uint64 `json:"amount"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		reserve, err := reserveSrv.DepositLiquidity(r.Context(), chi.URLParam(r, "id"), params.Amount)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, reserve)
	}
}

func updateReserveConfigHandler(reserveSrv core.IReserveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Config      core.ReserveConfig `json:"config"`
			RateLimiter ratelimiter.Config `json:"rate_limiter"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		reserve, err := reserveSrv.UpdateConfig(r.Context(), chi.URLParam(r, "id"), params.Config, params.RateLimiter)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, reserve)
	}
}

func setPriceHandler(reserveStr core.IReserveStore, oracleSrv core.IPriceOracleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var params struct {
			Price  number.Decimal `json:"price"`
			Source string         `json:"source"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		reserve, err := reserveStr.Find(ctx, chi.URLParam(r, "id"))
		if err != nil {
			render.Fail(w, err)
			return
		}

		price, err := oracleSrv.SetPrice(ctx, reserve.ID, params.Price, params.Source)
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, price)
	}
}
