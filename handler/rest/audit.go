package rest

import (
	"net/http"

	"lending/handler/render"
	"lending/handler/views"
)

func auditHandler(auditor Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		divergences, err := auditor.Audit(r.Context())
		if err != nil {
			render.Fail(w, err)
			return
		}

		render.JSON(w, views.DivergenceViews(divergences))
	}
}
