package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/garage-service/internal/models"
	"github.com/ukydev/garage-service/internal/stats"
)

// StatsHandler exposes the dashboards.
type StatsHandler struct {
	stats *stats.Service
}

func NewStatsHandler(svc *stats.Service) *StatsHandler {
	return &StatsHandler{stats: svc}
}

func (h *StatsHandler) General() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		return h.stats.General(r.Context())
	})
}

// TopOfferings handles GET /stats/top-offerings?limit=.
func (h *StatsHandler) TopOfferings() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		n, err := queryInt(r, "limit", stats.DefaultTopOfferings)
		if err != nil {
			return nil, err
		}
		return h.stats.TopOfferings(r.Context(), n)
	})
}

// Revenue handles GET /stats/revenue?from=&to=. Dates without a time cover
// the whole day.
func (h *StatsHandler) Revenue() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		from, err := queryTime(r, "from", false)
		if err != nil {
			return nil, err
		}
		to, err := queryTime(r, "to", true)
		if err != nil {
			return nil, err
		}
		var f, t time.Time
		if from != nil {
			f = *from
		}
		if to != nil {
			t = *to
		}
		return h.stats.Revenue(r.Context(), f, t)
	})
}

func (h *StatsHandler) Mechanic() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, _ empty) (any, error) {
		return h.stats.Mechanic(r.Context(), p, r.PathValue("id"))
	})
}
