package handlers

import (
	"net/http"

	"github.com/ukydev/garage-service/internal/models"
	"github.com/ukydev/garage-service/internal/quote"
)

type QuoteHandler struct {
	engine *quote.Engine
}

func NewQuoteHandler(engine *quote.Engine) *QuoteHandler {
	return &QuoteHandler{engine: engine}
}

func (h *QuoteHandler) Quote() http.HandlerFunc {
	return withPrincipal(http.StatusOK, false, func(r *http.Request, p models.Claims, req models.QuoteRequest) (any, error) {
		return h.engine.Quote(r.Context(), p, req)
	})
}

func (h *QuoteHandler) Options() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, _ empty) (any, error) {
		return h.engine.Options(r.Context(), p)
	})
}
