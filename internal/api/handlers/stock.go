package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m-a-n-a-v/vettr/backend/internal/engine"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

// StockHandler serves per-stock analytics
// ⭐ SSOT: 종목 분석 API 핸들러는 이 구조체에서만
type StockHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(e *engine.Engine, log *logger.Logger) *StockHandler {
	return &StockHandler{
		engine: e,
		logger: log,
	}
}

// GetFlags returns detected red flags with their severity
// GET /api/stocks/{id}/flags
func (h *StockHandler) GetFlags(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, err := h.engine.DetectFlags(r.Context(), id)
	if err != nil {
		respondEngineError(w, h.logger.WithField("entity_id", id), err, "detect flags")
		return
	}

	respondData(w, report)
}

// GetScore returns the composite score
// GET /api/stocks/{id}/score
func (h *StockHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	score, err := h.engine.ComputeScore(r.Context(), id)
	if err != nil {
		respondEngineError(w, h.logger.WithField("entity_id", id), err, "compute score")
		return
	}

	respondData(w, score)
}

// GetScoreTrend returns the 30-day score trend
// GET /api/stocks/{id}/trend/score
func (h *StockHandler) GetScoreTrend(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trend, err := h.engine.ScoreTrend(r.Context(), id)
	if err != nil {
		respondEngineError(w, h.logger.WithField("entity_id", id), err, "analyze score trend")
		return
	}

	respondData(w, trend)
}

// GetFlagTrend returns the flag trend of the last two 30-day windows
// GET /api/stocks/{id}/trend/flags
func (h *StockHandler) GetFlagTrend(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trend, err := h.engine.FlagTrend(r.Context(), id)
	if err != nil {
		respondEngineError(w, h.logger.WithField("entity_id", id), err, "analyze flag trend")
		return
	}

	respondData(w, trend)
}
