package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/engine"
	"github.com/m-a-n-a-v/vettr/backend/internal/reconcile"
	"github.com/m-a-n-a-v/vettr/backend/internal/scoring"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

// ScoreHandler serves score cache maintenance and replica sync
type ScoreHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(e *engine.Engine, log *logger.Logger) *ScoreHandler {
	return &ScoreHandler{
		engine: e,
		logger: log,
	}
}

// InvalidateOne drops one cached score
// DELETE /api/scores/cache/{id}
func (h *ScoreHandler) InvalidateOne(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.engine.InvalidateScoreCache(r.Context(), id); err != nil {
		respondEngineError(w, h.logger.WithField("entity_id", id), err, "invalidate score cache")
		return
	}

	respondData(w, map[string]string{"invalidated": id})
}

// InvalidateAll drops every cached score
// DELETE /api/scores/cache
func (h *ScoreHandler) InvalidateAll(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.InvalidateAllScores(r.Context()); err != nil {
		respondEngineError(w, h.logger, err, "invalidate score cache")
		return
	}

	respondData(w, map[string]string{"invalidated": "all"})
}

// SyncRequest carries remote score copies to reconcile against the local cache
type SyncRequest struct {
	Strategy string                `json:"strategy"`
	Remotes  []scoring.RemoteScore `json:"remotes"`
}

// SyncFailure is a candidate the resolver rejected
type SyncFailure struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Error string `json:"error"`
}

// SyncResponse summarizes a reconciliation
type SyncResponse struct {
	Strategy   string                     `json:"strategy"`
	Resolved   []contracts.CompositeScore `json:"resolved"`
	Unresolved []string                   `json:"unresolved"`
	Failures   []SyncFailure              `json:"failures,omitempty"`
}

// Sync reconciles remote score copies
// POST /api/sync/scores
func (h *ScoreHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	strategy, err := reconcile.ParseStrategy(req.Strategy)
	if err != nil {
		respondEngineError(w, h.logger, err, "parse strategy")
		return
	}

	batch, err := h.engine.ReconcileScores(r.Context(), req.Remotes, strategy)
	if err != nil {
		switch {
		case !errors.Is(err, contracts.ErrInvalidArgument):
			respondEngineError(w, h.logger, err, "reconcile scores")
			return
		case len(batch.Failures) == len(req.Remotes):
			// 전부 실패한 경우만 요청 자체를 거절
			respondEngineError(w, h.logger, err, "reconcile scores")
			return
		}
	}

	resp := SyncResponse{
		Strategy:   string(strategy),
		Resolved:   batch.Resolved,
		Unresolved: make([]string, 0, len(batch.Unresolved)),
	}
	for _, c := range batch.Unresolved {
		resp.Unresolved = append(resp.Unresolved, c.Key)
	}
	for _, f := range batch.Failures {
		resp.Failures = append(resp.Failures, SyncFailure{Index: f.Index, Key: f.Key, Error: f.Err.Error()})
	}

	respondData(w, resp)
}
