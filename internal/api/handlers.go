package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	gerrors "github.com/cordonhq/cordon/internal/errors"
	"github.com/cordonhq/cordon/internal/logging"
	"github.com/cordonhq/cordon/internal/models"
)

const maxRequestBody = 1 << 20 // 1MB

// EvaluateResponse is the wire shape returned to protocol adapters and the
// dashboard after one evaluation.
type EvaluateResponse struct {
	ActionID   string              `json:"action_id"`
	Decision   models.Decision     `json:"decision"`
	Composite  float64             `json:"composite"`
	Breakdown  models.SRIBreakdown `json:"breakdown"`
	Reason     string              `json:"reason"`
	Thresholds models.Thresholds   `json:"thresholds"`
}

func (r *Router) handleEvaluate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, requestID := logging.WithRequestID(req.Context(), req.Header.Get("X-Request-ID"))

	var action models.ProposedAction
	decoder := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid action payload: "+err.Error())
		return
	}

	verdict, err := r.deps.Engine().Evaluate(ctx, action)
	if err != nil {
		if gerrors.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("requestId", requestID).Msg("Evaluation failed")
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	// The verdict is final here; audit and broadcast are consumers only.
	if err := r.deps.Recorder.Record(ctx, verdict); err != nil {
		log.Error().Err(err).Str("actionId", verdict.ActionID).Msg("Failed to record verdict")
	}
	if r.deps.Hub != nil {
		r.deps.Hub.BroadcastVerdict(verdict)
	}

	writeJSON(w, http.StatusOK, EvaluateResponse{
		ActionID:   verdict.ActionID,
		Decision:   verdict.Decision,
		Composite:  verdict.Breakdown.Composite,
		Breakdown:  verdict.Breakdown,
		Reason:     verdict.Reason,
		Thresholds: verdict.Thresholds,
	})
}

func (r *Router) handleVerdicts(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := r.deps.Recorder.List(req.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list verdicts")
		writeError(w, http.StatusInternalServerError, "failed to list verdicts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verdicts": entries, "count": len(entries)})
}

func (r *Router) handleVerdict(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	actionID := strings.TrimPrefix(req.URL.Path, "/api/verdicts/")
	if actionID == "" || strings.Contains(actionID, "/") {
		writeError(w, http.StatusBadRequest, "invalid action id")
		return
	}

	entry, err := r.deps.Recorder.Get(req.Context(), actionID)
	if err != nil {
		log.Error().Err(err).Str("actionId", actionID).Msg("Failed to load verdict")
		writeError(w, http.StatusInternalServerError, "failed to load verdict")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "verdict not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	status := map[string]any{"status": "healthy"}
	if r.deps.Hub != nil {
		status["dashboard_clients"] = r.deps.Hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

func (r *Router) handleVersion(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": r.deps.Version})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
