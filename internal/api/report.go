package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cordonhq/cordon/internal/reporting"
)

const defaultReportLimit = 200

func (r *Router) handleVerdictReport(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultReportLimit
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := r.deps.Recorder.List(req.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load verdicts for report")
		writeError(w, http.StatusInternalServerError, "failed to load verdicts")
		return
	}

	data, err := reporting.NewPDFGenerator().Generate(entries, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate verdict report")
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="verdicts.pdf"`)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("Failed to write verdict report")
	}
}
