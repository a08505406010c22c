package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"comptes/internal/aggregate"
	"comptes/internal/annotations"
	"comptes/internal/categories"
	"comptes/internal/core"
	"comptes/internal/filter"
	"comptes/internal/ingest"
	"comptes/internal/log"
	"comptes/internal/storage"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.statements == nil {
		checks["statements"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["statements"] = "ok"
	}

	if s.annotations == nil {
		checks["annotations"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["annotations"] = "ok"
	}

	checks["cache"] = map[string]any{
		"batch_entries": s.batchCache.Size(),
		"status":        "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleUploadStatement ingests a CSV statement export and returns the
// normalized, deduplicated batch.
func (s *Server) handleUploadStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.logger.WarnContext(r.Context(), "Rejected statement upload",
			log.FieldError, err.Error())
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	rows, err := ingest.ReadCSV(file)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Unreadable statement CSV",
			log.FieldError, err.Error())
		writeError(w, http.StatusBadRequest, "unreadable CSV file")
		return
	}

	result := s.statements.Process(r.Context(), rows)
	s.batchCache.Set(result.BatchID, result.Transactions)

	s.logger.InfoContext(r.Context(), "Statement batch ingested",
		log.FieldBatchID, result.BatchID,
		log.FieldRows, result.TotalProcessed,
		log.FieldRetained, len(result.Transactions),
		log.FieldDuplicates, result.DuplicatesSkipped,
		log.FieldRowErrors, len(result.Errors))

	writeJSON(w, http.StatusOK, toIngestResponse(result))
}

// handleBatchTransactions returns a filtered, sorted view of a batch.
func (s *Server) handleBatchTransactions(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")

	txs, ok := s.loadBatch(w, r, batchID)
	if !ok {
		return
	}

	state := parseFilterState(r, txs)
	view, catset, ok := s.applyFilters(w, r, txs, state)
	if !ok {
		return
	}

	summary := aggregate.Compute(view, catset.IsEssential)
	breakdown := aggregate.ByCategory(view)

	writeJSON(w, http.StatusOK, transactionsResponse{
		BatchID:      batchID,
		Count:        len(view),
		Filters:      state,
		Summary:      toSummaryPayload(summary, breakdown),
		Transactions: toTransactionDTOs(view),
	})
}

// handleBatchSummary returns aggregated totals over the filtered view.
func (s *Server) handleBatchSummary(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")

	txs, ok := s.loadBatch(w, r, batchID)
	if !ok {
		return
	}

	state := parseFilterState(r, txs)
	view, catset, ok := s.applyFilters(w, r, txs, state)
	if !ok {
		return
	}

	summary := aggregate.Compute(view, catset.IsEssential)
	breakdown := aggregate.ByCategory(view)

	writeJSON(w, http.StatusOK, toSummaryResponse(batchID, len(view), summary, breakdown))
}

// handleGetAnnotation returns a transaction's annotation. Unknown keys yield
// the zero annotation rather than an error.
//
// Identity keys embed the raw label, which often contains slashes
// ("CARTE 15/01/24 CARREFOUR"), so clients must percent-encode the key to fit
// the single path segment. PathValue hands back the decoded form.
func (s *Server) handleGetAnnotation(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	ann, _, err := s.annotations.Get(r.Context(), key)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to read annotation",
			log.FieldKey, key, log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "failed to read annotation")
		return
	}

	writeJSON(w, http.StatusOK, annotationResponse{Key: key, Flagged: ann.Flagged, Note: ann.Note})
}

// handlePutAnnotation merges a partial annotation update for a transaction.
func (s *Server) handlePutAnnotation(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var patch annotations.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid annotation body")
		return
	}

	ann, err := s.annotations.Upsert(r.Context(), key, patch)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to update annotation",
			log.FieldKey, key, log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "failed to update annotation")
		return
	}

	writeJSON(w, http.StatusOK, annotationResponse{Key: key, Flagged: ann.Flagged, Note: ann.Note})
}

// handleGetEssentials returns the fixed and custom essential categories.
func (s *Server) handleGetEssentials(w http.ResponseWriter, r *http.Request) {
	catset, err := categories.Load(r.Context(), s.overrides)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load category set",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	writeJSON(w, http.StatusOK, essentialsResponse{
		Fixed:  categories.Fixed,
		Custom: catset.Custom(),
	})
}

// handlePutEssentials replaces the custom essential category list.
func (s *Server) handlePutEssentials(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Custom []string `json:"custom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid essentials body")
		return
	}

	if err := s.overrides.Set(r.Context(), body.Custom); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to store essential overrides",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "failed to store essentials")
		return
	}

	catset, err := categories.Load(r.Context(), s.overrides)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	writeJSON(w, http.StatusOK, essentialsResponse{
		Fixed:  categories.Fixed,
		Custom: catset.Custom(),
	})
}

// handleToggleEssential adds or removes one custom essential category.
func (s *Server) handleToggleEssential(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.PathValue("category"))
	if category == "" {
		writeError(w, http.StatusBadRequest, "missing category")
		return
	}

	custom, err := s.overrides.List(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load essential overrides",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "failed to load essentials")
		return
	}

	next := make([]string, 0, len(custom)+1)
	removed := false
	for _, c := range custom {
		if c == category {
			removed = true
			continue
		}
		next = append(next, c)
	}
	if !removed {
		next = append(next, category)
	}

	if err := s.overrides.Set(r.Context(), next); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to store essential overrides",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "failed to store essentials")
		return
	}

	writeJSON(w, http.StatusOK, essentialsResponse{
		Fixed:  categories.Fixed,
		Custom: next,
	})
}

// loadBatch resolves a batch from cache or archive, writing the error
// response on failure.
func (s *Server) loadBatch(w http.ResponseWriter, r *http.Request, batchID string) ([]core.Transaction, bool) {
	txs, err := s.batchTransactions(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, storage.ErrBatchNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return nil, false
		}
		s.logger.ErrorContext(r.Context(), "Failed to load batch",
			log.FieldBatchID, batchID, log.FieldError, err.Error())
		writeError(w, http.StatusNotFound, "batch not found")
		return nil, false
	}
	return txs, true
}

// applyFilters loads the category set and runs the filter engine, writing
// the error response on failure.
func (s *Server) applyFilters(w http.ResponseWriter, r *http.Request, txs []core.Transaction, state filter.State) ([]core.Transaction, *categories.Set, bool) {
	catset, err := categories.Load(r.Context(), s.overrides)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load category set",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "failed to load categories")
		return nil, nil, false
	}

	engine := &filter.Engine{Annotations: s.annotations, Essential: catset.IsEssential}
	view, err := engine.Apply(r.Context(), txs, state)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to filter batch",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "failed to filter batch")
		return nil, nil, false
	}
	return view, catset, true
}
