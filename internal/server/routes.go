package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/journalkit/mnemo/internal/engine"
	"github.com/journalkit/mnemo/internal/store"
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	var req struct {
		Text       string `json:"text"`
		SourceType string `json:"source_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, `{"error":"text required"}`, http.StatusBadRequest)
		return
	}
	if req.SourceType == "" {
		req.SourceType = store.SourceConversation
	}

	records, err := s.engine.ExtractAndStore(r.Context(), ownerID, req.Text, req.SourceType, time.Now())
	if err != nil {
		// Persistence is best-effort: report the miss, do not fail the turn.
		if errors.Is(err, store.ErrStorageFailure) {
			s.log.Warn("extract: batch not persisted", "owner", ownerID, "err", err)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"stored":   false,
				"memories": []engine.RecordView{},
			})
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"stored":   true,
		"count":    len(records),
		"memories": engine.NewRecordViews(records),
	})
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	category := r.URL.Query().Get("category")

	var records []store.Record
	var err error
	if category != "" {
		if !store.ValidCategories[category] {
			http.Error(w, `{"error":"unknown category"}`, http.StatusBadRequest)
			return
		}
		records, err = s.db.ListActiveByCategory(ownerID, category)
	} else {
		records, err = s.db.ListActive(ownerID)
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(records),
		"memories": engine.NewRecordViews(records),
	})
}

func (s *Server) handleRelevant(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	convContext := r.URL.Query().Get("context")

	limit := 5
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	convType := r.URL.Query().Get("type")
	if convType == "" {
		convType = engine.ConversationCurrent
	}

	records, err := s.engine.RelevantMemories(r.Context(), ownerID, convContext, time.Now(), limit, convType)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(records),
		"memories": engine.NewRecordViews(records),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	convContext := r.URL.Query().Get("context")

	records, err := s.engine.RelevantMemories(r.Context(), ownerID, convContext, time.Now(), 5, engine.ConversationCurrent)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	insights := s.engine.AnalyzeMemories(records, convContext)
	followUps := s.engine.FollowUpQuestions(records, convContext, insights)
	gaps, err := s.engine.MemoryGaps(ownerID, convContext)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	if insights == nil {
		insights = []engine.Insight{}
	}
	if followUps == nil {
		followUps = []string{}
	}
	if gaps == nil {
		gaps = []engine.MemoryGap{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"memories":            engine.NewRecordViews(records),
		"insights":            insights,
		"follow_up_questions": followUps,
		"memory_gaps":         gaps,
	})
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	var req struct {
		Context  string `json:"context"`
		Language string `json:"language"`
		Limit    int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	records, err := s.engine.RelevantMemories(r.Context(), ownerID, req.Context, time.Now(), req.Limit, engine.ConversationCurrent)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	fragment := s.engine.FormatForPrompt(records, req.Language, req.Context)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"fragment": fragment,
		"count":    len(records),
	})
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	var req struct {
		Category   string  `json:"category"`
		OldValue   string  `json:"old_value"`
		NewValue   string  `json:"new_value"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.OldValue == "" || req.NewValue == "" {
		http.Error(w, `{"error":"old_value and new_value required"}`, http.StatusBadRequest)
		return
	}
	if !store.ValidCategories[req.Category] {
		http.Error(w, `{"error":"unknown category"}`, http.StatusBadRequest)
		return
	}
	if req.Confidence <= 0 || req.Confidence > 1 {
		req.Confidence = 0.95
	}

	rec, err := s.db.CorrectValue(r.Context(), ownerID, req.OldValue, req.NewValue, req.Category, time.Now(), req.Confidence)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "corrected",
		"memory": engine.NewRecordView(*rec),
	})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	memoryID := chi.URLParam(r, "memoryID")

	rec, err := s.db.GetRecord(memoryID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if rec == nil || rec.OwnerID != chi.URLParam(r, "ownerID") {
		http.Error(w, `{"error":"memory not found"}`, http.StatusNotFound)
		return
	}

	if err := s.db.Deactivate(memoryID); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deactivated"})
}

func (s *Server) handleSensitive(w http.ResponseWriter, r *http.Request) {
	memoryID := chi.URLParam(r, "memoryID")

	var req struct {
		Sensitive bool `json:"sensitive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	rec, err := s.db.GetRecord(memoryID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if rec == nil || rec.OwnerID != chi.URLParam(r, "ownerID") {
		http.Error(w, `{"error":"memory not found"}`, http.StatusNotFound)
		return
	}

	if err := s.db.SetSensitive(memoryID, req.Sensitive); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "sensitive": req.Sensitive})
}

func (s *Server) handleProcessSession(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	var req struct {
		SessionID string   `json:"session_id"`
		Texts     []string `json:"texts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if len(req.Texts) == 0 {
		http.Error(w, `{"error":"texts required"}`, http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	res, err := s.engine.ProcessSession(r.Context(), ownerID, req.SessionID, req.Texts, time.Now())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"session_id": req.SessionID,
		"result":     res,
	})
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	var req struct {
		SessionID string `json:"session_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	snap, err := s.engine.CreateSnapshot(r.Context(), ownerID, req.SessionID, time.Now())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":         snap.ID,
		"session_id": req.SessionID,
		"created_at": snap.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	snaps, err := s.db.ListSnapshots(ownerID, limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type snapJSON struct {
		ID        string `json:"id"`
		SessionID string `json:"session_id,omitempty"`
		Summary   string `json:"session_summary"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]snapJSON, 0, len(snaps))
	for _, sn := range snaps {
		out = append(out, snapJSON{
			ID:        sn.ID,
			SessionID: sn.SessionID,
			Summary:   sn.SessionSummary,
			CreatedAt: sn.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":     len(out),
		"snapshots": out,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	stats, err := s.engine.Stats(ownerID, time.Now())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
