package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractStoresMemories(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"My name is Sarah and I love painting"}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp struct {
		Stored   bool `json:"stored"`
		Count    int  `json:"count"`
		Memories []struct {
			Category string `json:"category"`
			Value    string `json:"memory_value"`
			Content  string `json:"content"`
		} `json:"memories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !resp.Stored {
		t.Error("stored = false, want true")
	}
	if resp.Count == 0 {
		t.Fatal("expected at least one stored memory")
	}
	for _, m := range resp.Memories {
		if m.Content != m.Value {
			t.Errorf("legacy content alias %q != memory_value %q", m.Content, m.Value)
		}
	}
}

func TestExtractMissingText(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestListMemoriesByCategory(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"I really enjoy painting. My sister Emma visited today."}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("extract: status = %d; body: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/owners/user-1/memories?category=interests", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Count    int `json:"count"`
		Memories []struct {
			Category string `json:"category"`
		} `json:"memories"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count == 0 {
		t.Fatal("expected interests memories")
	}
	for _, m := range resp.Memories {
		if m.Category != "interests" {
			t.Errorf("category = %q, want interests", m.Category)
		}
	}
}

func TestListMemoriesUnknownCategory(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("GET", "/api/owners/user-1/memories?category=nonsense", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRelevantMemories(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"I'm struggling with deadlines at work"}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	req = httptest.NewRequest("GET", "/api/owners/user-1/memories/relevant?context=stressed+about+work+deadlines&limit=5", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count == 0 {
		t.Error("expected at least one relevant memory for matching context")
	}
	if resp.Count > 5 {
		t.Errorf("count = %d, want at most 5", resp.Count)
	}
}

func TestFormatFragment(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"I love painting landscapes on weekends"}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	fmtBody := `{"context":"thinking about painting something new","language":"en"}`
	req = httptest.NewRequest("POST", "/api/owners/user-1/memories/format", strings.NewReader(fmtBody))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Fragment string `json:"fragment"`
		Count    int    `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count > 0 && resp.Fragment == "" {
		t.Error("expected non-empty fragment when memories matched")
	}
}

func TestDeactivate(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"My name is Sarah"}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var extractResp struct {
		Memories []struct {
			ID string `json:"id"`
		} `json:"memories"`
	}
	json.Unmarshal(w.Body.Bytes(), &extractResp)
	if len(extractResp.Memories) == 0 {
		t.Fatal("no memories extracted")
	}
	id := extractResp.Memories[0].ID

	req = httptest.NewRequest("POST", "/api/owners/user-1/memories/"+id+"/deactivate", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// Deactivated records disappear from listings.
	req = httptest.NewRequest("GET", "/api/owners/user-1/memories", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var listResp struct {
		Memories []struct {
			ID string `json:"id"`
		} `json:"memories"`
	}
	json.Unmarshal(w.Body.Bytes(), &listResp)
	for _, m := range listResp.Memories {
		if m.ID == id {
			t.Error("deactivated memory still listed")
		}
	}
}

func TestDeactivateWrongOwner(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"My name is Sarah"}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var extractResp struct {
		Memories []struct {
			ID string `json:"id"`
		} `json:"memories"`
	}
	json.Unmarshal(w.Body.Bytes(), &extractResp)
	if len(extractResp.Memories) == 0 {
		t.Fatal("no memories extracted")
	}
	id := extractResp.Memories[0].ID

	req = httptest.NewRequest("POST", "/api/owners/user-2/memories/"+id+"/deactivate", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestCorrectMemory(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"I live in Hamburg"}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("extract: status = %d; body: %s", w.Code, w.Body.String())
	}

	correction := `{"category":"personal_info","old_value":"hamburg","new_value":"lives in Berlin"}`
	req = httptest.NewRequest("POST", "/api/owners/user-1/memories/correct", strings.NewReader(correction))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("correct: status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Memory struct {
			Value      string `json:"memory_value"`
			SourceType string `json:"source_type"`
		} `json:"memory"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "corrected" {
		t.Errorf("status = %q, want corrected", resp.Status)
	}
	if resp.Memory.Value != "lives in Berlin" {
		t.Errorf("memory_value = %q, want replacement", resp.Memory.Value)
	}
	if resp.Memory.SourceType != "user_correction" {
		t.Errorf("source_type = %q, want user_correction", resp.Memory.SourceType)
	}
}

func TestCorrectMemoryBadRequest(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/correct", strings.NewReader(`{"category":"personal_info"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestProcessSession(t *testing.T) {
	srv := testServer(t)

	body := `{"session_id":"sess-1","texts":["My name is Sarah","I love painting"]}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/sessions/process", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		SessionID string `json:"session_id"`
		Result    struct {
			ExtractedCount int    `json:"extracted_count"`
			SnapshotID     string `json:"snapshot_id"`
		} `json:"result"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.SessionID != "sess-1" {
		t.Errorf("session_id = %q, want sess-1", resp.SessionID)
	}
	if resp.Result.ExtractedCount == 0 {
		t.Error("expected extracted memories")
	}
	if resp.Result.SnapshotID == "" {
		t.Error("expected snapshot to be created")
	}
}

func TestProcessSessionGeneratesID(t *testing.T) {
	srv := testServer(t)

	body := `{"texts":["I enjoy hiking"]}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/sessions/process", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SessionID string `json:"session_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.SessionID == "" {
		t.Error("expected generated session_id")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"My name is Sarah"}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	req = httptest.NewRequest("POST", "/api/owners/user-1/snapshots", strings.NewReader(`{"session_id":"sess-9"}`))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create snapshot: status = %d; body: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/owners/user-1/snapshots", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("list snapshots: status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count     int `json:"count"`
		Snapshots []struct {
			SessionID string `json:"session_id"`
		} `json:"snapshots"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Snapshots[0].SessionID != "sess-9" {
		t.Errorf("session_id = %q, want sess-9", resp.Snapshots[0].SessionID)
	}
}

func TestStats(t *testing.T) {
	srv := testServer(t)

	body := `{"text":"My name is Sarah and I love painting"}`
	req := httptest.NewRequest("POST", "/api/owners/user-1/memories/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	req = httptest.NewRequest("GET", "/api/owners/user-1/stats", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		TotalMemories int            `json:"total_memories"`
		ByCategory    map[string]int `json:"by_category"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.TotalMemories == 0 {
		t.Error("expected non-zero total_memories")
	}
	if len(resp.ByCategory) == 0 {
		t.Error("expected by_category breakdown")
	}
}

func TestInsightsRoute(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("GET", "/api/owners/user-1/memories/insights?context=feeling+stressed", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"memories", "insights", "follow_up_questions", "memory_gaps"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
}
