package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cordonhq/cordon/internal/audit"
	"github.com/cordonhq/cordon/internal/engine"
	"github.com/cordonhq/cordon/internal/models"
	"github.com/cordonhq/cordon/internal/policies"
	"github.com/cordonhq/cordon/internal/topology"
)

// memoryRecorder is a map-backed Recorder for handler tests.
type memoryRecorder struct {
	entries []audit.Entry
}

func (m *memoryRecorder) Record(_ context.Context, v *models.Verdict) error {
	m.entries = append(m.entries, audit.Entry{
		ActionID:   v.ActionID,
		Timestamp:  v.Timestamp,
		Decision:   string(v.Decision),
		Composite:  v.Breakdown.Composite,
		AgentID:    v.Action.AgentID,
		ActionType: string(v.Action.ActionType),
		ResourceID: v.Action.Target.ResourceID,
		Reason:     v.Reason,
	})
	return nil
}

func (m *memoryRecorder) List(_ context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

func (m *memoryRecorder) Get(_ context.Context, actionID string) (*audit.Entry, error) {
	for i := range m.entries {
		if m.entries[i].ActionID == actionID {
			return &m.entries[i], nil
		}
	}
	return nil, nil
}

func (m *memoryRecorder) Close() error { return nil }

func testRouter(t *testing.T) (http.Handler, *memoryRecorder) {
	t.Helper()

	graph := topology.NewSnapshot([]topology.Node{
		{Name: "vm-batch-01", Type: "Microsoft.Compute/virtualMachines", MonthlyCost: 120},
		{Name: "stor-dr-backup", Type: "Microsoft.Storage/storageAccounts",
			Tags: map[string]string{topology.TagPurpose: "disaster-recovery"}},
	}, nil)
	rules := []policies.Rule{{
		ID: "POL-DR-001", Name: "Protect disaster recovery", Severity: models.SeverityCritical,
		Conditions: []policies.Condition{
			policies.TagsMatch{Required: map[string]string{topology.TagPurpose: "disaster-recovery"}},
			policies.BlockedActions{Actions: []models.ActionType{models.ActionDeleteResource}},
		},
	}}

	eng, err := engine.New(engine.DefaultConfig(), graph, rules, nil,
		engine.WithClock(func() time.Time { return time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC) }),
		engine.WithIDFunc(func() string { return "01TESTACTION00000000000000" }),
	)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	rec := &memoryRecorder{}
	handler := NewRouter(Deps{
		Engine:   func() *engine.Engine { return eng },
		Recorder: rec,
		Version:  "test",
	})
	return handler, rec
}

func TestHandleEvaluate(t *testing.T) {
	handler, rec := testRouter(t)

	body := `{
		"agent_id": "sre",
		"action_type": "restart_service",
		"target": {"resource_id": "vm-batch-01", "resource_type": "Microsoft.Compute/virtualMachines"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp EvaluateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ActionID != "01TESTACTION00000000000000" {
		t.Fatalf("action id = %q", resp.ActionID)
	}
	if resp.Decision != models.DecisionApproved {
		t.Fatalf("decision = %q, reason %q", resp.Decision, resp.Reason)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("verdict not recorded")
	}
}

func TestHandleEvaluateCriticalDenial(t *testing.T) {
	handler, _ := testRouter(t)

	body := `{
		"agent_id": "cost-optimizer",
		"action_type": "delete_resource",
		"target": {"resource_id": "stor-dr-backup", "resource_type": "Microsoft.Storage/storageAccounts"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp EvaluateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Decision != models.DecisionDenied {
		t.Fatalf("decision = %q, want denied", resp.Decision)
	}
	if !strings.Contains(resp.Reason, "POL-DR-001") {
		t.Fatalf("reason should name the critical rule: %q", resp.Reason)
	}
}

func TestHandleEvaluateValidation(t *testing.T) {
	handler, rec := testRouter(t)

	// Missing agent_id fails validation, not decoding.
	body := `{"action_type": "restart_service", "target": {"resource_id": "vm-batch-01"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(rec.entries) != 0 {
		t.Fatalf("rejected action must not be recorded")
	}
}

func TestHandleEvaluateBadJSON(t *testing.T) {
	handler, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", bytes.NewReader([]byte("{nope")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleEvaluateMethodNotAllowed(t *testing.T) {
	handler, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/evaluate", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestHandleVerdicts(t *testing.T) {
	handler, rec := testRouter(t)
	rec.entries = []audit.Entry{
		{ActionID: "01A", Decision: "approved"},
		{ActionID: "01B", Decision: "denied"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/verdicts?limit=1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Verdicts []audit.Entry `json:"verdicts"`
		Count    int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Verdicts[0].ActionID != "01A" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/verdicts?limit=-3", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, bad)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative limit status = %d, want 400", w.Code)
	}
}

func TestHandleVerdictByID(t *testing.T) {
	handler, rec := testRouter(t)
	rec.entries = []audit.Entry{{ActionID: "01A", Decision: "approved"}}

	req := httptest.NewRequest(http.MethodGet, "/api/verdicts/01A", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	missing := httptest.NewRequest(http.MethodGet, "/api/verdicts/absent", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, missing)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing verdict status = %d, want 404", w.Code)
	}
}

func TestHandleHealthAndVersion(t *testing.T) {
	handler, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/version", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "test") {
		t.Fatalf("version = %d %s", w.Code, w.Body.String())
	}
}

func TestHandleVerdictReport(t *testing.T) {
	handler, rec := testRouter(t)
	rec.entries = []audit.Entry{{ActionID: "01A", Decision: "approved", Timestamp: time.Now()}}

	req := httptest.NewRequest(http.MethodGet, "/api/reports/verdicts.pdf", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("response is not a PDF")
	}
}
