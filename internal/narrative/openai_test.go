package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cordonhq/cordon/internal/models"
)

func chatOKBody(content string) []byte {
	data, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return data
}

func testVerdict() *models.Verdict {
	return &models.Verdict{
		ActionID: "01A",
		Decision: models.DecisionEscalated,
		Action: models.ProposedAction{
			AgentID:    "cost-optimizer",
			ActionType: models.ActionScaleDown,
			Target:     models.ActionTarget{ResourceID: "vm-batch-01"},
		},
		Breakdown: models.SRIBreakdown{Composite: 41.2},
		Reason:    "escalated for human review",
	}
}

func TestNoopAugmenter(t *testing.T) {
	prose, err := Noop{}.Augment(context.Background(), testVerdict())
	if err != nil || prose != "" {
		t.Fatalf("noop should return nothing: %q %v", prose, err)
	}
}

func TestOpenAIAugment(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write(chatOKBody("  the batch pool feeds nightly exports  "))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "", srv.URL)
	prose, err := c.Augment(context.Background(), testVerdict())
	if err != nil {
		t.Fatalf("augment failed: %v", err)
	}
	if prose != "the batch pool feeds nightly exports" {
		t.Fatalf("prose = %q", prose)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotReq.Model != defaultModel || len(gotReq.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(chatOKBody("recovered"))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "", srv.URL)
	prose, err := c.Augment(context.Background(), testVerdict())
	if err != nil {
		t.Fatalf("augment failed after retry: %v", err)
	}
	if prose != "recovered" || calls != 2 {
		t.Fatalf("prose = %q after %d calls", prose, calls)
	}
}

func TestOpenAITerminalError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-bad", "", srv.URL)
	if _, err := c.Augment(context.Background(), testVerdict()); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("terminal status must not be retried, got %d calls", calls)
	}
}

func TestOpenAICircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-bad", "", srv.URL)
	for i := 0; i < 3; i++ {
		_, _ = c.Augment(context.Background(), testVerdict())
	}

	// The breaker is open now; the next call fails without reaching the
	// server.
	srv.Close()
	if _, err := c.Augment(context.Background(), testVerdict()); err == nil {
		t.Fatalf("open breaker should reject the call")
	}
}
