package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cordonhq/cordon/internal/models"
)

func testVerdict(id string, ts time.Time) *models.Verdict {
	return &models.Verdict{
		ActionID:  id,
		Timestamp: ts,
		Action: models.ProposedAction{
			AgentID:    "cost-optimizer",
			ActionType: models.ActionDeleteResource,
			Target:     models.ActionTarget{ResourceID: "stor-dr-backup"},
		},
		Breakdown: models.SRIBreakdown{
			Infrastructure: 48, Policy: 65, Historical: 30, Cost: 22.5, Composite: 49.15,
		},
		Decision: models.DecisionDenied,
		Reason:   "denied: critical policy violation(s) POL-DR-001",
		AgentResults: map[string]any{
			models.DimensionPolicy: models.PolicyResult{
				Violations: []models.PolicyViolation{
					{RuleID: "POL-DR-001", Severity: models.SeverityCritical},
					{RuleID: "POL-PROD-002", Severity: models.SeverityHigh},
				},
			},
		},
	}
}

func TestSQLiteRecorderRoundtrip(t *testing.T) {
	r, err := NewSQLiteRecorder(t.TempDir())
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	ts := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	if err := r.Record(ctx, testVerdict("01A", ts)); err != nil {
		t.Fatalf("record: %v", err)
	}

	entry, err := r.Get(ctx, "01A")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry == nil {
		t.Fatalf("entry not found after insert")
	}
	if entry.Decision != "denied" || entry.Composite != 49.15 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.AgentID != "cost-optimizer" || entry.ResourceID != "stor-dr-backup" {
		t.Fatalf("action fields not flattened: %+v", entry)
	}
	if !entry.Timestamp.Equal(ts) {
		t.Fatalf("timestamp = %v, want %v", entry.Timestamp, ts)
	}
	if len(entry.ViolatedPolicies) != 2 || entry.ViolatedPolicies[0] != "POL-DR-001" {
		t.Fatalf("violated policies = %v", entry.ViolatedPolicies)
	}
}

func TestSQLiteRecorderListNewestFirst(t *testing.T) {
	r, err := NewSQLiteRecorder(t.TempDir())
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		v := testVerdict(fmt.Sprintf("01A%02d", i), base.Add(time.Duration(i)*time.Minute))
		if err := r.Record(ctx, v); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	entries, err := r.List(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ActionID != "01A04" || entries[2].ActionID != "01A02" {
		t.Fatalf("entries out of order: %v %v %v", entries[0].ActionID, entries[1].ActionID, entries[2].ActionID)
	}

	all, err := r.List(ctx, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("zero limit should use the default, got %d", len(all))
	}
}

func TestSQLiteRecorderGetMissing(t *testing.T) {
	r, err := NewSQLiteRecorder(t.TempDir())
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer r.Close()

	entry, err := r.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil for missing verdict, got %+v", entry)
	}
}

func TestSQLiteRecorderDuplicateActionID(t *testing.T) {
	r, err := NewSQLiteRecorder(t.TempDir())
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	ts := time.Now().UTC()
	if err := r.Record(ctx, testVerdict("01A", ts)); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := r.Record(ctx, testVerdict("01A", ts)); err == nil {
		t.Fatalf("duplicate action id should violate the primary key")
	}
}
