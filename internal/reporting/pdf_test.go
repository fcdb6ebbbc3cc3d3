package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/cordonhq/cordon/internal/audit"
)

func TestGenerate(t *testing.T) {
	entries := []audit.Entry{
		{
			ActionID:   "01JX5EXAMPLE00000000000001",
			Timestamp:  time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC),
			Decision:   "denied",
			Composite:  49.15,
			AgentID:    "cost-optimizer",
			ActionType: "delete_resource",
			ResourceID: "stor-dr-backup",
			ViolatedPolicies: []string{
				"POL-DR-001", "POL-PROD-002",
			},
		},
		{
			ActionID:   "01JX5EXAMPLE00000000000002",
			Timestamp:  time.Date(2025, 6, 4, 11, 0, 0, 0, time.UTC),
			Decision:   "approved",
			Composite:  6.0,
			AgentID:    "sre",
			ActionType: "restart_service",
			ResourceID: "vm-batch-dev-02",
		},
	}

	data, err := NewPDFGenerator().Generate(entries, time.Now())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if len(data) < 1000 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(data))
	}
}

func TestGenerateEmpty(t *testing.T) {
	data, err := NewPDFGenerator().Generate(nil, time.Now())
	if err != nil {
		t.Fatalf("generate empty: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
	if got := truncate("a-very-long-resource-name", 10); got != "a-very-..." {
		t.Fatalf("truncate long = %q", got)
	}
}
