package policies

import (
	"testing"
	"time"

	"github.com/cordonhq/cordon/internal/models"
)

func testContext() EvalContext {
	return EvalContext{
		Action: models.ProposedAction{
			AgentID:    "tester",
			ActionType: models.ActionDeleteResource,
			Target: models.ActionTarget{
				ResourceID:   "stor-dr-backup",
				ResourceType: "Microsoft.Storage/storageAccounts",
			},
		},
		Tags: map[string]string{
			"purpose":     "disaster-recovery",
			"environment": "production",
		},
		Environment: "production",
		Now:         time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC), // Wednesday
	}
}

func TestRuleVacuousConditions(t *testing.T) {
	// A rule with no conditions matches every action.
	r := Rule{ID: "POL-ALL", Name: "everything", Severity: models.SeverityLow}
	if !r.Matches(testContext()) {
		t.Fatalf("unconditional rule should match")
	}
}

func TestTagsMatch(t *testing.T) {
	ec := testContext()

	exact := TagsMatch{Required: map[string]string{"purpose": "disaster-recovery"}}
	if !exact.Matches(ec) {
		t.Fatalf("exact tag value should match")
	}

	wildcard := TagsMatch{Required: map[string]string{"purpose": "disaster-*"}}
	if !wildcard.Matches(ec) {
		t.Fatalf("wildcard tag value should match")
	}

	caseFold := TagsMatch{Required: map[string]string{"purpose": "Disaster-Recovery"}}
	if !caseFold.Matches(ec) {
		t.Fatalf("tag match should be case-insensitive")
	}

	missing := TagsMatch{Required: map[string]string{"owner": "sre"}}
	if missing.Matches(ec) {
		t.Fatalf("absent tag key should not match")
	}

	ec.Tags = nil
	if exact.Matches(ec) {
		t.Fatalf("nil tags should not match a non-empty requirement")
	}
}

func TestBlockedActions(t *testing.T) {
	ec := testContext()
	c := BlockedActions{Actions: []models.ActionType{models.ActionDeleteResource, models.ActionScaleDown}}
	if !c.Matches(ec) {
		t.Fatalf("delete should be blocked")
	}
	ec.Action.ActionType = models.ActionRestartService
	if c.Matches(ec) {
		t.Fatalf("restart should not be blocked")
	}
}

func TestEnvironmentMatch(t *testing.T) {
	ec := testContext()
	c := EnvironmentMatch{Environment: "Production"}
	if !c.Matches(ec) {
		t.Fatalf("environment match should be case-insensitive")
	}
	ec.Environment = "staging"
	if c.Matches(ec) {
		t.Fatalf("staging should not match production")
	}
}

func TestCostImpactThreshold(t *testing.T) {
	ec := testContext()
	c := CostImpactThreshold{Threshold: 500}

	if c.Matches(ec) {
		t.Fatalf("unknown cost impact must never match")
	}

	impact := 500.0
	ec.CostImpact = &impact
	if c.Matches(ec) {
		t.Fatalf("threshold is strict; equal impact must not match")
	}

	impact = 500.01
	if !c.Matches(ec) {
		t.Fatalf("impact above threshold should match")
	}
}

func TestRuleConjunction(t *testing.T) {
	ec := testContext()
	r := Rule{
		ID:       "POL-DR-001",
		Name:     "protect disaster recovery",
		Severity: models.SeverityCritical,
		Conditions: []Condition{
			TagsMatch{Required: map[string]string{"purpose": "disaster-recovery"}},
			BlockedActions{Actions: []models.ActionType{models.ActionDeleteResource, models.ActionScaleDown}},
		},
	}
	if !r.Matches(ec) {
		t.Fatalf("both conditions hold; rule should fire")
	}

	ec.Action.ActionType = models.ActionRestartService
	if r.Matches(ec) {
		t.Fatalf("one failed condition must stop the rule")
	}
}

func TestRuleValidate(t *testing.T) {
	ok := Rule{ID: "POL-1", Severity: models.SeverityHigh}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	noID := Rule{Severity: models.SeverityHigh}
	if err := noID.Validate(); err == nil {
		t.Fatalf("rule without id should fail")
	}

	badSeverity := Rule{ID: "POL-2", Severity: "urgent"}
	if err := badSeverity.Validate(); err == nil {
		t.Fatalf("invalid severity should fail")
	}

	badWindow := Rule{ID: "POL-3", Severity: models.SeverityLow, Conditions: []Condition{
		BlockedWindows{Windows: []ChangeWindow{{DayStart: "noday", DayEnd: "monday", TimeStart: "00:00", TimeEnd: "01:00"}}},
	}}
	if err := badWindow.Validate(); err == nil {
		t.Fatalf("invalid embedded window should fail")
	}

	badAction := Rule{ID: "POL-4", Severity: models.SeverityLow, Conditions: []Condition{
		BlockedActions{Actions: []models.ActionType{"terminate"}},
	}}
	if err := badAction.Validate(); err == nil {
		t.Fatalf("unknown blocked action should fail")
	}
}
