// Package audit persists every verdict the engine issues. The recorder is a
// passive consumer: it receives verdicts after the decision is final and
// never influences scoring.
package audit

import (
	"context"
	"time"

	"github.com/cordonhq/cordon/internal/models"
)

// Entry is the reconstructable audit record for one verdict.
type Entry struct {
	ActionID         string    `json:"action_id"`
	Timestamp        time.Time `json:"timestamp"`
	Decision         string    `json:"decision"`
	Composite        float64   `json:"composite"`
	Infrastructure   float64   `json:"sri_infrastructure"`
	Policy           float64   `json:"sri_policy"`
	Historical       float64   `json:"sri_historical"`
	Cost             float64   `json:"sri_cost"`
	AgentID          string    `json:"agent_id"`
	ActionType       string    `json:"action_type"`
	ResourceID       string    `json:"resource_id"`
	ViolatedPolicies []string  `json:"violated_policies,omitempty"`
	Reason           string    `json:"reason"`
}

// Recorder stores verdicts and answers dashboard queries over them.
type Recorder interface {
	// Record persists one verdict, unmodified.
	Record(ctx context.Context, verdict *models.Verdict) error
	// List returns the most recent entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Get returns the entry for one action ID, or nil when absent.
	Get(ctx context.Context, actionID string) (*Entry, error)
	// Close releases storage resources.
	Close() error
}

// entryFromVerdict flattens a verdict into its audit shape.
func entryFromVerdict(v *models.Verdict) Entry {
	entry := Entry{
		ActionID:       v.ActionID,
		Timestamp:      v.Timestamp,
		Decision:       string(v.Decision),
		Composite:      v.Breakdown.Composite,
		Infrastructure: v.Breakdown.Infrastructure,
		Policy:         v.Breakdown.Policy,
		Historical:     v.Breakdown.Historical,
		Cost:           v.Breakdown.Cost,
		AgentID:        v.Action.AgentID,
		ActionType:     string(v.Action.ActionType),
		ResourceID:     v.Action.Target.ResourceID,
		Reason:         v.Reason,
	}
	if pol, ok := v.AgentResults[models.DimensionPolicy].(models.PolicyResult); ok {
		for _, violation := range pol.Violations {
			entry.ViolatedPolicies = append(entry.ViolatedPolicies, violation.RuleID)
		}
	}
	return entry
}

// NopRecorder discards verdicts; used by the one-shot CLI path.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *models.Verdict) error { return nil }
func (NopRecorder) List(context.Context, int) ([]Entry, error)    { return nil, nil }
func (NopRecorder) Get(context.Context, string) (*Entry, error)   { return nil, nil }
func (NopRecorder) Close() error                                  { return nil }
