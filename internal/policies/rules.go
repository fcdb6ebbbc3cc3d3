// Package policies models declarative governance rules. Each rule carries a
// conjunction of typed conditions; a rule fires only when every condition it
// declares holds. Conditions a rule does not declare are vacuously true.
package policies

import (
	"fmt"
	"strings"
	"time"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"

	"github.com/cordonhq/cordon/internal/models"
)

// EvalContext is the state a condition is matched against: the proposed
// action plus whatever resource metadata the caller could resolve.
type EvalContext struct {
	Action models.ProposedAction

	// Tags are the target resource's tags, when resolvable. Nil when the
	// resource is unknown.
	Tags map[string]string

	// Environment is the resolved environment, already defaulted via the
	// production heuristic when no explicit metadata was available.
	Environment string

	// CostImpact is the estimated absolute monthly cost impact in USD.
	// Nil when no estimate could be made.
	CostImpact *float64

	// Now is the evaluation clock, injected for reproducibility.
	Now time.Time
}

// Condition is one typed clause of a rule's conjunction.
type Condition interface {
	// Kind names the condition for reasoning output.
	Kind() string
	// Matches reports whether the clause holds for the given context.
	Matches(ec EvalContext) bool
}

// TagsMatch requires the target's tags to contain every listed key/value
// pair. Values may use * wildcards.
type TagsMatch struct {
	Required map[string]string
}

func (c TagsMatch) Kind() string { return "tags_match" }

func (c TagsMatch) Matches(ec EvalContext) bool {
	if len(c.Required) == 0 {
		return true
	}
	if ec.Tags == nil {
		return false
	}
	for key, want := range c.Required {
		got, ok := ec.Tags[key]
		if !ok {
			return false
		}
		if !wildcard.Match(strings.ToLower(want), strings.ToLower(got)) {
			return false
		}
	}
	return true
}

// ResourceTypeMatch requires exact equality with the target resource type.
type ResourceTypeMatch struct {
	Type string
}

func (c ResourceTypeMatch) Kind() string { return "resource_type_match" }

func (c ResourceTypeMatch) Matches(ec EvalContext) bool {
	return ec.Action.Target.ResourceType == c.Type
}

// BlockedActions requires the action type to be one of the listed values.
type BlockedActions struct {
	Actions []models.ActionType
}

func (c BlockedActions) Kind() string { return "blocked_actions" }

func (c BlockedActions) Matches(ec EvalContext) bool {
	for _, a := range c.Actions {
		if a == ec.Action.ActionType {
			return true
		}
	}
	return false
}

// EnvironmentMatch requires the resolved environment to equal the given
// value.
type EnvironmentMatch struct {
	Environment string
}

func (c EnvironmentMatch) Kind() string { return "environment_match" }

func (c EnvironmentMatch) Matches(ec EvalContext) bool {
	return strings.EqualFold(ec.Environment, c.Environment)
}

// BlockedWindows requires the evaluation clock to fall inside any listed
// change window.
type BlockedWindows struct {
	Windows []ChangeWindow
}

func (c BlockedWindows) Kind() string { return "blocked_windows" }

func (c BlockedWindows) Matches(ec EvalContext) bool {
	for _, w := range c.Windows {
		if w.Contains(ec.Now) {
			return true
		}
	}
	return false
}

// CostImpactThreshold requires the estimated absolute monthly cost impact to
// strictly exceed the threshold. An unknown impact never matches.
type CostImpactThreshold struct {
	Threshold float64
}

func (c CostImpactThreshold) Kind() string { return "cost_impact_threshold" }

func (c CostImpactThreshold) Matches(ec EvalContext) bool {
	return ec.CostImpact != nil && *ec.CostImpact > c.Threshold
}

// Rule is one declarative governance rule.
type Rule struct {
	ID          string
	Name        string
	Description string
	Severity    models.Severity
	Conditions  []Condition
}

// Matches reports whether every condition the rule declares holds.
func (r Rule) Matches(ec EvalContext) bool {
	for _, c := range r.Conditions {
		if !c.Matches(ec) {
			return false
		}
	}
	return true
}

// Validate checks rule identity, severity, and embedded windows.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule has no id")
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %s: invalid severity %q", r.ID, r.Severity)
	}
	for _, c := range r.Conditions {
		if bw, ok := c.(BlockedWindows); ok {
			for _, w := range bw.Windows {
				if err := w.Validate(); err != nil {
					return fmt.Errorf("rule %s: %w", r.ID, err)
				}
			}
		}
		if ba, ok := c.(BlockedActions); ok {
			for _, a := range ba.Actions {
				if !a.Valid() {
					return fmt.Errorf("rule %s: unknown action type %q", r.ID, a)
				}
			}
		}
	}
	return nil
}
