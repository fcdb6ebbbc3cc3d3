package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cordonhq/cordon/internal/models"
	"github.com/cordonhq/cordon/internal/policies"
	"github.com/cordonhq/cordon/internal/topology"
)

// Severity weights contributed by each fired violation.
var policySeverityScores = map[models.Severity]float64{
	models.SeverityCritical: 40,
	models.SeverityHigh:     25,
	models.SeverityMedium:   15,
	models.SeverityLow:      5,
}

// ResourceMetadata is the optional resource context supplied alongside an
// action. When absent the evaluator reconstructs what it can from the graph
// and falls back to heuristics.
type ResourceMetadata struct {
	Tags        map[string]string
	Environment string
}

// PolicyEvaluator matches proposed actions against the loaded rule list.
type PolicyEvaluator struct {
	rules []policies.Rule
	graph *topology.Snapshot
	now   func() time.Time
}

// NewPolicyEvaluator builds an evaluator over a read-only rule list. The
// graph supplies tags and cost for targets the caller did not describe.
func NewPolicyEvaluator(rules []policies.Rule, graph *topology.Snapshot, now func() time.Time) *PolicyEvaluator {
	if now == nil {
		now = time.Now
	}
	return &PolicyEvaluator{rules: rules, graph: graph, now: now}
}

// Evaluate checks every rule against the action. A rule fires only when all
// conditions it declares hold.
func (e *PolicyEvaluator) Evaluate(action models.ProposedAction, meta *ResourceMetadata) models.PolicyResult {
	ec := e.buildContext(action, meta)

	violations := []models.PolicyViolation{}
	for _, rule := range e.rules {
		if rule.Matches(ec) {
			violations = append(violations, models.PolicyViolation{
				RuleID:      rule.ID,
				RuleName:    rule.Name,
				Severity:    rule.Severity,
				Description: rule.Description,
			})
		}
	}

	score := 0.0
	for _, v := range violations {
		score += policySeverityScores[v.Severity]
	}

	return models.PolicyResult{
		Score:        models.ClampScore(score),
		Violations:   violations,
		RulesChecked: len(e.rules),
		RulesPassed:  len(e.rules) - len(violations),
		Reasoning:    describeViolations(violations),
	}
}

func (e *PolicyEvaluator) buildContext(action models.ProposedAction, meta *ResourceMetadata) policies.EvalContext {
	ec := policies.EvalContext{
		Action:     action,
		Now:        e.now(),
		CostImpact: estimateCostImpact(action, e.graph),
	}

	node := e.graph.Resolve(action.Target.ResourceID)

	if meta != nil && meta.Tags != nil {
		ec.Tags = meta.Tags
	} else if node != nil {
		ec.Tags = node.Tags
	}

	switch {
	case meta != nil && meta.Environment != "":
		ec.Environment = meta.Environment
	case ec.Tags[topology.TagEnvironment] != "":
		ec.Environment = ec.Tags[topology.TagEnvironment]
	default:
		ec.Environment = heuristicEnvironment(action.Target)
	}
	return ec
}

// heuristicEnvironment guesses "production" when the resource identifier or
// group mentions prod, and "unknown" otherwise.
func heuristicEnvironment(target models.ActionTarget) string {
	haystack := strings.ToLower(target.ResourceID + " " + target.ResourceGroup)
	if strings.Contains(haystack, "prod") {
		return "production"
	}
	return "unknown"
}

// estimateCostImpact resolves the absolute monthly cost impact used by
// cost_impact_threshold conditions. Priority: the producer's own savings
// estimate, then the target's current cost for delete actions, else unknown.
func estimateCostImpact(action models.ProposedAction, graph *topology.Snapshot) *float64 {
	if action.ProjectedSavingsMonthly != nil {
		impact := math.Abs(*action.ProjectedSavingsMonthly)
		return &impact
	}
	if action.ActionType == models.ActionDeleteResource {
		if action.Target.CurrentMonthlyCost != nil {
			impact := math.Abs(*action.Target.CurrentMonthlyCost)
			return &impact
		}
		if node := graph.Resolve(action.Target.ResourceID); node != nil && node.MonthlyCost > 0 {
			impact := node.MonthlyCost
			return &impact
		}
	}
	return nil
}

func describeViolations(violations []models.PolicyViolation) string {
	if len(violations) == 0 {
		return "fully compliant: no policy rules matched this action"
	}
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(v.Severity)), v.RuleID, v.RuleName))
	}
	return strings.Join(parts, "; ")
}
