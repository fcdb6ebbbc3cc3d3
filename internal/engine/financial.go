package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/cordonhq/cordon/internal/models"
	"github.com/cordonhq/cordon/internal/topology"
)

// FinancialConfig holds the tunable heuristics of the financial evaluator.
// The scale factors are estimates with no empirical basis, so they stay
// configurable rather than hardcoded.
type FinancialConfig struct {
	// ScaleDownFactor is the assumed fraction of current cost saved by a
	// scale-down.
	ScaleDownFactor float64
	// ScaleUpFactor is the assumed fraction of current cost added by a
	// scale-up.
	ScaleUpFactor float64
	// RecoveryCostPerResource estimates the one-off cost of restoring
	// capacity for each workload stranded by an over-optimization.
	RecoveryCostPerResource float64
}

// DefaultFinancialConfig returns the standard heuristics.
func DefaultFinancialConfig() FinancialConfig {
	return FinancialConfig{
		ScaleDownFactor:         0.30,
		ScaleUpFactor:           0.50,
		RecoveryCostPerResource: 10000,
	}
}

// Cost magnitude bands: first band whose minimum the absolute monthly change
// meets contributes its points.
var costMagnitudeBands = []struct {
	min    float64
	points float64
}{
	{1000, 70},
	{600, 50},
	{300, 30},
	{100, 15},
	{0.01, 5},
}

var costActionMultipliers = map[models.ActionType]float64{
	models.ActionDeleteResource: 1.5,
	models.ActionScaleDown:      1.2,
	models.ActionUpdateConfig:   0.8,
	models.ActionScaleUp:        0.6,
	models.ActionCreateResource: 0.5,
	models.ActionRestartService: 0.3,
	models.ActionModifyNSG:      0.3,
}

const (
	overOptimizationPenalty = 20
	costUncertaintyPenalty  = 10
	projectionMonths        = 3
	annualMonths            = 12
)

// FinancialEvaluator estimates the monthly cost delta of an action and the
// risk that the savings are an over-optimization.
type FinancialEvaluator struct {
	graph *topology.Snapshot
	cfg   FinancialConfig
}

// NewFinancialEvaluator builds an evaluator over a read-only graph snapshot.
func NewFinancialEvaluator(graph *topology.Snapshot, cfg FinancialConfig) *FinancialEvaluator {
	if cfg.ScaleDownFactor <= 0 {
		cfg.ScaleDownFactor = 0.30
	}
	if cfg.ScaleUpFactor <= 0 {
		cfg.ScaleUpFactor = 0.50
	}
	if cfg.RecoveryCostPerResource <= 0 {
		cfg.RecoveryCostPerResource = 10000
	}
	return &FinancialEvaluator{graph: graph, cfg: cfg}
}

// Evaluate computes the financial sub-result. Negative MonthlyChange means
// savings.
func (e *FinancialEvaluator) Evaluate(action models.ProposedAction) models.FinancialResult {
	node := e.graph.Resolve(action.Target.ResourceID)
	change, uncertain := e.resolveChange(action, node)
	overOpt := e.detectOverOptimization(action, node, change)

	absChange := math.Abs(change)
	score := bandPoints(absChange) * costActionMultipliers[action.ActionType]
	if overOpt != nil && overOpt.Detected {
		score += overOptimizationPenalty
	}
	if uncertain {
		score += costUncertaintyPenalty
	}

	return models.FinancialResult{
		Score:         models.ClampScore(score),
		MonthlyChange: change,
		Uncertain:     uncertain,
		Projection: models.CostProjection{
			MonthlyChange: change,
			Total90Day:    projectionMonths * change,
			Annualized:    annualMonths * change,
		},
		OverOptimization: overOpt,
		Reasoning:        e.describe(action, change, uncertain, overOpt),
	}
}

// resolveChange applies the cost-change resolution order: producer estimate,
// then known current cost per action type, else zero.
func (e *FinancialEvaluator) resolveChange(action models.ProposedAction, node *topology.Node) (change float64, uncertain bool) {
	if action.ProjectedSavingsMonthly != nil {
		return -*action.ProjectedSavingsMonthly, false
	}

	cost, known := e.currentCost(action, node)
	switch action.ActionType {
	case models.ActionDeleteResource:
		if known {
			return -cost, false
		}
		return 0, true
	case models.ActionScaleDown:
		if known {
			return -e.cfg.ScaleDownFactor * cost, true
		}
		return 0, true
	case models.ActionScaleUp:
		if known {
			return e.cfg.ScaleUpFactor * cost, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (e *FinancialEvaluator) currentCost(action models.ProposedAction, node *topology.Node) (float64, bool) {
	if action.Target.CurrentMonthlyCost != nil {
		return *action.Target.CurrentMonthlyCost, true
	}
	if node != nil && node.MonthlyCost > 0 {
		return node.MonthlyCost, true
	}
	return 0, false
}

// detectOverOptimization flags delete or scale-down actions on a resource
// that other workloads still depend on.
func (e *FinancialEvaluator) detectOverOptimization(action models.ProposedAction, node *topology.Node, change float64) *models.OverOptimizationRisk {
	if action.ActionType != models.ActionDeleteResource && action.ActionType != models.ActionScaleDown {
		return nil
	}
	if node == nil {
		return nil
	}
	affected := dedupe(append(append(append([]string(nil),
		node.Dependents...), node.Consumers...), node.ServicesHosted...))
	if len(affected) == 0 {
		return nil
	}
	return &models.OverOptimizationRisk{
		Detected:              true,
		AffectedResources:     affected,
		AffectedCount:         len(affected),
		MonthlySavings:        math.Abs(change),
		EstimatedRecoveryCost: float64(len(affected)) * e.cfg.RecoveryCostPerResource,
	}
}

func (e *FinancialEvaluator) describe(action models.ProposedAction, change float64, uncertain bool, overOpt *models.OverOptimizationRisk) string {
	var b strings.Builder
	switch {
	case change < 0:
		fmt.Fprintf(&b, "estimated savings of $%.2f/month", -change)
	case change > 0:
		fmt.Fprintf(&b, "estimated added cost of $%.2f/month", change)
	default:
		b.WriteString("no monthly cost change expected")
	}
	if uncertain {
		b.WriteString(" (estimate uncertain)")
	}
	if overOpt != nil && overOpt.Detected {
		fmt.Fprintf(&b, "; over-optimization risk: %d dependent workload(s), estimated recovery cost $%.0f",
			overOpt.AffectedCount, overOpt.EstimatedRecoveryCost)
	}
	return b.String()
}

func bandPoints(absChange float64) float64 {
	for _, band := range costMagnitudeBands {
		if absChange >= band.min {
			return band.points
		}
	}
	return 0
}
