// Package agents hosts the built-in operational agents. Each agent scans
// the resource graph and proposes candidate changes; every proposal flows
// through the decision engine like any externally submitted action.
package agents

import (
	"strings"

	"github.com/cordonhq/cordon/internal/models"
	"github.com/cordonhq/cordon/internal/topology"
)

// Proposer generates candidate actions from the current resource graph.
type Proposer interface {
	// ID is the stable agent identifier attached to every proposal.
	ID() string
	// Propose returns zero or more candidate actions for this cycle.
	Propose(graph *topology.Snapshot) []models.ProposedAction
}

// CostOptimizer proposes scale-downs and deletions for resources that look
// underused relative to their monthly cost.
type CostOptimizer struct {
	// MinMonthlyCost is the cost floor below which a resource is ignored.
	MinMonthlyCost float64
}

func (CostOptimizer) ID() string { return "cost-optimizer" }

func (a CostOptimizer) Propose(graph *topology.Snapshot) []models.ProposedAction {
	floor := a.MinMonthlyCost
	if floor <= 0 {
		floor = 50
	}
	var out []models.ProposedAction
	for _, n := range graph.Nodes() {
		if n.MonthlyCost < floor {
			continue
		}
		// Resources nothing depends on are the cheapest wins.
		idle := len(n.Dependents) == 0 && len(n.Consumers) == 0 && len(n.ServicesHosted) == 0
		actionType := models.ActionScaleDown
		savings := n.MonthlyCost * 0.30
		if idle && n.Criticality() != "critical" {
			actionType = models.ActionDeleteResource
			savings = n.MonthlyCost
		}
		cost := n.MonthlyCost
		out = append(out, models.ProposedAction{
			AgentID:    a.ID(),
			ActionType: actionType,
			Target: models.ActionTarget{
				ResourceID:         n.Name,
				ResourceType:       n.Type,
				CurrentMonthlyCost: &cost,
			},
			Reason:                  "monthly cost exceeds review floor with low observed demand",
			Urgency:                 models.UrgencyLow,
			ProjectedSavingsMonthly: &savings,
		})
	}
	return out
}

// ReliabilityPatrol proposes restarts for critical services so failover
// paths get exercised before an incident forces them to.
type ReliabilityPatrol struct{}

func (ReliabilityPatrol) ID() string { return "reliability-patrol" }

func (a ReliabilityPatrol) Propose(graph *topology.Snapshot) []models.ProposedAction {
	var out []models.ProposedAction
	for _, n := range graph.Nodes() {
		if n.Criticality() != "critical" || len(n.ServicesHosted) == 0 {
			continue
		}
		out = append(out, models.ProposedAction{
			AgentID:    a.ID(),
			ActionType: models.ActionRestartService,
			Target: models.ActionTarget{
				ResourceID:   n.Name,
				ResourceType: n.Type,
			},
			Reason:  "scheduled failover drill for critical service host",
			Urgency: models.UrgencyLow,
		})
	}
	return out
}

// SecurityReviewer proposes tightening network security groups that govern
// production resources.
type SecurityReviewer struct{}

func (SecurityReviewer) ID() string { return "security-reviewer" }

func (a SecurityReviewer) Propose(graph *topology.Snapshot) []models.ProposedAction {
	var out []models.ProposedAction
	for _, n := range graph.Nodes() {
		if !strings.Contains(strings.ToLower(n.Type), "networksecuritygroup") || len(n.Governs) == 0 {
			continue
		}
		out = append(out, models.ProposedAction{
			AgentID:    a.ID(),
			ActionType: models.ActionModifyNSG,
			Target: models.ActionTarget{
				ResourceID:   n.Name,
				ResourceType: n.Type,
			},
			Reason:  "periodic rule review for security group governing live resources",
			Urgency: models.UrgencyMedium,
		})
	}
	return out
}

// DefaultProposers returns the built-in agent set.
func DefaultProposers() []Proposer {
	return []Proposer{
		CostOptimizer{},
		ReliabilityPatrol{},
		SecurityReviewer{},
	}
}
