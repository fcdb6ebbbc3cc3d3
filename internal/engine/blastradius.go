package engine

import (
	"fmt"
	"strings"

	"github.com/cordonhq/cordon/internal/models"
	"github.com/cordonhq/cordon/internal/topology"
)

// Action-type base scores. Destructive actions weigh heavier.
var blastBaseScores = map[models.ActionType]float64{
	models.ActionDeleteResource: 40,
	models.ActionModifyNSG:      35,
	models.ActionRestartService: 20,
	models.ActionScaleDown:      15,
	models.ActionUpdateConfig:   10,
	models.ActionScaleUp:        5,
	models.ActionCreateResource: 3,
}

var criticalityScores = map[string]float64{
	"critical": 30,
	"high":     20,
	"medium":   10,
	"low":      5,
}

// BlastRadiusEvaluator scores infrastructure risk by walking the dependency
// graph one hop outward from the target resource.
type BlastRadiusEvaluator struct {
	graph *topology.Snapshot
}

// NewBlastRadiusEvaluator builds an evaluator over a read-only graph
// snapshot.
func NewBlastRadiusEvaluator(graph *topology.Snapshot) *BlastRadiusEvaluator {
	return &BlastRadiusEvaluator{graph: graph}
}

// Evaluate computes the infrastructure sub-result for the action. An
// unresolvable target never fails the evaluation; it degrades to
// action-type-only scoring.
func (e *BlastRadiusEvaluator) Evaluate(action models.ProposedAction) models.InfrastructureResult {
	base := blastBaseScores[action.ActionType]
	node := e.graph.Resolve(action.Target.ResourceID)
	if node == nil {
		return models.InfrastructureResult{
			Score:       models.ClampScore(base),
			TargetFound: false,
			Reasoning: fmt.Sprintf("resource %q not found in the dependency graph; scored on action type %s alone",
				action.Target.ResourceID, action.ActionType),
		}
	}

	radius := e.blastRadius(node)
	services := dedupe(append(append([]string(nil), node.ServicesHosted...), node.Consumers...))
	spofs := e.singlePointsOfFailure(node, radius)
	locations := e.affectedLocations(node, radius)

	downstream := dedupe(append(append([]string(nil), node.Dependents...), node.Governs...))

	score := base
	score += criticalityScores[node.Criticality()]
	score += min(5*float64(len(downstream)), 25)
	score += min(5*float64(len(services)), 20)
	score += 10 * float64(countExcluding(spofs, node.Name))

	return models.InfrastructureResult{
		Score:                 models.ClampScore(score),
		AffectedResources:     radius,
		AffectedServices:      services,
		SinglePointsOfFailure: spofs,
		AffectedLocations:     locations,
		TargetFound:           true,
		Reasoning:             e.describe(action, node, radius, services, spofs),
	}
}

// blastRadius collects the one-hop neighborhood: dependencies, dependents,
// governed resources, and both endpoints of explicit edges. First-seen order
// is preserved.
func (e *BlastRadiusEvaluator) blastRadius(node *topology.Node) []string {
	var members []string
	members = append(members, node.Dependencies...)
	members = append(members, node.Dependents...)
	members = append(members, node.Governs...)
	members = append(members, e.graph.Adjacent(node.Name)...)

	seen := map[string]bool{node.Name: true}
	var out []string
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func (e *BlastRadiusEvaluator) singlePointsOfFailure(node *topology.Node, radius []string) []string {
	var spofs []string
	if node.Criticality() == "critical" {
		spofs = append(spofs, node.Name)
	}
	for _, name := range radius {
		if member := e.graph.Resolve(name); member != nil && member.Criticality() == "critical" {
			spofs = append(spofs, member.Name)
		}
	}
	return spofs
}

func (e *BlastRadiusEvaluator) affectedLocations(node *topology.Node, radius []string) []string {
	locations := []string{}
	if node.Location != "" {
		locations = append(locations, node.Location)
	}
	for _, name := range radius {
		if member := e.graph.Resolve(name); member != nil && member.Location != "" {
			locations = append(locations, member.Location)
		}
	}
	return dedupe(locations)
}

func (e *BlastRadiusEvaluator) describe(action models.ProposedAction, node *topology.Node, radius, services, spofs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s reaches %d resource(s) and %d service(s)",
		action.ActionType, node.Name, len(radius), len(services))
	if crit := node.Criticality(); crit != "" {
		fmt.Fprintf(&b, "; target criticality %s", crit)
	}
	if len(spofs) > 0 {
		fmt.Fprintf(&b, "; single points of failure: %s", strings.Join(spofs, ", "))
	}
	return b.String()
}

func countExcluding(names []string, excluded string) int {
	n := 0
	for _, name := range names {
		if name != excluded {
			n++
		}
	}
	return n
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
