package engine

import (
	"testing"

	"github.com/cordonhq/cordon/internal/models"
	"github.com/cordonhq/cordon/internal/topology"
)

func blastTestGraph() *topology.Snapshot {
	nodes := []topology.Node{
		{
			Name:           "sql-orders",
			Type:           "Microsoft.Sql/servers",
			Location:       "eastus",
			Tags:           map[string]string{topology.TagCriticality: "critical"},
			Dependencies:   []string{"stor-disks"},
			Dependents:     []string{"vm-api-01", "vm-worker-01"},
			ServicesHosted: []string{"orders-api"},
			Consumers:      []string{"billing"},
		},
		{Name: "stor-disks", Type: "Microsoft.Storage/storageAccounts", Location: "eastus"},
		{Name: "vm-api-01", Type: "Microsoft.Compute/virtualMachines", Location: "westus",
			Tags: map[string]string{topology.TagCriticality: "high"}},
		{Name: "vm-worker-01", Type: "Microsoft.Compute/virtualMachines"},
		{Name: "vm-idle-01", Type: "Microsoft.Compute/virtualMachines",
			Tags: map[string]string{topology.TagCriticality: "low"}},
		{Name: "nsg-edge", Type: "Microsoft.Network/networkSecurityGroups",
			Governs: []string{"vm-api-01", "vm-worker-01"}},
	}
	edges := []topology.Edge{
		{From: "vm-api-01", To: "sql-orders"},
	}
	return topology.NewSnapshot(nodes, edges)
}

func TestBlastRadiusDeleteCriticalTarget(t *testing.T) {
	e := NewBlastRadiusEvaluator(blastTestGraph())

	res := e.Evaluate(models.ProposedAction{
		AgentID:    "tester",
		ActionType: models.ActionDeleteResource,
		Target:     models.ActionTarget{ResourceID: "sql-orders"},
	})

	if !res.TargetFound {
		t.Fatalf("target should resolve")
	}
	// base 40 + criticality 30 + 2 downstream (10) + 2 services (10); the
	// target is the only SPOF and does not count against itself.
	if res.Score != 90 {
		t.Fatalf("score = %v, want 90", res.Score)
	}
	// dependencies, dependents, and edge endpoints, deduped in first-seen
	// order with the target itself excluded.
	want := []string{"stor-disks", "vm-api-01", "vm-worker-01"}
	if len(res.AffectedResources) != len(want) {
		t.Fatalf("radius = %v, want %v", res.AffectedResources, want)
	}
	for i := range want {
		if res.AffectedResources[i] != want[i] {
			t.Fatalf("radius = %v, want %v", res.AffectedResources, want)
		}
	}
	if len(res.AffectedServices) != 2 {
		t.Fatalf("services = %v, want 2", res.AffectedServices)
	}
	if len(res.SinglePointsOfFailure) != 1 || res.SinglePointsOfFailure[0] != "sql-orders" {
		t.Fatalf("spofs = %v", res.SinglePointsOfFailure)
	}
	if len(res.AffectedLocations) != 2 {
		t.Fatalf("locations = %v, want eastus and westus", res.AffectedLocations)
	}
}

func TestBlastRadiusCriticalNeighborScoresExtra(t *testing.T) {
	graph := topology.NewSnapshot([]topology.Node{
		{Name: "vm-a", Dependents: []string{"sql-core"}},
		{Name: "sql-core", Tags: map[string]string{topology.TagCriticality: "critical"}},
	}, nil)
	e := NewBlastRadiusEvaluator(graph)

	res := e.Evaluate(models.ProposedAction{
		AgentID:    "tester",
		ActionType: models.ActionRestartService,
		Target:     models.ActionTarget{ResourceID: "vm-a"},
	})

	// base 20 + 1 downstream (5) + 1 critical neighbor SPOF (10).
	if res.Score != 35 {
		t.Fatalf("score = %v, want 35", res.Score)
	}
	if len(res.SinglePointsOfFailure) != 1 || res.SinglePointsOfFailure[0] != "sql-core" {
		t.Fatalf("spofs = %v", res.SinglePointsOfFailure)
	}
}

func TestBlastRadiusGovernedResources(t *testing.T) {
	e := NewBlastRadiusEvaluator(blastTestGraph())

	res := e.Evaluate(models.ProposedAction{
		AgentID:    "tester",
		ActionType: models.ActionModifyNSG,
		Target:     models.ActionTarget{ResourceID: "nsg-edge"},
	})

	// base 35 + 2 governed resources (10); no criticality, services, or SPOFs.
	if res.Score != 45 {
		t.Fatalf("score = %v, want 45", res.Score)
	}
	if len(res.AffectedResources) != 2 {
		t.Fatalf("radius = %v", res.AffectedResources)
	}
}

func TestBlastRadiusUnknownTargetDegrades(t *testing.T) {
	e := NewBlastRadiusEvaluator(blastTestGraph())

	res := e.Evaluate(models.ProposedAction{
		AgentID:    "tester",
		ActionType: models.ActionDeleteResource,
		Target:     models.ActionTarget{ResourceID: "vm-ghost"},
	})

	if res.TargetFound {
		t.Fatalf("unknown target must not resolve")
	}
	if res.Score != 40 {
		t.Fatalf("score = %v, want action-type base 40", res.Score)
	}
	if len(res.AffectedResources) != 0 {
		t.Fatalf("unknown target should have empty radius: %v", res.AffectedResources)
	}
}

func TestBlastRadiusDownstreamCapped(t *testing.T) {
	node := topology.Node{Name: "hub"}
	for i := 0; i < 10; i++ {
		node.Dependents = append(node.Dependents, string(rune('a'+i)))
	}
	e := NewBlastRadiusEvaluator(topology.NewSnapshot([]topology.Node{node}, nil))

	res := e.Evaluate(models.ProposedAction{
		AgentID:    "tester",
		ActionType: models.ActionUpdateConfig,
		Target:     models.ActionTarget{ResourceID: "hub"},
	})

	// base 10 + downstream contribution capped at 25.
	if res.Score != 35 {
		t.Fatalf("score = %v, want 35", res.Score)
	}
}

func TestBlastRadiusFullPathResolution(t *testing.T) {
	e := NewBlastRadiusEvaluator(blastTestGraph())

	res := e.Evaluate(models.ProposedAction{
		AgentID:    "tester",
		ActionType: models.ActionScaleUp,
		Target: models.ActionTarget{
			ResourceID: "/subscriptions/s1/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm-idle-01",
		},
	})

	if !res.TargetFound {
		t.Fatalf("full resource path should resolve by last segment")
	}
	// base 5 + criticality low 5.
	if res.Score != 10 {
		t.Fatalf("score = %v, want 10", res.Score)
	}
}
