// Package mock supplies a canned reference dataset for demos and tests.
// When mock mode is enabled the server loads these datasets instead of the
// configured files; they go through the same parsers as live data.
package mock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cordonhq/cordon/internal/incidents"
	"github.com/cordonhq/cordon/internal/policies"
	"github.com/cordonhq/cordon/internal/topology"
)

const graphYAML = `resources:
  - name: vm-web-prod-01
    type: Microsoft.Compute/virtualMachines
    location: eastus2
    monthly_cost: 340.50
    tags:
      criticality: high
      environment: production
      purpose: web-frontend
      owner: platform-team
    dependencies: [sql-orders-prod, nsg-web-prod]
    dependents: []
    services_hosted: [storefront-web]
  - name: vm-batch-dev-02
    type: Microsoft.Compute/virtualMachines
    location: eastus2
    monthly_cost: 88.20
    tags:
      criticality: medium
      environment: development
      purpose: batch-processing
  - name: sql-orders-prod
    type: Microsoft.Sql/servers/databases
    location: eastus2
    monthly_cost: 912.00
    tags:
      criticality: critical
      environment: production
      purpose: order-store
    dependents: [vm-web-prod-01, aks-checkout-prod]
    services_hosted: [orders-db]
    consumers: [storefront-web, checkout-api]
  - name: aks-checkout-prod
    type: Microsoft.ContainerService/managedClusters
    location: eastus2
    monthly_cost: 1480.00
    node_count: 6
    tags:
      criticality: critical
      environment: production
      purpose: checkout
    dependencies: [sql-orders-prod]
    services_hosted: [checkout-api, cart-api]
    consumers: [storefront-web]
  - name: stor-dr-backup
    type: Microsoft.Storage/storageAccounts
    location: centralus
    monthly_cost: 36.00
    tags:
      criticality: high
      environment: production
      purpose: disaster-recovery
    dependents: [sql-orders-prod]
  - name: nsg-web-prod
    type: Microsoft.Network/networkSecurityGroups
    location: eastus2
    monthly_cost: 0
    tags:
      criticality: high
      environment: production
    governs: [vm-web-prod-01]
  - name: vm-idle-dev-03
    type: Microsoft.Compute/virtualMachines
    location: westus3
    monthly_cost: 152.75
    tags:
      criticality: low
      environment: development
      purpose: experiment
edges:
  - {from: aks-checkout-prod, to: nsg-web-prod}
`

const policiesYAML = `rules:
  - id: POL-DR-001
    name: Protect disaster-recovery resources
    description: Disaster-recovery resources must never be deleted or scaled down.
    severity: critical
    conditions:
      tags_match:
        purpose: disaster-recovery
      blocked_actions: [delete_resource, scale_down]
  - id: POL-PROD-002
    name: No production deletes without review
    description: Deleting production resources always requires review.
    severity: high
    conditions:
      environment_match: production
      blocked_actions: [delete_resource]
  - id: POL-NSG-003
    name: Network security group changes
    description: NSG modifications on production networks carry elevated risk.
    severity: high
    conditions:
      resource_type_match: Microsoft.Network/networkSecurityGroups
      blocked_actions: [modify_nsg]
  - id: POL-WIN-004
    name: Weekend change freeze
    description: No production changes from Friday evening to Monday morning.
    severity: medium
    conditions:
      environment_match: production
      blocked_windows:
        - {day_start: friday, day_end: monday, time_start: "17:00", time_end: "08:00"}
  - id: POL-COST-005
    name: Large cost impact review
    description: Changes moving more than $500/month need a second look.
    severity: medium
    conditions:
      cost_impact_threshold: 500
`

const incidentsYAML = `incidents:
  - incident_id: INC-2024-031
    description: Order database deleted during cleanup of a mislabeled resource group.
    action_taken: "delete_resource: removed sql-orders-prod replica during cost cleanup"
    outcome: 6 hours of order downtime, restored from geo-backup
    lesson: Verify dependents and backup coverage before deleting data stores.
    service: orders-db
    severity: critical
    date: "2024-03-17"
    resource_type: Microsoft.Sql/servers/databases
    tags: [deletion, database, production]
  - incident_id: INC-2024-044
    description: Checkout latency spike after an aggressive node pool scale-down.
    action_taken: "scale_down: reduced aks-checkout-prod node pool from 6 to 2"
    outcome: Checkout p99 exceeded SLO for 40 minutes
    lesson: Scale production clusters in single-node steps with load headroom checks.
    service: checkout-api
    severity: high
    date: "2024-06-02"
    resource_type: Microsoft.ContainerService/managedClusters
    tags: [scale-down, scaling, capacity]
  - incident_id: INC-2024-058
    description: NSG rule change blocked health probes and dropped the web tier.
    action_taken: "modify_nsg: tightened inbound rules on nsg-web-prod"
    outcome: 25 minutes of storefront unavailability
    lesson: Stage NSG changes behind a canary probe before broad rollout.
    service: storefront-web
    severity: high
    date: "2024-08-21"
    resource_type: Microsoft.Network/networkSecurityGroups
    tags: [nsg, security, network]
  - incident_id: INC-2023-102
    description: Dev batch VM restart loop from a bad config push.
    action_taken: "restart_service: cycled vm-batch-dev-02 after config update"
    outcome: Batch jobs delayed overnight, no customer impact
    lesson: Gate config pushes on a dry-run validation pass.
    service: batch-processing
    severity: low
    date: "2023-11-09"
    resource_type: Microsoft.Compute/virtualMachines
    tags: [restart, config]
`

// Graph returns the sample resource graph.
func Graph() (*topology.Snapshot, error) {
	return topology.Parse([]byte(graphYAML))
}

// Rules returns the sample policy rules.
func Rules() ([]policies.Rule, error) {
	return policies.Parse([]byte(policiesYAML))
}

// Incidents returns the sample incident history.
func Incidents() ([]incidents.Record, error) {
	return incidents.Parse([]byte(incidentsYAML))
}

// WriteFiles writes the sample datasets into dir using the standard file
// names, so a live-mode server can be pointed at them.
func WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}
	files := map[string]string{
		"resource-graph.yaml": graphYAML,
		"policies.yaml":       policiesYAML,
		"incidents.yaml":      incidentsYAML,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
