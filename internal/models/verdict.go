package models

import (
	"math"
	"time"
)

// Severity is the shared severity scale used by policy rules and incident
// records.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a recognized severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Decision is the terminal state of one evaluation.
type Decision string

const (
	DecisionApproved  Decision = "approved"
	DecisionEscalated Decision = "escalated"
	DecisionDenied    Decision = "denied"
)

// Dimension names the four risk dimensions.
const (
	DimensionInfrastructure = "infrastructure"
	DimensionPolicy         = "policy"
	DimensionHistorical     = "historical"
	DimensionCost           = "cost"
)

// SRIBreakdown carries the four sub-scores plus the weighted composite.
// Every value is clamped to [0, 100].
type SRIBreakdown struct {
	Infrastructure float64 `json:"sri_infrastructure"`
	Policy         float64 `json:"sri_policy"`
	Historical     float64 `json:"sri_historical"`
	Cost           float64 `json:"sri_cost"`
	Composite      float64 `json:"sri_composite"`
}

// Thresholds are the two decision band boundaries in effect for a verdict.
type Thresholds struct {
	AutoApprove float64 `json:"auto_approve"`
	HumanReview float64 `json:"human_review"`
}

// InfrastructureResult is the blast-radius evaluator's output.
type InfrastructureResult struct {
	Score                 float64  `json:"score"`
	AffectedResources     []string `json:"affected_resources"`
	AffectedServices      []string `json:"affected_services"`
	SinglePointsOfFailure []string `json:"single_points_of_failure"`
	AffectedLocations     []string `json:"affected_locations"`
	TargetFound           bool     `json:"target_found"`
	Reasoning             string   `json:"reasoning"`
}

// PolicyViolation records one fired policy rule.
type PolicyViolation struct {
	RuleID      string   `json:"rule_id"`
	RuleName    string   `json:"rule_name"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
}

// PolicyResult is the policy evaluator's output.
type PolicyResult struct {
	Score        float64           `json:"score"`
	Violations   []PolicyViolation `json:"violations"`
	RulesChecked int               `json:"rules_checked"`
	RulesPassed  int               `json:"rules_passed"`
	Reasoning    string            `json:"reasoning"`
}

// HasCriticalViolation reports whether any fired rule carries critical
// severity. Such a violation forces a denial regardless of the composite.
func (r PolicyResult) HasCriticalViolation() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CriticalViolationIDs returns the rule IDs of all critical violations.
func (r PolicyResult) CriticalViolationIDs() []string {
	var ids []string
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			ids = append(ids, v.RuleID)
		}
	}
	return ids
}

// IncidentMatch is one historical incident deemed similar to the proposed
// action, with the similarity in [0, 1].
type IncidentMatch struct {
	IncidentID  string   `json:"incident_id"`
	Similarity  float64  `json:"similarity"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
	Lesson      string   `json:"lesson,omitempty"`
}

// HistoricalResult is the incident-history evaluator's output.
type HistoricalResult struct {
	Score                float64         `json:"score"`
	SimilarIncidents     []IncidentMatch `json:"similar_incidents"`
	MostRelevant         *IncidentMatch  `json:"most_relevant,omitempty"`
	RecommendedProcedure string          `json:"recommended_procedure,omitempty"`
	Reasoning            string          `json:"reasoning"`
}

// CostProjection is a simple linear projection of the monthly cost change.
// Not growth-adjusted.
type CostProjection struct {
	MonthlyChange float64 `json:"monthly_change"`
	Total90Day    float64 `json:"total_90_day"`
	Annualized    float64 `json:"annualized"`
}

// OverOptimizationRisk flags savings obtained by removing capacity that
// other workloads still depend on.
type OverOptimizationRisk struct {
	Detected              bool     `json:"detected"`
	AffectedResources     []string `json:"affected_resources"`
	AffectedCount         int      `json:"affected_count"`
	MonthlySavings        float64  `json:"monthly_savings"`
	EstimatedRecoveryCost float64  `json:"estimated_recovery_cost"`
}

// FinancialResult is the financial evaluator's output. MonthlyChange is
// signed USD: negative means savings.
type FinancialResult struct {
	Score            float64               `json:"score"`
	MonthlyChange    float64               `json:"monthly_change"`
	Uncertain        bool                  `json:"uncertain"`
	Projection       CostProjection        `json:"projection"`
	OverOptimization *OverOptimizationRisk `json:"over_optimization,omitempty"`
	Reasoning        string                `json:"reasoning"`
}

// Verdict is the engine's sole externally visible output for one proposed
// action. Created once per evaluation and never mutated afterwards.
type Verdict struct {
	ActionID     string         `json:"action_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Action       ProposedAction `json:"proposed_action"`
	Breakdown    SRIBreakdown   `json:"breakdown"`
	Decision     Decision       `json:"decision"`
	Reason       string         `json:"reason"`
	AgentResults map[string]any `json:"agent_results,omitempty"`
	Thresholds   Thresholds     `json:"thresholds"`
}

// ClampScore bounds a risk score to [0, 100] and rounds it to two decimals.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return math.Round(score*100) / 100
}
