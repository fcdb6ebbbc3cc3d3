// Package models defines the shared data model for change governance:
// proposed actions submitted by operational agents, and the verdicts the
// decision engine produces for them.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ActionType identifies the kind of infrastructure change being proposed.
type ActionType string

const (
	ActionCreateResource ActionType = "create_resource"
	ActionDeleteResource ActionType = "delete_resource"
	ActionScaleUp        ActionType = "scale_up"
	ActionScaleDown      ActionType = "scale_down"
	ActionRestartService ActionType = "restart_service"
	ActionModifyNSG      ActionType = "modify_nsg"
	ActionUpdateConfig   ActionType = "update_config"
)

// ActionTypes lists every recognized action type.
var ActionTypes = []ActionType{
	ActionCreateResource,
	ActionDeleteResource,
	ActionScaleUp,
	ActionScaleDown,
	ActionRestartService,
	ActionModifyNSG,
	ActionUpdateConfig,
}

// Valid reports whether t is a recognized action type.
func (t ActionType) Valid() bool {
	for _, known := range ActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Urgency is the producer-supplied priority of a proposed action.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether u is a recognized urgency level.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// ActionTarget identifies and partially describes the resource an action
// applies to. ResourceID may be a short name or a full hierarchical path;
// resolution always falls back to the last path segment.
type ActionTarget struct {
	ResourceID         string   `json:"resource_id" yaml:"resource_id"`
	ResourceType       string   `json:"resource_type" yaml:"resource_type"`
	ResourceGroup      string   `json:"resource_group,omitempty" yaml:"resource_group,omitempty"`
	CurrentSKU         string   `json:"current_sku,omitempty" yaml:"current_sku,omitempty"`
	ProposedSKU        string   `json:"proposed_sku,omitempty" yaml:"proposed_sku,omitempty"`
	CurrentMonthlyCost *float64 `json:"current_monthly_cost,omitempty" yaml:"current_monthly_cost,omitempty"`
}

// ShortName returns the last slash-delimited segment of the resource ID.
func (t ActionTarget) ShortName() string {
	id := strings.TrimRight(t.ResourceID, "/")
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

// ProposedAction is the unit of governance: one infrastructure change
// proposed by an operational agent. Immutable once constructed; the engine
// and its evaluators only ever read it.
type ProposedAction struct {
	AgentID                 string       `json:"agent_id" yaml:"agent_id"`
	ActionType              ActionType   `json:"action_type" yaml:"action_type"`
	Target                  ActionTarget `json:"target" yaml:"target"`
	Reason                  string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Urgency                 Urgency      `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	ProjectedSavingsMonthly *float64     `json:"projected_savings_monthly,omitempty" yaml:"projected_savings_monthly,omitempty"`
	Timestamp               time.Time    `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Normalize fills defaulted fields on a freshly decoded action.
func (a *ProposedAction) Normalize() {
	if a.Urgency == "" {
		a.Urgency = UrgencyMedium
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
}

// Validate rejects malformed actions at the construction boundary so they
// never reach the evaluators.
func (a ProposedAction) Validate() error {
	if strings.TrimSpace(a.AgentID) == "" {
		return fmt.Errorf("agent_id is required")
	}
	if a.ActionType == "" {
		return fmt.Errorf("action_type is required")
	}
	if !a.ActionType.Valid() {
		return fmt.Errorf("unknown action_type %q", a.ActionType)
	}
	if strings.TrimSpace(a.Target.ResourceID) == "" {
		return fmt.Errorf("target.resource_id is required")
	}
	if a.Urgency != "" && !a.Urgency.Valid() {
		return fmt.Errorf("unknown urgency %q", a.Urgency)
	}
	if a.ProjectedSavingsMonthly != nil && *a.ProjectedSavingsMonthly < 0 {
		return fmt.Errorf("projected_savings_monthly must be >= 0")
	}
	return nil
}

// NewProposedAction constructs a validated, normalized action.
func NewProposedAction(agentID string, actionType ActionType, target ActionTarget) (ProposedAction, error) {
	a := ProposedAction{
		AgentID:    agentID,
		ActionType: actionType,
		Target:     target,
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		return ProposedAction{}, err
	}
	return a, nil
}
