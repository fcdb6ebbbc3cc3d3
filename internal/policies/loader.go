package policies

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cordonhq/cordon/internal/models"
)

// ruleConditions is the on-disk shape of a rule's condition block. Absent
// keys decode to nil and contribute no condition at all, which is what makes
// them vacuously true.
type ruleConditions struct {
	TagsMatch           map[string]string   `yaml:"tags_match,omitempty"`
	ResourceTypeMatch   *string             `yaml:"resource_type_match,omitempty"`
	BlockedActions      []models.ActionType `yaml:"blocked_actions,omitempty"`
	EnvironmentMatch    *string             `yaml:"environment_match,omitempty"`
	BlockedWindows      []ChangeWindow      `yaml:"blocked_windows,omitempty"`
	CostImpactThreshold *float64            `yaml:"cost_impact_threshold,omitempty"`
}

type ruleSpec struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Severity    models.Severity `yaml:"severity"`
	Conditions  ruleConditions  `yaml:"conditions"`
}

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

func (rs ruleSpec) build() Rule {
	rule := Rule{
		ID:          rs.ID,
		Name:        rs.Name,
		Description: rs.Description,
		Severity:    rs.Severity,
	}
	c := rs.Conditions
	if len(c.TagsMatch) > 0 {
		rule.Conditions = append(rule.Conditions, TagsMatch{Required: c.TagsMatch})
	}
	if c.ResourceTypeMatch != nil {
		rule.Conditions = append(rule.Conditions, ResourceTypeMatch{Type: *c.ResourceTypeMatch})
	}
	if len(c.BlockedActions) > 0 {
		rule.Conditions = append(rule.Conditions, BlockedActions{Actions: c.BlockedActions})
	}
	if c.EnvironmentMatch != nil {
		rule.Conditions = append(rule.Conditions, EnvironmentMatch{Environment: *c.EnvironmentMatch})
	}
	if len(c.BlockedWindows) > 0 {
		rule.Conditions = append(rule.Conditions, BlockedWindows{Windows: c.BlockedWindows})
	}
	if c.CostImpactThreshold != nil {
		rule.Conditions = append(rule.Conditions, CostImpactThreshold{Threshold: *c.CostImpactThreshold})
	}
	return rule
}

// LoadFile reads a policy rule list from a YAML file. A load failure is
// fatal to startup.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy rules %s: %w", path, err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Parse decodes and validates a policy rule list from YAML bytes.
func Parse(data []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy rules: %w", err)
	}
	rules := make([]Rule, 0, len(file.Rules))
	seen := make(map[string]bool, len(file.Rules))
	for _, rs := range file.Rules {
		rule := rs.build()
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("duplicate rule id %s", rule.ID)
		}
		seen[rule.ID] = true
		rules = append(rules, rule)
	}
	return rules, nil
}
