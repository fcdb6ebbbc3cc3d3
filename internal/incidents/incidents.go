// Package incidents holds the historical-incident reference dataset. Records
// are loaded once at startup and read concurrently by the historical
// evaluator.
package incidents

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cordonhq/cordon/internal/models"
)

// Record is one past incident. ActionTaken is colon-delimited: an
// action-type prefix followed by free-text detail.
type Record struct {
	IncidentID   string          `yaml:"incident_id" json:"incident_id"`
	Description  string          `yaml:"description,omitempty" json:"description,omitempty"`
	ActionTaken  string          `yaml:"action_taken" json:"action_taken"`
	Outcome      string          `yaml:"outcome,omitempty" json:"outcome,omitempty"`
	Lesson       string          `yaml:"lesson,omitempty" json:"lesson,omitempty"`
	Service      string          `yaml:"service,omitempty" json:"service,omitempty"`
	Severity     models.Severity `yaml:"severity" json:"severity"`
	Date         string          `yaml:"date,omitempty" json:"date,omitempty"`
	ResourceType string          `yaml:"resource_type,omitempty" json:"resource_type,omitempty"`
	Tags         []string        `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// ActionPrefix returns the action-type portion of ActionTaken, the text
// before the first colon.
func (r Record) ActionPrefix() string {
	taken := strings.TrimSpace(r.ActionTaken)
	if idx := strings.Index(taken, ":"); idx >= 0 {
		return strings.TrimSpace(taken[:idx])
	}
	return taken
}

// Validate checks record identity and severity.
func (r Record) Validate() error {
	if strings.TrimSpace(r.IncidentID) == "" {
		return fmt.Errorf("incident has no id")
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("incident %s: invalid severity %q", r.IncidentID, r.Severity)
	}
	return nil
}

type incidentFile struct {
	Incidents []Record `yaml:"incidents"`
}

// LoadFile reads an incident dataset from a YAML file. A load failure is
// fatal to startup.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read incident history %s: %w", path, err)
	}
	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Parse decodes and validates an incident dataset from YAML bytes.
func Parse(data []byte) ([]Record, error) {
	var file incidentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse incident history: %w", err)
	}
	for _, r := range file.Incidents {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Incidents, nil
}
