package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cordonhq/cordon/internal/incidents"
	"github.com/cordonhq/cordon/internal/models"
)

// Similarity dimension weights. A record matching every dimension scores
// exactly 1.0.
const (
	simWeightActionType   = 0.40
	simWeightResourceType = 0.30
	simWeightResourceName = 0.20
	simWeightTags         = 0.10

	// similarityCutoff drops weak matches from the result set.
	similarityCutoff = 0.30

	// secondaryMatchFactor discounts every qualifying incident after the
	// best one.
	secondaryMatchFactor = 0.20
)

var incidentSeverityScores = map[models.Severity]float64{
	models.SeverityCritical: 100,
	models.SeverityHigh:     75,
	models.SeverityMedium:   40,
	models.SeverityLow:      10,
}

// Canonical tag keywords associated with each action type, matched
// case-insensitively against incident tags.
var actionTagKeywords = map[models.ActionType][]string{
	models.ActionCreateResource: {"create", "provision"},
	models.ActionDeleteResource: {"deletion", "delete"},
	models.ActionScaleUp:        {"scale-up", "scaling"},
	models.ActionScaleDown:      {"scale-down", "scaling"},
	models.ActionRestartService: {"restart"},
	models.ActionModifyNSG:      {"nsg", "security", "firewall"},
	models.ActionUpdateConfig:   {"config", "configuration"},
}

// HistoricalEvaluator scores an action against past incidents along four
// weighted similarity dimensions.
type HistoricalEvaluator struct {
	records []incidents.Record
}

// NewHistoricalEvaluator builds an evaluator over a read-only incident list.
func NewHistoricalEvaluator(records []incidents.Record) *HistoricalEvaluator {
	return &HistoricalEvaluator{records: records}
}

// Evaluate finds qualifying incidents, sorted by similarity descending, and
// aggregates a historical-risk score.
func (e *HistoricalEvaluator) Evaluate(action models.ProposedAction) models.HistoricalResult {
	matches := []models.IncidentMatch{}
	for _, rec := range e.records {
		sim := similarity(rec, action)
		if sim < similarityCutoff {
			continue
		}
		matches = append(matches, models.IncidentMatch{
			IncidentID:  rec.IncidentID,
			Similarity:  sim,
			Severity:    rec.Severity,
			Description: rec.Description,
			Lesson:      rec.Lesson,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) == 0 {
		return models.HistoricalResult{
			Score:            0,
			SimilarIncidents: matches,
			Reasoning:        "no similar incidents on record",
		}
	}

	best := matches[0]
	score := best.Similarity * incidentSeverityScores[best.Severity]
	for _, m := range matches[1:] {
		score += m.Similarity * incidentSeverityScores[m.Severity] * secondaryMatchFactor
	}

	return models.HistoricalResult{
		Score:                models.ClampScore(score),
		SimilarIncidents:     matches,
		MostRelevant:         &best,
		RecommendedProcedure: best.Lesson,
		Reasoning: fmt.Sprintf("%d similar incident(s); most relevant %s (similarity %.2f, severity %s)",
			len(matches), best.IncidentID, best.Similarity, best.Severity),
	}
}

// similarity is the weighted sum of four binary dimension matches.
func similarity(rec incidents.Record, action models.ProposedAction) float64 {
	score := 0.0
	if rec.ActionPrefix() == string(action.ActionType) {
		score += simWeightActionType
	}
	if rec.ResourceType != "" && rec.ResourceType == action.Target.ResourceType {
		score += simWeightResourceType
	}
	if name := strings.ToLower(action.Target.ShortName()); name != "" &&
		strings.Contains(strings.ToLower(rec.ActionTaken), name) {
		score += simWeightResourceName
	}
	if tagsIntersect(actionTagKeywords[action.ActionType], rec.Tags) {
		score += simWeightTags
	}
	return score
}

func tagsIntersect(keywords, tags []string) bool {
	for _, kw := range keywords {
		for _, tag := range tags {
			if strings.EqualFold(kw, tag) {
				return true
			}
		}
	}
	return false
}
