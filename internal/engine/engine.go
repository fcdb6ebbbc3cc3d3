// Package engine contains the governance decision core: four risk
// evaluators fanned out concurrently and a composite scorer that merges
// their sub-scores into a single verdict.
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	gerrors "github.com/cordonhq/cordon/internal/errors"
	"github.com/cordonhq/cordon/internal/incidents"
	"github.com/cordonhq/cordon/internal/metrics"
	"github.com/cordonhq/cordon/internal/models"
	"github.com/cordonhq/cordon/internal/narrative"
	"github.com/cordonhq/cordon/internal/policies"
	"github.com/cordonhq/cordon/internal/topology"
)

// Weights distribute the composite score across the four dimensions. They
// must sum to 1.0 within a 0.001 tolerance.
type Weights struct {
	Infrastructure float64
	Policy         float64
	Historical     float64
	Cost           float64
}

// DefaultWeights returns the standard dimension weighting.
func DefaultWeights() Weights {
	return Weights{
		Infrastructure: 0.30,
		Policy:         0.25,
		Historical:     0.25,
		Cost:           0.20,
	}
}

// Sum returns the total of the four weights.
func (w Weights) Sum() float64 {
	return w.Infrastructure + w.Policy + w.Historical + w.Cost
}

// Validate enforces the unit-sum invariant.
func (w Weights) Validate() error {
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("dimension weights must sum to 1.0, got %.4f", w.Sum())
	}
	return nil
}

// Config tunes the decision engine.
type Config struct {
	Weights Weights

	// AutoApproveThreshold is the inclusive upper bound of the approve band.
	AutoApproveThreshold float64
	// HumanReviewThreshold is the inclusive upper bound of the escalate
	// band; anything above is denied.
	HumanReviewThreshold float64

	Financial FinancialConfig
}

// DefaultConfig returns the standard thresholds and weights.
func DefaultConfig() Config {
	return Config{
		Weights:              DefaultWeights(),
		AutoApproveThreshold: 25,
		HumanReviewThreshold: 60,
		Financial:            DefaultFinancialConfig(),
	}
}

// Validate checks weights and threshold ordering.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.AutoApproveThreshold < 0 || c.HumanReviewThreshold > 100 {
		return fmt.Errorf("thresholds must lie in [0, 100]")
	}
	if c.AutoApproveThreshold >= c.HumanReviewThreshold {
		return fmt.Errorf("auto-approve threshold %.2f must be below human-review threshold %.2f",
			c.AutoApproveThreshold, c.HumanReviewThreshold)
	}
	return nil
}

// Engine is the composite scorer. It owns the four evaluators and their
// read-only reference data; a constructed engine is safe for concurrent use.
type Engine struct {
	cfg Config

	blast     *BlastRadiusEvaluator
	policy    *PolicyEvaluator
	history   *HistoricalEvaluator
	financial *FinancialEvaluator

	augmenter narrative.Augmenter
	now       func() time.Time
	newID     func() string
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithClock injects the evaluation clock. Identical inputs under an
// identical clock reproduce identical scores and decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDFunc injects the action-ID mint, for tests that pin identifiers.
func WithIDFunc(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithAugmenter injects a narrative augmenter. Augmentation only ever
// appends prose to the reason string; it never changes a score or decision.
func WithAugmenter(a narrative.Augmenter) Option {
	return func(e *Engine) { e.augmenter = a }
}

// New builds an engine over the three reference datasets. The datasets are
// treated as immutable snapshots from here on.
func New(cfg Config, graph *topology.Snapshot, rules []policies.Rule, history []incidents.Record, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:       cfg,
		augmenter: narrative.Noop{},
		now:       time.Now,
		newID:     func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.blast = NewBlastRadiusEvaluator(graph)
	e.policy = NewPolicyEvaluator(rules, graph, e.now)
	e.history = NewHistoricalEvaluator(history)
	e.financial = NewFinancialEvaluator(graph, cfg.Financial)
	return e, nil
}

// Thresholds returns the decision band boundaries in effect.
func (e *Engine) Thresholds() models.Thresholds {
	return models.Thresholds{
		AutoApprove: e.cfg.AutoApproveThreshold,
		HumanReview: e.cfg.HumanReviewThreshold,
	}
}

// Evaluate runs the four evaluators concurrently and merges their
// sub-results into a verdict. It returns an error only for a malformed
// action; evaluator failures degrade to zero sub-scores instead of aborting
// the verdict.
func (e *Engine) Evaluate(ctx context.Context, action models.ProposedAction) (*models.Verdict, error) {
	return e.EvaluateWithMetadata(ctx, action, nil)
}

// EvaluateWithMetadata is Evaluate with caller-supplied resource metadata
// for the policy dimension.
func (e *Engine) EvaluateWithMetadata(ctx context.Context, action models.ProposedAction, meta *ResourceMetadata) (*models.Verdict, error) {
	action.Normalize()
	if err := action.Validate(); err != nil {
		return nil, gerrors.NewEvalError(gerrors.ErrorTypeValidation, "evaluate", action.AgentID, err)
	}

	started := time.Now()

	var (
		infra models.InfrastructureResult
		pol   models.PolicyResult
		hist  models.HistoricalResult
		fin   models.FinancialResult
	)

	// Four logical slots, joined only once all four are done. A panic in
	// one evaluator degrades that dimension without touching the others.
	var g errgroup.Group
	g.SetLimit(4)
	g.Go(e.runDimension(models.DimensionInfrastructure, &infra.Reasoning, &infra.Score, func() {
		infra = e.blast.Evaluate(action)
	}))
	g.Go(e.runDimension(models.DimensionPolicy, &pol.Reasoning, &pol.Score, func() {
		pol = e.policy.Evaluate(action, meta)
	}))
	g.Go(e.runDimension(models.DimensionHistorical, &hist.Reasoning, &hist.Score, func() {
		hist = e.history.Evaluate(action)
	}))
	g.Go(e.runDimension(models.DimensionCost, &fin.Reasoning, &fin.Score, func() {
		fin = e.financial.Evaluate(action)
	}))
	_ = g.Wait()

	breakdown := models.SRIBreakdown{
		Infrastructure: infra.Score,
		Policy:         pol.Score,
		Historical:     hist.Score,
		Cost:           fin.Score,
	}
	breakdown.Composite = models.ClampScore(
		breakdown.Infrastructure*e.cfg.Weights.Infrastructure +
			breakdown.Policy*e.cfg.Weights.Policy +
			breakdown.Historical*e.cfg.Weights.Historical +
			breakdown.Cost*e.cfg.Weights.Cost)

	decision, reason := e.decide(breakdown, pol)

	verdict := &models.Verdict{
		ActionID:  e.newID(),
		Timestamp: e.now().UTC(),
		Action:    action,
		Breakdown: breakdown,
		Decision:  decision,
		Reason:    reason,
		AgentResults: map[string]any{
			models.DimensionInfrastructure: infra,
			models.DimensionPolicy:         pol,
			models.DimensionHistorical:     hist,
			models.DimensionCost:           fin,
		},
		Thresholds: e.Thresholds(),
	}

	e.augment(ctx, verdict)

	metrics.ObserveEvaluation(string(decision), breakdown.Composite, time.Since(started))
	for _, v := range pol.Violations {
		metrics.ObservePolicyViolation(string(v.Severity))
	}

	log.Info().
		Str("actionId", verdict.ActionID).
		Str("agent", action.AgentID).
		Str("actionType", string(action.ActionType)).
		Str("resource", action.Target.ResourceID).
		Str("decision", string(decision)).
		Float64("composite", breakdown.Composite).
		Msg("Action evaluated")

	return verdict, nil
}

// runDimension wraps one evaluator call with panic recovery so a failing
// dimension yields a zero sub-result instead of sinking the verdict.
func (e *Engine) runDimension(name string, reasoning *string, score *float64, fn func()) func() error {
	return func() error {
		started := time.Now()
		defer func() {
			metrics.ObserveEvaluator(name, time.Since(started))
			if r := recover(); r != nil {
				log.Error().Str("dimension", name).Any("panic", r).Msg("Evaluator failed; degrading to zero sub-score")
				*score = 0
				*reasoning = fmt.Sprintf("%s evaluation failed (%v); dimension scored 0", name, r)
			}
		}()
		fn()
		return nil
	}
}

// decide applies the decision rule: critical policy violations force a
// denial, otherwise the composite is banded by the two inclusive thresholds.
// The override never alters the numeric composite.
func (e *Engine) decide(breakdown models.SRIBreakdown, pol models.PolicyResult) (models.Decision, string) {
	if ids := pol.CriticalViolationIDs(); len(ids) > 0 {
		return models.DecisionDenied,
			fmt.Sprintf("denied: critical policy violation(s) %s; composite risk %.2f",
				strings.Join(ids, ", "), breakdown.Composite)
	}
	switch {
	case breakdown.Composite <= e.cfg.AutoApproveThreshold:
		return models.DecisionApproved,
			fmt.Sprintf("approved: composite risk %.2f within auto-approve threshold %.2f",
				breakdown.Composite, e.cfg.AutoApproveThreshold)
	case breakdown.Composite <= e.cfg.HumanReviewThreshold:
		return models.DecisionEscalated,
			fmt.Sprintf("escalated for human review: composite risk %.2f exceeds auto-approve threshold %.2f (highest dimension: %s)",
				breakdown.Composite, e.cfg.AutoApproveThreshold, dominantDimension(breakdown))
	default:
		return models.DecisionDenied,
			fmt.Sprintf("denied: composite risk %.2f exceeds human-review threshold %.2f (highest dimension: %s)",
				breakdown.Composite, e.cfg.HumanReviewThreshold, dominantDimension(breakdown))
	}
}

// augment appends optional narrative prose to the reason. Failures are
// swallowed: enrichment is strictly additive and fully skippable.
func (e *Engine) augment(ctx context.Context, verdict *models.Verdict) {
	if e.augmenter == nil {
		return
	}
	prose, err := e.augmenter.Augment(ctx, verdict)
	if err != nil {
		log.Debug().Err(err).Str("actionId", verdict.ActionID).Msg("Narrative augmentation skipped")
		return
	}
	if prose = strings.TrimSpace(prose); prose != "" {
		verdict.Reason = verdict.Reason + "\n" + prose
	}
}

func dominantDimension(b models.SRIBreakdown) string {
	name, best := models.DimensionInfrastructure, b.Infrastructure
	if b.Policy > best {
		name, best = models.DimensionPolicy, b.Policy
	}
	if b.Historical > best {
		name, best = models.DimensionHistorical, b.Historical
	}
	if b.Cost > best {
		name = models.DimensionCost
	}
	return name
}
