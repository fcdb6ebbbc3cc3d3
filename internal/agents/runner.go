package agents

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cordonhq/cordon/internal/audit"
	"github.com/cordonhq/cordon/internal/engine"
	"github.com/cordonhq/cordon/internal/models"
	"github.com/cordonhq/cordon/internal/topology"
	"github.com/cordonhq/cordon/internal/websocket"
)

// Runner drives the built-in agents on a fixed interval. Every proposal is
// evaluated, recorded, and broadcast; the runner never executes anything.
type Runner struct {
	proposers []Proposer
	engine    func() *engine.Engine
	graph     func() *topology.Snapshot
	recorder  audit.Recorder
	hub       *websocket.Hub
	interval  time.Duration
}

// NewRunner builds a runner over the given agent set. Engine and graph are
// supplied as getters so dataset reloads take effect between cycles.
func NewRunner(proposers []Proposer, eng func() *engine.Engine, graph func() *topology.Snapshot, recorder audit.Recorder, hub *websocket.Hub, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Runner{
		proposers: proposers,
		engine:    eng,
		graph:     graph,
		recorder:  recorder,
		hub:       hub,
		interval:  interval,
	}
}

// Run executes cycles until ctx is cancelled. The first cycle starts after
// one full interval so startup traffic settles first.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.interval).Int("agents", len(r.proposers)).Msg("Agent runner started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Agent runner stopped")
			return
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle collects one round of proposals and evaluates each.
func (r *Runner) RunCycle(ctx context.Context) {
	graph := r.graph()
	for _, p := range r.proposers {
		for _, action := range p.Propose(graph) {
			if ctx.Err() != nil {
				return
			}
			r.submit(ctx, action)
		}
	}
}

func (r *Runner) submit(ctx context.Context, action models.ProposedAction) {
	verdict, err := r.engine().Evaluate(ctx, action)
	if err != nil {
		log.Warn().Err(err).Str("agent", action.AgentID).Msg("Agent proposal rejected")
		return
	}
	if r.recorder != nil {
		if err := r.recorder.Record(ctx, verdict); err != nil {
			log.Error().Err(err).Str("actionId", verdict.ActionID).Msg("Failed to record agent verdict")
		}
	}
	if r.hub != nil {
		r.hub.BroadcastVerdict(verdict)
	}
}
