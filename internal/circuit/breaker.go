// Package circuit provides a circuit breaker guarding outbound calls to the
// narrative provider, so a degraded upstream cannot stall the evaluation
// path with doomed requests.
package circuit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the breaker state.
type State int

const (
	// StateClosed means calls flow normally.
	StateClosed State = iota
	// StateOpen means calls are blocked until the backoff elapses.
	StateOpen
	// StateHalfOpen means a single probe call is permitted.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes breaker behavior.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker.
	FailureThreshold int
	// SuccessThreshold is the consecutive-success count that closes it
	// again from half-open.
	SuccessThreshold int
	// InitialBackoff is the first open-state hold time.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential hold time.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the hold time after each re-trip.
	BackoffMultiplier float64
}

// DefaultConfig returns standard breaker settings.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  3,
		SuccessThreshold:  2,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        2 * time.Minute,
		BackoffMultiplier: 2.0,
	}
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	mu sync.Mutex

	name    string
	cfg     Config
	state   State
	backoff time.Duration

	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

// NewBreaker creates a breaker with the given configuration, normalizing
// non-positive fields to defaults.
func NewBreaker(name string, cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = def.BackoffMultiplier
	}
	return &Breaker{
		name:    name,
		cfg:     cfg,
		state:   StateClosed,
		backoff: cfg.InitialBackoff,
		now:     time.Now,
	}
}

// Allow reports whether a call may proceed, transitioning open to half-open
// once the backoff has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.backoff {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return true
	}
	return false
}

// RecordSuccess notes a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.backoff = b.cfg.InitialBackoff
			b.transition(StateClosed)
		}
	case StateOpen:
		// A success while open means an in-flight call outlived the trip.
		b.transition(StateHalfOpen)
	}
}

// RecordFailure notes a failed call, tripping the breaker when the
// consecutive-failure threshold is reached.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes = 0
	switch b.state {
	case StateHalfOpen:
		b.growBackoff()
		b.trip(err)
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip(err)
		}
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) trip(err error) {
	b.openedAt = b.now()
	log.Warn().Str("breaker", b.name).Err(err).Dur("backoff", b.backoff).Msg("Circuit breaker tripped")
	b.transition(StateOpen)
}

func (b *Breaker) growBackoff() {
	b.backoff = time.Duration(float64(b.backoff) * b.cfg.BackoffMultiplier)
	if b.backoff > b.cfg.MaxBackoff {
		b.backoff = b.cfg.MaxBackoff
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	log.Debug().Str("breaker", b.name).Str("from", b.state.String()).Str("to", to.String()).Msg("Circuit breaker state change")
	b.state = to
	b.failures = 0
	b.successes = 0
}
