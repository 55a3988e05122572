package engine

import (
	"github.com/coldtrack/coldtrack/internal/store"
)

// IDGenerator produces occurrence and event record ids.
// Implemented by UUIDv7Generator (production) and FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Recorder receives engine state-transition counts.
// Implemented by metrics.Prometheus (production) and NopRecorder (default).
type Recorder interface {
	OccurrencesGenerated(n int)
	OccurrenceCompleted(onTime bool)
	OccurrencesMissed(n int)
	OccurrenceOverridden()
	EventRejected(reason string)
}

// NopRecorder discards all counts.
type NopRecorder struct{}

func (NopRecorder) OccurrencesGenerated(int) {}
func (NopRecorder) OccurrenceCompleted(bool) {}
func (NopRecorder) OccurrencesMissed(int)    {}
func (NopRecorder) OccurrenceOverridden()    {}
func (NopRecorder) EventRejected(string)     {}

// Engine implements the recurrence-driven compliance operations:
// generation, reconciliation, sweeping, override.
//
// Concurrency model: read-modify-write sequences take a logical lock scoped
// to the owner id, so operations against different schedules and assets
// proceed fully in parallel while same-owner operations serialize. Status
// transitions are additionally conditional writes keyed on the current
// status (see internal/store), so a reconciliation racing a sweep resolves
// to whichever conditional write lands first.
//
// Time: every operation takes its reference instant from the caller. The
// engine never reads the wall clock, which keeps it deterministic and
// testable.
type Engine struct {
	store   *store.Store
	ids     IDGenerator
	locks   *ownerLocks
	metrics Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator overrides the record id generator (tests use
// FixedIDGenerator for stable ids).
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// New creates an Engine over the given store.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		ids:     UUIDv7Generator{},
		locks:   newOwnerLocks(),
		metrics: NopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
// Used by the read API and the CLI; not for bypassing engine transitions.
func (e *Engine) Store() *store.Store {
	return e.store
}
