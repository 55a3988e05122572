package engine

import (
	"sync"

	"github.com/google/uuid"
)

// UUIDv7Generator generates time-sortable UUIDv7 record ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so occurrence and
// event ids sort by creation time - helpful when reading raw rows during
// an audit.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDGenerator returns predetermined ids for tests, enabling
// deterministic golden comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed; a test asking for more ids
// than it declared is misconfigured.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SequentialIDGenerator yields deterministic UUID-shaped ids from a counter.
// Useful for tests that need an unbounded supply of stable ids.
type SequentialIDGenerator struct {
	mu   sync.Mutex
	next uint32
}

// NewSequentialIDGenerator creates a generator starting at 1.
func NewSequentialIDGenerator() *SequentialIDGenerator {
	return &SequentialIDGenerator{next: 1}
}

// Generate returns the next counter-derived UUID string.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.UUID{}
	id[12] = byte(g.next >> 24)
	id[13] = byte(g.next >> 16)
	id[14] = byte(g.next >> 8)
	id[15] = byte(g.next)
	g.next++
	return id.String()
}
