package testutil

import (
	"fmt"
	"sync"
)

// FixedTraceGenerator returns the same trace id every time, so CLI output
// can be compared byte for byte.
//
// Thread-safety: FixedTraceGenerator is stateless and safe for concurrent use.
type FixedTraceGenerator struct {
	id string
}

// NewFixedTraceGenerator creates a fixed generator. An empty id becomes
// "test-trace-default".
func NewFixedTraceGenerator(id string) *FixedTraceGenerator {
	if id == "" {
		id = "test-trace-default"
	}
	return &FixedTraceGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedTraceGenerator) Generate() string {
	return g.id
}

// SequentialTraceGenerator returns trace-0001, trace-0002, ...
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialTraceGenerator struct {
	mu  sync.Mutex
	seq int
}

// Generate returns the next id.
func (g *SequentialTraceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("trace-%04d", g.seq)
}

// Reset restarts the sequence. The next Generate returns trace-0001.
func (g *SequentialTraceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
