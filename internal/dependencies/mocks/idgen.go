package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/assassins-go/internal/dependencies/idgen"
)

// MockIDGenerator returns queued ids, then a predictable sequence
type MockIDGenerator struct {
	mu     sync.Mutex
	queue  []string
	prefix string
	next   int
}

var _ idgen.Generator = (*MockIDGenerator)(nil)

// NewMockIDGenerator creates a generator that falls back to "<prefix>-<n>"
func NewMockIDGenerator(prefix string) *MockIDGenerator {
	return &MockIDGenerator{prefix: prefix}
}

// NewID returns the next queued id or the next sequence value
func (g *MockIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) > 0 {
		id := g.queue[0]
		g.queue = g.queue[1:]
		return id
	}
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}

// QueueIDs adds ids to be returned before the sequence resumes
func (g *MockIDGenerator) QueueIDs(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, ids...)
}
