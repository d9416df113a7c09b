package mocks

import (
	"slices"
	"sync"

	"github.com/mcoot/assassins-go/internal/dependencies/random"
)

// MockRandom replays queued Intn results; an empty queue yields 0
type MockRandom struct {
	mu    sync.Mutex
	queue []int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result reduced into [0, n)
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 || n <= 0 {
		return 0
	}
	result := r.queue[0]
	r.queue = r.queue[1:]
	return result % n
}

// QueueIntn appends raw Intn results
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, values...)
}

// QueueOrder queues the draws that make the next random.Shuffled call return
// items in the given order, where order[k] is an index into the input.
func (r *MockRandom) QueueOrder(order ...int) {
	cur := make([]int, len(order))
	for i := range cur {
		cur[i] = i
	}
	var draws []int
	for i := len(order) - 1; i > 0; i-- {
		j := slices.Index(cur[:i+1], order[i])
		draws = append(draws, j)
		cur[i], cur[j] = cur[j], cur[i]
	}
	r.QueueIntn(draws...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = nil
}
