package mirror

import (
	"context"
	"sort"
	"sync"
)

// Queue is an unbounded mailbox of published file paths.
// Repeated pushes of a path collapse into one pending entry, so memory is
// bounded by the number of distinct files, not the number of updates.
type Queue struct {
	mu      sync.Mutex
	pending map[string]struct{}
	signal  chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		pending: make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
	}
}

// Push adds a path; it never blocks
func (q *Queue) Push(path string) {
	q.mu.Lock()
	q.pending[path] = struct{}{}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len returns the number of distinct pending paths
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain removes and returns every pending path without blocking
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(q.pending))
	for p := range q.pending {
		paths = append(paths, p)
	}
	q.pending = make(map[string]struct{})
	sort.Strings(paths)
	return paths
}

// Wait blocks until at least one path is pending, then drains them all
func (q *Queue) Wait(ctx context.Context) ([]string, error) {
	for {
		if paths := q.Drain(); len(paths) > 0 {
			return paths, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.signal:
		}
	}
}
