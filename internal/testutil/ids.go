package testutil

import (
	"fmt"
	"sync"
)

// IDs returns predetermined IDs in order.
//
// Panics if all IDs have been consumed, so a test that creates more records
// than it expects fails loudly.
type IDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewIDs creates a generator that returns ids in order.
func NewIDs(ids ...string) *IDs {
	return &IDs{ids: ids}
}

// NewID returns the next predetermined ID.
func (g *IDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("testutil.IDs: exhausted after %d ids", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
