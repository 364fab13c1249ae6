// Package cache mirrors server state on the client side.
package cache

import (
	"slices"
	"sync"

	"github.com/mechcore/firecontrol/pkg/core"
)

// UnitCache holds the latest snapshot of every unit the server reported.
// Snapshots from a phase older than the cached one are ignored.
type UnitCache struct {
	m     sync.Mutex
	phase int
	units map[core.EntityID]core.UnitState
}

func NewUnitCache() *UnitCache {
	return &UnitCache{units: make(map[core.EntityID]core.UnitState)}
}

func (c *UnitCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.phase = 0
	c.units = make(map[core.EntityID]core.UnitState)
}

// Apply stores a units packet. It reports false when the packet is stale.
// A full snapshot of a newer phase replaces units that are no longer listed.
func (c *UnitCache) Apply(phase int, states []core.UnitState) bool {
	c.m.Lock()
	defer c.m.Unlock()
	if phase < c.phase {
		return false
	}
	if phase > c.phase {
		c.units = make(map[core.EntityID]core.UnitState, len(states))
		c.phase = phase
	}
	for _, s := range states {
		c.units[s.UnitID] = s
	}
	return true
}

// Phase returns the phase of the cached snapshots.
func (c *UnitCache) Phase() int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.phase
}

func (c *UnitCache) Get(id core.EntityID) (core.UnitState, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	s, ok := c.units[id]
	return s, ok
}

// All returns the cached units ordered by id.
func (c *UnitCache) All() []core.UnitState {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]core.UnitState, 0, len(c.units))
	for _, s := range c.units {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b core.UnitState) int { return int(a.UnitID - b.UnitID) })
	return out
}

// Alive returns the ids of units that are not destroyed.
func (c *UnitCache) Alive() []core.EntityID {
	var ids []core.EntityID
	for _, s := range c.All() {
		if !s.Destroyed {
			ids = append(ids, s.UnitID)
		}
	}
	return ids
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
