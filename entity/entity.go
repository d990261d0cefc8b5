// Package entity provides the generational arena that owns all agent
// physical and biological state. Brains and genomes live in parallel
// tables indexed by the same slot numbers; see the sim package for the
// paired spawn/sweep operations that keep the three tables in lockstep.
package entity

import (
	"fmt"

	"primordium/world"
)

// ID is a stable handle to an entity. The generation field invalidates
// stale references: a handle resolves only while the slot's generation
// counter still matches.
type ID struct {
	Index      uint32
	Generation uint32
}

// Entity is the physical/biological record for one agent.
type Entity struct {
	Pos     world.Vec2
	PrevPos world.Vec2 // position last tick, kept for render interpolation
	Vel     world.Vec2
	Heading float32
	Radius  float32

	ColorR, ColorG, ColorB float32

	Energy        float32
	CarriedEnergy float32
	Health        float32
	MaxHealth     float32
	Age           float32
	Alive         bool

	// Trait multipliers decoded from the genome at birth.
	SpeedMult       float32
	SensorRangeMult float32
	MetabolicRate   float32

	// Lineage.
	GenerationDepth uint32
	ParentID        ID
	HasParent       bool
	OffspringCount  uint32
	TickBorn        uint64
}

// DeadSlot reports a slot reclaimed by SweepDead along with the entity's
// last position (for death effects and meat drops).
type DeadSlot struct {
	Index int
	Pos   world.Vec2
}

// Arena is a generational slot store with a stack-ordered free list.
type Arena struct {
	entities    []Entity
	occupied    []bool
	generations []uint32
	freeList    []uint32
	count       int
}

// NewArena creates an arena with the given initial capacity. All slots
// start free; the free list is ordered so slot 0 is handed out first.
func NewArena(capacity int) *Arena {
	a := &Arena{
		entities:    make([]Entity, capacity),
		occupied:    make([]bool, capacity),
		generations: make([]uint32, capacity),
		freeList:    make([]uint32, 0, capacity),
	}
	// Pushed in reverse: the free list pops from the back, so filling
	// high to low makes initial spawns take slots 0, 1, 2, ...
	for i := capacity - 1; i >= 0; i-- {
		a.freeList = append(a.freeList, uint32(i))
	}
	return a
}

// Spawn places an entity in the most recently freed slot, growing the
// backing storage by one slot if none is free. The returned handle
// carries the slot's current generation.
func (a *Arena) Spawn(e Entity) ID {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.entities[idx] = e
		a.occupied[idx] = true
		a.count++
		return ID{Index: idx, Generation: a.generations[idx]}
	}

	idx := uint32(len(a.entities))
	a.entities = append(a.entities, e)
	a.occupied = append(a.occupied, true)
	a.generations = append(a.generations, 0)
	a.count++
	return ID{Index: idx, Generation: 0}
}

// Despawn clears the slot behind the handle, bumps its generation, and
// returns it to the free list. A stale handle or empty slot is a no-op
// and reports false.
func (a *Arena) Despawn(id ID) bool {
	idx := int(id.Index)
	if idx >= len(a.entities) || a.generations[idx] != id.Generation || !a.occupied[idx] {
		return false
	}
	a.occupied[idx] = false
	a.generations[idx]++
	a.freeList = append(a.freeList, id.Index)
	a.count--
	return true
}

// Get resolves a handle. It reports false for stale handles, empty
// slots, and out-of-range indices; it never panics.
func (a *Arena) Get(id ID) (*Entity, bool) {
	idx := int(id.Index)
	if idx >= len(a.entities) || a.generations[idx] != id.Generation || !a.occupied[idx] {
		return nil, false
	}
	return &a.entities[idx], true
}

// GetByIndex resolves a raw slot index without a generation check. Used
// by systems that hold slot indices fresh from a spatial query within
// the same tick.
func (a *Arena) GetByIndex(idx int) (*Entity, bool) {
	if idx < 0 || idx >= len(a.entities) || !a.occupied[idx] {
		return nil, false
	}
	return &a.entities[idx], true
}

// Generation returns the current generation counter for a slot.
func (a *Arena) Generation(idx int) uint32 {
	if idx < 0 || idx >= len(a.generations) {
		return 0
	}
	return a.generations[idx]
}

// SweepDead reclaims every occupied slot whose entity is marked dead:
// the slot is cleared, its generation bumped, and its index pushed on
// the free list. This is the only point where a logically dead entity's
// slot becomes reusable.
func (a *Arena) SweepDead() []DeadSlot {
	var dead []DeadSlot
	for idx := range a.entities {
		if !a.occupied[idx] || a.entities[idx].Alive {
			continue
		}
		dead = append(dead, DeadSlot{Index: idx, Pos: a.entities[idx].Pos})
		a.occupied[idx] = false
		a.generations[idx]++
		a.freeList = append(a.freeList, uint32(idx))
		a.count--
	}
	return dead
}

// IterAlive calls fn for every occupied slot whose entity is alive.
// fn may mutate the entity but must not spawn or despawn.
func (a *Arena) IterAlive(fn func(idx int, e *Entity)) {
	for idx := range a.entities {
		if a.occupied[idx] && a.entities[idx].Alive {
			fn(idx, &a.entities[idx])
		}
	}
}

// IterOccupied calls fn for every occupied slot, alive or not.
func (a *Arena) IterOccupied(fn func(idx int, e *Entity)) {
	for idx := range a.entities {
		if a.occupied[idx] {
			fn(idx, &a.entities[idx])
		}
	}
}

// Count returns the number of occupied slots.
func (a *Arena) Count() int { return a.count }

// Capacity returns the number of backing slots, occupied or free.
func (a *Arena) Capacity() int { return len(a.entities) }

// ArenaState is a serializable copy of an arena's full internal state,
// used by the simulation snapshot.
type ArenaState struct {
	Entities    []Entity
	Occupied    []bool
	Generations []uint32
	FreeList    []uint32
}

// State copies out the arena's internals.
func (a *Arena) State() ArenaState {
	return ArenaState{
		Entities:    append([]Entity(nil), a.entities...),
		Occupied:    append([]bool(nil), a.occupied...),
		Generations: append([]uint32(nil), a.generations...),
		FreeList:    append([]uint32(nil), a.freeList...),
	}
}

// ArenaFromState reconstructs an arena. It fails if the parallel slices
// disagree in length or the free list references impossible slots.
func ArenaFromState(s ArenaState) (*Arena, error) {
	n := len(s.Entities)
	if len(s.Occupied) != n || len(s.Generations) != n {
		return nil, fmt.Errorf("arena state: slice lengths disagree (%d entities, %d occupied, %d generations)",
			n, len(s.Occupied), len(s.Generations))
	}
	count := 0
	for _, occ := range s.Occupied {
		if occ {
			count++
		}
	}
	if len(s.FreeList)+count != n {
		return nil, fmt.Errorf("arena state: free list length %d inconsistent with %d occupied of %d slots",
			len(s.FreeList), count, n)
	}
	for _, idx := range s.FreeList {
		if int(idx) >= n || s.Occupied[idx] {
			return nil, fmt.Errorf("arena state: free list references slot %d invalidly", idx)
		}
	}

	return &Arena{
		entities:    append([]Entity(nil), s.Entities...),
		occupied:    append([]bool(nil), s.Occupied...),
		generations: append([]uint32(nil), s.Generations...),
		freeList:    append([]uint32(nil), s.FreeList...),
		count:       count,
	}, nil
}
