// Package systems implements the per-tick simulation systems: spatial
// indexing, sensing, physics, combat, energy, reproduction, signalling,
// and the environment.
package systems

import (
	"primordium/entity"
	"primordium/world"
)

// Grid provides O(1) neighbor lookups over entity slot indices using a
// cell-based partition of the world. It holds no generation info: a
// query result is only valid until the next position change, after
// which Rebuild must run before querying again.
type Grid struct {
	cellSize    float32
	invCellSize float32
	cols        int
	rows        int
	cells       [][]int32
}

// NewGrid creates a grid covering the given world extent.
func NewGrid(width, height, cellSize float32) *Grid {
	cols := int(ceil(width / cellSize))
	rows := int(ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]int32, cols*rows)
	for i := range cells {
		cells[i] = make([]int32, 0, 8)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
	}
}

// Rebuild clears every cell and reinserts the slot index of every alive
// entity. Dead and empty slots never enter the grid.
func (g *Grid) Rebuild(arena *entity.Arena) {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	arena.IterAlive(func(idx int, e *entity.Entity) {
		cx := int(e.Pos.X * g.invCellSize)
		cy := int(e.Pos.Y * g.invCellSize)
		if cx >= g.cols {
			cx = g.cols - 1
		}
		if cy >= g.rows {
			cy = g.rows - 1
		}
		if cx < 0 {
			cx = 0
		}
		if cy < 0 {
			cy = 0
		}
		g.cells[cy*g.cols+cx] = append(g.cells[cy*g.cols+cx], int32(idx))
	})
}

// QueryRadiusInto appends the slot indices of all indexed entities
// within radius of pos to dst and returns the updated slice. Reuse dst
// across calls to avoid allocations. Distances use the world's
// shortest-path metric, so neighbors are found across the toroidal seam.
func (g *Grid) QueryRadiusInto(dst []int32, pos world.Vec2, radius float32, w *world.World, arena *entity.Arena) []int32 {
	return g.query(dst, pos, radius, -1, w, arena)
}

// QueryRadiusExcludingInto is QueryRadiusInto with one slot filtered
// out, typically the querying entity itself.
func (g *Grid) QueryRadiusExcludingInto(dst []int32, pos world.Vec2, radius float32, exclude int32, w *world.World, arena *entity.Arena) []int32 {
	return g.query(dst, pos, radius, exclude, w, arena)
}

func (g *Grid) query(dst []int32, pos world.Vec2, radius float32, exclude int32, w *world.World, arena *entity.Arena) []int32 {
	radiusSq := radius * radius
	cellRange := int(ceil(radius*g.invCellSize)) + 1

	cx := int(pos.X * g.invCellSize)
	cy := int(pos.Y * g.invCellSize)

	for dy := -cellRange; dy <= cellRange; dy++ {
		for dx := -cellRange; dx <= cellRange; dx++ {
			gx := cx + dx
			gy := cy + dy

			if w.Toroidal {
				gx = wrapIndex(gx, g.cols)
				gy = wrapIndex(gy, g.rows)
			} else if gx < 0 || gx >= g.cols || gy < 0 || gy >= g.rows {
				continue
			}

			for _, idx := range g.cells[gy*g.cols+gx] {
				if idx == exclude {
					continue
				}
				e, ok := arena.GetByIndex(int(idx))
				if !ok {
					continue
				}
				if w.DistanceSq(pos, e.Pos) <= radiusSq {
					dst = append(dst, idx)
				}
			}
		}
	}

	return dst
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func ceil(x float32) float32 {
	i := float32(int(x))
	if i < x {
		return i + 1
	}
	return i
}
