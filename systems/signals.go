package systems

import (
	"primordium/entity"
	"primordium/world"
)

// SignalState is the RGB signal an entity broadcasts to its neighbors.
type SignalState struct {
	R, G, B   float32
	Intensity float32 // [0,1]
}

// PheromoneGrid is a low-resolution scalar field for chemical trails.
// Cells wrap toroidally for gradient sampling.
type PheromoneGrid struct {
	Cells       []float32
	Width       int
	Height      int
	CellSize    float32
	invCellSize float32
}

// NewPheromoneGrid creates an empty grid covering the world.
func NewPheromoneGrid(worldW, worldH, cellSize float32) *PheromoneGrid {
	width := int(ceil(worldW / cellSize))
	height := int(ceil(worldH / cellSize))
	return &PheromoneGrid{
		Cells:       make([]float32, width*height),
		Width:       width,
		Height:      height,
		CellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
	}
}

func (g *PheromoneGrid) cellAt(pos world.Vec2) int {
	cx := int(pos.X * g.invCellSize)
	cy := int(pos.Y * g.invCellSize)
	if cx >= g.Width {
		cx = g.Width - 1
	}
	if cy >= g.Height {
		cy = g.Height - 1
	}
	if cx < 0 {
		cx = 0
	}
	if cy < 0 {
		cy = 0
	}
	return cy*g.Width + cx
}

// Deposit adds pheromone at a world position.
func (g *PheromoneGrid) Deposit(pos world.Vec2, amount float32) {
	g.Cells[g.cellAt(pos)] += amount
}

// Sample returns the pheromone intensity at a world position.
func (g *PheromoneGrid) Sample(pos world.Vec2) float32 {
	return g.Cells[g.cellAt(pos)]
}

// Gradient returns the direction of increasing concentration via
// central differences on the wrapped grid.
func (g *PheromoneGrid) Gradient(pos world.Vec2) world.Vec2 {
	cx := int(pos.X * g.invCellSize)
	cy := int(pos.Y * g.invCellSize)

	sample := func(x, y int) float32 {
		return g.Cells[wrapIndex(y, g.Height)*g.Width+wrapIndex(x, g.Width)]
	}

	return world.Vec2{
		X: (sample(cx+1, cy) - sample(cx-1, cy)) * 0.5,
		Y: (sample(cx, cy+1) - sample(cx, cy-1)) * 0.5,
	}
}

// Decay applies exponential decay to the whole field.
func (g *PheromoneGrid) Decay(rate, dt float32) {
	factor := 1.0 - rate*dt
	if factor < 0 {
		factor = 0
	}
	for i := range g.Cells {
		g.Cells[i] *= factor
	}
}

// pheromone trail tuning: deposit scales with speed, ~2s half-life
const (
	pheromoneDepositScale = 0.01
	pheromoneDecayRate    = 0.5
)

// UpdateSignals publishes each entity's RGB signal from its motor
// outputs, deposits movement pheromone, and decays the field. signals
// is resized to cover every arena slot.
func UpdateSignals(arena *entity.Arena, signalColors [][3]float32, signals *[]SignalState, pheromones *PheromoneGrid, dt float32) {
	if len(*signals) < arena.Capacity() {
		grown := make([]SignalState, arena.Capacity())
		copy(grown, *signals)
		*signals = grown
	}
	for i := range *signals {
		(*signals)[i] = SignalState{}
	}

	arena.IterAlive(func(idx int, e *entity.Entity) {
		var r, g, b float32
		if idx < len(signalColors) {
			r = signalColors[idx][0]
			g = signalColors[idx][1]
			b = signalColors[idx][2]
		}
		// Intensity is the strongest channel; a quiet brain signals
		// nothing even though the channels idle near 0.5.
		intensity := r
		if g > intensity {
			intensity = g
		}
		if b > intensity {
			intensity = b
		}
		(*signals)[idx] = SignalState{R: r, G: g, B: b, Intensity: intensity}

		speed := e.Vel.Length()
		if amount := speed * pheromoneDepositScale * dt; amount > 0.001 {
			pheromones.Deposit(e.Pos, amount)
		}
	})

	pheromones.Decay(pheromoneDecayRate, dt)
}
