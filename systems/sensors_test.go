package systems

import (
	"testing"

	"primordium/entity"
	"primordium/world"
)

func sensorFixture(t *testing.T) (*Environment, *world.World) {
	t.Helper()
	cfg := defaultTestConfig(t)
	env := NewEnvironment(cfg, 7)
	for i := range env.Terrain.Cells {
		env.Terrain.Cells[i] = TerrainPlains
	}
	env.TimeOfDay = 0.5
	return env, world.New(cfg.Derived.WorldW32, cfg.Derived.WorldH32, true)
}

func TestSensorsDetectFoodAhead(t *testing.T) {
	cfg := defaultTestConfig(t)
	env, w := sensorFixture(t)

	arena := entity.NewArena(1)
	e := testEntity(world.Vec2{X: 500, Y: 500})
	e.Heading = 0
	id := arena.Spawn(e)

	grid := NewGrid(w.Width, w.Height, 64)
	grid.Rebuild(arena)
	pheromones := NewPheromoneGrid(w.Width, w.Height, 32)

	// No ray points straight ahead with 8 rays over 270 degrees; 20 units
	// out, the flanking rays still pass within the food hit radius.
	food := []world.Vec2{{X: 520, Y: 500}}
	var scratch SensorScratch
	inputs := ComputeAllSensors(cfg, arena, food, nil, nil, pheromones, grid, w, env, &scratch)

	if inputs[id.Index][2] <= 0 {
		t.Errorf("food proximity = %v, want > 0 for food dead ahead", inputs[id.Index][2])
	}
	for i, v := range inputs[id.Index] {
		if v < 0 || v > 1 {
			t.Errorf("sensor %d = %v, outside [0,1]", i, v)
		}
	}
}

func TestSensorsDetectEntityAhead(t *testing.T) {
	cfg := defaultTestConfig(t)
	env, w := sensorFixture(t)

	arena := entity.NewArena(2)
	looker := testEntity(world.Vec2{X: 500, Y: 500})
	looker.Heading = 0
	lookerID := arena.Spawn(looker)
	arena.Spawn(testEntity(world.Vec2{X: 530, Y: 500}))

	grid := NewGrid(w.Width, w.Height, 64)
	grid.Rebuild(arena)
	pheromones := NewPheromoneGrid(w.Width, w.Height, 32)

	var scratch SensorScratch
	inputs := ComputeAllSensors(cfg, arena, nil, nil, nil, pheromones, grid, w, env, &scratch)

	if inputs[lookerID.Index][4] <= 0 {
		t.Errorf("entity proximity = %v, want > 0", inputs[lookerID.Index][4])
	}
}

func TestSensorsReadOwnEnergyAndHealth(t *testing.T) {
	cfg := defaultTestConfig(t)
	env, w := sensorFixture(t)

	arena := entity.NewArena(1)
	e := testEntity(world.Vec2{X: 500, Y: 500})
	e.Energy = float32(cfg.Entity.MaxEnergy) / 2
	e.Health = 50
	e.MaxHealth = 100
	id := arena.Spawn(e)

	grid := NewGrid(w.Width, w.Height, 64)
	grid.Rebuild(arena)
	pheromones := NewPheromoneGrid(w.Width, w.Height, 32)

	var scratch SensorScratch
	inputs := ComputeAllSensors(cfg, arena, nil, nil, nil, pheromones, grid, w, env, &scratch)

	if got := inputs[id.Index][9]; got != 0.5 {
		t.Errorf("energy sensor = %v, want 0.5", got)
	}
	if got := inputs[id.Index][10]; got != 0.5 {
		t.Errorf("health sensor = %v, want 0.5", got)
	}
}

func TestSensorsReadNeighborSignal(t *testing.T) {
	cfg := defaultTestConfig(t)
	env, w := sensorFixture(t)

	arena := entity.NewArena(2)
	lookerID := arena.Spawn(testEntity(world.Vec2{X: 500, Y: 500}))
	neighborID := arena.Spawn(testEntity(world.Vec2{X: 520, Y: 500}))

	grid := NewGrid(w.Width, w.Height, 64)
	grid.Rebuild(arena)
	pheromones := NewPheromoneGrid(w.Width, w.Height, 32)

	signals := make([]SignalState, arena.Capacity())
	signals[neighborID.Index] = SignalState{R: 1, G: 0.5, B: 0, Intensity: 1}

	var scratch SensorScratch
	inputs := ComputeAllSensors(cfg, arena, nil, nil, signals, pheromones, grid, w, env, &scratch)

	if inputs[lookerID.Index][5] != 1 || inputs[lookerID.Index][6] != 0.5 {
		t.Errorf("neighbor signal sensors = %v/%v, want 1/0.5",
			inputs[lookerID.Index][5], inputs[lookerID.Index][6])
	}
}
