package systems

import (
	"math"
	"testing"

	"primordium/entity"
	"primordium/neural"
	"primordium/world"
)

func plainsTerrain(width, height float32) *TerrainGrid {
	terrain := GenerateTerrain(width, height, width, 7)
	for i := range terrain.Cells {
		terrain.Cells[i] = TerrainPlains
	}
	return terrain
}

func TestWrapAngleKeepsHeadingInStableRange(t *testing.T) {
	wrapped := WrapAngle(27 * math.Pi)
	if wrapped < -math.Pi || wrapped > math.Pi {
		t.Errorf("WrapAngle = %v, outside [-pi, pi]", wrapped)
	}
}

func TestTurnAgilityReducesWithSpeed(t *testing.T) {
	cfg := defaultTestConfig(t)
	maxSpeed := float32(cfg.Entity.MaxSpeed)
	atMax := float32(cfg.Entity.TurnAtMaxSpeedFactor)

	slow := turnAgility(maxSpeed*0.1, maxSpeed, atMax)
	fast := turnAgility(maxSpeed, maxSpeed, atMax)

	if fast >= slow {
		t.Errorf("agility at full speed (%v) should be below slow agility (%v)", fast, slow)
	}
	if math.Abs(float64(fast-atMax)) > 1e-6 {
		t.Errorf("agility at full speed = %v, want %v", fast, atMax)
	}
}

func TestIntegrateWrapsLargeDisplacements(t *testing.T) {
	w := world.New(100, 100, true)
	arena := entity.NewArena(1)
	e := testEntity(world.Vec2{X: 98, Y: 2})
	e.Vel = world.Vec2{X: 500, Y: -420}
	arena.Spawn(e)

	Integrate(arena, w, 0.5)

	got, _ := arena.GetByIndex(0)
	if got.Pos.X < 0 || got.Pos.X > w.Width || got.Pos.Y < 0 || got.Pos.Y > w.Height {
		t.Errorf("position %v escaped world bounds", got.Pos)
	}
	if got.Age != 0.5 {
		t.Errorf("Age = %v, want 0.5", got.Age)
	}
}

func TestFullForwardPlusTurnDoesNotCollapseToTinyOrbit(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(500, 500, true)
	terrain := plainsTerrain(500, 500)
	arena := entity.NewArena(1)
	start := world.Vec2{X: 250, Y: 250}
	arena.Spawn(testEntity(start))

	// Displacement from the start oscillates as the entity circles, so
	// measure the orbit's reach rather than where the final tick lands.
	motors := []neural.MotorOutputs{{Forward: 1, Turn: 1}}
	dt := cfg.Derived.DT32
	var maxDisplacement float32
	for i := 0; i < 240; i++ {
		ApplyMotorOutputs(cfg, arena, motors, terrain, dt)
		Integrate(arena, w, dt)
		e, _ := arena.GetByIndex(0)
		if d := w.Distance(start, e.Pos); d > maxDisplacement {
			maxDisplacement = d
		}
	}

	if maxDisplacement <= 20 {
		t.Errorf("entity stayed in a tight spin orbit (max displacement=%v)", maxDisplacement)
	}
}

func TestCollisionPushesSmallerEntityMore(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(300, 300, false)
	arena := entity.NewArena(2)

	small := testEntity(world.Vec2{X: 100, Y: 100})
	small.Radius = 6
	large := testEntity(world.Vec2{X: 110, Y: 100})
	large.Radius = 14

	smallID := arena.Spawn(small)
	largeID := arena.Spawn(large)
	smallBefore, _ := arena.Get(smallID)
	largeBefore, _ := arena.Get(largeID)
	smallPos := smallBefore.Pos
	largePos := largeBefore.Pos

	grid := NewGrid(300, 300, 64)
	grid.Rebuild(arena)
	var scratch CollisionScratch
	ResolveCollisions(cfg, arena, grid, w, &scratch)

	smallAfter, _ := arena.Get(smallID)
	largeAfter, _ := arena.Get(largeID)
	smallMove := w.Distance(smallPos, smallAfter.Pos)
	largeMove := w.Distance(largePos, largeAfter.Pos)

	if smallMove <= largeMove {
		t.Errorf("small moved %v, large moved %v; want small > large", smallMove, largeMove)
	}
}

func TestWaterTerrainSlowsDriveTarget(t *testing.T) {
	cfg := defaultTestConfig(t)
	plains := plainsTerrain(200, 200)
	water := GenerateTerrain(200, 200, 200, 7)
	for i := range water.Cells {
		water.Cells[i] = TerrainWater
	}

	fast := entity.NewArena(1)
	fast.Spawn(testEntity(world.Vec2{X: 100, Y: 100}))
	slow := entity.NewArena(1)
	slow.Spawn(testEntity(world.Vec2{X: 100, Y: 100}))

	motors := []neural.MotorOutputs{{Forward: 1}}
	dt := cfg.Derived.DT32
	for i := 0; i < 60; i++ {
		ApplyMotorOutputs(cfg, fast, motors, plains, dt)
		ApplyMotorOutputs(cfg, slow, motors, water, dt)
	}

	fe, _ := fast.GetByIndex(0)
	se, _ := slow.GetByIndex(0)
	if se.Vel.Length() >= fe.Vel.Length() {
		t.Errorf("water speed %v not below plains speed %v", se.Vel.Length(), fe.Vel.Length())
	}
}
