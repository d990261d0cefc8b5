package systems

import (
	"math"
	"testing"

	"primordium/entity"
	"primordium/world"
)

func TestConsumeFoodPrefersEatWhenBothIntentsHigh(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(200, 200, false)
	arena := entity.NewArena(1)
	e := testEntity(world.Vec2{X: 50, Y: 50})
	e.Energy = 80
	arena.Spawn(e)

	food := []FoodItem{{Pos: world.Vec2{X: 52, Y: 50}, Energy: float32(cfg.Food.Energy)}}
	eaten, picked := ConsumeFood(cfg, arena, &food, w, []float32{1}, []float32{1})

	if len(food) != 0 || eaten != 1 || picked != 0 {
		t.Fatalf("food=%d eaten=%d picked=%d, want 0/1/0", len(food), eaten, picked)
	}
	got, _ := arena.GetByIndex(0)
	if got.Energy <= 80 {
		t.Errorf("Energy = %v, want > 80", got.Energy)
	}
	if got.CarriedEnergy != 0 {
		t.Errorf("CarriedEnergy = %v, want 0", got.CarriedEnergy)
	}
}

func TestConsumeFoodPickupStoresEnergy(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(200, 200, false)
	arena := entity.NewArena(1)
	arena.Spawn(testEntity(world.Vec2{X: 70, Y: 70}))

	food := []FoodItem{{Pos: world.Vec2{X: 72, Y: 70}, Energy: float32(cfg.Food.Energy)}}
	eaten, picked := ConsumeFood(cfg, arena, &food, w, []float32{0}, []float32{1})

	if len(food) != 0 || eaten != 0 || picked != 1 {
		t.Fatalf("food=%d eaten=%d picked=%d, want 0/0/1", len(food), eaten, picked)
	}
	got, _ := arena.GetByIndex(0)
	if math.Abs(float64(got.CarriedEnergy)-cfg.Food.Energy) > 1e-5 {
		t.Errorf("CarriedEnergy = %v, want %v", got.CarriedEnergy, cfg.Food.Energy)
	}
}

func TestConsumeFoodIgnoresOutOfRangeAndDead(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(200, 200, false)
	arena := entity.NewArena(2)
	arena.Spawn(testEntity(world.Vec2{X: 10, Y: 10}))
	deadID := arena.Spawn(testEntity(world.Vec2{X: 101, Y: 100}))
	dead, _ := arena.Get(deadID)
	dead.Alive = false

	food := []FoodItem{{Pos: world.Vec2{X: 100, Y: 100}, Energy: 40}}
	eaten, picked := ConsumeFood(cfg, arena, &food, w, []float32{1, 1}, []float32{1, 1})

	if len(food) != 1 || eaten != 0 || picked != 0 {
		t.Errorf("food=%d eaten=%d picked=%d, want 1/0/0", len(food), eaten, picked)
	}
}

func TestDigestCarriedEnergyRequiresEatIntent(t *testing.T) {
	cfg := defaultTestConfig(t)
	arena := entity.NewArena(1)
	e := testEntity(world.Vec2{X: 40, Y: 40})
	e.Energy = 30
	e.CarriedEnergy = 20
	id := arena.Spawn(e)

	DigestCarriedEnergy(cfg, arena, []float32{0}, 0.5)
	got, _ := arena.Get(id)
	if got.Energy != 30 || got.CarriedEnergy != 20 {
		t.Fatalf("digest without intent changed energy: %v/%v", got.Energy, got.CarriedEnergy)
	}

	DigestCarriedEnergy(cfg, arena, []float32{1}, 0.5)
	got, _ = arena.Get(id)
	if got.Energy <= 30 || got.CarriedEnergy >= 20 {
		t.Errorf("digest with intent did nothing: %v/%v", got.Energy, got.CarriedEnergy)
	}
}

func TestDeductMetabolismScalesWithSpeedAndRate(t *testing.T) {
	cfg := defaultTestConfig(t)

	idle := entity.NewArena(1)
	idle.Spawn(testEntity(world.Vec2{X: 10, Y: 10}))

	moving := entity.NewArena(1)
	m := testEntity(world.Vec2{X: 10, Y: 10})
	m.Vel = world.Vec2{X: float32(cfg.Entity.MaxSpeed), Y: 0}
	moving.Spawn(m)

	DeductMetabolism(cfg, idle, 1.0)
	DeductMetabolism(cfg, moving, 1.0)

	ie, _ := idle.GetByIndex(0)
	me, _ := moving.GetByIndex(0)
	if me.Energy >= ie.Energy {
		t.Errorf("moving energy %v not below idle energy %v", me.Energy, ie.Energy)
	}
}

func TestKillStarvedMarksButDoesNotFree(t *testing.T) {
	cfg := defaultTestConfig(t)
	arena := entity.NewArena(2)
	starvedID := arena.Spawn(testEntity(world.Vec2{X: 1, Y: 1}))
	oldID := arena.Spawn(testEntity(world.Vec2{X: 2, Y: 2}))

	starved, _ := arena.Get(starvedID)
	starved.Energy = 0
	old, _ := arena.Get(oldID)
	old.Age = float32(cfg.Entity.DeathAge) + 1

	KillStarved(cfg, arena)

	starved, _ = arena.Get(starvedID)
	old, _ = arena.Get(oldID)
	if starved.Alive || old.Alive {
		t.Error("starved/aged entities should be marked dead")
	}
	if arena.Count() != 2 {
		t.Errorf("Count = %d, want 2 (slots reclaimed only by sweep)", arena.Count())
	}
}
