package systems

import (
	"testing"

	"primordium/entity"
	"primordium/world"
)

func TestGenerateTerrainIsDeterministicPerSeed(t *testing.T) {
	a := GenerateTerrain(500, 500, 50, 11)
	b := GenerateTerrain(500, 500, 50, 11)
	c := GenerateTerrain(500, 500, 50, 12)

	if len(a.Cells) != len(b.Cells) {
		t.Fatalf("cell counts differ: %d vs %d", len(a.Cells), len(b.Cells))
	}
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			t.Fatalf("same seed diverged at cell %d", i)
		}
	}

	same := true
	for i := range a.Cells {
		if a.Cells[i] != c.Cells[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical terrain")
	}
}

func TestSeasonCycleAdvances(t *testing.T) {
	cfg := defaultTestConfig(t)
	env := NewEnvironment(cfg, 7)
	w := world.New(cfg.Derived.WorldW32, cfg.Derived.WorldH32, true)
	rng := newRNG(1)

	if env.Season != Spring {
		t.Fatalf("initial season = %v, want spring", env.Season)
	}
	env.Tick(cfg, w, rng, float32(cfg.Environment.SeasonLength)+1)
	if env.Season != Summer {
		t.Errorf("season after one cycle = %v, want summer", env.Season)
	}
}

func TestDayBrightnessPeaksAtNoon(t *testing.T) {
	cfg := defaultTestConfig(t)
	env := NewEnvironment(cfg, 7)

	env.TimeOfDay = 0.5
	noon := env.DayBrightness()
	env.TimeOfDay = 0.0
	midnight := env.DayBrightness()

	if noon <= midnight {
		t.Errorf("noon brightness %v not above midnight %v", noon, midnight)
	}
	if midnight < 0.3-1e-4 {
		t.Errorf("midnight brightness %v below floor 0.3", midnight)
	}
}

func TestFoodRateZeroAtNight(t *testing.T) {
	cfg := defaultTestConfig(t)
	env := NewEnvironment(cfg, 7)

	env.TimeOfDay = 0.0
	if mult := env.FoodRateMultiplier(); mult != 0 {
		t.Errorf("night food rate = %v, want 0", mult)
	}
	env.TimeOfDay = 0.5
	if mult := env.FoodRateMultiplier(); mult <= 0 {
		t.Errorf("noon food rate = %v, want > 0", mult)
	}
}

func TestToxicTerrainDrainsEnergyAndHealth(t *testing.T) {
	cfg := defaultTestConfig(t)
	env := NewEnvironment(cfg, 7)
	for i := range env.Terrain.Cells {
		env.Terrain.Cells[i] = TerrainToxic
	}

	arena := entity.NewArena(1)
	arena.Spawn(testEntity(world.Vec2{X: 100, Y: 100}))

	env.ApplyTerrainEffects(arena, 1.0)

	e, _ := arena.GetByIndex(0)
	if e.Energy >= 100 || e.Health >= 100 {
		t.Errorf("toxic terrain did not drain: energy=%v health=%v", e.Energy, e.Health)
	}
}

func TestStormDamagesEntitiesInsideRadius(t *testing.T) {
	cfg := defaultTestConfig(t)
	env := NewEnvironment(cfg, 7)
	for i := range env.Terrain.Cells {
		env.Terrain.Cells[i] = TerrainPlains
	}
	w := world.New(cfg.Derived.WorldW32, cfg.Derived.WorldH32, true)

	env.Storm = &Storm{
		Center: world.Vec2{X: 500, Y: 500},
		Radius: float32(cfg.Environment.StormRadius),
		Timer:  10,
	}

	arena := entity.NewArena(2)
	insideID := arena.Spawn(testEntity(world.Vec2{X: 510, Y: 500}))
	outsideID := arena.Spawn(testEntity(world.Vec2{X: 1500, Y: 1500}))

	env.ApplyStormEffects(cfg, arena, w, 1.0)

	inside, _ := arena.Get(insideID)
	outside, _ := arena.Get(outsideID)
	if inside.Energy >= 100 {
		t.Error("entity inside storm took no damage")
	}
	if outside.Energy != 100 {
		t.Error("entity outside storm was damaged")
	}
	if inside.Vel.LengthSq() == 0 {
		t.Error("entity inside storm was not pushed")
	}
}

func TestForestSheltersFromStorm(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(cfg.Derived.WorldW32, cfg.Derived.WorldH32, true)

	damageAfterStorm := func(terrain Terrain) float32 {
		env := NewEnvironment(cfg, 7)
		for i := range env.Terrain.Cells {
			env.Terrain.Cells[i] = terrain
		}
		env.Storm = &Storm{
			Center: world.Vec2{X: 500, Y: 500},
			Radius: float32(cfg.Environment.StormRadius),
			Timer:  10,
		}
		arena := entity.NewArena(1)
		arena.Spawn(testEntity(world.Vec2{X: 505, Y: 500}))
		env.ApplyStormEffects(cfg, arena, w, 1.0)
		e, _ := arena.GetByIndex(0)
		return 100 - e.Energy
	}

	open := damageAfterStorm(TerrainPlains)
	sheltered := damageAfterStorm(TerrainForest)
	if sheltered >= open {
		t.Errorf("forest damage %v not below open damage %v", sheltered, open)
	}
}
