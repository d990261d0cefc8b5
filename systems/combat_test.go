package systems

import (
	"testing"

	"primordium/entity"
	"primordium/world"
)

func TestResolveCombatRequiresIntentThreshold(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(200, 200, true)
	arena := entity.NewArena(2)
	arena.Spawn(testEntity(world.Vec2{X: 100, Y: 100}))
	targetID := arena.Spawn(testEntity(world.Vec2{X: 108, Y: 100}))

	grid := NewGrid(200, 200, 64)
	grid.Rebuild(arena)

	var meat []MeatItem
	var scratch CombatScratch
	intents := []float32{float32(cfg.Intents.Attack) - 0.01, 0}
	report := ResolveCombat(cfg, arena, intents, grid, w, &meat, &scratch)

	if report.Attacks != 0 {
		t.Errorf("Attacks = %d, want 0", report.Attacks)
	}
	target, _ := arena.Get(targetID)
	if target.Health != 100 {
		t.Errorf("target health = %v, want untouched 100", target.Health)
	}
}

func TestResolveCombatDamagesNearestAndChargesAttacker(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(200, 200, true)
	arena := entity.NewArena(3)
	attackerID := arena.Spawn(testEntity(world.Vec2{X: 100, Y: 100}))
	nearID := arena.Spawn(testEntity(world.Vec2{X: 110, Y: 100}))
	farID := arena.Spawn(testEntity(world.Vec2{X: 115, Y: 100}))

	grid := NewGrid(200, 200, 64)
	grid.Rebuild(arena)

	var meat []MeatItem
	var scratch CombatScratch
	intents := []float32{1, 0, 0}
	report := ResolveCombat(cfg, arena, intents, grid, w, &meat, &scratch)

	if report.Attacks != 1 {
		t.Fatalf("Attacks = %d, want 1", report.Attacks)
	}
	near, _ := arena.Get(nearID)
	far, _ := arena.Get(farID)
	if near.Health >= 100 {
		t.Error("nearest target took no damage")
	}
	if far.Health != 100 {
		t.Error("farther entity was damaged")
	}
	attacker, _ := arena.Get(attackerID)
	if attacker.Energy >= 100 {
		t.Error("attacker paid no energy cost")
	}
}

func TestCombatKillDropsMeatAndMarksDead(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(200, 200, true)
	arena := entity.NewArena(2)
	arena.Spawn(testEntity(world.Vec2{X: 100, Y: 100}))
	victimID := arena.Spawn(testEntity(world.Vec2{X: 108, Y: 100}))

	victim, _ := arena.Get(victimID)
	victim.Health = 1

	grid := NewGrid(200, 200, 64)
	grid.Rebuild(arena)

	var meat []MeatItem
	var scratch CombatScratch
	report := ResolveCombat(cfg, arena, []float32{1, 0}, grid, w, &meat, &scratch)

	if report.Kills != 1 {
		t.Fatalf("Kills = %d, want 1", report.Kills)
	}
	victim, _ = arena.Get(victimID)
	if victim.Alive {
		t.Error("victim still alive after lethal hit")
	}
	if len(meat) != 1 {
		t.Fatalf("meat count = %d, want 1", len(meat))
	}
	if meat[0].Energy != float32(cfg.Combat.MeatEnergy) {
		t.Errorf("meat energy = %v, want %v", meat[0].Energy, cfg.Combat.MeatEnergy)
	}
}

func TestConsumeMeatHonorsIntents(t *testing.T) {
	cfg := defaultTestConfig(t)
	w := world.New(200, 200, true)
	arena := entity.NewArena(1)
	e := testEntity(world.Vec2{X: 50, Y: 50})
	e.Energy = 50
	arena.Spawn(e)

	meat := []MeatItem{{Pos: world.Vec2{X: 52, Y: 50}, Energy: 60, DecayTimer: 10}}
	consumed := ConsumeMeat(cfg, arena, &meat, w, []float32{1}, []float32{0})

	if consumed != 1 || len(meat) != 0 {
		t.Fatalf("consumed=%d remaining=%d, want 1/0", consumed, len(meat))
	}
	got, _ := arena.GetByIndex(0)
	if got.Energy != 110 {
		t.Errorf("Energy = %v, want 110", got.Energy)
	}
}

func TestDecayMeatRemovesExpired(t *testing.T) {
	meat := []MeatItem{
		{DecayTimer: 0.4},
		{DecayTimer: 5},
	}
	DecayMeat(&meat, 0.5)

	if len(meat) != 1 {
		t.Fatalf("meat count = %d, want 1", len(meat))
	}
	if meat[0].DecayTimer != 4.5 {
		t.Errorf("DecayTimer = %v, want 4.5", meat[0].DecayTimer)
	}
}
