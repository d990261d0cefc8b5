package systems

import (
	"primordium/config"
	"primordium/entity"
	"primordium/world"
)

// FoodItem is a plant food pellet in the world.
type FoodItem struct {
	Pos    world.Vec2
	Energy float32
}

// FoodSpawner accumulates fractional spawn credit across ticks so food
// appears at a smooth rate regardless of dt.
type FoodSpawner struct {
	Accumulator float32
}

// DeductMetabolism drains energy from every living entity: a flat idle
// cost plus a movement cost scaled by speed, both scaled by the
// entity's metabolic rate.
func DeductMetabolism(cfg *config.Config, arena *entity.Arena, dt float32) {
	idleCost := float32(cfg.Energy.IdleCost)
	moveCost := float32(cfg.Energy.MoveCost)
	baseMaxSpeed := float32(cfg.Entity.MaxSpeed)

	arena.IterAlive(func(_ int, e *entity.Entity) {
		maxSpeed := baseMaxSpeed * e.SpeedMult
		if maxSpeed < 1 {
			maxSpeed = 1
		}
		speedFrac := e.Vel.Length() / maxSpeed
		cost := (idleCost + moveCost*speedFrac) * e.MetabolicRate
		e.Energy -= cost * dt
	})
}

// DigestCarriedEnergy converts carried reserves into usable energy for
// entities holding the eat intent.
func DigestCarriedEnergy(cfg *config.Config, arena *entity.Arena, eatIntents []float32, dt float32) {
	digestRate := float32(cfg.Energy.DigestRate)
	maxEnergy := float32(cfg.Entity.MaxEnergy)
	threshold := float32(cfg.Intents.Eat)

	arena.IterAlive(func(idx int, e *entity.Entity) {
		if intentAt(eatIntents, idx) < threshold || e.CarriedEnergy <= 0 {
			return
		}
		amount := digestRate * dt
		if amount > e.CarriedEnergy {
			amount = e.CarriedEnergy
		}
		e.CarriedEnergy -= amount
		e.Energy = minF(e.Energy+amount, maxEnergy)
	})
}

// ConsumeFood resolves each food item against the closest living entity
// in pickup range. Eat intent consumes immediately; pickup intent
// stores the energy as carried reserves; eat wins when both are high.
// Returns (eaten, picked) counts.
func ConsumeFood(cfg *config.Config, arena *entity.Arena, food *[]FoodItem, w *world.World, eatIntents, pickupIntents []float32) (int, int) {
	pickupRadius := float32(cfg.Entity.BaseRadius) * 2.0
	pickupSq := pickupRadius * pickupRadius
	maxEnergy := float32(cfg.Entity.MaxEnergy)
	maxCarried := float32(cfg.Entity.MaxCarriedEnergy)
	eatThreshold := float32(cfg.Intents.Eat)
	pickupThreshold := float32(cfg.Intents.Pickup)

	eaten, picked := 0, 0
	kept := (*food)[:0]
	for _, item := range *food {
		idx, ok := closestAliveSlot(arena, w, item.Pos, pickupSq)
		if !ok {
			kept = append(kept, item)
			continue
		}
		e, _ := arena.GetByIndex(idx)

		switch {
		case intentAt(eatIntents, idx) >= eatThreshold:
			e.Energy = minF(e.Energy+item.Energy, maxEnergy)
			eaten++
		case intentAt(pickupIntents, idx) >= pickupThreshold:
			e.CarriedEnergy = minF(e.CarriedEnergy+item.Energy, maxCarried)
			picked++
		default:
			kept = append(kept, item)
		}
	}
	*food = kept
	return eaten, picked
}

// KillStarved marks entities dead when their energy runs out or they
// exceed the death age. Slots are reclaimed later by the sweep.
func KillStarved(cfg *config.Config, arena *entity.Arena) {
	deathAge := float32(cfg.Entity.DeathAge)
	arena.IterAlive(func(_ int, e *entity.Entity) {
		if e.Energy <= 0 || e.Age > deathAge {
			e.Alive = false
		}
	})
}
