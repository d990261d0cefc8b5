package systems

import (
	"primordium/config"
	"primordium/entity"
	"primordium/world"
)

// MeatItem is dropped where an entity dies in combat and decays away.
type MeatItem struct {
	Pos        world.Vec2
	Energy     float32
	DecayTimer float32
}

// CombatReport summarizes one combat pass for telemetry.
type CombatReport struct {
	Attacks int
	Kills   int
}

type pendingHit struct {
	target int32
	damage float32
}

// CombatScratch carries reusable buffers for combat resolution.
type CombatScratch struct {
	hits      []pendingHit
	neighbors []int32
}

// ResolveCombat lets every entity with attack intent at or above the
// threshold strike its nearest alive neighbor in range. Damage scales
// with attacker size; victims losing all health or energy are marked
// dead and drop meat. Attackers pay the attack cost whether or not
// they land a hit. Dead entities are never freed here, only flagged.
func ResolveCombat(cfg *config.Config, arena *entity.Arena, attackIntents []float32, grid *Grid, w *world.World, meat *[]MeatItem, scratch *CombatScratch) CombatReport {
	threshold := float32(cfg.Intents.Attack)
	baseRadius := float32(cfg.Entity.BaseRadius)
	attackDamage := float32(cfg.Combat.AttackDamage)
	attackRange := float32(cfg.Combat.AttackRange)
	attackCost := float32(cfg.Combat.AttackCost)

	scratch.hits = scratch.hits[:0]
	var report CombatReport

	arena.IterAlive(func(idx int, e *entity.Entity) {
		if idx >= len(attackIntents) || attackIntents[idx] < threshold {
			return
		}

		scratch.neighbors = grid.QueryRadiusExcludingInto(
			scratch.neighbors[:0], e.Pos, attackRange+e.Radius, int32(idx), w, arena)

		target := int32(-1)
		bestSq := float32(attackRange+e.Radius) * (attackRange + e.Radius)
		for _, nIdx := range scratch.neighbors {
			n, ok := arena.GetByIndex(int(nIdx))
			if !ok || !n.Alive {
				continue
			}
			if d := w.DistanceSq(e.Pos, n.Pos); d <= bestSq {
				bestSq = d
				target = nIdx
			}
		}
		if target >= 0 {
			scratch.hits = append(scratch.hits, pendingHit{
				target: target,
				damage: attackDamage * (e.Radius / baseRadius),
			})
		}
	})

	for _, hit := range scratch.hits {
		target, ok := arena.GetByIndex(int(hit.target))
		if !ok {
			continue
		}
		target.Health -= hit.damage
		target.Energy -= hit.damage * 0.5
		report.Attacks++

		if target.Alive && (target.Health <= 0 || target.Energy <= 0) {
			target.Alive = false
			report.Kills++
			*meat = append(*meat, MeatItem{
				Pos:        target.Pos,
				Energy:     float32(cfg.Combat.MeatEnergy),
				DecayTimer: float32(cfg.Combat.MeatDecayTime),
			})
		}
	}

	arena.IterAlive(func(idx int, e *entity.Entity) {
		if idx < len(attackIntents) && attackIntents[idx] >= threshold {
			e.Energy -= attackCost
		}
	})

	return report
}

// ConsumeMeat lets the closest entity with eat or pickup intent claim
// each meat item in range. Eating beats carrying when both intents are
// high.
func ConsumeMeat(cfg *config.Config, arena *entity.Arena, meat *[]MeatItem, w *world.World, eatIntents, pickupIntents []float32) int {
	pickupRadius := float32(cfg.Entity.BaseRadius) * 2.5
	pickupSq := pickupRadius * pickupRadius
	maxEnergy := float32(cfg.Entity.MaxEnergy)
	maxCarried := float32(cfg.Entity.MaxCarriedEnergy)
	eatThreshold := float32(cfg.Intents.Eat)
	pickupThreshold := float32(cfg.Intents.Pickup)

	consumed := 0
	kept := (*meat)[:0]
	for _, item := range *meat {
		idx, ok := closestAliveSlot(arena, w, item.Pos, pickupSq)
		if !ok {
			kept = append(kept, item)
			continue
		}
		e, _ := arena.GetByIndex(idx)

		switch {
		case intentAt(eatIntents, idx) >= eatThreshold:
			e.Energy = minF(e.Energy+item.Energy, maxEnergy)
			consumed++
		case intentAt(pickupIntents, idx) >= pickupThreshold:
			e.CarriedEnergy = minF(e.CarriedEnergy+item.Energy, maxCarried)
			consumed++
		default:
			kept = append(kept, item)
		}
	}
	*meat = kept
	return consumed
}

// DecayMeat ages meat and drops expired items.
func DecayMeat(meat *[]MeatItem, dt float32) {
	kept := (*meat)[:0]
	for _, item := range *meat {
		item.DecayTimer -= dt
		if item.DecayTimer > 0 {
			kept = append(kept, item)
		}
	}
	*meat = kept
}

func closestAliveSlot(arena *entity.Arena, w *world.World, pos world.Vec2, maxDistSq float32) (int, bool) {
	best := -1
	bestSq := maxDistSq
	arena.IterAlive(func(idx int, e *entity.Entity) {
		if d := w.DistanceSq(e.Pos, pos); d < bestSq {
			bestSq = d
			best = idx
		}
	})
	return best, best >= 0
}

func intentAt(intents []float32, idx int) float32 {
	if idx < 0 || idx >= len(intents) {
		return 0
	}
	return intents[idx]
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
