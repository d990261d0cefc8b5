package systems

import (
	"math"

	"golang.org/x/exp/rand"

	"primordium/config"
	"primordium/entity"
	"primordium/neural"
	"primordium/world"
)

// NewEntityFromGenome decodes a genome into a freshly born entity with
// a random heading. Larger bodies get more health.
func NewEntityFromGenome(cfg *config.Config, g *neural.Genome, pos world.Vec2, tick uint64, rng *rand.Rand) entity.Entity {
	size := g.BodySize()
	maxHealth := 80.0 + size*40.0
	r, gr, b := g.BodyColor()

	return entity.Entity{
		Pos:             pos,
		PrevPos:         pos,
		Heading:         rng.Float32() * 2 * math.Pi,
		Radius:          float32(cfg.Entity.BaseRadius) * size,
		ColorR:          r,
		ColorG:          gr,
		ColorB:          b,
		Energy:          float32(cfg.Entity.InitialEnergy),
		Health:          maxHealth,
		MaxHealth:       maxHealth,
		Alive:           true,
		SpeedMult:       g.MaxSpeed(),
		SensorRangeMult: g.SensorRange(),
		MetabolicRate:   g.MetabolicRate(),
		TickBorn:        tick,
	}
}

type birth struct {
	parentIdx  int
	childPos   world.Vec2
	genome     *neural.Genome
	parentID   entity.ID
	childDepth uint32
}

// CheckAndSpawn spawns offspring for every entity holding the
// reproduce intent with enough energy, up to the population cap. The
// child's genome is a mutated copy of the parent's; the arena slot,
// brain slot, and genome slot are always filled together so the three
// tables stay in lockstep. Returns the number of births.
func CheckAndSpawn(
	cfg *config.Config,
	arena *entity.Arena,
	brains *neural.BrainStorage,
	genomes *[]*neural.Genome,
	w *world.World,
	rng *rand.Rand,
	tick uint64,
	reproduceIntents []float32,
) int {
	maxEntities := cfg.Simulation.MaxEntities
	if arena.Count() >= maxEntities {
		return 0
	}

	intentThreshold := float32(cfg.Intents.Reproduce)
	energyThreshold := float32(cfg.Reproduction.EnergyThreshold)

	var births []birth
	arena.IterAlive(func(idx int, e *entity.Entity) {
		if intentAt(reproduceIntents, idx) < intentThreshold {
			return
		}
		if e.Energy < energyThreshold {
			return
		}
		if arena.Count()+len(births) >= maxEntities {
			return
		}
		if idx >= len(*genomes) || (*genomes)[idx] == nil {
			return
		}

		child := (*genomes)[idx].Mutate(rng)
		offsetAngle := rng.Float32() * 2 * math.Pi
		childPos := w.Wrap(e.Pos.Add(world.FromAngle(offsetAngle).Scale(e.Radius * 3)))

		births = append(births, birth{
			parentIdx:  idx,
			childPos:   childPos,
			genome:     child,
			parentID:   entity.ID{Index: uint32(idx), Generation: arena.Generation(idx)},
			childDepth: e.GenerationDepth + 1,
		})
	})

	for _, b := range births {
		if parent, ok := arena.GetByIndex(b.parentIdx); ok {
			parent.Energy -= float32(cfg.Reproduction.Cost)
			parent.OffspringCount++
		}

		child := NewEntityFromGenome(cfg, b.genome, b.childPos, tick, rng)
		child.Energy = float32(cfg.Entity.InitialEnergy * cfg.Reproduction.OffspringEnergyFraction)
		child.GenerationDepth = b.childDepth
		child.ParentID = b.parentID
		child.HasParent = true

		id := arena.Spawn(child)
		slot := int(id.Index)
		brains.InitFromGenome(slot, b.genome)
		if slot >= len(*genomes) {
			grown := make([]*neural.Genome, slot+1)
			copy(grown, *genomes)
			*genomes = grown
		}
		(*genomes)[slot] = b.genome
	}

	return len(births)
}
