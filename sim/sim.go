// Package sim owns the simulation state and the fixed-timestep tick
// loop that drives every system in a deterministic order.
package sim

import (
	"math"

	"golang.org/x/exp/rand"

	"primordium/config"
	"primordium/entity"
	"primordium/neural"
	"primordium/systems"
	"primordium/world"
)

// TickReport summarizes one tick for logging and telemetry.
type TickReport struct {
	Births  int
	Deaths  int
	Attacks int
	Kills   int
	Meals   int
}

// State is the complete simulation: the entity arena, the parallel
// brain and genome tables, the world, and every auxiliary field. All
// randomness flows through the single seeded rng, so two States built
// with the same config and seed stay bit-identical tick for tick.
type State struct {
	Cfg   *config.Config
	World *world.World

	Arena   *entity.Arena
	Brains  *neural.BrainStorage
	Genomes []*neural.Genome

	Grid        *systems.Grid
	Food        []systems.FoodItem
	FoodSpawner systems.FoodSpawner
	Meat        []systems.MeatItem
	Signals     []systems.SignalState
	Pheromones  *systems.PheromoneGrid
	Env         *systems.Environment

	TickCount uint64

	src *rand.PCGSource
	rng *rand.Rand

	// Scratch buffers reused across ticks.
	motors           []neural.MotorOutputs
	attackIntents    []float32
	eatIntents       []float32
	pickupIntents    []float32
	shareIntents     []float32
	reproduceIntents []float32
	signalColors     [][3]float32
	foodPositions    []world.Vec2
	meatPositions    []world.Vec2
	shareNeighbors   []int32
	sensorScratch    systems.SensorScratch
	collisionScratch systems.CollisionScratch
	combatScratch    systems.CombatScratch

	// Population aggregates refreshed each tick; the species estimate
	// is recomputed every few ticks since it is comparatively costly.
	AvgEnergy       float32
	AvgAge          float32
	AvgSize         float32
	AvgGeneration   float32
	SpeciesEstimate int
	speciesTick     uint64
}

// species estimate: recompute cadence and genome distance threshold
const (
	speciesRecalcTicks = 15
	speciesThreshold   = 0.17
)

// New builds a simulation with entityCount random entities and the
// initial food supply, all drawn from a PRNG seeded with seed.
func New(cfg *config.Config, entityCount int, seed uint64) *State {
	src := &rand.PCGSource{}
	src.Seed(seed)
	rng := rand.New(src)

	w := world.New(cfg.Derived.WorldW32, cfg.Derived.WorldH32, cfg.World.Toroidal)
	maxEntities := cfg.Simulation.MaxEntities

	s := &State{
		Cfg:        cfg,
		World:      w,
		Arena:      entity.NewArena(maxEntities),
		Brains:     neural.NewBrainStorage(maxEntities),
		Genomes:    make([]*neural.Genome, maxEntities),
		Grid:       systems.NewGrid(w.Width, w.Height, float32(cfg.World.GridCellSize)),
		Pheromones: systems.NewPheromoneGrid(w.Width, w.Height, 32),
		Env:        systems.NewEnvironment(cfg, seed),
		Signals:    make([]systems.SignalState, maxEntities),
		src:        src,
		rng:        rng,
	}

	for i := 0; i < entityCount; i++ {
		pos := world.Vec2{
			X: 50 + rng.Float32()*(w.Width-100),
			Y: 50 + rng.Float32()*(w.Height-100),
		}
		genome := neural.RandomGenome(rng)
		e := systems.NewEntityFromGenome(cfg, genome, pos, 0, rng)
		s.spawn(e, genome)
	}

	s.Food = make([]systems.FoodItem, 0, cfg.Food.InitialCount*2)
	for i := 0; i < cfg.Food.InitialCount; i++ {
		s.Food = append(s.Food, systems.FoodItem{
			Pos: world.Vec2{
				X: rng.Float32() * w.Width,
				Y: rng.Float32() * w.Height,
			},
			Energy: float32(cfg.Food.Energy),
		})
	}

	s.refreshPopulationCache(true)
	return s
}

// spawn places an entity, its brain, and its genome in the same slot.
// This is the only way entities enter the simulation: the three tables
// never go out of lockstep.
func (s *State) spawn(e entity.Entity, g *neural.Genome) entity.ID {
	id := s.Arena.Spawn(e)
	slot := int(id.Index)
	s.Brains.InitFromGenome(slot, g)
	if slot >= len(s.Genomes) {
		grown := make([]*neural.Genome, slot+1)
		copy(grown, s.Genomes)
		s.Genomes = grown
	}
	s.Genomes[slot] = g
	return id
}

// Tick advances the simulation by one fixed timestep.
func (s *State) Tick() TickReport {
	cfg := s.Cfg
	dt := cfg.Derived.DT32
	var report TickReport

	// 1. Index positions so sensing sees a fresh grid.
	s.Grid.Rebuild(s.Arena)

	// 2-3. Sense and think.
	s.refreshPositionCaches()
	sensorInputs := systems.ComputeAllSensors(cfg, s.Arena,
		s.foodPositions, s.meatPositions, s.Signals, s.Pheromones,
		s.Grid, s.World, s.Env, &s.sensorScratch)
	s.Brains.StepAll(sensorInputs, dt)

	// 4. Read out all motor layers and split them into intent channels.
	s.extractMotors()

	// 5. Move.
	systems.ApplyMotorOutputs(cfg, s.Arena, s.motors, s.Env.Terrain, dt)
	systems.Integrate(s.Arena, s.World, dt)
	s.Grid.Rebuild(s.Arena)
	systems.ResolveCollisions(cfg, s.Arena, s.Grid, s.World, &s.collisionScratch)

	// 6. Fight and scavenge.
	combatReport := systems.ResolveCombat(cfg, s.Arena, s.attackIntents,
		s.Grid, s.World, &s.Meat, &s.combatScratch)
	report.Attacks = combatReport.Attacks
	report.Kills = combatReport.Kills
	report.Meals += systems.ConsumeMeat(cfg, s.Arena, &s.Meat, s.World,
		s.eatIntents, s.pickupIntents)
	systems.DecayMeat(&s.Meat, dt)

	// 7. Metabolize and feed.
	systems.DeductMetabolism(cfg, s.Arena, dt)
	systems.DigestCarriedEnergy(cfg, s.Arena, s.eatIntents, dt)
	eaten, picked := systems.ConsumeFood(cfg, s.Arena, &s.Food, s.World,
		s.eatIntents, s.pickupIntents)
	report.Meals += eaten + picked
	systems.KillStarved(cfg, s.Arena)

	// 8. Altruism.
	s.shareFood()

	// 9. Broadcast signals and lay trails.
	systems.UpdateSignals(s.Arena, s.signalColors, &s.Signals, s.Pheromones, dt)

	// 10. Reproduce.
	report.Births = systems.CheckAndSpawn(cfg, s.Arena, s.Brains, &s.Genomes,
		s.World, s.rng, s.TickCount, s.reproduceIntents)

	// 11. Sweep: reclaim dead slots and retire their brain and genome
	// in the same step, so a freed slot never keeps an active brain.
	dead := s.Arena.SweepDead()
	for _, d := range dead {
		s.Brains.Deactivate(d.Index)
		if d.Index < len(s.Genomes) {
			s.Genomes[d.Index] = nil
		}
	}
	report.Deaths = len(dead)

	// 12. Environment pressure, then cull anything it drained.
	s.Env.ApplyTerrainEffects(s.Arena, dt)
	s.Env.ApplyStormEffects(cfg, s.Arena, s.World, dt)
	s.Env.Tick(cfg, s.World, s.rng, dt)
	systems.KillStarved(cfg, s.Arena)

	// 13. Regrow food, biased by terrain fertility.
	s.respawnFood(dt)

	s.TickCount++
	s.refreshPopulationCache(false)
	return report
}

func (s *State) extractMotors() {
	capacity := s.Arena.Capacity()

	s.motors = s.motors[:0]
	for slot := 0; slot < capacity; slot++ {
		if s.Brains.Active(slot) {
			s.motors = append(s.motors, s.Brains.MotorOutputs(slot))
		} else {
			s.motors = append(s.motors, neural.MotorOutputs{})
		}
	}

	s.attackIntents = s.attackIntents[:0]
	s.eatIntents = s.eatIntents[:0]
	s.pickupIntents = s.pickupIntents[:0]
	s.shareIntents = s.shareIntents[:0]
	s.reproduceIntents = s.reproduceIntents[:0]
	s.signalColors = s.signalColors[:0]
	for i := range s.motors {
		m := &s.motors[i]
		s.attackIntents = append(s.attackIntents, m.Attack)
		s.eatIntents = append(s.eatIntents, m.Eat)
		s.pickupIntents = append(s.pickupIntents, m.Pickup)
		s.shareIntents = append(s.shareIntents, m.Share)
		s.reproduceIntents = append(s.reproduceIntents, m.Reproduce)
		s.signalColors = append(s.signalColors, [3]float32{m.SignalR, m.SignalG, m.SignalB})
	}
}

func (s *State) refreshPositionCaches() {
	s.foodPositions = s.foodPositions[:0]
	for _, f := range s.Food {
		s.foodPositions = append(s.foodPositions, f.Pos)
	}
	s.meatPositions = s.meatPositions[:0]
	for _, m := range s.Meat {
		s.meatPositions = append(s.meatPositions, m.Pos)
	}
}

// shareFood transfers energy from entities holding the share intent to
// their nearest neighbor, drawing from carried reserves first.
func (s *State) shareFood() {
	cfg := s.Cfg
	shareRange := float32(cfg.Combat.AttackRange) * 2
	shareAmount := float32(cfg.Energy.ShareAmount)
	threshold := float32(cfg.Intents.Share)
	maxEnergy := float32(cfg.Entity.MaxEnergy)

	type transfer struct{ giver, receiver int }
	var transfers []transfer

	s.Arena.IterAlive(func(idx int, e *entity.Entity) {
		if idx >= len(s.shareIntents) || s.shareIntents[idx] < threshold {
			return
		}
		if e.Energy+e.CarriedEnergy < shareAmount*2 {
			return
		}

		s.shareNeighbors = s.Grid.QueryRadiusExcludingInto(
			s.shareNeighbors[:0], e.Pos, shareRange, int32(idx), s.World, s.Arena)

		best := -1
		bestSq := shareRange * shareRange
		for _, nIdx := range s.shareNeighbors {
			n, ok := s.Arena.GetByIndex(int(nIdx))
			if !ok || !n.Alive {
				continue
			}
			if d := s.World.DistanceSq(e.Pos, n.Pos); d <= bestSq {
				bestSq = d
				best = int(nIdx)
			}
		}
		if best >= 0 {
			transfers = append(transfers, transfer{giver: idx, receiver: best})
		}
	})

	for _, tr := range transfers {
		giver, ok := s.Arena.GetByIndex(tr.giver)
		if !ok || !giver.Alive || giver.Energy+giver.CarriedEnergy <= shareAmount*2 {
			continue
		}
		fromCarried := giver.CarriedEnergy
		if fromCarried > shareAmount {
			fromCarried = shareAmount
		}
		giver.CarriedEnergy -= fromCarried
		if remaining := shareAmount - fromCarried; remaining > 0 {
			giver.Energy -= remaining
		}

		if receiver, ok := s.Arena.GetByIndex(tr.receiver); ok && receiver.Alive {
			receiver.Energy += shareAmount
			if receiver.Energy > maxEnergy {
				receiver.Energy = maxEnergy
			}
		}
	}
}

func (s *State) respawnFood(dt float32) {
	cfg := s.Cfg
	maxFood := cfg.Food.InitialCount * 2
	s.FoodSpawner.Accumulator += float32(cfg.Food.RespawnRate) * s.Env.FoodRateMultiplier() * dt

	for s.FoodSpawner.Accumulator >= 1.0 && len(s.Food) < maxFood {
		pos := world.Vec2{
			X: s.rng.Float32() * s.World.Width,
			Y: s.rng.Float32() * s.World.Height,
		}
		if s.rng.Float32() < s.Env.Terrain.At(pos).FoodSpawnMult() {
			s.Food = append(s.Food, systems.FoodItem{
				Pos:    pos,
				Energy: float32(cfg.Food.Energy),
			})
		}
		s.FoodSpawner.Accumulator -= 1.0
	}
}

// SpawnFoodCluster drops count food items in a disc around center.
func (s *State) SpawnFoodCluster(center world.Vec2, count int) {
	for i := 0; i < count; i++ {
		angle := s.rng.Float32() * 2 * math.Pi
		dist := s.rng.Float32() * float32(s.Cfg.Food.ClusterRadius)
		s.Food = append(s.Food, systems.FoodItem{
			Pos:    s.World.Wrap(center.Add(world.FromAngle(angle).Scale(dist))),
			Energy: float32(s.Cfg.Food.Energy),
		})
	}
}

func (s *State) refreshPopulationCache(forceSpecies bool) {
	baseRadius := float32(s.Cfg.Entity.BaseRadius)
	var totalEnergy, totalAge, totalSize, totalGen float32
	count := 0

	s.Arena.IterAlive(func(_ int, e *entity.Entity) {
		totalEnergy += e.Energy
		totalAge += e.Age
		totalSize += e.Radius / baseRadius
		totalGen += float32(e.GenerationDepth)
		count++
	})

	if count > 0 {
		inv := 1.0 / float32(count)
		s.AvgEnergy = totalEnergy * inv
		s.AvgAge = totalAge * inv
		s.AvgSize = totalSize * inv
		s.AvgGeneration = totalGen * inv
	} else {
		s.AvgEnergy = 0
		s.AvgAge = 0
		s.AvgSize = 0
		s.AvgGeneration = 0
		s.SpeciesEstimate = 0
	}

	recalc := forceSpecies ||
		s.TickCount-s.speciesTick >= speciesRecalcTicks ||
		s.SpeciesEstimate == 0
	if recalc {
		s.SpeciesEstimate = s.estimateSpeciesCount()
		s.speciesTick = s.TickCount
	}
}

// estimateSpeciesCount clusters the living population greedily: each
// genome joins the first representative within the distance threshold
// or founds a new cluster.
func (s *State) estimateSpeciesCount() int {
	var representatives [][]float32

	s.Arena.IterAlive(func(idx int, _ *entity.Entity) {
		if idx >= len(s.Genomes) || s.Genomes[idx] == nil {
			return
		}
		genes := s.Genomes[idx].Genes
		for _, rep := range representatives {
			if genomeDistance(rep, genes) < speciesThreshold {
				return
			}
		}
		representatives = append(representatives, genes)
	})

	return len(representatives)
}

// genomeDistance compares two gene arrays by sampled RMS over the
// shared prefix plus a penalty for differing lengths, so structurally
// divergent genomes read as distant even when shared genes agree.
func genomeDistance(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	step := n / 64
	if step < 1 {
		step = 1
	}

	var sumSq float32
	samples := 0
	for i := 0; i < n; i += step {
		d := a[i] - b[i]
		sumSq += d * d
		samples++
	}

	rms := float32(math.Sqrt(float64(sumSq / float32(samples))))
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	lengthDiff := float32(abs(len(a)-len(b))) / float32(longer)

	return rms + 0.25*lengthDiff
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
