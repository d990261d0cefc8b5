package systems

import (
	"primordium/config"
	"primordium/entity"
	"primordium/neural"
	"primordium/world"
)

// Ray sensing geometry. Eight rays over a forward 270 degree arc,
// marched in discrete steps; hit distances are normalized to [0,1].
const (
	numSensorRays = 8
	sensorArc     = 4.712389 // 270 degrees
	rayStepSize   = 4.0
	baseRayLength = 120.0
	foodHitRadius = 8.0
)

type hitKind uint8

const (
	hitNothing hitKind = iota
	hitEntity
	hitFood
	hitMeat
	hitWall
)

// SensorScratch carries reusable buffers for sensor computation.
type SensorScratch struct {
	inputs    [][neural.SensorNeurons]float32
	neighbors []int32
}

// ComputeAllSensors fills the sensor input vector for every occupied
// slot. The 12 components, all in [0,1]:
//
//	0  left-side proximity (rays 0-3, inverted distance)
//	1  right-side proximity (rays 4-7)
//	2  food proximity (closest food ray)
//	3  meat proximity
//	4  entity proximity
//	5-7 nearest neighbor's signal RGB, scaled by its intensity
//	8  pheromone concentration at own position
//	9  own energy, normalized
//	10 own health, normalized
//	11 environment danger: terrain hazard plus darkness
//
// The returned slice is owned by scratch and overwritten next call.
func ComputeAllSensors(
	cfg *config.Config,
	arena *entity.Arena,
	foodPositions, meatPositions []world.Vec2,
	signals []SignalState,
	pheromones *PheromoneGrid,
	grid *Grid,
	w *world.World,
	env *Environment,
	scratch *SensorScratch,
) [][neural.SensorNeurons]float32 {
	capacity := arena.Capacity()
	if cap(scratch.inputs) < capacity {
		scratch.inputs = make([][neural.SensorNeurons]float32, capacity)
	}
	scratch.inputs = scratch.inputs[:capacity]
	for i := range scratch.inputs {
		scratch.inputs[i] = [neural.SensorNeurons]float32{}
	}

	entityHitRadius := float32(cfg.Entity.BaseRadius) * 1.5
	maxEnergy := float32(cfg.Entity.MaxEnergy)
	nightSignal := 1.0 - env.DayBrightness()

	arena.IterOccupied(func(idx int, e *entity.Entity) {
		rayLength := float32(baseRayLength) * e.SensorRangeMult
		stepAngle := float32(sensorArc) / (numSensorRays - 1)
		startAngle := e.Heading - sensorArc*0.5

		var rayDist [numSensorRays]float32
		var rayType [numSensorRays]hitKind
		for i := range rayDist {
			rayDist[i] = 1.0
		}

		for ray := 0; ray < numSensorRays; ray++ {
			dir := world.FromAngle(startAngle + stepAngle*float32(ray))
			dist, kind := raycast(e.Pos, dir, rayLength, int32(idx),
				entityHitRadius, arena, foodPositions, meatPositions, grid, w, scratch)
			rayDist[ray] = dist
			rayType[ray] = kind
		}

		leftProx := 1.0 - (rayDist[0]+rayDist[1]+rayDist[2]+rayDist[3])*0.25
		rightProx := 1.0 - (rayDist[4]+rayDist[5]+rayDist[6]+rayDist[7])*0.25

		var foodProx, meatProx, entityProx float32
		for ray := 0; ray < numSensorRays; ray++ {
			inv := 1.0 - rayDist[ray]
			switch rayType[ray] {
			case hitFood:
				if inv > foodProx {
					foodProx = inv
				}
			case hitMeat:
				if inv > meatProx {
					meatProx = inv
				}
			case hitEntity:
				if inv > entityProx {
					entityProx = inv
				}
			}
		}

		var sigR, sigG, sigB float32
		if nearest, ok := nearestNeighbor(e.Pos, rayLength, int32(idx), arena, grid, w, scratch); ok {
			if int(nearest) < len(signals) {
				s := signals[nearest]
				sigR = clamp01(s.R * s.Intensity)
				sigG = clamp01(s.G * s.Intensity)
				sigB = clamp01(s.B * s.Intensity)
			}
		}

		pheromone := clamp01(pheromones.Sample(e.Pos))
		energyNorm := clamp01(e.Energy / maxEnergy)
		healthNorm := float32(0)
		if e.MaxHealth > 0 {
			healthNorm = clamp01(e.Health / e.MaxHealth)
		}
		envSignal := clamp01(env.Terrain.At(e.Pos).Danger()*0.7 + nightSignal*0.3)

		scratch.inputs[idx] = [neural.SensorNeurons]float32{
			leftProx, rightProx,
			foodProx, meatProx, entityProx,
			sigR, sigG, sigB,
			pheromone,
			energyNorm, healthNorm,
			envSignal,
		}
	})

	return scratch.inputs
}

// raycast marches along a ray and reports the first hit as a normalized
// distance and its kind. No hit reports (1, hitNothing).
func raycast(
	origin, dir world.Vec2,
	maxDist float32,
	excludeIdx int32,
	entityHitRadius float32,
	arena *entity.Arena,
	foodPositions, meatPositions []world.Vec2,
	grid *Grid,
	w *world.World,
	scratch *SensorScratch,
) (float32, hitKind) {
	steps := int(maxDist / rayStepSize)
	foodHitSq := float32(foodHitRadius * foodHitRadius)

	for step := 1; step <= steps; step++ {
		t := float32(step) * rayStepSize
		sample := w.Wrap(origin.Add(dir.Scale(t)))

		scratch.neighbors = grid.QueryRadiusExcludingInto(
			scratch.neighbors[:0], sample, entityHitRadius, excludeIdx, w, arena)
		if len(scratch.neighbors) > 0 {
			return t / maxDist, hitEntity
		}

		for _, fp := range foodPositions {
			if w.DistanceSq(sample, fp) < foodHitSq {
				return t / maxDist, hitFood
			}
		}
		for _, mp := range meatPositions {
			if w.DistanceSq(sample, mp) < foodHitSq {
				return t / maxDist, hitMeat
			}
		}

		if !w.Toroidal {
			raw := origin.Add(dir.Scale(t))
			if raw.X < 0 || raw.X > w.Width || raw.Y < 0 || raw.Y > w.Height {
				return t / maxDist, hitWall
			}
		}
	}

	return 1.0, hitNothing
}

// nearestNeighbor returns the closest alive slot within radius.
func nearestNeighbor(pos world.Vec2, radius float32, exclude int32, arena *entity.Arena, grid *Grid, w *world.World, scratch *SensorScratch) (int32, bool) {
	scratch.neighbors = grid.QueryRadiusExcludingInto(
		scratch.neighbors[:0], pos, radius, exclude, w, arena)

	best := int32(-1)
	bestSq := radius * radius
	for _, idx := range scratch.neighbors {
		e, ok := arena.GetByIndex(int(idx))
		if !ok || !e.Alive {
			continue
		}
		if d := w.DistanceSq(pos, e.Pos); d <= bestSq {
			bestSq = d
			best = idx
		}
	}
	return best, best >= 0
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
