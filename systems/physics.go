package systems

import (
	"math"

	"primordium/config"
	"primordium/entity"
	"primordium/neural"
	"primordium/world"
)

func massFromRadius(radius float32) float32 {
	m := radius * radius
	if m < 1 {
		return 1
	}
	return m
}

// WrapAngle folds an angle into [-pi, pi].
func WrapAngle(angle float32) float32 {
	const tau = 2 * math.Pi
	a := float32(math.Mod(float64(angle)+math.Pi, tau))
	if a < 0 {
		a += tau
	}
	return a - math.Pi
}

// turnAgility falls off linearly with speed so entities at top speed
// cannot pivot in place.
func turnAgility(speed, maxSpeed, atMaxFactor float32) float32 {
	if maxSpeed <= 0.001 {
		return 1.0
	}
	frac := clamp01(speed / maxSpeed)
	return 1.0 - (1.0-atMaxFactor)*frac
}

// ApplyMotorOutputs converts each entity's motor layer into heading and
// velocity changes. Terrain slows the drive target; velocity relaxes
// toward the target under friction.
func ApplyMotorOutputs(cfg *config.Config, arena *entity.Arena, motors []neural.MotorOutputs, terrain *TerrainGrid, dt float32) {
	baseMaxSpeed := float32(cfg.Entity.MaxSpeed)
	turnRate := float32(cfg.Entity.TurnRate)
	atMaxFactor := float32(cfg.Entity.TurnAtMaxSpeedFactor)
	friction := float32(cfg.Entity.Friction)

	frictionStep := friction * dt
	if frictionStep > 1 {
		frictionStep = 1
	}

	arena.IterAlive(func(idx int, e *entity.Entity) {
		if idx >= len(motors) {
			return
		}
		m := motors[idx]

		maxSpeed := baseMaxSpeed * e.SpeedMult
		agility := turnAgility(e.Vel.Length(), maxSpeed, atMaxFactor)
		turn := clampF(m.Turn, -1, 1) * turnRate * agility
		e.Heading = WrapAngle(e.Heading + turn*dt)

		dir := world.FromAngle(e.Heading)
		terrainMult := terrain.At(e.Pos).FrictionMult()
		target := dir.Scale(m.Forward * maxSpeed * terrainMult)

		e.Vel = e.Vel.Add(target.Sub(e.Vel).Scale(frictionStep))
	})
}

// Integrate advances positions from velocities, wraps them into world
// bounds, and ages every living entity.
func Integrate(arena *entity.Arena, w *world.World, dt float32) {
	arena.IterAlive(func(_ int, e *entity.Entity) {
		e.PrevPos = e.Pos
		e.Pos = w.Wrap(e.Pos.Add(e.Vel.Scale(dt)))
		e.Age += dt
	})
}

type collisionBody struct {
	pos    world.Vec2
	radius float32
	mass   float32
	alive  bool
}

// CollisionScratch carries reusable buffers for collision resolution.
type CollisionScratch struct {
	bodies    []collisionBody
	neighbors []int32
}

// ResolveCollisions pushes overlapping entities apart, weighted by
// mass so larger bodies move less. Pairs are handled once.
func ResolveCollisions(cfg *config.Config, arena *entity.Arena, grid *Grid, w *world.World, scratch *CollisionScratch) {
	maxRadius := float32(cfg.Entity.BaseRadius) * 2.0
	queryRadius := maxRadius * 2.5

	capacity := arena.Capacity()
	if cap(scratch.bodies) < capacity {
		scratch.bodies = make([]collisionBody, capacity)
	}
	scratch.bodies = scratch.bodies[:capacity]
	for i := range scratch.bodies {
		scratch.bodies[i].alive = false
	}
	arena.IterAlive(func(idx int, e *entity.Entity) {
		scratch.bodies[idx] = collisionBody{
			pos:    e.Pos,
			radius: e.Radius,
			mass:   massFromRadius(e.Radius),
			alive:  true,
		}
	})

	for idxA := range scratch.bodies {
		a := scratch.bodies[idxA]
		if !a.alive {
			continue
		}

		scratch.neighbors = grid.QueryRadiusExcludingInto(
			scratch.neighbors[:0], a.pos, queryRadius, int32(idxA), w, arena)

		for _, idxB32 := range scratch.neighbors {
			idxB := int(idxB32)
			if idxB <= idxA {
				continue
			}
			b := scratch.bodies[idxB]
			if !b.alive {
				continue
			}

			delta := w.Delta(a.pos, b.pos)
			distSq := delta.LengthSq()
			minDist := a.radius + b.radius
			if distSq >= minDist*minDist || distSq <= 0.001 {
				continue
			}

			dist := sqrt(distSq)
			overlap := minDist - dist
			pushDir := delta.Scale(1 / dist)
			totalMass := a.mass + b.mass
			moveA := overlap * (b.mass / totalMass)
			moveB := overlap * (a.mass / totalMass)

			if ea, ok := arena.GetByIndex(idxA); ok {
				ea.Pos = w.Wrap(ea.Pos.Sub(pushDir.Scale(moveA)))
			}
			if eb, ok := arena.GetByIndex(idxB); ok {
				eb.Pos = w.Wrap(eb.Pos.Add(pushDir.Scale(moveB)))
			}
		}
	}
}

func clampF(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
