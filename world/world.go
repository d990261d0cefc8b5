// Package world defines the simulation space: bounds, wrapping, and
// shortest-path distance on an optionally toroidal plane.
package world

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X, Y float32
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float32 { return v.X*o.X + v.Y*o.Y }

// LengthSq returns the squared length of v.
func (v Vec2) LengthSq() float32 { return v.X*v.X + v.Y*v.Y }

// Length returns the length of v.
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.LengthSq())))
}

// FromAngle returns the unit vector pointing at the given heading.
func FromAngle(heading float32) Vec2 {
	return Vec2{
		X: float32(math.Cos(float64(heading))),
		Y: float32(math.Sin(float64(heading))),
	}
}

// World describes the simulation bounds. When Toroidal is set, positions
// wrap at the edges and distances fold across the seam.
type World struct {
	Width    float32
	Height   float32
	Toroidal bool
}

// New creates a world with the given extent.
func New(width, height float32, toroidal bool) *World {
	return &World{Width: width, Height: height, Toroidal: toroidal}
}

// Center returns the world midpoint.
func (w *World) Center() Vec2 {
	return Vec2{w.Width * 0.5, w.Height * 0.5}
}

// Wrap maps a position back into world bounds: modular on a toroidal
// world, clamped otherwise.
func (w *World) Wrap(pos Vec2) Vec2 {
	if !w.Toroidal {
		return Vec2{
			X: clamp(pos.X, 0, w.Width),
			Y: clamp(pos.Y, 0, w.Height),
		}
	}
	return Vec2{X: mod(pos.X, w.Width), Y: mod(pos.Y, w.Height)}
}

// Delta returns the shortest displacement from `from` to `to`. On a
// toroidal world any per-axis delta beyond half the extent is folded to
// the other direction.
func (w *World) Delta(from, to Vec2) Vec2 {
	d := to.Sub(from)
	if w.Toroidal {
		if d.X > w.Width*0.5 {
			d.X -= w.Width
		} else if d.X < -w.Width*0.5 {
			d.X += w.Width
		}
		if d.Y > w.Height*0.5 {
			d.Y -= w.Height
		} else if d.Y < -w.Height*0.5 {
			d.Y += w.Height
		}
	}
	return d
}

// DistanceSq returns the squared shortest-path distance between a and b.
func (w *World) DistanceSq(a, b Vec2) float32 {
	return w.Delta(a, b).LengthSq()
}

// Distance returns the shortest-path distance between a and b.
func (w *World) Distance(a, b Vec2) float32 {
	return w.Delta(a, b).Length()
}

// mod returns positive modulo (Go's Mod can return negative).
func mod(a, b float32) float32 {
	m := float32(math.Mod(float64(a), float64(b)))
	if m < 0 {
		m += b
	}
	return m
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
