// Package telemetry accumulates simulation events into time windows and
// writes them as CSV records for offline analysis.
package telemetry

import "primordium/sim"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks uint64
	dt                  float32

	windowStartTick uint64

	// Event counters for the current window
	births  int
	deaths  int
	attacks int
	kills   int
	meals   int
}

// NewCollector creates a stats collector. windowDurationSec is how long
// each window lasts in simulation seconds; dt converts ticks to time.
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	// Round, don't truncate: a float32 dt like 0.1 is slightly above the
	// decimal value, so 1.0/dt lands just under the intended tick count.
	ticksPerWindow := uint64(windowDurationSec/float64(dt) + 0.5)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record accumulates one tick's event counts.
func (c *Collector) Record(report sim.TickReport) {
	c.births += report.Births
	c.deaths += report.Deaths
	c.attacks += report.Attacks
	c.kills += report.Kills
	c.meals += report.Meals
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}

// Flush produces a WindowStats from the accumulated counters plus the
// simulation's current population, and resets for the next window.
// energies and ages are the living population's values, sampled at
// window end for the distribution columns.
func (c *Collector) Flush(s *sim.State, energies, ages []float64) WindowStats {
	var killRate float64
	if c.attacks > 0 {
		killRate = float64(c.kills) / float64(c.attacks)
	}

	energyMean, energyStd, energyP10, energyP50, energyP90 := ComputeDistribution(energies)
	ageMean, _, _, ageP50, _ := ComputeDistribution(ages)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   s.TickCount,
		SimTimeSec:      float64(s.TickCount) * float64(c.dt),

		Population:      s.Arena.Count(),
		SpeciesEstimate: s.SpeciesEstimate,
		FoodCount:       len(s.Food),
		MeatCount:       len(s.Meat),

		Births:   c.births,
		Deaths:   c.deaths,
		Attacks:  c.attacks,
		Kills:    c.kills,
		Meals:    c.meals,
		KillRate: killRate,

		EnergyMean: energyMean,
		EnergyStd:  energyStd,
		EnergyP10:  energyP10,
		EnergyP50:  energyP50,
		EnergyP90:  energyP90,

		AgeMean: ageMean,
		AgeP50:  ageP50,

		AvgGeneration: float64(s.AvgGeneration),
		AvgSize:       float64(s.AvgSize),
	}

	c.windowStartTick = s.TickCount
	c.births = 0
	c.deaths = 0
	c.attacks = 0
	c.kills = 0
	c.meals = 0

	return stats
}

// RingBuffer keeps the most recent window stats for rolling summaries.
type RingBuffer struct {
	buf  []WindowStats
	next int
	full bool
}

// NewRingBuffer creates a ring buffer holding up to size windows.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{buf: make([]WindowStats, size)}
}

// Push appends a window, evicting the oldest when full.
func (r *RingBuffer) Push(stats WindowStats) {
	r.buf[r.next] = stats
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of windows currently held.
func (r *RingBuffer) Len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Windows returns the held windows in insertion order.
func (r *RingBuffer) Windows() []WindowStats {
	if !r.full {
		return append([]WindowStats(nil), r.buf[:r.next]...)
	}
	out := make([]WindowStats, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// PopulationTrend returns the mean and standard deviation of the
// population across the held windows.
func (r *RingBuffer) PopulationTrend() (mean, std float64) {
	windows := r.Windows()
	if len(windows) == 0 {
		return 0, 0
	}
	values := make([]float64, len(windows))
	for i, w := range windows {
		values[i] = float64(w.Population)
	}
	return meanStd(values)
}
