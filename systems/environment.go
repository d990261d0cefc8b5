package systems

import (
	"fmt"
	"math"

	"github.com/ojrac/opensimplex-go"
	"golang.org/x/exp/rand"

	"primordium/config"
	"primordium/entity"
	"primordium/world"
)

// Terrain classifies one terrain cell.
type Terrain uint8

const (
	TerrainPlains Terrain = iota
	TerrainForest
	TerrainDesert
	TerrainWater
	TerrainToxic
)

// FrictionMult returns the movement speed multiplier on this terrain.
func (t Terrain) FrictionMult() float32 {
	switch t {
	case TerrainForest:
		return 0.6
	case TerrainDesert:
		return 0.9
	case TerrainWater:
		return 0.2
	case TerrainToxic:
		return 0.8
	default:
		return 1.0
	}
}

// FoodSpawnMult returns the food spawn probability multiplier.
func (t Terrain) FoodSpawnMult() float32 {
	switch t {
	case TerrainForest:
		return 2.0
	case TerrainDesert:
		return 0.3
	case TerrainWater, TerrainToxic:
		return 0.0
	default:
		return 1.0
	}
}

// DamagePerSec returns the passive drain per second on this terrain.
func (t Terrain) DamagePerSec() float32 {
	if t == TerrainToxic {
		return 3.0
	}
	return 0.0
}

// Danger returns the terrain's contribution to the environment danger
// sensor, in [0,1].
func (t Terrain) Danger() float32 {
	switch t {
	case TerrainForest:
		return 0.2
	case TerrainDesert:
		return 0.4
	case TerrainWater:
		return 0.8
	case TerrainToxic:
		return 1.0
	default:
		return 0.0
	}
}

func (t Terrain) String() string {
	switch t {
	case TerrainForest:
		return "forest"
	case TerrainDesert:
		return "desert"
	case TerrainWater:
		return "water"
	case TerrainToxic:
		return "toxic"
	default:
		return "plains"
	}
}

// TerrainGrid is a fixed terrain field covering the world, generated
// once from layered simplex noise.
type TerrainGrid struct {
	Cells       []Terrain
	Width       int
	Height      int
	CellSize    float32
	invCellSize float32
}

// fbm sums noise octaves at decreasing amplitude. Output roughly [-1,1].
func fbm(n opensimplex.Noise, x, y float64) float64 {
	sum := 0.0
	amp := 1.0
	freq := 1.0
	norm := 0.0
	for octave := 0; octave < 4; octave++ {
		sum += n.Eval2(x*freq, y*freq) * amp
		norm += amp
		amp *= 0.5
		freq *= 2.0
	}
	return sum / norm
}

// GenerateTerrain builds the terrain grid for a world from a noise seed.
func GenerateTerrain(worldW, worldH, cellSize float32, seed uint64) *TerrainGrid {
	width := int(ceil(worldW / cellSize))
	height := int(ceil(worldH / cellSize))
	noise := opensimplex.New(int64(seed))

	cells := make([]Terrain, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			nx := float64(x) / float64(width) * 4.0
			ny := float64(y) / float64(height) * 4.0
			v := fbm(noise, nx, ny)

			var t Terrain
			switch {
			case v < -0.45:
				t = TerrainWater
			case v < -0.1:
				t = TerrainForest
			case v < 0.3:
				t = TerrainPlains
			case v < 0.55:
				t = TerrainDesert
			default:
				t = TerrainToxic
			}
			cells = append(cells, t)
		}
	}

	return &TerrainGrid{
		Cells:       cells,
		Width:       width,
		Height:      height,
		CellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
	}
}

// At returns the terrain at a world position.
func (g *TerrainGrid) At(pos world.Vec2) Terrain {
	cx := int(pos.X * g.invCellSize)
	cy := int(pos.Y * g.invCellSize)
	if cx >= g.Width {
		cx = g.Width - 1
	}
	if cy >= g.Height {
		cy = g.Height - 1
	}
	if cx < 0 {
		cx = 0
	}
	if cy < 0 {
		cy = 0
	}
	return g.Cells[cy*g.Width+cx]
}

// Season is one quarter of the seasonal cycle.
type Season uint8

const (
	Spring Season = iota
	Summer
	Autumn
	Winter
)

// FoodMultiplier returns the seasonal food spawn multiplier.
func (s Season) FoodMultiplier() float32 {
	switch s {
	case Spring:
		return 1.2
	case Autumn:
		return 0.8
	case Winter:
		return 0.5
	default:
		return 1.0
	}
}

func (s Season) String() string {
	switch s {
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Autumn:
		return "autumn"
	default:
		return "winter"
	}
}

// Storm is a moving damage zone.
type Storm struct {
	Center world.Vec2
	Radius float32
	Vel    world.Vec2
	Timer  float32
}

// Environment holds the world's terrain and time-varying conditions.
type Environment struct {
	Terrain        *TerrainGrid
	TimeOfDay      float32 // [0,1), 0.5 = noon
	dayProgress    float32
	Season         Season
	seasonProgress float32
	Storm          *Storm
	stormCooldown  float32
}

// NewEnvironment generates terrain and starts the clock at dawn.
func NewEnvironment(cfg *config.Config, seed uint64) *Environment {
	return &Environment{
		Terrain: GenerateTerrain(
			cfg.Derived.WorldW32,
			cfg.Derived.WorldH32,
			float32(cfg.Environment.TerrainCellSize),
			seed,
		),
		TimeOfDay:     0.25,
		Season:        Spring,
		stormCooldown: float32(cfg.Environment.StormIntervalMin),
	}
}

// Tick advances day/night, seasons, and storm lifecycle.
func (env *Environment) Tick(cfg *config.Config, w *world.World, rng *rand.Rand, dt float32) {
	env.dayProgress += dt
	dayFrac := env.dayProgress / float32(cfg.Environment.DayLength)
	env.TimeOfDay = dayFrac - float32(math.Floor(float64(dayFrac)))

	env.seasonProgress += dt / float32(cfg.Environment.SeasonLength)
	if env.seasonProgress >= 1.0 {
		env.seasonProgress -= 1.0
		env.Season = (env.Season + 1) % 4
	}

	if env.Storm != nil {
		env.Storm.Timer -= dt
		env.Storm.Center = w.Wrap(env.Storm.Center.Add(env.Storm.Vel.Scale(dt)))
		if env.Storm.Timer <= 0 {
			env.Storm = nil
			lo := float32(cfg.Environment.StormIntervalMin)
			hi := float32(cfg.Environment.StormIntervalMax)
			env.stormCooldown = lo + rng.Float32()*(hi-lo)
		}
	} else {
		env.stormCooldown -= dt
		if env.stormCooldown <= 0 {
			env.Storm = &Storm{
				Center: world.Vec2{
					X: rng.Float32() * w.Width,
					Y: rng.Float32() * w.Height,
				},
				Radius: float32(cfg.Environment.StormRadius),
				Vel:    world.FromAngle(rng.Float32() * 2 * math.Pi).Scale(30),
				Timer:  float32(cfg.Environment.StormDuration),
			}
		}
	}
}

// IsDay reports whether it is daytime (roughly 6am to 6pm).
func (env *Environment) IsDay() bool {
	return env.TimeOfDay > 0.25 && env.TimeOfDay < 0.75
}

// DayBrightness returns the current brightness in [0.3, 1.0], peaking
// at noon.
func (env *Environment) DayBrightness() float32 {
	phase := float64(env.TimeOfDay-0.25) * 2 * math.Pi
	raw := math.Sin(phase)*0.5 + 0.5
	if raw < 0 {
		raw = 0
	} else if raw > 1 {
		raw = 1
	}
	return 0.3 + float32(raw)*0.7
}

// FoodRateMultiplier combines season and time of day: nothing grows at
// night.
func (env *Environment) FoodRateMultiplier() float32 {
	dayMult := float32(0.0)
	if env.IsDay() {
		dayMult = 1.5
	}
	return env.Season.FoodMultiplier() * dayMult
}

// ApplyTerrainEffects drains energy and health on hostile terrain and
// slows entities in water.
func (env *Environment) ApplyTerrainEffects(arena *entity.Arena, dt float32) {
	arena.IterAlive(func(_ int, e *entity.Entity) {
		t := env.Terrain.At(e.Pos)
		if damage := t.DamagePerSec() * dt; damage > 0 {
			e.Energy -= damage
			e.Health -= damage
		}
		if t == TerrainWater {
			e.Vel = e.Vel.Scale(0.9)
			e.Energy -= 1.0 * dt
		}
	})
}

// forest cover reduces storm damage and wind push
const forestShelterMult = 0.3

// ApplyStormEffects damages and pushes entities inside the active
// storm's radius. Forest terrain shelters.
func (env *Environment) ApplyStormEffects(cfg *config.Config, arena *entity.Arena, w *world.World, dt float32) {
	storm := env.Storm
	if storm == nil {
		return
	}
	radiusSq := storm.Radius * storm.Radius
	damage := float32(cfg.Environment.StormDamage)

	arena.IterAlive(func(_ int, e *entity.Entity) {
		if w.DistanceSq(e.Pos, storm.Center) >= radiusSq {
			return
		}
		shelter := float32(1.0)
		if env.Terrain.At(e.Pos) == TerrainForest {
			shelter = forestShelterMult
		}
		e.Energy -= damage * shelter * dt

		push := w.Delta(storm.Center, e.Pos)
		if lenSq := push.LengthSq(); lenSq > 0.001 {
			e.Vel = e.Vel.Add(push.Scale(1 / sqrt(lenSq)).Scale(20 * shelter * dt))
		}
	})
}

func sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// EnvironmentState is a serializable copy of the environment, used by
// the simulation snapshot. Terrain is stored as cells rather than a
// seed so a snapshot stays valid even if the generator changes.
type EnvironmentState struct {
	TerrainCells    []Terrain
	TerrainWidth    int
	TerrainHeight   int
	TerrainCellSize float32
	TimeOfDay       float32
	DayProgress     float32
	Season          Season
	SeasonProgress  float32
	Storm           *Storm
	StormCooldown   float32
}

// State copies out the environment's full state.
func (env *Environment) State() EnvironmentState {
	s := EnvironmentState{
		TerrainCells:    append([]Terrain(nil), env.Terrain.Cells...),
		TerrainWidth:    env.Terrain.Width,
		TerrainHeight:   env.Terrain.Height,
		TerrainCellSize: env.Terrain.CellSize,
		TimeOfDay:       env.TimeOfDay,
		DayProgress:     env.dayProgress,
		Season:          env.Season,
		SeasonProgress:  env.seasonProgress,
		StormCooldown:   env.stormCooldown,
	}
	if env.Storm != nil {
		storm := *env.Storm
		s.Storm = &storm
	}
	return s
}

// EnvironmentFromState reconstructs an environment. It fails if the
// terrain dimensions disagree with the cell slice.
func EnvironmentFromState(s EnvironmentState) (*Environment, error) {
	if s.TerrainWidth <= 0 || s.TerrainHeight <= 0 || s.TerrainCellSize <= 0 {
		return nil, fmt.Errorf("environment state: bad terrain dimensions %dx%d cell %v",
			s.TerrainWidth, s.TerrainHeight, s.TerrainCellSize)
	}
	if len(s.TerrainCells) != s.TerrainWidth*s.TerrainHeight {
		return nil, fmt.Errorf("environment state: %d terrain cells for %dx%d grid",
			len(s.TerrainCells), s.TerrainWidth, s.TerrainHeight)
	}

	env := &Environment{
		Terrain: &TerrainGrid{
			Cells:       append([]Terrain(nil), s.TerrainCells...),
			Width:       s.TerrainWidth,
			Height:      s.TerrainHeight,
			CellSize:    s.TerrainCellSize,
			invCellSize: 1.0 / s.TerrainCellSize,
		},
		TimeOfDay:      s.TimeOfDay,
		dayProgress:    s.DayProgress,
		Season:         s.Season,
		seasonProgress: s.SeasonProgress,
		stormCooldown:  s.StormCooldown,
	}
	if s.Storm != nil {
		storm := *s.Storm
		env.Storm = &storm
	}
	return env, nil
}
