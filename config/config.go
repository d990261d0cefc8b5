// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World        WorldConfig        `yaml:"world"`
	Simulation   SimulationConfig   `yaml:"simulation"`
	Entity       EntityConfig       `yaml:"entity"`
	Energy       EnergyConfig       `yaml:"energy"`
	Food         FoodConfig         `yaml:"food"`
	Combat       CombatConfig       `yaml:"combat"`
	Intents      IntentConfig       `yaml:"intents"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Environment  EnvironmentConfig  `yaml:"environment"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds world geometry parameters.
type WorldConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	Toroidal     bool    `yaml:"toroidal"`
	GridCellSize float64 `yaml:"grid_cell_size"` // spatial index cell size
}

// SimulationConfig holds tick and population parameters.
type SimulationConfig struct {
	DT              float64 `yaml:"dt"` // seconds per tick
	InitialEntities int     `yaml:"initial_entities"`
	MaxEntities     int     `yaml:"max_entities"`
}

// EntityConfig holds entity creation and movement parameters.
type EntityConfig struct {
	BaseRadius           float64 `yaml:"base_radius"`
	MaxSpeed             float64 `yaml:"max_speed"`
	TurnRate             float64 `yaml:"turn_rate"` // radians per second at full turn output
	Friction             float64 `yaml:"friction"`
	TurnAtMaxSpeedFactor float64 `yaml:"turn_at_max_speed_factor"` // agility remaining at top speed
	InitialEnergy        float64 `yaml:"initial_energy"`
	MaxEnergy            float64 `yaml:"max_energy"`
	MaxCarriedEnergy     float64 `yaml:"max_carried_energy"`
	DeathAge             float64 `yaml:"death_age"` // seconds before old-age death
}

// EnergyConfig holds metabolic cost parameters.
type EnergyConfig struct {
	IdleCost    float64 `yaml:"idle_cost"`    // drain per second at rest
	MoveCost    float64 `yaml:"move_cost"`    // extra drain per second at full speed
	DigestRate  float64 `yaml:"digest_rate"`  // carried energy converted per second
	ShareAmount float64 `yaml:"share_amount"` // energy transferred per sharing event
}

// FoodConfig holds food spawning parameters.
type FoodConfig struct {
	InitialCount  int     `yaml:"initial_count"`
	RespawnRate   float64 `yaml:"respawn_rate"` // items per second
	Energy        float64 `yaml:"energy"`
	ClusterRadius float64 `yaml:"cluster_radius"`
}

// CombatConfig holds combat resolution parameters.
type CombatConfig struct {
	AttackRange   float64 `yaml:"attack_range"`
	AttackCost    float64 `yaml:"attack_cost"`
	AttackDamage  float64 `yaml:"attack_damage"`
	MeatEnergy    float64 `yaml:"meat_energy"`
	MeatDecayTime float64 `yaml:"meat_decay_time"`
}

// IntentConfig holds motor intent thresholds. A motor output below its
// threshold is treated as no intent for that action this tick.
type IntentConfig struct {
	Eat       float64 `yaml:"eat"`
	Pickup    float64 `yaml:"pickup"`
	Share     float64 `yaml:"share"`
	Attack    float64 `yaml:"attack"`
	Reproduce float64 `yaml:"reproduce"`
}

// ReproductionConfig holds reproduction parameters.
type ReproductionConfig struct {
	EnergyThreshold         float64 `yaml:"energy_threshold"`
	Cost                    float64 `yaml:"cost"`
	OffspringEnergyFraction float64 `yaml:"offspring_energy_fraction"`
}

// EnvironmentConfig holds terrain, day/season, and storm parameters.
type EnvironmentConfig struct {
	TerrainCellSize  float64 `yaml:"terrain_cell_size"`
	DayLength        float64 `yaml:"day_length"`
	SeasonLength     float64 `yaml:"season_length"`
	StormDuration    float64 `yaml:"storm_duration"`
	StormIntervalMin float64 `yaml:"storm_interval_min"`
	StormIntervalMax float64 `yaml:"storm_interval_max"`
	StormRadius      float64 `yaml:"storm_radius"`
	StormDamage      float64 `yaml:"storm_damage"` // health per second inside a storm
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // window size in simulation seconds
	OutputDir   string  `yaml:"output_dir"`   // empty disables CSV output
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32     float32 // Simulation.DT as float32
	WorldW32 float32
	WorldH32 float32
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// Default returns a config built from the embedded defaults only.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Simulation.DT)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
