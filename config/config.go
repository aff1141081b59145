// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Arena      ArenaConfig      `yaml:"arena"`
	Ship       ShipConfig       `yaml:"ship"`
	Projectile ProjectileConfig `yaml:"projectile"`
	Match      MatchConfig      `yaml:"match"`
	Evolution  EvolutionConfig  `yaml:"evolution"`
	Fitness    FitnessConfig    `yaml:"fitness"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ArenaConfig holds the toroidal play-field dimensions.
type ArenaConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ShipConfig holds per-ship flight and combat parameters.
type ShipConfig struct {
	RotationSpeed float64 `yaml:"rotation_speed"` // rad/s at full turn signal
	ThrustAccel   float64 `yaml:"thrust_accel"`   // units/s^2 at full thrust
	Drag          float64 `yaml:"drag"`           // velocity multiplier per 1/60s tick
	MaxSpeed      float64 `yaml:"max_speed"`
	Radius        float64 `yaml:"radius"`
	FireCooldown  float64 `yaml:"fire_cooldown"` // seconds between shots
	SensorRange   float64 `yaml:"sensor_range"`  // distance normalization for sensor inputs
}

// ProjectileConfig holds projectile parameters.
type ProjectileConfig struct {
	Speed           float64 `yaml:"speed"`
	Lifetime        float64 `yaml:"lifetime"` // seconds until despawn
	Radius          float64 `yaml:"radius"`
	MaxPerShip      int     `yaml:"max_per_ship"`
	MomentumInherit float64 `yaml:"momentum_inherit"` // fraction of ship velocity added at spawn
}

// MatchConfig holds match pacing parameters.
type MatchConfig struct {
	Duration float64 `yaml:"duration"` // seconds until timeout draw
	DT       float64 `yaml:"dt"`       // fixed simulation timestep
}

// EvolutionConfig holds genetic algorithm parameters.
type EvolutionConfig struct {
	PopulationSize   int     `yaml:"population_size"`
	MatchesPerEval   int     `yaml:"matches_per_eval"` // matches each genome initiates per round
	TournamentSize   int     `yaml:"tournament_size"`
	EliteCount       int     `yaml:"elite_count"`
	MutationRate     float64 `yaml:"mutation_rate"`
	MutationStrength float64 `yaml:"mutation_strength"`
	CrossoverRate    float64 `yaml:"crossover_rate"`
	Workers          int     `yaml:"workers"` // parallel match workers; 0 = NumCPU
}

// FitnessConfig holds the scoring weights applied after each match.
type FitnessConfig struct {
	WinBonus        float64 `yaml:"win_bonus"`
	DeathPenalty    float64 `yaml:"death_penalty"` // subtracted when the ship dies
	HitBonus        float64 `yaml:"hit_bonus"`     // per projectile hit scored
	AccuracyBonus   float64 `yaml:"accuracy_bonus"`
	EngagementBonus float64 `yaml:"engagement_bonus"` // per shot fired, capped
	EngagementCap   int     `yaml:"engagement_cap"`   // shots counted toward engagement
	ProximityBonus  float64 `yaml:"proximity_bonus"`  // scaled by mean closeness over the match
	ProximityRange  float64 `yaml:"proximity_range"`  // distance at which closeness reaches zero
	SurvivalBonus   float64 `yaml:"survival_bonus"`   // scaled by survived fraction, alive at end
	SurvivalPartial float64 `yaml:"survival_partial"` // same, when killed before the end
}

// TelemetryConfig holds telemetry output parameters.
type TelemetryConfig struct {
	OutputDir   string `yaml:"output_dir"`
	FlushEvery  int    `yaml:"flush_every"`  // generations between CSV flushes
	ArchiveSize int    `yaml:"archive_size"` // champion archive capacity
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	StepsPerMatch int // Match.Duration/Match.DT rounded to the nearest whole step
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the configuration for values that would break the simulation.
func (c *Config) Validate() error {
	if c.Arena.Width <= 0 || c.Arena.Height <= 0 {
		return fmt.Errorf("arena dimensions must be positive, got %gx%g", c.Arena.Width, c.Arena.Height)
	}
	if c.Match.DT <= 0 {
		return fmt.Errorf("match dt must be positive, got %g", c.Match.DT)
	}
	if c.Match.Duration <= 0 {
		return fmt.Errorf("match duration must be positive, got %g", c.Match.Duration)
	}
	if c.Ship.MaxSpeed <= 0 {
		return fmt.Errorf("ship max_speed must be positive, got %g", c.Ship.MaxSpeed)
	}
	if c.Ship.SensorRange <= 0 {
		return fmt.Errorf("ship sensor_range must be positive, got %g", c.Ship.SensorRange)
	}
	if c.Ship.Drag <= 0 || c.Ship.Drag > 1 {
		return fmt.Errorf("ship drag must be in (0,1], got %g", c.Ship.Drag)
	}
	if c.Projectile.MaxPerShip < 1 {
		return fmt.Errorf("projectile max_per_ship must be at least 1, got %d", c.Projectile.MaxPerShip)
	}
	if c.Projectile.Lifetime <= 0 {
		return fmt.Errorf("projectile lifetime must be positive, got %g", c.Projectile.Lifetime)
	}
	if c.Evolution.PopulationSize < 2 {
		return fmt.Errorf("population_size must be at least 2, got %d", c.Evolution.PopulationSize)
	}
	if c.Evolution.EliteCount < 0 || c.Evolution.EliteCount > c.Evolution.PopulationSize {
		return fmt.Errorf("elite_count must be in [0,population_size], got %d", c.Evolution.EliteCount)
	}
	if c.Evolution.TournamentSize < 1 {
		return fmt.Errorf("tournament_size must be at least 1, got %d", c.Evolution.TournamentSize)
	}
	if c.Evolution.MatchesPerEval < 1 {
		return fmt.Errorf("matches_per_eval must be at least 1, got %d", c.Evolution.MatchesPerEval)
	}
	if c.Evolution.MutationRate < 0 || c.Evolution.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be in [0,1], got %g", c.Evolution.MutationRate)
	}
	if c.Evolution.CrossoverRate < 0 || c.Evolution.CrossoverRate > 1 {
		return fmt.Errorf("crossover_rate must be in [0,1], got %g", c.Evolution.CrossoverRate)
	}
	if c.Evolution.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Evolution.Workers)
	}
	if c.Fitness.ProximityRange <= 0 {
		return fmt.Errorf("fitness proximity_range must be positive, got %g", c.Fitness.ProximityRange)
	}
	if c.Telemetry.ArchiveSize < 1 {
		return fmt.Errorf("telemetry archive_size must be at least 1, got %d", c.Telemetry.ArchiveSize)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.StepsPerMatch = int(math.Round(c.Match.Duration / c.Match.DT))
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
