package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Arena.Width != 800 || cfg.Arena.Height != 600 {
		t.Errorf("arena = %gx%g, want 800x600", cfg.Arena.Width, cfg.Arena.Height)
	}
	if cfg.Ship.RotationSpeed != 5 || cfg.Ship.MaxSpeed != 300 {
		t.Errorf("ship rotation/max_speed = %g/%g, want 5/300", cfg.Ship.RotationSpeed, cfg.Ship.MaxSpeed)
	}
	if cfg.Ship.FireCooldown != 0.25 {
		t.Errorf("fire_cooldown = %g, want 0.25", cfg.Ship.FireCooldown)
	}
	if cfg.Projectile.Speed != 400 || cfg.Projectile.MaxPerShip != 5 {
		t.Errorf("projectile speed/cap = %g/%d, want 400/5", cfg.Projectile.Speed, cfg.Projectile.MaxPerShip)
	}
	if cfg.Match.Duration != 30 {
		t.Errorf("match duration = %g, want 30", cfg.Match.Duration)
	}
	if cfg.Evolution.PopulationSize != 100 || cfg.Evolution.MatchesPerEval != 8 {
		t.Errorf("population/matches = %d/%d, want 100/8", cfg.Evolution.PopulationSize, cfg.Evolution.MatchesPerEval)
	}
	if cfg.Fitness.WinBonus != 100 || cfg.Fitness.EngagementCap != 20 {
		t.Errorf("win_bonus/engagement_cap = %g/%d, want 100/20", cfg.Fitness.WinBonus, cfg.Fitness.EngagementCap)
	}
	if cfg.Telemetry.ArchiveSize != 16 {
		t.Errorf("archive_size = %d, want 16", cfg.Telemetry.ArchiveSize)
	}
}

func TestStepsPerMatchDerived(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	// 30s at 1/60s per step
	if cfg.Derived.StepsPerMatch != 1800 {
		t.Errorf("steps per match = %d, want 1800", cfg.Derived.StepsPerMatch)
	}

	path := writeTempConfig(t, "match:\n  duration: 10\n  dt: 0.1\n")
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Derived.StepsPerMatch != 100 {
		t.Errorf("steps per match = %d, want 100", cfg.Derived.StepsPerMatch)
	}
}

func TestLoadUserOverride(t *testing.T) {
	path := writeTempConfig(t, "evolution:\n  population_size: 40\nship:\n  max_speed: 250\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading override: %v", err)
	}

	if cfg.Evolution.PopulationSize != 40 {
		t.Errorf("population_size = %d, want 40", cfg.Evolution.PopulationSize)
	}
	if cfg.Ship.MaxSpeed != 250 {
		t.Errorf("max_speed = %g, want 250", cfg.Ship.MaxSpeed)
	}
	// Untouched fields keep their defaults.
	if cfg.Ship.ThrustAccel != 200 {
		t.Errorf("thrust_accel = %g, want default 200", cfg.Ship.ThrustAccel)
	}
	if cfg.Evolution.MatchesPerEval != 8 {
		t.Errorf("matches_per_eval = %d, want default 8", cfg.Evolution.MatchesPerEval)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing_file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("missing file accepted")
		}
	})
	t.Run("malformed_yaml", func(t *testing.T) {
		path := writeTempConfig(t, "arena: [1, 2\n")
		if _, err := Load(path); err == nil {
			t.Error("malformed YAML accepted")
		}
	})
	t.Run("invalid_values", func(t *testing.T) {
		path := writeTempConfig(t, "evolution:\n  population_size: 1\n")
		if _, err := Load(path); err == nil {
			t.Error("invalid population size accepted")
		}
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero_arena_width", func(c *Config) { c.Arena.Width = 0 }},
		{"zero_dt", func(c *Config) { c.Match.DT = 0 }},
		{"zero_duration", func(c *Config) { c.Match.Duration = 0 }},
		{"drag_above_one", func(c *Config) { c.Ship.Drag = 1.5 }},
		{"zero_drag", func(c *Config) { c.Ship.Drag = 0 }},
		{"zero_max_speed", func(c *Config) { c.Ship.MaxSpeed = 0 }},
		{"zero_sensor_range", func(c *Config) { c.Ship.SensorRange = 0 }},
		{"zero_projectile_cap", func(c *Config) { c.Projectile.MaxPerShip = 0 }},
		{"zero_projectile_lifetime", func(c *Config) { c.Projectile.Lifetime = 0 }},
		{"tiny_population", func(c *Config) { c.Evolution.PopulationSize = 1 }},
		{"elites_exceed_population", func(c *Config) { c.Evolution.EliteCount = c.Evolution.PopulationSize + 1 }},
		{"zero_tournament", func(c *Config) { c.Evolution.TournamentSize = 0 }},
		{"zero_matches", func(c *Config) { c.Evolution.MatchesPerEval = 0 }},
		{"mutation_rate_above_one", func(c *Config) { c.Evolution.MutationRate = 1.5 }},
		{"negative_crossover", func(c *Config) { c.Evolution.CrossoverRate = -0.1 }},
		{"negative_workers", func(c *Config) { c.Evolution.Workers = -1 }},
		{"zero_proximity_range", func(c *Config) { c.Fitness.ProximityRange = 0 }},
		{"zero_archive", func(c *Config) { c.Telemetry.ArchiveSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got none")
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Evolution.PopulationSize = 64
	cfg.Telemetry.OutputDir = "runs/exp1"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing yaml: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading yaml: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("round trip changed the config:\nwrote %+v\nread  %+v", cfg, loaded)
	}
}

func TestInitAndCfg(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatalf("init: %v", err)
	}
	if Cfg().Arena.Width != 800 {
		t.Errorf("Cfg().Arena.Width = %g, want 800", Cfg().Arena.Width)
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
