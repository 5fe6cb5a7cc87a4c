// Package config loads engine configuration from the environment and the
// school policy from a YAML file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/geo"
	"github.com/ssematimba/gate-check/internal/matcher"
	"github.com/ssematimba/gate-check/internal/policy"
	"github.com/ssematimba/gate-check/internal/session"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Legacy   LegacyConfig
	Engine   EngineConfig
	Policy   PolicyConfig
}

// ServerConfig configures the kiosk API server.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig configures the PostgreSQL store.
type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// LegacyConfig configures the optional MariaDB ledger adapter for schools
// that keep attendance rows in the existing school-administration database.
type LegacyConfig struct {
	DSN string // MariaDB DSN (e.g. school:school@tcp(db:3306)/school?parseTime=true)
}

// EngineConfig holds the verification tunables. Threshold and MaxDistance
// are empirical constants tied to the descriptor model; they are plain
// configuration, not derived values.
type EngineConfig struct {
	Threshold       float64
	MaxDistance     float64
	Cooldown        time.Duration
	LocationTimeout time.Duration
}

// PolicyConfig is the YAML school policy.
type PolicyConfig struct {
	Schedule            ScheduleConfig `yaml:"schedule" validate:"required"`
	RequireBiometricFor []string       `yaml:"require_biometric_for" validate:"dive,oneof=student teacher"`
	Geofence            GeofenceConfig `yaml:"geofence"`
}

// ScheduleConfig is the school-hours section of the policy file.
type ScheduleConfig struct {
	Start                string `yaml:"start" validate:"required"`
	LateThresholdMinutes int    `yaml:"late_threshold_minutes" validate:"gte=0"`
	End                  string `yaml:"end" validate:"required"`
}

// GeofenceConfig is the geofence section of the policy file.
type GeofenceConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Latitude     float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	RadiusMeters float64 `yaml:"radius_meters" validate:"gte=0"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// Load reads configuration from the environment and the policy file named by
// GATECHECK_POLICY_FILE (falling back to the embedded default policy).
func Load() (*Config, error) {
	policyCfg, err := loadPolicy(os.Getenv("GATECHECK_POLICY_FILE"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Host: envString("GATECHECK_HOST", "0.0.0.0"),
			Port: envInt("GATECHECK_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Legacy: LegacyConfig{
			DSN: os.Getenv("LEGACY_DATABASE_DSN"),
		},
		Engine: EngineConfig{
			Threshold:       envFloat("GATECHECK_THRESHOLD", matcher.DefaultThreshold),
			MaxDistance:     envFloat("GATECHECK_MAX_DISTANCE", matcher.DefaultMaxDistance),
			Cooldown:        envDuration("GATECHECK_COOLDOWN", session.DefaultCooldown),
			LocationTimeout: envDuration("GATECHECK_LOCATION_TIMEOUT", session.DefaultLocationTimeout),
		},
		Policy: *policyCfg,
	}, nil
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// loadPolicy parses and validates a policy file. An empty path uses the
// embedded default.
func loadPolicy(path string) (*PolicyConfig, error) {
	data := defaultPolicyYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy file: %w", err)
		}
		data = b
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return &cfg, nil
}

// Evaluator builds the policy evaluator from the loaded policy.
func (c *Config) Evaluator() (*policy.Evaluator, error) {
	start, err := policy.ParseDayTime(c.Policy.Schedule.Start)
	if err != nil {
		return nil, err
	}
	end, err := policy.ParseDayTime(c.Policy.Schedule.End)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("policy end %q must be after start %q", c.Policy.Schedule.End, c.Policy.Schedule.Start)
	}

	schedule := policy.Schedule{
		Start:                start,
		LateThresholdMinutes: c.Policy.Schedule.LateThresholdMinutes,
		End:                  end,
	}
	for _, p := range c.Policy.RequireBiometricFor {
		schedule.RequireBiometricFor = append(schedule.RequireBiometricFor, attendance.Population(p))
	}

	var fence *policy.Geofence
	if c.Policy.Geofence.Enabled {
		center := geo.Point{Latitude: c.Policy.Geofence.Latitude, Longitude: c.Policy.Geofence.Longitude}
		if !center.Valid() {
			return nil, fmt.Errorf("invalid geofence center (%f, %f)", center.Latitude, center.Longitude)
		}
		if c.Policy.Geofence.RadiusMeters <= 0 {
			return nil, fmt.Errorf("geofence radius must be positive, got %f", c.Policy.Geofence.RadiusMeters)
		}
		fence = &policy.Geofence{Center: center, RadiusMeters: c.Policy.Geofence.RadiusMeters}
	}

	return policy.NewEvaluator(schedule, fence), nil
}

// SessionOptions builds session options for a population and direction from
// the engine tunables.
func (c *Config) SessionOptions(population attendance.Population, direction attendance.Direction) session.Options {
	return session.Options{
		Population:      population,
		Direction:       direction,
		Threshold:       c.Engine.Threshold,
		MaxDistance:     c.Engine.MaxDistance,
		Cooldown:        c.Engine.Cooldown,
		LocationTimeout: c.Engine.LocationTimeout,
	}
}
