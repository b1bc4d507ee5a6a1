package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis
	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// JWT
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Simulation
	SimulationTrials    int    `mapstructure:"SIMULATION_TRIALS"`
	MaxSimulationTrials int    `mapstructure:"MAX_SIMULATION_TRIALS"`
	SimulationWorkers   int    `mapstructure:"SIMULATION_WORKERS"`
	SimulationSeed      uint64 `mapstructure:"SIMULATION_SEED"`
	SeasonLength        int    `mapstructure:"SEASON_LENGTH"`
	SeriesBestOf        int    `mapstructure:"SERIES_BEST_OF"`
	CountOvertimeWins   bool   `mapstructure:"COUNT_OVERTIME_WINS"`

	// Scheduled reruns
	TeamsFile     string   `mapstructure:"TEAMS_FILE"`
	PlayersFiles  []string `mapstructure:"PLAYERS_FILES"`
	RerunSchedule string   `mapstructure:"RERUN_SCHEDULE"`

	// Rate limiting
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// External stats
	StatsURL                string        `mapstructure:"STATS_URL"`
	ExternalAPITimeout      time.Duration `mapstructure:"EXTERNAL_API_TIMEOUT"`
	CircuitBreakerThreshold int           `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	setDefaults(v)

	// Read from environment
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("DATABASE_URL", "sqlite://playoff_sim.db")
	v.SetDefault("REDIS_URL", "") // empty disables result caching
	v.SetDefault("CACHE_TTL", "30m")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("SIMULATION_TRIALS", bracket.DefaultTrials)
	v.SetDefault("MAX_SIMULATION_TRIALS", 1000000)
	v.SetDefault("SIMULATION_WORKERS", 0) // runtime.NumCPU()
	v.SetDefault("SIMULATION_SEED", 0)    // time seeded
	v.SetDefault("SEASON_LENGTH", bracket.DefaultSeasonLength)
	v.SetDefault("SERIES_BEST_OF", bracket.DefaultBestOf)
	v.SetDefault("COUNT_OVERTIME_WINS", false)

	v.SetDefault("TEAMS_FILE", "teamdata.csv")
	v.SetDefault("PLAYERS_FILES", "forwards.csv:F,defense.csv:D")
	v.SetDefault("RERUN_SCHEDULE", "")

	v.SetDefault("RATE_LIMIT_RPS", 2)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	v.SetDefault("STATS_URL", "")
	v.SetDefault("EXTERNAL_API_TIMEOUT", "10s")
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Comma separated lists arrive from the environment as a single string
	config.CorsOrigins = splitList(v.GetString("CORS_ORIGINS"))
	config.PlayersFiles = splitList(v.GetString("PLAYERS_FILES"))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if c.SeasonLength <= 0 {
		return fmt.Errorf("SEASON_LENGTH must be positive, got %d", c.SeasonLength)
	}
	if c.SeriesBestOf <= 0 || c.SeriesBestOf%2 == 0 {
		return fmt.Errorf("SERIES_BEST_OF must be a positive odd number, got %d", c.SeriesBestOf)
	}
	if c.SimulationTrials <= 0 {
		return fmt.Errorf("SIMULATION_TRIALS must be positive, got %d", c.SimulationTrials)
	}
	if c.MaxSimulationTrials < c.SimulationTrials {
		return fmt.Errorf("MAX_SIMULATION_TRIALS (%d) is below SIMULATION_TRIALS (%d)", c.MaxSimulationTrials, c.SimulationTrials)
	}
	if c.SimulationWorkers < 0 {
		return fmt.Errorf("SIMULATION_WORKERS must not be negative, got %d", c.SimulationWorkers)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// Policy returns the game win policy selected by COUNT_OVERTIME_WINS
func (c *Config) Policy() bracket.WinPolicy {
	return bracket.PolicyFor(c.CountOvertimeWins)
}

// Bracket returns the engine configuration
func (c *Config) Bracket() bracket.Config {
	return bracket.Config{
		SeasonLength: c.SeasonLength,
		BestOf:       c.SeriesBestOf,
		Policy:       c.Policy(),
	}
}

// PlayerSource is one entry of PLAYERS_FILES: a path tagged with a position
type PlayerSource struct {
	Path     string
	Position string
}

// PlayerSources parses PLAYERS_FILES entries of the form path:position
func (c *Config) PlayerSources() ([]PlayerSource, error) {
	sources := make([]PlayerSource, 0, len(c.PlayersFiles))
	for _, entry := range c.PlayersFiles {
		i := strings.LastIndex(entry, ":")
		if i <= 0 || i == len(entry)-1 {
			return nil, fmt.Errorf("invalid PLAYERS_FILES entry %q, want path:position", entry)
		}
		sources = append(sources, PlayerSource{Path: entry[:i], Position: entry[i+1:]})
	}
	return sources, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
