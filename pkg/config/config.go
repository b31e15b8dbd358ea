// Package config handles engine configuration from YAML files and
// environment variables.
//
// Configuration is loaded in three layers: defaults, an optional YAML
// file, then MUNINN_-prefixed environment variable overrides. Validate()
// checks the merged result before the engine starts.
//
// Example:
//
//	cfg := config.Default()
//	if err := cfg.LoadFile("muninn.yaml"); err != nil {
//		log.Fatal(err)
//	}
//	cfg.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Environment variables:
//   - MUNINN_DATA_DIR="./data"
//   - MUNINN_IN_MEMORY=true
//   - MUNINN_SYNC_WRITES=false
//   - MUNINN_NUM_REASONING_PATHS=5
//   - MUNINN_MAX_CONCEPTS=10
//   - MUNINN_MAX_DEPTH=6
//   - MUNINN_CACHE_SIZE=1000
//   - MUNINN_CACHE_TTL=5m
//   - MUNINN_LOG_LEVEL="info"
//   - MUNINN_LOG_FORMAT="console" or "json"
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration, organized by concern.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Learning  LearningConfig  `yaml:"learning"`
	Pathfind  PathfindConfig  `yaml:"pathfind"`
	Consensus ConsensusConfig `yaml:"consensus"`
	Query     QueryConfig     `yaml:"query"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig holds durability settings.
type StorageConfig struct {
	// DataDir is the directory for persistent data. Empty with InMemory
	// false means persistence is disabled entirely.
	DataDir string `yaml:"data_dir"`
	// InMemory keeps the durable store in RAM; data is lost on shutdown.
	InMemory bool `yaml:"in_memory"`
	// SyncWrites forces fsync after each write.
	SyncWrites bool `yaml:"sync_writes"`
}

// LearningConfig holds ingestion and reinforcement settings.
type LearningConfig struct {
	// DifficultThreshold and EasyThreshold bound the strength bands.
	DifficultThreshold float64 `yaml:"difficult_threshold"`
	EasyThreshold      float64 `yaml:"easy_threshold"`
	// MinConfidence is the association extraction floor.
	MinConfidence float64 `yaml:"min_confidence"`
	// MaxCandidates bounds semantic fan-out per learned concept.
	MaxCandidates int `yaml:"max_candidates"`
	// TemporalWindow is the ingestion proximity for temporal links.
	TemporalWindow time.Duration `yaml:"temporal_window"`
}

// PathfindConfig holds search settings.
type PathfindConfig struct {
	MaxDepth        int     `yaml:"max_depth"`
	ConfidenceDecay float64 `yaml:"confidence_decay"`
	MinConfidence   float64 `yaml:"min_confidence"`
}

// ConsensusConfig holds aggregation settings.
type ConsensusConfig struct {
	ClusterThreshold     float64 `yaml:"cluster_threshold"`
	DiversityPenalty     float64 `yaml:"diversity_penalty"`
	OutlierPenalty       float64 `yaml:"outlier_penalty"`
	MinPathsForConsensus int     `yaml:"min_paths_for_consensus"`
	ConsensusThreshold   float64 `yaml:"consensus_threshold"`
}

// QueryConfig holds pipeline and cache settings.
type QueryConfig struct {
	NumReasoningPaths int           `yaml:"num_reasoning_paths"`
	MaxConcepts       int           `yaml:"max_concepts"`
	ExpandThreshold   float64       `yaml:"expand_threshold"`
	CacheSize         int           `yaml:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: console or json.
	Format string `yaml:"format"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: "./data/muninn",
		},
		Learning: LearningConfig{
			DifficultThreshold: 4.0,
			EasyThreshold:      7.0,
			MinConfidence:      0.1,
			MaxCandidates:      8,
			TemporalWindow:     2 * time.Minute,
		},
		Pathfind: PathfindConfig{
			MaxDepth:        6,
			ConfidenceDecay: 0.85,
			MinConfidence:   0.1,
		},
		Consensus: ConsensusConfig{
			ClusterThreshold:     0.8,
			DiversityPenalty:     0.1,
			OutlierPenalty:       0.3,
			MinPathsForConsensus: 2,
			ConsensusThreshold:   0.5,
		},
		Query: QueryConfig{
			NumReasoningPaths: 5,
			MaxConcepts:       10,
			ExpandThreshold:   0.3,
			CacheSize:         1000,
			CacheTTL:          5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFile merges a YAML file into the config. A missing file is an
// error; use an existence check at the call site for optional files.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies MUNINN_* environment variable overrides on top of
// the current values.
func (c *Config) LoadFromEnv() {
	setString(&c.Storage.DataDir, "MUNINN_DATA_DIR")
	setBool(&c.Storage.InMemory, "MUNINN_IN_MEMORY")
	setBool(&c.Storage.SyncWrites, "MUNINN_SYNC_WRITES")

	setInt(&c.Query.NumReasoningPaths, "MUNINN_NUM_REASONING_PATHS")
	setInt(&c.Query.MaxConcepts, "MUNINN_MAX_CONCEPTS")
	setInt(&c.Query.CacheSize, "MUNINN_CACHE_SIZE")
	setDuration(&c.Query.CacheTTL, "MUNINN_CACHE_TTL")

	setInt(&c.Pathfind.MaxDepth, "MUNINN_MAX_DEPTH")

	setString(&c.Logging.Level, "MUNINN_LOG_LEVEL")
	setString(&c.Logging.Format, "MUNINN_LOG_FORMAT")
}

// Validate checks the merged configuration for values the engine cannot
// run with.
func (c *Config) Validate() error {
	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage.data_dir required unless storage.in_memory is set")
	}
	if c.Pathfind.MaxDepth < 1 {
		return fmt.Errorf("config: pathfind.max_depth must be >= 1, got %d", c.Pathfind.MaxDepth)
	}
	if c.Pathfind.ConfidenceDecay <= 0 || c.Pathfind.ConfidenceDecay > 1 {
		return fmt.Errorf("config: pathfind.confidence_decay must be in (0, 1], got %g", c.Pathfind.ConfidenceDecay)
	}
	if c.Consensus.ClusterThreshold <= 0 || c.Consensus.ClusterThreshold > 1 {
		return fmt.Errorf("config: consensus.cluster_threshold must be in (0, 1], got %g", c.Consensus.ClusterThreshold)
	}
	if c.Learning.DifficultThreshold >= c.Learning.EasyThreshold {
		return fmt.Errorf("config: learning.difficult_threshold (%g) must be below easy_threshold (%g)",
			c.Learning.DifficultThreshold, c.Learning.EasyThreshold)
	}
	if c.Query.NumReasoningPaths < 1 {
		return fmt.Errorf("config: query.num_reasoning_paths must be >= 1, got %d", c.Query.NumReasoningPaths)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
