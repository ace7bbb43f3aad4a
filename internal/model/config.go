package model

import (
	"fmt"
	"math"
	"time"
)

// Sampling strategies
const (
	StrategyStratified = "stratified" // sort, stratified sample, then diversity filter
	StrategyDiverse    = "diverse"    // sort, then diversity filter only
)

// Missing metadata policies
const (
	MissingMetadataMatch = "match" // absent URLs/authors compare equal to each other
	MissingMetadataNever = "never" // absent URLs/authors never match anything
)

// Config holds the complete run configuration
type Config struct {
	Embedding    EmbeddingConfig    `yaml:"embedding" mapstructure:"embedding"`
	Pairing      PairingConfig      `yaml:"pairing" mapstructure:"pairing"`
	Sampling     SamplingConfig     `yaml:"sampling" mapstructure:"sampling"`
	Input        InputConfig        `yaml:"input" mapstructure:"input"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, ollama, hash
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"api_key"` // never written to disk
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds per request
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"` // hash provider only
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// PairingConfig controls candidate generation
type PairingConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	MissingMetadata     string  `yaml:"missing_metadata" mapstructure:"missing_metadata"`
}

// SamplingConfig controls stratified sampling and diversity filtering
type SamplingConfig struct {
	TargetPairs       int    `yaml:"target_pairs" mapstructure:"target_pairs"`
	MaxPairsPerSource int    `yaml:"max_pairs_per_source" mapstructure:"max_pairs_per_source"`
	Strategy          string `yaml:"strategy" mapstructure:"strategy"`
	StratifySmallSets bool   `yaml:"stratify_small_sets" mapstructure:"stratify_small_sets"`
}

// InputConfig limits the statement input
type InputConfig struct {
	MaxStatements int `yaml:"max_statements" mapstructure:"max_statements"` // 0 = all
}

// CacheConfig controls the embedding cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // similarity rows
	EmbedWorkers int `yaml:"embed_workers" mapstructure:"embed_workers"` // concurrent embedding batches
}

// RateLimitingConfig throttles embedding API calls per endpoint
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls console output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the reference configuration
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Timeout:    60,
			BatchSize:  128,
			Dimensions: 384,
		},
		Pairing: PairingConfig{
			SimilarityThreshold: 0.3,
			MissingMetadata:     MissingMetadataMatch,
		},
		Sampling: SamplingConfig{
			TargetPairs:       1000,
			MaxPairsPerSource: 100,
			Strategy:          StrategyStratified,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".contrapair-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      4,
			EmbedWorkers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
	}
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	t := c.Pairing.SimilarityThreshold
	if math.IsNaN(t) || t < -1 || t > 1 {
		return fmt.Errorf("similarity_threshold must be within [-1, 1], got %v", t)
	}

	switch c.Pairing.MissingMetadata {
	case MissingMetadataMatch, MissingMetadataNever:
	default:
		return fmt.Errorf("unknown missing_metadata policy: %q (supported: %s, %s)", c.Pairing.MissingMetadata, MissingMetadataMatch, MissingMetadataNever)
	}

	if c.Sampling.TargetPairs < 0 {
		return fmt.Errorf("target_pairs must not be negative, got %d", c.Sampling.TargetPairs)
	}
	if c.Sampling.MaxPairsPerSource < 1 {
		return fmt.Errorf("max_pairs_per_source must be at least 1, got %d", c.Sampling.MaxPairsPerSource)
	}

	switch c.Sampling.Strategy {
	case StrategyStratified, StrategyDiverse:
	default:
		return fmt.Errorf("unknown sampling strategy: %q (supported: %s, %s)", c.Sampling.Strategy, StrategyStratified, StrategyDiverse)
	}

	if c.Input.MaxStatements < 0 {
		return fmt.Errorf("max_statements must not be negative, got %d", c.Input.MaxStatements)
	}
	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.Embedding.BatchSize)
	}

	return nil
}
