package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ligustah/zincdl/internal/progress"
	"github.com/ligustah/zincdl/internal/tranche"
)

// Config defines configuration for the zincdl CLI.
type Config struct {
	Tranche TrancheConfig `yaml:"tranche"`

	Concurrency       int           `yaml:"concurrency"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	ChunkSize         int64         `yaml:"chunk_size"`
	MaxChunkPause     time.Duration `yaml:"max_chunk_pause"`
	MaxPending        int           `yaml:"max_pending"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`

	OutDir   string `yaml:"out_dir"`
	Progress bool   `yaml:"progress"`
	Verbose  bool   `yaml:"verbose"`
}

// TrancheConfig selects which tranches to fetch.
type TrancheConfig struct {
	Subset         string   `yaml:"subset"`
	MW             []string `yaml:"mw"`
	LogP           []string `yaml:"logp"`
	Reactivity     string   `yaml:"reactivity"`
	Purchasability string   `yaml:"purchasability"`
	ReacExclusive  bool     `yaml:"reac_exclusive"`
	PurchExclusive bool     `yaml:"purch_exclusive"`
	PH             []string `yaml:"ph"`
	Charge         []string `yaml:"charge"`
	Format         string   `yaml:"format"`
	BaseURL        string   `yaml:"base_url"`
}

// Params converts the selection for the URL generator.
func (t TrancheConfig) Params() tranche.Params {
	return tranche.Params{
		Subset:         t.Subset,
		MW:             t.MW,
		LogP:           t.LogP,
		Reactivity:     t.Reactivity,
		Purchasability: t.Purchasability,
		ReacExclusive:  t.ReacExclusive,
		PurchExclusive: t.PurchExclusive,
		PH:             t.PH,
		Charge:         t.Charge,
		Format:         t.Format,
		BaseURL:        t.BaseURL,
	}
}

// Default returns a Config with sensible defaults.
func Default() Config {
	p := tranche.DefaultParams()
	return Config{
		Tranche: TrancheConfig{
			MW:             p.MW,
			LogP:           p.LogP,
			Reactivity:     p.Reactivity,
			Purchasability: p.Purchasability,
			ReacExclusive:  p.ReacExclusive,
			PurchExclusive: p.PurchExclusive,
			PH:             p.PH,
			Charge:         p.Charge,
			Format:         p.Format,
			BaseURL:        p.BaseURL,
		},
		Concurrency:   4,
		Timeout:       5 * time.Second,
		MaxRetries:    3,
		ChunkSize:     8192,
		MaxChunkPause: 50 * time.Millisecond,
		OutDir:        "downloads/zinc",
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
// Pointers distinguish an explicit zero or false from an absent key.
type yamlConfig struct {
	Tranche yamlTrancheConfig `yaml:"tranche"`

	Concurrency       int      `yaml:"concurrency"`
	Timeout           string   `yaml:"timeout"`
	MaxRetries        *int     `yaml:"max_retries"`
	ChunkSize         string   `yaml:"chunk_size"`
	MaxChunkPause     string   `yaml:"max_chunk_pause"`
	MaxPending        int      `yaml:"max_pending"`
	RequestsPerSecond *float64 `yaml:"requests_per_second"`

	OutDir   string `yaml:"out_dir"`
	Progress bool   `yaml:"progress"`
	Verbose  bool   `yaml:"verbose"`
}

type yamlTrancheConfig struct {
	Subset         string   `yaml:"subset"`
	MW             []string `yaml:"mw"`
	LogP           []string `yaml:"logp"`
	Reactivity     string   `yaml:"reactivity"`
	Purchasability string   `yaml:"purchasability"`
	ReacExclusive  *bool    `yaml:"reac_exclusive"`
	PurchExclusive *bool    `yaml:"purch_exclusive"`
	PH             []string `yaml:"ph"`
	Charge         []string `yaml:"charge"`
	Format         string   `yaml:"format"`
	BaseURL        string   `yaml:"base_url"`
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	t := &cfg.Tranche
	if yc.Tranche.Subset != "" {
		t.Subset = yc.Tranche.Subset
	}
	if yc.Tranche.MW != nil {
		t.MW = yc.Tranche.MW
	}
	if yc.Tranche.LogP != nil {
		t.LogP = yc.Tranche.LogP
	}
	if yc.Tranche.Reactivity != "" {
		t.Reactivity = yc.Tranche.Reactivity
	}
	if yc.Tranche.Purchasability != "" {
		t.Purchasability = yc.Tranche.Purchasability
	}
	if yc.Tranche.ReacExclusive != nil {
		t.ReacExclusive = *yc.Tranche.ReacExclusive
	}
	if yc.Tranche.PurchExclusive != nil {
		t.PurchExclusive = *yc.Tranche.PurchExclusive
	}
	if yc.Tranche.PH != nil {
		t.PH = yc.Tranche.PH
	}
	if yc.Tranche.Charge != nil {
		t.Charge = yc.Tranche.Charge
	}
	if yc.Tranche.Format != "" {
		t.Format = yc.Tranche.Format
	}
	if yc.Tranche.BaseURL != "" {
		t.BaseURL = yc.Tranche.BaseURL
	}

	if yc.Concurrency != 0 {
		cfg.Concurrency = yc.Concurrency
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.MaxRetries != nil {
		cfg.MaxRetries = *yc.MaxRetries
	}
	if yc.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		cfg.ChunkSize = size
	}
	if yc.MaxChunkPause != "" {
		d, err := time.ParseDuration(yc.MaxChunkPause)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_chunk_pause: %w", err)
		}
		cfg.MaxChunkPause = d
	}
	if yc.MaxPending != 0 {
		cfg.MaxPending = yc.MaxPending
	}
	if yc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *yc.RequestsPerSecond
	}
	if yc.OutDir != "" {
		cfg.OutDir = yc.OutDir
	}
	cfg.Progress = yc.Progress
	cfg.Verbose = yc.Verbose

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the ZINCDL_ prefix. List values are
// comma-separated.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ZINCDL_SUBSET"); v != "" {
		c.Tranche.Subset = v
	}
	if v := os.Getenv("ZINCDL_MW"); v != "" {
		c.Tranche.MW = tranche.ParseList(v)
	}
	if v := os.Getenv("ZINCDL_LOGP"); v != "" {
		c.Tranche.LogP = tranche.ParseList(v)
	}
	if v := os.Getenv("ZINCDL_REACTIVITY"); v != "" {
		c.Tranche.Reactivity = v
	}
	if v := os.Getenv("ZINCDL_PURCHASABILITY"); v != "" {
		c.Tranche.Purchasability = v
	}
	if v := os.Getenv("ZINCDL_REAC_EXCLUSIVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_REAC_EXCLUSIVE: %w", err)
		}
		c.Tranche.ReacExclusive = b
	}
	if v := os.Getenv("ZINCDL_PURCH_EXCLUSIVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_PURCH_EXCLUSIVE: %w", err)
		}
		c.Tranche.PurchExclusive = b
	}
	if v := os.Getenv("ZINCDL_PH"); v != "" {
		c.Tranche.PH = tranche.ParseList(v)
	}
	if v := os.Getenv("ZINCDL_CHARGE"); v != "" {
		c.Tranche.Charge = tranche.ParseList(v)
	}
	if v := os.Getenv("ZINCDL_FORMAT"); v != "" {
		c.Tranche.Format = v
	}
	if v := os.Getenv("ZINCDL_BASE_URL"); v != "" {
		c.Tranche.BaseURL = v
	}
	if v := os.Getenv("ZINCDL_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v := os.Getenv("ZINCDL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("ZINCDL_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	if v := os.Getenv("ZINCDL_CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_CHUNK_SIZE: %w", err)
		}
		c.ChunkSize = size
	}
	if v := os.Getenv("ZINCDL_MAX_CHUNK_PAUSE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_MAX_CHUNK_PAUSE: %w", err)
		}
		c.MaxChunkPause = d
	}
	if v := os.Getenv("ZINCDL_MAX_PENDING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_MAX_PENDING: %w", err)
		}
		c.MaxPending = n
	}
	if v := os.Getenv("ZINCDL_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse ZINCDL_RPS: %w", err)
		}
		c.RequestsPerSecond = f
	}
	if v := os.Getenv("ZINCDL_OUT_DIR"); v != "" {
		c.OutDir = v
	}
	if v := os.Getenv("ZINCDL_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("ZINCDL_VERBOSE"); v != "" {
		c.Verbose = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration, including the tranche selection.
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return errors.New("config: concurrency must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("config: max_retries must not be negative")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.MaxChunkPause < 0 {
		return errors.New("config: max_chunk_pause must not be negative")
	}
	if c.MaxPending < 0 {
		return errors.New("config: max_pending must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("config: requests_per_second must not be negative")
	}
	if c.OutDir == "" {
		return errors.New("config: out_dir is required")
	}
	if _, err := tranche.URLs(c.Tranche.Params()); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
