package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config captures the runtime knobs for the experiment pair.
type Config struct {
	DataDir        string `yaml:"data_dir"`
	Steps          int    `yaml:"steps"`
	BatchSize      int    `yaml:"batch_size"`
	Seed           int64  `yaml:"seed"`
	PlotPath       string `yaml:"plot_path"`
	SmallEvalEvery int    `yaml:"small_eval_every"`
	LargeEvalEvery int    `yaml:"large_eval_every"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataDir   string
	Steps     int
	BatchSize int
	Seed      int64
	PlotPath  string
}

// Default returns the configuration of the illustrative runs: 500,000
// steps of batch 32, with the small model evaluated every 20,000 steps and
// the large one every 10,000.
func Default() *Config {
	return &Config{
		DataDir:        "mnist_data",
		Steps:          500000,
		BatchSize:      32,
		Seed:           42,
		PlotPath:       "accuracy.png",
		SmallEvalEvery: 20000,
		LargeEvalEvery: 10000,
	}
}

// Load reads and validates a Config from YAML. Keys absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Steps > 0 {
		c.Steps = o.Steps
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.PlotPath != "" {
		c.PlotPath = o.PlotPath
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be > 0 (got %d)", c.Steps)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.SmallEvalEvery <= 0 || c.LargeEvalEvery <= 0 {
		return fmt.Errorf("eval intervals must be > 0 (got %d and %d)", c.SmallEvalEvery, c.LargeEvalEvery)
	}
	if c.SmallEvalEvery > c.Steps || c.LargeEvalEvery > c.Steps {
		return fmt.Errorf("eval intervals must not exceed steps (%d)", c.Steps)
	}
	return nil
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: missing ':'", lineNo)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, "\"'")
		switch key {
		case "data_dir":
			cfg.DataDir = value
		case "steps":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: steps: %w", lineNo, err)
			}
			cfg.Steps = v
		case "batch_size":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: batch_size: %w", lineNo, err)
			}
			cfg.BatchSize = v
		case "seed":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: seed: %w", lineNo, err)
			}
			cfg.Seed = v
		case "plot_path":
			cfg.PlotPath = value
		case "small_eval_every":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: small_eval_every: %w", lineNo, err)
			}
			cfg.SmallEvalEvery = v
		case "large_eval_every":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: large_eval_every: %w", lineNo, err)
			}
			cfg.LargeEvalEvery = v
		default:
			return nil, fmt.Errorf("line %d: unknown key %s", lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}
