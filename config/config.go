package config

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Fuzzing   FuzzingConfig  `yaml:"fuzzing"`
	Operators map[string]int `yaml:"operators"`
	Output    OutputConfig   `yaml:"output"`
	Log       LogConfig      `yaml:"log"`
}

// FuzzingConfig holds fuzzing-related configuration
type FuzzingConfig struct {
	Enabled        bool   `yaml:"enabled"`
	CorpusDir      string `yaml:"corpus_dir"`
	Iterations     int    `yaml:"iterations"`
	Threads        int    `yaml:"threads"`
	Seed           int64  `yaml:"seed"`
	MaxInputSize   int    `yaml:"max_input_size"`
	MaxRepetitions int    `yaml:"max_repetitions"`
	Experimental   bool   `yaml:"experimental"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Directory string `yaml:"directory"`
	Level     string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Fuzzing: FuzzingConfig{
			Enabled:        true,
			CorpusDir:      "corpus",
			Iterations:     1000,
			Threads:        1,
			MaxInputSize:   1 << 20,
			MaxRepetitions: 64,
		},
		Operators: map[string]int{
			"delete_line":             10,
			"delete_sequential_lines": 5,
			"duplicate_line":          10,
			"copy_line_close_by":      10,
			"repeat_line":             5,
			"swap_line":               10,
		},
		Output: OutputConfig{Directory: "out"},
		Log:    LogConfig{Directory: "logs", Level: "info"},
	}
}

// LoadConfig loads configuration from the specified YAML file. Fields the
// file omits keep their Default values.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Fuzzing.Iterations < 0 {
		return errors.Newf("fuzzing.iterations must not be negative, got %d", c.Fuzzing.Iterations)
	}
	if c.Fuzzing.Threads < 1 {
		return errors.Newf("fuzzing.threads must be positive, got %d", c.Fuzzing.Threads)
	}
	if c.Fuzzing.MaxInputSize <= 0 {
		return errors.Newf("fuzzing.max_input_size must be positive, got %d", c.Fuzzing.MaxInputSize)
	}
	if c.Fuzzing.MaxRepetitions < 0 {
		return errors.Newf("fuzzing.max_repetitions must not be negative, got %d", c.Fuzzing.MaxRepetitions)
	}
	total := 0
	for name, w := range c.Operators {
		if w < 0 {
			return errors.Newf("operators.%s weight must not be negative, got %d", name, w)
		}
		total += w
	}
	if total == 0 {
		return errors.New("at least one operator needs a positive weight")
	}
	return nil
}

// GetOutputPath returns the output directory path
func (c *Config) GetOutputPath() string {
	return c.Output.Directory
}

// GetLogPath returns the log directory path
func (c *Config) GetLogPath() string {
	return c.Log.Directory
}

// IsFuzzingEnabled returns whether fuzzing is enabled
func (c *Config) IsFuzzingEnabled() bool {
	return c.Fuzzing.Enabled
}

// PrintConfig prints the current configuration (for debugging)
func (c *Config) PrintConfig() {
	fmt.Println("=== LineFuzz Configuration ===")
	fmt.Printf("Fuzzing Enabled: %t\n", c.IsFuzzingEnabled())
	fmt.Printf("Corpus Directory: %s\n", c.Fuzzing.CorpusDir)
	fmt.Printf("Iterations: %d\n", c.Fuzzing.Iterations)
	fmt.Printf("Threads: %d\n", c.Fuzzing.Threads)
	fmt.Printf("Seed: %d\n", c.Fuzzing.Seed)
	fmt.Printf("Operators: %v\n", c.Operators)
	fmt.Printf("Output Directory: %s\n", c.GetOutputPath())
	fmt.Printf("Log Directory: %s\n", c.GetLogPath())
	fmt.Println("==============================")
}
