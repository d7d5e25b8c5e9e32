package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/plus3/luminara/ecs"
)

// Config holds the runtime settings of an App. It is stored in the World as a
// resource so systems can read it.
type Config struct {
	// Workers bounds scheduler and ParForEach goroutines; 0 means GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`
	// FrameInterval is the target frame time of Run.
	FrameInterval time.Duration `toml:"frame_interval" yaml:"frame_interval"`
	// ParallelChunkSize is the number of matches per ParForEach task.
	ParallelChunkSize int `toml:"parallel_chunk_size" yaml:"parallel_chunk_size"`

	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return *defaults()
}

func defaults() *Config {
	return &Config{
		Workers:           0,
		FrameInterval:     time.Second / 60,
		ParallelChunkSize: ecs.DefaultChunkSize,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Parallelism converts the worker settings to the ecs resource.
func (c Config) Parallelism() ecs.Parallelism {
	return ecs.Parallelism{Workers: c.Workers, ChunkSize: c.ParallelChunkSize}
}

// LoadConfig reads a .toml, .yaml or .yml file over the defaults. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedConfig, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
