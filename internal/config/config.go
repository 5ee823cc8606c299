package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultWindowCount      = 6
	DefaultWindowGap        = 600
	DefaultMaxBacktracks    = 5
	DefaultDaySteps         = 57600
	DefaultCells            = 8000
	DefaultLightInterval    = 800
	DefaultODInterval       = 40
	DefaultDistanceInterval = 200
	DefaultHTTPPort         = 8080
)

// Config is the top-level pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Features FeaturesConfig `yaml:"features"`
	Windows  WindowsConfig  `yaml:"windows"`
	Watch    WatchConfig    `yaml:"watch"`
}

// PipelineConfig holds the run-level settings.
type PipelineConfig struct {
	// Input is the vehicle-data CSV to process (one-shot mode).
	Input string `yaml:"input"`

	// Output is the path the annotated table is written to. In watch
	// mode it is a directory; per-input output names are derived.
	Output string `yaml:"output"`

	// Workers bounds how many groups are aggregated concurrently.
	// Zero means one per available CPU.
	Workers int `yaml:"workers"`
}

// FeaturesConfig describes the simulated network for the upstream
// column-derivation stage.
type FeaturesConfig struct {
	// Enabled toggles the derivation stage. Disable it when the input
	// already carries the derived columns.
	Enabled bool `yaml:"enabled"`

	// Cells is the number of cells on the ring network.
	Cells int64 `yaml:"cells"`

	// LightInterval is the cell spacing between traffic lights.
	LightInterval int64 `yaml:"light_interval"`

	// ODInterval is the base cell spacing of the OD buckets.
	ODInterval int64 `yaml:"od_interval"`

	// MinDistance drops trips whose path length does not exceed it.
	MinDistance int64 `yaml:"min_distance"`

	// DistanceInterval is the base width of the distance buckets.
	DistanceInterval int64 `yaml:"distance_interval"`

	// DaySteps is the length of one simulated day in timestamp units.
	DaySteps int64 `yaml:"day_steps"`
}

// WindowsConfig holds the trailing-window aggregation settings.
type WindowsConfig struct {
	// Count is the number of trailing windows per target (W).
	Count int `yaml:"count"`

	// Gap is the width of each window in timestamp units (G).
	Gap int64 `yaml:"gap"`

	// Targets are the numeric columns to aggregate.
	Targets []string `yaml:"targets"`

	// GroupBy are the columns whose concatenation keys a group.
	GroupBy []string `yaml:"group_by"`

	// TimeColumn and DateColumn override the simulator column names.
	TimeColumn string `yaml:"time_column"`
	DateColumn string `yaml:"date_column"`

	// BacktrackPeriod is the daily-cycle shift used when a window is
	// empty. Zero means features.day_steps.
	BacktrackPeriod int64 `yaml:"backtrack_period"`

	// MaxBacktracks bounds how many cycles back the search may go.
	MaxBacktracks int `yaml:"max_backtracks"`

	// DropFirstDay removes rows from the first observed simulated day.
	DropFirstDay bool `yaml:"drop_first_day"`
}

// WatchConfig turns the binary into a long-running service processing
// every CSV dropped into a directory.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir is the directory watched for new .csv files.
	Dir string `yaml:"dir"`

	// HTTPPort serves the status API and Prometheus metrics.
	HTTPPort int `yaml:"http_port"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if cfg.Windows.BacktrackPeriod == 0 {
		cfg.Windows.BacktrackPeriod = cfg.Features.DaySteps
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with the reference setup.
func defaults() *Config {
	return &Config{
		Features: FeaturesConfig{
			Enabled:          true,
			Cells:            DefaultCells,
			LightInterval:    DefaultLightInterval,
			ODInterval:       DefaultODInterval,
			DistanceInterval: DefaultDistanceInterval,
			DaySteps:         DefaultDaySteps,
		},
		Windows: WindowsConfig{
			Count:         DefaultWindowCount,
			Gap:           DefaultWindowGap,
			Targets:       []string{"Travel Time"},
			GroupBy:       []string{"OD_Dig_2"},
			MaxBacktracks: DefaultMaxBacktracks,
			DropFirstDay:  true,
		},
		Watch: WatchConfig{
			HTTPPort: DefaultHTTPPort,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Windows.Count < 1 {
		return fmt.Errorf("windows.count must be >= 1")
	}
	if cfg.Windows.Gap <= 0 {
		return fmt.Errorf("windows.gap must be positive")
	}
	if len(cfg.Windows.Targets) == 0 {
		return fmt.Errorf("windows.targets must not be empty")
	}
	if len(cfg.Windows.GroupBy) == 0 {
		return fmt.Errorf("windows.group_by must not be empty")
	}
	if cfg.Windows.MaxBacktracks < 0 {
		return fmt.Errorf("windows.max_backtracks must be >= 0")
	}
	if cfg.Windows.MaxBacktracks > 0 && cfg.Windows.BacktrackPeriod <= 0 {
		return fmt.Errorf("windows.backtrack_period must be positive")
	}
	if cfg.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must be >= 0")
	}
	if cfg.Features.Enabled {
		if cfg.Features.Cells <= 0 {
			return fmt.Errorf("features.cells must be positive")
		}
		if cfg.Features.LightInterval <= 0 || cfg.Features.LightInterval > cfg.Features.Cells {
			return fmt.Errorf("features.light_interval must be in 1..features.cells")
		}
		if cfg.Features.ODInterval <= 0 {
			return fmt.Errorf("features.od_interval must be positive")
		}
		if cfg.Features.DistanceInterval <= 0 {
			return fmt.Errorf("features.distance_interval must be positive")
		}
		if cfg.Features.DaySteps <= 0 {
			return fmt.Errorf("features.day_steps must be positive")
		}
	}
	if cfg.Watch.Enabled {
		if cfg.Watch.Dir == "" {
			return fmt.Errorf("watch.dir is required when watch is enabled")
		}
		if cfg.Pipeline.Output == "" {
			return fmt.Errorf("pipeline.output is required when watch is enabled")
		}
		if cfg.Watch.HTTPPort <= 0 || cfg.Watch.HTTPPort > 65535 {
			return fmt.Errorf("watch.http_port must be a valid port")
		}
	}
	return nil
}
