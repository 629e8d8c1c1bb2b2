package config

import (
	"os"
	"strconv"
	"strings"

	"gounlearn/domain/attack"
	"gounlearn/internal/errors"
	"gounlearn/internal/viewmodel"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Data      DataConfig
	View      ViewConfig
	Profiling ProfilingConfig
	LogLevel  string
}

// DatabaseConfig holds database connection settings. An empty URL runs the
// dashboard without an experiment store.
type DatabaseConfig struct {
	URL    string
	Driver string
}

// Enabled reports whether an experiment store is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig names the dataset sources, tried in order: experiment store,
// result file, workbook. Without any of them the newest stored experiment
// is shown, or a synthetic run seeded with SyntheticSeed.
type DataConfig struct {
	ExperimentID  string
	ResultsFile   string
	ExcelFile     string
	SyntheticSeed int64
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// ViewConfig holds the threshold domain and the rendering geometry
type ViewConfig struct {
	Threshold       attack.ThresholdConfig
	GridStep        float64
	BinWidth        float64
	DimOpacity      float64
	DotSize         float64
	HandleTolerance float64
	Histogram       viewmodel.Viewport
	Curves          viewmodel.Viewport
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	defaults := viewmodel.DefaultOptions()

	config := &Config{
		Database: DatabaseConfig{
			URL:    getEnvOrDefault("DATABASE_URL", ""),
			Driver: strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Data: DataConfig{
			ExperimentID:  getEnvOrDefault("EXPERIMENT_ID", ""),
			ResultsFile:   getEnvOrDefault("RESULTS_FILE", ""),
			ExcelFile:     getEnvOrDefault("EXCEL_FILE", ""),
			SyntheticSeed: getEnvInt64OrDefault("SYNTHETIC_SEED", 42),
		},
		View: ViewConfig{
			Threshold: attack.ThresholdConfig{
				Min:     getEnvFloatOrDefault("THRESHOLD_MIN", defaults.Threshold.Min),
				Max:     getEnvFloatOrDefault("THRESHOLD_MAX", defaults.Threshold.Max),
				Step:    getEnvFloatOrDefault("THRESHOLD_STEP", defaults.Threshold.Step),
				Initial: getEnvFloatOrDefault("THRESHOLD_INITIAL", defaults.Threshold.Initial),
			},
			GridStep:        getEnvFloatOrDefault("GRID_STEP", defaults.Grid.Step),
			BinWidth:        getEnvFloatOrDefault("BIN_WIDTH", defaults.BinWidth),
			DimOpacity:      getEnvFloatOrDefault("DIM_OPACITY", defaults.DimOpacity),
			DotSize:         getEnvFloatOrDefault("DOT_SIZE", defaults.DotSize),
			HandleTolerance: getEnvFloatOrDefault("HANDLE_TOLERANCE", defaults.HandleTolerance),
			Histogram: viewmodel.Viewport{
				Width:  getEnvFloatOrDefault("HISTOGRAM_WIDTH", defaults.Histogram.Width),
				Height: getEnvFloatOrDefault("HISTOGRAM_HEIGHT", defaults.Histogram.Height),
			},
			Curves: viewmodel.Viewport{
				Width:  getEnvFloatOrDefault("CURVE_WIDTH", defaults.Curves.Width),
				Height: getEnvFloatOrDefault("CURVE_HEIGHT", defaults.Curves.Height),
			},
		},
		Profiling: ProfilingConfig{
			Port:    getEnvOrDefault("PPROF_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Options converts the view settings into coordinator options
func (c *Config) Options() viewmodel.Options {
	opts := viewmodel.DefaultOptions()
	v := c.View
	opts.Threshold = v.Threshold
	opts.BinWidth = v.BinWidth
	opts.DimOpacity = v.DimOpacity
	opts.DotSize = v.DotSize
	opts.HandleTolerance = v.HandleTolerance
	opts.Histogram = v.Histogram
	opts.Curves = v.Curves
	opts.Grid = attack.GridConfig{Min: v.Threshold.Min, Max: v.Threshold.Max, Step: v.GridStep}
	return opts
}

func validateConfig(config *Config) error {
	v := config.View
	switch {
	case config.Database.Driver != "postgres" && config.Database.Driver != "sqlite":
		return errors.ConfigInvalid("DB_DRIVER must be postgres or sqlite")
	case !(v.Threshold.Min < v.Threshold.Max):
		return errors.ConfigInvalid("THRESHOLD_MIN must be below THRESHOLD_MAX")
	case !(v.Threshold.Step > 0):
		return errors.ConfigInvalid("THRESHOLD_STEP must be positive")
	case !(v.GridStep > 0):
		return errors.ConfigInvalid("GRID_STEP must be positive")
	case !(v.BinWidth > 0):
		return errors.ConfigInvalid("BIN_WIDTH must be positive")
	case !(v.DimOpacity > 0 && v.DimOpacity <= 1):
		return errors.ConfigInvalid("DIM_OPACITY must be in (0, 1]")
	case !(v.DotSize > 0):
		return errors.ConfigInvalid("DOT_SIZE must be positive")
	case !(v.Histogram.Width > 0 && v.Histogram.Height > 0):
		return errors.ConfigInvalid("histogram viewport must be positive")
	case !(v.Curves.Width > 0 && v.Curves.Height > 0):
		return errors.ConfigInvalid("curve viewport must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
