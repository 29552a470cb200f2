package config

import (
	"os"
	"strconv"

	"gllvmord/domain/ordination"
	"gllvmord/internal/errors"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Ordination  ordination.Options `yaml:"ordination"`
	Uncertainty string             `yaml:"uncertainty"`
	Render      RenderConfig       `yaml:"render"`
	Data        DataConfig         `yaml:"data"`
	LogLevel    string             `yaml:"log_level"`
}

// RenderConfig holds output settings
type RenderConfig struct {
	Output       string  `yaml:"output"`
	Report       string  `yaml:"report"`
	WidthInches  float64 `yaml:"width_in"`
	HeightInches float64 `yaml:"height_in"`
	ShowLabels   bool    `yaml:"show_labels"`
}

// DataConfig holds model input settings
type DataConfig struct {
	ModelPath string `yaml:"model"`
	ColorBy   string `yaml:"color_by"`
	ColorBins int    `yaml:"color_bins"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Ordination:  ordination.DefaultOptions(),
		Uncertainty: string(ordination.UncertaintyNone),
		Render: RenderConfig{
			Output:       "ordiplot.png",
			WidthInches:  6,
			HeightInches: 6,
			ShowLabels:   true,
		},
		Data: DataConfig{
			ColorBins: 4,
		},
		LogLevel: "INFO",
	}
}

// Load reads configuration from .env, an optional YAML file and environment
// variables, in that order of increasing precedence, and validates it
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	config := Default()

	if path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, errors.Wrap(err, "failed to read environment configuration")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to parse config file")
	}
	return nil
}

func applyEnv(config *Config) error {
	o := &config.Ordination
	o.Alpha = getEnvFloatOrDefault("ORDI_ALPHA", o.Alpha)
	if v := os.Getenv("ORDI_AXES"); v != "" {
		axes, err := ordination.ParseAxes(v)
		if err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
		o.Axes = axes
	}
	if v := os.Getenv("ORDI_DISPLAY"); v != "" {
		mode, err := ordination.ParseDisplayMode(v)
		if err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
		o.Display = mode
	}
	o.SpeciesSubsetSize = getEnvIntOrDefault("ORDI_IND_SPP", o.SpeciesSubsetSize)
	o.ConfidenceLevel = getEnvFloatOrDefault("ORDI_LEVEL", o.ConfidenceLevel)
	o.JitterAmount = getEnvFloatOrDefault("ORDI_JITTER", o.JitterAmount)
	o.Ellipses = getEnvBoolOrDefault("ORDI_ELLIPSES", o.Ellipses)
	o.Seed = int64(getEnvIntOrDefault("ORDI_SEED", int(o.Seed)))

	config.Uncertainty = getEnvOrDefault("ORDI_UNCERTAINTY", config.Uncertainty)
	config.Render.Output = getEnvOrDefault("ORDI_OUTPUT", config.Render.Output)
	config.Render.Report = getEnvOrDefault("ORDI_REPORT", config.Render.Report)
	config.Render.WidthInches = getEnvFloatOrDefault("ORDI_WIDTH_IN", config.Render.WidthInches)
	config.Render.HeightInches = getEnvFloatOrDefault("ORDI_HEIGHT_IN", config.Render.HeightInches)
	config.Data.ModelPath = getEnvOrDefault("ORDI_MODEL", config.Data.ModelPath)
	config.Data.ColorBy = getEnvOrDefault("ORDI_COLOR_BY", config.Data.ColorBy)
	config.Data.ColorBins = getEnvIntOrDefault("ORDI_COLOR_BINS", config.Data.ColorBins)
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)
	return nil
}

// Validate checks every field that can be checked without a model
func (c *Config) Validate() error {
	if err := c.Ordination.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if _, err := ordination.ParseUncertaintyMode(c.Uncertainty); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if c.Render.WidthInches <= 0 || c.Render.HeightInches <= 0 {
		return errors.ConfigInvalid("render size must be positive")
	}
	if c.Data.ColorBins < 1 {
		return errors.ConfigInvalid("color_bins must be at least 1")
	}
	return nil
}

// UncertaintyMode returns the parsed uncertainty tag; call after Validate
func (c *Config) UncertaintyMode() ordination.UncertaintyMode {
	mode, _ := ordination.ParseUncertaintyMode(c.Uncertainty)
	return mode
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
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
