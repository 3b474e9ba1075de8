package cfg

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"featimp/internal/common"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Settings is the resolved configuration of an importance run.
type Settings struct {
	Method      string  `default:"SFI" validate:"required"`
	Scoring     string  `default:"accuracy" validate:"required"`
	NSplits     int     `default:"10" validate:"gte=2,lte=1000"`
	PctEmbargo  float64 `validate:"gte=0,lt=1"`
	NEstimators int     `default:"1000" validate:"gte=1,lte=100000"`
	MaxSamples  float64 `default:"1" validate:"gt=0,lte=1"`
	NumThreads  int     `default:"24" validate:"gte=1,lte=1024"`
	MinWLeaf    float64 `validate:"gte=0,lte=0.5"`
	Seed        uint64  `default:"42"`
	DataPath    string
	MetricsFile string
	LogLevel    string  `default:"info" validate:"oneof=trace debug info warn error"`
}

// ConfigFile mirrors the YAML layout.
type ConfigFile struct {
	Importance struct {
		Method      string  `yaml:"method"`
		Scoring     string  `yaml:"scoring"`
		NSplits     int     `yaml:"nSplits"`
		PctEmbargo  float64 `yaml:"pctEmbargo"`
		NEstimators int     `yaml:"nEstimators"`
		MaxSamples  float64 `yaml:"maxSamples"`
		NumThreads  int     `yaml:"numThreads"`
		MinWLeaf    float64 `yaml:"minWLeaf"`
		Seed        uint64  `yaml:"seed"`
	} `yaml:"importance"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsFile string `yaml:"metricsFile"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		Method:      config.Importance.Method,
		Scoring:     config.Importance.Scoring,
		NSplits:     config.Importance.NSplits,
		PctEmbargo:  config.Importance.PctEmbargo,
		NEstimators: config.Importance.NEstimators,
		MaxSamples:  config.Importance.MaxSamples,
		NumThreads:  config.Importance.NumThreads,
		MinWLeaf:    config.Importance.MinWLeaf,
		Seed:        config.Importance.Seed,
		DataPath:    config.System.DataPath,
		MetricsFile: config.System.MetricsFile,
		LogLevel:    config.System.LogLevel,
	}
	return finish(settings)
}

func loadFromEnv() (Settings, error) {
	return finish(Settings{})
}

// finish applies environment overrides, fills zero values with defaults and
// validates the result.
func finish(s Settings) (Settings, error) {
	var err error
	s.Method = strings.ToUpper(getEnvOrDefault(common.EnvMethod, s.Method))
	s.Scoring = getEnvOrDefault(common.EnvScoring, s.Scoring)
	s.DataPath = getEnvOrDefault(common.EnvDataPath, s.DataPath)
	s.MetricsFile = getEnvOrDefault(common.EnvMetricsFile, s.MetricsFile)
	s.LogLevel = strings.ToLower(getEnvOrDefault(common.EnvLogLevel, s.LogLevel))

	if s.NSplits, err = getInt(common.EnvNSplits, s.NSplits); err != nil {
		return Settings{}, err
	}
	if s.NEstimators, err = getInt(common.EnvNEstimators, s.NEstimators); err != nil {
		return Settings{}, err
	}
	if s.NumThreads, err = getInt(common.EnvNumThreads, s.NumThreads); err != nil {
		return Settings{}, err
	}
	if s.PctEmbargo, err = getFloat(common.EnvPctEmbargo, s.PctEmbargo); err != nil {
		return Settings{}, err
	}
	if s.MaxSamples, err = getFloat(common.EnvMaxSamples, s.MaxSamples); err != nil {
		return Settings{}, err
	}
	if s.MinWLeaf, err = getFloat(common.EnvMinWLeaf, s.MinWLeaf); err != nil {
		return Settings{}, err
	}
	if v := os.Getenv(common.EnvSeed); v != "" {
		if s.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return Settings{}, fmt.Errorf("%w: %s=%q is not an unsigned integer", common.ErrInvalidConfiguration, common.EnvSeed, v)
		}
	}

	if err := defaults.Set(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to apply defaults: %w", err)
	}

	// Validate configuration
	if err := validateSettings(&s); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(key string, configValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return configValue, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", common.ErrInvalidConfiguration, key, v)
	}
	return i, nil
}

func getFloat(key string, configValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return configValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", common.ErrInvalidConfiguration, key, v)
	}
	return f, nil
}

// validateSettings checks field ranges, then the method and scoring names.
func validateSettings(s *Settings) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %s=%s (got %v)", common.ErrInvalidConfiguration, fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidConfiguration, err)
	}

	switch s.Method {
	case common.MethodMDI, common.MethodMDA, common.MethodSFI:
	default:
		return fmt.Errorf("%w: method must be one of MDI, MDA, SFI, got %q", common.ErrInvalidConfiguration, s.Method)
	}

	switch s.Scoring {
	case common.ScoringNegLogLoss, common.ScoringAccuracy:
	default:
		return fmt.Errorf("%w: scoring must be neg_log_loss or accuracy, got %q", common.ErrInvalidConfiguration, s.Scoring)
	}
	return nil
}
