// Package config loads frame-guide settings from defaults, an optional YAML
// file, a .env file and FRAME_GUIDE_* environment variables, in increasing
// order of precedence. Command line flags bound to the viper instance win
// over all of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
	"github.com/ironsheep/frame-guide-mcp/internal/detection"
)

// EnvPrefix prefixes every environment variable, e.g. FRAME_GUIDE_LOG_LEVEL.
const EnvPrefix = "FRAME_GUIDE"

// Settings is the validated configuration for every command.
type Settings struct {
	Log        LogSettings        `mapstructure:"log"`
	Locale     string             `mapstructure:"locale"`
	Metrics    MetricsSettings    `mapstructure:"metrics"`
	Frame      FrameSettings      `mapstructure:"frame"`
	Guide      GuideSettings      `mapstructure:"guide"`
	Edge       EdgeSettings       `mapstructure:"edge"`
	Thresholds ThresholdSettings  `mapstructure:"thresholds"`
	VehicleAPI VehicleAPISettings `mapstructure:"vehicle_api"`
}

type LogSettings struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	File  string `mapstructure:"file"`
}

type MetricsSettings struct {
	// Addr is the listen address for /metrics and /healthz. Empty disables it.
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

type FrameSettings struct {
	// MaxDimension downscales larger frames before detection. Zero keeps the
	// original size.
	MaxDimension int `mapstructure:"max_dimension" validate:"gte=0"`
}

type GuideSettings struct {
	// Region is x, y, width, height of the on-screen guide, normalized.
	Region []float64 `mapstructure:"region" validate:"len=4,dive,gte=0,lte=1"`
}

type EdgeSettings struct {
	Margin     float64 `mapstructure:"margin" validate:"gte=0,lte=0.5"`
	Threshold  float64 `mapstructure:"threshold" validate:"gte=0,lte=255"`
	SampleStep int     `mapstructure:"sample_step" validate:"gte=1,lte=32"`
}

type ThresholdSettings struct {
	MatchedConfidence float64 `mapstructure:"matched_confidence" validate:"gte=0,lte=1"`
	GoodConfidence    float64 `mapstructure:"good_confidence" validate:"gte=0,lte=1"`
	AdjustConfidence  float64 `mapstructure:"adjust_confidence" validate:"gte=0,lte=1"`
	MatchedIoU        float64 `mapstructure:"matched_iou" validate:"gte=0,lte=1"`
}

// VehicleAPISettings configures the remote vehicle detector. The client is
// disabled unless both keys are set.
type VehicleAPISettings struct {
	APIKey        string        `mapstructure:"api_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RatePerSecond float64       `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst         int           `mapstructure:"burst" validate:"gte=1"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// Configured reports whether credentials are present.
func (s VehicleAPISettings) Configured() bool {
	return s.APIKey != "" && s.SecretKey != ""
}

// GuideRegion returns the configured guide region as a box.
func (s *Settings) GuideRegion() alignment.Box {
	r := s.Guide.Region
	return alignment.Box{X: r[0], Y: r[1], Width: r[2], Height: r[3]}
}

// EdgeOptions returns the configured edge scan parameters.
func (s *Settings) EdgeOptions() detection.EdgeOptions {
	return detection.EdgeOptions{
		Margin:     s.Edge.Margin,
		Threshold:  s.Edge.Threshold,
		SampleStep: s.Edge.SampleStep,
	}
}

// AlignmentThresholds returns the configured status thresholds.
func (s *Settings) AlignmentThresholds() alignment.Thresholds {
	return alignment.Thresholds{
		MatchedConfidence: s.Thresholds.MatchedConfidence,
		GoodConfidence:    s.Thresholds.GoodConfidence,
		AdjustConfidence:  s.Thresholds.AdjustConfidence,
		MatchedIoU:        s.Thresholds.MatchedIoU,
	}
}

// MessageLocale resolves the configured locale string.
func (s *Settings) MessageLocale() alignment.Locale {
	return alignment.ParseLocale(s.Locale)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("locale", "en")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("frame.max_dimension", 1280)
	v.SetDefault("guide.region", []float64{0.08, 0.24, 0.84, 0.54})

	edge := detection.DefaultEdgeOptions()
	v.SetDefault("edge.margin", edge.Margin)
	v.SetDefault("edge.threshold", edge.Threshold)
	v.SetDefault("edge.sample_step", edge.SampleStep)

	t := alignment.DefaultThresholds()
	v.SetDefault("thresholds.matched_confidence", t.MatchedConfidence)
	v.SetDefault("thresholds.good_confidence", t.GoodConfidence)
	v.SetDefault("thresholds.adjust_confidence", t.AdjustConfidence)
	v.SetDefault("thresholds.matched_iou", t.MatchedIoU)

	v.SetDefault("vehicle_api.api_key", "")
	v.SetDefault("vehicle_api.secret_key", "")
	v.SetDefault("vehicle_api.base_url", "https://aip.baidubce.com")
	v.SetDefault("vehicle_api.timeout", 10*time.Second)
	v.SetDefault("vehicle_api.rate_per_second", 2.0)
	v.SetDefault("vehicle_api.burst", 2)
	v.SetDefault("vehicle_api.cache_ttl", 5*time.Minute)
}

// NewViper returns a viper instance with defaults and environment binding in
// place. Callers bind command line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Defaults returns the settings Load yields when no file, environment
// variable or flag sets anything.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	return settings
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file. It must exist when set. When empty,
	// frame-guide.yaml is looked up in the working directory and ignored if
	// absent.
	ConfigFile string

	// EnvFile is a dotenv file whose variables are exported before reading the
	// environment. Missing files are ignored. Empty means ".env".
	EnvFile string
}

// Load reads, unmarshals and validates the settings.
func Load(v *viper.Viper, opts LoadOptions) (*Settings, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading %s: %w", envFile, err)
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("frame-guide")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

var validate = validator.New()

// Validate checks field ranges.
func Validate(s *Settings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}
