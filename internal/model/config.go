// Package model defines the configuration structures used to initialize the
// Hydrosync station: serial link, pipeline sizing, bench constants, dashboard,
// CSV recorder and logging.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// AutoPort asks the station to pick the first suitable serial port.
const AutoPort = "auto"

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Logging   LoggingConfig   `yaml:"logging"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Bench     BenchConfig     `yaml:"bench"`
}

// SerialConfig describes the device link.
type SerialConfig struct {
	Port                 string `yaml:"port" validate:"required"`
	Baud                 int    `yaml:"baud" validate:"gt=0"`
	ReadTimeoutMs        int    `yaml:"read_timeout_ms" validate:"gt=0,lte=1000"`
	RetryDelayMs         int    `yaml:"retry_delay_ms" validate:"gte=0"`
	MaxConsecutiveErrors int    `yaml:"max_consecutive_errors" validate:"gte=0"` // 0 retries forever
}

// PipelineConfig sizes the rolling buffers and the consumer tick.
type PipelineConfig struct {
	BufferSize       int `yaml:"buffer_size" validate:"gt=0"`
	ConsumerPeriodMs int `yaml:"consumer_period_ms" validate:"gt=0"`
}

// BenchConfig holds the electrical constants of the rig.
type BenchConfig struct {
	LoadOhms   float64 `yaml:"load_ohms" validate:"gt=0"`
	AnalogMaxV float64 `yaml:"analog_max_v" validate:"gt=0"`
}

// DashboardConfig configures the HTTP/websocket front end. An empty Addr
// disables it.
type DashboardConfig struct {
	Addr              string `yaml:"addr"`
	CommandsPerMinute int    `yaml:"commands_per_minute" validate:"gt=0"`
	CommandBurst      int    `yaml:"command_burst" validate:"gt=0"`
}

// RecorderConfig configures the CSV side log.
type RecorderConfig struct {
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig configures the rotating log file.
type LoggingConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// DefaultConfig returns the settings used for keys missing from the file.
func DefaultConfig() Config {
	return Config{
		Serial: SerialConfig{
			Port:                 AutoPort,
			Baud:                 115200,
			ReadTimeoutMs:        50,
			RetryDelayMs:         100,
			MaxConsecutiveErrors: 50,
		},
		Pipeline: PipelineConfig{
			BufferSize:       600,
			ConsumerPeriodMs: 100,
		},
		Bench: BenchConfig{
			LoadOhms:   220,
			AnalogMaxV: 3.3,
		},
		Dashboard: DashboardConfig{
			Addr:              ":8080",
			CommandsPerMinute: 120,
			CommandBurst:      10,
		},
		Recorder: RecorderConfig{
			Enabled: true,
			Path:    "hydro_log.csv",
		},
		Logging: LoggingConfig{
			File: "logs/hydrosync.log",
		},
	}
}

// ReadTimeout is the bounded wait of a single serial read.
func (c SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// RetryDelay is the pause after a transient read error.
func (c SerialConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ConsumerPeriod is the consumer tick interval.
func (c PipelineConfig) ConsumerPeriod() time.Duration {
	return time.Duration(c.ConsumerPeriodMs) * time.Millisecond
}

// LoadConfig reads the YAML file at path from fs, layers it over
// DefaultConfig and validates the result.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their YAML keys.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists every invalid config field.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Fields, "; ")
}

// Validate checks value ranges. It returns a *ValidationError describing
// every offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	ve := &ValidationError{Fields: make([]string, 0, len(verrs))}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, formatFieldError(fe))
	}
	return ve
}

func formatFieldError(fe validator.FieldError) string {
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "lte":
		return field + " must be at most " + fe.Param()
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
