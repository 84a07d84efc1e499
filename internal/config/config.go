/*
PURPOSE:
  Defines the configuration structure and loading logic for onetrace.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Six tracing options, read once at startup and frozen afterwards.
  - With no option set, report host and device timing.

  Implementation-discovered:
  - The launcher passes options to the profiled process through
    ONETRACE_* environment variables.
  - Needs to support YAML parsing for paths and defaults.
  - Precedence: defaults < YAML file < environment.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/tracer, pkg/onetrace
  - Dependencies: gopkg.in/yaml.v3, github.com/kelseyhightower/envconfig

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Returns explicit error if an environment value cannot be parsed.
  - A missing default file falls back to defaults.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml and envconfig.
  - No envconfig `default` tags: they would override YAML values.

USAGE:
  cfg, err := config.Load("")
  opts := cfg.Options()

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/cli/root.go
  - internal/model/types.go

MAINTENANCE:
  - Update when adding new tracing options.
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/daryltucker/onetrace/internal/model"
)

// Environment variable names understood by the profiled process.
const (
	EnvCallLogging          = "ONETRACE_CALL_LOGGING"
	EnvHostTiming           = "ONETRACE_HOST_TIMING"
	EnvDeviceTiming         = "ONETRACE_DEVICE_TIMING"
	EnvDeviceTimeline       = "ONETRACE_DEVICE_TIMELINE"
	EnvChromeDeviceTimeline = "ONETRACE_CHROME_DEVICE_TIMELINE"
	EnvChromeCallLogging    = "ONETRACE_CHROME_CALL_LOGGING"
	EnvConfigFile           = "ONETRACE_CONFIG"
)

// DefaultTraceFile is the Chrome trace file name.
const DefaultTraceFile = "onetrace.json"

// Config represents the full configuration for onetrace.
type Config struct {
	CallLogging          bool `yaml:"call_logging" envconfig:"ONETRACE_CALL_LOGGING"`
	HostTiming           bool `yaml:"host_timing" envconfig:"ONETRACE_HOST_TIMING"`
	DeviceTiming         bool `yaml:"device_timing" envconfig:"ONETRACE_DEVICE_TIMING"`
	DeviceTimeline       bool `yaml:"device_timeline" envconfig:"ONETRACE_DEVICE_TIMELINE"`
	ChromeDeviceTimeline bool `yaml:"chrome_device_timeline" envconfig:"ONETRACE_CHROME_DEVICE_TIMELINE"`
	ChromeCallLogging    bool `yaml:"chrome_call_logging" envconfig:"ONETRACE_CHROME_CALL_LOGGING"`

	// TraceFile is where the Chrome timeline is stored.
	TraceFile string `yaml:"trace_file" envconfig:"ONETRACE_TRACE_FILE"`
	// FinalizeTrace closes the JSON array on teardown.
	FinalizeTrace bool `yaml:"finalize_trace" envconfig:"ONETRACE_FINALIZE_TRACE"`
	// ReportCSV, if set, receives a CSV copy of the timing tables.
	ReportCSV string `yaml:"report_csv" envconfig:"ONETRACE_REPORT_CSV"`
	// MetricsFile, if set, receives session metrics in Prometheus text format.
	MetricsFile string `yaml:"metrics_file" envconfig:"ONETRACE_METRICS_FILE"`
	LogLevel    string `yaml:"log_level" envconfig:"ONETRACE_LOG_LEVEL"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TraceFile: DefaultTraceFile,
		LogLevel:  "info",
	}
}

// Options returns the frozen option set. An empty selection falls back to
// host timing plus device timing.
func (c *Config) Options() model.OptionSet {
	var opts []model.Option
	flags := []struct {
		on  bool
		opt model.Option
	}{
		{c.CallLogging, model.CallLogging},
		{c.HostTiming, model.HostTiming},
		{c.DeviceTiming, model.DeviceTiming},
		{c.DeviceTimeline, model.DeviceTimeline},
		{c.ChromeDeviceTimeline, model.ChromeDeviceTimeline},
		{c.ChromeCallLogging, model.ChromeCallLogging},
	}
	for _, f := range flags {
		if f.on {
			opts = append(opts, f.opt)
		}
	}
	if len(opts) == 0 {
		return model.NewOptionSet(model.HostTiming, model.DeviceTiming)
	}
	return model.NewOptionSet(opts...)
}

// Env returns the ONETRACE_* assignments that reproduce the option
// selection in a child process. Every option is listed, 0 or 1, so the
// child ignores its own config file and inherited values for them.
func (c *Config) Env() []string {
	var env []string
	set := func(name string, on bool) {
		v := "0"
		if on {
			v = "1"
		}
		env = append(env, name+"="+v)
	}
	set(EnvCallLogging, c.CallLogging)
	set(EnvHostTiming, c.HostTiming)
	set(EnvDeviceTiming, c.DeviceTiming)
	set(EnvDeviceTimeline, c.DeviceTimeline)
	set(EnvChromeDeviceTimeline, c.ChromeDeviceTimeline)
	set(EnvChromeCallLogging, c.ChromeCallLogging)
	return env
}

// Load reads configuration from a file, then applies environment overrides.
// If path is empty, ONETRACE_CONFIG is tried, then the default file names.
// If no file is found, the defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read ONETRACE_* environment: %w", err)
	}
	return cfg, nil
}

// LoadFile reads only the YAML layer.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		// Search for defaults
		defaults := []string{"onetrace.yaml", "onetrace.yml"}
		found := false
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.TraceFile == "" {
		cfg.TraceFile = DefaultTraceFile
	}

	return cfg, nil
}
