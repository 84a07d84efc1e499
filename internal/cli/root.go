/*
PURPOSE:
  Defines the root Cobra command for the onetrace launcher.
  Turns tracing flags into ONETRACE_* variables and runs the application.

REQUIREMENTS:
  User-specified:
  - `onetrace [options] <application> <args>`.
  - Flags: --call-logging/-c, --host-timing/-h, --device-timing/-d,
    --device-timeline/-t, --chrome-device-timeline, --chrome-call-logging.
  - Level-Zero tracing layer must be enabled in the child.

  Implementation-discovered:
  - Flag parsing stops at the application name so its own flags pass through.
  - The child's exit status is the launcher's exit status.
  - -h belongs to --host-timing; help is registered as --help only, before
    cobra adds its default -h/--help.
  - Every option is exported as 1 or 0 so a flag set to false wins over the
    config file the child reads again.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/onetrace/main.go
  - Calls: internal/config
  - Child commands: options

ERROR HANDLING:
  - Returns *ExitError when the application exits non-zero.
  - Returns error if config load fails or the application cannot start.

IMPLEMENTATION RULES:
  - Build commands in constructors so tests get fresh flag state.
  - Only flags the user set override the config file.

USAGE:
  onetrace --device-timing --chrome-device-timeline ./app --size 1024

SELF-HEALING INSTRUCTIONS:
  - If adding a tracing option, add a flag here and a field in config.Config.

RELATED FILES:
  - cmd/onetrace/main.go
  - internal/config/config.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daryltucker/onetrace/internal/config"
	"github.com/daryltucker/onetrace/internal/output"
)

// EnvTracingLayer enables the Level-Zero loader tracing layer.
const EnvTracingLayer = "ZE_ENABLE_TRACING_LAYER"

// ExitError carries the traced application's exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("application exited with code %d", e.Code)
}

// launchOptions holds the flag values of the root command.
type launchOptions struct {
	cfgFile string
	config.Config
}

// NewRootCmd builds the launcher command tree.
func NewRootCmd() *cobra.Command {
	opts := &launchOptions{}

	cmd := &cobra.Command{
		Use:   "onetrace [options] <application> <args>",
		Short: "Trace host API calls and device kernels of an application",
		Long: `Runs an application with the onetrace collectors enabled.
Options are handed to the application through ONETRACE_* environment
variables. With no option set, host and device timing are reported.`,
		Example: `  # Report kernel times and dump a Chrome timeline
  onetrace -d --chrome-device-timeline ./app

  # Print every host API call
  onetrace --call-logging ./app --iterations 10`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return launch(cmd, cfg, opts.cfgFile, args)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./onetrace.yaml)")

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.Bool("help", false, "help for onetrace")
	flags.BoolVarP(&opts.CallLogging, "call-logging", "c", false, "Trace host API calls")
	flags.BoolVarP(&opts.HostTiming, "host-timing", "h", false, "Report host API execution time")
	flags.BoolVarP(&opts.DeviceTiming, "device-timing", "d", false, "Report kernels execution time")
	flags.BoolVarP(&opts.DeviceTimeline, "device-timeline", "t", false, "Trace device activities")
	flags.BoolVar(&opts.ChromeDeviceTimeline, "chrome-device-timeline", false, "Dump device activities to JSON file")
	flags.BoolVar(&opts.ChromeCallLogging, "chrome-call-logging", false, "Dump host API calls to JSON file")

	cmd.AddCommand(newOptionsCmd(opts))
	return cmd
}

// resolve loads the config file and environment, then applies the flags
// the user actually set.
func (o *launchOptions) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		name   string
		target *bool
		value  bool
	}{
		{"call-logging", &cfg.CallLogging, o.CallLogging},
		{"host-timing", &cfg.HostTiming, o.HostTiming},
		{"device-timing", &cfg.DeviceTiming, o.DeviceTiming},
		{"device-timeline", &cfg.DeviceTimeline, o.DeviceTimeline},
		{"chrome-device-timeline", &cfg.ChromeDeviceTimeline, o.ChromeDeviceTimeline},
		{"chrome-call-logging", &cfg.ChromeCallLogging, o.ChromeCallLogging},
	}
	for _, ov := range overrides {
		if f := cmd.Flags().Lookup(ov.name); f != nil && f.Changed {
			*ov.target = ov.value
		}
	}
	return cfg, nil
}

// launch runs the application with the tracing environment and waits.
func launch(cmd *cobra.Command, cfg *config.Config, cfgFile string, args []string) error {
	child := exec.CommandContext(cmd.Context(), args[0], args[1:]...)
	child.Stdin = cmd.InOrStdin()
	child.Stdout = cmd.OutOrStdout()
	child.Stderr = cmd.ErrOrStderr()

	env, err := childEnv(cfg, cfgFile)
	if err != nil {
		return err
	}
	child.Env = env

	output.Logger.Debug("Launching application", "path", args[0], "options", cfg.Options().String())
	if err := child.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run %s: %w", args[0], err)
	}
	return nil
}

func childEnv(cfg *config.Config, cfgFile string) ([]string, error) {
	env := os.Environ()
	env = append(env, cfg.Env()...)
	env = append(env, EnvTracingLayer+"=1")
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		env = append(env, config.EnvConfigFile+"="+abs)
	}
	return env, nil
}

func newOptionsCmd(opts *launchOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the tracing options an application would receive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			return printOptions(cmd.OutOrStdout(), cfg)
		},
	}
}

func printOptions(w io.Writer, cfg *config.Config) error {
	_, err := fmt.Fprintf(w, "options:        %s\ntrace file:     %s\nfinalize trace: %t\nreport csv:     %s\nmetrics file:   %s\n",
		cfg.Options(), cfg.TraceFile, cfg.FinalizeTrace, orNone(cfg.ReportCSV), orNone(cfg.MetricsFile))
	return err
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Execute executes the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
