/*
PURPOSE:
  The unified tracer. Creates API and kernel collectors for every backend
  present on the machine, routes their completions to the timeline sinks,
  and prints the timing report when the session ends.

REQUIREMENTS:
  User-specified:
  - No device at all: refuse to start.
  - One collector failing: warn and continue with the others.
  - A requested group (API or kernel) with zero collectors: undo everything.
  - Trace file opened before the first collector exists.
  - Teardown: disable API collectors, then kernel collectors, report,
    destroy collectors in reverse creation order, close the trace file.

  Implementation-discovered:
  - Close must be safe to call more than once; the session entry and a
    deferred cleanup may both reach it.
  - Collector handles are written only in New and in teardown.

ARCHITECTURE INTEGRATION:
  - Called by: pkg/onetrace
  - Uses: internal/collector, internal/report, internal/output, internal/metrics

ERROR HANDLING:
  - New returns ErrNoDevices / ErrCapabilityUnavailable; the caller logs a
    warning and runs the application without profiling.
  - Close aggregates collector and file errors with go-multierror.

IMPLEMENTATION RULES:
  - No global tracer; the caller owns the *Tracer.
  - Never read aggregate maps before DisableTracing returned.

USAGE:
  t, err := tracer.New(cfg, platform, registry)
  defer t.Close()

SELF-HEALING INSTRUCTIONS:
  - If the report is empty, check that the timing options are set and the
    collectors' InfoMap is populated.

RELATED FILES:
  - internal/tracer/sink.go
  - internal/report/report.go

MAINTENANCE:
  - Update the group tables when a new backend or domain is added.
*/

package tracer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/daryltucker/onetrace/internal/collector"
	"github.com/daryltucker/onetrace/internal/config"
	"github.com/daryltucker/onetrace/internal/metrics"
	"github.com/daryltucker/onetrace/internal/model"
	"github.com/daryltucker/onetrace/internal/output"
	"github.com/daryltucker/onetrace/internal/report"
)

var (
	// ErrNoDevices means the platform exposes none of the supported backends.
	ErrNoDevices = errors.New("no supported devices found")
	// ErrCapabilityUnavailable means a requested domain ended up with no collector.
	ErrCapabilityUnavailable = errors.New("unable to create any collector")
)

// Options selecting each collector group.
var (
	apiGroup    = []model.Option{model.CallLogging, model.ChromeCallLogging, model.HostTiming}
	kernelGroup = []model.Option{model.DeviceTimeline, model.ChromeDeviceTimeline, model.DeviceTiming}
)

// slot owns one live collector.
type slot struct {
	key       collector.Key
	collector collector.Collector
}

// Tracer owns the collectors, the sinks and the trace file of one session.
type Tracer struct {
	cfg     *config.Config
	options model.OptionSet

	now        func() time.Time
	pid        int
	executable string
	console    *output.Console
	metrics    *metrics.Metrics

	start time.Time
	trace *output.TraceWriter
	slots []slot

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// Opt customizes a Tracer.
type Opt func(*Tracer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Opt {
	return func(t *Tracer) { t.now = now }
}

// WithDiagnostics redirects the report and timeline lines (default stderr).
func WithDiagnostics(w io.Writer) Opt {
	return func(t *Tracer) { t.console = output.NewConsole(w) }
}

// WithMetrics uses m instead of a private metrics set.
func WithMetrics(m *metrics.Metrics) Opt {
	return func(t *Tracer) { t.metrics = m }
}

// WithProcess overrides the pid and name recorded in the trace file.
func WithProcess(pid int, executable string) Opt {
	return func(t *Tracer) {
		t.pid = pid
		t.executable = executable
	}
}

// New creates collectors for every present backend and returns an active
// tracer. On error nothing is left open.
func New(cfg *config.Config, platform collector.Platform, registry *collector.Registry, opts ...Opt) (*Tracer, error) {
	if !collector.AnyAvailable(platform) {
		return nil, ErrNoDevices
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	t := &Tracer{
		cfg:        cfg,
		options:    cfg.Options(),
		now:        time.Now,
		pid:        os.Getpid(),
		executable: output.ExecutableName(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.console == nil {
		t.console = output.NewConsole(nil)
	}
	if t.metrics == nil {
		t.metrics = metrics.New()
	}
	t.start = t.now()
	t.state.Store(int32(Idle))

	if t.options.Any(model.ChromeDeviceTimeline, model.ChromeCallLogging) {
		tw, err := output.NewTraceWriter(cfg.TraceFile, t.pid, t.executable, cfg.FinalizeTrace)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file %s: %w", cfg.TraceFile, err)
		}
		t.trace = tw
	}

	groups := []struct {
		domain  model.Domain
		enabled bool
	}{
		{model.API, t.options.Any(apiGroup...)},
		{model.Kernel, t.options.Any(kernelGroup...)},
	}
	for _, g := range groups {
		if !g.enabled {
			continue
		}
		if err := t.startGroup(g.domain, platform, registry); err != nil {
			t.unwind()
			return nil, err
		}
	}

	t.advance(Armed)
	// Collectors fire as soon as they exist; there is no separate start.
	t.advance(Active)
	return t, nil
}

func (t *Tracer) startGroup(d model.Domain, platform collector.Platform, registry *collector.Registry) error {
	started := 0
	for _, key := range registry.Plan(d, platform) {
		factory, _ := registry.Lookup(key.Domain, key.Backend)
		c, err := factory(collector.Params{
			Backend:     key.Backend,
			Start:       t.start,
			CallTracing: d == model.API && t.options.Has(model.CallLogging),
			OnFinish:    t.sinkFor(d, key.Backend),
		})
		if err == nil && c == nil {
			err = errors.New("factory returned no collector")
		}
		if err != nil {
			output.Logger.Warn("Unable to create collector",
				"domain", d.String(),
				"backend", key.Backend.String(),
				"error", err,
			)
			t.metrics.CollectorFailed(d, key.Backend)
			continue
		}

		t.slots = append(t.slots, slot{key: key, collector: c})
		t.metrics.CollectorStarted(d, key.Backend)
		started++
	}

	if started == 0 {
		return fmt.Errorf("%w for %s domain", ErrCapabilityUnavailable, d)
	}
	return nil
}

// unwind releases everything New built so far. No report is printed and
// the partial trace file is removed.
func (t *Tracer) unwind() {
	t.drain()
	if err := t.destroy(); err != nil {
		output.Logger.Debug("Failed to release collectors", "error", err)
	}
	if t.trace != nil {
		if err := t.trace.Close(); err != nil {
			output.Logger.Debug("Failed to close trace file", "error", err)
		}
		if err := os.Remove(t.trace.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
			output.Logger.Debug("Failed to remove trace file", "error", err)
		}
		t.trace = nil
	}
	t.state.Store(int32(Closed))
}

// State returns the current lifecycle state.
func (t *Tracer) State() State {
	return State(t.state.Load())
}

// Options returns the frozen option set.
func (t *Tracer) Options() model.OptionSet {
	return t.options
}

// Metrics returns the session metrics.
func (t *Tracer) Metrics() *metrics.Metrics {
	return t.metrics
}

func (t *Tracer) advance(to State) {
	from := State(t.state.Swap(int32(to)))
	output.Logger.Debug("Tracer state", "from", from.String(), "to", to.String())
}

// Close stops tracing, prints the report and releases every resource.
// Only the first call does work; later calls return the same result.
func (t *Tracer) Close() error {
	if t == nil {
		return nil
	}
	t.closeOnce.Do(func() {
		t.closeErr = t.teardown()
	})
	return t.closeErr
}

func (t *Tracer) teardown() error {
	var result *multierror.Error

	elapsed := t.now().Sub(t.start)
	if elapsed < 0 {
		elapsed = 0
	}
	executionTime := uint64(elapsed.Nanoseconds())
	t.metrics.SessionDuration.Set(float64(executionTime))

	t.advance(Draining)
	t.drain()

	t.advance(Reported)
	if err := t.report(executionTime); err != nil {
		result = multierror.Append(result, err)
	}

	if err := t.destroy(); err != nil {
		result = multierror.Append(result, err)
	}
	if t.trace != nil {
		if err := t.trace.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close trace file: %w", err))
		}
		fmt.Fprintf(t.console.Writer(), "Timeline was stored to %s\n", t.trace.Path())
	}
	if t.cfg.MetricsFile != "" {
		if err := t.metrics.WriteTextfile(t.cfg.MetricsFile); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to write metrics to %s: %w", t.cfg.MetricsFile, err))
		}
	}
	t.advance(Closed)

	return result.ErrorOrNil()
}

// drain disables API collectors before kernel collectors. Afterwards no
// callback can run.
func (t *Tracer) drain() {
	for _, d := range []model.Domain{model.API, model.Kernel} {
		for _, s := range t.slots {
			if s.key.Domain == d {
				s.collector.DisableTracing()
			}
		}
	}
}

// destroy closes collectors in reverse creation order.
func (t *Tracer) destroy() error {
	var result *multierror.Error
	for i := len(t.slots) - 1; i >= 0; i-- {
		s := t.slots[i]
		if err := s.collector.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s collector for %s: %w",
				s.key.Domain, s.key.Backend, err))
		}
		t.metrics.CollectorStopped(s.key.Domain, s.key.Backend)
	}
	t.slots = nil
	return result.ErrorOrNil()
}

// report reads every aggregate map once and prints the requested tables.
func (t *Tracer) report(executionTime uint64) error {
	snapshots := map[model.Domain]map[model.Backend]model.InfoMap{
		model.API:    {},
		model.Kernel: {},
	}
	for _, s := range t.slots {
		infos := s.collector.InfoMap()
		snapshots[s.key.Domain][s.key.Backend] = infos
		t.metrics.ObserveAggregates(s.key.Domain, s.key.Backend, infos)
	}

	var timings []report.Timing
	if t.options.Has(model.HostTiming) {
		timings = append(timings, report.NewTiming(model.API, executionTime, snapshots[model.API]))
	}
	if t.options.Has(model.DeviceTiming) {
		timings = append(timings, report.NewTiming(model.Kernel, executionTime, snapshots[model.Kernel]))
	}

	w := t.console.Writer()
	for _, timing := range timings {
		if err := timing.Render(w); err != nil {
			return fmt.Errorf("failed to print report: %w", err)
		}
	}
	fmt.Fprintln(w)

	if t.cfg.ReportCSV != "" && len(timings) > 0 {
		if err := writeCSV(t.cfg.ReportCSV, timings); err != nil {
			return fmt.Errorf("failed to write report to %s: %w", t.cfg.ReportCSV, err)
		}
	}
	return nil
}

func writeCSV(path string, timings []report.Timing) error {
	cw, err := output.NewCSVWriter(path)
	if err != nil {
		return err
	}
	for _, timing := range timings {
		for _, section := range timing.Sections {
			for _, row := range section.Rows {
				if err := cw.Write(row); err != nil {
					cw.Close()
					return err
				}
			}
		}
	}
	return cw.Close()
}
