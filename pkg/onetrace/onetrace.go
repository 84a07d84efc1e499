// Package onetrace is the entry point a profiled process uses to start and
// stop a tracing session. The caller keeps the returned Session; there is
// no package-level tracer.
//
//	reg := onetrace.NewRegistry()
//	reg.Register(onetrace.Kernel, onetrace.LevelZero, newZeKernelCollector)
//	s := onetrace.EnableProfiling(platform, reg)
//	defer onetrace.DisableProfiling(s)
//
// DisableProfiling is the only reliable teardown. A Session dropped without
// it is drained and closed by a garbage collector cleanup if one runs
// before the process exits; cleanups are not run at exit, so in that case
// no report is printed and the trace file keeps whatever was appended.
package onetrace

import (
	"os"
	"runtime"

	"github.com/daryltucker/onetrace/internal/collector"
	"github.com/daryltucker/onetrace/internal/config"
	"github.com/daryltucker/onetrace/internal/model"
	"github.com/daryltucker/onetrace/internal/output"
	"github.com/daryltucker/onetrace/internal/tracer"
)

type (
	Collector      = collector.Collector
	Factory        = collector.Factory
	FinishFunc     = collector.FinishFunc
	Params         = collector.Params
	Platform       = collector.Platform
	StaticPlatform = collector.StaticPlatform
	Registry       = collector.Registry
	Backend        = model.Backend
	Domain         = model.Domain
	Operation      = model.Operation
	OperationStats = model.OperationStats
	InfoMap        = model.InfoMap
	Config         = config.Config
	Opt            = tracer.Opt
)

const (
	LevelZero = model.LevelZero
	OpenCLCPU = model.OpenCLCPU
	OpenCLGPU = model.OpenCLGPU
	API       = model.API
	Kernel    = model.Kernel
)

var (
	NewRegistry     = collector.NewRegistry
	WithDiagnostics = tracer.WithDiagnostics
	WithClock       = tracer.WithClock
)

// Session is a running tracer. A nil Session means profiling is off.
type Session struct {
	tracer  *tracer.Tracer
	cleanup runtime.Cleanup
}

// EnableProfiling loads the ONETRACE_* configuration and starts tracing.
// It never fails the caller: any problem is logged as a warning and nil is
// returned, in which case the application simply runs unprofiled.
func EnableProfiling(platform Platform, registry *Registry, opts ...Opt) *Session {
	cfg, err := config.Load("")
	if err != nil {
		output.Logger.Warn("Invalid onetrace configuration, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}
	return Start(cfg, platform, registry, opts...)
}

// Start is EnableProfiling with an explicit configuration.
func Start(cfg *Config, platform Platform, registry *Registry, opts ...Opt) *Session {
	if cfg != nil && cfg.LogLevel != "" {
		output.SetLogger(output.NewLogger(os.Stderr, cfg.LogLevel))
	}
	t, err := tracer.New(cfg, platform, registry, opts...)
	if err != nil {
		output.Logger.Warn("Profiling disabled", "error", err)
		return nil
	}
	s := &Session{tracer: t}
	s.cleanup = runtime.AddCleanup(s, closeAbandoned, t)
	return s
}

func closeAbandoned(t *tracer.Tracer) {
	output.Logger.Warn("Profiling session dropped without DisableProfiling")
	if err := t.Close(); err != nil {
		output.Logger.Warn("Profiling teardown incomplete", "error", err)
	}
}

// DisableProfiling ends the session: tracing stops, the report is printed
// and the trace file is closed. Errors are logged, never returned.
func DisableProfiling(s *Session) {
	if s == nil {
		return
	}
	s.cleanup.Stop()
	if err := s.tracer.Close(); err != nil {
		output.Logger.Warn("Profiling teardown incomplete", "error", err)
	}
}

// Tracer exposes the underlying tracer, mainly for state inspection.
func (s *Session) Tracer() *tracer.Tracer {
	if s == nil {
		return nil
	}
	return s.tracer
}
