/*
PURPOSE:
  Contract between the tracer and the backend collectors that intercept
  API calls and kernels on Level-Zero and OpenCL.

REQUIREMENTS:
  User-specified:
  - One collector per (domain x backend) pair, selected from a table.
  - DisableTracing stops every further completion callback.
  - Aggregate map readable only after DisableTracing.

  Implementation-discovered:
  - Device enumeration is external too; Platform answers presence only.
  - Factories return an error instead of a nil handle so the tracer can
    log the reason.

ARCHITECTURE INTEGRATION:
  - Called by: internal/tracer
  - Populated by: hosting process via pkg/onetrace

ERROR HANDLING:
  - Factory errors are returned as-is; the tracer decides severity.

IMPLEMENTATION RULES:
  - Collectors may call FinishFunc from any goroutine or OS thread.
  - Close must not be called while tracing is enabled.

USAGE:
  reg := collector.NewRegistry()
  reg.Register(model.Kernel, model.LevelZero, newZeKernelCollector)

RELATED FILES:
  - internal/collector/registry.go
  - internal/tracer/tracer.go
*/

package collector

import (
	"errors"
	"time"

	"github.com/daryltucker/onetrace/internal/model"
)

// ErrUnsupported is returned by a factory when the driver lacks tracing support.
var ErrUnsupported = errors.New("collector: tracing not supported")

// FinishFunc receives every completed operation.
type FinishFunc func(op model.Operation)

// Params configures a collector at construction.
type Params struct {
	Backend model.Backend
	Start   time.Time
	// CallTracing asks API collectors to print each call themselves.
	CallTracing bool
	// OnFinish is nil when no timeline output is requested.
	OnFinish FinishFunc
}

// Collector observes one backend for one domain.
type Collector interface {
	// DisableTracing is idempotent. Once it returns, OnFinish is never called again.
	DisableTracing()
	// InfoMap returns aggregate statistics keyed by operation name.
	InfoMap() model.InfoMap
	// Close releases driver-side hooks.
	Close() error
}

// Factory builds a collector or reports why it cannot.
type Factory func(p Params) (Collector, error)

// Platform reports which backends have devices on this machine.
type Platform interface {
	Available(b model.Backend) bool
}

// StaticPlatform is a Platform backed by a fixed backend list.
type StaticPlatform []model.Backend

func (p StaticPlatform) Available(b model.Backend) bool {
	for _, have := range p {
		if have == b {
			return true
		}
	}
	return false
}

// AnyAvailable reports whether the platform exposes at least one backend.
func AnyAvailable(p Platform) bool {
	if p == nil {
		return false
	}
	for _, b := range model.Backends {
		if p.Available(b) {
			return true
		}
	}
	return false
}
