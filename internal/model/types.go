/*
PURPOSE:
  Defines the core data structures shared by the tracer, the collectors
  and the output writers.

REQUIREMENTS:
  User-specified:
  - Six independent tracing options, frozen before the tracer is created.
  - Three backends: Level-Zero, OpenCL CPU, OpenCL GPU.
  - One record per completed API call or kernel.

  Implementation-discovered:
  - Collectors keep per-name statistics (total/min/max/calls); the tracer
    only reads them.
  - Trace events need JSON tags matching the Chrome trace event format.

ARCHITECTURE INTEGRATION:
  - Used by: internal/collector, internal/tracer, internal/report, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Timestamps are nanoseconds since tracer start, as uint64.
  - Keep structs simple and public.

USAGE:
  opts := model.NewOptionSet(model.HostTiming, model.DeviceTiming)
  if opts.Has(model.DeviceTiming) { ... }

SELF-HEALING INSTRUCTIONS:
  - If a new option is added, extend optionNames and config.Config.

RELATED FILES:
  - internal/config/config.go
  - internal/output/trace.go

MAINTENANCE:
  - Update when collectors expose new statistics.
*/

package model

import (
	"strings"
)

// Option is a bit position inside an OptionSet.
type Option uint

const (
	CallLogging Option = iota
	HostTiming
	DeviceTiming
	DeviceTimeline
	ChromeDeviceTimeline
	ChromeCallLogging
)

var optionNames = []string{
	CallLogging:          "call-logging",
	HostTiming:           "host-timing",
	DeviceTiming:         "device-timing",
	DeviceTimeline:       "device-timeline",
	ChromeDeviceTimeline: "chrome-device-timeline",
	ChromeCallLogging:    "chrome-call-logging",
}

// AllOptions lists every option in bit order.
var AllOptions = []Option{
	CallLogging, HostTiming, DeviceTiming,
	DeviceTimeline, ChromeDeviceTimeline, ChromeCallLogging,
}

func (o Option) String() string {
	if int(o) < len(optionNames) {
		return optionNames[o]
	}
	return "unknown"
}

// OptionSet is an immutable set of options. The zero value is empty.
type OptionSet uint

// NewOptionSet builds a set from individual options.
func NewOptionSet(opts ...Option) OptionSet {
	var s OptionSet
	for _, o := range opts {
		s |= 1 << o
	}
	return s
}

// Has reports whether o is part of the set.
func (s OptionSet) Has(o Option) bool {
	return s&(1<<o) != 0
}

// Any reports whether at least one of opts is part of the set.
func (s OptionSet) Any(opts ...Option) bool {
	for _, o := range opts {
		if s.Has(o) {
			return true
		}
	}
	return false
}

// Empty reports whether no option is set.
func (s OptionSet) Empty() bool {
	return s == 0
}

func (s OptionSet) String() string {
	var names []string
	for _, o := range AllOptions {
		if s.Has(o) {
			names = append(names, o.String())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Backend identifies a compute runtime / device class.
type Backend int

const (
	LevelZero Backend = iota
	OpenCLCPU
	OpenCLGPU
)

// Backends lists every backend in report order.
var Backends = []Backend{LevelZero, OpenCLCPU, OpenCLGPU}

func (b Backend) String() string {
	switch b {
	case LevelZero:
		return "L0"
	case OpenCLCPU:
		return "CL CPU"
	case OpenCLGPU:
		return "CL GPU"
	}
	return "unknown"
}

// Domain separates host API calls from device kernels.
type Domain int

const (
	API Domain = iota
	Kernel
)

// Title is the label used in report headings.
func (d Domain) Title() string {
	if d == Kernel {
		return "Device"
	}
	return "API"
}

func (d Domain) String() string {
	if d == Kernel {
		return "kernel"
	}
	return "api"
}

// Operation is a single completed API call or kernel execution.
// All timestamps are nanoseconds since tracer start.
type Operation struct {
	Name      string
	QueueID   uint64 // kernels only; opaque queue/stream handle
	ThreadID  uint64 // API calls only; 0 when the collector does not know it
	Queued    uint64
	Submitted uint64
	Started   uint64
	Ended     uint64
}

// Duration returns Ended-Started, or zero if the record is inverted.
func (op Operation) Duration() uint64 {
	if op.Ended < op.Started {
		return 0
	}
	return op.Ended - op.Started
}

// OperationStats accumulates all completions of one operation name.
type OperationStats struct {
	TotalTime uint64 `json:"total_time"`
	CallCount uint64 `json:"call_count"`
	MinTime   uint64 `json:"min_time"`
	MaxTime   uint64 `json:"max_time"`
}

// InfoMap maps an operation name to its statistics. Owned by a collector.
type InfoMap map[string]OperationStats

// StatsRow is one line of a per-backend timing table.
type StatsRow struct {
	Domain  Domain
	Backend Backend
	Name    string
	Stats   OperationStats
	// Percent is the share of the backend's total time, 0..100.
	Percent float64
}

// Average returns the mean time per call, or zero with no calls.
func (r StatsRow) Average() uint64 {
	if r.Stats.CallCount == 0 {
		return 0
	}
	return r.Stats.TotalTime / r.Stats.CallCount
}
