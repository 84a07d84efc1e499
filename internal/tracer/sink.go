package tracer

import (
	"errors"
	"fmt"

	"github.com/daryltucker/onetrace/internal/collector"
	"github.com/daryltucker/onetrace/internal/metrics"
	"github.com/daryltucker/onetrace/internal/model"
	"github.com/daryltucker/onetrace/internal/output"
)

// timeline receives completions from one collector. The variant is fixed
// when the collector is created.
type timeline struct {
	domain  model.Domain
	backend model.Backend
	pid     int
	console *output.Console
	trace   *output.TraceWriter
	metrics *metrics.Metrics
}

// logKernel prints one device timeline line.
func (s *timeline) logKernel(op model.Operation) {
	line := fmt.Appendf(nil, "Device Timeline (queue: %#x): %s [ns] = %d (queued) %d (submit) %d (start) %d (end)\n",
		op.QueueID, op.Name, op.Queued, op.Submitted, op.Started, op.Ended)
	if err := s.console.WriteLine(line); err != nil {
		output.Logger.Debug("Failed to write device timeline", "error", err)
	}
}

// appendEvent writes one complete event to the trace file.
func (s *timeline) appendEvent(op model.Operation) {
	tid := op.QueueID
	if s.domain == model.API {
		tid = op.ThreadID
		if tid == 0 {
			tid = currentThreadID()
		}
	}

	err := s.trace.WriteEvent(model.NewCompleteEvent(s.pid, tid, op))
	s.metrics.EventWritten(s.domain, s.backend, err == nil)
	if err != nil && !errors.Is(err, output.ErrClosed) {
		output.Logger.Debug("Failed to append trace event", "name", op.Name, "error", err)
	}
}

// sinkFor selects the completion callback for a collector, or nil when the
// options ask for no per-operation output in that domain.
func (t *Tracer) sinkFor(d model.Domain, b model.Backend) collector.FinishFunc {
	s := &timeline{
		domain:  d,
		backend: b,
		pid:     t.pid,
		console: t.console,
		trace:   t.trace,
		metrics: t.metrics,
	}

	if d == model.API {
		if t.options.Has(model.ChromeCallLogging) {
			return s.appendEvent
		}
		return nil
	}

	toConsole := t.options.Has(model.DeviceTimeline)
	toTrace := t.options.Has(model.ChromeDeviceTimeline)
	switch {
	case toConsole && toTrace:
		return func(op model.Operation) {
			s.logKernel(op)
			s.appendEvent(op)
		}
	case toConsole:
		return s.logKernel
	case toTrace:
		return s.appendEvent
	}
	return nil
}
