package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/onetrace/internal/model"
)

func TestObserveAggregates(t *testing.T) {
	m := New()
	m.ObserveAggregates(model.Kernel, model.LevelZero, model.InfoMap{
		"a": {TotalTime: 1_000, CallCount: 2},
		"b": {TotalTime: 500, CallCount: 3},
	})
	assert.Equal(t, 1500.0, testutil.ToFloat64(m.BusyTime.WithLabelValues("kernel", "L0")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Operations.WithLabelValues("kernel", "L0")))
}

func TestEventCounters(t *testing.T) {
	m := New()
	m.EventWritten(model.API, model.OpenCLGPU, true)
	m.EventWritten(model.API, model.OpenCLGPU, true)
	m.EventWritten(model.API, model.OpenCLGPU, false)
	m.CollectorFailed(model.Kernel, model.OpenCLCPU)
	m.CollectorStarted(model.API, model.OpenCLGPU)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TraceEvents.WithLabelValues("api", "CL GPU")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TraceDropped.WithLabelValues("api", "CL GPU")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollectorFailures.WithLabelValues("kernel", "CL CPU")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollectorsActive.WithLabelValues("api", "CL GPU")))

	m.CollectorStopped(model.API, model.OpenCLGPU)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CollectorsActive.WithLabelValues("api", "CL GPU")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.SessionDuration.Set(123)
	path := filepath.Join(t.TempDir(), "onetrace.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "onetrace_session_duration_nanoseconds 123")
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
