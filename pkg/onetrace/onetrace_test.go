package onetrace_test

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/onetrace/internal/collector/collectortest"
	"github.com/daryltucker/onetrace/internal/config"
	"github.com/daryltucker/onetrace/internal/tracer"
	"github.com/daryltucker/onetrace/pkg/onetrace"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range []string{
		config.EnvCallLogging, config.EnvHostTiming, config.EnvDeviceTiming,
		config.EnvDeviceTimeline, config.EnvChromeDeviceTimeline, config.EnvChromeCallLogging,
		config.EnvConfigFile,
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return dir
}

func TestEnableProfilingWithoutDevices(t *testing.T) {
	dir := isolate(t)
	t.Setenv(config.EnvChromeCallLogging, "1")

	s := onetrace.EnableProfiling(onetrace.StaticPlatform{}, onetrace.NewRegistry())
	assert.Nil(t, s)
	assert.Nil(t, s.Tracer())
	assert.NotPanics(t, func() { onetrace.DisableProfiling(s) })

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnableDisableSession(t *testing.T) {
	dir := isolate(t)
	t.Setenv(config.EnvDeviceTiming, "1")
	t.Setenv(config.EnvChromeDeviceTimeline, "1")

	lab := collectortest.NewLab()
	reg := onetrace.NewRegistry()
	reg.Register(onetrace.Kernel, onetrace.OpenCLGPU, lab.Factory(onetrace.Kernel, nil))

	var diag bytes.Buffer
	s := onetrace.EnableProfiling(onetrace.StaticPlatform{onetrace.OpenCLGPU}, reg, onetrace.WithDiagnostics(&diag))
	require.NotNil(t, s)
	assert.Equal(t, tracer.Active, s.Tracer().State())

	lab.Find(onetrace.Kernel, onetrace.OpenCLGPU).Emit(onetrace.Operation{Name: "vadd", QueueID: 3, Started: 1_000, Ended: 9_000})
	onetrace.DisableProfiling(s)
	assert.Equal(t, tracer.Closed, s.Tracer().State())

	assert.Contains(t, diag.String(), "Total Device Time for CL GPU backend (ns): ")
	assert.Contains(t, diag.String(), "Timeline was stored to "+config.DefaultTraceFile)
	_, err := os.Stat(filepath.Join(dir, config.DefaultTraceFile))
	assert.NoError(t, err)
}

func TestCapabilityFailureDisablesProfiling(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvHostTiming, "1")

	lab := collectortest.NewLab()
	reg := onetrace.NewRegistry()
	reg.Register(onetrace.API, onetrace.LevelZero, lab.Failing(onetrace.API, assert.AnError))

	s := onetrace.EnableProfiling(onetrace.StaticPlatform{onetrace.LevelZero}, reg)
	assert.Nil(t, s)
}

func TestDroppedSessionIsClosed(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvDeviceTiming, "1")

	lab := collectortest.NewLab()
	reg := onetrace.NewRegistry()
	reg.Register(onetrace.Kernel, onetrace.LevelZero, lab.Factory(onetrace.Kernel, nil))

	var diag bytes.Buffer
	tr := func() *tracer.Tracer {
		s := onetrace.EnableProfiling(onetrace.StaticPlatform{onetrace.LevelZero}, reg, onetrace.WithDiagnostics(&diag))
		require.NotNil(t, s)
		return s.Tracer()
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return tr.State() == tracer.Closed
	}, 5*time.Second, 10*time.Millisecond)

	f := lab.Find(onetrace.Kernel, onetrace.LevelZero)
	assert.True(t, f.Disabled())
	assert.True(t, f.Closed())
}
