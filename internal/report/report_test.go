package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/onetrace/internal/model"
)

func TestTotalTime(t *testing.T) {
	m := model.InfoMap{
		"a": {TotalTime: 1_000_000_007},
		"b": {TotalTime: 3},
		"c": {TotalTime: 0},
	}
	assert.Equal(t, uint64(1_000_000_010), TotalTime(m))
	assert.Equal(t, uint64(0), TotalTime(nil))
}

func TestRowsOrder(t *testing.T) {
	m := model.InfoMap{
		"small": {TotalTime: 10, CallCount: 1},
		"big":   {TotalTime: 90, CallCount: 3},
		"tieB":  {TotalTime: 10, CallCount: 2},
	}
	rows := Rows(model.API, model.LevelZero, m)
	require.Len(t, rows, 3)
	assert.Equal(t, "big", rows[0].Name)
	assert.Equal(t, "small", rows[1].Name)
	assert.Equal(t, "tieB", rows[2].Name)
	assert.InDelta(t, 81.818, rows[0].Percent, 0.001)
	assert.Equal(t, uint64(30), rows[0].Average())
}

func TestNewTimingSections(t *testing.T) {
	maps := map[model.Backend]model.InfoMap{
		model.LevelZero: {"kernelA": {TotalTime: 1_000_000, CallCount: 1}},
		model.OpenCLCPU: {},
		model.OpenCLGPU: {"kernelB": {TotalTime: 500_000, CallCount: 1}},
	}
	timing := NewTiming(model.Kernel, 9_000_000, maps)
	require.Len(t, timing.Sections, 2)
	assert.Equal(t, model.LevelZero, timing.Sections[0].Backend)
	assert.Equal(t, uint64(1_000_000), timing.Sections[0].Total)
	assert.Equal(t, model.OpenCLGPU, timing.Sections[1].Backend)
	assert.Equal(t, uint64(500_000), timing.Sections[1].Total)
}

func TestRenderDeviceTiming(t *testing.T) {
	timing := NewTiming(model.Kernel, 9_000_000, map[model.Backend]model.InfoMap{
		model.LevelZero: {"kernelA": {TotalTime: 1_000_000, CallCount: 1, MinTime: 1_000_000, MaxTime: 1_000_000}},
		model.OpenCLGPU: {"kernelB": {TotalTime: 500_000, CallCount: 1, MinTime: 500_000, MaxTime: 500_000}},
	})

	var buf bytes.Buffer
	require.NoError(t, timing.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "=== Device Timing Results: ===")
	assert.Contains(t, out, "Total Execution Time (ns): ")
	assert.Contains(t, out, "Total Device Time for L0 backend (ns): ")
	assert.Contains(t, out, "Total Device Time for CL GPU backend (ns): ")
	assert.NotContains(t, out, "CL CPU")
	assert.Contains(t, out, "== L0 Backend: ==")
	assert.Contains(t, out, "== CL GPU Backend: ==")
	assert.Contains(t, out, "kernelA")
	assert.Contains(t, out, "kernelB")
	assert.NotContains(t, out, "all backends")

	// Totals are right-aligned into the same column.
	var ends []int
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " "), "Total ") {
			ends = append(ends, len(line))
			assert.True(t, strings.HasSuffix(line, "9000000") ||
				strings.HasSuffix(line, "1000000") ||
				strings.HasSuffix(line, "500000"), line)
		}
	}
	require.Len(t, ends, 3)
	assert.Equal(t, ends[0], ends[1])
	assert.Equal(t, ends[1], ends[2])
}

func TestRenderEmpty(t *testing.T) {
	timing := NewTiming(model.API, 42, map[model.Backend]model.InfoMap{
		model.OpenCLCPU: {"clFinish": {TotalTime: 0}},
	})
	var buf bytes.Buffer
	require.NoError(t, timing.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "=== API Timing Results: ===")
	assert.NotContains(t, out, "Backend: ==")
	assert.NotContains(t, out, "clFinish")
}
