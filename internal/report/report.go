// Package report reduces collector aggregate maps into totals and renders
// the timing summary printed at the end of a tracing session.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/daryltucker/onetrace/internal/model"
)

const (
	timeWidth      = 20
	executionLabel = "Total Execution Time (ns): "
)

// TotalTime sums TotalTime over every entry of m.
func TotalTime(m model.InfoMap) uint64 {
	var total uint64
	for _, st := range m {
		total += st.TotalTime
	}
	return total
}

// Rows flattens m into table rows, longest total first, ties by name.
func Rows(d model.Domain, b model.Backend, m model.InfoMap) []model.StatsRow {
	total := TotalTime(m)
	rows := make([]model.StatsRow, 0, len(m))
	for name, st := range m {
		row := model.StatsRow{Domain: d, Backend: b, Name: name, Stats: st}
		if total > 0 {
			row.Percent = float64(st.TotalTime) * 100 / float64(total)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Stats.TotalTime != rows[j].Stats.TotalTime {
			return rows[i].Stats.TotalTime > rows[j].Stats.TotalTime
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// Section is one backend's contribution to a timing report.
type Section struct {
	Backend model.Backend
	Total   uint64
	Rows    []model.StatsRow
}

// Timing is the report for one domain (host API calls or device kernels).
type Timing struct {
	Domain        model.Domain
	ExecutionTime uint64
	Sections      []Section
}

// NewTiming builds a report from the aggregate maps of live collectors.
// A backend missing from maps had no collector; a backend whose total is
// zero is dropped.
func NewTiming(d model.Domain, executionTime uint64, maps map[model.Backend]model.InfoMap) Timing {
	t := Timing{Domain: d, ExecutionTime: executionTime}
	for _, b := range model.Backends {
		m, ok := maps[b]
		if !ok {
			continue
		}
		total := TotalTime(m)
		if total == 0 {
			continue
		}
		t.Sections = append(t.Sections, Section{Backend: b, Total: total, Rows: Rows(d, b, m)})
	}
	return t
}

// Title is the label of a backend total line.
func (t Timing) Title(b model.Backend) string {
	return fmt.Sprintf("Total %s Time for %s backend (ns): ", t.Domain.Title(), b)
}

func (t Timing) titleWidth() int {
	width := len(executionLabel)
	for _, s := range t.Sections {
		if w := len(t.Title(s.Backend)); w > width {
			width = w
		}
	}
	return width
}

// Render writes the summary block followed by one table per backend.
func (t Timing) Render(w io.Writer) error {
	width := t.titleWidth()
	if _, err := fmt.Fprintf(w, "\n=== %s Timing Results: ===\n\n", t.Domain.Title()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%*s%*d\n", width, executionLabel, timeWidth, t.ExecutionTime); err != nil {
		return err
	}
	for _, s := range t.Sections {
		if _, err := fmt.Fprintf(w, "%*s%*d\n", width, t.Title(s.Backend), timeWidth, s.Total); err != nil {
			return err
		}
	}

	for _, s := range t.Sections {
		if _, err := fmt.Fprintf(w, "\n== %s Backend: ==\n\n", s.Backend); err != nil {
			return err
		}
		renderTable(w, t.Domain, s.Rows)
	}

	_, err := fmt.Fprintln(w)
	return err
}

func renderTable(w io.Writer, d model.Domain, rows []model.StatsRow) {
	nameColumn := "Function"
	if d == model.Kernel {
		nameColumn = "Kernel"
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{nameColumn, "Calls", "Time (ns)", "Time (%)", "Average (ns)", "Min (ns)", "Max (ns)"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(",")
	table.SetCenterSeparator("")
	for _, r := range rows {
		table.Append([]string{
			r.Name,
			strconv.FormatUint(r.Stats.CallCount, 10),
			strconv.FormatUint(r.Stats.TotalTime, 10),
			fmt.Sprintf("%.2f", r.Percent),
			strconv.FormatUint(r.Average(), 10),
			strconv.FormatUint(r.Stats.MinTime, 10),
			strconv.FormatUint(r.Stats.MaxTime, 10),
		})
	}
	table.Render()
}
