/*
PURPOSE:
  Writes the per-backend timing tables to a CSV file.
  Same rows as the console report, one line per operation name.

REQUIREMENTS:
  User-specified:
  - Optional machine-readable copy of the report (report_csv).

  Implementation-discovered:
  - Written once, during the Reported phase.
  - Overwrites the file if it exists.

ARCHITECTURE INTEGRATION:
  - Called by: internal/tracer
  - Consumes: internal/model.StatsRow

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write.

USAGE:
  w, err := output.NewCSVWriter("report.csv")
  w.Write(row)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go
  - internal/report/report.go

MAINTENANCE:
  - Update Write() mapping when OperationStats changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/daryltucker/onetrace/internal/model"
)

// CSVHeader is the first record of every report file.
var CSVHeader = []string{
	"domain", "backend", "name", "calls",
	"total_ns", "percent", "average_ns", "min_ns", "max_ns",
}

// CSVWriter handles writing report rows to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single row to the CSV file.
// It is thread-safe.
func (cw *CSVWriter) Write(r model.StatsRow) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{
		r.Domain.String(),
		r.Backend.String(),
		r.Name,
		strconv.FormatUint(r.Stats.CallCount, 10),
		strconv.FormatUint(r.Stats.TotalTime, 10),
		fmt.Sprintf("%.2f", r.Percent),
		strconv.FormatUint(r.Average(), 10),
		strconv.FormatUint(r.Stats.MinTime, 10),
		strconv.FormatUint(r.Stats.MaxTime, 10),
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}
