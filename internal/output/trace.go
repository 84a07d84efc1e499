/*
PURPOSE:
  Writes the Chrome trace event file (onetrace.json) that timeline tools load.
  One JSON event per line, appended as operations complete.

REQUIREMENTS:
  User-specified:
  - File opened in truncate mode before any collector can fire.
  - First line "[", second line the process_name metadata event.
  - One complete event per line, each followed by a "," separator.

  Implementation-discovered:
  - Callbacks arrive from many threads at once; lines must never interleave.
  - Writes go straight to the file (no buffering) so a crashed run still
    leaves every completed line on disk.
  - Chrome's JSON Array Format tolerates the missing "]". Finalizing is
    opt-in for consumers that need strict JSON.

ARCHITECTURE INTEGRATION:
  - Called by: internal/tracer (sinks and teardown)
  - Consumes: internal/model.CompleteEvent, internal/model.MetadataEvent

ERROR HANDLING:
  - Returns error on file creation or write failure.
  - Appends after Close return ErrClosed.

IMPLEMENTATION RULES:
  - Encode outside the lock, write under the lock.
  - Close is idempotent.

USAGE:
  w, err := output.NewTraceWriter("onetrace.json", os.Getpid(), "app", false)
  w.WriteEvent(ev)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If Perfetto refuses the file, try finalize_trace: true.

RELATED FILES:
  - internal/model/events.go
  - internal/tracer/sink.go

MAINTENANCE:
  - Update header emission when new metadata events are needed.
*/

package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/daryltucker/onetrace/internal/model"
)

// ErrClosed is returned for appends after the trace file was closed.
var ErrClosed = errors.New("trace file already closed")

// traceJSON replaces invalid UTF-8 in names with U+FFFD.
var traceJSON = sonic.Config{ValidateString: true}.Froze()

const (
	arrayOpen  = "[\n"
	lineEnd    = ",\n"
	arrayClose = "\n]\n"
)

// TraceWriter appends trace events to a single file.
type TraceWriter struct {
	path     string
	finalize bool

	mu     sync.Mutex
	file   *os.File
	line   []byte
	size   int64
	events int
	closed bool
}

// NewTraceWriter creates (or truncates) path and writes the header.
func NewTraceWriter(path string, pid int, executable string, finalize bool) (*TraceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	tw := &TraceWriter{
		path:     path,
		finalize: finalize,
		file:     f,
	}

	meta, err := traceJSON.Marshal(model.NewProcessNameEvent(pid, executable))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to encode trace header: %w", err)
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if err := tw.writeLocked([]byte(arrayOpen)); err != nil {
		f.Close()
		return nil, err
	}
	if err := tw.appendLocked(meta); err != nil {
		f.Close()
		return nil, err
	}
	return tw, nil
}

// Path returns the file name the trace is stored to.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// WriteEvent appends one complete event as a single line.
// It is thread-safe.
func (tw *TraceWriter) WriteEvent(ev model.CompleteEvent) error {
	data, err := traceJSON.Marshal(ev)
	if err != nil {
		return err
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return ErrClosed
	}
	if err := tw.appendLocked(data); err != nil {
		return err
	}
	tw.events++
	return nil
}

// Events returns the number of complete events written so far.
func (tw *TraceWriter) Events() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.events
}

func (tw *TraceWriter) appendLocked(data []byte) error {
	tw.line = append(tw.line[:0], data...)
	tw.line = append(tw.line, lineEnd...)
	return tw.writeLocked(tw.line)
}

func (tw *TraceWriter) writeLocked(b []byte) error {
	n, err := tw.file.Write(b)
	tw.size += int64(n)
	return err
}

// Close closes the underlying file. With finalize set, the trailing
// separator of the last line is replaced by the closing bracket.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return nil
	}
	tw.closed = true

	var finalizeErr error
	if tw.finalize && tw.size >= int64(len(lineEnd)) {
		_, finalizeErr = tw.file.WriteAt([]byte(arrayClose), tw.size-int64(len(lineEnd)))
	}
	if err := tw.file.Close(); err != nil {
		return err
	}
	return finalizeErr
}

// ExecutableName returns the base name of the running binary.
func ExecutableName() string {
	exe, err := os.Executable()
	if err != nil || exe == "" {
		if len(os.Args) > 0 {
			exe = os.Args[0]
		}
	}
	return filepath.Base(exe)
}
