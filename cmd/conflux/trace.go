// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cgubbin/conflux"
)

// traceEntry is a single line of an iteration trace.
type traceEntry struct {
	RunID        string    `json:"run_id"`
	Iteration    int       `json:"iteration"`
	Updates      int       `json:"updates"`
	Cost         *float64  `json:"cost"`
	BestCost     *float64  `json:"best_cost"`
	LastBestIter int       `json:"last_best_iter"`
	Elapsed      float64   `json:"elapsed_seconds"`
	Timestamp    time.Time `json:"timestamp"`
}

// traceWriter writes one JSON line per iteration. It implements
// conflux.Recorder and is called from the solver loop only.
type traceWriter struct {
	runID  string
	file   *os.File
	writer *bufio.Writer
	path   string
}

// newTraceWriter creates <dir>/<runID>.jsonl.
func newTraceWriter(dir, runID string) (*traceWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	path := filepath.Join(dir, runID+".jsonl")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return &traceWriter{
		runID:  runID,
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

func (tw *traceWriter) Record(s conflux.Stats) error {
	data, err := json.Marshal(traceEntry{
		RunID:        tw.runID,
		Iteration:    s.Iterations,
		Updates:      s.Updates,
		Cost:         finite(s.Cost),
		BestCost:     finite(s.BestCost),
		LastBestIter: s.LastBestIter,
		Elapsed:      s.Runtime.Seconds(),
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	return tw.writer.WriteByte('\n')
}

// Close flushes buffered entries and closes the trace file.
func (tw *traceWriter) Close() error {
	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

func (tw *traceWriter) Path() string { return tw.path }

// finite returns nil for values JSON cannot represent.
func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}
