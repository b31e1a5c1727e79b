// flog.go

// This file contains the flight recorder: a compressed stream of telemetry snapshots.

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package mavguide

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// RecordFlight writes a telemetry snapshot to w every period until ctx is
// done or the link closes. Records are msgpack encoded inside a single
// zstd stream; read them back with ReadFlightLog.
func (v *Vehicle) RecordFlight(ctx context.Context, w io.Writer, period time.Duration) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	enc := msgpack.NewEncoder(zw)

	n := 0
	for fd := range v.StreamTelemetry(ctx, period) {
		if err := enc.Encode(&fd); err != nil {
			zw.Close()
			return fmt.Errorf("flight record %d: %w", n, err)
		}
		n++
	}
	v.lg.Info("Flight recording finished", "records", n)
	return zw.Close()
}

// RecordFlightFile is RecordFlight into a newly created file.
func (v *Vehicle) RecordFlightFile(ctx context.Context, path string, period time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := v.RecordFlight(ctx, f, period); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFlightLog decodes every snapshot of a recording.
func ReadFlightLog(r io.Reader) ([]Telemetry, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	dec := msgpack.NewDecoder(zr)
	var fds []Telemetry
	for {
		var fd Telemetry
		if err := dec.Decode(&fd); err != nil {
			if errors.Is(err, io.EOF) {
				return fds, nil
			}
			return fds, fmt.Errorf("flight record %d: %w", len(fds), err)
		}
		fds = append(fds, fd)
	}
}
