// missionfile.go

// This file reads and writes the text mission format.

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
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// A mission file is a single line of records separated by '|'. Each
// record is type,lat,lon,alt,delay,hook with delay in seconds.
const (
	recordSep      = "|"
	fieldSep       = ","
	recordFields   = 6
	MissionFileExt = ".mission"
)

// delays beyond this do not fit a time.Duration
const maxDelaySeconds = float64(math.MaxInt64 / int64(time.Second))

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalMissionItems encodes items in the mission file format.
func MarshalMissionItems(items []*MissionItem) string {
	recs := make([]string, len(items))
	for i, it := range items {
		recs[i] = strings.Join([]string{
			strconv.Itoa(int(it.Type)),
			formatFloat(it.Lat),
			formatFloat(it.Lon),
			formatFloat(it.Alt),
			formatFloat(it.Delay.Seconds()),
			it.HookID,
		}, fieldSep)
	}
	return strings.Join(recs, recordSep)
}

// ParseMissionItems decodes the mission file format. Every record is
// checked for its field count and validated before any item is returned.
func ParseMissionItems(s string) ([]*MissionItem, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMissionEmpty
	}
	var items []*MissionItem
	for i, rec := range strings.Split(s, recordSep) {
		f := strings.Split(rec, fieldSep)
		if len(f) != recordFields {
			return nil, fmt.Errorf("%w: record %d has %d fields", ErrMissionRecord, i, len(f))
		}
		typ, err := strconv.Atoi(f[0])
		if err != nil {
			return nil, fmt.Errorf("%w: record %d type: %v", ErrMissionRecord, i, err)
		}
		var nums [4]float64
		for j := range nums {
			if nums[j], err = strconv.ParseFloat(f[j+1], 64); err != nil {
				return nil, fmt.Errorf("%w: record %d field %d: %v", ErrMissionRecord, i, j+1, err)
			}
		}
		secs := nums[3]
		if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) > maxDelaySeconds {
			return nil, fmt.Errorf("%w: record %d delay %q", ErrMissionRecord, i, f[4])
		}
		it := &MissionItem{
			Type:    MissionType(typ),
			Lat:     nums[0],
			Lon:     nums[1],
			Alt:     nums[2],
			Delay:   time.Duration(math.Round(secs * float64(time.Second))),
			HookID:  f[5],
			Scratch: make(map[string]float64),
		}
		if err := it.validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Export writes the mission list to w.
func (m *Mission) Export(w io.Writer) error {
	m.mu.Lock()
	s := MarshalMissionItems(m.items)
	n := len(m.items)
	m.mu.Unlock()
	if n == 0 {
		return ErrMissionEmpty
	}
	_, err := io.WriteString(w, s)
	return err
}

// Import replaces the mission list with the one read from r. The list is
// left untouched if r does not hold a valid mission.
func (m *Mission) Import(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	items, err := ParseMissionItems(string(b))
	if err != nil {
		return err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()
	if m.Status() == MissionRunning {
		return ErrMissionRunning
	}
	m.Wait()

	m.mu.Lock()
	m.items = items
	m.cursor = -1
	m.status = MissionIdle
	m.mu.Unlock()
	m.lg.Info("Mission imported", "items", len(items))
	return nil
}

func (m *Mission) missionPath(name string) string {
	if filepath.Ext(name) == "" {
		name += MissionFileExt
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.v.cfg.OutputDir, name)
}

// Save writes the mission list to name in Config.OutputDir.
func (m *Mission) Save(name string) error {
	path := m.missionPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load replaces the mission list with the one saved under name.
func (m *Mission) Load(name string) error {
	f, err := os.Open(m.missionPath(name))
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Import(f)
}
