// config_test.go

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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "cfg.json")
	err := os.WriteFile(fn, []byte(`{
		"endpoint": "serial:/dev/ttyTHS1:921600",
		"connect_timeout": "5s",
		"mode_retry": {"attempts": 2, "timeout": 250},
		"recovery_mode": "RTL"
	}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("MAVGUIDE_LOG_LEVEL", "debug")
	cfg, err := LoadConfig(fn)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Endpoint != "serial:/dev/ttyTHS1:921600" || cfg.RecoveryMode != "RTL" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.ConnectTimeout.D() != 5*time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.ConnectTimeout.D())
	}
	if cfg.ModeRetry.Attempts != 2 || cfg.ModeRetry.Timeout.D() != 250*time.Millisecond {
		t.Errorf("ModeRetry = %+v", cfg.ModeRetry)
	}
	if cfg.ConfigRetry != ConfigRetry {
		t.Errorf("ConfigRetry default lost: %+v", cfg.ConfigRetry)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("env override not applied, LogLevel = %s", cfg.LogLevel)
	}
}

func TestControlPeriod(t *testing.T) {
	cfg := DefaultConfig()
	if p := cfg.controlPeriod(); p != 250*time.Millisecond {
		t.Errorf("controlPeriod = %v", p)
	}
}
