// main.go

// mavguide connects to an autopilot and optionally flies a saved mission.

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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SMerrony/mavguide"
	"github.com/SMerrony/mavguide/log"
)

var (
	configFile = flag.String("config", "", "JSON configuration file")
	endpoint   = flag.String("endpoint", "", "MAVLink endpoint, e.g. udp:0.0.0.0:14550 or serial:/dev/ttyUSB0:57600")
	missionArg = flag.String("mission", "", "mission file to load and fly")
	logLevel   = flag.String("loglevel", "", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	recordPath = flag.String("record", "", "write a compressed telemetry recording to this file")
)

func main() {
	flag.Parse()

	cfg := mavguide.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = mavguide.LoadConfig(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *configFile, err)
			os.Exit(1)
		}
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if *recordPath != "" {
		cfg.RecordPath = *recordPath
	}

	lg := log.New(cfg.LogLevel, cfg.LogDir)
	fmt.Printf("Logging to %s\n", lg.LogFile)

	if err := run(cfg, lg); err != nil {
		lg.Error("mavguide failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg mavguide.Config, lg *log.Logger) error {
	v, err := mavguide.Dial(cfg, lg)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Endpoint, err)
	}
	defer v.Close()

	fd := v.Telemetry()
	fmt.Printf("Connected to %s in %s (armed: %v)\n", fd.VehicleType, fd.FlightMode, fd.Armed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	recordCtx, stopRecording := context.WithCancel(ctx)
	defer stopRecording()

	period := time.Second
	if cfg.TelemetryRateHz > 0 {
		period = time.Duration(float64(time.Second) / cfg.TelemetryRateHz)
	}

	if cfg.RecordPath != "" {
		path := cfg.RecordPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.OutputDir, path)
		}
		eg.Go(func() error {
			return v.RecordFlightFile(recordCtx, path, period)
		})
	}

	if *missionArg == "" {
		eg.Go(func() error { return monitor(ctx, v, lg) })
		return eg.Wait()
	}

	m := v.Mission()
	if err := m.Load(*missionArg); err != nil {
		stopRecording()
		eg.Wait()
		return err
	}
	if !m.Start() {
		stopRecording()
		eg.Wait()
		return fmt.Errorf("%s: mission did not start", *missionArg)
	}

	eg.Go(func() error {
		defer stopRecording()
		select {
		case <-m.Done():
		case <-ctx.Done():
			lg.Warn("Interrupted, aborting mission")
			m.Abort()
		case <-v.Done():
			return v.Err()
		}
		out := m.Outcome()
		fmt.Printf("Mission ended: completed %v, failsafe %v %s\n", out.Completed, out.Failsafe, out.Reason)
		if out.Failsafe {
			return fmt.Errorf("mission failsafe: %s", out.Reason)
		}
		return nil
	})
	return eg.Wait()
}

// monitor prints a telemetry summary until ctx is done or the link closes.
func monitor(ctx context.Context, v *mavguide.Vehicle, lg *log.Logger) error {
	for fd := range v.StreamTelemetry(ctx, time.Second) {
		g := fd.GlobalPosition
		fmt.Printf("%-10s armed=%-5v lat=%.7f lon=%.7f alt=%.1f hdg=%.0f batt=%.2fV\n",
			fd.FlightMode, fd.Armed, g.Lat, g.Lon, g.RelativeAlt, g.Heading, fd.Battery.Voltage)
	}
	select {
	case <-v.Done():
		lg.Warn("Link closed", "error", v.Err())
		return v.Err()
	default:
		return nil
	}
}
