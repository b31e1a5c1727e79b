// config.go

// This file holds the run-time configuration of a vehicle connection.

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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Duration is a time.Duration that is written as a string such as "1.5s"
// in JSON configuration files.
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// plain numbers are milliseconds
		var ms float64
		if err := json.Unmarshal(b, &ms); err != nil {
			return fmt.Errorf("duration %s: %w", string(b), err)
		}
		*d = Duration(ms * float64(time.Millisecond))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Retry is the policy for a command sent with the retry-until-ack protocol:
// up to Attempts sends, each waiting Timeout for an acknowledgement.
type Retry struct {
	Attempts int      `json:"attempts"`
	Timeout  Duration `json:"timeout"`
}

// Default retry policies. NavRetry suits takeoff, land, home, servo and
// relay commands issued outside a mission; the mission engine uses its own
// MissionRetries policy.
var (
	ModeRetry   = Retry{Attempts: 4, Timeout: Duration(1500 * time.Millisecond)}
	NavRetry    = Retry{Attempts: 12, Timeout: Duration(500 * time.Millisecond)}
	ConfigRetry = Retry{Attempts: 8, Timeout: Duration(500 * time.Millisecond)}
)

// Config holds everything needed to connect to and fly a vehicle.
type Config struct {
	Endpoint        string   `json:"endpoint"`
	Baud            int      `json:"baud"`
	SystemID        uint8    `json:"system_id"`
	ComponentID     uint8    `json:"component_id"`
	ConnectTimeout  Duration `json:"connect_timeout"`
	TelemetryRateHz float64  `json:"telemetry_rate_hz"` // 0 leaves stream rates alone

	ModeRetry   Retry `json:"mode_retry"`   // mission arming and mode changes
	ConfigRetry Retry `json:"config_retry"` // telemetry stream rates

	HoldInterval     Duration `json:"hold_interval"`
	SetpointInterval Duration `json:"setpoint_interval"`
	MinPWM           uint16   `json:"min_pwm"`
	MaxPWM           uint16   `json:"max_pwm"`
	RearmOnFirstArm  bool     `json:"rearm_on_first_arm"`

	MissionControlRateHz float64  `json:"mission_control_rate_hz"`
	MissionRetries       int      `json:"mission_retries"`
	MissionRetryTimeout  Duration `json:"mission_retry_timeout"`
	WaypointRadius       float64  `json:"waypoint_radius"`
	WaypointThreshold    float64  `json:"waypoint_threshold"`
	AltitudeThreshold    float64  `json:"altitude_threshold"`
	ArmSettleDelay       Duration `json:"arm_settle_delay"`
	HoldStopTimeout      Duration `json:"hold_stop_timeout"`
	RecoveryMode         string   `json:"recovery_mode"`
	PauseMode            string   `json:"pause_mode"`

	LogLevel   string `json:"log_level"`
	LogDir     string `json:"log_dir"`
	RecordPath string `json:"record_path"`
	OutputDir  string `json:"output_dir"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Endpoint:        "udp:0.0.0.0:14550",
		Baud:            57600,
		SystemID:        255,
		ComponentID:     190,
		ConnectTimeout:  Duration(30 * time.Second),
		TelemetryRateHz: 2,

		ModeRetry:   ModeRetry,
		ConfigRetry: ConfigRetry,

		HoldInterval:     Duration(250 * time.Millisecond),
		SetpointInterval: Duration(50 * time.Millisecond),
		MinPWM:           1000,
		MaxPWM:           2000,
		RearmOnFirstArm:  true,

		MissionControlRateHz: 4,
		MissionRetries:       20,
		MissionRetryTimeout:  Duration(500 * time.Millisecond),
		WaypointRadius:       0,
		WaypointThreshold:    0.15,
		AltitudeThreshold:    0.5,
		ArmSettleDelay:       Duration(3 * time.Second),
		HoldStopTimeout:      Duration(10 * time.Second),
		RecoveryMode:         "LAND",
		PauseMode:            "LOITER",

		LogLevel:  "info",
		OutputDir: ".",
	}
}

// LoadConfig reads a JSON configuration file over the defaults, then
// applies environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MAVGUIDE_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("MAVGUIDE_BAUD"); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAVGUIDE_BAUD: %w", err)
		}
		c.Baud = baud
	}
	if v := os.Getenv("MAVGUIDE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c Config) controlPeriod() time.Duration {
	if c.MissionControlRateHz <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / c.MissionControlRateHz)
}

func (c Config) missionRetry() Retry {
	return Retry{Attempts: c.MissionRetries, Timeout: c.MissionRetryTimeout}
}
