// sim_test.go

// This file contains an in-memory autopilot used by the package tests.

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
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

const (
	simHomeLat = 47.397742
	simHomeLon = 8.545594
	simHomeAlt = 488.0
)

// simAutopilot is a Transport that behaves like a simple ArduCopter: it
// acknowledges commands, tracks mode, armed state and position, and flies
// to guided targets instantly when teleport is set.
type simAutopilot struct {
	in        chan Frame
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	sent     []message.Message
	mode     uint32
	armed    bool
	lat, lon float64
	relAlt   float64
	teleport bool
	deny     map[common.MAV_CMD]bool // answer with DENIED
	silent   map[common.MAV_CMD]bool // never answer
}

func newSim() *simAutopilot {
	return &simAutopilot{
		in:       make(chan Frame, 4096),
		closed:   make(chan struct{}),
		mode:     copterModes["STABILIZE"],
		lat:      simHomeLat,
		lon:      simHomeLon,
		teleport: true,
		deny:     make(map[common.MAV_CMD]bool),
		silent:   make(map[common.MAV_CMD]bool),
	}
}

func (s *simAutopilot) Recv() (Frame, error) {
	select {
	case f := <-s.in:
		return f, nil
	case <-s.closed:
		return Frame{}, io.EOF
	}
}

func (s *simAutopilot) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *simAutopilot) push(msgs ...message.Message) {
	for _, m := range msgs {
		select {
		case s.in <- Frame{SystemID: 1, ComponentID: 1, Message: m}:
		case <-s.closed:
		default:
		}
	}
}

// boot emits the first heartbeat and position reports.
func (s *simAutopilot) boot() {
	s.mu.Lock()
	msgs := s.reportLocked()
	s.mu.Unlock()
	s.push(msgs...)
}

func (s *simAutopilot) reportLocked() []message.Message {
	base := common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED
	status := common.MAV_STATE_STANDBY
	if s.armed {
		base |= common.MAV_MODE_FLAG_SAFETY_ARMED
		status = common.MAV_STATE_ACTIVE
	}
	return []message.Message{
		&common.MessageHeartbeat{
			Type:           common.MAV_TYPE_QUADROTOR,
			Autopilot:      common.MAV_AUTOPILOT_ARDUPILOTMEGA,
			BaseMode:       base,
			CustomMode:     s.mode,
			SystemStatus:   status,
			MavlinkVersion: 3,
		},
		&common.MessageGlobalPositionInt{
			Lat:         int32(math.Round(s.lat * 1e7)),
			Lon:         int32(math.Round(s.lon * 1e7)),
			Alt:         int32((simHomeAlt + s.relAlt) * 1000),
			RelativeAlt: int32(s.relAlt * 1000),
			Hdg:         9000,
		},
		&common.MessageLocalPositionNed{Z: float32(-s.relAlt)},
	}
}

func (s *simAutopilot) Send(msg message.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)

	var out []message.Message
	switch m := msg.(type) {
	case *common.MessageCommandLong:
		if s.silent[m.Command] {
			break
		}
		result := common.MAV_RESULT_ACCEPTED
		if s.deny[m.Command] {
			result = common.MAV_RESULT_DENIED
		} else {
			s.applyLocked(m)
		}
		out = append(s.reportLocked(), &common.MessageCommandAck{Command: m.Command, Result: result})
	case *common.MessageMissionItemInt:
		if s.teleport && m.Current == 2 {
			s.lat = float64(m.X) / 1e7
			s.lon = float64(m.Y) / 1e7
			s.relAlt = float64(m.Z)
			out = s.reportLocked()
		}
	}
	s.mu.Unlock()

	s.push(out...)
	return nil
}

func (s *simAutopilot) applyLocked(m *common.MessageCommandLong) {
	switch m.Command {
	case common.MAV_CMD_COMPONENT_ARM_DISARM:
		s.armed = m.Param1 == 1
	case common.MAV_CMD_DO_SET_MODE:
		s.mode = uint32(m.Param2)
	case common.MAV_CMD_NAV_TAKEOFF:
		if s.teleport {
			s.relAlt = float64(m.Param7)
		}
	case common.MAV_CMD_NAV_LAND:
		s.mode = copterModes["LAND"]
		if s.teleport {
			s.relAlt = 0
		}
	}
}

// setMode changes mode as if from the RC transmitter.
func (s *simAutopilot) setMode(name string) {
	s.mu.Lock()
	s.mode = copterModes[name]
	msgs := s.reportLocked()
	s.mu.Unlock()
	s.push(msgs...)
}

func (s *simAutopilot) set(f func(s *simAutopilot)) {
	s.mu.Lock()
	f(s)
	s.mu.Unlock()
}

func (s *simAutopilot) commands(cmd common.MAV_CMD) []*common.MessageCommandLong {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cmds []*common.MessageCommandLong
	for _, m := range s.sent {
		if c, ok := m.(*common.MessageCommandLong); ok && c.Command == cmd {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

// modeRequests returns the custom modes asked for with DO_SET_MODE.
func (s *simAutopilot) modeRequests() []uint32 {
	var modes []uint32
	for _, c := range s.commands(common.MAV_CMD_DO_SET_MODE) {
		modes = append(modes, uint32(c.Param2))
	}
	return modes
}

func (s *simAutopilot) waypoints() []*common.MessageMissionItemInt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var wps []*common.MessageMissionItemInt
	for _, m := range s.sent {
		if w, ok := m.(*common.MessageMissionItemInt); ok {
			wps = append(wps, w)
		}
	}
	return wps
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ConnectTimeout = Duration(2 * time.Second)
	cfg.TelemetryRateHz = 0
	fast := Retry{Attempts: 3, Timeout: Duration(50 * time.Millisecond)}
	cfg.ModeRetry, cfg.ConfigRetry = fast, fast
	cfg.HoldInterval = Duration(10 * time.Millisecond)
	cfg.SetpointInterval = Duration(10 * time.Millisecond)
	cfg.MissionControlRateHz = 100
	cfg.MissionRetries = 3
	cfg.MissionRetryTimeout = Duration(50 * time.Millisecond)
	cfg.ArmSettleDelay = Duration(10 * time.Millisecond)
	cfg.HoldStopTimeout = Duration(time.Second)
	return cfg
}

func connectSim(t *testing.T, sim *simAutopilot, cfg Config) *Vehicle {
	t.Helper()
	sim.boot()
	v, err := Connect(sim, cfg, nil)
	if err != nil {
		t.Fatalf("Connect failed with %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

// eventually polls cond until it holds or d elapses.
func eventually(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
