// mission_test.go

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
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
)

func waitMission(t *testing.T, m *Mission) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("mission did not finish")
	}
}

func lastMode(sim *simAutopilot) uint32 {
	modes := sim.modeRequests()
	if len(modes) == 0 {
		return 0xFFFF
	}
	return modes[len(modes)-1]
}

func TestMissionStartEmpty(t *testing.T) {
	v := connectSim(t, newSim(), testConfig())
	m := v.Mission()
	if m.Start() {
		t.Error("empty mission started")
	}
	if m.Status() != MissionIdle || m.Current() != -1 {
		t.Errorf("status %s, current %d", m.Status(), m.Current())
	}
}

func TestMissionSingleWaypoint(t *testing.T) {
	sim := newSim()
	v := connectSim(t, sim, testConfig())
	m := v.Mission()

	if err := m.AddWaypoint(1.0, 1.0, 10, 0, ""); err != nil {
		t.Fatal(err)
	}
	if !m.Start() {
		t.Fatal("Start failed")
	}
	waitMission(t, m)

	out := m.Outcome()
	if !out.Completed || out.Failsafe || !out.Airborne {
		t.Errorf("outcome = %+v", out)
	}
	if m.Status() != MissionIdle {
		t.Errorf("status %s after completion", m.Status())
	}
	// ended away from the ground, so the recovery mode is requested
	if got := lastMode(sim); got != copterModes[ModeLand] {
		t.Errorf("last mode request %d, expected LAND", got)
	}

	items := m.Items()
	if len(items) != 2 || items[0].Type != MissionHomePoint {
		t.Fatalf("home point not inserted: %+v", items)
	}
	for i, it := range items {
		if it.Status != ItemCompleted {
			t.Errorf("item %d is %s", i, it.Status)
		}
	}
	home, ok := v.Variable(HomeVariable)
	if !ok || home.(GlobalTarget).Lat != simHomeLat {
		t.Errorf("home variable = %v, %v", home, ok)
	}
	if len(sim.commands(common.MAV_CMD_DO_SET_HOME)) == 0 {
		t.Error("home position was not set")
	}
}

func TestMissionFull(t *testing.T) {
	sim := newSim()
	v := connectSim(t, sim, testConfig())
	m := v.Mission()

	var mu sync.Mutex
	var calls int
	var running string
	var held GlobalTarget
	err := m.RegisterHook("photo", HookFunc(func(v *Vehicle, hold *GlobalHold) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		running = v.Mission().CurrentHook()
		held = hold.Target()
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	if err := m.AddTakeoff(10, 0, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.AddWaypoint(47.3980, 8.5460, 15, 20*time.Millisecond, "photo"); err != nil {
		t.Fatal(err)
	}
	if err := m.AddLand(0, ""); err != nil {
		t.Fatal(err)
	}

	if !m.Start() {
		t.Fatal("Start failed")
	}
	waitMission(t, m)

	out := m.Outcome()
	if !out.Completed || out.Failsafe || out.Airborne {
		t.Errorf("outcome = %+v", out)
	}
	mu.Lock()
	if calls != 1 || running != "photo" {
		t.Errorf("hook ran %d times, current hook %q", calls, running)
	}
	if held.Lat != 47.3980 || held.Lon != 8.5460 {
		t.Errorf("hook held %+v", held)
	}
	mu.Unlock()
	if m.CurrentHook() != "" {
		t.Error("current hook not cleared")
	}

	if got := lastMode(sim); got != copterModes[ModeGuided] {
		t.Errorf("landing mission requested mode %d after GUIDED", got)
	}
	if n := len(sim.commands(common.MAV_CMD_NAV_TAKEOFF)); n != 1 {
		t.Errorf("%d takeoff commands", n)
	}
	if n := len(sim.commands(common.MAV_CMD_NAV_LAND)); n != 1 {
		t.Errorf("%d land commands", n)
	}
	for i, it := range m.Items() {
		if it.Status != ItemCompleted {
			t.Errorf("item %d is %s", i, it.Status)
		}
	}
}

func TestMissionHookPanic(t *testing.T) {
	sim := newSim()
	v := connectSim(t, sim, testConfig())
	m := v.Mission()

	m.RegisterHook("boom", HookFunc(func(*Vehicle, *GlobalHold) error { panic("lens cap") }))
	m.AddWaypoint(1, 1, 5, 0, "boom")
	m.AddWaypoint(1.0001, 1, 5, 0, "missing")

	if !m.Start() {
		t.Fatal("Start failed")
	}
	waitMission(t, m)
	if out := m.Outcome(); !out.Completed || out.Failsafe {
		t.Errorf("outcome = %+v", out)
	}
}

func TestMissionArmFailure(t *testing.T) {
	sim := newSim()
	sim.deny[common.MAV_CMD_COMPONENT_ARM_DISARM] = true
	v := connectSim(t, sim, testConfig())
	m := v.Mission()

	m.AddWaypoint(1, 1, 10, 0, "")
	if m.Start() {
		t.Error("mission started without arming")
	}
	if m.Status() != MissionIdle {
		t.Errorf("status %s", m.Status())
	}
	if len(sim.commands(common.MAV_CMD_DO_SET_MODE)) != 0 {
		t.Error("mode changed after arming failed")
	}
}

func TestMissionRefusesAuto(t *testing.T) {
	sim := newSim()
	v := connectSim(t, sim, testConfig())
	sim.setMode(ModeAuto)
	eventually(t, time.Second, "AUTO mode", func() bool { return v.FlightMode() == ModeAuto })

	m := v.Mission()
	m.AddWaypoint(1, 1, 10, 0, "")
	if m.Start() {
		t.Error("mission took over from AUTO")
	}
	if len(sim.commands(common.MAV_CMD_COMPONENT_ARM_DISARM)) != 0 {
		t.Error("armed while in AUTO")
	}
}

// startStuck starts a mission whose waypoint is never reached.
func startStuck(t *testing.T) (*simAutopilot, *Vehicle, *Mission) {
	t.Helper()
	sim := newSim()
	sim.teleport = false
	v := connectSim(t, sim, testConfig())
	m := v.Mission()
	if err := m.AddWaypoint(1, 1, 10, 0, ""); err != nil {
		t.Fatal(err)
	}
	if !m.Start() {
		t.Fatal("Start failed")
	}
	eventually(t, time.Second, "waypoint in progress", func() bool {
		items := m.Items()
		return m.Current() == 1 && items[1].Status == ItemInProgress
	})
	return sim, v, m
}

func TestMissionDriftFailsafe(t *testing.T) {
	sim, _, m := startStuck(t)

	sim.setMode(ModeLoiter)
	waitMission(t, m)

	out := m.Outcome()
	if !out.Failsafe || out.Completed {
		t.Errorf("outcome = %+v", out)
	}
	if !strings.Contains(out.Reason, ErrFlightModeChanged.Error()) {
		t.Errorf("reason %q", out.Reason)
	}
	if got := lastMode(sim); got != copterModes[ModeLand] {
		t.Errorf("recovery mode %d, expected LAND", got)
	}
	if m.Status() != MissionIdle {
		t.Errorf("status %s", m.Status())
	}
}

func TestMissionLandModeAllowed(t *testing.T) {
	sim := newSim()
	sim.teleport = false
	sim.relAlt = 20
	v := connectSim(t, sim, testConfig())
	m := v.Mission()
	m.AddLand(0, "")
	if !m.Start() {
		t.Fatal("Start failed")
	}

	eventually(t, time.Second, "landing", func() bool {
		return v.FlightMode() == ModeLand && m.Current() == 1
	})
	time.Sleep(50 * time.Millisecond)
	if m.Status() != MissionRunning {
		t.Fatalf("LAND mode ended the mission: %+v", m.Outcome())
	}

	sim.set(func(s *simAutopilot) { s.relAlt = 0 })
	sim.setMode(ModeLand)
	waitMission(t, m)
	if out := m.Outcome(); !out.Completed || out.Failsafe || out.Airborne {
		t.Errorf("outcome = %+v", out)
	}
}

func TestMissionLandInterrupted(t *testing.T) {
	sim := newSim()
	sim.teleport = false
	sim.relAlt = 20
	v := connectSim(t, sim, testConfig())
	m := v.Mission()
	m.AddLand(0, "")
	if !m.Start() {
		t.Fatal("Start failed")
	}
	eventually(t, time.Second, "landing", func() bool { return v.FlightMode() == ModeLand })

	sim.setMode(ModeLoiter)
	waitMission(t, m)
	if out := m.Outcome(); out.Completed || out.Failsafe {
		t.Errorf("outcome = %+v", out)
	}
}

func TestMissionStopResume(t *testing.T) {
	sim, _, m := startStuck(t)

	if !m.Stop() {
		t.Fatal("Stop failed")
	}
	waitMission(t, m)
	if m.Status() != MissionPaused {
		t.Errorf("status %s after stop", m.Status())
	}
	if got := lastMode(sim); got != copterModes[ModeLoiter] {
		t.Errorf("pause mode %d, expected LOITER", got)
	}
	if out := m.Outcome(); out.Failsafe {
		t.Errorf("stop caused a failsafe: %+v", out)
	}
	items := m.Items()
	if m.Current() != 1 || items[1].Status != ItemPending {
		t.Errorf("current %d, item status %s", m.Current(), items[1].Status)
	}
	if m.Stop() {
		t.Error("stopped a paused mission")
	}

	sim.set(func(s *simAutopilot) { s.teleport = true })
	if !m.Start() {
		t.Fatal("resume failed")
	}
	waitMission(t, m)
	if out := m.Outcome(); !out.Completed {
		t.Errorf("outcome after resume = %+v", out)
	}
	if n := len(m.Items()); n != 2 {
		t.Errorf("resume changed the list to %d items", n)
	}
}

func TestMissionEditWhileRunning(t *testing.T) {
	_, _, m := startStuck(t)

	if err := m.AddWaypoint(2, 2, 10, 0, ""); !errors.Is(err, ErrMissionRunning) {
		t.Errorf("AddWaypoint = %v", err)
	}
	if err := m.Clear(); !errors.Is(err, ErrMissionRunning) {
		t.Errorf("Clear = %v", err)
	}
	if m.Reset() {
		t.Error("reset a running mission")
	}
	if m.Start() {
		t.Error("started twice")
	}
	m.Abort()
}

func TestMissionAbort(t *testing.T) {
	sim, _, m := startStuck(t)

	if !m.Abort() {
		t.Fatal("Abort failed")
	}
	if m.Status() != MissionIdle || m.Current() != -1 || len(m.Items()) != 0 {
		t.Errorf("after abort: status %s, current %d, %d items", m.Status(), m.Current(), len(m.Items()))
	}
	if got := lastMode(sim); got != copterModes[ModeLoiter] {
		t.Errorf("abort mode %d, expected LOITER", got)
	}
	if m.Abort() {
		t.Error("aborted an idle mission")
	}
}

func TestMissionReset(t *testing.T) {
	v := connectSim(t, newSim(), testConfig())
	m := v.Mission()
	m.AddWaypoint(1, 1, 10, 0, "")
	if !m.Start() {
		t.Fatal("Start failed")
	}
	waitMission(t, m)

	if !m.Reset() {
		t.Fatal("Reset failed")
	}
	items := m.Items()
	if m.Current() != -1 {
		t.Errorf("current %d after reset", m.Current())
	}
	if items[0].Status != ItemCompleted {
		t.Error("home point was reset")
	}
	if items[1].Status != ItemPending || len(items[1].Scratch) != 0 {
		t.Errorf("waypoint not reset: %+v", items[1])
	}
}

func TestMissionValidation(t *testing.T) {
	v := connectSim(t, newSim(), testConfig())
	m := v.Mission()

	tests := []struct {
		item MissionItem
		want error
	}{
		{MissionItem{Type: MissionWaypoint, Alt: -1}, ErrNegativeAltitude},
		{MissionItem{Type: MissionTakeoff, Alt: 5, Delay: -time.Second}, ErrNegativeDelay},
		{MissionItem{Type: MissionLand, HookID: "a|b"}, ErrInvalidHookID},
		{MissionItem{Type: MissionSplineWaypoint}, ErrUnsupportedMission},
		{MissionItem{Type: MissionType(9)}, ErrMissionType},
		{MissionItem{Type: MissionWaypoint, Lat: math.NaN(), Lon: 1, Alt: 10}, ErrInvalidCoordinate},
		{MissionItem{Type: MissionWaypoint, Lat: 1, Lon: 1, Alt: math.Inf(1)}, ErrInvalidCoordinate},
		{MissionItem{Type: MissionWaypoint, Lat: -90.1, Lon: 1, Alt: 10}, ErrInvalidCoordinate},
		{MissionItem{Type: MissionWaypoint, Lat: 1, Lon: 181, Alt: 10}, ErrInvalidCoordinate},
	}
	for _, test := range tests {
		if err := m.AddItem(test.item); !errors.Is(err, test.want) {
			t.Errorf("AddItem(%+v) = %v, expected %v", test.item, err, test.want)
		}
	}
	if len(m.Items()) != 0 {
		t.Error("invalid items were added")
	}

	if err := m.RegisterHook("", HookFunc(nil)); !errors.Is(err, ErrInvalidHookID) {
		t.Errorf("RegisterHook empty id = %v", err)
	}
	if err := m.SetWaypointRadius(-1); !errors.Is(err, ErrNegativeRadius) {
		t.Errorf("SetWaypointRadius(-1) = %v", err)
	}
	if ItemStatus(7).String() != "UNKNOWN" || MissionStatus(-1).String() != "UNKNOWN" {
		t.Error("out of range status did not name UNKNOWN")
	}
	if MissionWaypoint.String() != "WAYPOINT" || ItemInProgress.String() != "IN_PROGRESS" || MissionPaused.String() != "PAUSED" {
		t.Error("bad String() names")
	}
}
