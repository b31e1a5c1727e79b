// mission.go

// This file contains the mission engine.

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
	"math"
	"sync"
	"time"

	"github.com/brunoga/deep"

	"github.com/SMerrony/mavguide/log"
)

// MissionType identifies what a mission item does. The numeric values are
// those of the mission file format.
type MissionType int

// Mission item types...
const (
	MissionUnknown MissionType = iota
	MissionTakeoff
	MissionLand
	MissionWaypoint
	MissionSplineWaypoint // reserved
	MissionHomePoint
)

func (t MissionType) String() string {
	switch t {
	case MissionTakeoff:
		return "TAKEOFF"
	case MissionLand:
		return "LAND"
	case MissionWaypoint:
		return "WAYPOINT"
	case MissionSplineWaypoint:
		return "SPLINE_WAYPOINT"
	case MissionHomePoint:
		return "HOME_POINT"
	}
	return "UNKNOWN"
}

// ItemStatus is the progress of one mission item.
type ItemStatus int

// Item statuses...
const (
	ItemPending ItemStatus = iota
	ItemInProgress
	ItemCompleted
)

var itemStatusNames = [...]string{"PENDING", "IN_PROGRESS", "COMPLETED"}

func (s ItemStatus) String() string {
	if s >= 0 && int(s) < len(itemStatusNames) {
		return itemStatusNames[s]
	}
	return "UNKNOWN"
}

// MissionStatus is the state of the mission engine.
type MissionStatus int

// Mission statuses...
const (
	MissionIdle MissionStatus = iota
	MissionRunning
	MissionPaused
)

var missionStatusNames = [...]string{"IDLE", "RUNNING", "PAUSED"}

func (s MissionStatus) String() string {
	if s >= 0 && int(s) < len(missionStatusNames) {
		return missionStatusNames[s]
	}
	return "UNKNOWN"
}

// HomeVariable is the vehicle variable holding the GlobalTarget recorded as
// home when a mission starts.
const HomeVariable = "home"

// MissionItem is one step of a mission. Alt is relative to home. Scratch
// holds the engine's per-item bookkeeping such as the retry counter.
type MissionItem struct {
	Type    MissionType
	Lat     float64
	Lon     float64
	Alt     float64
	Delay   time.Duration
	HookID  string
	Status  ItemStatus
	Scratch map[string]float64
}

func (it *MissionItem) validate() error {
	switch it.Type {
	case MissionTakeoff, MissionLand, MissionWaypoint, MissionHomePoint:
	case MissionSplineWaypoint:
		return ErrUnsupportedMission
	default:
		return fmt.Errorf("%w: %d", ErrMissionType, int(it.Type))
	}
	for _, f := range [...]float64{it.Lat, it.Lon, it.Alt} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrInvalidCoordinate
		}
	}
	if math.Abs(it.Lat) > 90 || math.Abs(it.Lon) > 180 {
		return ErrInvalidCoordinate
	}
	if it.Alt < 0 {
		return ErrNegativeAltitude
	}
	if it.Delay < 0 {
		return ErrNegativeDelay
	}
	if !validHookID(it.HookID) {
		return ErrInvalidHookID
	}
	return nil
}

// Outcome describes how the last mission run ended.
type Outcome struct {
	Completed bool   // every item completed
	Failsafe  bool   // the recovery mode was forced by a failure
	Airborne  bool   // the list ended on an item other than Land
	Reason    string // why a failsafe happened
}

type stepResult int

const (
	stepWait stepResult = iota // item still in progress
	stepNext                   // advanced to the next item
	stepHalt                   // stopped without failure
	stepFinished
	stepFinishedAirborne
)

// Mission runs an ordered list of mission items on its vehicle.
type Mission struct {
	v  *Vehicle
	lg *log.Logger

	opMu sync.Mutex // serialises Start, Stop, Abort, Reset and Clear

	mu          sync.Mutex
	items       []*MissionItem
	cursor      int
	status      MissionStatus
	hooks       map[string]Hook
	runningHook string
	wpRadius    float64
	outcome     Outcome
	stop        chan struct{} // closed by Stop
	done        chan struct{} // closed when the mission loop exits
}

func newMission(v *Vehicle) *Mission {
	m := &Mission{
		v:        v,
		lg:       v.lg.With("component", "mission"),
		cursor:   -1,
		hooks:    make(map[string]Hook),
		wpRadius: v.cfg.WaypointRadius,
		done:     make(chan struct{}),
	}
	close(m.done)
	return m
}

// Status returns the engine status.
func (m *Mission) Status() MissionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Current returns the index of the item being flown, or -1.
func (m *Mission) Current() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Items returns a copy of the mission list.
func (m *Mission) Items() []*MissionItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deep.MustCopy(m.items)
}

// Outcome returns how the last run ended.
func (m *Mission) Outcome() Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome
}

// Done is closed when the mission loop is not running.
func (m *Mission) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Wait blocks until the mission loop has exited.
func (m *Mission) Wait() { <-m.Done() }

// SetWaypointRadius sets the horizontal acceptance radius for waypoints;
// 0 uses the waypoint threshold instead.
func (m *Mission) SetWaypointRadius(r float64) error {
	if r < 0 {
		return ErrNegativeRadius
	}
	m.mu.Lock()
	m.wpRadius = r
	m.mu.Unlock()
	return nil
}

// AddItem appends a copy of it to the mission list.
func (m *Mission) AddItem(it MissionItem) error {
	if err := it.validate(); err != nil {
		return err
	}
	it.Status = ItemPending
	it.Scratch = make(map[string]float64)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == MissionRunning {
		return ErrMissionRunning
	}
	m.items = append(m.items, &it)
	return nil
}

// AddTakeoff appends a takeoff to alt metres above home.
func (m *Mission) AddTakeoff(alt float64, delay time.Duration, hookID string) error {
	return m.AddItem(MissionItem{Type: MissionTakeoff, Alt: alt, Delay: delay, HookID: hookID})
}

// AddLand appends a landing at the current position.
func (m *Mission) AddLand(delay time.Duration, hookID string) error {
	return m.AddItem(MissionItem{Type: MissionLand, Delay: delay, HookID: hookID})
}

// AddWaypoint appends a waypoint at alt metres above home.
func (m *Mission) AddWaypoint(lat, lon, alt float64, delay time.Duration, hookID string) error {
	return m.AddItem(MissionItem{Type: MissionWaypoint, Lat: lat, Lon: lon, Alt: alt, Delay: delay, HookID: hookID})
}

// Clear empties the mission list. It is refused while running.
func (m *Mission) Clear() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if m.Status() == MissionRunning {
		return ErrMissionRunning
	}
	m.Wait()
	m.clear()
	return nil
}

func (m *Mission) clear() {
	m.mu.Lock()
	m.items = nil
	m.cursor = -1
	m.status = MissionIdle
	m.mu.Unlock()
}

// Reset returns every item except the home point to Pending and rewinds
// the mission. It is refused while running.
func (m *Mission) Reset() bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if m.Status() == MissionRunning {
		m.lg.Info("Cannot reset a running mission")
		return false
	}
	m.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.Type == MissionHomePoint {
			continue
		}
		it.Status = ItemPending
		it.Scratch = make(map[string]float64)
	}
	m.cursor = -1
	return true
}

// Start arms the vehicle if needed, switches to GUIDED and starts the
// mission loop, resuming from the current item when paused. It needs a
// non-empty list and known global and local positions, and refuses to
// take over from AUTO.
func (m *Mission) Start() bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	status, n := m.status, len(m.items)
	m.mu.Unlock()

	switch {
	case n == 0:
		m.lg.Info("Cannot start mission: list is empty")
		return false
	case status == MissionRunning:
		m.lg.Info("Cannot start mission: already running")
		return false
	}
	m.Wait()

	fd := m.v.Telemetry()
	switch {
	case !fd.HasGlobalPosition():
		m.lg.Info("Cannot start mission: no global position")
		return false
	case !fd.HasLocalPosition():
		m.lg.Info("Cannot start mission: no local position")
		return false
	case fd.FlightMode == ModeAuto:
		m.lg.Info("Cannot start mission: vehicle is in AUTO")
		return false
	}

	m.mu.Lock()
	if m.items[0].Type != MissionHomePoint {
		home := &MissionItem{Type: MissionHomePoint, Scratch: make(map[string]float64)}
		m.items = append([]*MissionItem{home}, m.items...)
		if m.cursor >= 0 {
			m.cursor++
		}
	}
	m.mu.Unlock()

	cfg := m.v.cfg
	if !fd.Armed {
		m.lg.Info("Vehicle is not armed, arming")
		if !m.v.Arm(cfg.ModeRetry) {
			m.lg.Warn("Cannot start mission: arming failed")
			return false
		}
		time.Sleep(cfg.ArmSettleDelay.D())
	}

	if !m.v.SetFlightMode(ModeGuided, cfg.ModeRetry) || !m.v.WaitFlightMode(ModeGuided, cfg.ModeRetry.Timeout.D()) {
		m.lg.Warn("Cannot start mission: GUIDED mode refused")
		return false
	}

	m.v.SetVariable(HomeVariable, GlobalTarget{Lat: fd.GlobalPosition.Lat, Lon: fd.GlobalPosition.Lon})

	m.mu.Lock()
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.runningHook = ""
	m.outcome = Outcome{}
	m.status = MissionRunning
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	m.lg.Info("Mission started", "items", n, "from", m.Current())
	go m.run(stop, done)
	return true
}

// Stop pauses a running mission and puts the vehicle in the pause mode.
// The item in progress is flown again from the start on the next Start.
func (m *Mission) Stop() bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.pause()
}

func (m *Mission) pause() bool {
	m.mu.Lock()
	if m.status != MissionRunning {
		m.mu.Unlock()
		m.lg.Info("Cannot stop mission: not running")
		return false
	}
	m.status = MissionPaused
	close(m.stop)
	m.mu.Unlock()

	if !m.v.SetFlightMode(m.v.cfg.PauseMode, m.v.cfg.ModeRetry) {
		m.lg.Warn("Could not set pause mode", "mode", m.v.cfg.PauseMode)
	}
	m.lg.Info("Mission paused")
	return true
}

// Abort stops the mission if it is running and empties the list.
func (m *Mission) Abort() bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	switch m.Status() {
	case MissionIdle:
		m.lg.Info("Cannot abort mission: not running or paused")
		return false
	case MissionRunning:
		m.pause()
	}
	m.Wait()
	m.clear()
	m.lg.Info("Mission aborted")
	return true
}

func (m *Mission) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	period := m.v.cfg.controlPeriod()
	var out Outcome

loop:
	for {
		res, err := m.safeStep(stop)
		if err != nil {
			if m.Status() == MissionPaused {
				m.lg.Info("Mission step interrupted by stop", "error", err)
				break
			}
			out.Failsafe = true
			out.Reason = err.Error()
			m.lg.Error("Mission failsafe", "reason", out.Reason)
			break
		}

		switch res {
		case stepHalt:
			break loop
		case stepFinished, stepFinishedAirborne:
			out.Completed = true
			out.Airborne = res == stepFinishedAirborne
			break loop
		case stepWait:
			select {
			case <-stop:
			case <-m.v.linkDone:
				out.Failsafe = true
				out.Reason = ErrLinkClosed.Error()
				break loop
			case <-time.After(period):
			}
		}
	}

	if out.Failsafe || out.Airborne {
		if out.Airborne {
			m.lg.Warn("Mission ended away from the ground, setting recovery mode")
		}
		if !m.v.SetFlightMode(m.v.cfg.RecoveryMode, m.v.cfg.ModeRetry) {
			m.lg.Error("Could not set recovery mode", "mode", m.v.cfg.RecoveryMode)
		}
	}

	m.mu.Lock()
	if m.status == MissionPaused {
		if m.cursor >= 0 && m.cursor < len(m.items) && m.items[m.cursor].Status == ItemInProgress {
			m.items[m.cursor].Status = ItemPending
		}
	} else {
		m.status = MissionIdle
	}
	m.outcome = out
	m.mu.Unlock()

	m.lg.Info("Mission loop ended", "completed", out.Completed, "failsafe", out.Failsafe)
}

func (m *Mission) safeStep(stop <-chan struct{}) (res stepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mission step panic: %v", r)
		}
	}()
	return m.step(stop)
}

func (m *Mission) step(stop <-chan struct{}) (stepResult, error) {
	m.mu.Lock()
	if m.status != MissionRunning || m.cursor < 0 || m.cursor >= len(m.items) {
		m.mu.Unlock()
		return stepHalt, nil
	}
	idx, item := m.cursor, m.items[m.cursor]
	last := idx == len(m.items)-1
	status := item.Status
	m.mu.Unlock()

	if mode := m.v.FlightMode(); mode != ModeGuided && !(mode == ModeLand && item.Type == MissionLand) {
		if item.Type == MissionLand || item.Type == MissionHomePoint {
			m.lg.Info("Flight mode changed, ending mission", "mode", mode, "item", idx)
			return stepHalt, nil
		}
		return stepHalt, fmt.Errorf("%w: %s during item %d", ErrFlightModeChanged, mode, idx)
	}

	if status == ItemPending {
		fd := m.v.Telemetry()
		m.mu.Lock()
		item.Scratch["start_alt"] = fd.GlobalPosition.RelativeAlt
		item.Scratch["start_time"] = float64(time.Now().UnixMilli())
		m.mu.Unlock()

		m.lg.Info("Starting mission item", "item", idx, "type", item.Type)
		if err := m.execute(item); err != nil {
			return stepHalt, fmt.Errorf("item %d: %w", idx, err)
		}
		m.setStatus(item, ItemInProgress)
	}

	if !m.reached(item) {
		m.mu.Lock()
		item.Scratch["retries"]++
		m.mu.Unlock()
		return stepWait, nil
	}

	if item.HookID != "" {
		m.runHook(item.HookID)
	}
	m.setStatus(item, ItemCompleted)
	m.lg.Info("Mission item completed", "item", idx, "type", item.Type)

	if last {
		if item.Type != MissionLand {
			return stepFinishedAirborne, nil
		}
		return stepFinished, nil
	}

	m.mu.Lock()
	m.cursor++
	m.mu.Unlock()

	if item.Delay > 0 {
		m.holdFor(item.Delay, stop)
	}
	return stepNext, nil
}

func (m *Mission) setStatus(it *MissionItem, s ItemStatus) {
	m.mu.Lock()
	it.Status = s
	m.mu.Unlock()
}

// execute issues the one-shot command that begins an item.
func (m *Mission) execute(it *MissionItem) error {
	r := m.v.cfg.missionRetry()
	ok := true
	switch it.Type {
	case MissionTakeoff:
		ok = m.v.Takeoff(it.Alt, r)
	case MissionLand:
		ok = m.v.Land(r)
	case MissionWaypoint:
		ok = m.v.GoToGlobalPosition(it.Lat, it.Lon, it.Alt)
	case MissionHomePoint:
		ok = m.v.SetHomePosition(r)
	case MissionSplineWaypoint:
		return ErrUnsupportedMission
	default:
		return ErrMissionType
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCommandFailed, it.Type)
	}
	return nil
}

// reached is the completion test of an item.
func (m *Mission) reached(it *MissionItem) bool {
	cfg := m.v.cfg
	switch it.Type {
	case MissionTakeoff:
		return m.v.ReachedRelativeAltitude(it.Alt, cfg.AltitudeThreshold)
	case MissionLand:
		return m.v.ReachedRelativeAltitude(0, cfg.AltitudeThreshold)
	case MissionWaypoint:
		// the setpoint can be lost with the ground link, so keep sending it
		m.v.GoToGlobalPosition(it.Lat, it.Lon, it.Alt)
		m.mu.Lock()
		radius := m.wpRadius
		m.mu.Unlock()
		return m.v.ReachedGlobalPosition(it.Lat, it.Lon, it.Alt, cfg.WaypointThreshold, radius)
	}
	return true
}

// holdFor holds position for d or until the mission is stopped.
func (m *Mission) holdFor(d time.Duration, stop <-chan struct{}) {
	hold, err := m.v.HoldGlobalPosition(0)
	if err != nil {
		m.lg.Warn("Cannot hold position during delay", "error", err)
	}
	select {
	case <-time.After(d):
	case <-stop:
	}
	if hold != nil {
		if err := hold.Stop(m.v.cfg.HoldStopTimeout.D()); err != nil {
			m.lg.Warn("Delay hold did not stop", "error", err)
		}
	}
}
