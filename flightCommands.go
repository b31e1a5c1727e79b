// flightCommands.go

// This file contains the vehicle command API except for the hold controllers.

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
	"strings"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/SMerrony/mavguide/geo"
)

// speed types of MAV_CMD_DO_CHANGE_SPEED
const (
	speedAir     = 0
	speedGround  = 1
	speedClimb   = 2
	speedDescent = 3
)

func (v *Vehicle) guided(op string) bool {
	if mode := v.FlightMode(); mode != ModeGuided {
		v.lg.Info("Vehicle is not in GUIDED mode", "op", op, "mode", mode)
		return false
	}
	return true
}

// SetFlightMode switches to the named mode of the vehicle's mode table.
// Unknown names fail without sending anything.
func (v *Vehicle) SetFlightMode(name string, r Retry) bool {
	name = strings.ToUpper(name)
	id, ok := ModeID(v.Telemetry().VehicleType, name)
	if !ok {
		v.lg.Warn("Unknown flight mode", "mode", name)
		return false
	}
	return v.command("SET_MODE "+name, r, common.MAV_CMD_DO_SET_MODE,
		CommandParams{float32(common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED), float32(id)})
}

// Arm arms the motors. The first successful arm of a connection is
// followed by a second arm with two more attempts when
// Config.RearmOnFirstArm is set, and that second arm decides the result.
func (v *Vehicle) Arm(r Retry) bool {
	if !v.command("ARM", r, common.MAV_CMD_COMPONENT_ARM_DISARM, CommandParams{1}) {
		return false
	}

	v.ctrlMu.Lock()
	first := v.firstArm
	v.firstArm = false
	v.ctrlMu.Unlock()

	if first && v.cfg.RearmOnFirstArm {
		r.Attempts += 2
		return v.command("ARM", r, common.MAV_CMD_COMPONENT_ARM_DISARM, CommandParams{1})
	}
	return true
}

// Disarm disarms the motors.
func (v *Vehicle) Disarm(r Retry) bool {
	return v.command("DISARM", r, common.MAV_CMD_COMPONENT_ARM_DISARM, CommandParams{0})
}

func (v *Vehicle) changeSpeed(op string, kind int, speed float64, r Retry) bool {
	if !v.guided(op) {
		return false
	}
	return v.command(op, r, common.MAV_CMD_DO_CHANGE_SPEED, CommandParams{float32(kind), float32(speed), -1})
}

// SetAirSpeed sets the target air speed in m/s. GUIDED only.
func (v *Vehicle) SetAirSpeed(speed float64, r Retry) bool {
	return v.changeSpeed("SET_AIR_SPEED", speedAir, speed, r)
}

// SetGroundSpeed sets the target ground speed in m/s. GUIDED only.
func (v *Vehicle) SetGroundSpeed(speed float64, r Retry) bool {
	return v.changeSpeed("SET_GROUND_SPEED", speedGround, speed, r)
}

// SetClimbSpeed sets the target climb rate in m/s. GUIDED only.
func (v *Vehicle) SetClimbSpeed(speed float64, r Retry) bool {
	return v.changeSpeed("SET_CLIMB_SPEED", speedClimb, speed, r)
}

// SetDescentSpeed sets the target descent rate in m/s. GUIDED only.
func (v *Vehicle) SetDescentSpeed(speed float64, r Retry) bool {
	return v.changeSpeed("SET_DESCENT_SPEED", speedDescent, speed, r)
}

// SetYaw turns to an absolute heading in degrees. GUIDED only.
func (v *Vehicle) SetYaw(deg float64, r Retry) bool {
	if !v.guided("SET_YAW") {
		return false
	}
	return v.command("SET_YAW", r, common.MAV_CMD_CONDITION_YAW, CommandParams{float32(geo.NormalizeHeading(deg))})
}

// Takeoff climbs to relAlt metres above home. GUIDED only.
func (v *Vehicle) Takeoff(relAlt float64, r Retry) bool {
	if !v.guided("TAKEOFF") {
		return false
	}
	return v.command("TAKEOFF", r, common.MAV_CMD_NAV_TAKEOFF, CommandParams{6: float32(relAlt)})
}

// Land lands at the current position. GUIDED only.
func (v *Vehicle) Land(r Retry) bool {
	if !v.guided("LAND") {
		return false
	}
	return v.command("LAND", r, common.MAV_CMD_NAV_LAND, CommandParams{})
}

// SetHomePosition makes the current position home. GUIDED only.
func (v *Vehicle) SetHomePosition(r Retry) bool {
	if !v.guided("SET_HOME") {
		return false
	}
	return v.command("SET_HOME", r, common.MAV_CMD_DO_SET_HOME, CommandParams{1})
}

// SetServoPWM sets a servo output to a pulse width in microseconds.
func (v *Vehicle) SetServoPWM(channel int, pwm uint16, r Retry) bool {
	return v.command("SET_SERVO", r, common.MAV_CMD_DO_SET_SERVO, CommandParams{float32(channel), float32(pwm)})
}

// SetRelay switches a relay; state must be 0 or 1.
func (v *Vehicle) SetRelay(channel int, state int, r Retry) bool {
	if state != 0 && state != 1 {
		v.lg.Warn("Relay state must be 0 or 1", "state", state)
		return false
	}
	return v.command("SET_RELAY", r, common.MAV_CMD_DO_SET_RELAY, CommandParams{float32(channel), float32(state)})
}

// GoToGlobalPosition sends a single guided waypoint with altitude relative
// to home. It does not wait for an ack. GUIDED only.
func (v *Vehicle) GoToGlobalPosition(lat, lon, relAlt float64) bool {
	if !v.guided("GOTO_GLOBAL") {
		return false
	}
	return v.sendGlobalTarget(GlobalTarget{Lat: lat, Lon: lon, RelativeAlt: relAlt}) == nil
}

// GoToLocalPosition sends a single guided waypoint in the local NED frame.
// GUIDED only.
func (v *Vehicle) GoToLocalPosition(x, y, z float64) bool {
	if !v.guided("GOTO_LOCAL") {
		return false
	}
	return v.sendLocalTarget(LocalTarget{X: x, Y: y, Z: z}) == nil
}

// GoToBearing flies distance metres from the current position along
// bearing degrees, at relAlt. GUIDED only.
func (v *Vehicle) GoToBearing(bearing, distance, relAlt float64) bool {
	fd := v.Telemetry()
	if !fd.HasGlobalPosition() {
		v.lg.Info("No global position for GoToBearing")
		return false
	}
	lat, lon := geo.Destination(fd.GlobalPosition.Lat, fd.GlobalPosition.Lon, bearing, distance)
	return v.GoToGlobalPosition(lat, lon, relAlt)
}

func (v *Vehicle) sendGlobalTarget(t GlobalTarget) error {
	return v.link.Send(v.newGlobalWaypoint(t))
}

func (v *Vehicle) sendLocalTarget(t LocalTarget) error {
	return v.link.Send(v.newLocalWaypoint(t))
}

// MoveLocalNED streams a velocity setpoint in m/s, in the local NED frame,
// every Config.SetpointInterval for d. With d <= 0 it streams until ctx is
// done or the vehicle leaves GUIDED. It blocks while streaming.
func (v *Vehicle) MoveLocalNED(ctx context.Context, vx, vy, vz float64, d time.Duration) bool {
	if !v.guided("MOVE_LOCAL_NED") {
		return false
	}
	var deadline <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}
	tick := time.NewTicker(v.cfg.SetpointInterval.D())
	defer tick.Stop()

	for {
		if err := v.link.Send(v.newVelocitySetpoint(float32(vx), float32(vy), float32(vz))); err != nil {
			v.lg.Warn("Velocity setpoint not sent", "error", err)
			return false
		}
		select {
		case <-deadline:
			return true
		case <-ctx.Done():
			return true
		case <-v.linkDone:
			return false
		case <-tick.C:
			if d <= 0 && v.FlightMode() != ModeGuided {
				return true
			}
		}
	}
}

// RCChannelOverride overrides one RC input channel (1-8). With raw set,
// value is a pulse width that must lie within [MinPWM, MaxPWM]; otherwise
// it is a percentage in [1, 100] mapped onto that range. A value of 0
// releases the channel back to the receiver.
func (v *Vehicle) RCChannelOverride(channel int, value int, raw bool) error {
	if channel < 1 || channel > rcChannelCount {
		return ErrInvalidChannel
	}
	lo, hi := int(v.cfg.MinPWM), int(v.cfg.MaxPWM)

	pwm := rcRelease
	switch {
	case value == 0:
	case raw:
		if value < lo || value > hi {
			return ErrInvalidPWM
		}
		pwm = value
	default:
		if value < 1 || value > 100 {
			return ErrInvalidPercent
		}
		pwm = geo.MapRange(value, 1, 100, lo, hi)
	}
	return v.link.Send(v.newRCOverride(channel, uint16(pwm)))
}

var heartbeatID = (&common.MessageHeartbeat{}).GetID()

// WaitFlightMode waits up to timeout for a heartbeat reporting mode.
func (v *Vehicle) WaitFlightMode(mode string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if v.FlightMode() == mode {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if _, err := v.WaitMessage(heartbeatID, remaining); errors.Is(err, ErrLinkClosed) {
			return false
		}
	}
}
