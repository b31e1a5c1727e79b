// messages.go

// This file builds the outbound MAVLink messages used by the core.

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
	"math"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

const (
	rcChannelCount = 8
	rcNoOverride   = 0xFFFF // leave channel as it is
	rcRelease      = 0      // hand channel back to the RC receiver
)

// position setpoint ignoring acceleration, yaw and yaw rate
const typeMaskVelocityOnly = 0b0000111111000111

// telemetryStreams are the messages requested when a connection starts.
var telemetryStreams = []message.Message{
	&common.MessageSysStatus{},
	&common.MessageSystemTime{},
	&common.MessageGpsRawInt{},
	&common.MessageAttitude{},
	&common.MessageLocalPositionNed{},
	&common.MessageGlobalPositionInt{},
	&common.MessageRcChannelsRaw{},
	&common.MessageVfrHud{},
}

// CommandParams are the seven float parameters of COMMAND_LONG.
type CommandParams [7]float32

func (v *Vehicle) newCommandLong(cmd common.MAV_CMD, p CommandParams) *common.MessageCommandLong {
	sys, comp := v.target()
	return &common.MessageCommandLong{
		TargetSystem:    sys,
		TargetComponent: comp,
		Command:         cmd,
		Param1:          p[0],
		Param2:          p[1],
		Param3:          p[2],
		Param4:          p[3],
		Param5:          p[4],
		Param6:          p[5],
		Param7:          p[6],
	}
}

// newGlobalWaypoint builds the guided-mode "go here" request: a mission
// item with current set to 2. The integer form keeps centimetre precision
// in latitude and longitude.
func (v *Vehicle) newGlobalWaypoint(t GlobalTarget) *common.MessageMissionItemInt {
	sys, comp := v.target()
	return &common.MessageMissionItemInt{
		TargetSystem:    sys,
		TargetComponent: comp,
		Frame:           common.MAV_FRAME_GLOBAL_RELATIVE_ALT,
		Command:         common.MAV_CMD_NAV_WAYPOINT,
		Current:         2,
		X:               int32(math.Round(t.Lat * 1e7)),
		Y:               int32(math.Round(t.Lon * 1e7)),
		Z:               float32(t.RelativeAlt),
	}
}

func (v *Vehicle) newLocalWaypoint(t LocalTarget) *common.MessageMissionItem {
	sys, comp := v.target()
	return &common.MessageMissionItem{
		TargetSystem:    sys,
		TargetComponent: comp,
		Frame:           common.MAV_FRAME_LOCAL_NED,
		Command:         common.MAV_CMD_NAV_WAYPOINT,
		Current:         2,
		X:               float32(t.X),
		Y:               float32(t.Y),
		Z:               float32(t.Z),
	}
}

func (v *Vehicle) newVelocitySetpoint(vx, vy, vz float32) *common.MessageSetPositionTargetLocalNed {
	sys, comp := v.target()
	return &common.MessageSetPositionTargetLocalNed{
		TimeBootMs:      uint32(v.Telemetry().BootTime.Value),
		TargetSystem:    sys,
		TargetComponent: comp,
		CoordinateFrame: common.MAV_FRAME_LOCAL_NED,
		TypeMask:        common.POSITION_TARGET_TYPEMASK(typeMaskVelocityOnly),
		Vx:              vx,
		Vy:              vy,
		Vz:              vz,
	}
}

// newRCOverride sets one channel (1-based) and leaves the others alone.
func (v *Vehicle) newRCOverride(channel int, pwm uint16) *common.MessageRcChannelsOverride {
	var ch [rcChannelCount]uint16
	for i := range ch {
		ch[i] = rcNoOverride
	}
	ch[channel-1] = pwm

	sys, comp := v.target()
	return &common.MessageRcChannelsOverride{
		TargetSystem:    sys,
		TargetComponent: comp,
		Chan1Raw:        ch[0],
		Chan2Raw:        ch[1],
		Chan3Raw:        ch[2],
		Chan4Raw:        ch[3],
		Chan5Raw:        ch[4],
		Chan6Raw:        ch[5],
		Chan7Raw:        ch[6],
		Chan8Raw:        ch[7],
	}
}
