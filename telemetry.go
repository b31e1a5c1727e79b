// telemetry.go

// This file holds the telemetry store and its update from inbound messages.

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
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// Each telemetry group carries the time the message that produced it was
// received. A zero Time means the group has never been observed.

// GPS is the raw GNSS fix.
type GPS struct {
	Fix      string
	Lat      float64 // degrees
	Lon      float64 // degrees
	Alt      float64 // metres MSL
	SatCount uint8
	Time     time.Time
}

// Attitude angles are in radians, rates in radians/second.
type Attitude struct {
	Roll, Pitch, Yaw             float64
	RollRate, PitchRate, YawRate float64
	Time                         time.Time
}

// LocalPosition is in the NED frame, metres and metres/second.
type LocalPosition struct {
	X, Y, Z    float64
	VX, VY, VZ float64
	Time       time.Time
}

// GlobalPosition is the fused position estimate.
type GlobalPosition struct {
	Lat, Lon    float64 // degrees
	Alt         float64 // metres MSL
	RelativeAlt float64 // metres above home
	VX, VY, VZ  float64 // metres/second
	Heading     float64 // degrees
	Time        time.Time
}

// Battery reports voltage in volts, current in amps and remaining percent
// (-1 when the autopilot does not estimate it).
type Battery struct {
	Voltage   float64
	Current   float64
	Remaining int
	Time      time.Time
}

// RCChannels holds the raw pulse widths of the first eight RC inputs.
type RCChannels struct {
	Raw  [8]uint16
	Time time.Time
}

// Scalar is a single timestamped value from VFR_HUD or SYSTEM_TIME.
type Scalar struct {
	Value float64
	Time  time.Time
}

// Valid reports whether the value has ever been received.
func (s Scalar) Valid() bool { return !s.Time.IsZero() }

// Telemetry holds our current knowledge of the vehicle's state.
// Different groups are updated at varying rates.
type Telemetry struct {
	State         string
	VehicleType   string
	FlightMode    string
	Armed         bool
	LastHeartbeat time.Time

	BootTime       Scalar // milliseconds since autopilot boot
	GPS            GPS
	Attitude       Attitude
	LocalPosition  LocalPosition
	GlobalPosition GlobalPosition
	Battery        Battery
	RCChannels     RCChannels

	AirSpeed    Scalar
	GroundSpeed Scalar
	Heading     Scalar
	Altitude    Scalar
	Throttle    Scalar
	ClimbRate   Scalar
}

// HasGlobalPosition reports whether GLOBAL_POSITION_INT has been seen.
func (fd *Telemetry) HasGlobalPosition() bool { return !fd.GlobalPosition.Time.IsZero() }

// HasLocalPosition reports whether LOCAL_POSITION_NED has been seen.
func (fd *Telemetry) HasLocalPosition() bool { return !fd.LocalPosition.Time.IsZero() }

// update folds one inbound message into fd. It reports whether the message
// was a heartbeat.
func (fd *Telemetry) update(msg message.Message, now time.Time) (heartbeat bool) {
	switch m := msg.(type) {
	case *common.MessageHeartbeat:
		fd.State = StateName(m.SystemStatus)
		fd.VehicleType = VehicleTypeName(m.Type)
		fd.FlightMode = ModeName(fd.VehicleType, m.CustomMode)
		fd.Armed = m.BaseMode&common.MAV_MODE_FLAG_SAFETY_ARMED != 0
		fd.LastHeartbeat = now
		return true
	case *common.MessageSystemTime:
		fd.BootTime = Scalar{float64(m.TimeBootMs), now}
	case *common.MessageGpsRawInt:
		fd.GPS = GPS{
			Fix:      GPSFixName(uint8(m.FixType)),
			Lat:      float64(m.Lat) / 1e7,
			Lon:      float64(m.Lon) / 1e7,
			Alt:      float64(m.Alt) / 1e3,
			SatCount: m.SatellitesVisible,
			Time:     now,
		}
	case *common.MessageAttitude:
		fd.Attitude = Attitude{
			Roll: float64(m.Roll), Pitch: float64(m.Pitch), Yaw: float64(m.Yaw),
			RollRate: float64(m.Rollspeed), PitchRate: float64(m.Pitchspeed), YawRate: float64(m.Yawspeed),
			Time: now,
		}
	case *common.MessageLocalPositionNed:
		fd.LocalPosition = LocalPosition{
			X: float64(m.X), Y: float64(m.Y), Z: float64(m.Z),
			VX: float64(m.Vx), VY: float64(m.Vy), VZ: float64(m.Vz),
			Time: now,
		}
	case *common.MessageGlobalPositionInt:
		fd.GlobalPosition = GlobalPosition{
			Lat:         float64(m.Lat) / 1e7,
			Lon:         float64(m.Lon) / 1e7,
			Alt:         float64(m.Alt) / 1e3,
			RelativeAlt: float64(m.RelativeAlt) / 1e3,
			VX:          float64(m.Vx) / 100,
			VY:          float64(m.Vy) / 100,
			VZ:          float64(m.Vz) / 100,
			Heading:     float64(m.Hdg) / 100,
			Time:        now,
		}
	case *common.MessageVfrHud:
		fd.AirSpeed = Scalar{float64(m.Airspeed), now}
		fd.GroundSpeed = Scalar{float64(m.Groundspeed), now}
		fd.Heading = Scalar{float64(m.Heading), now}
		fd.Altitude = Scalar{float64(m.Alt), now}
		fd.Throttle = Scalar{float64(m.Throttle), now}
		fd.ClimbRate = Scalar{float64(m.Climb), now}
	case *common.MessageSysStatus:
		fd.Battery = Battery{
			Voltage:   float64(m.VoltageBattery) / 1e3,
			Current:   float64(m.CurrentBattery) / 100,
			Remaining: int(m.BatteryRemaining),
			Time:      now,
		}
	case *common.MessageRcChannelsRaw:
		fd.RCChannels = RCChannels{
			Raw: [8]uint16{
				m.Chan1Raw, m.Chan2Raw, m.Chan3Raw, m.Chan4Raw,
				m.Chan5Raw, m.Chan6Raw, m.Chan7Raw, m.Chan8Raw,
			},
			Time: now,
		}
	}
	return false
}

// Telemetry returns a snapshot of the current telemetry.
func (v *Vehicle) Telemetry() Telemetry {
	v.fdMu.RLock()
	defer v.fdMu.RUnlock()
	return v.fd
}

// FlightMode returns the flight mode from the most recent heartbeat.
func (v *Vehicle) FlightMode() string {
	v.fdMu.RLock()
	defer v.fdMu.RUnlock()
	return v.fd.FlightMode
}

// Armed reports the armed flag from the most recent heartbeat.
func (v *Vehicle) Armed() bool {
	v.fdMu.RLock()
	defer v.fdMu.RUnlock()
	return v.fd.Armed
}

// StreamTelemetry sends a snapshot of the telemetry every period until ctx
// is done, then closes the channel. A slow reader misses snapshots rather
// than blocking the stream.
func (v *Vehicle) StreamTelemetry(ctx context.Context, period time.Duration) <-chan Telemetry {
	ch := make(chan Telemetry, 1)
	go func() {
		defer close(ch)
		tick := time.NewTicker(period)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-v.linkDone:
				return
			case <-tick.C:
				select {
				case ch <- v.Telemetry():
				default:
				}
			}
		}
	}()
	return ch
}
