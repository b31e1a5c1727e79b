// convert.go

// This file maps autopilot enumerations to and from readable names.

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
	"strings"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
)

// Flight mode names used by the core itself.
const (
	ModeGuided = "GUIDED"
	ModeAuto   = "AUTO"
	ModeLand   = "LAND"
	ModeLoiter = "LOITER"
	ModeRTL    = "RTL"

	ModeUnknown = "UNKNOWN"
)

// ArduPilot custom mode tables, keyed by mode name.
var (
	copterModes = map[string]uint32{
		"STABILIZE": 0, "ACRO": 1, "ALT_HOLD": 2, "AUTO": 3, "GUIDED": 4,
		"LOITER": 5, "RTL": 6, "CIRCLE": 7, "LAND": 9, "DRIFT": 11,
		"SPORT": 13, "FLIP": 14, "AUTOTUNE": 15, "POSHOLD": 16, "BRAKE": 17,
		"THROW": 18, "AVOID_ADSB": 19, "GUIDED_NOGPS": 20, "SMART_RTL": 21,
		"FLOWHOLD": 22, "FOLLOW": 23, "ZIGZAG": 24, "SYSTEMID": 25,
		"AUTOROTATE": 26, "AUTO_RTL": 27,
	}
	planeModes = map[string]uint32{
		"MANUAL": 0, "CIRCLE": 1, "STABILIZE": 2, "TRAINING": 3, "ACRO": 4,
		"FBWA": 5, "FBWB": 6, "CRUISE": 7, "AUTOTUNE": 8, "AUTO": 10,
		"RTL": 11, "LOITER": 12, "TAKEOFF": 13, "AVOID_ADSB": 14, "GUIDED": 15,
		"QSTABILIZE": 17, "QHOVER": 18, "QLOITER": 19, "QLAND": 20, "QRTL": 21,
		"QAUTOTUNE": 22, "QACRO": 23, "THERMAL": 24,
	}
	roverModes = map[string]uint32{
		"MANUAL": 0, "ACRO": 1, "STEERING": 3, "HOLD": 4, "LOITER": 5,
		"FOLLOW": 6, "SIMPLE": 7, "AUTO": 10, "RTL": 11, "SMART_RTL": 12,
		"GUIDED": 15,
	}
)

// vehicle type ids from MAV_TYPE
var vehicleTypeNames = map[int]string{
	0: "GENERIC", 1: "FIXED_WING", 2: "QUADROTOR", 3: "COAXIAL", 4: "HELICOPTER",
	5: "ANTENNA_TRACKER", 6: "GCS", 10: "GROUND_ROVER", 11: "SURFACE_BOAT",
	12: "SUBMARINE", 13: "HEXAROTOR", 14: "OCTOROTOR", 15: "TRICOPTER",
	19: "VTOL_TAILSITTER_DUOROTOR", 20: "VTOL_TAILSITTER_QUADROTOR",
	21: "VTOL_TILTROTOR", 22: "VTOL_FIXEDROTOR", 23: "VTOL_TAILSITTER",
	29: "DODECAROTOR",
}

var stateNames = [...]string{
	"UNINIT", "BOOT", "CALIBRATING", "STANDBY", "ACTIVE",
	"CRITICAL", "EMERGENCY", "POWEROFF", "FLIGHT_TERMINATION",
}

// VehicleTypeName returns the readable name of a MAV_TYPE.
func VehicleTypeName(t common.MAV_TYPE) string {
	if n, ok := vehicleTypeNames[int(t)]; ok {
		return n
	}
	return "UNKNOWN"
}

// StateName returns the readable name of a MAV_STATE.
func StateName(s common.MAV_STATE) string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// ModeTable returns the custom mode table for a vehicle type name.
// Unknown types get the multicopter table.
func ModeTable(vehicleType string) map[string]uint32 {
	switch vehicleType {
	case "FIXED_WING", "VTOL_TAILSITTER_DUOROTOR", "VTOL_TAILSITTER_QUADROTOR",
		"VTOL_TILTROTOR", "VTOL_FIXEDROTOR", "VTOL_TAILSITTER":
		return planeModes
	case "GROUND_ROVER", "SURFACE_BOAT":
		return roverModes
	}
	return copterModes
}

// ModeID looks up a flight mode name for a vehicle type.
func ModeID(vehicleType, name string) (uint32, bool) {
	id, ok := ModeTable(vehicleType)[strings.ToUpper(name)]
	return id, ok
}

// ModeName is the reverse of ModeID.
func ModeName(vehicleType string, id uint32) string {
	for name, v := range ModeTable(vehicleType) {
		if v == id {
			return name
		}
	}
	return ModeUnknown
}

// GPSFixName returns the readable name of a GPS_FIX_TYPE.
func GPSFixName(fix uint8) string {
	names := [...]string{"NO_GPS", "NO_FIX", "2D_FIX", "3D_FIX", "DGPS", "RTK_FLOAT", "RTK_FIXED", "STATIC", "PPP"}
	if int(fix) < len(names) {
		return names[fix]
	}
	return "UNKNOWN"
}
