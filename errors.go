// errors.go

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

import "errors"

var (
	ErrConnectTimeout = errors.New("Timed out waiting for a heartbeat from the vehicle")
	ErrLinkClosed     = errors.New("Link to the vehicle is closed")
	ErrAckTimeout     = errors.New("Timed out waiting for command acknowledgement")
	ErrMessageTimeout = errors.New("Timed out waiting for message")
	ErrBadEndpoint    = errors.New("Cannot parse endpoint")

	ErrNotGuided        = errors.New("Vehicle is not in GUIDED mode")
	ErrNoGlobalPosition = errors.New("Global position has not been received")
	ErrNoLocalPosition  = errors.New("Local position has not been received")
	ErrHoldActive       = errors.New("A position hold is already active")
	ErrHoldTimeout      = errors.New("Timed out waiting for position hold to end")
	ErrInvalidChannel   = errors.New("RC channel must be between 1 and 8")
	ErrInvalidPWM       = errors.New("Pulse width out of range")
	ErrInvalidPercent   = errors.New("Percentage must be between 1 and 100")

	ErrMissionRunning     = errors.New("Mission is running")
	ErrMissionEmpty       = errors.New("Mission list is empty")
	ErrMissionType        = errors.New("Invalid mission item type")
	ErrMissionRecord      = errors.New("Malformed mission record")
	ErrNegativeAltitude   = errors.New("Altitude cannot be negative")
	ErrNegativeDelay      = errors.New("Delay cannot be negative")
	ErrInvalidHookID      = errors.New("Hook id cannot contain ',' or '|'")
	ErrFlightModeChanged  = errors.New("Flight mode changed away from GUIDED")
	ErrCommandFailed      = errors.New("Command was not acknowledged")
	ErrUnsupportedMission = errors.New("Spline waypoints are not supported")
	ErrNegativeRadius     = errors.New("Waypoint radius cannot be negative")
	ErrInvalidCoordinate  = errors.New("Mission item position is not finite or out of range")
)
