// control.go

// This file contains the arrival predicates used to track progress.

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

	"github.com/SMerrony/mavguide/geo"
)

// Default arrival thresholds in metres.
const (
	DefaultAltitudeThreshold = 0.5
	DefaultGlobalThreshold   = 0.5
	DefaultLocalThreshold    = 0.1
)

// ReachedRelativeAltitude reports whether the altitude above home is within
// threshold of target. It is false before any global position arrives.
func ReachedRelativeAltitude(fd Telemetry, target, threshold float64) bool {
	if !fd.HasGlobalPosition() {
		return false
	}
	return math.Abs(fd.GlobalPosition.RelativeAlt-target) <= threshold
}

// ReachedGlobalPosition reports whether the vehicle is at (lat, lon) and
// relAlt. Altitude must be within threshold. Horizontally the vehicle must
// be within acceptRadius, or within threshold when acceptRadius is 0.
func ReachedGlobalPosition(fd Telemetry, lat, lon, relAlt, threshold, acceptRadius float64) bool {
	if !ReachedRelativeAltitude(fd, relAlt, threshold) {
		return false
	}
	d := geo.Distance(fd.GlobalPosition.Lat, fd.GlobalPosition.Lon, lat, lon)
	if acceptRadius == 0 {
		return d <= threshold
	}
	return d <= acceptRadius
}

// ReachedLocalPosition reports whether the vehicle is within threshold of
// (x, y, z) in the local NED frame, both vertically and in the plane.
func ReachedLocalPosition(fd Telemetry, x, y, z, threshold float64) bool {
	if !fd.HasLocalPosition() {
		return false
	}
	p := fd.LocalPosition
	if math.Abs(p.Z-z) > threshold {
		return false
	}
	return geo.LocalDistance(p.X, p.Y, x, y) <= threshold
}

// GlobalHeadingFromRelative turns a heading relative to the nose into a
// compass heading.
func GlobalHeadingFromRelative(fd Telemetry, angle float64) float64 {
	return geo.AddHeading(fd.Heading.Value, angle)
}

// ReachedRelativeAltitude checks the live telemetry.
func (v *Vehicle) ReachedRelativeAltitude(target, threshold float64) bool {
	return ReachedRelativeAltitude(v.Telemetry(), target, threshold)
}

// ReachedGlobalPosition checks the live telemetry.
func (v *Vehicle) ReachedGlobalPosition(lat, lon, relAlt, threshold, acceptRadius float64) bool {
	return ReachedGlobalPosition(v.Telemetry(), lat, lon, relAlt, threshold, acceptRadius)
}

// ReachedLocalPosition checks the live telemetry.
func (v *Vehicle) ReachedLocalPosition(x, y, z, threshold float64) bool {
	return ReachedLocalPosition(v.Telemetry(), x, y, z, threshold)
}

// GlobalHeadingFromRelative uses the live VFR_HUD heading.
func (v *Vehicle) GlobalHeadingFromRelative(angle float64) float64 {
	return GlobalHeadingFromRelative(v.Telemetry(), angle)
}
