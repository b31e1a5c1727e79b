// geo.go

// Package geo holds the position arithmetic used by the flight core.

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

package geo

import (
	"math"

	"golang.org/x/exp/constraints"
)

// EarthRadius is the mean Earth radius in metres.
const EarthRadius = 6371e3

// Number is any integer or floating point type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Clamp limits v to the closed range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Abs returns the absolute value of v.
func Abs[T Number](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// MapRange maps v linearly from [inMin, inMax] onto [outMin, outMax].
// Values outside the input range map to the nearest output bound.
func MapRange[T Number](v, inMin, inMax, outMin, outMax T) T {
	switch {
	case v <= inMin:
		return outMin
	case v >= inMax:
		return outMax
	}
	return T(float64(v-inMin)*float64(outMax-outMin)/float64(inMax-inMin)) + outMin
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle distance in metres between two
// latitude/longitude pairs given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r, lat2r := radians(lat1), radians(lat2)
	dLat := lat2r - lat1r
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	a = Clamp(a, 0, 1)
	return 2 * EarthRadius * math.Asin(math.Sqrt(a))
}

// Destination returns the point reached by travelling distance metres from
// (lat, lon) along the initial bearing given in degrees.
func Destination(lat, lon, bearing, distance float64) (float64, float64) {
	lat1r, lon1r := radians(lat), radians(lon)
	brg := radians(bearing)
	ang := distance / EarthRadius

	lat2r := math.Asin(math.Sin(lat1r)*math.Cos(ang) + math.Cos(lat1r)*math.Sin(ang)*math.Cos(brg))
	lon2r := lon1r + math.Atan2(math.Sin(brg)*math.Sin(ang)*math.Cos(lat1r), math.Cos(ang)-math.Sin(lat1r)*math.Sin(lat2r))

	return degrees(lat2r), NormalizeLongitude(degrees(lon2r))
}

// Bearing returns the initial bearing in degrees [0, 360) from the first
// point towards the second.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r, lat2r := radians(lat1), radians(lat2)
	dLon := radians(lon2 - lon1)
	x := math.Cos(lat2r) * math.Sin(dLon)
	y := math.Cos(lat1r)*math.Sin(lat2r) - math.Sin(lat1r)*math.Cos(lat2r)*math.Cos(dLon)
	return NormalizeHeading(degrees(math.Atan2(x, y)))
}

// NormalizeLongitude wraps lon into [-180, 180).
func NormalizeLongitude(lon float64) float64 {
	return math.Mod(math.Mod(lon+180, 360)+360, 360) - 180
}

// LocalDistance returns the planar distance between two points of a local
// frame.
func LocalDistance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// LocalDestination offsets (x, y) of a north-east frame by distance metres
// along heading degrees.
func LocalDestination(x, y, heading, distance float64) (float64, float64) {
	h := radians(heading)
	return x + distance*math.Cos(h), y + distance*math.Sin(h)
}
