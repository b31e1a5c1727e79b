// heading.go

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

import "math"

// NormalizeHeading wraps h into [0, 360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// AddHeading returns (h + delta) mod 360.
func AddHeading(h, delta float64) float64 {
	return NormalizeHeading(h + delta)
}

// SubtractHeading returns (h - delta) mod 360.
func SubtractHeading(h, delta float64) float64 {
	return NormalizeHeading(h - delta)
}

// OppositeHeading returns the reciprocal of h.
func OppositeHeading(h float64) float64 {
	return NormalizeHeading(h + 180)
}

// HeadingDifference returns the smallest angle between two headings, in
// [0, 180].
func HeadingDifference(a, b float64) float64 {
	d := Abs(NormalizeHeading(a) - NormalizeHeading(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}
