// math/heading.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// headings

// HeadingVector returns the unit vector pointing along the given heading
// in a frame where +x is east and +y is north.
func HeadingVector(hdg float32) [2]float32 {
	h := Radians(hdg)
	return [2]float32{Sin(h), Cos(h)}
}

// VectorHeading returns the heading in degrees [0,360) of the vector v,
// in the same frame as HeadingVector.
func VectorHeading(v [2]float32) float32 {
	// atan2() normally measures w.r.t. the +x axis and angles are positive
	// for counter-clockwise. We want to measure w.r.t. +y and to have
	// positive angles be clockwise. Swapping the order of the arguments
	// gives exactly that.
	return NormalizeHeading(Degrees(Atan2(v[0], v[1])))
}

// HeadingDifference returns the minimum difference between two
// headings. (i.e., the result is always in the range [0,180].)
func HeadingDifference(a float32, b float32) float32 {
	var d float32
	if a > b {
		d = a - b
	} else {
		d = b - a
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}

// HeadingSignedTurn returns the turn in degrees from cur to target taking
// the shorter way around: positive values are right (clockwise) turns and
// negative are left.
func HeadingSignedTurn(cur, target float32) float32 {
	// Rotate the target heading so that it's aligned with 180 degrees,
	// which lets us not worry about the wrap around at 0/360.
	rot := NormalizeHeading(180 - target)
	return 180 - NormalizeHeading(cur+rot)
}

// Reduces it to [0,360).
func NormalizeHeading(h float32) float32 {
	h = Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		// float32 rounding of tiny negative values
		h = 0
	}
	return h
}

func OppositeHeading(h float32) float32 {
	return NormalizeHeading(h + 180)
}
