// math/latlong.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

const (
	NMPerLatitude       = 60
	NauticalMilesToFeet = 6076.12
	FeetToNauticalMiles = 1 / NauticalMilesToFeet
)

// Point2LL is a position on the Earth, stored longitude first.
type Point2LL [2]float32

func (p Point2LL) Longitude() float32 { return p[0] }
func (p Point2LL) Latitude() float32  { return p[1] }

// NMPerLongitudeAt is the east-west length of a degree of longitude at
// p's latitude.
func NMPerLongitudeAt(p Point2LL) float32 {
	return Cos(Radians(p.Latitude())) * NMPerLatitude
}

// LL2NM maps p to a flat frame where both axes are in nautical miles.
// NM2LL is its inverse.
func LL2NM(p Point2LL, nmPerLongitude float32) [2]float32 {
	return [2]float32{nmPerLongitude * p.Longitude(), NMPerLatitude * p.Latitude()}
}

func NM2LL(p [2]float32, nmPerLongitude float32) Point2LL {
	return Point2LL{p[0] / nmPerLongitude, p[1] / NMPerLatitude}
}
