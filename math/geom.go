// math/geom.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"
)

// Extent2D is an axis-aligned bounding box; P0 holds the minimum
// coordinates and P1 the maximum.
type Extent2D struct {
	P0, P1 [2]float32
}

// EmptyExtent2D returns an inverted box that any Union replaces.
func EmptyExtent2D() Extent2D {
	const big = 1e30
	return Extent2D{P0: [2]float32{big, big}, P1: [2]float32{-big, -big}}
}

func (e Extent2D) IsEmpty() bool {
	return e.P1[0] < e.P0[0] || e.P1[1] < e.P0[1]
}

// Union grows e to include p.
func Union(e Extent2D, p [2]float32) Extent2D {
	for i := range 2 {
		e.P0[i], e.P1[i] = min(e.P0[i], p[i]), max(e.P1[i], p[i])
	}
	return e
}

// LineLineIntersect intersects the infinite lines through p1,p2 and
// p3,p4. It returns false when they are parallel or nearly so.
func LineLineIntersect(p1, p2, p3, p4 [2]float32) ([2]float32, bool) {
	// float64: the cross products subtract nearly equal values.
	d := func(a, b [2]float32) [2]float64 {
		return [2]float64{float64(b[0]) - float64(a[0]), float64(b[1]) - float64(a[1])}
	}
	cross := func(a, b [2]float64) float64 { return a[0]*b[1] - a[1]*b[0] }

	r, s := d(p1, p2), d(p3, p4)
	denom := cross(r, s)
	if gomath.Abs(denom) < 1e-5 {
		return [2]float32{}, false
	}
	t := cross(d(p1, p3), s) / denom
	return [2]float32{
		float32(float64(p1[0]) + t*r[0]),
		float32(float64(p1[1]) + t*r[1]),
	}, true
}
