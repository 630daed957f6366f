// math/vecmat.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import gomath "math"

// 2D vectors are [2]float32 throughout; the helpers are kept terse since
// path construction chains a lot of them.

func Add2f(a, b [2]float32) [2]float32           { return [2]float32{a[0] + b[0], a[1] + b[1]} }
func Sub2f(a, b [2]float32) [2]float32           { return [2]float32{a[0] - b[0], a[1] - b[1]} }
func Scale2f(v [2]float32, s float32) [2]float32 { return [2]float32{v[0] * s, v[1] * s} }
func Dot(a, b [2]float32) float32                { return a[0]*b[0] + a[1]*b[1] }

// Lerp2f returns the point t of the way from a to b.
func Lerp2f(t float32, a, b [2]float32) [2]float32 {
	return [2]float32{a[0]*(1-t) + b[0]*t, a[1]*(1-t) + b[1]*t}
}

func Length2f(v [2]float32) float32 {
	return float32(gomath.Hypot(float64(v[0]), float64(v[1])))
}

func Distance2f(a, b [2]float32) float32 {
	return Length2f(Sub2f(b, a))
}
