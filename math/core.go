// math/core.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// float32 wrappers around the math package, so geometry code doesn't
// need conversions at every call.

func Pi() float32                { return gomath.Pi }
func Degrees(r float32) float32  { return r * (180 / gomath.Pi) }
func Radians(d float32) float32  { return d * (gomath.Pi / 180) }
func Sin(a float32) float32      { return f32(gomath.Sin, a) }
func Cos(a float32) float32      { return f32(gomath.Cos, a) }
func Tan(a float32) float32      { return f32(gomath.Tan, a) }
func Ceil(v float32) float32     { return f32(gomath.Ceil, v) }
func Mod(a, b float32) float32   { return float32(gomath.Mod(float64(a), float64(b))) }
func Atan2(y, x float32) float32 { return float32(gomath.Atan2(float64(y), float64(x))) }

// SafeACos clamps its argument to [-1,1] so that rounding error can't
// produce a NaN.
func SafeACos(a float32) float32 { return f32(gomath.Acos, Clamp(a, -1, 1)) }

func f32(f func(float64) float64, v float32) float32 {
	return float32(f(float64(v)))
}

func IsFinite(v float32) bool {
	f := float64(v)
	return !gomath.IsNaN(f) && !gomath.IsInf(f, 0)
}

func Abs[V constraints.Signed | constraints.Float](x V) V {
	return max(x, -x)
}

func Clamp[T constraints.Ordered](x, low, high T) T {
	return min(max(x, low), high)
}

// Lerp returns the value t of the way from a to b.
func Lerp(t, a, b float32) float32 {
	return a*(1-t) + b*t
}
