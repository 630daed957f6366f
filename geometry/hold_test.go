// geometry/hold_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"testing"

	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/math"
)

func holdLeg(turn string) cifp.ApproachLeg {
	leg := fixLeg(10, "HOLDX", "HM")
	leg.HoldCourse, leg.HoldTurnDirection = floatp(360), turn
	return leg
}

func TestBuildHold(t *testing.T) {
	env := testEnv(map[string][2]float32{"HOLDX": {0, 0}})
	opts := DefaultOptions()
	r := 200 / (60 * math.Pi())

	for _, tc := range []struct {
		turn  string
		right bool
	}{
		{turn: "R", right: true},
		{turn: "", right: true},
		{turn: "L", right: false},
	} {
		leg := holdLeg(tc.turn)
		leg.HoldDistance = floatp(4)
		h, ok := BuildHold(leg, 4000, env, opts)
		if !ok {
			t.Fatalf("%q: no hold", tc.turn)
		}
		if h.TurnRight != tc.right || h.LegLength != 4 || !near(h.Radius, r, 1e-4) {
			t.Errorf("%q: unexpected hold %+v", tc.turn, h)
		}
		if !near(h.Path.Length, 8+2*math.Pi()*r, 0.01) {
			t.Errorf("%q: path length %f", tc.turn, h.Path.Length)
		}

		// The racetrack starts and ends at the fix and lies entirely on
		// the holding side of the inbound course.
		first, last := h.Curve[0], h.Curve[len(h.Curve)-1]
		if !near2([2]float32{first[0], first[2]}, [2]float32{last[0], last[2]}, 0.01) {
			t.Errorf("%q: racetrack isn't closed: %v %v", tc.turn, first, last)
		}
		var maxx, minx float32
		for _, v := range h.Curve {
			maxx, minx = max(maxx, v[0]), min(minx, v[0])
			if !near(v[1], 4000*opts.VerticalScale, 1e-4) {
				t.Errorf("%q: curve point %v isn't at the holding altitude", tc.turn, v)
			}
		}
		if tc.right && (minx < -0.01 || !near(maxx, 2*r, 0.01)) {
			t.Errorf("%q: x extent [%f, %f]", tc.turn, minx, maxx)
		}
		if !tc.right && (maxx > 0.01 || !near(minx, -2*r, 0.01)) {
			t.Errorf("%q: x extent [%f, %f]", tc.turn, minx, maxx)
		}
	}
}

func TestHoldLegLength(t *testing.T) {
	env := testEnv(map[string][2]float32{"HOLDX": {0, 0}})

	leg := holdLeg("R")
	leg.HoldTimeMinutes = floatp(1.5)
	if h, ok := BuildHold(leg, 10000, env, DefaultOptions()); !ok || !near(h.LegLength, 5.75, 1e-3) {
		t.Errorf("timed hold leg %f", h.LegLength)
	}

	leg = holdLeg("R")
	if h, ok := BuildHold(leg, 16000, env, DefaultOptions()); !ok || !near(h.LegLength, 265./60, 1e-3) {
		t.Errorf("default hold leg %f", h.LegLength)
	}

	leg.SpeedLimit = intp(180)
	h, ok := BuildHold(leg, 16000, env, DefaultOptions())
	if !ok || !near(h.LegLength, 3, 1e-3) || !near(h.Radius, 180/(60*math.Pi()), 1e-4) {
		t.Errorf("speed limited hold %+v", h)
	}
}

func TestBuildHoldRejects(t *testing.T) {
	env := testEnv(map[string][2]float32{"HOLDX": {0, 0}})

	if _, ok := BuildHold(fixLeg(10, "HOLDX", "TF"), 4000, env, DefaultOptions()); ok {
		t.Errorf("built a hold for a TF leg")
	}
	if _, ok := BuildHold(fixLeg(10, "HOLDX", "HM"), 4000, env, DefaultOptions()); ok {
		t.Errorf("built a hold without a course")
	}
	leg := holdLeg("R")
	leg.WaypointId = "NOWHERE"
	if _, ok := BuildHold(leg, 4000, env, DefaultOptions()); ok {
		t.Errorf("built a hold at an unknown fix")
	}
}
