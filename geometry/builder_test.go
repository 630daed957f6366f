// geometry/builder_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"slices"
	"testing"

	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/math"
)

// altitudesFor returns Altitudes with the given values for the legs of
// list.
func altitudesFor(list LegList, alts map[int]float32) Altitudes {
	a := make(Altitudes)
	for i, alt := range alts {
		a[list.Key(i)] = alt
	}
	return a
}

func checkFinite(t *testing.T, g *Geometry) {
	t.Helper()
	for _, v := range g.Curve {
		for _, c := range v {
			if !math.IsFinite(c) {
				t.Fatalf("non-finite curve point %v", v)
			}
		}
	}
}

func TestBuildPathSkipsMissingFixes(t *testing.T) {
	env := testEnv(map[string][2]float32{"A": {0, -10}, "B": {0, -5}})
	list := LegList{Legs: []cifp.ApproachLeg{
		fixLeg(10, "A", "IF"),
		fixLeg(20, "LOST", "TF"),
		fixLeg(30, "B", "TF"),
	}}
	g := BuildPath(list, altitudesFor(list, map[int]float32{0: 3000, 2: 2000}), env, DefaultOptions(), nil)

	if !slices.Equal(g.Skipped, []int{1}) || len(g.Points) != 2 {
		t.Fatalf("skipped %v, %d points", g.Skipped, len(g.Points))
	}
	if g.Points[1].Fix != "B" || !g.Points[1].HasAltitude || g.Points[1].Altitude != 2000 {
		t.Errorf("unexpected point %+v", g.Points[1])
	}
	if len(g.VerticalLines) != 2 || g.VerticalLines[1].Bottom[1] != 0 || g.VerticalLines[1].Top != g.Points[1].P {
		t.Errorf("unexpected vertical lines %+v", g.VerticalLines)
	}

	// The curve descends linearly from A to B.
	if len(g.Curve) < 3 {
		t.Fatalf("curve has %d points", len(g.Curve))
	}
	for i := 1; i < len(g.Curve); i++ {
		if g.Curve[i][1] > g.Curve[i-1][1] {
			t.Errorf("curve climbs at %d: %v", i, g.Curve)
		}
	}
	if y := g.Curve[0][1]; !near(y, 3000*math.FeetToNauticalMiles, 1e-4) {
		t.Errorf("curve starts at %f", y)
	}
	checkFinite(t, g)
}

func TestBuildPathClimbLegs(t *testing.T) {
	env := testEnv(map[string][2]float32{"KTST_RW36": {0, 0}, "FIXN": {0, 10}})

	for _, tc := range []struct {
		name   string
		target float32
		end    [2]float32
	}{
		{name: "low", target: 520, end: [2]float32{0, 0.5}},
		{name: "barely climbing", target: 1300, end: [2]float32{0, 0.5}},
		// 9.7nm at 200 ft/nm, limited to half the distance to FIXN.
		{name: "climbing", target: 3000, end: [2]float32{0, 5}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ca := withAltitude(cifp.ApproachLeg{Sequence: 20, PathTerminator: "CA", Course: floatp(360)}, int(tc.target), cifp.AltitudeAbove)
			list := LegList{Legs: []cifp.ApproachLeg{
				fixLeg(10, "KTST_RW36", "TF"),
				ca,
				fixLeg(30, "FIXN", "DF"),
			}}
			alts := altitudesFor(list, map[int]float32{0: 1063, 1: tc.target, 2: tc.target})
			if tc.name == "low" {
				alts[list.Key(0)] = 63
			}
			g := BuildPath(list, alts, env, DefaultOptions(), nil)

			if len(g.Points) != 3 {
				t.Fatalf("%d points", len(g.Points))
			}
			if p := g.Points[1]; !p.Synthesized || p.Fix != "" || !near2(p.Position, tc.end, 0.01) {
				t.Errorf("CA point %+v, expected it at %v", p, tc.end)
			}
			checkFinite(t, g)
		})
	}
}

func TestBuildPathRFArc(t *testing.T) {
	env := testEnv(map[string][2]float32{"A": {0, -3}, "B": {3, 0}, "CTR": {0, 0}})
	rf := fixLeg(20, "B", "RF")
	rf.RFCenterWaypointId, rf.RFTurnDirection = "CTR", "L"
	list := LegList{Legs: []cifp.ApproachLeg{fixLeg(10, "A", "IF"), rf}}
	g := BuildPath(list, nil, env, DefaultOptions(), nil)

	if !near(g.Path.Length, 3*math.Pi()/2, 0.01) {
		t.Errorf("arc length %f", g.Path.Length)
	}
	for _, v := range g.Curve {
		if d := math.Length2f([2]float32{v[0], v[2]}); !near(d, 3, 0.01) {
			t.Errorf("curve point %v is %f from the center", v, d)
		}
	}
	if h, ok := g.Path.EndHeading(); !ok || math.HeadingDifference(h, 0) > 0.5 {
		t.Errorf("end heading %f", h)
	}

	// Without a center, the leg is straight.
	rf.RFCenterWaypointId = "NOPE"
	list.Legs[1] = rf
	g = BuildPath(list, nil, env, DefaultOptions(), nil)
	if len(g.Path.Segments) != 1 || g.Path.Segments[0].Arc != nil {
		t.Errorf("expected a single straight segment: %+v", g.Path.Segments)
	}
}

func TestBuildPathTurnJoin(t *testing.T) {
	env := testEnv(map[string][2]float32{"S": {0, 0}, "F": {3, 3}})

	for _, tc := range []struct {
		name      string
		turn      string
		clockwise bool
		curved    bool
	}{
		{name: "right", turn: "R", clockwise: true, curved: true},
		// Published turns are flown as published, even the long way around.
		{name: "left", turn: "L", clockwise: false, curved: true},
		{name: "either", turn: "E", clockwise: true, curved: true},
		{name: "unpublished", turn: "", curved: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			start := fixLeg(10, "S", "IF")
			start.Course = floatp(360)
			df := fixLeg(20, "F", "DF")
			df.TurnDirection = tc.turn
			list := LegList{Legs: []cifp.ApproachLeg{start, df}}
			g := BuildPath(list, nil, env, DefaultOptions(), nil)

			segs := g.Path.Segments
			if !tc.curved {
				if len(segs) != 1 || segs[0].Arc != nil {
					t.Errorf("expected a straight join: %+v", segs)
				}
				return
			}

			if len(segs) != 2 || segs[0].Arc == nil || segs[1].Arc != nil {
				t.Fatalf("expected an arc and a line: %+v", segs)
			}
			if (segs[0].Arc.Sweep < 0) != tc.clockwise {
				t.Errorf("sweep %f", segs[0].Arc.Sweep)
			}
			if !near2(segs[1].P1, [2]float32{3, 3}, 0.01) {
				t.Errorf("path ends at %v", segs[1].P1)
			}
			// The line leaves the arc tangentially.
			if d := math.HeadingDifference(segmentHeadingAt(segs[0], segs[0].Length), segmentHeadingAt(segs[1], 0)); d > 0.5 {
				t.Errorf("heading changes by %f between the arc and the line", d)
			}
		})
	}
}

func TestBuildPathIntercept(t *testing.T) {
	env := testEnv(map[string][2]float32{"S": {0, 0}, "C": {5, 10}})
	start := fixLeg(10, "S", "IF")
	start.Course = floatp(360)
	vi := cifp.ApproachLeg{Sequence: 20, PathTerminator: "VI", Course: floatp(45)}
	cf := fixLeg(30, "C", "CF")
	cf.Course = floatp(360)
	list := LegList{Legs: []cifp.ApproachLeg{start, vi, cf}}

	g := BuildPath(list, nil, env, DefaultOptions(), nil)
	if len(g.Points) != 3 {
		t.Fatalf("%d points", len(g.Points))
	}

	// The heading leg ends established on the CF course, short of C.
	p := g.Points[1]
	if !p.Synthesized || !near(p.Position[0], 5, 0.01) || p.Position[1] >= 10 {
		t.Errorf("intercept point %+v", p)
	}
	last := g.Path.Segments[len(g.Path.Segments)-1]
	if last.Arc != nil || math.HeadingDifference(segmentHeadingAt(last, 0), 0) > 0.5 {
		t.Errorf("final segment isn't along the course: %+v", last)
	}
	checkFinite(t, g)
}

func TestBuildPathHeadingStub(t *testing.T) {
	env := testEnv(map[string][2]float32{"S": {0, 0}})
	start := fixLeg(10, "S", "IF")
	start.Course = floatp(360)
	vm := cifp.ApproachLeg{Sequence: 20, PathTerminator: "VM", Course: floatp(90)}
	list := LegList{Legs: []cifp.ApproachLeg{start, vm}}
	opts := DefaultOptions()

	g := BuildPath(list, nil, env, opts, nil)
	segs := g.Path.Segments
	if len(segs) != 2 || segs[0].Arc == nil || segs[1].Arc != nil {
		t.Fatalf("expected a turn and a straight stub: %+v", segs)
	}
	if r := segs[0].Arc.Radius; r < opts.MinTurnRadius || r > opts.MaxTurnRadius {
		t.Errorf("turn radius %f", r)
	}
	if !near(segs[1].Length, opts.HeadingStubLength, 1e-3) {
		t.Errorf("stub length %f", segs[1].Length)
	}
	if h := segmentHeadingAt(segs[1], 0); !near(h, 90, 0.5) {
		t.Errorf("stub heading %f", h)
	}
}

func TestTurnLabels(t *testing.T) {
	env := testEnv(map[string][2]float32{"A": {0, -10}, "B": {0, -5}, "C": {5, -5}, "D": {5, 0}})
	list := LegList{Legs: []cifp.ApproachLeg{
		withAltitude(fixLeg(10, "A", "IF"), 3000, cifp.AltitudeAbove),
		withAltitude(fixLeg(20, "B", "TF"), 2000, cifp.AltitudeAt),
		fixLeg(30, "C", "TF"),
		fixLeg(40, "D", "TF"),
	}}
	// C's altitude is interpolated and so it doesn't get a label even
	// though the path turns there.
	alts := altitudesFor(list, map[int]float32{0: 3000, 1: 2000, 2: 1800, 3: 1600})
	g := BuildPath(list, alts, env, DefaultOptions(), nil)

	if len(g.Labels) != 1 {
		t.Fatalf("expected one label: %+v", g.Labels)
	}
	if l := g.Labels[0]; l.Leg != 1 || l.Text != "2000" || l.Turn != "R" || l.Position != g.Points[1].P {
		t.Errorf("unexpected label %+v", l)
	}
}

func TestBuildPathContinues(t *testing.T) {
	env := testEnv(map[string][2]float32{"A": {0, 5}})
	list := LegList{Legs: []cifp.ApproachLeg{fixLeg(10, "A", "TF")}}
	start := &StartState{Position: [2]float32{0, 0}, Heading: 0, HaveHeading: true, Altitude: 500}
	g := BuildPath(list, altitudesFor(list, map[int]float32{0: 1500}), env, DefaultOptions(), start)

	if len(g.Path.Segments) != 1 || !near2(g.Path.Segments[0].P0, [2]float32{0, 0}, 1e-3) {
		t.Fatalf("unexpected segments %+v", g.Path.Segments)
	}
	if s := g.Path.Segments[0]; s.Alt0 != 500 || s.Alt1 != 1500 {
		t.Errorf("segment altitudes %f-%f", s.Alt0, s.Alt1)
	}
	if g.End == nil || g.End.Altitude != 1500 || !near2(g.End.Position, [2]float32{0, 5}, 0.01) {
		t.Errorf("end state %+v", g.End)
	}
}

func TestBuildPathPublishedLeftTurn(t *testing.T) {
	// The fix is 60 degrees right of the current heading, but the turn is
	// published as a left turn.
	env := testEnv(map[string][2]float32{"S": {0, 0}, "F": {8.66, 5}})
	start := fixLeg(10, "S", "IF")
	start.Course = floatp(360)
	df := fixLeg(20, "F", "DF")
	df.TurnDirection = "L"
	g := BuildPath(LegList{Legs: []cifp.ApproachLeg{start, df}}, nil, env, DefaultOptions(), nil)

	segs := g.Path.Segments
	if len(segs) != 2 || segs[0].Arc == nil {
		t.Fatalf("expected an arc and a line: %+v", segs)
	}
	if sweep := math.Degrees(segs[0].Arc.Sweep); sweep < 270 {
		t.Errorf("expected a long left turn, got sweep %f", sweep)
	}
	if !near2(segs[len(segs)-1].P1, [2]float32{8.66, 5}, 0.01) {
		t.Errorf("path ends at %v", segs[len(segs)-1].P1)
	}
}

func TestBuildPathHoldLegNotJoined(t *testing.T) {
	env := testEnv(map[string][2]float32{"S": {0, 0}, "A": {0, 5}, "H": {4, 8}})
	start := fixLeg(10, "S", "IF")
	start.Course = floatp(360)
	hm := fixLeg(30, "H", "HM")
	hm.TurnDirection, hm.HoldTurnDirection, hm.HoldCourse = "R", "R", floatp(360)
	list := LegList{Legs: []cifp.ApproachLeg{start, fixLeg(20, "A", "TF"), hm}}
	g := BuildPath(list, nil, env, DefaultOptions(), nil)

	for _, seg := range g.Path.Segments {
		if seg.Arc != nil {
			t.Errorf("hold leg's turn direction produced a curved join: %+v", seg)
		}
	}
	if n := len(g.Path.Segments); n != 2 {
		t.Errorf("expected 2 straight segments, got %d", n)
	}
}
