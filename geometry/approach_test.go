// geometry/approach_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"context"
	"errors"
	"maps"
	"strings"
	"testing"
	"time"

	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/math"
)

// testEnv returns an environment with fixes at the given positions, in nm
// relative to the airport.
func testEnv(fixes map[string][2]float32) Environment {
	env := Environment{Reference: math.Point2LL{-73.8, 40.6}, Elevation: 13}
	wps := make(WaypointMap)
	for id, p := range fixes {
		ll := env.LatLong(p)
		typ := cifp.WaypointTerminal
		if strings.Contains(id, "_RW") {
			typ = cifp.WaypointRunway
		}
		wps[id] = cifp.Waypoint{Id: id, Name: id, Lat: float64(ll.Latitude()), Lon: float64(ll.Longitude()), Type: typ}
	}
	env.Waypoints = wps
	return env
}

func intp(v int) *int             { return &v }
func floatp(v float64) *float64   { return &v }
func near(a, b, tol float32) bool { return math.Abs(a-b) <= tol }
func near2(a, b [2]float32, tol float32) bool {
	return math.Distance2f(a, b) <= tol
}

func fixLeg(seq int, id, pt string) cifp.ApproachLeg {
	return cifp.ApproachLeg{Sequence: seq, WaypointId: id, WaypointName: strings.TrimPrefix(id, "KTST_"), PathTerminator: pt}
}

func withAltitude(l cifp.ApproachLeg, alt int, c cifp.AltitudeConstraint) cifp.ApproachLeg {
	l.Altitude, l.AltitudeConstraint = intp(alt), c
	return l
}

var testFixes = map[string][2]float32{
	"CHAMP":      {0, -20},
	"KTST_INTO":  {0, -10},
	"KTST_FAFIX": {0, -5},
	"KTST_STEP":  {0, -2},
	"KTST_RW36":  {0, 0},
	"HOLDX":      {0, 10},
}

// testApproach is a straight-in approach to runway 36 at the origin with
// a missed approach that climbs straight ahead to a hold.
func testApproach() *cifp.Approach {
	faf := withAltitude(fixLeg(20, "KTST_FAFIX", "CF"), 1900, cifp.AltitudeAt)
	faf.IsFinalApproachFix = true
	faf.Course = floatp(360)

	rw := fixLeg(40, "KTST_RW36", "TF")
	rw.IsMissedApproach = true
	rw.VerticalAngleDeg = floatp(-3)

	ca := withAltitude(cifp.ApproachLeg{Sequence: 50, PathTerminator: "CA", Course: floatp(360)}, 520, cifp.AltitudeAbove)
	ca.IsMissedApproach = true

	df := fixLeg(60, "HOLDX", "DF")
	df.TurnDirection = "L"
	df.IsMissedApproach = true

	hm := withAltitude(fixLeg(70, "HOLDX", "HM"), 4000, cifp.AltitudeAbove)
	hm.HoldCourse, hm.Course = floatp(180), floatp(180)
	hm.HoldTurnDirection, hm.TurnDirection = "L", "L"
	hm.IsMissedApproach = true

	into := withAltitude(fixLeg(10, "KTST_INTO", "IF"), 3000, cifp.AltitudeAbove)
	into.IsInitialFix = true

	return &cifp.Approach{
		AirportId:   "KTST",
		ProcedureId: "R36",
		Type:        "RNAV",
		Runway:      "36",
		Transitions: cifp.Transitions{{
			Name: "CHAMP",
			Legs: []cifp.ApproachLeg{
				withAltitude(fixLeg(10, "CHAMP", "IF"), 4000, cifp.AltitudeAt),
				withAltitude(fixLeg(20, "KTST_INTO", "TF"), 3000, cifp.AltitudeAbove),
			},
		}},
		FinalLegs:  []cifp.ApproachLeg{into, faf, fixLeg(30, "KTST_STEP", "TF")},
		MissedLegs: []cifp.ApproachLeg{rw, ca, df, hm},
	}
}

func TestBuildApproach(t *testing.T) {
	env := testEnv(testFixes)
	ag := BuildApproach(testApproach(), env, Minimums{DecisionAltitude: 263}, DefaultOptions())

	if len(ag.Transitions) != 1 || ag.Transitions[0].Name != "CHAMP" || len(ag.Transitions[0].Geometry.Points) != 2 {
		t.Fatalf("unexpected transitions %+v", ag.Transitions)
	}

	// The final segment runs through the runway.
	fin := ag.Final.Points
	if len(fin) != 4 || fin[3].Fix != "KTST_RW36" || !near2(fin[3].Position, [2]float32{0, 0}, 0.01) {
		t.Fatalf("unexpected final points %+v", fin)
	}
	if !near(fin[3].Altitude, 63, 1) {
		t.Errorf("runway altitude %f, expected threshold crossing height", fin[3].Altitude)
	}

	// The missed approach picks up where the final leaves off.
	if len(ag.Missed.Path.Segments) == 0 || !near2(ag.Missed.Path.Segments[0].P0, [2]float32{0, 0}, 0.01) {
		t.Errorf("missed approach doesn't start at the runway: %+v", ag.Missed.Path.Segments)
	}
	if segs := ag.Missed.Path.Segments; len(segs) > 0 && segs[0].Alt0 != 263 {
		t.Errorf("missed approach starts at %f, expected the decision altitude", segs[0].Alt0)
	}
	if ag.Final.End.Altitude == 263 {
		t.Errorf("final segment end altitude was changed")
	}
	if n := len(ag.Missed.Points); n != 3 || !ag.Missed.Points[0].Synthesized || ag.Missed.Points[2].Fix != "HOLDX" {
		t.Errorf("unexpected missed points %+v", ag.Missed.Points)
	}

	if len(ag.Holds) != 1 || ag.Holds[0].Fix != "HOLDX" || ag.Holds[0].Altitude != 4000 || ag.Holds[0].TurnRight {
		t.Errorf("unexpected holds %+v", ag.Holds)
	}
	if ag.Bounds.P0[1] > -19.9 || ag.Bounds.P1[1] < 10 {
		t.Errorf("bounds %+v don't cover the procedure", ag.Bounds)
	}
}

func TestBuildAll(t *testing.T) {
	env := testEnv(testFixes)
	a, b := testApproach(), testApproach()
	b.ProcedureId = "H36"

	envFor := func(airport string) (Environment, error) {
		if airport != "KTST" {
			return Environment{}, errors.New("unknown airport")
		}
		return env, nil
	}

	ags, err := BuildAll(context.Background(), []*cifp.Approach{a, b}, envFor, nil, DefaultOptions(), 1)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(ags) != 2 || ags[0].ProcedureId != "R36" || ags[1].ProcedureId != "H36" {
		t.Errorf("results not in order: %+v", ags)
	}

	c := testApproach()
	c.AirportId = "KXXX"
	if _, err := BuildAll(context.Background(), []*cifp.Approach{a, c}, envFor, nil, DefaultOptions(), 4); err == nil {
		t.Errorf("expected an error for the unknown airport")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BuildAll(ctx, []*cifp.Approach{a}, envFor, nil, DefaultOptions(), 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCache(t *testing.T) {
	env := testEnv(testFixes)
	appr := testApproach()
	c := NewCache(8, time.Hour)
	opts := DefaultOptions()

	g0 := c.Get(appr, env, Minimums{}, opts)
	g0.Final.Points[0].Altitude = -1
	g1 := c.Get(appr, env, Minimums{}, opts)
	if g1.Final.Points[0].Altitude == -1 {
		t.Errorf("cached geometry was modified through a returned copy")
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("hits %d misses %d", hits, misses)
	}

	// Different minimums are a different entry.
	c.Get(appr, env, Minimums{DecisionAltitude: 300}, opts)
	if c.Len() != 2 {
		t.Errorf("cache has %d entries", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("cache not purged")
	}
}

func TestCacheEnvironment(t *testing.T) {
	appr := testApproach()
	c := NewCache(8, time.Hour)
	opts := DefaultOptions()

	g0 := c.Get(appr, testEnv(testFixes), Minimums{}, opts)

	// Same procedure, but the holding fix has moved.
	moved := maps.Clone(testFixes)
	moved["HOLDX"] = [2]float32{3, 10}
	g1 := c.Get(appr, testEnv(moved), Minimums{}, opts)
	if hits, misses := c.Stats(); hits != 0 || misses != 2 {
		t.Errorf("hits %d misses %d, expected a miss for the changed waypoint", hits, misses)
	}
	last := func(g *ApproachGeometry) [2]float32 {
		return g.Missed.Points[len(g.Missed.Points)-1].Position
	}
	if !near2(last(g0), [2]float32{0, 10}, 0.01) || !near2(last(g1), [2]float32{3, 10}, 0.01) {
		t.Errorf("missed approaches end at %v and %v", last(g0), last(g1))
	}

	env := testEnv(testFixes)
	env.Elevation = 500
	c.Get(appr, env, Minimums{}, opts)
	if _, misses := c.Stats(); misses != 3 {
		t.Errorf("misses %d, expected a miss for the changed elevation", misses)
	}

	c.Get(appr, testEnv(testFixes), Minimums{}, opts)
	if hits, _ := c.Stats(); hits != 1 {
		t.Errorf("hits %d, expected the original environment to hit", hits)
	}
}
