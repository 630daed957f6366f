// geometry/env.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/math"
)

// WaypointLookup provides the fixes that a procedure's legs refer to.
type WaypointLookup interface {
	Lookup(id string) (cifp.Waypoint, bool)
}

// WaypointMap is a WaypointLookup backed by a map from waypoint id, as in
// cifp.Result.Waypoints.
type WaypointMap map[string]cifp.Waypoint

func (m WaypointMap) Lookup(id string) (cifp.Waypoint, bool) {
	wp, ok := m[id]
	return wp, ok
}

// Environment is the airport context that geometry is computed in. All
// 2D positions produced by this package are in nautical miles relative to
// Reference, with +x east and +y north.
type Environment struct {
	Reference math.Point2LL
	Elevation float32 // feet
	MagVar    float32 // degrees, positive east
	Waypoints WaypointLookup
}

func NewEnvironment(apt cifp.Airport, wps WaypointLookup) Environment {
	return Environment{
		Reference: math.Point2LL{float32(apt.Lon), float32(apt.Lat)},
		Elevation: float32(apt.Elevation),
		MagVar:    float32(apt.MagVar),
		Waypoints: wps,
	}
}

func (e Environment) nmPerLongitude() float32 {
	return math.NMPerLongitudeAt(e.Reference)
}

// Local returns the position of p in the environment's local frame.
func (e Environment) Local(p math.Point2LL) [2]float32 {
	nmlon := e.nmPerLongitude()
	return math.Sub2f(math.LL2NM(p, nmlon), math.LL2NM(e.Reference, nmlon))
}

// LatLong is the inverse of Local.
func (e Environment) LatLong(p [2]float32) math.Point2LL {
	nmlon := e.nmPerLongitude()
	return math.NM2LL(math.Add2f(p, math.LL2NM(e.Reference, nmlon)), nmlon)
}

func (e Environment) Waypoint(id string) (cifp.Waypoint, bool) {
	if id == "" || e.Waypoints == nil {
		return cifp.Waypoint{}, false
	}
	return e.Waypoints.Lookup(id)
}

// Fix returns the local position of the given waypoint.
func (e Environment) Fix(id string) ([2]float32, bool) {
	wp, ok := e.Waypoint(id)
	if !ok {
		return [2]float32{}, false
	}
	p := e.Local(math.Point2LL{float32(wp.Lon), float32(wp.Lat)})
	if !math.IsFinite(p[0]) || !math.IsFinite(p[1]) {
		return [2]float32{}, false
	}
	return p, true
}

// TrueCourse converts a magnetic course to true.
func (e Environment) TrueCourse(magnetic float32) float32 {
	return math.NormalizeHeading(magnetic + e.MagVar)
}

// Options collects the tunable parameters of altitude resolution and path
// synthesis. The zero value is not useful; start from DefaultOptions.
type Options struct {
	// Missed approach climb gradient used when no published gradient
	// applies, in feet per nm.
	ClimbGradient float32 `json:"climb_gradient"`
	// Height above the runway at which the glidepath crosses the
	// threshold, in feet.
	ThresholdCrossingHeight float32 `json:"threshold_crossing_height"`

	// Length of CA legs that do not climb meaningfully.
	CAStubLength float32 `json:"ca_stub_length"`
	// CA legs are no longer than this fraction of the distance to the
	// next fix.
	CAMaxFraction float32 `json:"ca_max_fraction"`
	// CA legs climbing less than this many feet are drawn as stubs.
	CAMinClimb float32 `json:"ca_min_climb"`
	// CA legs ending less than this far above the airport are drawn as
	// stubs.
	CALowAltitude float32 `json:"ca_low_altitude"`

	// Straight part of a heading leg stub, in nm.
	HeadingStubLength float32 `json:"heading_stub_length"`
	// Turn radius bounds for stubs and curved joins; the radius grows
	// with the size of the turn.
	MinTurnRadius float32 `json:"min_turn_radius"`
	MaxTurnRadius float32 `json:"max_turn_radius"`
	// Joins without a published turn direction that would sweep more
	// than this many degrees turn the other way instead.
	MaxJoinSweep float32 `json:"max_join_sweep"`
	// Heading changes at a published constraint larger than this get a
	// label.
	LabelTurnThreshold float32 `json:"label_turn_threshold"`

	// Arc sampling step in degrees and line sampling step in nm for the
	// 3D curve.
	ArcStep  float32 `json:"arc_step"`
	LineStep float32 `json:"line_step"`
	// Multiplier from feet to vertical world units.
	VerticalScale float32 `json:"vertical_scale"`

	// Hold leg time when neither distance nor time is published.
	HoldMinutes float32 `json:"hold_minutes"`
}

func DefaultOptions() Options {
	return Options{
		ClimbGradient:           200,
		ThresholdCrossingHeight: 50,
		CAStubLength:            0.5,
		CAMaxFraction:           0.5,
		CAMinClimb:              300,
		CALowAltitude:           800,
		HeadingStubLength:       0.8,
		MinTurnRadius:           0.55,
		MaxTurnRadius:           0.9,
		MaxJoinSweep:            270,
		LabelTurnThreshold:      15,
		ArcStep:                 5,
		LineStep:                0.5,
		VerticalScale:           math.FeetToNauticalMiles,
		HoldMinutes:             1,
	}
}

// turnRadius returns the radius used for a turn through the given number
// of degrees.
func (o Options) turnRadius(turn float32) float32 {
	t := math.Clamp(math.Abs(turn)/180, 0, 1)
	return math.Lerp(t, o.MinTurnRadius, o.MaxTurnRadius)
}

// Minimums are the externally supplied values for a procedure's missed
// approach.
type Minimums struct {
	// Decision or minimum descent altitude at the missed approach point
	// in feet; zero if unknown.
	DecisionAltitude float32 `json:"decision_altitude"`
	// Published missed approach climb gradient in feet per nm; zero if
	// none.
	ClimbGradient float32 `json:"climb_gradient"`
	// Altitude up to which ClimbGradient applies; zero means it applies
	// throughout.
	ClimbGradientTarget float32 `json:"climb_gradient_target"`
}

// climb returns the altitude reached after climbing for dist nm from alt
// under the gradient policy.
func (m Minimums) climb(alt, dist, defaultGradient float32) float32 {
	if dist <= 0 {
		return alt
	}
	if m.ClimbGradient <= 0 {
		return alt + dist*defaultGradient
	} else if m.ClimbGradientTarget <= 0 {
		return alt + dist*m.ClimbGradient
	} else if alt >= m.ClimbGradientTarget {
		return alt + dist*defaultGradient
	}

	// Published gradient up to the target, default gradient after.
	toTarget := (m.ClimbGradientTarget - alt) / m.ClimbGradient
	if dist <= toTarget {
		return alt + dist*m.ClimbGradient
	}
	return m.ClimbGradientTarget + (dist-toTarget)*defaultGradient
}

// LegList is an ordered list of legs along with the identifiers needed to
// key them.
type LegList struct {
	Airport    string
	Procedure  string
	Transition string
	Legs       []cifp.ApproachLeg
}

// Key returns the Altitudes key for the i'th leg.
func (l LegList) Key(i int) string {
	leg := l.Legs[i]
	return cifp.LegKey(l.Airport, l.Procedure, l.Transition, leg.Sequence, leg.WaypointName)
}

// CoreLegs returns the approach's final legs followed by its missed
// approach legs.
func CoreLegs(appr *cifp.Approach) LegList {
	legs := make([]cifp.ApproachLeg, 0, len(appr.FinalLegs)+len(appr.MissedLegs))
	legs = append(legs, appr.FinalLegs...)
	legs = append(legs, appr.MissedLegs...)
	return LegList{Airport: appr.AirportId, Procedure: appr.ProcedureId, Legs: legs}
}

// TransitionLegs returns the legs of the i'th transition.
func TransitionLegs(appr *cifp.Approach, i int) LegList {
	tr := appr.Transitions[i]
	return LegList{Airport: appr.AirportId, Procedure: appr.ProcedureId, Transition: tr.Name, Legs: tr.Legs}
}

// Altitudes maps leg keys to resolved altitudes in feet. Legs whose
// altitude could not be resolved are absent.
type Altitudes map[string]float32

func (a Altitudes) Get(list LegList, i int) (float32, bool) {
	alt, ok := a[list.Key(i)]
	return alt, ok
}
