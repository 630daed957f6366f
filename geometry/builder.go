// geometry/builder.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"fmt"

	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/math"
	"github.com/mmp/approachviz/util"
)

// Vec3 is a point in world space: x is east and z is north, both in nm
// relative to the airport, and y is the altitude scaled by
// Options.VerticalScale.
type Vec3 [3]float32

type PathPoint struct {
	Leg         int        `json:"leg"`
	Key         string     `json:"key"`
	Fix         string     `json:"fix,omitempty"`
	Position    [2]float32 `json:"position"`
	Altitude    float32    `json:"altitude"`
	HasAltitude bool       `json:"hasAltitude"`
	// Synthesized points end legs that have no fix of their own.
	Synthesized bool `json:"synthesized"`
	P           Vec3 `json:"p"`
}

// VerticalLine runs from the ground up to a path point.
type VerticalLine struct {
	Bottom Vec3 `json:"bottom"`
	Top    Vec3 `json:"top"`
}

// TurnLabel marks a published altitude constraint at a point where the
// path turns.
type TurnLabel struct {
	Leg      int    `json:"leg"`
	Key      string `json:"key"`
	Position Vec3   `json:"position"`
	Text     string `json:"text"`
	Turn     string `json:"turn"` // "L" or "R"
}

// StartState is where a path begins when it continues another one.
type StartState struct {
	Position    [2]float32 `json:"position"`
	Heading     float32    `json:"heading"` // true
	HaveHeading bool       `json:"haveHeading"`
	Altitude    float32    `json:"altitude"`
}

type Geometry struct {
	Points        []PathPoint    `json:"points"`
	VerticalLines []VerticalLine `json:"verticalLines"`
	Labels        []TurnLabel    `json:"labels"`
	// Curve samples Path in 3D.
	Curve []Vec3 `json:"curve"`
	Path  Path   `json:"path"`
	// Legs that were left out, generally because their fix is unknown.
	Skipped []int         `json:"skipped,omitempty"`
	End     *StartState   `json:"end,omitempty"`
	Bounds  math.Extent2D `json:"-"`
}

// noFixLegs are the leg types that end somewhere other than at a fix and
// so have their geometry synthesized.
var noFixLegs = map[string]bool{
	"CA": true, "VA": true, "VI": true, "VR": true, "VD": true, "VM": true, "CI": true, "CD": true,
}

type pointInfo struct {
	seg     int // index of the first segment after the point
	hdg     float32
	haveHdg bool
}

type pathBuilder struct {
	list LegList
	env  Environment
	opts Options
	geom *Geometry

	// Altitude to draw each leg at and whether it was resolved.
	disp []float32
	has  []bool

	pos              [2]float32
	hdg, alt         float32
	havePos, haveHdg bool
	prevSynthesized  bool

	info []pointInfo
}

// BuildPath converts the legs of list into path geometry. Legs whose fix
// cannot be found are skipped; legs that have no fix by definition get
// short synthesized segments. If start is non-nil, the path continues
// from there.
func BuildPath(list LegList, alts Altitudes, env Environment, opts Options, start *StartState) *Geometry {
	b := &pathBuilder{
		list: list,
		env:  env,
		opts: opts,
		geom: &Geometry{Bounds: math.EmptyExtent2D()},
	}
	b.displayAltitudes(alts, start)

	if start != nil {
		b.pos, b.havePos = start.Position, true
		b.hdg, b.haveHdg = start.Heading, start.HaveHeading
		b.alt = start.Altitude
	} else if len(b.disp) > 0 {
		b.alt = b.disp[0]
	}

	for i := range list.Legs {
		b.leg(i)
	}
	b.finish()
	return b.geom
}

// displayAltitudes fills in an altitude for every leg; unresolved legs
// take the altitude of the previous leg, or of the next one if there is no
// previous one.
func (b *pathBuilder) displayAltitudes(alts Altitudes, start *StartState) {
	n := len(b.list.Legs)
	b.disp, b.has = make([]float32, n), make([]bool, n)

	first := -1
	for i := range n {
		if alt, ok := alts.Get(b.list, i); ok && math.IsFinite(alt) {
			b.disp[i], b.has[i] = alt, true
			if first == -1 {
				first = i
			}
		}
	}

	fill := b.env.Elevation
	if start != nil {
		fill = start.Altitude
	} else if first != -1 {
		fill = b.disp[first]
	}
	for i := range n {
		if b.has[i] {
			fill = b.disp[i]
		} else {
			b.disp[i] = fill
		}
	}
}

func (b *pathBuilder) leg(i int) {
	leg := b.list.Legs[i]
	segStart := len(b.geom.Path.Segments)

	synthesized := false
	if fix, ok := b.env.Fix(leg.WaypointId); ok {
		b.toFix(i, leg, fix)
	} else if noFixLegs[leg.PathTerminator] && b.havePos && b.synthesize(i, leg) {
		synthesized = true
	} else {
		b.geom.Skipped = append(b.geom.Skipped, i)
		return
	}

	b.assignAltitudes(segStart, b.disp[i])
	b.alt = b.disp[i]
	b.prevSynthesized = synthesized

	pt := PathPoint{
		Leg:         i,
		Key:         b.list.Key(i),
		Position:    b.pos,
		Altitude:    b.disp[i],
		HasAltitude: b.has[i],
		Synthesized: synthesized,
	}
	if !synthesized {
		pt.Fix = leg.WaypointId
	}
	b.geom.Points = append(b.geom.Points, pt)
	b.info = append(b.info, pointInfo{seg: len(b.geom.Path.Segments), hdg: b.hdg, haveHdg: b.haveHdg})
}

// assignAltitudes sets the altitudes of the segments starting at
// segStart so that they descend or climb linearly with distance from the
// current altitude to alt.
func (b *pathBuilder) assignAltitudes(segStart int, alt float32) {
	segs := b.geom.Path.Segments[segStart:]
	var total float32
	for _, s := range segs {
		total += s.Length
	}
	if total <= 0 {
		return
	}

	var cum float32
	for i := range segs {
		segs[i].Alt0 = math.Lerp(cum/total, b.alt, alt)
		cum += segs[i].Length
		segs[i].Alt1 = math.Lerp(min(cum/total, 1), b.alt, alt)
	}
}

func (b *pathBuilder) toFix(i int, leg cifp.ApproachLeg, fix [2]float32) {
	if !b.havePos {
		b.pos, b.havePos = fix, true
		if leg.Course != nil {
			b.hdg, b.haveHdg = b.env.TrueCourse(float32(*leg.Course)), true
		}
		return
	}

	if leg.IsArc() && b.arc(i, leg, fix) {
		return
	}

	if leg.PathTerminator == "CF" && leg.Course != nil && b.prevSynthesized && b.haveHdg {
		course := b.env.TrueCourse(float32(*leg.Course))
		if b.intercept(i, fix, course) {
			b.geom.Path.addLine(b.pos, fix, i)
			b.pos, b.hdg = fix, course
			return
		}
	}

	if b.haveHdg && joinsWithTurn(leg) && b.turnToFix(i, leg, fix) {
		return
	}

	if math.Distance2f(b.pos, fix) > 1e-4 {
		b.geom.Path.addLine(b.pos, fix, i)
		b.hdg, b.haveHdg = math.VectorHeading(math.Sub2f(fix, b.pos)), true
	}
	b.pos = fix
}

// arc handles RF and AF legs, which fly a circle around their center fix
// to the leg's fix.
func (b *pathBuilder) arc(i int, leg cifp.ApproachLeg, fix [2]float32) bool {
	center, ok := b.env.Fix(leg.RFCenterWaypointId)
	if !ok {
		return false
	}
	radius := math.Distance2f(center, fix)
	if radius < 1e-3 {
		return false
	}

	start, end := angleOf(center, b.pos), angleOf(center, fix)
	dir := leg.RFTurnDirection
	if dir == "" {
		dir = leg.TurnDirection
	}
	var cw bool
	switch dir {
	case "R":
		cw = true
	case "L":
		cw = false
	default:
		cw = sweepTo(start, end, false) > math.Pi()
	}

	arc := PathArc{Center: center, Radius: radius, StartAngle: start, Sweep: sweepTo(start, end, cw)}
	b.geom.Path.addLine(b.pos, arc.pointOnArc(start), i)
	b.geom.Path.addArc(arc, i)

	b.pos = fix
	b.hdg, b.haveHdg = arcTangentHeading(end, cw), true
	return true
}

// perpendicular returns the unit vector to the right or left of the
// heading.
func perpendicular(hdg float32, right bool) [2]float32 {
	if right {
		return math.HeadingVector(hdg + 90)
	}
	return math.HeadingVector(hdg - 90)
}

// turnArc returns the arc of the given radius that turns from heading
// hdg at p to heading newHdg.
func turnArc(p [2]float32, hdg, newHdg, radius float32, right bool) PathArc {
	center := math.Add2f(p, math.Scale2f(perpendicular(hdg, right), radius))
	var sweep float32
	if right {
		sweep = -math.Radians(math.NormalizeHeading(newHdg - hdg))
	} else {
		sweep = math.Radians(math.NormalizeHeading(hdg - newHdg))
	}
	return PathArc{Center: center, Radius: radius, StartAngle: angleOf(center, p), Sweep: sweep}
}

// joinArc returns the arc that turns from the current position and
// heading until the aircraft is headed directly toward fix.
func (b *pathBuilder) joinArc(fix [2]float32, right bool) (PathArc, bool) {
	bearing := math.VectorHeading(math.Sub2f(fix, b.pos))
	radius := b.opts.turnRadius(math.HeadingSignedTurn(b.hdg, bearing))
	center := math.Add2f(b.pos, math.Scale2f(perpendicular(b.hdg, right), radius))

	d := math.Distance2f(center, fix)
	if d <= radius*1.001 {
		// The fix is inside the turn circle.
		return PathArc{}, false
	}

	// The tangent point from the fix.
	beta, alpha := angleOf(center, fix), math.SafeACos(radius/d)
	theta := beta - alpha
	if right {
		theta = beta + alpha
	}
	start := angleOf(center, b.pos)
	return PathArc{Center: center, Radius: radius, StartAngle: start, Sweep: sweepTo(start, theta, right)}, true
}

// turnToFix joins the current position and heading to fix with a turn
// followed by a straight segment. A published left or right turn is
// always flown as published. Otherwise the direction follows the bearing
// to the fix, and the other direction is only used if that turn can't
// reach the fix within Options.MaxJoinSweep.
func (b *pathBuilder) turnToFix(i int, leg cifp.ApproachLeg, fix [2]float32) bool {
	var arc PathArc
	var ok bool
	switch leg.TurnDirection {
	case "R", "L":
		if arc, ok = b.joinArc(fix, leg.TurnDirection == "R"); !ok {
			return false
		}
	default:
		feasible := func(a PathArc, ok bool) bool {
			return ok && math.Degrees(math.Abs(a.Sweep)) <= b.opts.MaxJoinSweep
		}
		right := math.HeadingSignedTurn(b.hdg, math.VectorHeading(math.Sub2f(fix, b.pos))) > 0
		if arc, ok = b.joinArc(fix, right); !feasible(arc, ok) {
			if arc, ok = b.joinArc(fix, !right); !feasible(arc, ok) {
				return false
			}
		}
	}

	b.geom.Path.addArc(arc, i)
	tangent := arc.pointOnArc(arc.StartAngle + arc.Sweep)
	b.geom.Path.addLine(tangent, fix, i)
	b.pos = fix
	b.hdg, b.haveHdg = math.VectorHeading(math.Sub2f(fix, tangent)), true
	if math.Distance2f(tangent, fix) < 1e-4 {
		b.hdg = arcTangentHeading(arc.StartAngle+arc.Sweep, arc.Sweep < 0)
	}
	return true
}

// intercept flies the current heading until it meets the course line
// through fix and turns onto it, if that happens before the fix.
func (b *pathBuilder) intercept(i int, fix [2]float32, course float32) bool {
	hv, cv := math.HeadingVector(b.hdg), math.HeadingVector(course)
	x, ok := math.LineLineIntersect(b.pos, math.Add2f(b.pos, hv), fix, math.Add2f(fix, cv))
	if !ok || math.Dot(math.Sub2f(x, b.pos), hv) <= 0 || math.Dot(math.Sub2f(x, fix), cv) >= 0 {
		return false
	}

	turn := math.HeadingSignedTurn(b.hdg, course)
	if math.Abs(turn) < 1 || math.Abs(turn) > 150 {
		return false
	}

	// Fillet the corner at the intersection, shrinking the turn if it
	// doesn't fit.
	radius := b.opts.turnRadius(turn)
	half := math.Tan(math.Radians(math.Abs(turn)) / 2)
	td := radius * half
	if limit := min(math.Distance2f(b.pos, x), math.Distance2f(x, fix)); td > limit {
		td = limit
		radius = td / half
	}

	t0 := math.Sub2f(x, math.Scale2f(hv, td))
	b.geom.Path.addLine(b.pos, t0, i)
	b.geom.Path.addArc(turnArc(t0, b.hdg, course, radius, turn > 0), i)
	b.pos = math.Add2f(x, math.Scale2f(cv, td))
	b.hdg, b.haveHdg = course, true
	return true
}

// turnTo turns from the current heading to hdg, using the leg's turn
// direction if it has one.
func (b *pathBuilder) turnTo(i int, leg cifp.ApproachLeg, hdg float32) {
	if !b.haveHdg {
		b.hdg, b.haveHdg = hdg, true
		return
	}
	turn := math.HeadingSignedTurn(b.hdg, hdg)
	if math.Abs(turn) < 1 {
		b.hdg = hdg
		return
	}

	right := turn > 0
	switch leg.TurnDirection {
	case "R":
		right = true
	case "L":
		right = false
	}
	sweep := math.NormalizeHeading(hdg - b.hdg)
	if !right {
		sweep = 360 - sweep
	}

	arc := turnArc(b.pos, b.hdg, hdg, b.opts.turnRadius(sweep), right)
	b.geom.Path.addArc(arc, i)
	b.pos = arc.pointOnArc(arc.StartAngle + arc.Sweep)
	b.hdg = hdg
}

func (b *pathBuilder) straight(i int, length float32) {
	p := math.Add2f(b.pos, math.Scale2f(math.HeadingVector(b.hdg), length))
	b.geom.Path.addLine(b.pos, p, i)
	b.pos = p
}

// synthesize builds the geometry for a leg without a fix.
func (b *pathBuilder) synthesize(i int, leg cifp.ApproachLeg) bool {
	hdg, ok := b.hdg, b.haveHdg
	if leg.Course != nil {
		hdg, ok = b.env.TrueCourse(float32(*leg.Course)), true
	}
	if !ok {
		return false
	}

	switch leg.PathTerminator {
	case "CA", "VA":
		b.climb(i, leg, hdg)
	case "CI", "VI":
		b.turnTo(i, leg, hdg)
		if fix, course, ok := b.nextCourse(i); ok && b.intercept(i, fix, course) {
			break
		}
		b.straight(i, b.opts.HeadingStubLength)
	default:
		b.turnTo(i, leg, hdg)
		b.straight(i, b.opts.HeadingStubLength)
	}
	return true
}

// climb handles legs that fly a course until reaching an altitude. The
// length follows from the climb gradient, limited by the distance to the
// next fix. Legs that hardly climb are drawn as stubs.
func (b *pathBuilder) climb(i int, leg cifp.ApproachLeg, hdg float32) {
	target := b.disp[i]
	length := b.opts.CAStubLength
	stub := target-b.alt < b.opts.CAMinClimb || target <= b.env.Elevation+b.opts.CALowAltitude

	if !stub && b.opts.ClimbGradient > 0 {
		length = (target - b.alt) / b.opts.ClimbGradient
		if fix, ok := b.nextFix(i); ok {
			length = min(length, b.opts.CAMaxFraction*math.Distance2f(b.pos, fix))
		}
		length = max(length, b.opts.CAStubLength)
	}

	if stub && b.nextJoinsWithTurn(i) {
		// The turn toward the next fix starts right away.
		b.hdg, b.haveHdg = hdg, true
		return
	}

	b.turnTo(i, leg, hdg)
	b.straight(i, length)
}

func (b *pathBuilder) nextFix(i int) ([2]float32, bool) {
	for _, leg := range b.list.Legs[i+1:] {
		if p, ok := b.env.Fix(leg.WaypointId); ok {
			return p, true
		}
	}
	return [2]float32{}, false
}

// nextCourse returns the fix and true course of the following leg if it
// is a CF leg.
func (b *pathBuilder) nextCourse(i int) ([2]float32, float32, bool) {
	if i+1 >= len(b.list.Legs) {
		return [2]float32{}, 0, false
	}
	next := b.list.Legs[i+1]
	if next.PathTerminator != "CF" || next.Course == nil {
		return [2]float32{}, 0, false
	}
	fix, ok := b.env.Fix(next.WaypointId)
	return fix, b.env.TrueCourse(float32(*next.Course)), ok
}

func (b *pathBuilder) nextJoinsWithTurn(i int) bool {
	if i+1 >= len(b.list.Legs) {
		return false
	}
	next := b.list.Legs[i+1]
	_, ok := b.env.Fix(next.WaypointId)
	return ok && joinsWithTurn(next)
}

// joinsWithTurn reports whether a leg to a fix is reached with a curved
// join: only course, direct and track to fix legs that publish a turn
// direction. Hold legs use that byte for the hold's own turn.
func joinsWithTurn(leg cifp.ApproachLeg) bool {
	switch leg.PathTerminator {
	case "DF", "CF", "TF":
		return leg.TurnDirection != ""
	default:
		return false
	}
}

func (b *pathBuilder) vec3(p [2]float32, alt float32) Vec3 {
	y := alt * b.opts.VerticalScale
	if !math.IsFinite(y) {
		y = 0
	}
	return Vec3{p[0], y, p[1]}
}

func (b *pathBuilder) finish() {
	g := b.geom
	for i := range g.Points {
		pt := &g.Points[i]
		pt.P = b.vec3(pt.Position, pt.Altitude)
		g.VerticalLines = append(g.VerticalLines, VerticalLine{Bottom: Vec3{pt.P[0], 0, pt.P[2]}, Top: pt.P})
		g.Bounds = math.Union(g.Bounds, pt.Position)
	}

	pts, alts := g.Path.Sample(b.opts.ArcStep, b.opts.LineStep)
	for i, p := range pts {
		g.Curve = append(g.Curve, b.vec3(p, alts[i]))
		g.Bounds = math.Union(g.Bounds, p)
	}
	if len(g.Curve) == 0 {
		for _, pt := range g.Points {
			g.Curve = append(g.Curve, pt.P)
		}
	}

	for k, pt := range g.Points {
		if lbl, ok := b.label(pt, b.info[k]); ok {
			g.Labels = append(g.Labels, lbl)
		}
	}

	if b.havePos {
		g.End = &StartState{Position: b.pos, Heading: b.hdg, HaveHeading: b.haveHdg, Altitude: b.alt}
	}
}

// label returns the label for a point if its leg publishes an altitude and
// the path turns there.
func (b *pathBuilder) label(pt PathPoint, info pointInfo) (TurnLabel, bool) {
	leg := b.list.Legs[pt.Leg]
	if leg.Altitude == nil || info.seg >= len(b.geom.Path.Segments) {
		return TurnLabel{}, false
	}

	seg := b.geom.Path.Segments[info.seg]
	next := b.list.Legs[seg.Leg]
	hdg := segmentHeadingAt(seg, seg.Length)

	turn := next.TurnDirection
	if turn != "L" && turn != "R" {
		if !info.haveHdg || math.HeadingDifference(info.hdg, hdg) < b.opts.LabelTurnThreshold {
			return TurnLabel{}, false
		}
		turn = util.Select(math.HeadingSignedTurn(info.hdg, hdg) > 0, "R", "L")
	}

	return TurnLabel{
		Leg:      pt.Leg,
		Key:      pt.Key,
		Position: pt.P,
		Text:     constraintText(leg),
		Turn:     turn,
	}, true
}

func constraintText(leg cifp.ApproachLeg) string {
	alt := *leg.Altitude
	switch leg.AltitudeConstraint {
	case cifp.AltitudeAbove:
		return fmt.Sprintf("%d+", alt)
	case cifp.AltitudeBelow:
		return fmt.Sprintf("%d-", alt)
	case cifp.AltitudeBetween:
		if leg.AltitudeLower != nil {
			return fmt.Sprintf("%d-%d", *leg.AltitudeLower, alt)
		}
	}
	return fmt.Sprintf("%d", alt)
}
