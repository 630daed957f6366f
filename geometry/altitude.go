// geometry/altitude.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"maps"

	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/math"
)

// published returns the altitude a leg publishes. The lower bound is used
// for "between" constraints.
func published(leg cifp.ApproachLeg) (float32, bool) {
	if leg.Altitude == nil {
		return 0, false
	}
	if leg.AltitudeConstraint == cifp.AltitudeBetween && leg.AltitudeLower != nil {
		return float32(*leg.AltitudeLower), true
	}
	return float32(*leg.Altitude), true
}

// legTrack records the position of each leg's fix (when it has one) and
// an along-track distance for every leg, including those without a fix.
type legTrack struct {
	pos   [][2]float32
	fixed []bool
	along []float32
}

func trackLegs(legs []cifp.ApproachLeg, env Environment) legTrack {
	n := len(legs)
	t := legTrack{
		pos:   make([][2]float32, n),
		fixed: make([]bool, n),
		along: make([]float32, n),
	}

	var fixes []int
	for i, leg := range legs {
		if p, ok := env.Fix(leg.WaypointId); ok {
			t.pos[i], t.fixed[i] = p, true
			fixes = append(fixes, i)
		}
	}
	if len(fixes) == 0 {
		for i := range legs {
			t.along[i] = float32(i)
		}
		return t
	}

	// Legs between two fixes split the distance between them evenly.
	for k := 1; k < len(fixes); k++ {
		a, b := fixes[k-1], fixes[k]
		gap := math.Distance2f(t.pos[a], t.pos[b])
		for j := a + 1; j <= b; j++ {
			t.along[j] = t.along[a] + gap*float32(j-a)/float32(b-a)
		}
	}

	// Legs before the first fix or after the last one use their own
	// published distance, or else the length of the neighboring leg.
	borrow := func(leg cifp.ApproachLeg, neighbor float32) float32 {
		if leg.Distance != nil && *leg.Distance > 0 {
			return float32(*leg.Distance)
		} else if neighbor > 0 {
			return neighbor
		}
		return 1
	}
	for j := fixes[0] - 1; j >= 0; j-- {
		var neighbor float32
		if j+2 < n {
			neighbor = t.along[j+2] - t.along[j+1]
		}
		t.along[j] = t.along[j+1] - borrow(legs[j+1], neighbor)
	}
	for j := fixes[len(fixes)-1] + 1; j < n; j++ {
		var neighbor float32
		if j >= 2 {
			neighbor = t.along[j-1] - t.along[j-2]
		}
		t.along[j] = t.along[j-1] + borrow(legs[j], neighbor)
	}

	return t
}

// interpolate fills in values for the legs that don't publish an altitude
// by interpolating linearly in along-track distance between the nearest
// published neighbors, or by copying the single neighbor that exists.
// Legs with no published neighbor at all remain unknown.
func interpolate(legs []cifp.ApproachLeg, along []float32) ([]float32, []bool) {
	vals, known := make([]float32, len(legs)), make([]bool, len(legs))
	for i, leg := range legs {
		vals[i], known[i] = published(leg)
	}

	out, outKnown := make([]float32, len(legs)), make([]bool, len(legs))
	for i := range legs {
		if known[i] {
			out[i], outKnown[i] = vals[i], true
			continue
		}

		prev, next := -1, -1
		for j := i - 1; j >= 0; j-- {
			if known[j] {
				prev = j
				break
			}
		}
		for j := i + 1; j < len(legs); j++ {
			if known[j] {
				next = j
				break
			}
		}

		switch {
		case prev != -1 && next != -1:
			span := along[next] - along[prev]
			if span > 0 {
				t := math.Clamp((along[i]-along[prev])/span, 0, 1)
				out[i] = math.Lerp(t, vals[prev], vals[next])
			} else {
				out[i] = vals[prev]
			}
			outKnown[i] = true
		case prev != -1:
			out[i], outKnown[i] = vals[prev], true
		case next != -1:
			out[i], outKnown[i] = vals[next], true
		}
	}
	return out, outKnown
}

// ResolveAltitudes returns an altitude for each leg of the list that
// either publishes one or lies next to a leg that does.
func ResolveAltitudes(list LegList, env Environment) Altitudes {
	track := trackLegs(list.Legs, env)
	vals, known := interpolate(list.Legs, track.along)

	alts := make(Altitudes)
	for i := range list.Legs {
		if known[i] && math.IsFinite(vals[i]) {
			alts[list.Key(i)] = vals[i]
		}
	}
	return alts
}

// missedApproachPoint returns the index in the core leg list of the
// missed approach point: the first missed approach leg if it is at a fix,
// otherwise the last final leg that is.
func missedApproachPoint(nfinal int, track legTrack) int {
	if nfinal < len(track.fixed) && track.fixed[nfinal] {
		return nfinal
	}
	for i := min(nfinal, len(track.fixed)) - 1; i >= 0; i-- {
		if track.fixed[i] {
			return i
		}
	}
	return -1
}

// ResolveApproach resolves altitudes for all of an approach's legs. Final
// approach legs between the final approach fix and the missed approach
// point follow a glidepath, and the missed approach climbs from the
// decision altitude toward its published altitudes, limited by the
// climb gradient.
func ResolveApproach(appr *cifp.Approach, env Environment, mins Minimums, opts Options) Altitudes {
	alts := make(Altitudes)
	for i := range appr.Transitions {
		maps.Copy(alts, ResolveAltitudes(TransitionLegs(appr, i), env))
	}

	core := CoreLegs(appr)
	if len(core.Legs) == 0 {
		return alts
	}
	nfinal := len(appr.FinalLegs)
	track := trackLegs(core.Legs, env)

	vals, known := interpolate(core.Legs[:nfinal], track.along[:nfinal])
	vals = append(vals, make([]float32, len(core.Legs)-nfinal)...)
	known = append(known, make([]bool, len(core.Legs)-nfinal)...)

	r := approachResolver{
		legs:   core.Legs,
		env:    env,
		opts:   opts,
		mins:   mins,
		track:  track,
		vals:   vals,
		known:  known,
		nfinal: nfinal,
		mapIdx: missedApproachPoint(nfinal, track),
	}
	r.glidepath(appr.FinalApproachFix())
	r.missed()

	for i := range core.Legs {
		if r.known[i] && math.IsFinite(r.vals[i]) {
			alts[core.Key(i)] = r.vals[i]
		}
	}
	return alts
}

type approachResolver struct {
	legs   []cifp.ApproachLeg
	env    Environment
	opts   Options
	mins   Minimums
	track  legTrack
	vals   []float32
	known  []bool
	nfinal int
	mapIdx int
}

// mapAltitude returns the altitude at the missed approach point: its
// published altitude, else threshold crossing height if it is a runway,
// else the altitude given by the glidepath angle from the final approach
// fix.
func (r *approachResolver) mapAltitude(faf int, angle float32, haveAngle bool) (float32, bool) {
	m := r.mapIdx
	if alt, ok := published(r.legs[m]); ok {
		return alt, true
	}
	if wp, ok := r.env.Waypoint(r.legs[m].WaypointId); ok && wp.Type == cifp.WaypointRunway {
		return r.env.Elevation + r.opts.ThresholdCrossingHeight, true
	}
	if faf != -1 && r.known[faf] && haveAngle {
		d := r.track.along[m] - r.track.along[faf]
		return r.vals[faf] - d*math.NauticalMilesToFeet*math.Tan(math.Radians(angle)), true
	}
	if m < r.nfinal && r.known[m] {
		return r.vals[m], true
	}
	return 0, false
}

// verticalAngle returns the first vertical angle published between the
// final approach fix and the missed approach point.
func (r *approachResolver) verticalAngle(faf int) (float32, bool) {
	if faf == -1 || r.mapIdx == -1 {
		return 0, false
	}
	for i := faf; i <= r.mapIdx; i++ {
		if a := r.legs[i].VerticalAngleDeg; a != nil && *a != 0 {
			return math.Abs(float32(*a)), true
		}
	}
	return 0, false
}

func (r *approachResolver) glidepath(faf int) {
	m := r.mapIdx
	if m == -1 {
		return
	}

	angle, haveAngle := r.verticalAngle(faf)
	mapAlt, ok := r.mapAltitude(faf, angle, haveAngle)
	if !ok {
		return
	}
	r.vals[m], r.known[m] = mapAlt, true

	if faf == -1 || faf >= m || !r.known[faf] {
		return
	}
	along := r.track.along
	span := along[m] - along[faf]
	if span <= 0 {
		return
	}
	fafAlt := r.vals[faf]

	var slope float32 // feet per nm
	if haveAngle {
		slope = math.NauticalMilesToFeet * math.Tan(math.Radians(angle))
	} else {
		slope = (fafAlt - mapAlt) / span
	}

	glide := make([]float32, m-faf-1)
	monotone := true
	prev := fafAlt
	for i := faf + 1; i < m; i++ {
		g := mapAlt + slope*(along[m]-along[i])
		if alt, ok := published(r.legs[i]); ok && alt > g {
			g = alt
		}
		if g > prev {
			monotone = false
		}
		glide[i-faf-1], prev = g, g
	}
	if mapAlt > prev {
		monotone = false
	}

	if !monotone {
		// Straight descent from the FAF to the MAP instead, clamped so
		// that it never climbs.
		prev = fafAlt
		for i := faf + 1; i <= m; i++ {
			t := math.Clamp((along[i]-along[faf])/span, 0, 1)
			alt := min(prev, math.Lerp(t, fafAlt, mapAlt))
			if i < m {
				glide[i-faf-1] = alt
			} else {
				r.vals[m] = alt
			}
			prev = alt
		}
	}

	for i := faf + 1; i < m; i++ {
		r.vals[i], r.known[i] = glide[i-faf-1], true
	}
}

// nextTarget returns the first published altitude at or after leg j that
// is above alt.
func (r *approachResolver) nextTarget(j int, alt float32) (float32, int) {
	for k := j; k < len(r.legs); k++ {
		if p, ok := published(r.legs[k]); ok && p > alt {
			return p, k
		}
	}
	return alt, -1
}

func (r *approachResolver) missed() {
	if r.nfinal == len(r.legs) {
		return
	}
	along := r.track.along

	start, haveStart := float32(0), false
	startAlong := along[r.nfinal]
	if m := r.mapIdx; m != -1 && r.known[m] {
		start, haveStart = r.vals[m], true
		startAlong = along[m]
	}
	if da := r.mins.DecisionAltitude; da > 0 {
		if haveStart {
			start = max(start, da)
		} else {
			start, haveStart = da, true
		}
	}

	first := r.nfinal
	if r.mapIdx == r.nfinal {
		first++
	}

	if !haveStart {
		// Nothing to climb from; interpolate the published missed
		// altitudes but never descend.
		missed := r.legs[r.nfinal:]
		vals, known := interpolate(missed, along[r.nfinal:])
		var prev float32
		havePrev := false
		for i := range missed {
			if !known[i] {
				continue
			}
			if havePrev {
				vals[i] = max(vals[i], prev)
			}
			prev, havePrev = vals[i], true
			r.vals[r.nfinal+i], r.known[r.nfinal+i] = vals[i], true
		}
		return
	}

	prevAlt, prevAlong := start, startAlong
	for j := first; j < len(r.legs); j++ {
		leg := r.legs[j]
		dist := max(0, along[j]-prevAlong)

		var alt float32
		if pub, ok := published(leg); ok && (leg.PathTerminator == "CA" || leg.PathTerminator == "VA") {
			// These legs end when the altitude is reached.
			alt = pub
		} else if target, k := r.nextTarget(j, prevAlt); k == -1 {
			alt = prevAlt
		} else {
			alt = target
			if span := along[k] - prevAlong; span > 0 {
				alt = math.Lerp(math.Clamp(dist/span, 0, 1), prevAlt, target)
			}
			alt = min(alt, r.mins.climb(prevAlt, dist, r.opts.ClimbGradient))
		}
		alt = max(alt, prevAlt)

		r.vals[j], r.known[j] = alt, true
		prevAlt, prevAlong = alt, max(prevAlong, along[j])
	}
}
