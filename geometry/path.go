// geometry/path.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"github.com/mmp/approachviz/math"
)

// Path is a piecewise curve of line segments and circular arcs in the
// local nm frame. Segments are ordered in the direction of flight.
type Path struct {
	Segments []PathSegment `json:"segments"`
	Length   float32       `json:"length"`
}

type PathSegment struct {
	P0, P1    [2]float32 // start/end in nm
	Arc       *PathArc   // nil for straight segments
	StartDist float32    // cumulative distance at segment start
	Length    float32
	// Altitudes in feet at P0 and P1; altitude varies linearly with
	// distance along the segment.
	Alt0, Alt1 float32
	// Index of the leg that the segment belongs to.
	Leg int
}

type PathArc struct {
	Center     [2]float32
	Radius     float32
	StartAngle float32 // angle from center to P0 (radians)
	Sweep      float32 // signed: positive=CCW, negative=CW
}

// pointOnArc returns the point on the circle at the given angle.
func (a PathArc) pointOnArc(angle float32) [2]float32 {
	return [2]float32{a.Center[0] + a.Radius*math.Cos(angle), a.Center[1] + a.Radius*math.Sin(angle)}
}

func (path *Path) append(seg PathSegment) {
	seg.StartDist = path.Length
	path.Segments = append(path.Segments, seg)
	path.Length += seg.Length
}

func (path *Path) addLine(p0, p1 [2]float32, leg int) {
	l := math.Distance2f(p0, p1)
	if l < 1e-4 {
		return
	}
	path.append(PathSegment{P0: p0, P1: p1, Length: l, Leg: leg})
}

func (path *Path) addArc(arc PathArc, leg int) {
	l := arc.Radius * math.Abs(arc.Sweep)
	if l < 1e-4 || !math.IsFinite(l) {
		return
	}
	path.append(PathSegment{
		P0:     arc.pointOnArc(arc.StartAngle),
		P1:     arc.pointOnArc(arc.StartAngle + arc.Sweep),
		Arc:    &arc,
		Length: l,
		Leg:    leg,
	})
}

// EndHeading returns the true heading at the end of the path.
func (path *Path) EndHeading() (float32, bool) {
	if len(path.Segments) == 0 {
		return 0, false
	}
	seg := path.Segments[len(path.Segments)-1]
	return segmentHeadingAt(seg, seg.Length), true
}

// PointAtDistance returns the point and heading at a given distance along
// the path. Distances outside the path are clamped to its ends.
func (path *Path) PointAtDistance(dist float32) (point [2]float32, heading float32) {
	if len(path.Segments) == 0 {
		return [2]float32{}, 0
	}

	dist = math.Clamp(dist, 0, path.Length)
	for _, seg := range path.Segments {
		if dist <= seg.StartDist+seg.Length {
			localDist := dist - seg.StartDist
			return pointOnSegmentAtDist(seg, localDist), segmentHeadingAt(seg, localDist)
		}
	}

	seg := path.Segments[len(path.Segments)-1]
	return seg.P1, segmentHeadingAt(seg, seg.Length)
}

// Sample returns points along the path with their altitudes. Arcs are
// sampled every arcStep degrees and lines every lineStep nm; segment
// endpoints are always included.
func (path *Path) Sample(arcStep, lineStep float32) (pts [][2]float32, alts []float32) {
	for i, seg := range path.Segments {
		if i == 0 || math.Distance2f(seg.P0, pts[len(pts)-1]) > 1e-3 {
			pts = append(pts, seg.P0)
			alts = append(alts, seg.Alt0)
		}

		steps := 1
		if seg.Arc != nil && arcStep > 0 {
			steps = max(1, int(math.Ceil(math.Abs(math.Degrees(seg.Arc.Sweep))/arcStep)))
		} else if seg.Arc == nil && lineStep > 0 {
			steps = max(1, int(math.Ceil(seg.Length/lineStep)))
		}
		for s := 1; s <= steps; s++ {
			t := float32(s) / float32(steps)
			if s == steps {
				pts = append(pts, seg.P1)
			} else {
				pts = append(pts, pointOnSegmentAtDist(seg, t*seg.Length))
			}
			alts = append(alts, math.Lerp(t, seg.Alt0, seg.Alt1))
		}
	}
	return
}

// pointOnSegmentAtDist returns the point on a segment at the given local distance.
func pointOnSegmentAtDist(seg PathSegment, dist float32) [2]float32 {
	if seg.Length < 1e-6 {
		return seg.P0
	}
	t := dist / seg.Length
	if seg.Arc != nil {
		return seg.Arc.pointOnArc(seg.Arc.StartAngle + seg.Arc.Sweep*t)
	}
	return math.Lerp2f(t, seg.P0, seg.P1)
}

// segmentHeadingAt returns the heading at a given local distance along a segment.
func segmentHeadingAt(seg PathSegment, dist float32) float32 {
	if seg.Arc != nil {
		t := float32(0)
		if seg.Length > 0 {
			t = dist / seg.Length
		}
		return arcTangentHeading(seg.Arc.StartAngle+seg.Arc.Sweep*t, seg.Arc.Sweep < 0)
	}
	return math.VectorHeading(math.Sub2f(seg.P1, seg.P0))
}

// arcTangentHeading returns the direction of travel at the point of a
// circle at the given angle (radians, CCW from +x).
func arcTangentHeading(angle float32, clockwise bool) float32 {
	// Tangent is 90 degrees behind the radial for clockwise travel and
	// 90 degrees ahead of it otherwise.
	if clockwise {
		angle -= math.Pi() / 2
	} else {
		angle += math.Pi() / 2
	}
	return math.VectorHeading([2]float32{math.Cos(angle), math.Sin(angle)})
}

// angleOf returns the math angle of the vector from c to p.
func angleOf(c, p [2]float32) float32 {
	d := math.Sub2f(p, c)
	return math.Atan2(d[1], d[0])
}

// sweepTo returns the signed sweep from angle a0 to a1 going clockwise or
// counter-clockwise, with magnitude in [0, 2pi).
func sweepTo(a0, a1 float32, clockwise bool) float32 {
	twoPi := 2 * math.Pi()
	if clockwise {
		return -math.Mod(math.Mod(a0-a1, twoPi)+twoPi, twoPi)
	}
	return math.Mod(math.Mod(a1-a0, twoPi)+twoPi, twoPi)
}
