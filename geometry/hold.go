// geometry/hold.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/math"
)

// HoldPattern is the racetrack flown by a holding leg.
type HoldPattern struct {
	Leg           int     `json:"leg"`
	Fix           string  `json:"fix"`
	InboundCourse float32 `json:"inboundCourse"` // true
	TurnRight     bool    `json:"turnRight"`
	LegLength     float32 `json:"legLength"` // nm
	Radius        float32 `json:"radius"`    // nm
	Altitude      float32 `json:"altitude"`
	Path          Path    `json:"path"`
	Curve         []Vec3  `json:"curve"`
}

// HoldSpeed returns the holding speed in knots at the given altitude:
// the published speed limit if there is one and otherwise the standard
// maximum holding speed.
func HoldSpeed(leg cifp.ApproachLeg, alt float32) float32 {
	if leg.SpeedLimit != nil && *leg.SpeedLimit > 0 {
		return float32(*leg.SpeedLimit)
	} else if alt <= 6000 {
		return 200
	} else if alt <= 14000 {
		return 230
	} else {
		return 265
	}
}

// BuildHold returns the holding pattern for a hold leg at the given
// altitude. It returns false if the leg isn't a hold or if its fix or
// course is unknown.
func BuildHold(leg cifp.ApproachLeg, altitude float32, env Environment, opts Options) (HoldPattern, bool) {
	if !leg.IsHold() {
		return HoldPattern{}, false
	}
	fix, ok := env.Fix(leg.WaypointId)
	if !ok {
		return HoldPattern{}, false
	}
	course := leg.HoldCourse
	if course == nil {
		course = leg.Course
	}
	if course == nil {
		return HoldPattern{}, false
	}

	speed := HoldSpeed(leg, altitude)
	length := float32(0)
	if leg.HoldDistance != nil && *leg.HoldDistance > 0 {
		length = float32(*leg.HoldDistance)
	} else {
		minutes := opts.HoldMinutes
		if leg.HoldTimeMinutes != nil && *leg.HoldTimeMinutes > 0 {
			minutes = float32(*leg.HoldTimeMinutes)
		}
		length = speed * minutes / 60
	}

	h := HoldPattern{
		Fix:           leg.WaypointId,
		InboundCourse: env.TrueCourse(float32(*course)),
		TurnRight:     leg.HoldTurnDirection != "L",
		LegLength:     length,
		// Standard rate turn: 180 degrees in one minute.
		Radius:   speed / (60 * math.Pi()),
		Altitude: altitude,
	}

	// Turn outbound at the fix, fly the outbound leg, turn inbound, and
	// fly the inbound leg back to the fix.
	inbound := math.HeadingVector(h.InboundCourse)
	side := perpendicular(h.InboundCourse, h.TurnRight)
	outboundStart := math.Add2f(fix, math.Scale2f(side, 2*h.Radius))
	outboundEnd := math.Sub2f(outboundStart, math.Scale2f(inbound, h.LegLength))
	inboundStart := math.Sub2f(fix, math.Scale2f(inbound, h.LegLength))

	outbound := math.OppositeHeading(h.InboundCourse)
	h.Path.addArc(turnArc(fix, h.InboundCourse, outbound, h.Radius, h.TurnRight), 0)
	h.Path.addLine(outboundStart, outboundEnd, 0)
	h.Path.addArc(turnArc(outboundEnd, outbound, h.InboundCourse, h.Radius, h.TurnRight), 0)
	h.Path.addLine(inboundStart, fix, 0)
	for i := range h.Path.Segments {
		h.Path.Segments[i].Alt0, h.Path.Segments[i].Alt1 = altitude, altitude
	}

	pts, _ := h.Path.Sample(opts.ArcStep, opts.LineStep)
	for _, p := range pts {
		y := altitude * opts.VerticalScale
		if !math.IsFinite(y) {
			y = 0
		}
		h.Curve = append(h.Curve, Vec3{p[0], y, p[1]})
	}
	return h, true
}
