// geometry/approach.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"context"
	"fmt"

	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/math"
	"golang.org/x/sync/errgroup"
)

type TransitionGeometry struct {
	Name     string    `json:"name"`
	Geometry *Geometry `json:"geometry"`
}

// ApproachGeometry is everything needed to draw an approach procedure.
type ApproachGeometry struct {
	AirportId   string               `json:"airportId"`
	ProcedureId string               `json:"procedureId"`
	Transitions []TransitionGeometry `json:"transitions"`
	// Final runs through the missed approach point; Missed continues
	// from there.
	Final     *Geometry     `json:"final"`
	Missed    *Geometry     `json:"missed"`
	Holds     []HoldPattern `json:"holds"`
	Altitudes Altitudes     `json:"altitudes"`
	Bounds    math.Extent2D `json:"-"`
}

// BuildApproach resolves the approach's altitudes and builds the geometry
// of its transitions, its final and missed approach segments, and its
// holds.
func BuildApproach(appr *cifp.Approach, env Environment, mins Minimums, opts Options) *ApproachGeometry {
	ag := &ApproachGeometry{
		AirportId:   appr.AirportId,
		ProcedureId: appr.ProcedureId,
		Altitudes:   ResolveApproach(appr, env, mins, opts),
		Bounds:      math.EmptyExtent2D(),
	}

	pathOpts := opts
	if mins.ClimbGradient > 0 {
		pathOpts.ClimbGradient = mins.ClimbGradient
	}

	for i, tr := range appr.Transitions {
		list := TransitionLegs(appr, i)
		g := BuildPath(list, ag.Altitudes, env, pathOpts, nil)
		ag.Transitions = append(ag.Transitions, TransitionGeometry{Name: tr.Name, Geometry: g})
		ag.addHolds(list, env, opts)
		ag.extend(g.Bounds)
	}

	core := CoreLegs(appr)
	split := len(appr.FinalLegs)
	if split < len(core.Legs) {
		if _, ok := env.Fix(core.Legs[split].WaypointId); ok {
			split++
		}
	}
	final, missed := core, core
	final.Legs, missed.Legs = core.Legs[:split], core.Legs[split:]

	ag.Final = BuildPath(final, ag.Altitudes, env, pathOpts, nil)
	ag.Missed = BuildPath(missed, ag.Altitudes, env, pathOpts, missedStart(ag.Final.End, mins))
	ag.extend(ag.Final.Bounds)
	ag.extend(ag.Missed.Bounds)
	ag.addHolds(core, env, opts)

	for _, h := range ag.Holds {
		for _, seg := range h.Path.Segments {
			ag.Bounds = math.Union(math.Union(ag.Bounds, seg.P0), seg.P1)
		}
	}

	return ag
}

// missedStart is where the missed approach begins: the end of the final
// segment, raised to the decision altitude. The go-around starts there,
// not at the glidepath altitude over the missed approach point.
func missedStart(end *StartState, mins Minimums) *StartState {
	if end == nil || mins.DecisionAltitude <= end.Altitude {
		return end
	}
	s := *end
	s.Altitude = mins.DecisionAltitude
	return &s
}

func (ag *ApproachGeometry) extend(e math.Extent2D) {
	if !e.IsEmpty() {
		ag.Bounds = math.Union(math.Union(ag.Bounds, e.P0), e.P1)
	}
}

// addHolds adds the holding patterns for the hold legs in list. Holds are
// drawn at their published altitude, or else at the resolved one.
func (ag *ApproachGeometry) addHolds(list LegList, env Environment, opts Options) {
	for i, leg := range list.Legs {
		if !leg.IsHold() {
			continue
		}
		alt, ok := published(leg)
		if !ok {
			if alt, ok = ag.Altitudes.Get(list, i); !ok {
				alt = env.Elevation
			}
		}
		if h, ok := BuildHold(leg, alt, env, opts); ok {
			h.Leg = i
			ag.Holds = append(ag.Holds, h)
		}
	}
}

// BuildAll builds geometry for all of the given approaches, running up to
// limit builds concurrently. envFor provides the environment for an
// airport and mins the minimums for an approach; mins may be nil.
func BuildAll(ctx context.Context, approaches []*cifp.Approach, envFor func(airport string) (Environment, error),
	mins func(*cifp.Approach) Minimums, opts Options, limit int) ([]*ApproachGeometry, error) {
	result := make([]*ApproachGeometry, len(approaches))

	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, appr := range approaches {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			env, err := envFor(appr.AirportId)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", appr.AirportId, appr.ProcedureId, err)
			}
			var m Minimums
			if mins != nil {
				m = mins(appr)
			}
			result[i] = BuildApproach(appr, env, m, opts)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
