// cifp/model.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package cifp

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/brunoga/deep"
	"github.com/mmp/approachviz/util"
)

type WaypointType string

const (
	WaypointTerminal WaypointType = "terminal"
	WaypointEnroute  WaypointType = "enroute"
	WaypointRunway   WaypointType = "runway"
)

// Waypoint is a fix from the CIFP. Terminal and runway waypoints have ids
// of the form "<airport>_<fix>"; enroute waypoints use the bare fix id.
type Waypoint struct {
	Id   string       `json:"id"`
	Name string       `json:"name"`
	Lat  float64      `json:"lat"`
	Lon  float64      `json:"lon"`
	Type WaypointType `json:"type"`
}

type Airport struct {
	Id        string  `json:"id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Elevation int     `json:"elevation"` // feet
	MagVar    float64 `json:"magVar"`    // degrees, positive east
}

type RunwayThreshold struct {
	Id  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ApproachLeg is a single leg of an approach procedure. Optional values
// are nil (or "") when the corresponding field is blank or malformed.
type ApproachLeg struct {
	Sequence       int    `json:"sequence"`
	WaypointId     string `json:"waypointId,omitempty"`
	WaypointName   string `json:"waypointName,omitempty"`
	PathTerminator string `json:"pathTerminator"`

	Altitude           *int               `json:"altitude,omitempty"`
	AltitudeConstraint AltitudeConstraint `json:"altitudeConstraint,omitempty"`
	// Lower bound of a "between" constraint; Altitude is the upper.
	AltitudeLower *int `json:"altitudeLower,omitempty"`

	Course   *float64 `json:"course,omitempty"`   // magnetic degrees
	Distance *float64 `json:"distance,omitempty"` // nm

	HoldCourse        *float64 `json:"holdCourse,omitempty"`
	HoldDistance      *float64 `json:"holdDistance,omitempty"`
	HoldTimeMinutes   *float64 `json:"holdTimeMinutes,omitempty"`
	HoldTurnDirection string   `json:"holdTurnDirection,omitempty"`

	RFCenterWaypointId string `json:"rfCenterWaypointId,omitempty"`
	RFTurnDirection    string `json:"rfTurnDirection,omitempty"`

	TurnDirection    string    `json:"turnDirection,omitempty"`
	VerticalAngleDeg *float64  `json:"verticalAngleDeg,omitempty"`
	SpeedLimit       *int      `json:"speedLimit,omitempty"` // knots
	RNPServiceLevels []float64 `json:"rnpServiceLevels,omitempty"`

	IsFinalApproachFix bool `json:"isFinalApproachFix"`
	IsInitialFix       bool `json:"isInitialFix"`
	IsFinalFix         bool `json:"isFinalFix"`
	IsMissedApproach   bool `json:"isMissedApproach"`
}

// IsHold reports whether the leg is one of the holding leg types (HA, HF,
// HM).
func (l ApproachLeg) IsHold() bool {
	return strings.HasPrefix(l.PathTerminator, "H")
}

// IsArc reports whether the leg is a constant radius arc (RF) or DME arc
// (AF).
func (l ApproachLeg) IsArc() bool {
	return l.PathTerminator == "RF" || l.PathTerminator == "AF"
}

func (l ApproachLeg) String() string {
	s := strconv.Itoa(l.Sequence) + " " + l.PathTerminator
	if l.WaypointName != "" {
		s += " " + l.WaypointName
	}
	if l.Altitude != nil {
		s += fmt.Sprintf(" %s%d", l.AltitudeConstraint, *l.Altitude)
	}
	return s
}

// LegKey returns the composite key that identifies a leg across
// serialization boundaries.
func LegKey(airport, procedure, transition string, sequence int, waypointName string) string {
	return airport + "|" + procedure + "|" + transition + "|" + strconv.Itoa(sequence) + "|" + waypointName
}

// Transition is a named entry route into an approach's final segment.
type Transition struct {
	Name string
	Legs []ApproachLeg
}

// Transitions holds an approach's transitions in the order in which they
// first appear in the source data. It is serialized to JSON as an array
// of [name, legs] pairs.
type Transitions []Transition

// Get returns the legs of the named transition.
func (t Transitions) Get(name string) ([]ApproachLeg, bool) {
	if i := t.index(name); i != -1 {
		return t[i].Legs, true
	}
	return nil, false
}

func (t Transitions) index(name string) int {
	return slices.IndexFunc(t, func(tr Transition) bool { return tr.Name == name })
}

func (t Transitions) Names() []string {
	names := make([]string, len(t))
	for i, tr := range t {
		names[i] = tr.Name
	}
	return names
}

func (t Transitions) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(t))
	for i, tr := range t {
		legs := tr.Legs
		if legs == nil {
			legs = []ApproachLeg{}
		}
		pairs[i] = [2]any{tr.Name, legs}
	}
	return json.Marshal(pairs)
}

func (t *Transitions) UnmarshalJSON(b []byte) error {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(b, &pairs); err != nil {
		return err
	}

	*t = nil
	for _, p := range pairs {
		var tr Transition
		if err := json.Unmarshal(p[0], &tr.Name); err != nil {
			return fmt.Errorf("transition name: %w", err)
		}
		if err := json.Unmarshal(p[1], &tr.Legs); err != nil {
			return fmt.Errorf("%s: %w", tr.Name, err)
		}
		if t.index(tr.Name) != -1 {
			return fmt.Errorf("%s: repeated transition", tr.Name)
		}
		*t = append(*t, tr)
	}
	return nil
}

type Approach struct {
	AirportId   string        `json:"airportId"`
	ProcedureId string        `json:"procedureId"`
	Type        string        `json:"type"`
	Runway      string        `json:"runway"`
	Transitions Transitions   `json:"transitions"`
	FinalLegs   []ApproachLeg `json:"finalLegs"`
	MissedLegs  []ApproachLeg `json:"missedLegs"`
}

// Clone returns a deep copy of the approach.
func (a *Approach) Clone() *Approach {
	return deep.MustCopy(a)
}

// FinalApproachFix returns the index in FinalLegs of the first leg
// flagged as the final approach fix, or -1.
func (a *Approach) FinalApproachFix() int {
	return util.FindIndex(a.FinalLegs, func(l ApproachLeg) bool { return l.IsFinalApproachFix })
}

// ReferencedWaypoints returns the sorted ids of all waypoints referenced
// by the approach's legs, including arc centers.
func (a *Approach) ReferencedWaypoints() []string {
	ids := make(map[string]struct{})
	add := func(legs []ApproachLeg) {
		for _, l := range legs {
			if l.WaypointId != "" {
				ids[l.WaypointId] = struct{}{}
			}
			if l.RFCenterWaypointId != "" {
				ids[l.RFCenterWaypointId] = struct{}{}
			}
		}
	}
	add(a.FinalLegs)
	add(a.MissedLegs)
	for _, tr := range a.Transitions {
		add(tr.Legs)
	}

	s := make([]string, 0, len(ids))
	for id := range ids {
		s = append(s, id)
	}
	slices.Sort(s)
	return s
}

// Result is the output of parsing a CIFP file.
type Result struct {
	Airports   map[string]Airport
	Waypoints  map[string]Waypoint
	Approaches []Approach
	Runways    map[string][]RunwayThreshold
	Stats      Stats
}

// Approach returns the approach with the given airport and procedure ids.
func (r *Result) Approach(airport, procedure string) (*Approach, bool) {
	for i := range r.Approaches {
		if a := &r.Approaches[i]; a.AirportId == airport && a.ProcedureId == procedure {
			return a, true
		}
	}
	return nil, false
}

type resultJSON struct {
	Airports   map[string]Airport           `json:"airports"`
	Waypoints  []Waypoint                   `json:"waypoints"`
	Approaches []Approach                   `json:"approaches"`
	Runways    map[string][]RunwayThreshold `json:"runways"`
}

// MarshalJSON flattens the waypoint table to an array sorted by id.
func (r Result) MarshalJSON() ([]byte, error) {
	wps := make([]Waypoint, 0, len(r.Waypoints))
	for _, id := range util.SortedMapKeys(r.Waypoints) {
		wps = append(wps, r.Waypoints[id])
	}
	return json.Marshal(resultJSON{
		Airports:   r.Airports,
		Waypoints:  wps,
		Approaches: r.Approaches,
		Runways:    r.Runways,
	})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var rj resultJSON
	if err := json.Unmarshal(b, &rj); err != nil {
		return err
	}

	*r = Result{
		Airports:   rj.Airports,
		Waypoints:  make(map[string]Waypoint, len(rj.Waypoints)),
		Approaches: rj.Approaches,
		Runways:    rj.Runways,
	}
	if r.Airports == nil {
		r.Airports = make(map[string]Airport)
	}
	if r.Runways == nil {
		r.Runways = make(map[string][]RunwayThreshold)
	}
	for _, wp := range rj.Waypoints {
		r.Waypoints[wp.Id] = wp
	}
	return nil
}
