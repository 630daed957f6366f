// cifp/parse.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package cifp

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/mmp/approachviz/log"
	"github.com/mmp/approachviz/util"
)

type ParseOptions struct {
	// Airport, if non-empty, restricts terminal waypoints and approaches
	// to those of the given airport. Airport, runway and enroute records
	// are always kept.
	Airport string
	Logger  *log.Logger
}

// Stats summarizes a parse.
type Stats struct {
	Lines                 int
	Admitted              int
	Filtered              int
	Records               map[RecordKind]int
	ContinuationsApplied  int
	ContinuationsOrphaned int
	Duration              time.Duration
	// Problems holds notes about records that were decoded with missing
	// or fallback values; none of them stop the parse.
	Problems *util.ErrorLogger `msgpack:"-"`
}

type admittedLine struct {
	kind   RecordKind
	line   string
	lineno int
}

// legRef locates a leg in the procedure being built; transition is -1 for
// the core leg list.
type legRef struct {
	approach, transition, leg int
}

type approachBuilder struct {
	approach Approach
	core     []ApproachLeg
}

type parser struct {
	opts       ParseOptions
	result     *Result
	approaches []*approachBuilder
	// airport|procedure -> index in approaches
	approachIndex map[string]int
	// LegKey -> leg, for continuation records
	legIndex map[string]legRef
	problems *util.ErrorLogger
}

// ParseString parses CIFP records held in a string; since reading from a
// string cannot fail, no error is returned.
func ParseString(s string, opts ParseOptions) *Result {
	r, _ := Parse(strings.NewReader(s), opts)
	return r
}

// Parse reads CIFP records from r and returns the airports, waypoints,
// runway thresholds and approach procedures they describe. Malformed or
// unknown records are skipped; the only errors returned come from r.
func Parse(r io.Reader, opts ParseOptions) (*Result, error) {
	start := time.Now()

	p := &parser{
		opts: opts,
		result: &Result{
			Airports:  make(map[string]Airport),
			Waypoints: make(map[string]Waypoint),
			Runways:   make(map[string][]RunwayThreshold),
			Stats:     Stats{Records: make(map[RecordKind]int)},
		},
		approachIndex: make(map[string]int),
		legIndex:      make(map[string]legRef),
		problems:      &util.ErrorLogger{},
	}
	stats := &p.result.Stats
	stats.Problems = p.problems

	var recs []admittedLine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256), 1<<20)
	for sc.Scan() {
		stats.Lines++
		line := strings.TrimRight(sc.Text(), "\r")

		kind := Classify(line)
		if kind == RecordSkip {
			continue
		}
		stats.Admitted++

		if opts.Airport != "" && !alwaysRetained(line) && airportId(line) != opts.Airport {
			stats.Filtered++
			continue
		}

		stats.Records[kind]++
		recs = append(recs, admittedLine{kind: kind, line: line, lineno: stats.Lines})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading CIFP: %w", err)
	}

	// Pass 1: airports, fixes and runways, so that legs can be resolved
	// against them regardless of the order of the records.
	for _, rec := range recs {
		p.problems.Push(fmt.Sprintf("line %d", rec.lineno))
		switch rec.kind {
		case RecordAirport:
			p.parseAirport(rec.line)
		case RecordTerminalWaypoint:
			p.parseTerminalWaypoint(rec.line)
		case RecordRunway:
			p.parseRunway(rec.line)
		case RecordEnrouteWaypoint:
			p.parseEnrouteWaypoint(rec.line)
		}
		p.problems.Pop()
	}

	// Pass 2: approach legs.
	for _, rec := range recs {
		if rec.kind == RecordApproachLeg {
			p.problems.Push(fmt.Sprintf("line %d", rec.lineno))
			p.parseLeg(rec.line)
			p.problems.Pop()
		}
	}

	for _, ab := range p.approaches {
		p.result.Approaches = append(p.result.Approaches, ab.finish())
	}

	stats.Duration = time.Since(start)
	if lg := opts.Logger; lg != nil {
		for _, msg := range p.problems.Errors() {
			lg.Debug("CIFP record", "problem", msg)
		}
		lg.Info("Parsed CIFP",
			"lines", stats.Lines,
			"airports", len(p.result.Airports),
			"waypoints", len(p.result.Waypoints),
			"approaches", len(p.result.Approaches),
			"problems", len(p.problems.Errors()),
			"duration", stats.Duration)
	}

	return p.result, nil
}

func trimmed(f Field, line string) string {
	return strings.TrimSpace(f.Get(line))
}

// validDMS reports whether the latitude and longitude fields look like
// DMS coordinates; DecodeDMS returns 0 for anything else.
func validDMS(lat, lon string) bool {
	ok := func(s string, n int, hemispheres string) bool {
		return len(s) == n && strings.IndexByte(hemispheres, s[0]) != -1 &&
			strings.Trim(s[1:], "0123456789") == ""
	}
	return ok(lat, 9, "NS") && ok(lon, 10, "EW")
}

func (p *parser) decodeLocation(line string, latField, lonField Field) (float64, float64) {
	lat, lon := latField.Get(line), lonField.Get(line)
	if !validDMS(lat, lon) {
		p.problems.ErrorString("unable to decode coordinates %q %q", lat, lon)
	}
	return DecodeDMS(lat), DecodeDMS(lon)
}

func (p *parser) parseAirport(line string) {
	if recordFields.Continuation.Byte(line) != '0' {
		return
	}

	id := airportId(line)
	elevation, ok := DecodeInt(airportFields.Elevation.Get(line))
	if !ok {
		p.problems.ErrorString("%s: invalid elevation %q", id, airportFields.Elevation.Get(line))
		elevation = 0
	}
	lat, lon := p.decodeLocation(line, airportFields.Lat, airportFields.Lon)

	p.result.Airports[id] = Airport{
		Id:        id,
		Name:      trimmed(airportFields.Name, line),
		Lat:       lat,
		Lon:       lon,
		Elevation: elevation,
		MagVar:    DecodeMagVar(airportFields.MagVar.Get(line)),
	}
}

func (p *parser) parseTerminalWaypoint(line string) {
	apt, id := airportId(line), trimmed(fixFields.Id, line)
	if id == "" {
		return
	}

	lat, lon := p.decodeLocation(line, fixFields.Lat, fixFields.Lon)
	key := apt + "_" + id
	p.result.Waypoints[key] = Waypoint{
		Id:   key,
		Name: trimmed(fixFields.TerminalName, line),
		Lat:  lat,
		Lon:  lon,
		Type: WaypointTerminal,
	}
}

func (p *parser) parseRunway(line string) {
	if recordFields.Continuation.Byte(line) != '0' {
		return
	}
	apt, id := airportId(line), trimmed(fixFields.Id, line)
	if id == "" {
		return
	}

	lat, lon := p.decodeLocation(line, fixFields.Lat, fixFields.Lon)
	key := apt + "_" + id
	p.result.Waypoints[key] = Waypoint{Id: key, Name: id, Lat: lat, Lon: lon, Type: WaypointRunway}

	if !slices.ContainsFunc(p.result.Runways[apt], func(r RunwayThreshold) bool { return r.Id == id }) {
		p.result.Runways[apt] = append(p.result.Runways[apt], RunwayThreshold{Id: id, Lat: lat, Lon: lon})
	}
}

func (p *parser) parseEnrouteWaypoint(line string) {
	id := trimmed(fixFields.Id, line)
	if id == "" {
		return
	}
	if _, ok := p.result.Waypoints[id]; ok {
		// First one wins
		return
	}

	latField, lonField := fixFields.Lat, fixFields.Lon
	nameField := fixFields.EnrouteName
	if recordFields.Section.Byte(line) == 'D' {
		nameField = fixFields.NavaidName
		if strings.TrimSpace(latField.Get(line)+lonField.Get(line)) == "" {
			// DME-only navaids are located by their DME fields.
			latField, lonField = fixFields.DMELat, fixFields.DMELon
		}
	}

	lat, lon := p.decodeLocation(line, latField, lonField)
	p.result.Waypoints[id] = Waypoint{
		Id:   id,
		Name: trimmed(nameField, line),
		Lat:  lat,
		Lon:  lon,
		Type: WaypointEnroute,
	}
}

// resolveFix returns the waypoint table id for a fix referenced by a
// procedure at the given airport: the airport's own fix if there is one
// and otherwise the bare id.
func (p *parser) resolveFix(apt, id string) string {
	if id == "" {
		return ""
	}
	if _, ok := p.result.Waypoints[apt+"_"+id]; ok {
		return apt + "_" + id
	}
	return id
}

var reVerticalAngle = regexp.MustCompile(`^-\d{3}$`)

func (p *parser) parseLeg(line string) {
	apt := airportId(line)
	proc := trimmed(legFields.ProcedureId, line)
	if proc == "" {
		p.problems.ErrorString("%s: approach record without procedure id", apt)
		return
	}
	trans := trimmed(legFields.TransitionId, line)
	seq, _ := DecodeInt(legFields.Sequence.Get(line))
	wpName := trimmed(legFields.WaypointId, line)
	key := LegKey(apt, proc, trans, seq, wpName)

	pt := trimmed(legFields.PathTerminator, line)
	if pt == "" {
		p.parseContinuation(line, key)
		return
	}

	d1, d2, d3 := legFields.Descriptor1.Byte(line), legFields.Descriptor2.Byte(line), legFields.Descriptor3.Byte(line)
	leg := ApproachLeg{
		Sequence:           seq,
		WaypointId:         p.resolveFix(apt, wpName),
		WaypointName:       wpName,
		PathTerminator:     pt,
		IsInitialFix:       d2 == 'I' && d3 == 'F',
		IsFinalApproachFix: d2 == 'F',
		IsMissedApproach:   d1 == 'M' || d2 == 'M',
		IsFinalFix:         d3 == 'E',
	}
	if d3 != ' ' {
		leg.TurnDirection = string(d3)
	}

	if v, ok := DecodeTenths(legFields.Course.Get(line)); ok {
		leg.Course = &v
	}
	dist := legFields.Distance.Get(line)
	if v, ok := DecodeTenths(dist); ok {
		leg.Distance = &v
	}

	p.decodeLegAltitude(line, &leg)

	if v, ok := DecodeInt(legFields.SpeedLimit.Get(line)); ok && v > 0 {
		leg.SpeedLimit = &v
	}
	if va := legFields.VerticalAngle.Get(line); reVerticalAngle.MatchString(va) {
		if v, ok := DecodeHundredths(va); ok {
			leg.VerticalAngleDeg = &v
		}
	}

	lr := turnLR(d3)
	if leg.IsHold() {
		leg.HoldCourse = leg.Course
		leg.HoldDistance = leg.Distance
		leg.HoldTurnDirection = lr
		if strings.HasPrefix(dist, "T") {
			if v, ok := DecodeTenths(dist[1:]); ok {
				leg.HoldTimeMinutes = &v
			}
		}
	}
	if leg.IsArc() {
		center := legFields.ArcCenterRF
		if pt == "AF" {
			center = legFields.ArcCenterAF
		}
		leg.RFCenterWaypointId = p.resolveFix(apt, trimmed(center, line))
		leg.RFTurnDirection = lr
	}

	ab, ai := p.builderFor(apt, proc)
	ref := legRef{approach: ai, transition: -1}
	if trans != "" && trans != "L" && trans != "R" {
		ti := slices.IndexFunc(ab.approach.Transitions, func(t Transition) bool { return t.Name == trans })
		if ti == -1 {
			ab.approach.Transitions = append(ab.approach.Transitions, Transition{Name: trans})
			ti = len(ab.approach.Transitions) - 1
		}
		tr := &ab.approach.Transitions[ti]
		tr.Legs = append(tr.Legs, leg)
		ref.transition, ref.leg = ti, len(tr.Legs)-1
	} else {
		ab.core = append(ab.core, leg)
		ref.leg = len(ab.core) - 1
	}
	p.legIndex[key] = ref
}

func turnLR(b byte) string {
	if b == 'L' || b == 'R' {
		return string(b)
	}
	return ""
}

func (p *parser) decodeLegAltitude(line string, leg *ApproachLeg) {
	field := legFields.Altitude.Get(line)
	alt, ok := DecodeAltitude(field)
	if !ok {
		return
	}

	if alt.Constraint == AltitudeAt {
		switch legFields.AltitudeDescription.Byte(line) {
		case '+':
			alt.Constraint = AltitudeAbove
		case '-':
			alt.Constraint = AltitudeBelow
		case 'B':
			if lower, ok := DecodeAltitude(legFields.Altitude2.Get(line)); ok {
				alt.Constraint = AltitudeBetween
				leg.AltitudeLower = &lower.Feet
			}
		}
	}

	leg.Altitude = &alt.Feet
	leg.AltitudeConstraint = alt.Constraint
}

// parseContinuation handles continuation records; only RNP service
// levels (continuation 2, application type W) are used.
func (p *parser) parseContinuation(line, key string) {
	if legFields.Continuation.Byte(line) != '2' || legFields.ApplicationType.Byte(line) != 'W' {
		return
	}

	var levels []float64
	for _, f := range rnpSlotFields {
		slot := f.Get(line)
		if len(slot) != 4 || slot[0] != 'A' {
			continue
		}
		if digits := slot[1:]; strings.Trim(digits, "0123456789") == "" {
			if v, ok := DecodeHundredths(digits); ok {
				levels = append(levels, v)
			}
		}
	}
	if len(levels) == 0 {
		return
	}

	ref, ok := p.legIndex[key]
	if !ok {
		p.result.Stats.ContinuationsOrphaned++
		p.problems.ErrorString("%s: continuation record without a leg", key)
		return
	}

	ab := p.approaches[ref.approach]
	if ref.transition == -1 {
		ab.core[ref.leg].RNPServiceLevels = levels
	} else {
		ab.approach.Transitions[ref.transition].Legs[ref.leg].RNPServiceLevels = levels
	}
	p.result.Stats.ContinuationsApplied++
}

func (p *parser) builderFor(apt, proc string) (*approachBuilder, int) {
	key := apt + "|" + proc
	if i, ok := p.approachIndex[key]; ok {
		return p.approaches[i], i
	}

	ab := &approachBuilder{
		approach: Approach{
			AirportId:   apt,
			ProcedureId: proc,
			Type:        ProcedureType(proc),
			Runway:      ProcedureRunway(proc),
		},
	}
	p.approaches = append(p.approaches, ab)
	p.approachIndex[key] = len(p.approaches) - 1
	return ab, len(p.approaches) - 1
}

// finish sorts the legs and splits the core legs into the final and
// missed approach segments.
func (ab *approachBuilder) finish() Approach {
	bySequence := func(a, b ApproachLeg) int { return a.Sequence - b.Sequence }

	slices.SortStableFunc(ab.core, bySequence)
	for i := range ab.approach.Transitions {
		slices.SortStableFunc(ab.approach.Transitions[i].Legs, bySequence)
	}

	split := slices.IndexFunc(ab.core, func(l ApproachLeg) bool { return l.IsMissedApproach })
	if split == -1 {
		split = len(ab.core)
	}

	a := ab.approach
	a.FinalLegs = ab.core[:split:split]
	a.MissedLegs = ab.core[split:]
	for i := range a.FinalLegs {
		a.FinalLegs[i].IsMissedApproach = false
	}
	for i := range a.MissedLegs {
		a.MissedLegs[i].IsMissedApproach = true
	}
	if len(a.MissedLegs) == 0 {
		a.MissedLegs = nil
	}
	if len(a.FinalLegs) == 0 {
		a.FinalLegs = nil
	}
	return a
}
