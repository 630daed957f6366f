// cifp/classify.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package cifp

import "strings"

// RecordKind identifies the CIFP record types that the parser consumes.
type RecordKind int

const (
	RecordSkip RecordKind = iota
	RecordAirport
	RecordTerminalWaypoint
	RecordRunway
	RecordEnrouteWaypoint
	RecordApproachLeg
)

func (k RecordKind) String() string {
	switch k {
	case RecordSkip:
		return "skip"
	case RecordAirport:
		return "airport"
	case RecordTerminalWaypoint:
		return "terminal waypoint"
	case RecordRunway:
		return "runway"
	case RecordEnrouteWaypoint:
		return "enroute waypoint"
	case RecordApproachLeg:
		return "approach leg"
	default:
		return "unknown"
	}
}

// minRecordLength is the shortest line that is considered at all.
const minRecordLength = 20

// admitted reports whether line is a standard, non-header record.
func admitted(line string) bool {
	return len(line) >= minRecordLength && line[0] == 'S' && recordFields.Section.Byte(line) != 'H'
}

// Classify returns the kind of record held in line, or RecordSkip if the
// line is not one the parser uses.
func Classify(line string) RecordKind {
	if !admitted(line) {
		return RecordSkip
	}

	switch recordFields.Section.Byte(line) {
	case 'D': // VHF and NDB navaids
		return RecordEnrouteWaypoint

	case 'E':
		// Only enroute waypoints; airways and holds reuse the id columns
		// for other things.
		if recordFields.EnrouteSubsection.Byte(line) == 'A' {
			return RecordEnrouteWaypoint
		}
		return RecordSkip

	case 'P': // airports
		switch recordFields.Subsection.Byte(line) {
		case 'A':
			return RecordAirport
		case 'C':
			return RecordTerminalWaypoint
		case 'G':
			return RecordRunway
		case 'F':
			return RecordApproachLeg
		default:
			return RecordSkip
		}

	default:
		return RecordSkip
	}
}

// alwaysRetained reports whether a record is kept regardless of the
// airport filter; procedures may reference fixes defined outside of their
// own airport.
func alwaysRetained(line string) bool {
	switch recordFields.Section.Byte(line) {
	case 'D', 'E':
		return true
	case 'P':
		sub := recordFields.Subsection.Byte(line)
		return sub == 'A' || sub == 'G'
	default:
		return false
	}
}

func airportId(line string) string {
	return strings.TrimSpace(recordFields.Airport.Get(line))
}
