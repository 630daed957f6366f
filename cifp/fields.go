// cifp/fields.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package cifp

// Field is a half-open [Start,End) byte range in a fixed-width ARINC 424
// record.
type Field struct {
	Start, End int
}

// Get returns the field's bytes from line. Lines that are too short
// yield whatever part of the field is present, possibly "".
func (f Field) Get(line string) string {
	if f.Start >= len(line) {
		return ""
	}
	return line[f.Start:min(f.End, len(line))]
}

// Byte returns the first byte of the field or ' ' if the line is too
// short to hold it.
func (f Field) Byte(line string) byte {
	if f.Start >= len(line) {
		return ' '
	}
	return line[f.Start]
}

// Offsets shared by all record types.
var recordFields = struct {
	RecordType, Section, Airport, Subsection, Continuation Field
	EnrouteSubsection                                      Field
}{
	RecordType:        Field{0, 1},
	Section:           Field{4, 5},
	EnrouteSubsection: Field{5, 6},
	Airport:           Field{6, 10},
	Subsection:        Field{12, 13},
	Continuation:      Field{21, 22},
}

// Airport reference point records, section P subsection A (4.1.7).
var airportFields = struct {
	Lat, Lon, MagVar, Elevation, Name Field
}{
	Lat:       Field{32, 41},
	Lon:       Field{41, 51},
	MagVar:    Field{51, 56},
	Elevation: Field{56, 61},
	Name:      Field{93, 123},
}

// Terminal waypoints (P/C), runways (P/G) and enroute fixes (D, E/A).
var fixFields = struct {
	Id, Lat, Lon            Field
	DMELat, DMELon          Field
	NavaidName, EnrouteName Field
	TerminalName            Field
}{
	Id:           Field{13, 18},
	Lat:          Field{32, 41},
	Lon:          Field{41, 51},
	DMELat:       Field{55, 64},
	DMELon:       Field{64, 74},
	NavaidName:   Field{93, 123},
	EnrouteName:  Field{98, 123},
	TerminalName: Field{98, 123},
}

// Approach procedure records, section P subsection F (4.1.9).
var legFields = struct {
	ProcedureId, TransitionId, Sequence, WaypointId Field
	Continuation, ApplicationType                   Field
	Descriptor1, Descriptor2, Descriptor3           Field
	PathTerminator                                  Field
	ArcCenterAF, ArcCenterRF                        Field
	Course, Distance                                Field
	AltitudeDescription, Altitude, Altitude2        Field
	SpeedLimit, VerticalAngle                       Field
}{
	ProcedureId:         Field{13, 19},
	TransitionId:        Field{20, 25},
	Sequence:            Field{26, 29},
	WaypointId:          Field{29, 34},
	Continuation:        Field{38, 39},
	ApplicationType:     Field{39, 40},
	Descriptor1:         Field{41, 42},
	Descriptor2:         Field{42, 43},
	Descriptor3:         Field{43, 44},
	PathTerminator:      Field{47, 49},
	ArcCenterAF:         Field{50, 54},
	Course:              Field{70, 74},
	Distance:            Field{74, 78},
	AltitudeDescription: Field{82, 83},
	Altitude:            Field{84, 89},
	Altitude2:           Field{89, 94},
	SpeedLimit:          Field{99, 102},
	VerticalAngle:       Field{102, 106},
	ArcCenterRF:         Field{106, 111},
}

// RNP service levels in continuation records with application type W:
// four slots of an authorization byte followed by three digits.
var rnpSlotFields = [4]Field{{88, 92}, {92, 96}, {96, 100}, {100, 104}}
