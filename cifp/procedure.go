// cifp/procedure.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package cifp

import "regexp"

// Approach types, keyed by the first character of the procedure id.
var procedureTypes = map[byte]string{
	'I': "ILS",
	'L': "LOC",
	'B': "LOC/BC",
	'R': "RNAV (GPS)",
	'H': "RNAV (RNP)",
	'V': "VOR",
	'S': "VOR",
	'D': "VOR/DME",
	'N': "NDB",
	'Q': "NDB/DME",
	'X': "LDA",
	'U': "SDF",
	'P': "GPS",
	'G': "IGS",
	'J': "GLS",
}

// ProcedureType returns the approach type for a procedure id. Ids that
// start with an unknown character get that character as their type.
func ProcedureType(id string) string {
	if id == "" {
		return ""
	}
	if t, ok := procedureTypes[id[0]]; ok {
		return t
	}
	return id[:1]
}

var reProcedureRunway = regexp.MustCompile(`^(\d{2}[LRC]?)`)

// ProcedureRunway returns the runway served by a procedure, e.g. "04L"
// for "I04L" or "22R" for "R22RZ"; circling procedures like "VDM-A" have
// no runway and return "".
func ProcedureRunway(id string) string {
	if len(id) < 2 {
		return ""
	}
	if m := reProcedureRunway.FindStringSubmatch(id[1:]); m != nil {
		return m[1]
	}
	return ""
}
