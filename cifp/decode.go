// cifp/decode.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package cifp

import (
	"regexp"
	"strconv"
	"strings"
)

// DecodeDMS converts an ARINC 424 latitude (N/S + DDMMSSss) or longitude
// (E/W + DDDMMSSss) field to signed decimal degrees. Fields of any other
// shape decode to 0.
func DecodeDMS(s string) float64 {
	var degDigits int
	switch len(s) {
	case 9:
		degDigits = 2
	case 10:
		degDigits = 3
	default:
		return 0
	}

	hemi := s[0]
	if hemi != 'N' && hemi != 'S' && hemi != 'E' && hemi != 'W' {
		return 0
	}

	digits := s[1:]
	for i := range len(digits) {
		if digits[i] < '0' || digits[i] > '9' {
			return 0
		}
	}

	atoi := func(b string) float64 {
		v, _ := strconv.Atoi(b)
		return float64(v)
	}
	deg := atoi(digits[:degDigits])
	minutes := atoi(digits[degDigits : degDigits+2])
	seconds := atoi(digits[degDigits+2:degDigits+4]) + atoi(digits[degDigits+4:])/100

	v := deg + minutes/60 + seconds/3600
	if hemi == 'S' || hemi == 'W' {
		v = -v
	}
	return v
}

// AltitudeConstraint describes how a published altitude applies to a leg.
type AltitudeConstraint string

const (
	AltitudeAt      AltitudeConstraint = "at"
	AltitudeAbove   AltitudeConstraint = "+"
	AltitudeBelow   AltitudeConstraint = "-"
	AltitudeBetween AltitudeConstraint = "between"
)

// Altitude is a decoded altitude field.
type Altitude struct {
	Feet       int
	Constraint AltitudeConstraint
}

// DecodeAltitude decodes an altitude field: the digits give the value and
// a leading '+' or '-' gives the constraint. Fields without digits are
// reported as absent.
func DecodeAltitude(s string) (Altitude, bool) {
	var digits strings.Builder
	for i := range len(s) {
		if s[i] >= '0' && s[i] <= '9' {
			digits.WriteByte(s[i])
		}
	}
	if digits.Len() == 0 {
		return Altitude{}, false
	}

	v, err := strconv.Atoi(digits.String())
	if err != nil {
		return Altitude{}, false
	}

	alt := Altitude{Feet: v, Constraint: AltitudeAt}
	switch s[0] {
	case '+':
		alt.Constraint = AltitudeAbove
	case '-':
		alt.Constraint = AltitudeBelow
	}
	return alt, true
}

var reSignedInteger = regexp.MustCompile(`^-?\d+$`)

func decodeScaled(s string, scale float64) (float64, bool) {
	s = strings.TrimSpace(s)
	if !reSignedInteger.MatchString(s) {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return float64(v) / scale, true
}

// DecodeTenths decodes integer fields stored in tenths (courses, distances).
func DecodeTenths(s string) (float64, bool) {
	return decodeScaled(s, 10)
}

// DecodeHundredths decodes integer fields stored in hundredths (RNP values,
// vertical angles).
func DecodeHundredths(s string) (float64, bool) {
	return decodeScaled(s, 100)
}

var (
	reMagVarHemisphere = regexp.MustCompile(`^([EW])(\d{3,4})$`)
	reMagVarSigned     = regexp.MustCompile(`^[-+]?\d{3,4}$`)
)

// DecodeMagVar decodes a magnetic variation field in tenths of a degree,
// either E/W-prefixed or signed; east is positive. Anything else is 0.
func DecodeMagVar(s string) float64 {
	s = strings.TrimSpace(s)
	if m := reMagVarHemisphere.FindStringSubmatch(s); m != nil {
		v, _ := strconv.Atoi(m[2])
		if m[1] == "W" {
			v = -v
		}
		return float64(v) / 10
	}
	if reMagVarSigned.MatchString(s) {
		v, _ := strconv.Atoi(s)
		return float64(v) / 10
	}
	return 0
}

// DecodeInt decodes a space-padded, optionally signed integer field.
func DecodeInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	return v, err == nil
}
