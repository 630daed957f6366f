// cifp/model_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package cifp

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestApproachJSONRoundTrip(t *testing.T) {
	r := ParseString(testCIFP(), ParseOptions{})
	appr, ok := r.Approach("KJFK", "I04R")
	if !ok {
		t.Fatal("I04R not found")
	}

	b, err := json.Marshal(appr)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"transitions":[["CHAMP",[{`) {
		t.Errorf("transitions not serialized as [name, legs] pairs: %s", b)
	}

	var back Approach
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*appr, back) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", *appr, back)
	}
}

func TestResultJSONRoundTrip(t *testing.T) {
	r := ParseString(testCIFP(), ParseOptions{})

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw["waypoints"]), "[") {
		t.Errorf("waypoints not flattened to an array: %.40s", raw["waypoints"])
	}

	var back Result
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	for name, pair := range map[string][2]any{
		"airports":   {r.Airports, back.Airports},
		"waypoints":  {r.Waypoints, back.Waypoints},
		"approaches": {r.Approaches, back.Approaches},
		"runways":    {r.Runways, back.Runways},
	} {
		if !reflect.DeepEqual(pair[0], pair[1]) {
			t.Errorf("%s differ after round trip", name)
		}
	}
}

func TestTransitionsJSON(t *testing.T) {
	alt := 3000
	tr := Transitions{
		{Name: "ZEBRA", Legs: []ApproachLeg{{Sequence: 10, PathTerminator: "IF", WaypointName: "ZEBRA"}}},
		{Name: "ALPHA", Legs: []ApproachLeg{{Sequence: 10, PathTerminator: "IF", Altitude: &alt, AltitudeConstraint: AltitudeAbove}}},
	}

	b, err := json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), `[["ZEBRA",`) {
		t.Errorf("insertion order not preserved: %s", b)
	}

	var back Transitions
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tr, back) {
		t.Errorf("got %+v, expected %+v", back, tr)
	}

	if err := json.Unmarshal([]byte(`[["A",[]],["A",[]]]`), &back); err == nil {
		t.Errorf("repeated transition names should be rejected")
	}
	if err := json.Unmarshal([]byte(`{"A":[]}`), &back); err == nil {
		t.Errorf("object-keyed transitions should be rejected")
	}
}

func TestCoreOrdering(t *testing.T) {
	r := ParseString(testCIFP(), ParseOptions{})
	for _, appr := range r.Approaches {
		core := append(append([]ApproachLeg{}, appr.FinalLegs...), appr.MissedLegs...)
		for i := 1; i < len(core); i++ {
			if core[i].Sequence < core[i-1].Sequence {
				t.Errorf("%s/%s: sequence decreases at %d: %v", appr.AirportId, appr.ProcedureId, i, legSequences(core))
			}
		}
	}
}

func TestReferencedWaypoints(t *testing.T) {
	r := ParseString(testCIFP(), ParseOptions{})
	appr, _ := r.Approach("KJFK", "I04R")

	ids := appr.ReferencedWaypoints()
	expected := []string{"CHAMP", "DPK", "KJFK_CFRNK", "KJFK_ROSLY", "KJFK_RW04R", "KJFK_ZALPO"}
	if !reflect.DeepEqual(ids, expected) {
		t.Errorf("got %v, expected %v", ids, expected)
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := ParseString(testCIFP(), ParseOptions{})
	appr, _ := r.Approach("KJFK", "I04R")

	c := appr.Clone()
	*c.FinalLegs[0].Altitude = 12000
	c.Transitions[0].Name = "CHANGED"

	if *appr.FinalLegs[0].Altitude != 3000 || appr.Transitions[0].Name != "CHAMP" {
		t.Errorf("modifying the clone changed the original")
	}
}

func TestLegKey(t *testing.T) {
	if k := LegKey("KJFK", "I04R", "", 20, "ZALPO"); k != "KJFK|I04R||20|ZALPO" {
		t.Errorf("LegKey = %q", k)
	}
}
