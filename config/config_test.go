// config/config_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmp/approachviz/geometry"
	"github.com/mmp/approachviz/util"
)

func writeConfig(t *testing.T, s string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	c := Default()
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}
	if s != "" {
		if err := os.WriteFile(path, []byte(s), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
    "log_level": "debug",
    "airport": "KJFK",
    "geometry": { "climb_gradient": 250, "arc_step": 2 },
    "cache": { "size": 16, "ttl": "10m" }
}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.LogLevel != "debug" || c.Airport != "KJFK" || c.Cache.Size != 16 || c.Cache.Duration() != 10*time.Minute {
		t.Errorf("unexpected config %+v", c)
	}

	// Settings not in the file keep their defaults.
	expected := geometry.DefaultOptions()
	expected.ClimbGradient, expected.ArcStep = 250, 2
	if c.Geometry != expected {
		t.Errorf("got geometry options %+v, expected %+v", c.Geometry, expected)
	}
	if c.Database != "cifp.db" || c.Concurrency != 0 {
		t.Errorf("defaults not preserved: %+v", c)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	c, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Geometry != geometry.DefaultOptions() || c.Cache != Default().Cache {
		t.Errorf("saved defaults didn't load back: %+v", c)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("APPROACHVIZ_DATABASE", "/tmp/other.db")
	t.Setenv("APPROACHVIZ_SOURCE", "gs://cifp/FAACIFP18.zst")
	t.Setenv("APPROACHVIZ_GCS_CREDENTIALS", `{"type": "service_account"}`)

	c, err := Load(writeConfig(t, `{"database": "mine.db"}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Database != "/tmp/other.db" || c.Source != "gs://cifp/FAACIFP18.zst" || c.Storage.GCSCredentials == "" {
		t.Errorf("overrides not applied: %+v", c)
	}

	t.Setenv("APPROACHVIZ_LOG_LEVEL", "loud")
	if _, err := Load(writeConfig(t, "")); err == nil {
		t.Errorf("expected an error for an invalid log level")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("expected an error for a missing file")
	}

	for _, tc := range []struct {
		name, json, expect string
	}{
		{"syntax", "{\n  \"airport\": \"KJFK\",,\n}", "line 2"},
		{"unknown field", `{"airprot": "KJFK"}`, "airprot"},
		{"type", `{"concurrency": "lots"}`, "concurrency"},
		{"validation", `{"geometry": {"arc_step": 0, "min_turn_radius": 2}, "cache": {"ttl": "soon"}}`, "arc_step"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.json))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.expect) {
				t.Errorf("error %q doesn't mention %q", err, tc.expect)
			}
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	c := Default()
	c.Geometry.ArcStep = 0
	c.Geometry.MaxTurnRadius = 0.1
	c.Cache.TTL = "soon"
	c.Concurrency = -1

	var e util.ErrorLogger
	c.Validate(&e)
	if n := len(e.Errors()); n != 4 {
		t.Errorf("expected 4 errors, got %d: %s", n, e.String())
	}
	for _, msg := range e.Errors()[:2] {
		if !strings.HasPrefix(msg, "geometry: ") {
			t.Errorf("%q: missing context", msg)
		}
	}
}
