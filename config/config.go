// config/config.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package config holds the settings shared by the command-line tools.
package config

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mmp/approachviz/geometry"
	"github.com/mmp/approachviz/log"
	"github.com/mmp/approachviz/math"
	"github.com/mmp/approachviz/source"
	"github.com/mmp/approachviz/util"
)

type Config struct {
	LogLevel string `json:"log_level"`
	LogDir   string `json:"log_dir,omitempty"`

	// Where parsed tables are stored and read from.
	Database string `json:"database,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`

	// Raw CIFP input: a path, file://, gs:// or s3:// URL.
	Source  string         `json:"source,omitempty"`
	Storage source.Options `json:"storage"`
	Airport string         `json:"airport,omitempty"`

	Geometry geometry.Options `json:"geometry"`
	Cache    CacheConfig      `json:"cache"`
	// Maximum number of procedures to build at once; 0 is one per CPU.
	Concurrency int `json:"concurrency"`
}

type CacheConfig struct {
	Size int    `json:"size"`
	TTL  string `json:"ttl"`
}

func (c CacheConfig) Duration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Database: "cifp.db",
		Geometry: geometry.DefaultOptions(),
		Cache:    CacheConfig{Size: 256, TTL: "1h"},
	}
}

// DefaultPath returns the path of the configuration file in the user's
// config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "approachviz", "config.json")
}

var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"APPROACHVIZ_LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }},
	{"APPROACHVIZ_DATABASE", func(c *Config) *string { return &c.Database }},
	{"APPROACHVIZ_SOURCE", func(c *Config) *string { return &c.Source }},
	{"APPROACHVIZ_GCS_CREDENTIALS", func(c *Config) *string { return &c.Storage.GCSCredentials }},
}

// Load reads the configuration at path, applies environment variable
// overrides, and validates the result. Settings missing from the file
// keep their defaults. If path is empty, the default path is used and
// it's not an error for the file not to exist.
func Load(path string) (*Config, error) {
	c := Default()

	optional := path == ""
	if optional {
		path = DefaultPath()
	}
	if b, err := os.ReadFile(path); err == nil {
		if err := util.UnmarshalJSONBytesStrict(b, c); err != nil {
			return nil, err
		}
	} else if !optional || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	for _, ov := range envOverrides {
		if v, ok := os.LookupEnv(ov.name); ok {
			*ov.field(c) = v
		}
	}

	var e util.ErrorLogger
	c.Validate(&e)
	if err := e.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports all of the problems with c to e.
func (c *Config) Validate(e *util.ErrorLogger) {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		e.Push("log_level")
		e.Error(err)
		e.Pop()
	}

	e.Push("geometry")
	g := c.Geometry
	positive := []struct {
		name string
		v    float32
	}{
		{"climb_gradient", g.ClimbGradient},
		{"ca_stub_length", g.CAStubLength},
		{"ca_max_fraction", g.CAMaxFraction},
		{"heading_stub_length", g.HeadingStubLength},
		{"min_turn_radius", g.MinTurnRadius},
		{"max_join_sweep", g.MaxJoinSweep},
		{"arc_step", g.ArcStep},
		{"line_step", g.LineStep},
		{"hold_minutes", g.HoldMinutes},
	}
	for _, p := range positive {
		if !(p.v > 0) || !math.IsFinite(p.v) {
			e.ErrorString("%s: must be positive, got %f", p.name, p.v)
		}
	}
	if g.MaxTurnRadius < g.MinTurnRadius {
		e.ErrorString("max_turn_radius %f is less than min_turn_radius %f", g.MaxTurnRadius, g.MinTurnRadius)
	}
	if g.MaxJoinSweep > 360 {
		e.ErrorString("max_join_sweep: %f is more than 360 degrees", g.MaxJoinSweep)
	}
	if !math.IsFinite(g.VerticalScale) {
		e.ErrorString("vertical_scale: %f is not finite", g.VerticalScale)
	}
	e.Pop()

	e.Push("cache")
	if c.Cache.Size < 0 {
		e.ErrorString("size: must not be negative")
	}
	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		e.Error(err)
	}
	e.Pop()

	if c.Concurrency < 0 {
		e.ErrorString("concurrency: must not be negative")
	}
}

func (c *Config) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(c)
}

// Save writes the configuration to path, creating its directory if
// necessary.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
