// cmd/approachgeom/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// approachgeom resolves the altitudes of approach procedures and writes
// their 3D geometry as JSON for rendering.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apenwarr/fixconsole"
	"github.com/goforj/godump"
	"github.com/mmp/approachviz/config"
	"github.com/mmp/approachviz/geometry"
	"github.com/mmp/approachviz/log"
	"github.com/mmp/approachviz/store"
	"github.com/mmp/approachviz/util"
)

var (
	configPath   = flag.String("config", "", "configuration file (default: user config directory)")
	dbPath       = flag.String("db", "", "SQLite database written by cifpingest")
	snapshotPath = flag.String("snapshot", "", "snapshot file written by cifpingest; used instead of the database if given")
	airport      = flag.String("airport", "", "airport id (e.g., KJFK)")
	procedures   = flag.String("procedure", "", "comma-separated procedure ids (e.g., I04R,R22L)")
	list         = flag.Bool("list", false, "list the approaches at the airport")
	decisionAlt  = flag.Float64("da", 0, "decision altitude or MDA, feet")
	gradient     = flag.Float64("gradient", 0, "published missed approach climb gradient, feet per nm")
	gradientTo   = flag.Float64("gradient-to", 0, "altitude up to which the climb gradient applies")
	output       = flag.String("o", "", "output file (default: standard output)")
	dump         = flag.Bool("dump", false, "pretty-print the geometry rather than writing JSON")
	logLevel     = flag.String("loglevel", "", "logging level: debug, info, warn, error")
	logDir       = flag.String("logdir", "", "log file directory, or - for stderr")
)

// loader provides procedures from either the database or a snapshot.
type loader interface {
	LoadProcedure(ctx context.Context, airport, procedure string) (*store.Procedure, error)
	ListApproaches(ctx context.Context, airport string) ([]store.ApproachInfo, error)
}

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if *snapshotPath != "" {
		cfg.Snapshot = *snapshotPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}

	if *airport == "" || (*procedures == "" && !*list) {
		fmt.Fprintf(os.Stderr, "usage: approachgeom -airport ID (-procedure ID[,ID...] | -list) [flags]\nwhere [flags] may be:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	lg := log.New(cfg.LogLevel, cfg.LogDir)
	if err := run(context.Background(), cfg, lg); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openLoader(cfg *config.Config, lg *log.Logger) (loader, func(), error) {
	if cfg.Snapshot != "" {
		res, err := store.ReadSnapshotFile(cfg.Snapshot)
		if err != nil {
			return nil, nil, err
		}
		return store.Snapshot{Result: res}, func() {}, nil
	}

	db, err := store.Open(cfg.Database, lg)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func run(ctx context.Context, cfg *config.Config, lg *log.Logger) error {
	ld, closer, err := openLoader(cfg, lg)
	if err != nil {
		return err
	}
	defer closer()

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if *list {
		infos, err := ld.ListApproaches(ctx, *airport)
		if err != nil {
			return err
		}
		for _, ai := range infos {
			fmt.Fprintf(w, "%-6s %-8s %-6s %s\n", ai.Airport, ai.Procedure, ai.Type, ai.Runway)
		}
		return nil
	}

	mins := geometry.Minimums{
		DecisionAltitude:    float32(*decisionAlt),
		ClimbGradient:       float32(*gradient),
		ClimbGradientTarget: float32(*gradientTo),
	}
	cache := geometry.NewCache(cfg.Cache.Size, cfg.Cache.Duration())

	var result []*geometry.ApproachGeometry
	for _, id := range util.FilterSlice(strings.Split(*procedures, ","), func(s string) bool { return s != "" }) {
		proc, err := ld.LoadProcedure(ctx, *airport, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		ag := cache.Get(proc.Approach, proc.Environment(), mins, cfg.Geometry)
		for _, g := range append([]*geometry.Geometry{ag.Final, ag.Missed}, transitionGeometry(ag)...) {
			if len(g.Skipped) > 0 {
				lg.Warnf("%s/%s: %d legs couldn't be placed", ag.AirportId, ag.ProcedureId, len(g.Skipped))
			}
		}
		result = append(result, ag)
	}
	hits, misses := cache.Stats()
	lg.Debug("geometry cache", "hits", hits, "misses", misses)

	if *dump {
		for _, ag := range result {
			godump.Fdump(w, ag)
		}
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func transitionGeometry(ag *geometry.ApproachGeometry) []*geometry.Geometry {
	return util.MapSlice(ag.Transitions, func(t geometry.TransitionGeometry) *geometry.Geometry { return t.Geometry })
}
