// cmd/cifpingest/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// cifpingest reads an FAA CIFP file, parses its airports, waypoints,
// runways and approach procedures, and stores the result in a SQLite
// database and/or a snapshot file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apenwarr/fixconsole"
	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/config"
	"github.com/mmp/approachviz/geometry"
	"github.com/mmp/approachviz/log"
	"github.com/mmp/approachviz/source"
	"github.com/mmp/approachviz/store"
	"github.com/mmp/approachviz/util"
	"github.com/shirou/gopsutil/cpu"
)

var (
	configPath = flag.String("config", "", "configuration file (default: user config directory)")
	sourceURI  = flag.String("source", "", "CIFP file: path, file://, gs://bucket/object or s3://bucket/key")
	airport    = flag.String("airport", "", "only keep terminal data for this airport (e.g., KJFK)")
	dbPath     = flag.String("db", "", "SQLite database to write")
	snapshot   = flag.String("snapshot", "", "snapshot file to write")
	validate   = flag.Bool("validate", false, "build geometry for every approach and report legs that can't be drawn")
	nWorkers   = flag.Int("nworkers", 0, "number of concurrent geometry builds when validating (default from config; 0 is one per CPU)")
	logLevel   = flag.String("loglevel", "", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory, or - for stderr")
	cpuprofile = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
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
	override(&cfg.Source, *sourceURI)
	override(&cfg.Airport, *airport)
	override(&cfg.Database, *dbPath)
	override(&cfg.Snapshot, *snapshot)
	override(&cfg.Concurrency, *nWorkers)
	override(&cfg.LogLevel, *logLevel)
	override(&cfg.LogDir, *logDir)

	if cfg.Source == "" {
		fmt.Fprintf(os.Stderr, "usage: cifpingest -source FAACIFP18 [flags]\nwhere [flags] may be:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	lg := log.New(cfg.LogLevel, cfg.LogDir)

	stopProfiling, err := util.StartProfiling(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
	}
	defer stopProfiling()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ingest(ctx, cfg, lg); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		stopProfiling()
		os.Exit(1)
	}
}

func ingest(ctx context.Context, cfg *config.Config, lg *log.Logger) error {
	sopts := cfg.Storage
	sopts.Logger = lg
	rc, err := source.Open(ctx, cfg.Source, sopts)
	if err != nil {
		return err
	}
	defer rc.Close()

	res, err := cifp.Parse(rc, cifp.ParseOptions{Airport: cfg.Airport, Logger: lg})
	if err != nil {
		return err
	}
	report(res, lg)

	if cfg.Database != "" {
		db, err := store.Open(cfg.Database, lg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.SaveResult(ctx, res); err != nil {
			return fmt.Errorf("%s: %w", cfg.Database, err)
		}
	}

	if cfg.Snapshot != "" {
		if err := store.WriteSnapshotFile(cfg.Snapshot, res); err != nil {
			return err
		}
		lg.Infof("wrote snapshot %s", cfg.Snapshot)
	}

	if *validate {
		return validateGeometry(ctx, cfg, res, lg)
	}
	return nil
}

func report(res *cifp.Result, lg *log.Logger) {
	st := res.Stats
	fmt.Printf("%d lines, %d records (%d filtered): %d airports, %d waypoints, %d approaches in %s\n",
		st.Lines, st.Admitted, st.Filtered, len(res.Airports), len(res.Waypoints), len(res.Approaches), st.Duration)
	for kind, n := range st.Records {
		lg.Info("records", "kind", kind.String(), "count", n)
	}
	if st.ContinuationsOrphaned > 0 {
		lg.Warnf("%d continuation records had no primary leg", st.ContinuationsOrphaned)
	}
	if st.Problems.HaveErrors() {
		fmt.Fprintf(os.Stderr, "%d records had problems:\n", len(st.Problems.Errors()))
		st.Problems.PrintErrors(nil)
	}
}

// validateGeometry builds every approach and reports those with legs that
// couldn't be placed.
func validateGeometry(ctx context.Context, cfg *config.Config, res *cifp.Result, lg *log.Logger) error {
	wps := geometry.WaypointMap(res.Waypoints)
	envFor := func(id string) (geometry.Environment, error) {
		apt, ok := res.Airports[id]
		if !ok {
			return geometry.Environment{}, fmt.Errorf("%s: unknown airport", id)
		}
		return geometry.NewEnvironment(apt, wps), nil
	}

	// Approaches at airports without an airport record can't be placed at
	// all; they're reported rather than failing the whole run.
	var approaches []*cifp.Approach
	for i := range res.Approaches {
		a := &res.Approaches[i]
		if _, ok := res.Airports[a.AirportId]; ok {
			approaches = append(approaches, a)
		} else {
			lg.Warnf("%s/%s: no airport record", a.AirportId, a.ProcedureId)
		}
	}

	limit := cfg.Concurrency
	if limit == 0 {
		if n, err := cpu.Counts(true); err == nil && n > 0 {
			limit = n
		}
	}
	lg.Debug("building approach geometry", "approaches", len(approaches), "workers", limit)

	ags, err := geometry.BuildAll(ctx, approaches, envFor, nil, cfg.Geometry, limit)
	if err != nil {
		return err
	}

	incomplete := 0
	for _, ag := range ags {
		skipped := len(ag.Final.Skipped) + len(ag.Missed.Skipped)
		for _, tr := range ag.Transitions {
			skipped += len(tr.Geometry.Skipped)
		}
		if skipped > 0 {
			incomplete++
			lg.Warn("approach has legs that can't be drawn", "airport", ag.AirportId,
				"procedure", ag.ProcedureId, "skipped", skipped)
		}
	}
	fmt.Printf("built geometry for %d approaches, %d incomplete\n", len(ags), incomplete)
	return nil
}
