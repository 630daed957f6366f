// store/db.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package store persists parsed CIFP tables and reads back what the
// geometry builders need for a single procedure.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/geometry"
	"github.com/mmp/approachviz/log"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// DB wraps a SQLite database holding the airport, waypoint, runway and
// approach tables. Rows are stored as JSON blobs keyed by their ids.
type DB struct {
	db *sql.DB
	lg *log.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS airports (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS waypoints (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runways (
	airport TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (airport, id)
);

CREATE TABLE IF NOT EXISTS approaches (
	airport TEXT NOT NULL,
	procedure TEXT NOT NULL,
	type TEXT,
	runway TEXT,
	data TEXT NOT NULL,
	PRIMARY KEY (airport, procedure)
);
`

// Open opens or creates the database at path.
func Open(path string, lg *log.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	lg.Debug("opened database", "path", path)
	return &DB{db: db, lg: lg}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// SaveResult writes all of the tables in r, replacing existing rows with
// the same ids.
func (d *DB) SaveResult(ctx context.Context, r *cifp.Result) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := func(query string, v any, args ...any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, append(args, string(b))...)
		return err
	}

	for id, apt := range r.Airports {
		if err := insert(`INSERT OR REPLACE INTO airports (id, data) VALUES (?, ?)`, apt, id); err != nil {
			return fmt.Errorf("airport %s: %w", id, err)
		}
	}
	for id, wp := range r.Waypoints {
		if err := insert(`INSERT OR REPLACE INTO waypoints (id, type, data) VALUES (?, ?, ?)`, wp, id, string(wp.Type)); err != nil {
			return fmt.Errorf("waypoint %s: %w", id, err)
		}
	}
	for apt, rwys := range r.Runways {
		for _, rwy := range rwys {
			if err := insert(`INSERT OR REPLACE INTO runways (airport, id, data) VALUES (?, ?, ?)`, rwy, apt, rwy.Id); err != nil {
				return fmt.Errorf("runway %s/%s: %w", apt, rwy.Id, err)
			}
		}
	}
	for _, appr := range r.Approaches {
		if err := insert(`INSERT OR REPLACE INTO approaches (airport, procedure, type, runway, data) VALUES (?, ?, ?, ?, ?)`,
			appr, appr.AirportId, appr.ProcedureId, appr.Type, appr.Runway); err != nil {
			return fmt.Errorf("approach %s/%s: %w", appr.AirportId, appr.ProcedureId, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	d.lg.Info("saved CIFP tables", "airports", len(r.Airports), "waypoints", len(r.Waypoints),
		"approaches", len(r.Approaches))
	return nil
}

func scanJSON[T any](row *sql.Row, what string) (T, error) {
	var data string
	var v T
	if err := row.Scan(&data); errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("%s: %w", what, ErrNotFound)
	} else if err != nil {
		return v, fmt.Errorf("%s: %w", what, err)
	}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return v, fmt.Errorf("%s: %w", what, err)
	}
	return v, nil
}

func (d *DB) Airport(ctx context.Context, id string) (cifp.Airport, error) {
	row := d.db.QueryRowContext(ctx, `SELECT data FROM airports WHERE id = ?`, id)
	return scanJSON[cifp.Airport](row, "airport "+id)
}

func (d *DB) Approach(ctx context.Context, airport, procedure string) (*cifp.Approach, error) {
	row := d.db.QueryRowContext(ctx, `SELECT data FROM approaches WHERE airport = ? AND procedure = ?`, airport, procedure)
	appr, err := scanJSON[cifp.Approach](row, "approach "+airport+"/"+procedure)
	if err != nil {
		return nil, err
	}
	return &appr, nil
}

// Waypoints returns the waypoints with the given ids; ids that aren't in
// the database are ignored.
func (d *DB) Waypoints(ctx context.Context, ids []string) (geometry.WaypointMap, error) {
	wps := make(geometry.WaypointMap)
	if len(ids) == 0 {
		return wps, nil
	}

	query := `SELECT data FROM waypoints WHERE id IN (?` + strings.Repeat(", ?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("waypoints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var wp cifp.Waypoint
		if err := json.Unmarshal([]byte(data), &wp); err != nil {
			return nil, fmt.Errorf("waypoint: %w", err)
		}
		wps[wp.Id] = wp
	}
	return wps, rows.Err()
}

// ApproachInfo summarizes a stored approach.
type ApproachInfo struct {
	Airport   string `json:"airport"`
	Procedure string `json:"procedure"`
	Type      string `json:"type"`
	Runway    string `json:"runway"`
}

// ListApproaches returns the approaches at the given airport, or at all
// airports if it is empty, ordered by airport and procedure.
func (d *DB) ListApproaches(ctx context.Context, airport string) ([]ApproachInfo, error) {
	query := `SELECT airport, procedure, type, runway FROM approaches`
	var args []any
	if airport != "" {
		query += ` WHERE airport = ?`
		args = append(args, airport)
	}
	query += ` ORDER BY airport, procedure`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approaches: %w", err)
	}
	defer rows.Close()

	var infos []ApproachInfo
	for rows.Next() {
		var ai ApproachInfo
		var typ, rwy sql.NullString
		if err := rows.Scan(&ai.Airport, &ai.Procedure, &typ, &rwy); err != nil {
			return nil, err
		}
		ai.Type, ai.Runway = typ.String, rwy.String
		infos = append(infos, ai)
	}
	return infos, rows.Err()
}

// Procedure is an approach along with what is needed to build its
// geometry.
type Procedure struct {
	Approach  *cifp.Approach
	Airport   cifp.Airport
	Waypoints geometry.WaypointMap
}

func (p *Procedure) Environment() geometry.Environment {
	return geometry.NewEnvironment(p.Airport, p.Waypoints)
}

// LoadProcedure reads an approach, its airport, and the waypoints its
// legs reference.
func (d *DB) LoadProcedure(ctx context.Context, airport, procedure string) (*Procedure, error) {
	appr, err := d.Approach(ctx, airport, procedure)
	if err != nil {
		return nil, err
	}
	apt, err := d.Airport(ctx, airport)
	if err != nil {
		return nil, err
	}

	ids := appr.ReferencedWaypoints()
	wps, err := d.Waypoints(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(wps) < len(ids) {
		d.lg.Warnf("%s/%s: %d of %d referenced waypoints are unknown", airport, procedure,
			len(ids)-len(wps), len(ids))
	}

	return &Procedure{Approach: appr, Airport: apt, Waypoints: wps}, nil
}
