// store/snapshot.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/mmp/approachviz/cifp"
	"github.com/mmp/approachviz/geometry"
	"github.com/vmihailenco/msgpack/v5"
)

const snapshotVersion = 1

type snapshot struct {
	Version int
	Result  *cifp.Result
}

// WriteSnapshot writes the entire parse result to w, msgpack-encoded and
// zstd-compressed.
func WriteSnapshot(w io.Writer, r *cifp.Result) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(snapshot{Version: snapshotVersion, Result: r}); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

func ReadSnapshot(r io.Reader) (*cifp.Result, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var s snapshot
	if err := msgpack.NewDecoder(zr).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d: expected %d", s.Version, snapshotVersion)
	}
	if s.Result == nil {
		return nil, fmt.Errorf("snapshot has no parse result")
	}
	return s.Result, nil
}

func WriteSnapshotFile(path string, r *cifp.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSnapshot(f, r); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func ReadSnapshotFile(path string) (*cifp.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Snapshot serves procedures from a parse result held in memory, as DB
// does from the database.
type Snapshot struct {
	Result *cifp.Result
}

func (s Snapshot) LoadProcedure(ctx context.Context, airport, procedure string) (*Procedure, error) {
	r := s.Result
	appr, ok := r.Approach(airport, procedure)
	if !ok {
		return nil, fmt.Errorf("approach %s/%s: %w", airport, procedure, ErrNotFound)
	}
	apt, ok := r.Airports[airport]
	if !ok {
		return nil, fmt.Errorf("airport %s: %w", airport, ErrNotFound)
	}

	wps := make(geometry.WaypointMap)
	for _, id := range appr.ReferencedWaypoints() {
		if wp, ok := r.Waypoints[id]; ok {
			wps[id] = wp
		}
	}
	return &Procedure{Approach: appr.Clone(), Airport: apt, Waypoints: wps}, nil
}

func (s Snapshot) ListApproaches(ctx context.Context, airport string) ([]ApproachInfo, error) {
	var infos []ApproachInfo
	for _, a := range s.Result.Approaches {
		if airport == "" || a.AirportId == airport {
			infos = append(infos, ApproachInfo{Airport: a.AirportId, Procedure: a.ProcedureId, Type: a.Type, Runway: a.Runway})
		}
	}
	slices.SortFunc(infos, func(a, b ApproachInfo) int {
		return cmp.Or(strings.Compare(a.Airport, b.Airport), strings.Compare(a.Procedure, b.Procedure))
	})
	return infos, nil
}
