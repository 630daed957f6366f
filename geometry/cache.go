// geometry/cache.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geometry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/brunoga/deep"
	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mmp/approachviz/cifp"
)

type cacheKey struct {
	airport, procedure string
	opts               Options
	mins               Minimums
	env                uint64
}

// envFingerprint hashes the parts of env that the approach's geometry
// depends on: the airport reference, elevation, magnetic variation, and
// the locations of the waypoints the approach uses.
func envFingerprint(appr *cifp.Approach, env Environment) uint64 {
	h := xxhash.New()
	fmt.Fprintf(h, "%v %v %v\n", env.Reference, env.Elevation, env.MagVar)
	for _, id := range appr.ReferencedWaypoints() {
		if wp, ok := env.Waypoint(id); ok {
			fmt.Fprintf(h, "%s %v %v\n", id, wp.Lat, wp.Lon)
		}
	}
	return h.Sum64()
}

// Cache holds recently built approach geometry. It is safe for concurrent
// use; callers receive their own copies of cached geometry.
type Cache struct {
	lru          *expirable.LRU[cacheKey, *ApproachGeometry]
	hits, misses atomic.Int64
}

func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[cacheKey, *ApproachGeometry](size, nil, ttl)}
}

// Get returns the geometry for the approach, building it if it isn't
// cached.
func (c *Cache) Get(appr *cifp.Approach, env Environment, mins Minimums, opts Options) *ApproachGeometry {
	k := cacheKey{
		airport:   appr.AirportId,
		procedure: appr.ProcedureId,
		opts:      opts,
		mins:      mins,
		env:       envFingerprint(appr, env),
	}
	if ag, ok := c.lru.Get(k); ok {
		c.hits.Add(1)
		return deep.MustCopy(ag)
	}

	c.misses.Add(1)
	ag := BuildApproach(appr, env, mins, opts)
	c.lru.Add(k, ag)
	return deep.MustCopy(ag)
}

func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) Purge() {
	c.lru.Purge()
}
