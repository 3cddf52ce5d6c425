// Package sync implements the reconciliation engine: the actual-state
// cache, the diff/plan engine, the apply executor, and the loop that
// drives them.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

// Snapshot is a consistent view of the provider-side records in the
// managed zone, partitioned by ownership. Ownership is decided per
// hostname: a hostname carrying this owner's TXT marker is owned, and
// every record at an owned hostname is treated as mutable by us.
type Snapshot struct {
	Owned       []dns.Record
	Foreign     []dns.Record
	RefreshedAt time.Time
	Fresh       bool
}

// Cache holds the latest actual-state snapshot. Refresh replaces the
// snapshot atomically; a failed refresh keeps the previous one in place
// and marks it stale.
type Cache struct {
	provider dns.Provider
	zone     string
	owner    string
	log      logr.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

func NewCache(provider dns.Provider, zone, owner string, log logr.Logger) *Cache {
	return &Cache{
		provider: provider,
		zone:     dns.NormalizeHostname(zone),
		owner:    owner,
		log:      log,
	}
}

// Refresh lists the zone's records and swaps in a new snapshot. On
// failure the previous snapshot (if any) is retained but marked stale,
// and the error is returned for the loop to act on.
func (c *Cache) Refresh(ctx context.Context) error {
	records, err := c.provider.List(ctx, c.zone)
	if err != nil {
		c.mu.Lock()
		if c.snap != nil {
			c.snap.Fresh = false
		}
		c.mu.Unlock()
		return err
	}

	owned, foreign := c.partition(records)
	c.mu.Lock()
	c.snap = &Snapshot{
		Owned:       owned,
		Foreign:     foreign,
		RefreshedAt: time.Now(),
		Fresh:       true,
	}
	c.mu.Unlock()
	c.log.V(1).Info("refreshed actual state", "owned", len(owned), "foreign", len(foreign))
	return nil
}

func (c *Cache) partition(records []dns.Record) (owned, foreign []dns.Record) {
	inZone := make([]dns.Record, 0, len(records))
	ownedHostnames := make(map[string]bool)
	for _, rec := range records {
		rec.Hostname = dns.NormalizeHostname(rec.Hostname)
		if rec.Type == dns.TypeCNAME {
			rec.Value = dns.NormalizeHostname(rec.Value)
		}
		if !dns.InZone(rec.Hostname, c.zone) {
			continue
		}
		inZone = append(inZone, rec)
		if rec.Type == dns.TypeTXT && dns.OwnedBy(rec.Value, c.owner) {
			ownedHostnames[rec.Hostname] = true
		}
	}
	for _, rec := range inZone {
		if ownedHostnames[rec.Hostname] {
			owned = append(owned, rec)
		} else {
			foreign = append(foreign, rec)
		}
	}
	return owned, foreign
}

// Snapshot returns the current snapshot, or false if no refresh has
// ever succeeded.
func (c *Cache) Snapshot() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return Snapshot{}, false
	}
	return *c.snap, true
}
