// Package state maintains the desired DNS record set, folded from the
// records each watched cluster resource contributes.
package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

// SourceKey identifies the cluster resource that contributed a set of
// desired records.
type SourceKey struct {
	Kind      string
	Namespace string
	Name      string
}

func (k SourceKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Namespace, k.Name)
}

type sourceEntry struct {
	records []dns.Record
	seq     uint64 // observation order, later wins on hostname conflicts
}

// Builder folds per-resource record contributions into the current
// desired set. Set replaces a resource's records atomically; Remove
// drops exactly what that resource contributed. Safe for concurrent use.
type Builder struct {
	zone  string
	owner string
	log   logr.Logger

	mu      sync.Mutex
	sources map[SourceKey]sourceEntry
	seq     uint64

	changed chan struct{}
}

// NewBuilder creates a Builder scoped to the given zone. Records outside
// the zone suffix are discarded at Set time.
func NewBuilder(zone, owner string, log logr.Logger) *Builder {
	return &Builder{
		zone:    dns.NormalizeHostname(zone),
		owner:   owner,
		log:     log,
		sources: make(map[SourceKey]sourceEntry),
		changed: make(chan struct{}, 1),
	}
}

// Changed returns a channel that receives a signal whenever the desired
// set may have changed. Signals are coalesced; the reconcile loop
// debounces them further.
func (b *Builder) Changed() <-chan struct{} {
	return b.changed
}

func (b *Builder) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// Set replaces the records contributed by the given resource. Records
// outside the managed zone or failing validation are dropped with a
// logged warning; the rest of the resource's records survive.
func (b *Builder) Set(key SourceKey, records []dns.Record) {
	kept := make([]dns.Record, 0, len(records))
	for _, rec := range records {
		rec.Hostname = dns.NormalizeHostname(rec.Hostname)
		if rec.Type == dns.TypeCNAME {
			rec.Value = dns.NormalizeHostname(rec.Value)
		}
		if err := validate(rec); err != nil {
			b.log.Info("dropping invalid record", "source", key.String(), "hostname", rec.Hostname, "type", rec.Type, "reason", err.Error())
			continue
		}
		if !dns.InZone(rec.Hostname, b.zone) {
			b.log.V(1).Info("hostname outside managed zone, ignoring", "source", key.String(), "hostname", rec.Hostname, "zone", b.zone)
			continue
		}
		kept = append(kept, rec)
	}

	b.mu.Lock()
	b.seq++
	b.sources[key] = sourceEntry{records: kept, seq: b.seq}
	b.mu.Unlock()
	b.notify()
}

// Remove drops the records contributed by the given resource.
func (b *Builder) Remove(key SourceKey) {
	b.mu.Lock()
	_, existed := b.sources[key]
	delete(b.sources, key)
	b.mu.Unlock()
	if existed {
		b.notify()
	}
}

func validate(rec dns.Record) error {
	if rec.Hostname == "" {
		return fmt.Errorf("empty hostname")
	}
	switch rec.Type {
	case dns.TypeA, dns.TypeAAAA, dns.TypeCNAME, dns.TypeTXT:
	default:
		return fmt.Errorf("unsupported record type %q", rec.Type)
	}
	if rec.Value == "" {
		return fmt.Errorf("empty value")
	}
	return nil
}

// Snapshot folds all contributions into the current desired set, keyed
// by hostname+type. When two resources declare the same hostname+type
// with different values the later-observed one wins and the conflict is
// logged. Every managed hostname additionally gets a TXT ownership
// sibling. The result is sorted for determinism.
func (b *Builder) Snapshot() []dns.Record {
	b.mu.Lock()
	entries := make([]sourceEntry, 0, len(b.sources))
	keys := make(map[uint64]SourceKey, len(b.sources))
	for key, e := range b.sources {
		entries = append(entries, e)
		keys[e.seq] = key
	}
	b.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	type recordKey struct{ hostname, typ string }
	merged := make(map[recordKey]dns.Record)
	origin := make(map[recordKey]SourceKey)
	hostnames := make(map[string]bool)

	for _, e := range entries {
		src := keys[e.seq]
		for _, rec := range e.records {
			k := recordKey{rec.Hostname, rec.Type}
			if prev, ok := merged[k]; ok && prev.Value != rec.Value {
				b.log.Info("conflicting declarations for hostname, later-observed wins",
					"hostname", rec.Hostname, "type", rec.Type,
					"kept", rec.Value, "dropped", prev.Value,
					"winner", src.String(), "loser", origin[k].String())
			}
			merged[k] = rec
			origin[k] = src
			hostnames[rec.Hostname] = true
		}
	}

	// Ownership markers. A user-declared TXT on a managed hostname would
	// collide with the marker; the marker wins.
	for hostname := range hostnames {
		k := recordKey{hostname, dns.TypeTXT}
		if prev, ok := merged[k]; ok && !dns.IsOwnershipValue(prev.Value) {
			b.log.Info("declared TXT record shadowed by ownership marker", "hostname", hostname, "dropped", prev.Value)
		}
		merged[k] = dns.Record{
			Hostname: hostname,
			Type:     dns.TypeTXT,
			Value:    dns.OwnershipValue(b.owner),
		}
	}

	out := make([]dns.Record, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].Type < out[j].Type
	})
	return out
}
