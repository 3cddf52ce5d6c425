package sync

import (
	"sort"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

// Op is a planned provider operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one entry of a changeset. Record carries the desired data
// for creates and updates, and the actual record for deletes.
// ProviderID is set for updates and deletes.
type Change struct {
	Op         Op
	Record     dns.Record
	ProviderID string
}

// Conflict reports a desired hostname that collides with records not
// owned by this instance. Conflicts are never auto-resolved.
type Conflict struct {
	Hostname string
	Desired  dns.Record
	Foreign  dns.Record
}

// Plan is the outcome of diffing desired against actual state. Built
// fresh each cycle, never persisted.
type Plan struct {
	Changes   []Change
	Conflicts []Conflict
}

// Empty reports whether the plan contains no operations.
func (p *Plan) Empty() bool {
	return len(p.Changes) == 0
}

type recordKey struct {
	hostname string
	typ      string
}

// BuildPlan computes the changeset that drives the actual-owned set
// toward the desired set. Pure function of its inputs:
//
//   - desired record with no owned match and no foreign record at the
//     hostname: Create
//   - desired record whose hostname is occupied by foreign records:
//     skipped, one Conflict per hostname
//   - owned match differing in value, TTL, or proxied flag: Update
//   - owned record no longer desired: Delete
//
// The changeset is ordered deletes, updates, creates so a hostname
// whose record type changes never holds both types at once. Within
// deletes the ownership TXT sorts last, within creates first, so a
// hostname is never left with data records and no marker.
func BuildPlan(desired, owned, foreign []dns.Record) *Plan {
	ownedByKey := make(map[recordKey]dns.Record, len(owned))
	for _, rec := range owned {
		ownedByKey[recordKey{rec.Hostname, rec.Type}] = rec
	}
	foreignByHostname := make(map[string]dns.Record, len(foreign))
	for _, rec := range foreign {
		if _, ok := foreignByHostname[rec.Hostname]; !ok {
			foreignByHostname[rec.Hostname] = rec
		}
	}
	desiredByKey := make(map[recordKey]bool, len(desired))
	for _, rec := range desired {
		desiredByKey[recordKey{rec.Hostname, rec.Type}] = true
	}

	plan := &Plan{}
	conflicted := make(map[string]bool)

	var deletes, updates, creates []Change
	for _, rec := range desired {
		existing, ok := ownedByKey[recordKey{rec.Hostname, rec.Type}]
		if ok {
			if !equal(rec, existing) {
				updates = append(updates, Change{Op: OpUpdate, Record: rec, ProviderID: existing.ID})
			}
			continue
		}
		if f, collides := foreignByHostname[rec.Hostname]; collides {
			if !conflicted[rec.Hostname] {
				conflicted[rec.Hostname] = true
				plan.Conflicts = append(plan.Conflicts, Conflict{Hostname: rec.Hostname, Desired: rec, Foreign: f})
			}
			continue
		}
		creates = append(creates, Change{Op: OpCreate, Record: rec})
	}

	for _, rec := range owned {
		if !desiredByKey[recordKey{rec.Hostname, rec.Type}] {
			deletes = append(deletes, Change{Op: OpDelete, Record: rec, ProviderID: rec.ID})
		}
	}

	sortChanges(deletes, true)
	sortChanges(updates, false)
	sortChanges(creates, false)
	plan.Changes = append(plan.Changes, deletes...)
	plan.Changes = append(plan.Changes, updates...)
	plan.Changes = append(plan.Changes, creates...)
	return plan
}

// equal compares the fields an update would change. A desired TTL of 0
// delegates to the provider default, so it matches whatever TTL the
// provider assigned at create time. The proxied flag only participates
// for record types the provider can proxy.
func equal(desired, actual dns.Record) bool {
	if desired.Value != actual.Value {
		return false
	}
	if desired.TTL != 0 && desired.TTL != actual.TTL {
		return false
	}
	if desired.SupportsProxy() && desired.Proxied != actual.Proxied {
		return false
	}
	return true
}

// sortChanges orders changes by hostname then type. With txtLast the
// ownership TXT sorts after its siblings; otherwise before.
func sortChanges(changes []Change, txtLast bool) {
	sort.SliceStable(changes, func(i, j int) bool {
		a, b := changes[i].Record, changes[j].Record
		if a.Hostname != b.Hostname {
			return a.Hostname < b.Hostname
		}
		aTXT := a.Type == dns.TypeTXT
		bTXT := b.Type == dns.TypeTXT
		if aTXT != bTXT {
			if txtLast {
				return bTXT
			}
			return aTXT
		}
		return a.Type < b.Type
	})
}
