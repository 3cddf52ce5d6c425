package sync

import (
	"testing"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

func TestBuildPlan_CreateMissing(t *testing.T) {
	desired := []dns.Record{{Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4"}}

	plan := BuildPlan(desired, nil, nil)

	if len(plan.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", plan.Conflicts)
	}
	if len(plan.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d: %v", len(plan.Changes), plan.Changes)
	}
	c := plan.Changes[0]
	if c.Op != OpCreate || c.Record.Hostname != "www.example.com" || c.Record.Value != "1.2.3.4" {
		t.Errorf("expected create of www.example.com A 1.2.3.4, got %+v", c)
	}
}

func TestBuildPlan_UpdateChanged(t *testing.T) {
	desired := []dns.Record{{Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4"}}
	owned := []dns.Record{{ID: "id-1", Hostname: "www.example.com", Type: dns.TypeA, Value: "9.9.9.9"}}

	plan := BuildPlan(desired, owned, nil)

	if len(plan.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d: %v", len(plan.Changes), plan.Changes)
	}
	c := plan.Changes[0]
	if c.Op != OpUpdate || c.ProviderID != "id-1" || c.Record.Value != "1.2.3.4" {
		t.Errorf("expected update of id-1 to 1.2.3.4, got %+v", c)
	}
}

func TestBuildPlan_DeleteUndesired(t *testing.T) {
	owned := []dns.Record{{ID: "id-1", Hostname: "old.example.com", Type: dns.TypeA, Value: "1.1.1.1"}}

	plan := BuildPlan(nil, owned, nil)

	if len(plan.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d: %v", len(plan.Changes), plan.Changes)
	}
	c := plan.Changes[0]
	if c.Op != OpDelete || c.ProviderID != "id-1" {
		t.Errorf("expected delete of id-1, got %+v", c)
	}
}

func TestBuildPlan_ForeignCollisionSkipped(t *testing.T) {
	desired := []dns.Record{{Hostname: "api.example.com", Type: dns.TypeA, Value: "1.2.3.4"}}
	foreign := []dns.Record{{ID: "f-1", Hostname: "api.example.com", Type: dns.TypeA, Value: "5.6.7.8"}}

	plan := BuildPlan(desired, nil, foreign)

	if len(plan.Changes) != 0 {
		t.Fatalf("expected empty changeset, got %v", plan.Changes)
	}
	if len(plan.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(plan.Conflicts))
	}
	if plan.Conflicts[0].Hostname != "api.example.com" {
		t.Errorf("expected conflict for api.example.com, got %+v", plan.Conflicts[0])
	}
}

func TestBuildPlan_OneConflictPerHostname(t *testing.T) {
	desired := []dns.Record{
		{Hostname: "api.example.com", Type: dns.TypeA, Value: "1.2.3.4"},
		{Hostname: "api.example.com", Type: dns.TypeTXT, Value: dns.OwnershipValue("me")},
	}
	foreign := []dns.Record{{ID: "f-1", Hostname: "api.example.com", Type: dns.TypeCNAME, Value: "elsewhere.net"}}

	plan := BuildPlan(desired, nil, foreign)

	if len(plan.Changes) != 0 {
		t.Fatalf("expected empty changeset, got %v", plan.Changes)
	}
	if len(plan.Conflicts) != 1 {
		t.Fatalf("expected conflicts deduplicated per hostname, got %d", len(plan.Conflicts))
	}
}

func TestBuildPlan_NeverTouchesForeignIDs(t *testing.T) {
	desired := []dns.Record{
		{Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4"},
		{Hostname: "api.example.com", Type: dns.TypeA, Value: "1.2.3.4"},
	}
	owned := []dns.Record{
		{ID: "own-1", Hostname: "www.example.com", Type: dns.TypeA, Value: "9.9.9.9"},
		{ID: "own-2", Hostname: "gone.example.com", Type: dns.TypeA, Value: "8.8.8.8"},
	}
	foreign := []dns.Record{
		{ID: "f-1", Hostname: "api.example.com", Type: dns.TypeA, Value: "5.6.7.8"},
		{ID: "f-2", Hostname: "ext.example.com", Type: dns.TypeCNAME, Value: "elsewhere.net"},
	}

	plan := BuildPlan(desired, owned, foreign)

	foreignIDs := map[string]bool{"f-1": true, "f-2": true}
	for _, c := range plan.Changes {
		if foreignIDs[c.ProviderID] {
			t.Errorf("changeset references foreign record %q: %+v", c.ProviderID, c)
		}
	}
}

func TestBuildPlan_Idempotent(t *testing.T) {
	desired := []dns.Record{
		{Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4", TTL: 300},
		{Hostname: "www.example.com", Type: dns.TypeTXT, Value: dns.OwnershipValue("me")},
	}
	owned := []dns.Record{
		{ID: "id-1", Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4", TTL: 300},
		{ID: "id-2", Hostname: "www.example.com", Type: dns.TypeTXT, Value: dns.OwnershipValue("me")},
	}

	plan := BuildPlan(desired, owned, nil)

	if !plan.Empty() {
		t.Errorf("expected empty plan for converged state, got %v", plan.Changes)
	}
}

func TestBuildPlan_DefaultTTLMatchesProviderAssigned(t *testing.T) {
	// A desired TTL of 0 means "provider default"; the provider echoes
	// back whatever it assigned, and that must not read as drift.
	desired := []dns.Record{{Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4"}}
	owned := []dns.Record{{ID: "id-1", Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4", TTL: 1}}

	plan := BuildPlan(desired, owned, nil)
	if !plan.Empty() {
		t.Errorf("expected provider-assigned TTL to satisfy a default-TTL record, got %v", plan.Changes)
	}

	// An explicit TTL still drives an update.
	desired = []dns.Record{{Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4", TTL: 300}}
	plan = BuildPlan(desired, owned, nil)
	if len(plan.Changes) != 1 || plan.Changes[0].Op != OpUpdate {
		t.Fatalf("expected explicit TTL change to plan an update, got %v", plan.Changes)
	}
}

func TestBuildPlan_ProxiedDrivesUpdate(t *testing.T) {
	desired := []dns.Record{{Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4", Proxied: true}}
	owned := []dns.Record{{ID: "id-1", Hostname: "www.example.com", Type: dns.TypeA, Value: "1.2.3.4", Proxied: false}}

	plan := BuildPlan(desired, owned, nil)
	if len(plan.Changes) != 1 || plan.Changes[0].Op != OpUpdate {
		t.Fatalf("expected proxied change to plan an update, got %v", plan.Changes)
	}

	// TXT records cannot be proxied; the flag must not force updates.
	desired = []dns.Record{{Hostname: "www.example.com", Type: dns.TypeTXT, Value: "x", Proxied: true}}
	owned = []dns.Record{{ID: "id-2", Hostname: "www.example.com", Type: dns.TypeTXT, Value: "x", Proxied: false}}
	plan = BuildPlan(desired, owned, nil)
	if !plan.Empty() {
		t.Errorf("expected no update for proxied flag on TXT, got %v", plan.Changes)
	}
}

func TestBuildPlan_OrderDeleteUpdateCreate(t *testing.T) {
	// Hostname switches from CNAME to A: the CNAME delete must precede
	// the A create.
	desired := []dns.Record{
		{Hostname: "app.example.com", Type: dns.TypeA, Value: "1.2.3.4"},
		{Hostname: "kept.example.com", Type: dns.TypeA, Value: "2.2.2.2"},
	}
	owned := []dns.Record{
		{ID: "id-1", Hostname: "app.example.com", Type: dns.TypeCNAME, Value: "lb.example.com"},
		{ID: "id-2", Hostname: "kept.example.com", Type: dns.TypeA, Value: "3.3.3.3"},
	}

	plan := BuildPlan(desired, owned, nil)

	if len(plan.Changes) != 3 {
		t.Fatalf("expected 3 changes, got %d: %v", len(plan.Changes), plan.Changes)
	}
	if plan.Changes[0].Op != OpDelete {
		t.Errorf("expected delete first, got %+v", plan.Changes[0])
	}
	if plan.Changes[1].Op != OpUpdate {
		t.Errorf("expected update second, got %+v", plan.Changes[1])
	}
	if plan.Changes[2].Op != OpCreate {
		t.Errorf("expected create last, got %+v", plan.Changes[2])
	}
}

func TestBuildPlan_OwnershipMarkerOrdering(t *testing.T) {
	owner := dns.OwnershipValue("me")

	// Creating a hostname: marker goes in before the data record.
	desired := []dns.Record{
		{Hostname: "new.example.com", Type: dns.TypeA, Value: "1.2.3.4"},
		{Hostname: "new.example.com", Type: dns.TypeTXT, Value: owner},
	}
	plan := BuildPlan(desired, nil, nil)
	if len(plan.Changes) != 2 {
		t.Fatalf("expected 2 creates, got %v", plan.Changes)
	}
	if plan.Changes[0].Record.Type != dns.TypeTXT {
		t.Errorf("expected ownership TXT created first, got %v", plan.Changes[0].Record.Type)
	}

	// Tearing a hostname down: marker goes out last.
	owned := []dns.Record{
		{ID: "id-1", Hostname: "gone.example.com", Type: dns.TypeA, Value: "1.2.3.4"},
		{ID: "id-2", Hostname: "gone.example.com", Type: dns.TypeTXT, Value: owner},
	}
	plan = BuildPlan(nil, owned, nil)
	if len(plan.Changes) != 2 {
		t.Fatalf("expected 2 deletes, got %v", plan.Changes)
	}
	if plan.Changes[1].Record.Type != dns.TypeTXT {
		t.Errorf("expected ownership TXT deleted last, got %v", plan.Changes[1].Record.Type)
	}
}
