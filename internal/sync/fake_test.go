package sync

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

// fakeProvider is an in-memory dns.Provider with injectable failures,
// used across the sync tests.
type fakeProvider struct {
	mu      sync.Mutex
	records map[string]dns.Record // id → record
	nextID  int

	listErr   error
	createErr func(record dns.Record) error
	updateErr func(id string) error
	deleteErr func(id string) error

	// delay simulates call latency, applied outside the store lock. The
	// context is checked after it elapses, so a call whose context is
	// cancelled mid-flight fails the way a real HTTP client's would.
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{records: make(map[string]dns.Record)}
}

func (f *fakeProvider) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
}

func (f *fakeProvider) maxObserved() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeProvider) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeProvider) List(ctx context.Context, _ string) ([]dns.Record, error) {
	f.enter()
	defer f.leave()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]dns.Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeProvider) Create(ctx context.Context, _ string, record dns.Record) (string, error) {
	f.enter()
	defer f.leave()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		if err := f.createErr(record); err != nil {
			return "", err
		}
	}
	f.nextID++
	id := "rec-" + strconv.Itoa(f.nextID)
	record.ID = id
	f.records[id] = record
	return id, nil
}

func (f *fakeProvider) Update(ctx context.Context, _ string, id string, record dns.Record) error {
	f.enter()
	defer f.leave()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		if err := f.updateErr(id); err != nil {
			return err
		}
	}
	if _, ok := f.records[id]; !ok {
		return fmt.Errorf("fake: no record %q", id)
	}
	record.ID = id
	f.records[id] = record
	return nil
}

func (f *fakeProvider) Delete(ctx context.Context, _ string, id string) error {
	f.enter()
	defer f.leave()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		if err := f.deleteErr(id); err != nil {
			return err
		}
	}
	if _, ok := f.records[id]; !ok {
		return fmt.Errorf("fake: no record %q", id)
	}
	delete(f.records, id)
	return nil
}

// seed inserts a record directly into the store and returns its ID.
func (f *fakeProvider) seed(record dns.Record) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "rec-" + strconv.Itoa(f.nextID)
	record.ID = id
	f.records[id] = record
	return id
}

func (f *fakeProvider) all() []dns.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dns.Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out
}
