package sync

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

// Result is the outcome of one planned operation.
type Result struct {
	Change   Change
	Err      error
	Attempts int
}

// Executor applies a changeset against the provider with bounded
// concurrency. Transient errors are retried with exponential backoff up
// to the attempt ceiling; permanent errors abandon the operation. One
// operation's failure never blocks its siblings.
type Executor struct {
	Provider      dns.Provider
	Zone          string
	MaxConcurrent int
	MaxAttempts   int
	Log           logr.Logger

	// BaseDelay is the initial backoff step; tests shrink it.
	BaseDelay time.Duration
}

// Apply executes every change and returns one result per change, in the
// changeset's order. Cancellation stops new dispatches and pending
// retries; a provider call already in flight is left to finish.
func (e *Executor) Apply(ctx context.Context, changes []Change) []Result {
	results := make([]Result, len(changes))
	sem := make(chan struct{}, e.maxConcurrent())
	var wg sync.WaitGroup

	for i, change := range changes {
		if ctx.Err() != nil {
			for j := i; j < len(changes); j++ {
				results[j] = Result{Change: changes[j], Err: ctx.Err()}
			}
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, change Change) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.applyOne(ctx, change)
		}(i, change)
	}
	wg.Wait()
	return results
}

func (e *Executor) maxConcurrent() int {
	if e.MaxConcurrent > 0 {
		return e.MaxConcurrent
	}
	return 1
}

func (e *Executor) applyOne(ctx context.Context, change Change) Result {
	backoff := wait.Backoff{
		Duration: e.baseDelay(),
		Factor:   2,
		Jitter:   0.1,
		Steps:    e.maxAttempts(),
	}

	res := Result{Change: change}
	for {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		res.Attempts++
		err := e.dispatch(ctx, change)
		if err == nil {
			res.Err = nil
			recordApplied(change.Op, true)
			return res
		}
		res.Err = err

		if !dns.IsTransient(err) {
			e.Log.Error(err, "operation failed permanently, abandoning",
				"op", change.Op, "hostname", change.Record.Hostname, "type", change.Record.Type)
			recordApplied(change.Op, false)
			return res
		}
		if res.Attempts >= e.maxAttempts() {
			e.Log.Error(err, "retries exhausted",
				"op", change.Op, "hostname", change.Record.Hostname, "type", change.Record.Type,
				"attempts", res.Attempts)
			recordApplied(change.Op, false)
			return res
		}

		delay := backoff.Step()
		e.Log.V(1).Info("transient error, backing off",
			"op", change.Op, "hostname", change.Record.Hostname, "delay", delay.String())
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		case <-time.After(delay):
		}
	}
}

func (e *Executor) dispatch(ctx context.Context, change Change) error {
	// Cancellation is honored before attempts and backoff sleeps; a call
	// that has been dispatched runs to completion so shutdown cannot
	// leave a hostname half-written (data record without its ownership
	// marker, or the reverse).
	ctx = context.WithoutCancel(ctx)
	switch change.Op {
	case OpCreate:
		_, err := e.Provider.Create(ctx, e.Zone, change.Record)
		return err
	case OpUpdate:
		return e.Provider.Update(ctx, e.Zone, change.ProviderID, change.Record)
	case OpDelete:
		return e.Provider.Delete(ctx, e.Zone, change.ProviderID)
	}
	return nil
}

func (e *Executor) maxAttempts() int {
	if e.MaxAttempts > 0 {
		return e.MaxAttempts
	}
	return 1
}

func (e *Executor) baseDelay() time.Duration {
	if e.BaseDelay > 0 {
		return e.BaseDelay
	}
	return 500 * time.Millisecond
}
