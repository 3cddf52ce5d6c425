package sync

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
)

// LoopState is the reconcile loop's coarse state, exposed for probing.
type LoopState string

const (
	StateIdle        LoopState = "idle"
	StateReconciling LoopState = "reconciling"
	StateBackoff     LoopState = "backoff"
)

// DesiredSource supplies the desired record set and signals changes.
// Implemented by state.Builder.
type DesiredSource interface {
	Snapshot() []dns.Record
	Changed() <-chan struct{}
}

// Status is a point-in-time view of loop health.
type Status struct {
	State               LoopState
	LastSuccess         time.Time
	ConsecutiveFailures int
	AuthFailed          bool
}

// CycleResult reports what one reconciliation cycle planned and applied.
type CycleResult struct {
	Plan    *Plan
	Results []Result
}

// Loop drives reconciliation cycles on a fixed interval and on
// debounce-coalesced desired-state changes. Exactly one cycle runs at a
// time; it is the only writer against the zone, which is why the loop
// requires leader election.
type Loop struct {
	Desired  DesiredSource
	Cache    *Cache
	Executor *Executor

	Interval         time.Duration
	Debounce         time.Duration
	Cooldown         time.Duration
	FailureThreshold int
	Log              logr.Logger

	mu                  sync.Mutex
	state               LoopState
	lastSuccess         time.Time
	consecutiveFailures int
	authFailed          bool
}

// Start runs the loop until the context is cancelled. Implements
// manager.Runnable.
func (l *Loop) Start(ctx context.Context) error {
	l.Log.Info("starting reconcile loop", "interval", l.Interval.String(), "debounce", l.Debounce.String())
	l.setState(StateIdle)

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			l.Log.Info("reconcile loop shutting down")
			return nil
		case <-l.Desired.Changed():
			if debounce == nil {
				debounce = time.NewTimer(l.Debounce)
				debounceC = debounce.C
			} else {
				debounce.Reset(l.Debounce)
			}
			continue
		case <-debounceC:
			debounce = nil
			debounceC = nil
		case <-ticker.C:
		}

		if _, err := l.ReconcileOnce(ctx); err != nil {
			l.Log.Error(err, "reconciliation cycle failed")
		}

		if l.failures() >= l.FailureThreshold {
			l.Log.Info("consecutive-failure threshold reached, backing off", "cooldown", l.Cooldown.String())
			l.setState(StateBackoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.Cooldown):
			}
			l.setState(StateIdle)
		}
	}
}

// NeedLeaderElection marks the loop leader-elected: concurrent
// uncoordinated instances on the same zone would race.
func (l *Loop) NeedLeaderElection() bool {
	return true
}

// ReconcileOnce runs one full cycle: snapshot desired state, refresh
// actual state, plan, apply. Also the entry point for tests.
func (l *Loop) ReconcileOnce(ctx context.Context) (CycleResult, error) {
	l.setState(StateReconciling)
	defer l.setState(StateIdle)

	desired := l.Desired.Snapshot()

	if err := l.Cache.Refresh(ctx); err != nil {
		// The previous snapshot, if any, may be arbitrarily wrong by now.
		// Planning deletes against it risks removing records we should
		// keep, and planning creates risks colliding with records we
		// cannot see, so the whole apply is skipped for this cycle.
		l.recordFailure(err)
		cyclesTotal.WithLabelValues("cache_error").Inc()
		return CycleResult{}, fmt.Errorf("refreshing actual state: %w", err)
	}

	snap, _ := l.Cache.Snapshot()
	plan := BuildPlan(desired, snap.Owned, snap.Foreign)
	for _, c := range plan.Conflicts {
		l.Log.Info("ownership conflict: hostname held by foreign records, skipping",
			"hostname", c.Hostname, "desiredType", c.Desired.Type, "foreignType", c.Foreign.Type)
		ownershipConflictsTotal.Inc()
	}
	if plan.Empty() {
		l.recordSuccess()
		cyclesTotal.WithLabelValues("success").Inc()
		return CycleResult{Plan: plan}, nil
	}

	l.Log.Info("applying changeset", "changes", len(plan.Changes), "conflicts", len(plan.Conflicts))
	results := l.Executor.Apply(ctx, plan.Changes)

	var exhausted error
	for _, res := range results {
		if res.Err == nil {
			continue
		}
		if dns.IsAuthFailure(res.Err) {
			l.setAuthFailed(true)
		}
		if exhausted == nil && dns.IsTransient(res.Err) {
			exhausted = res.Err
		}
	}
	if exhausted != nil {
		l.recordFailure(exhausted)
		cyclesTotal.WithLabelValues("apply_error").Inc()
		return CycleResult{Plan: plan, Results: results}, fmt.Errorf("applying changeset: %w", exhausted)
	}

	l.recordSuccess()
	cyclesTotal.WithLabelValues("success").Inc()
	return CycleResult{Plan: plan, Results: results}, nil
}

// ReadyCheck is a healthz.Checker reflecting loop health. The process
// stays up through provider auth failures; it just reports unready and
// keeps retrying on its own schedule.
func (l *Loop) ReadyCheck(_ *http.Request) error {
	if snap, ok := l.Cache.Snapshot(); ok && !snap.Fresh {
		return fmt.Errorf("actual-state cache is stale")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.authFailed {
		return fmt.Errorf("provider authentication failing")
	}
	if l.FailureThreshold > 0 && l.consecutiveFailures >= l.FailureThreshold {
		return fmt.Errorf("%d consecutive failed cycles", l.consecutiveFailures)
	}
	if l.lastSuccess.IsZero() {
		return fmt.Errorf("no successful reconciliation cycle yet")
	}
	return nil
}

// CurrentStatus returns a snapshot of loop health.
func (l *Loop) CurrentStatus() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		State:               l.state,
		LastSuccess:         l.lastSuccess,
		ConsecutiveFailures: l.consecutiveFailures,
		AuthFailed:          l.authFailed,
	}
}

func (l *Loop) setState(s LoopState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Loop) setAuthFailed(v bool) {
	l.mu.Lock()
	l.authFailed = v
	l.mu.Unlock()
}

func (l *Loop) failures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consecutiveFailures
}

func (l *Loop) recordFailure(err error) {
	l.mu.Lock()
	l.consecutiveFailures++
	if dns.IsAuthFailure(err) {
		l.authFailed = true
	}
	consecutiveFailuresGauge.Set(float64(l.consecutiveFailures))
	l.mu.Unlock()
}

func (l *Loop) recordSuccess() {
	l.mu.Lock()
	l.lastSuccess = time.Now()
	l.consecutiveFailures = 0
	l.authFailed = false
	consecutiveFailuresGauge.Set(0)
	lastSuccessGauge.Set(float64(l.lastSuccess.Unix()))
	l.mu.Unlock()
}
