package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	mu    sync.Mutex
	snaps map[uuid.UUID]monitor.Snapshot
}

func (l *fakeLoader) GetMonitor(ctx context.Context, monitorID uuid.UUID) (monitor.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, ok := l.snaps[monitorID]
	if !ok {
		return monitor.Snapshot{}, apperror.New(apperror.NotFound, "repo.monitor.get", nil)
	}
	return snap, nil
}

type fakeChecker struct {
	mu      sync.Mutex
	result  check.Result
	checked []uuid.UUID
}

func (c *fakeChecker) Execute(ctx context.Context, snap monitor.Snapshot) check.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checked = append(c.checked, snap.ID)
	return c.result
}

func (c *fakeChecker) checkedIDs() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uuid.UUID(nil), c.checked...)
}

func newTestRunner(cache *Cache, loader *fakeLoader, checker *fakeChecker) (*Runner, *fakeMonitorStore) {
	proc, monitors, _, _ := newTestProcessor(cache)
	logger := proc.logger
	return NewRunner(time.Second, 10, cache, loader, checker, proc, logger), monitors
}

func TestRunner_SweepRunsDueChecks(t *testing.T) {
	cache := NewCache()
	loader := &fakeLoader{snaps: map[uuid.UUID]monitor.Snapshot{}}
	checker := &fakeChecker{result: check.Result{Success: true, StatusCode: 200}}
	runner, monitors := newTestRunner(cache, loader, checker)

	now := time.Now()
	var want []uuid.UUID
	for range 3 {
		snap := testSnap(60)
		loader.snaps[snap.ID] = snap
		cache.Add(snap, now)
		want = append(want, snap.ID)
	}

	runner.sweep(context.Background())

	require.ElementsMatch(t, want, checker.checkedIDs())
	require.Len(t, monitors.history, 3)

	st := runner.Status()
	require.Equal(t, 3, st.Monitors)
	require.Equal(t, int64(3), st.ChecksRun)

	// everything was claimed, an immediate second sweep is a no-op
	runner.sweep(context.Background())
	require.Len(t, checker.checkedIDs(), 3)
}

func TestRunner_RemovesDeletedMonitor(t *testing.T) {
	cache := NewCache()
	loader := &fakeLoader{snaps: map[uuid.UUID]monitor.Snapshot{}}
	checker := &fakeChecker{}
	runner, _ := newTestRunner(cache, loader, checker)

	// scheduled but no longer in the database
	snap := testSnap(60)
	cache.Add(snap, time.Now())

	runner.sweep(context.Background())

	require.Empty(t, checker.checkedIDs())
	require.Equal(t, 0, cache.Len())
}

func TestRunner_PausesDeactivatedMonitor(t *testing.T) {
	cache := NewCache()
	loader := &fakeLoader{snaps: map[uuid.UUID]monitor.Snapshot{}}
	checker := &fakeChecker{}
	runner, _ := newTestRunner(cache, loader, checker)

	snap := testSnap(60)
	snap.Active = false
	loader.snaps[snap.ID] = snap
	cache.Add(snap, time.Now())

	runner.sweep(context.Background())

	require.Empty(t, checker.checkedIDs())
	// entry kept for a later resume, just off the sweep path
	require.Equal(t, 1, cache.Len())
	require.Empty(t, cache.DueNow(time.Now().Add(time.Hour)))
}

func TestRunner_UsesFreshSnapshot(t *testing.T) {
	cache := NewCache()
	loader := &fakeLoader{snaps: map[uuid.UUID]monitor.Snapshot{}}
	checker := &fakeChecker{result: check.Result{Success: true}}
	runner, _ := newTestRunner(cache, loader, checker)

	snap := testSnap(60)
	cache.Add(snap, time.Now())

	// the database row changed after scheduling
	edited := snap
	edited.Target = "https://example.org"
	loader.snaps[snap.ID] = edited

	runner.runOne(context.Background(), snap)

	cache.mu.RLock()
	got := cache.entries[snap.ID].Snapshot
	cache.mu.RUnlock()
	require.Equal(t, "https://example.org", got.Target)
}
