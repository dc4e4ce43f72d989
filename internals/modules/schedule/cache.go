package schedule

import (
	"context"
	"sync"
	"time"

	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
)

// Entry is one monitor's scheduling record in the in-memory mode.
type Entry struct {
	Snapshot monitor.Snapshot
	NextRun  time.Time
	Status   monitor.Status
	Failures int
	Paused   bool
}

// Cache holds the schedule for the in-memory execution mode. It is the
// single source of truth for next-run times and failure streaks while the
// process is alive; monitor rows in postgres stay the durable record.
//
// One RWMutex over the whole map. Sweeps touch every entry anyway, so
// per-entry locking buys nothing here.
type Cache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[uuid.UUID]*Entry),
	}
}

// Seed loads the active monitors at startup, each due immediately. Running
// everything once right after boot surfaces real state quickly; the batch
// cap in the runner keeps the burst bounded.
func (c *Cache) Seed(snaps []monitor.Snapshot, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, snap := range snaps {
		c.entries[snap.ID] = &Entry{
			Snapshot: snap,
			NextRun:  now,
			Status:   monitor.StatusPending,
		}
	}
}

// Add schedules a new monitor for an immediate first check. Inactive
// monitors are not scheduled.
func (c *Cache) Add(snap monitor.Snapshot, now time.Time) {
	if !snap.Active {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[snap.ID] = &Entry{
		Snapshot: snap,
		NextRun:  now,
		Status:   monitor.StatusPending,
	}
}

// Update swaps the stored snapshot but keeps the schedule and the failure
// streak, so editing a monitor's config never resets its alerting state or
// causes an extra check. A snapshot that went inactive drops the entry.
func (c *Cache) Update(snap monitor.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[snap.ID]
	if !ok {
		return false
	}
	if !snap.Active {
		delete(c.entries, snap.ID)
		return true
	}
	e.Snapshot = snap
	return true
}

func (c *Cache) Remove(monitorID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, monitorID)
}

// Pause keeps the entry but excludes it from sweeps.
func (c *Cache) Pause(monitorID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[monitorID]
	if !ok {
		return false
	}
	e.Paused = true
	return true
}

// Resume reinserts a monitor with a clean slate: status back to pending,
// streak to zero, next check immediately. Old failures predate the pause
// and must not trip an alert on the first check back.
func (c *Cache) Resume(snap monitor.Snapshot, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[snap.ID] = &Entry{
		Snapshot: snap,
		NextRun:  now,
		Status:   monitor.StatusPending,
	}
}

// DueNow collects monitors whose next run is at or before now and pushes
// their next run one interval out, so an entry is claimed by exactly one
// sweep even when checks outlive the tick.
func (c *Cache) DueNow(now time.Time) []monitor.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []monitor.Snapshot
	for _, e := range c.entries {
		if e.Paused || e.NextRun.After(now) {
			continue
		}
		e.NextRun = now.Add(e.Snapshot.Interval())
		due = append(due, e.Snapshot)
	}
	return due
}

// Record implements State for the in-memory mode.
func (c *Cache) Record(ctx context.Context, monitorID uuid.UUID, success bool, responseMS int64, checkedAt time.Time) (monitor.Status, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[monitorID]
	if !ok {
		// removed mid-check; report as a fresh monitor so downstream
		// logic stays quiet
		if success {
			return monitor.StatusPending, 0, nil
		}
		return monitor.StatusPending, 1, nil
	}

	prev := e.Status
	if success {
		e.Status = monitor.StatusUp
		e.Failures = 0
	} else {
		e.Status = monitor.StatusDown
		e.Failures++
	}

	// a check that outlived its claimed slot must not leave the next run
	// in the past; push it one interval past completion
	if e.NextRun.Before(checkedAt) {
		e.NextRun = checkedAt.Add(e.Snapshot.Interval())
	}
	return prev, e.Failures, nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
