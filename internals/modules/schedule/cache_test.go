package schedule

import (
	"context"
	"testing"
	"time"

	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testSnap(intervalSec int) monitor.Snapshot {
	return monitor.Snapshot{
		ID:          uuid.New(),
		Name:        "api",
		Type:        monitor.TypeHTTP,
		Target:      "https://example.com",
		IntervalSec: intervalSec,
		Active:      true,
	}
}

func TestCache_AddAndDueNow(t *testing.T) {
	c := NewCache()
	now := time.Now()

	snap := testSnap(60)
	c.Add(snap, now)
	require.Equal(t, 1, c.Len())

	due := c.DueNow(now)
	require.Len(t, due, 1)
	require.Equal(t, snap.ID, due[0].ID)

	// claimed by the first sweep, next run is one interval out
	require.Empty(t, c.DueNow(now))
	require.Empty(t, c.DueNow(now.Add(59*time.Second)))
	require.Len(t, c.DueNow(now.Add(60*time.Second)), 1)
}

func TestCache_SeedRunsEverythingImmediately(t *testing.T) {
	c := NewCache()
	now := time.Now()

	snaps := []monitor.Snapshot{testSnap(60), testSnap(60), testSnap(60), testSnap(60)}
	c.Seed(snaps, now)
	require.Equal(t, 4, c.Len())

	// every seeded monitor is due on the first sweep after boot
	require.Len(t, c.DueNow(now), 4)
	require.Empty(t, c.DueNow(now))
}

func TestCache_AddIgnoresInactive(t *testing.T) {
	c := NewCache()

	snap := testSnap(60)
	snap.Active = false
	c.Add(snap, time.Now())

	require.Equal(t, 0, c.Len())
}

func TestCache_UpdatePreservesSchedule(t *testing.T) {
	c := NewCache()
	now := time.Now()

	snap := testSnap(60)
	c.Add(snap, now)
	require.Len(t, c.DueNow(now), 1)

	// accumulate a failure streak
	_, _, err := c.Record(context.Background(), snap.ID, false, 100, now)
	require.NoError(t, err)

	edited := snap
	edited.Target = "https://example.org"
	require.True(t, c.Update(edited))

	// the edit neither reschedules nor resets the streak
	require.Empty(t, c.DueNow(now))
	prev, failures, err := c.Record(context.Background(), snap.ID, false, 100, now)
	require.NoError(t, err)
	require.Equal(t, monitor.StatusDown, prev)
	require.Equal(t, 2, failures)

	require.False(t, c.Update(testSnap(60)))
}

func TestCache_PauseAndResume(t *testing.T) {
	c := NewCache()
	now := time.Now()

	snap := testSnap(60)
	c.Add(snap, now)

	// build up a down state
	_, _, _ = c.Record(context.Background(), snap.ID, false, 0, now)
	_, _, _ = c.Record(context.Background(), snap.ID, false, 0, now)

	require.True(t, c.Pause(snap.ID))
	require.Empty(t, c.DueNow(now.Add(time.Hour)))

	c.Resume(snap, now)
	due := c.DueNow(now)
	require.Len(t, due, 1)

	// resume wiped the streak and status
	prev, failures, err := c.Record(context.Background(), snap.ID, false, 0, now)
	require.NoError(t, err)
	require.Equal(t, monitor.StatusPending, prev)
	require.Equal(t, 1, failures)

	require.False(t, c.Pause(uuid.New()))
}

func TestCache_RecordStreak(t *testing.T) {
	c := NewCache()
	now := time.Now()
	snap := testSnap(60)
	c.Add(snap, now)

	ctx := context.Background()

	prev, failures, _ := c.Record(ctx, snap.ID, false, 0, now)
	require.Equal(t, monitor.StatusPending, prev)
	require.Equal(t, 1, failures)

	prev, failures, _ = c.Record(ctx, snap.ID, false, 0, now)
	require.Equal(t, monitor.StatusDown, prev)
	require.Equal(t, 2, failures)

	// a success resets the streak
	prev, failures, _ = c.Record(ctx, snap.ID, true, 12, now)
	require.Equal(t, monitor.StatusDown, prev)
	require.Equal(t, 0, failures)

	prev, failures, _ = c.Record(ctx, snap.ID, false, 0, now)
	require.Equal(t, monitor.StatusUp, prev)
	require.Equal(t, 1, failures)
}

func TestCache_RecordPushesNextRunPastCompletion(t *testing.T) {
	c := NewCache()
	now := time.Now()
	snap := testSnap(60)
	c.Add(snap, now)

	require.Len(t, c.DueNow(now), 1)

	// the check ran long and finished after its claimed slot expired
	finished := now.Add(90 * time.Second)
	_, _, err := c.Record(context.Background(), snap.ID, true, 90000, finished)
	require.NoError(t, err)

	// the next run is a full interval past completion, never in the past
	require.Empty(t, c.DueNow(finished))
	require.Empty(t, c.DueNow(finished.Add(59*time.Second)))
	require.Len(t, c.DueNow(finished.Add(60*time.Second)), 1)
}

func TestCache_Remove(t *testing.T) {
	c := NewCache()
	now := time.Now()
	snap := testSnap(60)
	c.Add(snap, now)

	c.Remove(snap.ID)
	require.Equal(t, 0, c.Len())
	require.Empty(t, c.DueNow(now))
}
