package incident

import (
	"context"
	"testing"
	"time"

	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	created  []Incident
	resolved []uuid.UUID
	timeline []TimelineEntry
}

func (s *fakeStore) Create(ctx context.Context, inc Incident) (Incident, error) {
	inc.ID = uuid.New()
	s.created = append(s.created, inc)
	return inc, nil
}

func (s *fakeStore) Resolve(ctx context.Context, incidentID uuid.UUID, resolvedAt time.Time) (Incident, error) {
	s.resolved = append(s.resolved, incidentID)
	return Incident{
		ID:        incidentID,
		Status:    StatusResolved,
		StartedAt: resolvedAt.Add(-10 * time.Minute),
	}, nil
}

func (s *fakeStore) AppendTimeline(ctx context.Context, incidentID uuid.UUID, entry TimelineEntry) error {
	s.timeline = append(s.timeline, entry)
	return nil
}

type fakeLinker struct {
	links    map[uuid.UUID]*uuid.UUID
	sslMarks map[uuid.UUID]int
}

func (l *fakeLinker) SetCurrentIncident(ctx context.Context, monitorID uuid.UUID, incidentID *uuid.UUID) error {
	if l.links == nil {
		l.links = make(map[uuid.UUID]*uuid.UUID)
	}
	l.links[monitorID] = incidentID
	return nil
}

func (l *fakeLinker) MarkSSLAlerted(ctx context.Context, monitorID uuid.UUID, daysRemaining int) error {
	if l.sslMarks == nil {
		l.sslMarks = make(map[uuid.UUID]int)
	}
	l.sslMarks[monitorID] = daysRemaining
	return nil
}

type fakeNotifier struct {
	events   []alert.EventType
	payloads []alert.Payload
}

func (n *fakeNotifier) Notify(ctx context.Context, teamID uuid.UUID, event alert.EventType, payload alert.Payload) {
	n.events = append(n.events, event)
	n.payloads = append(n.payloads, payload)
}

func newTestEngine() (*Engine, *fakeStore, *fakeLinker, *fakeNotifier) {
	store := &fakeStore{}
	linker := &fakeLinker{}
	notifier := &fakeNotifier{}
	logger := zerolog.Nop()
	return NewEngine(store, linker, notifier, &logger), store, linker, notifier
}

func TestEngine_OpensIncidentAndAlerts(t *testing.T) {
	engine, store, linker, notifier := newTestEngine()

	monitorID := uuid.New()
	engine.Apply(context.Background(), Transition{
		MonitorID:   monitorID,
		TeamID:      uuid.New(),
		MonitorName: "checkout",
		Target:      "https://shop.example.com",
		Previous:    monitor.StatusDown,
		Current:     monitor.StatusDown,
		Failures:    2,
		AlertAfter:  2,
		Err:         "request timed out",
		Now:         time.Now(),
	})

	require.Len(t, store.created, 1)
	inc := store.created[0]
	require.Equal(t, "checkout is down", inc.Title)
	require.Equal(t, SeverityMajor, inc.Severity)
	require.Equal(t, OriginAuto, inc.Origin)
	require.Len(t, inc.Timeline, 1)
	require.Equal(t, StatusInvestigating, inc.Timeline[0].Status)

	// monitor now points at the open incident
	require.NotNil(t, linker.links[monitorID])

	require.Equal(t, []alert.EventType{alert.EventDown}, notifier.events)
	require.Equal(t, "request timed out", notifier.payloads[0].Error)
}

func TestEngine_ResolvesIncidentOnRecovery(t *testing.T) {
	engine, store, linker, notifier := newTestEngine()

	monitorID := uuid.New()
	incidentID := uuid.New()
	now := time.Now()

	engine.Apply(context.Background(), Transition{
		MonitorID:         monitorID,
		TeamID:            uuid.New(),
		MonitorName:       "checkout",
		Previous:          monitor.StatusDown,
		Current:           monitor.StatusUp,
		CurrentIncidentID: &incidentID,
		Now:               now,
	})

	require.Equal(t, []uuid.UUID{incidentID}, store.resolved)
	require.Len(t, store.timeline, 1)
	require.Equal(t, StatusResolved, store.timeline[0].Status)

	// link cleared
	require.Nil(t, linker.links[monitorID])

	require.Equal(t, []alert.EventType{alert.EventUp}, notifier.events)
	require.Equal(t, 10*time.Minute, notifier.payloads[0].Downtime)
}

func TestEngine_SSLExpiryAlertsOncePerThreshold(t *testing.T) {
	engine, _, linker, notifier := newTestEngine()

	monitorID := uuid.New()
	base := Transition{
		MonitorID: monitorID,
		TeamID:    uuid.New(),
		Previous:  monitor.StatusUp,
		Current:   monitor.StatusUp,
		SSL:       &check.SSLInfo{DaysRemaining: 7},
		Now:       time.Now(),
	}

	// first check at the threshold alerts and persists the marker
	engine.Apply(context.Background(), base)
	require.Equal(t, []alert.EventType{alert.EventSSLExpiry}, notifier.events)
	require.Equal(t, 7, linker.sslMarks[monitorID])

	// later checks the same day carry the marker back in and stay quiet
	marked := base
	marked.SSLNotifiedDay = 7
	engine.Apply(context.Background(), marked)
	require.Len(t, notifier.events, 1)

	// a renewed cert clears the marker so next year's thresholds fire
	renewed := base
	renewed.SSL = &check.SSLInfo{DaysRemaining: 364}
	renewed.SSLNotifiedDay = 7
	engine.Apply(context.Background(), renewed)
	require.Len(t, notifier.events, 1)
	require.Equal(t, 0, linker.sslMarks[monitorID])
}

func TestEngine_RecoveryWithoutOpenIncident(t *testing.T) {
	engine, store, _, notifier := newTestEngine()

	// down blip that never crossed the threshold: nothing to resolve,
	// no recovery alert
	engine.Apply(context.Background(), Transition{
		MonitorID: uuid.New(),
		Previous:  monitor.StatusDown,
		Current:   monitor.StatusUp,
		Now:       time.Now(),
	})

	require.Empty(t, store.resolved)
	require.Empty(t, notifier.events)
}
