package incident

import (
	"context"
	"fmt"
	"time"

	"pulsewatch/internals/modules/alert"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Store interface {
	Create(ctx context.Context, inc Incident) (Incident, error)
	Resolve(ctx context.Context, incidentID uuid.UUID, resolvedAt time.Time) (Incident, error)
	AppendTimeline(ctx context.Context, incidentID uuid.UUID, entry TimelineEntry) error
}

// MonitorLinker maintains the alerting back references on the monitor
// record: the current-incident link enforcing at most one open auto
// incident per monitor, and the last-notified SSL threshold.
type MonitorLinker interface {
	SetCurrentIncident(ctx context.Context, monitorID uuid.UUID, incidentID *uuid.UUID) error
	MarkSSLAlerted(ctx context.Context, monitorID uuid.UUID, daysRemaining int) error
}

type Notifier interface {
	Notify(ctx context.Context, teamID uuid.UUID, event alert.EventType, payload alert.Payload)
}

// Engine applies the state machine's actions. It is the single incident
// implementation; the tick runner and the queue consumer both call it
// with identical transitions.
type Engine struct {
	incidents Store
	monitors  MonitorLinker
	alerts    Notifier
	logger    *zerolog.Logger
}

func NewEngine(incidents Store, monitors MonitorLinker, alerts Notifier, logger *zerolog.Logger) *Engine {
	return &Engine{
		incidents: incidents,
		monitors:  monitors,
		alerts:    alerts,
		logger:    logger,
	}
}

func (e *Engine) Apply(ctx context.Context, t Transition) {
	acts := Evaluate(t)

	if acts.OpenIncident {
		e.openIncident(ctx, t)
	}

	if acts.ResolveIncident {
		e.resolveIncident(ctx, t)
	}

	if acts.SendSSLExpiry {
		e.alerts.Notify(ctx, t.TeamID, alert.EventSSLExpiry, alert.Payload{
			MonitorID:        t.MonitorID,
			MonitorName:      t.MonitorName,
			Target:           t.Target,
			SSLDaysRemaining: acts.SSLDaysRemaining,
		})
		if err := e.monitors.MarkSSLAlerted(ctx, t.MonitorID, acts.SSLDaysRemaining); err != nil {
			e.logger.Error().
				Err(err).
				Str("monitor_id", t.MonitorID.String()).
				Int("days_remaining", acts.SSLDaysRemaining).
				Msg("failed to mark ssl threshold as alerted")
		}
	}

	if acts.ClearSSLMarker {
		if err := e.monitors.MarkSSLAlerted(ctx, t.MonitorID, 0); err != nil {
			e.logger.Error().
				Err(err).
				Str("monitor_id", t.MonitorID.String()).
				Msg("failed to clear ssl alert marker")
		}
	}
}

func (e *Engine) openIncident(ctx context.Context, t Transition) {
	monitorID := t.MonitorID

	inc := Incident{
		TeamID:      t.TeamID,
		MonitorID:   &monitorID,
		Title:       fmt.Sprintf("%s is down", t.MonitorName),
		Description: t.Err,
		Status:      StatusInvestigating,
		Severity:    SeverityMajor,
		Origin:      OriginAuto,
		Timeline: []TimelineEntry{{
			Status:  StatusInvestigating,
			Message: t.Err,
			At:      t.Now,
			Author:  "system",
		}},
		StartedAt: t.Now,
	}

	created, err := e.incidents.Create(ctx, inc)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("monitor_id", t.MonitorID.String()).
			Msg("failed to create incident")
		return
	}

	if err := e.monitors.SetCurrentIncident(ctx, t.MonitorID, &created.ID); err != nil {
		e.logger.Error().
			Err(err).
			Str("monitor_id", t.MonitorID.String()).
			Str("incident_id", created.ID.String()).
			Msg("failed to link incident to monitor")
	}

	e.alerts.Notify(ctx, t.TeamID, alert.EventDown, alert.Payload{
		MonitorID:   t.MonitorID,
		MonitorName: t.MonitorName,
		Target:      t.Target,
		Error:       t.Err,
	})
}

func (e *Engine) resolveIncident(ctx context.Context, t Transition) {
	if t.CurrentIncidentID == nil {
		// recovered without an open incident (threshold never crossed)
		return
	}

	resolved, err := e.incidents.Resolve(ctx, *t.CurrentIncidentID, t.Now)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("incident_id", t.CurrentIncidentID.String()).
			Msg("failed to resolve incident")
		return
	}

	if err := e.incidents.AppendTimeline(ctx, resolved.ID, TimelineEntry{
		Status:  StatusResolved,
		Message: "monitor recovered",
		At:      t.Now,
		Author:  "system",
	}); err != nil {
		e.logger.Error().
			Err(err).
			Str("incident_id", resolved.ID.String()).
			Msg("failed to append resolution timeline entry")
	}

	if err := e.monitors.SetCurrentIncident(ctx, t.MonitorID, nil); err != nil {
		e.logger.Error().
			Err(err).
			Str("monitor_id", t.MonitorID.String()).
			Msg("failed to clear incident link on monitor")
	}

	e.alerts.Notify(ctx, t.TeamID, alert.EventUp, alert.Payload{
		MonitorID:   t.MonitorID,
		MonitorName: t.MonitorName,
		Target:      t.Target,
		Downtime:    t.Now.Sub(resolved.StartedAt),
	})
}
