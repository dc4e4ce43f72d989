package alert

import (
	"context"

	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Repository reads alert channels. Channel CRUD belongs to the (external)
// settings layer; the core only ever selects.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger,
	}
}

func (r *Repository) ListChannels(ctx context.Context, teamID uuid.UUID) ([]Channel, error) {
	const op string = "repo.alert.list_channels"

	rows, err := r.pool.Query(ctx, `
		SELECT id, team_id, type, enabled,
		       notify_down, notify_up, notify_ssl_expiry, notify_incident,
		       cooldown_min
		FROM alert_channels
		WHERE team_id = $1`,
		utils.ToPgUUID(teamID),
	)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch Channel
		var id, tID pgtype.UUID

		if err := rows.Scan(
			&id, &tID, &ch.Type, &ch.Enabled,
			&ch.NotifyDown, &ch.NotifyUp, &ch.NotifySSLExpiry, &ch.NotifyIncident,
			&ch.CooldownMin,
		); err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		ch.ID = utils.FromPgUUID(id)
		ch.TeamID = utils.FromPgUUID(tID)
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	return channels, nil
}

// LogSender is the in-tree stand-in for the external channel senders: it
// writes the event as a structured log line.
type LogSender struct {
	logger *zerolog.Logger
}

func NewLogSender(logger *zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, ch Channel, ev Event) error {
	s.logger.Info().
		Str("channel_id", ch.ID.String()).
		Str("channel_type", ch.Type).
		Str("event", string(ev.Type)).
		Str("monitor_id", ev.Payload.MonitorID.String()).
		Str("monitor_name", ev.Payload.MonitorName).
		Str("error", ev.Payload.Error).
		Dur("downtime", ev.Payload.Downtime).
		Int("ssl_days_remaining", ev.Payload.SSLDaysRemaining).
		Msg("alert dispatched")
	return nil
}
