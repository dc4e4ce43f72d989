package monitor

import (
	"context"
	"time"

	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

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

const snapshotColumns = `
	id, team_id, name, type, target,
	method, headers, request_body, expected_status, keyword, keyword_mode, ssl_check,
	port, protocol, record_type, expected_value,
	heartbeat_interval_sec, cron_expr, grace_sec, last_heartbeat, last_cron_run,
	interval_sec, timeout_ms, alert_after, ssl_notified_day, active, current_incident_id`

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var s Snapshot
	var method, requestBody, keyword, keywordMode, protocol, recordType, expectedValue, cronExpr pgtype.Text
	var lastHeartbeat, lastCronRun pgtype.Timestamptz
	var sslNotifiedDay pgtype.Int4
	var currentIncident pgtype.UUID
	var id, teamID pgtype.UUID

	err := row.Scan(
		&id, &teamID, &s.Name, &s.Type, &s.Target,
		&method, &s.Headers, &requestBody, &s.ExpectedStatus, &keyword, &keywordMode, &s.SSLCheck,
		&s.Port, &protocol, &recordType, &expectedValue,
		&s.HeartbeatIntervalSec, &cronExpr, &s.GraceSec, &lastHeartbeat, &lastCronRun,
		&s.IntervalSec, &s.TimeoutMS, &s.AlertAfter, &sslNotifiedDay, &s.Active, &currentIncident,
	)
	if err != nil {
		return Snapshot{}, err
	}

	s.ID = utils.FromPgUUID(id)
	s.TeamID = utils.FromPgUUID(teamID)
	s.Method = utils.FromPgText(method)
	s.RequestBody = utils.FromPgText(requestBody)
	s.Keyword = utils.FromPgText(keyword)
	s.KeywordMode = utils.FromPgText(keywordMode)
	s.Protocol = utils.FromPgText(protocol)
	s.RecordType = utils.FromPgText(recordType)
	s.ExpectedValue = utils.FromPgText(expectedValue)
	s.CronExpr = utils.FromPgText(cronExpr)
	s.LastHeartbeat = utils.FromPgTimestamptz(lastHeartbeat)
	s.LastCronRun = utils.FromPgTimestamptz(lastCronRun)
	s.SSLNotifiedDay = int(utils.FromPgInt32(sslNotifiedDay))
	s.CurrentIncidentID = utils.FromPgUUIDPtr(currentIncident)

	return s, nil
}

func (r *Repository) ListActiveMonitors(ctx context.Context) ([]Snapshot, error) {
	const op string = "repo.monitor.list_active"

	rows, err := r.pool.Query(ctx, `SELECT `+snapshotColumns+` FROM monitors WHERE active = true`)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	return snaps, nil
}

func (r *Repository) GetMonitor(ctx context.Context, monitorID uuid.UUID) (Snapshot, error) {
	const op string = "repo.monitor.get"

	row := r.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM monitors WHERE id = $1`,
		utils.ToPgUUID(monitorID),
	)

	s, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return s, nil
}

func (r *Repository) UpdateMonitorStatus(ctx context.Context, monitorID uuid.UUID, upd StatusUpdate) error {
	const op string = "repo.monitor.update_status"

	var sslExpiresAt pgtype.Timestamptz
	var sslDaysLeft pgtype.Int4
	if !upd.SSLExpiresAt.IsZero() {
		sslExpiresAt = utils.ToPgTimestamptz(upd.SSLExpiresAt)
		sslDaysLeft = pgtype.Int4{Int32: int32(upd.SSLDaysLeft), Valid: true}
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE monitors
		SET last_status = $2,
		    last_checked_at = $3,
		    last_response_ms = $4,
		    last_error = $5,
		    failures = $6,
		    ssl_expires_at = COALESCE($7, ssl_expires_at),
		    ssl_days_left = COALESCE($8, ssl_days_left)
		WHERE id = $1`,
		utils.ToPgUUID(monitorID),
		string(upd.Status),
		utils.ToPgTimestamptz(upd.CheckedAt),
		upd.ResponseMS,
		utils.ToPgText(upd.LastError),
		upd.Failures,
		sslExpiresAt,
		sslDaysLeft,
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

// MarkSSLAlerted stores the expiry threshold last alerted for the
// monitor's certificate; zero clears the marker after a renewal.
func (r *Repository) MarkSSLAlerted(ctx context.Context, monitorID uuid.UUID, daysRemaining int) error {
	const op string = "repo.monitor.mark_ssl_alerted"

	_, err := r.pool.Exec(ctx,
		`UPDATE monitors SET ssl_notified_day = $2 WHERE id = $1`,
		utils.ToPgUUID(monitorID),
		daysRemaining,
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

func (r *Repository) SetCurrentIncident(ctx context.Context, monitorID uuid.UUID, incidentID *uuid.UUID) error {
	const op string = "repo.monitor.set_current_incident"

	_, err := r.pool.Exec(ctx,
		`UPDATE monitors SET current_incident_id = $2 WHERE id = $1`,
		utils.ToPgUUID(monitorID),
		utils.ToPgUUIDPtr(incidentID),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

func (r *Repository) AppendHistory(ctx context.Context, rec CheckRecord) error {
	const op string = "repo.monitor.append_history"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO monitor_checks (monitor_id, success, status_code, response_ms, error, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		utils.ToPgUUID(rec.MonitorID),
		rec.Success,
		rec.StatusCode,
		rec.ResponseMS,
		utils.ToPgText(rec.Error),
		utils.ToPgTimestamptz(rec.CheckedAt),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

// RecordHeartbeat stores an inbound heartbeat ping. Token lookup rides the
// unique index on ping_token since this sits on a public path.
func (r *Repository) RecordHeartbeat(ctx context.Context, token string, at time.Time) (uuid.UUID, error) {
	const op string = "repo.monitor.record_heartbeat"

	var id pgtype.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE monitors SET last_heartbeat = $2
		WHERE ping_token = $1 AND type = 'heartbeat'
		RETURNING id`,
		token,
		utils.ToPgTimestamptz(at),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, utils.WrapRepoError(op, err, true, r.logger)
	}

	return utils.FromPgUUID(id), nil
}

// RecordCronRun stores an inbound cronjob run report and returns the
// monitor id plus its cron expression for next-run computation.
func (r *Repository) RecordCronRun(ctx context.Context, token string, at time.Time, status string, durationMS int64) (uuid.UUID, string, error) {
	const op string = "repo.monitor.record_cron_run"

	var id pgtype.UUID
	var cronExpr pgtype.Text
	err := r.pool.QueryRow(ctx, `
		UPDATE monitors
		SET last_cron_run = $2, last_cron_status = $3, last_cron_duration_ms = $4
		WHERE ping_token = $1 AND type = 'cronjob'
		RETURNING id, cron_expr`,
		token,
		utils.ToPgTimestamptz(at),
		utils.ToPgText(status),
		durationMS,
	).Scan(&id, &cronExpr)
	if err != nil {
		return uuid.Nil, "", utils.WrapRepoError(op, err, true, r.logger)
	}

	return utils.FromPgUUID(id), utils.FromPgText(cronExpr), nil
}
