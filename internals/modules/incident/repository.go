package incident

import (
	"context"
	"encoding/json"
	"time"

	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
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

func (r *Repository) Create(ctx context.Context, inc Incident) (Incident, error) {
	const op string = "repo.incident.create"

	timeline, err := json.Marshal(inc.Timeline)
	if err != nil {
		return Incident{}, apperror.New(apperror.Internal, op, err)
	}

	var id pgtype.UUID
	err = r.pool.QueryRow(ctx, `
		INSERT INTO incidents (team_id, monitor_id, title, description, status, severity, origin, timeline, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		utils.ToPgUUID(inc.TeamID),
		utils.ToPgUUIDPtr(inc.MonitorID),
		inc.Title,
		utils.ToPgText(inc.Description),
		string(inc.Status),
		string(inc.Severity),
		string(inc.Origin),
		timeline,
		utils.ToPgTimestamptz(inc.StartedAt),
	).Scan(&id)
	if err != nil {
		return Incident{}, utils.WrapRepoError(op, err, false, r.logger)
	}

	inc.ID = utils.FromPgUUID(id)
	return inc, nil
}

// Resolve closes an open incident. Resolving an already resolved incident
// is a no-op at the SQL level (status guard), reported as not found.
func (r *Repository) Resolve(ctx context.Context, incidentID uuid.UUID, resolvedAt time.Time) (Incident, error) {
	const op string = "repo.incident.resolve"

	var startedAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		UPDATE incidents
		SET status = 'resolved',
		    resolved_at = $2,
		    duration_ms = (EXTRACT(EPOCH FROM ($2::timestamptz - started_at)) * 1000)::bigint
		WHERE id = $1 AND status != 'resolved'
		RETURNING started_at`,
		utils.ToPgUUID(incidentID),
		utils.ToPgTimestamptz(resolvedAt),
	).Scan(&startedAt)
	if err != nil {
		return Incident{}, utils.WrapRepoError(op, err, true, r.logger)
	}

	started := utils.FromPgTimestamptz(startedAt)
	return Incident{
		ID:         incidentID,
		Status:     StatusResolved,
		StartedAt:  started,
		ResolvedAt: &resolvedAt,
		Duration:   resolvedAt.Sub(started),
	}, nil
}

func (r *Repository) AppendTimeline(ctx context.Context, incidentID uuid.UUID, entry TimelineEntry) error {
	const op string = "repo.incident.append_timeline"

	raw, err := json.Marshal(entry)
	if err != nil {
		return apperror.New(apperror.Internal, op, err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE incidents
		SET timeline = timeline || $2::jsonb
		WHERE id = $1`,
		utils.ToPgUUID(incidentID),
		raw,
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}
