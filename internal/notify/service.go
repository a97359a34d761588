package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Emitter pushes live events to subscribed clients.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any)
}

// Service stores alerts and forwards them to the live channel.
type Service struct {
	pool   *pgxpool.Pool
	live   Emitter
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, live Emitter, logger *slog.Logger) *Service {
	return &Service{pool: pool, live: live, logger: logger}
}

// Publish records an alert and emits a live event. All failures are logged
// and swallowed.
func (s *Service) Publish(ctx context.Context, alert Alert) {
	if s == nil {
		return
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, severity, message, type, link, target_user_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)`,
		alert.ID, alert.Severity, alert.Message, alert.Type, alert.Link, alert.TargetUserID, alert.CreatedAt,
	)
	if err != nil {
		s.logger.Warn("notify: insert alert", slog.String("type", alert.Type), slog.Any("error", err))
		return
	}
	if s.live != nil {
		s.live.Emit(ctx, "notification", alert)
	}
}

// List returns recent alerts, optionally restricted to a target user. Alerts
// without a target are visible to everyone.
func (s *Service) List(ctx context.Context, targetUserID *int64, limit int) ([]Alert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, severity, message, type, link, target_user_id, read, created_at
		FROM notifications
		WHERE target_user_id IS NULL OR $1::bigint IS NULL OR target_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, targetUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Severity, &a.Message, &a.Type, &a.Link, &a.TargetUserID, &a.Read, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MarkRead flags a single alert as read.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every alert visible to the user as read.
func (s *Service) MarkAllRead(ctx context.Context, targetUserID *int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE read = false AND (target_user_id IS NULL OR $1::bigint IS NULL OR target_user_id = $1)`,
		targetUserID)
	return err
}
