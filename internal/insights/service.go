package insights

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service computes and caches dashboard snapshots.
type Service struct {
	pool   *pgxpool.Pool
	cache  *Cache
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(pool *pgxpool.Pool, cache *Cache, logger *slog.Logger) *Service {
	return &Service{pool: pool, cache: cache, logger: logger}
}

// Snapshot returns the current metrics, serving from cache when possible.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap, err := s.cache.Get(ctx); err == nil {
		return snap, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		// A broken cache degrades to a direct computation.
		s.logger.Warn("insights: cache read failed", slog.Any("error", err))
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the snapshot and stores it in the cache.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, snap); err != nil {
		s.logger.Warn("insights: cache write failed", slog.Any("error", err))
	}
	return snap, nil
}

// Reset drops the cached snapshot.
func (s *Service) Reset(ctx context.Context) error {
	return s.cache.Reset(ctx)
}

func (s *Service) compute(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		InboundByStatus:  map[string]int{},
		OutboundByStatus: map[string]int{},
		OrdersByStatus:   map[string]int{},
		GeneratedAt:      time.Now().UTC(),
	}

	if err := s.countByStatus(ctx, `SELECT status, COUNT(*) FROM inbound_shipments GROUP BY status`, snap.InboundByStatus); err != nil {
		return nil, err
	}
	if err := s.countByStatus(ctx, `SELECT status, COUNT(*) FROM outbound_shipments GROUP BY status`, snap.OutboundByStatus); err != nil {
		return nil, err
	}
	if err := s.countByStatus(ctx, `SELECT status, COUNT(*) FROM warehouse_orders GROUP BY status`, snap.OrdersByStatus); err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM inbound_shipments WHERE fee_status = 'Pending Approval')
			+ (SELECT COUNT(*) FROM outbound_shipments WHERE fee_status = 'Pending Approval'),
			(SELECT COUNT(*) FROM inbound_shipments WHERE cardinality(discrepancy_notes) > 0 AND status <> 'Complete'),
			(SELECT COUNT(*) FROM inventory_items WHERE quantity <= reorder_point + safety_stock),
			(SELECT COUNT(*) FROM inventory_items WHERE entry_date < NOW() - INTERVAL '365 days'),
			(SELECT COUNT(*) FROM inventory_items),
			(SELECT COALESCE(SUM(quantity), 0) FROM inventory_items),
			(SELECT COUNT(*) FROM inventory_movements WHERE created_at > NOW() - INTERVAL '7 days')`)
	err := row.Scan(
		&snap.PendingFeeReviews, &snap.OpenDiscrepancies, &snap.LowStockItems,
		&snap.AgedItems, &snap.TotalItems, &snap.TotalStockUnits,
		&snap.MovementsLast7Days,
	)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) countByStatus(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		into[status] = count
	}
	return rows.Err()
}
