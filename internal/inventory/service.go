package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian/internal/platform/db"
)

// Emitter pushes live events to subscribed clients.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any)
}

// Service coordinates item CRUD and manual stock adjustments.
type Service struct {
	repo   Repository
	pool   *pgxpool.Pool
	engine *Engine
	live   Emitter
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, pool *pgxpool.Pool, engine *Engine, live Emitter, logger *slog.Logger) *Service {
	return &Service{repo: repo, pool: pool, engine: engine, live: live, logger: logger}
}

// GetByID returns one item.
func (s *Service) GetByID(ctx context.Context, id int64) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns items matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	return s.repo.List(ctx, filter)
}

// Create registers a new item. Serialized items derive quantity from the
// serial set at creation time.
func (s *Service) Create(ctx context.Context, item Item) (*Item, error) {
	if item.IsSerialized {
		merged, _, dups := MergeSerials(nil, item.SerialNumbers)
		if len(dups) > 0 {
			s.logger.Warn("inventory: duplicate serials dropped on create",
				slog.String("sku", item.SKU), slog.Int("count", len(dups)))
		}
		item.SerialNumbers = merged
		item.Quantity = len(merged)
	}
	if item.EntryDate.IsZero() {
		item.EntryDate = time.Now().UTC()
	}
	id, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	s.emitChanged(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// Update applies partial field updates. Quantity and serials are owned by the
// adjustment engine and cannot be edited here.
func (s *Service) Update(ctx context.Context, id int64, updates map[string]any) (*Item, error) {
	delete(updates, "quantity")
	delete(updates, "serial_numbers")
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	s.emitChanged(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emitChanged(ctx, id)
	return nil
}

// Movements lists the audit trail for an item.
func (s *Service) Movements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	if _, err := s.repo.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, itemID, limit)
}

// Adjust applies a manual delta to a non-serialized item in its own
// transaction, row-locked like every other mutation.
func (s *Service) Adjust(ctx context.Context, itemID int64, delta int, reason string, actorID int64) (*Item, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}
	ref := MovementRef{Module: "inventory", RefID: fmt.Sprintf("%d", itemID), ActorID: actorID, Reason: reason}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		item, err := lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if delta > 0 {
			return s.engine.Increase(ctx, tx, item, delta, ref)
		}
		return s.engine.Decrease(ctx, tx, item, -delta, ref)
	})
	if err != nil {
		return nil, err
	}
	s.emitChanged(ctx, itemID)
	return s.repo.GetByID(ctx, itemID)
}

// AddSerials merges serials into a serialized item in its own transaction.
func (s *Service) AddSerials(ctx context.Context, itemID int64, serials []string, reason string, actorID int64) (*Item, error) {
	ref := MovementRef{Module: "inventory", RefID: fmt.Sprintf("%d", itemID), ActorID: actorID, Reason: reason}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		item, err := lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		_, err = s.engine.MergeSerialSet(ctx, tx, item, serials, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitChanged(ctx, itemID)
	return s.repo.GetByID(ctx, itemID)
}

// RemoveSerials picks serials out of a serialized item in its own transaction.
func (s *Service) RemoveSerials(ctx context.Context, itemID int64, serials []string, reason string, actorID int64) (*Item, error) {
	ref := MovementRef{Module: "inventory", RefID: fmt.Sprintf("%d", itemID), ActorID: actorID, Reason: reason}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		item, err := lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		return s.engine.PickSerialSet(ctx, tx, item, serials, ref)
	})
	if err != nil {
		return nil, err
	}
	s.emitChanged(ctx, itemID)
	return s.repo.GetByID(ctx, itemID)
}

func (s *Service) emitChanged(ctx context.Context, itemID int64) {
	if s.live != nil {
		s.live.Emit(ctx, "inventory_updated", map[string]any{"item_id": itemID})
	}
}
