package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Engine applies stock mutations inside a caller-owned transaction. There is
// no separate commit point: a failure here rolls back the workflow state
// change that triggered the mutation.
type Engine struct {
	logger *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// LockItems row-locks the given items in ascending id order and returns them
// keyed by id. Locking in a fixed order keeps concurrent multi-item callers
// from deadlocking on overlapping item sets.
func (e *Engine) LockItems(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]*Item, error) {
	sorted := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	items := make(map[int64]*Item, len(sorted))
	for _, id := range sorted {
		item, err := lockItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		items[id] = item
	}
	return items, nil
}

func lockItem(ctx context.Context, tx pgx.Tx, id int64) (*Item, error) {
	const query = `
		SELECT id, sku, name, quantity, serial_numbers, is_serialized,
		       reorder_point, safety_stock, entry_date, created_at, updated_at
		FROM inventory_items
		WHERE id = $1
		FOR UPDATE`
	var item Item
	err := tx.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.SKU, &item.Name, &item.Quantity, &item.SerialNumbers,
		&item.IsSerialized, &item.ReorderPoint, &item.SafetyStock,
		&item.EntryDate, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrItemNotFound, id)
		}
		return nil, err
	}
	item.IsAged = item.Aged(time.Now().UTC())
	return &item, nil
}

// Increase adds quantity to a non-serialized item unconditionally.
func (e *Engine) Increase(ctx context.Context, tx pgx.Tx, item *Item, qty int, ref MovementRef) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if item.IsSerialized {
		return fmt.Errorf("%w: %s", ErrSerialized, item.SKU)
	}
	before := item.Quantity
	item.Quantity += qty
	if err := writeQuantity(ctx, tx, item); err != nil {
		return err
	}
	return insertMovement(ctx, tx, item.ID, before, item.Quantity, ref)
}

// Decrease removes quantity from a non-serialized item, failing when the
// requested quantity exceeds current stock.
func (e *Engine) Decrease(ctx context.Context, tx pgx.Tx, item *Item, qty int, ref MovementRef) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if item.IsSerialized {
		return fmt.Errorf("%w: %s", ErrSerialized, item.SKU)
	}
	if qty > item.Quantity {
		return fmt.Errorf("%w: requested %d, have %d of %s", ErrInsufficientStock, qty, item.Quantity, item.SKU)
	}
	before := item.Quantity
	item.Quantity -= qty
	if err := writeQuantity(ctx, tx, item); err != nil {
		return err
	}
	return insertMovement(ctx, tx, item.ID, before, item.Quantity, ref)
}

// MergeSerialSet unions newly received serials into a serialized item.
// Duplicates are logged and dropped, never an error; the resulting quantity
// is always the size of the set.
func (e *Engine) MergeSerialSet(ctx context.Context, tx pgx.Tx, item *Item, serials []string, ref MovementRef) (added []string, err error) {
	if !item.IsSerialized {
		return nil, fmt.Errorf("%w: %s", ErrNotSerialized, item.SKU)
	}
	merged, added, dups := MergeSerials(item.SerialNumbers, serials)
	if len(dups) > 0 {
		e.logger.Warn("inventory: duplicate serials dropped",
			slog.String("sku", item.SKU),
			slog.Int("count", len(dups)),
			slog.Any("serials", dups))
	}
	if len(added) == 0 {
		return nil, nil
	}
	before := item.Quantity
	item.SerialNumbers = merged
	item.Quantity = len(merged)
	if err := writeSerials(ctx, tx, item); err != nil {
		return nil, err
	}
	return added, insertMovement(ctx, tx, item.ID, before, item.Quantity, ref)
}

// PickSerialSet removes picked serials from a serialized item. The whole
// pick fails atomically when any serial is missing.
func (e *Engine) PickSerialSet(ctx context.Context, tx pgx.Tx, item *Item, serials []string, ref MovementRef) error {
	if !item.IsSerialized {
		return fmt.Errorf("%w: %s", ErrNotSerialized, item.SKU)
	}
	if len(serials) == 0 {
		return ErrInvalidQuantity
	}
	remaining, err := PickSerials(item.SerialNumbers, serials)
	if err != nil {
		return err
	}
	before := item.Quantity
	item.SerialNumbers = remaining
	item.Quantity = len(remaining)
	if err := writeSerials(ctx, tx, item); err != nil {
		return err
	}
	return insertMovement(ctx, tx, item.ID, before, item.Quantity, ref)
}

func writeQuantity(ctx context.Context, tx pgx.Tx, item *Item) error {
	tag, err := tx.Exec(ctx, `
		UPDATE inventory_items SET quantity = $1, updated_at = $2 WHERE id = $3`,
		item.Quantity, time.Now().UTC(), item.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrItemNotFound, item.ID)
	}
	return nil
}

func writeSerials(ctx context.Context, tx pgx.Tx, item *Item) error {
	tag, err := tx.Exec(ctx, `
		UPDATE inventory_items SET serial_numbers = $1, quantity = $2, updated_at = $3 WHERE id = $4`,
		item.SerialNumbers, item.Quantity, time.Now().UTC(), item.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrItemNotFound, item.ID)
	}
	return nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, itemID int64, before, after int, ref MovementRef) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_movements (id, item_id, delta, before_qty, after_qty, reason, ref_module, ref_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), itemID, after-before, before, after, ref.Reason, ref.Module, ref.RefID, ref.ActorID, time.Now().UTC())
	return err
}
