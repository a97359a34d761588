package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian/internal/inventory"
	"github.com/meridian-wms/meridian/internal/platform/db"
)

// Repository provides persistence for warehouse orders.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListRequest) ([]Order, int, error)
	Create(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id int64) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the row-locked operations of picking and cancellation
// inside one transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	SetStatus(ctx context.Context, id int64, status Status, history []HistoryEntry) error
	SetLinePicked(ctx context.Context, lineID int64, pickedQty int, serials []string) error
	LockItems(ctx context.Context, ids []int64) (map[int64]*inventory.Item, error)
	// PickItem removes stock for one line: serials for serialized items,
	// plain quantity otherwise.
	PickItem(ctx context.Context, item *inventory.Item, qty int, serials []string, ref inventory.MovementRef) error
	// RestockItem returns previously picked stock on cancellation.
	RestockItem(ctx context.Context, item *inventory.Item, qty int, serials []string, ref inventory.MovementRef) error
}

type pgRepository struct {
	pool   *pgxpool.Pool
	engine *inventory.Engine
}

// NewRepository creates a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool, engine *inventory.Engine) Repository {
	return &pgRepository{pool: pool, engine: engine}
}

const orderColumns = `id, ref_number, customer, status, status_history, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o       Order
		history []byte
	)
	err := row.Scan(&o.ID, &o.RefNumber, &o.Customer, &o.Status, &history, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.History = ParseHistory(history)
	return &o, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q queryer, orderID int64) ([]OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT l.id, l.order_id, l.item_id, i.sku, l.quantity, l.picked_qty, l.picked_serials
		FROM warehouse_order_lines l
		JOIN inventory_items i ON i.id = l.item_id
		WHERE l.order_id = $1
		ORDER BY l.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.SKU, &l.Quantity, &l.PickedQty, &l.PickedSerials); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM warehouse_orders WHERE id = $1`, orderColumns)
	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	lines, err := loadLines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (r *pgRepository) List(ctx context.Context, req ListRequest) ([]Order, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	if req.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, *req.Status)
		idx++
	}
	if req.Search != "" {
		where = append(where, fmt.Sprintf("(ref_number ILIKE $%d OR customer ILIKE $%d)", idx, idx))
		args = append(args, "%"+req.Search+"%")
		idx++
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM warehouse_orders WHERE %s`, clause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM warehouse_orders WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, clause, idx, idx+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

// checkItemsExist verifies every line references a known inventory item
// before any row is written.
func checkItemsExist(ctx context.Context, tx pgx.Tx, lines []OrderLine) error {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	rows, err := tx.Query(ctx, `SELECT id FROM inventory_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	known := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, l := range lines {
		if _, ok := known[l.ItemID]; !ok {
			return fmt.Errorf("%w: id %d", inventory.ErrItemNotFound, l.ItemID)
		}
	}
	return nil
}

func (r *pgRepository) Create(ctx context.Context, o *Order) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := checkItemsExist(ctx, tx, o.Lines); err != nil {
			return err
		}
		now := time.Now().UTC()
		err := tx.QueryRow(ctx, `
			INSERT INTO warehouse_orders (ref_number, customer, status, status_history, notes, created_at, updated_at)
			VALUES ('', $1, $2, $3, $4, $5, $5)
			RETURNING id`,
			o.Customer, o.Status, EncodeHistory(o.History), o.Notes, now,
		).Scan(&o.ID)
		if err != nil {
			return err
		}

		o.RefNumber = fmt.Sprintf("ORD-%06d", o.ID)
		if _, err := tx.Exec(ctx, `UPDATE warehouse_orders SET ref_number = $1 WHERE id = $2`, o.RefNumber, o.ID); err != nil {
			return err
		}

		for i := range o.Lines {
			line := &o.Lines[i]
			line.OrderID = o.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO warehouse_order_lines (order_id, item_id, quantity, picked_qty, picked_serials)
				VALUES ($1, $2, $3, 0, '{}')
				RETURNING id`,
				o.ID, line.ItemID, line.Quantity,
			).Scan(&line.ID)
			if err != nil {
				return err
			}
		}

		o.CreatedAt = now
		o.UpdatedAt = now
		return nil
	})
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM warehouse_order_lines WHERE order_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM warehouse_orders WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, engine: r.engine})
	})
}

type txRepository struct {
	tx     pgx.Tx
	engine *inventory.Engine
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM warehouse_orders WHERE id = $1 FOR UPDATE`, orderColumns)
	o, err := scanOrder(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	lines, err := loadLines(ctx, t.tx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (t *txRepository) SetStatus(ctx context.Context, id int64, status Status, history []HistoryEntry) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE warehouse_orders SET status = $1, status_history = $2, updated_at = $3 WHERE id = $4`,
		status, EncodeHistory(history), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) SetLinePicked(ctx context.Context, lineID int64, pickedQty int, serials []string) error {
	if serials == nil {
		serials = []string{}
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE warehouse_order_lines SET picked_qty = $1, picked_serials = $2 WHERE id = $3`,
		pickedQty, serials, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order line %d not found", lineID)
	}
	return nil
}

func (t *txRepository) LockItems(ctx context.Context, ids []int64) (map[int64]*inventory.Item, error) {
	return t.engine.LockItems(ctx, t.tx, ids)
}

func (t *txRepository) PickItem(ctx context.Context, item *inventory.Item, qty int, serials []string, ref inventory.MovementRef) error {
	if item.IsSerialized {
		return t.engine.PickSerialSet(ctx, t.tx, item, serials, ref)
	}
	return t.engine.Decrease(ctx, t.tx, item, qty, ref)
}

func (t *txRepository) RestockItem(ctx context.Context, item *inventory.Item, qty int, serials []string, ref inventory.MovementRef) error {
	if item.IsSerialized {
		_, err := t.engine.MergeSerialSet(ctx, t.tx, item, serials, ref)
		return err
	}
	return t.engine.Increase(ctx, t.tx, item, qty, ref)
}
