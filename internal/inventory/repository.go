package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilter filters item listings.
type ListFilter struct {
	Search     string
	LowStock   bool
	Aged       bool
	Serialized *bool
	Limit      int
	Offset     int
}

// Repository defines item persistence outside the adjustment engine.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context, filter ListFilter) ([]Item, int, error)
	Create(ctx context.Context, item Item) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	ListMovements(ctx context.Context, itemID int64, limit int) ([]Movement, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const itemColumns = `id, sku, name, quantity, serial_numbers, is_serialized,
       reorder_point, safety_stock, entry_date, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	err := row.Scan(
		&item.ID, &item.SKU, &item.Name, &item.Quantity, &item.SerialNumbers,
		&item.IsSerialized, &item.ReorderPoint, &item.SafetyStock,
		&item.EntryDate, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	item.IsAged = item.Aged(time.Now().UTC())
	return &item, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE id = $1`, itemColumns)
	return scanItem(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(sku) LIKE $%d OR LOWER(name) LIKE $%d)", argPos, argPos))
		args = append(args, pattern)
		argPos++
	}
	if filter.LowStock {
		conditions = append(conditions, "quantity <= reorder_point")
	}
	if filter.Aged {
		conditions = append(conditions, "entry_date < NOW() - INTERVAL '365 days'")
	}
	if filter.Serialized != nil {
		conditions = append(conditions, fmt.Sprintf("is_serialized = $%d", argPos))
		args = append(args, *filter.Serialized)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM inventory_items %s`, whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM inventory_items %s ORDER BY sku LIMIT $%d OFFSET $%d`,
		itemColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID, &item.SKU, &item.Name, &item.Quantity, &item.SerialNumbers,
			&item.IsSerialized, &item.ReorderPoint, &item.SafetyStock,
			&item.EntryDate, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		item.IsAged = item.Aged(now)
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, item Item) (int64, error) {
	query := `
		INSERT INTO inventory_items (sku, name, quantity, serial_numbers, is_serialized,
		                             reorder_point, safety_stock, entry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		item.SKU, item.Name, item.Quantity, item.SerialNumbers, item.IsSerialized,
		item.ReorderPoint, item.SafetyStock, item.EntryDate,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateSKU, item.SKU)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	var setClauses []string
	var args []any
	argPos := 1
	for field, value := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, argPos))
		args = append(args, value)
		argPos++
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE inventory_items SET %s WHERE id = $%d`,
		strings.Join(setClauses, ", "), argPos)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSKU
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) ListMovements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, delta, before_qty, after_qty, reason, ref_module, ref_id, actor_id, created_at
		FROM inventory_movements
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		err := rows.Scan(&m.ID, &m.ItemID, &m.Delta, &m.BeforeQty, &m.AfterQty,
			&m.Reason, &m.RefModule, &m.RefID, &m.ActorID, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
