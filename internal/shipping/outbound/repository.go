package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian/internal/platform/db"
	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// Repository provides persistence for outbound dispatches.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Dispatch, error)
	List(ctx context.Context, req ListRequest) ([]Dispatch, int, error)
	Create(ctx context.Context, d *Dispatch) error
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	// Transition moves the delivery status when the current status allows it,
	// reporting whether a row changed. The WHERE clause carries the precondition
	// so concurrent transitions cannot double-apply.
	Transition(ctx context.Context, id int64, from []Status, to Status, updates map[string]any) (bool, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const dispatchColumns = `
	id, ref_number, customer, destination, carrier, tracking_number, order_id,
	expected_delivery, actual_delivery, status, fee_status, fees,
	fee_status_history, broker_id, broker_name, receipt_name, created_at, updated_at`

func scanDispatch(row pgx.Row) (*Dispatch, error) {
	var (
		d       Dispatch
		fees    []byte
		history []byte
	)
	err := row.Scan(
		&d.ID, &d.RefNumber, &d.Customer, &d.Destination, &d.Carrier,
		&d.TrackingNumber, &d.OrderID, &d.ExpectedDelivery, &d.ActualDelivery,
		&d.Status, &d.FeeStatus, &fees, &history, &d.BrokerID, &d.BrokerName,
		&d.ReceiptName, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(fees) > 0 {
		_ = json.Unmarshal(fees, &d.Fees)
	}
	d.FeeHistory = workflow.ParseHistory(history)
	return &d, nil
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*Dispatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM outbound_shipments WHERE id = $1`, dispatchColumns)
	return scanDispatch(r.pool.QueryRow(ctx, query, id))
}

func (r *pgRepository) List(ctx context.Context, req ListRequest) ([]Dispatch, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	if req.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, *req.Status)
		idx++
	}
	if req.FeeStatus != nil {
		where = append(where, fmt.Sprintf("fee_status = $%d", idx))
		args = append(args, *req.FeeStatus)
		idx++
	}
	if req.Search != "" {
		where = append(where, fmt.Sprintf("(ref_number ILIKE $%d OR customer ILIKE $%d OR tracking_number ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+req.Search+"%")
		idx++
	}
	clause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM outbound_shipments WHERE %s`, clause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM outbound_shipments WHERE %s ORDER BY expected_delivery DESC, id DESC LIMIT $%d OFFSET $%d`,
		dispatchColumns, clause, idx, idx+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	dispatches := make([]Dispatch, 0, limit)
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, 0, err
		}
		dispatches = append(dispatches, *d)
	}
	return dispatches, total, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, d *Dispatch) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		fees, _ := json.Marshal(d.Fees)
		err := tx.QueryRow(ctx, `
			INSERT INTO outbound_shipments
				(ref_number, customer, destination, carrier, tracking_number,
				 order_id, expected_delivery, status, fee_status, fees,
				 fee_status_history, broker_id, broker_name, created_at, updated_at)
			VALUES ('', $1, $2, $3, $4, $5, $6, $7, $8, $9, '[]', $10, $11, $12, $12)
			RETURNING id`,
			d.Customer, d.Destination, d.Carrier, d.TrackingNumber, d.OrderID,
			d.ExpectedDelivery, d.Status, d.FeeStatus, fees, d.BrokerID,
			d.BrokerName, now,
		).Scan(&d.ID)
		if err != nil {
			return err
		}

		d.RefNumber = fmt.Sprintf("OUT-%06d", d.ID)
		if _, err := tx.Exec(ctx, `UPDATE outbound_shipments SET ref_number = $1 WHERE id = $2`, d.RefNumber, d.ID); err != nil {
			return err
		}
		d.CreatedAt = now
		d.UpdatedAt = now
		return nil
	})
}

func (r *pgRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := make([]string, 0, len(updates)+1)
	args := make([]any, 0, len(updates)+2)
	idx := 1
	for col, val := range updates {
		set = append(set, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE outbound_shipments SET %s WHERE id = $%d`, strings.Join(set, ", "), idx)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM outbound_shipments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) Transition(ctx context.Context, id int64, from []Status, to Status, updates map[string]any) (bool, error) {
	set := []string{"status = $1", "updated_at = $2"}
	args := []any{to, time.Now().UTC()}
	idx := 3
	for col, val := range updates {
		set = append(set, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	args = append(args, id)
	idArg := idx
	idx++

	placeholders := make([]string, len(from))
	for i, s := range from {
		placeholders[i] = fmt.Sprintf("$%d", idx)
		args = append(args, s)
		idx++
	}

	query := fmt.Sprintf(`UPDATE outbound_shipments SET %s WHERE id = $%d AND status IN (%s)`,
		strings.Join(set, ", "), idArg, strings.Join(placeholders, ", "))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
