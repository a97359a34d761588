package inbound

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
	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// Repository provides persistence for inbound shipments.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*ASN, error)
	List(ctx context.Context, req ListRequest) ([]ASN, int, error)
	Create(ctx context.Context, asn *ASN) error
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the row-locked operations of the receiving flow inside
// one transaction.
type TxRepository interface {
	GetForReceive(ctx context.Context, id int64) (*ASN, error)
	SetLineReceived(ctx context.Context, lineID int64, receivedQty int) error
	Finalize(ctx context.Context, id int64, status Status, updates map[string]any) error
	LockItems(ctx context.Context, ids []int64) (map[int64]*inventory.Item, error)
	// ReceiveItem books one delivery line into stock and returns the quantity
	// actually added. Serialized items merge serials; duplicates are dropped
	// and do not count.
	ReceiveItem(ctx context.Context, item *inventory.Item, rec ReceivedItem, ref inventory.MovementRef) (int, error)
}

type pgRepository struct {
	pool   *pgxpool.Pool
	engine *inventory.Engine
}

// NewRepository creates a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool, engine *inventory.Engine) Repository {
	return &pgRepository{pool: pool, engine: engine}
}

const asnColumns = `
	id, ref_number, supplier, carrier, expected_arrival, actual_arrival,
	status, fee_status, fees, fee_status_history, broker_id, broker_name,
	receipt_name, discrepancy_notes, completed_at, created_at, updated_at`

func scanASN(row pgx.Row) (*ASN, error) {
	var (
		asn     ASN
		fees    []byte
		history []byte
	)
	err := row.Scan(
		&asn.ID, &asn.RefNumber, &asn.Supplier, &asn.Carrier,
		&asn.ExpectedArrival, &asn.ActualArrival, &asn.Status, &asn.FeeStatus,
		&fees, &history, &asn.BrokerID, &asn.BrokerName, &asn.ReceiptName,
		&asn.DiscrepancyNotes, &asn.CompletedAt, &asn.CreatedAt, &asn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	asn.Fees = decodeFees(fees)
	asn.FeeHistory = workflow.ParseHistory(history)
	return &asn, nil
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*ASN, error) {
	query := fmt.Sprintf(`SELECT %s FROM inbound_shipments WHERE id = $1`, asnColumns)
	asn, err := scanASN(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	lines, err := loadLines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	asn.Lines = lines
	return asn, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q queryer, asnID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT l.id, l.shipment_id, l.item_id, i.sku, l.expected_qty, l.received_qty
		FROM inbound_shipment_lines l
		JOIN inventory_items i ON i.id = l.item_id
		WHERE l.shipment_id = $1
		ORDER BY l.id`, asnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ASNID, &l.ItemID, &l.SKU, &l.ExpectedQty, &l.ReceivedQty); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *pgRepository) List(ctx context.Context, req ListRequest) ([]ASN, int, error) {
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
		where = append(where, fmt.Sprintf("(ref_number ILIKE $%d OR supplier ILIKE $%d OR carrier ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+req.Search+"%")
		idx++
	}
	clause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM inbound_shipments WHERE %s`, clause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM inbound_shipments WHERE %s ORDER BY expected_arrival DESC, id DESC LIMIT $%d OFFSET $%d`,
		asnColumns, clause, idx, idx+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	shipments := make([]ASN, 0, limit)
	for rows.Next() {
		asn, err := scanASN(rows)
		if err != nil {
			return nil, 0, err
		}
		shipments = append(shipments, *asn)
	}
	return shipments, total, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, asn *ASN) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		err := tx.QueryRow(ctx, `
			INSERT INTO inbound_shipments
				(ref_number, supplier, carrier, expected_arrival, status,
				 fee_status, fees, fee_status_history, broker_id, broker_name,
				 created_at, updated_at)
			VALUES ('', $1, $2, $3, $4, $5, $6, '[]', $7, $8, $9, $9)
			RETURNING id`,
			asn.Supplier, asn.Carrier, asn.ExpectedArrival, asn.Status,
			asn.FeeStatus, encodeFees(asn.Fees), asn.BrokerID, asn.BrokerName, now,
		).Scan(&asn.ID)
		if err != nil {
			return err
		}

		asn.RefNumber = fmt.Sprintf("ASN-%06d", asn.ID)
		if _, err := tx.Exec(ctx, `UPDATE inbound_shipments SET ref_number = $1 WHERE id = $2`, asn.RefNumber, asn.ID); err != nil {
			return err
		}

		for i := range asn.Lines {
			line := &asn.Lines[i]
			line.ASNID = asn.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO inbound_shipment_lines (shipment_id, item_id, expected_qty, received_qty)
				VALUES ($1, $2, $3, 0)
				RETURNING id`,
				asn.ID, line.ItemID, line.ExpectedQty,
			).Scan(&line.ID)
			if err != nil {
				return err
			}
		}

		asn.CreatedAt = now
		asn.UpdatedAt = now
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

	query := fmt.Sprintf(`UPDATE inbound_shipments SET %s WHERE id = $%d`, strings.Join(set, ", "), idx)
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
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM inbound_shipment_lines WHERE shipment_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM inbound_shipments WHERE id = $1`, id)
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

func (t *txRepository) GetForReceive(ctx context.Context, id int64) (*ASN, error) {
	query := fmt.Sprintf(`SELECT %s FROM inbound_shipments WHERE id = $1 FOR UPDATE`, asnColumns)
	asn, err := scanASN(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	lines, err := loadLines(ctx, t.tx, id)
	if err != nil {
		return nil, err
	}
	asn.Lines = lines
	return asn, nil
}

func (t *txRepository) SetLineReceived(ctx context.Context, lineID int64, receivedQty int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE inbound_shipment_lines SET received_qty = $1 WHERE id = $2`, receivedQty, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment line %d not found", lineID)
	}
	return nil
}

func (t *txRepository) Finalize(ctx context.Context, id int64, status Status, updates map[string]any) error {
	set := []string{"status = $1", "updated_at = $2"}
	args := []any{status, time.Now().UTC()}
	idx := 3
	for col, val := range updates {
		set = append(set, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE inbound_shipments SET %s WHERE id = $%d`, strings.Join(set, ", "), idx)
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) LockItems(ctx context.Context, ids []int64) (map[int64]*inventory.Item, error) {
	return t.engine.LockItems(ctx, t.tx, ids)
}

func (t *txRepository) ReceiveItem(ctx context.Context, item *inventory.Item, rec ReceivedItem, ref inventory.MovementRef) (int, error) {
	if item.IsSerialized {
		added, err := t.engine.MergeSerialSet(ctx, t.tx, item, rec.SerialNumbers, ref)
		if err != nil {
			return 0, err
		}
		return len(added), nil
	}
	qty := rec.ReceivedQuantity()
	if err := t.engine.Increase(ctx, t.tx, item, qty, ref); err != nil {
		return 0, err
	}
	return qty, nil
}
