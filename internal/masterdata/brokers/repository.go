package brokers

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

// Repository provides persistence for customs brokers.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Broker, error)
	List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]Broker, int, error)
	Create(ctx context.Context, b *Broker) error
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const brokerColumns = `id, name, contact_email, phone, license_no, active, created_at, updated_at`

func scanBroker(row pgx.Row) (*Broker, error) {
	var b Broker
	err := row.Scan(&b.ID, &b.Name, &b.ContactEmail, &b.Phone, &b.LicenseNo, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*Broker, error) {
	query := fmt.Sprintf(`SELECT %s FROM customs_brokers WHERE id = $1`, brokerColumns)
	return scanBroker(r.pool.QueryRow(ctx, query, id))
}

func (r *pgRepository) List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]Broker, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	if search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR contact_email ILIKE $%d)", idx, idx))
		args = append(args, "%"+search+"%")
		idx++
	}
	if activeOnly {
		where = append(where, "active")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM customs_brokers WHERE %s`, clause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM customs_brokers WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		brokerColumns, clause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Broker, 0, limit)
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, b *Broker) error {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customs_brokers (name, contact_email, phone, license_no, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		RETURNING id`,
		b.Name, b.ContactEmail, b.Phone, b.LicenseNo, now,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, b.Name)
		}
		return err
	}
	b.Active = true
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
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

	query := fmt.Sprintf(`UPDATE customs_brokers SET %s WHERE id = $%d`, strings.Join(set, ", "), idx)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customs_brokers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
