package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian/internal/platform/db"
	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// feeStore adapts inbound_shipments rows to the shared fee workflow.
type feeStore struct {
	pool *pgxpool.Pool
}

// NewFeeStore creates the workflow store for inbound shipments.
func NewFeeStore(pool *pgxpool.Pool) workflow.EntityStore {
	return &feeStore{pool: pool}
}

func (s *feeStore) Kind() string { return "ASN" }

func (s *feeStore) WithTx(ctx context.Context, fn func(context.Context, workflow.TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &feeTx{tx: tx})
	})
}

type feeTx struct {
	tx pgx.Tx
}

func (t *feeTx) GetForUpdate(ctx context.Context, id int64) (*workflow.FeeState, error) {
	var (
		state   workflow.FeeState
		status  Status
		fees    []byte
		history []byte
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, ref_number, status, fee_status, fees, fee_status_history, broker_id, broker_name
		FROM inbound_shipments
		WHERE id = $1
		FOR UPDATE`, id).Scan(
		&state.ID, &state.Ref, &status, &state.FeeStatus, &fees, &history,
		&state.BrokerID, &state.BrokerName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.ErrNotFound
		}
		return nil, err
	}
	state.Fees = decodeFees(fees)
	state.History = workflow.ParseHistory(history)
	state.Terminal = status.Terminal()
	state.Link = fmt.Sprintf("/shipments/inbound/%d", state.ID)
	return &state, nil
}

func (t *feeTx) ApplyFees(ctx context.Context, id int64, fees workflow.Fees, status workflow.FeeStatus, history []workflow.HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE inbound_shipments
		SET fees = $1, fee_status = $2, fee_status_history = $3, updated_at = $4
		WHERE id = $5`,
		encodeFees(fees), status, workflow.EncodeHistory(history), time.Now().UTC(), id)
	return err
}

func (t *feeTx) ApplyDecision(ctx context.Context, id int64, status workflow.FeeStatus, history []workflow.HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE inbound_shipments
		SET fee_status = $1, fee_status_history = $2, updated_at = $3
		WHERE id = $4`,
		status, workflow.EncodeHistory(history), time.Now().UTC(), id)
	return err
}

func (t *feeTx) ApplyPayment(ctx context.Context, id int64, receipt workflow.Receipt, history []workflow.HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE inbound_shipments
		SET fee_status = $1, receipt_name = $2, receipt_data = $3, fee_status_history = $4, updated_at = $5
		WHERE id = $6`,
		workflow.FeePaymentConfirmed, receipt.Name, receipt.Data, workflow.EncodeHistory(history), time.Now().UTC(), id)
	return err
}

// decodeFees tolerates null and malformed fee documents, returning zero fees.
func decodeFees(raw []byte) workflow.Fees {
	var fees workflow.Fees
	if len(raw) == 0 {
		return fees
	}
	if err := json.Unmarshal(raw, &fees); err != nil {
		return workflow.Fees{}
	}
	return fees
}

func encodeFees(fees workflow.Fees) []byte {
	raw, err := json.Marshal(fees)
	if err != nil {
		return []byte("{}")
	}
	return raw
}
