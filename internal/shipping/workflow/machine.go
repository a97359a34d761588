package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-wms/meridian/internal/notify"
)

// FeeState is the fee-workflow view of a shipment row, read under a row lock.
type FeeState struct {
	ID         int64
	Ref        string // document number, used in alert messages
	Link       string // details link for alerts and live events
	FeeStatus  FeeStatus
	Fees       Fees
	History    []HistoryEntry
	BrokerID   *int64
	BrokerName *string
	Terminal   bool // shipment-level lifecycle finished, fee edits forbidden
}

// TxStore exposes row-locked fee operations inside one transaction.
type TxStore interface {
	GetForUpdate(ctx context.Context, id int64) (*FeeState, error)
	ApplyFees(ctx context.Context, id int64, fees Fees, status FeeStatus, history []HistoryEntry) error
	ApplyDecision(ctx context.Context, id int64, status FeeStatus, history []HistoryEntry) error
	// ApplyPayment persists the receipt and Payment Confirmed status. Outbound
	// stores additionally move the shipment to In Transit in the same update.
	ApplyPayment(ctx context.Context, id int64, receipt Receipt, history []HistoryEntry) error
}

// EntityStore is the entity-access capability a shipment kind provides to the
// shared state machine.
type EntityStore interface {
	// Kind names the shipment kind in messages, e.g. "ASN" or "dispatch".
	Kind() string
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// Emitter pushes live events to subscribed clients.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any)
}

// Machine drives the fee-approval lifecycle for one shipment kind. Every
// operation re-reads the row under a FOR UPDATE lock, mutates it, and appends
// exactly one history entry, all inside a single transaction. The database is
// the only authoritative state.
type Machine struct {
	store  EntityStore
	alerts notify.Publisher
	live   Emitter
	logger *slog.Logger
}

// NewMachine constructs a Machine for one shipment kind.
func NewMachine(store EntityStore, alerts notify.Publisher, live Emitter, logger *slog.Logger) *Machine {
	return &Machine{store: store, alerts: alerts, live: live, logger: logger}
}

// SubmitFees records a broker fee submission and forces Pending Approval.
// Fee values are not validated beyond presence; a rejected submission may be
// replaced by submitting again.
func (m *Machine) SubmitFees(ctx context.Context, id int64, fees Fees, actorID int64) (*FeeState, error) {
	if fees.Empty() {
		return nil, ErrEmptyFees
	}
	state, err := m.transition(ctx, id, func(cur *FeeState) error {
		if !cur.FeeStatus.CanSubmit() {
			return fmt.Errorf("%w: %s", ErrCannotSubmit, cur.FeeStatus)
		}
		return nil
	}, func(ctx context.Context, tx TxStore, cur *FeeState, history []HistoryEntry) error {
		cur.Fees = fees
		return tx.ApplyFees(ctx, id, fees, FeePendingApproval, history)
	}, FeePendingApproval, actorID)
	if err != nil {
		return nil, err
	}

	m.publish(ctx, notify.Alert{
		Severity: notify.SeverityInfo,
		Message:  fmt.Sprintf("Fees for %s %s are awaiting approval", m.store.Kind(), state.Ref),
		Type:     "fee_submitted",
		Link:     state.Link,
	})
	m.emit(ctx, state)
	return state, nil
}

// Decide records an approval decision. Only Approved and Rejected are valid
// targets and only a pending submission can be decided.
func (m *Machine) Decide(ctx context.Context, id int64, decision FeeStatus, actorID int64) (*FeeState, error) {
	if !decision.IsDecision() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	state, err := m.transition(ctx, id, func(cur *FeeState) error {
		if !cur.FeeStatus.CanDecide() {
			return fmt.Errorf("%w: %s", ErrNotAwaitingDecision, cur.FeeStatus)
		}
		return nil
	}, func(ctx context.Context, tx TxStore, cur *FeeState, history []HistoryEntry) error {
		return tx.ApplyDecision(ctx, id, decision, history)
	}, decision, actorID)
	if err != nil {
		return nil, err
	}

	if state.BrokerID != nil {
		severity := notify.SeverityInfo
		if decision == FeeRejected {
			severity = notify.SeverityWarning
		}
		m.publish(ctx, notify.Alert{
			Severity:     severity,
			Message:      fmt.Sprintf("Fees for %s %s were %s", m.store.Kind(), state.Ref, decision),
			Type:         "fee_decision",
			Link:         state.Link,
			TargetUserID: state.BrokerID,
		})
	}
	m.emit(ctx, state)
	return state, nil
}

// ConfirmPayment stores the payment receipt and moves fees to Payment
// Confirmed. Out-of-order confirmation fails before anything is written.
func (m *Machine) ConfirmPayment(ctx context.Context, id int64, receipt Receipt, actorID int64) (*FeeState, error) {
	state, err := m.transition(ctx, id, func(cur *FeeState) error {
		if !cur.FeeStatus.CanConfirmPayment() {
			return fmt.Errorf("%w: %s", ErrPaymentNotApproved, cur.FeeStatus)
		}
		return nil
	}, func(ctx context.Context, tx TxStore, cur *FeeState, history []HistoryEntry) error {
		return tx.ApplyPayment(ctx, id, receipt, history)
	}, FeePaymentConfirmed, actorID)
	if err != nil {
		return nil, err
	}

	m.publish(ctx, notify.Alert{
		Severity: notify.SeverityInfo,
		Message:  fmt.Sprintf("Payment confirmed for %s %s", m.store.Kind(), state.Ref),
		Type:     "fee_payment_confirmed",
		Link:     state.Link,
	})
	m.emit(ctx, state)
	return state, nil
}

// transition runs one fee-status change: lock the row, check preconditions,
// append exactly one history entry whose From is the pre-call status, apply
// the write, commit. Any failure rolls the whole transaction back.
func (m *Machine) transition(
	ctx context.Context,
	id int64,
	check func(*FeeState) error,
	apply func(context.Context, TxStore, *FeeState, []HistoryEntry) error,
	next FeeStatus,
	actorID int64,
) (*FeeState, error) {
	var state *FeeState
	err := m.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Terminal {
			return fmt.Errorf("%w: %s %s", ErrShipmentFinalized, m.store.Kind(), cur.Ref)
		}
		if err := check(cur); err != nil {
			return err
		}

		entry := HistoryEntry{
			Status:  next,
			From:    cur.FeeStatus,
			ActorID: actorID,
			At:      time.Now().UTC(),
		}
		history := append(cur.History, entry)

		if err := apply(ctx, tx, cur, history); err != nil {
			return err
		}
		cur.FeeStatus = next
		cur.History = history
		state = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (m *Machine) publish(ctx context.Context, alert notify.Alert) {
	if m.alerts != nil {
		m.alerts.Publish(ctx, alert)
	}
}

func (m *Machine) emit(ctx context.Context, state *FeeState) {
	if m.live == nil {
		return
	}
	m.live.Emit(ctx, "shipment_updated", map[string]any{
		"kind":       m.store.Kind(),
		"id":         state.ID,
		"ref":        state.Ref,
		"fee_status": state.FeeStatus,
	})
}
