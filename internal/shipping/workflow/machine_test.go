package workflow

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian/internal/notify"
)

type memStore struct {
	mu     sync.Mutex
	states map[int64]*FeeState
}

func newMemStore(states ...*FeeState) *memStore {
	s := &memStore{states: make(map[int64]*FeeState)}
	for _, st := range states {
		s.states[st.ID] = st
	}
	return s
}

func (s *memStore) Kind() string { return "ASN" }

func (s *memStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{store: s, staged: make(map[int64]FeeState)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, st := range tx.staged {
		copied := st
		s.states[id] = &copied
	}
	return nil
}

// memTx stages writes and only publishes them on commit, mirroring the
// rollback behavior of a real transaction.
type memTx struct {
	store  *memStore
	staged map[int64]FeeState
}

func (t *memTx) GetForUpdate(_ context.Context, id int64) (*FeeState, error) {
	st, ok := t.store.states[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *st
	copied.History = append([]HistoryEntry(nil), st.History...)
	return &copied, nil
}

func (t *memTx) ApplyFees(ctx context.Context, id int64, fees Fees, status FeeStatus, history []HistoryEntry) error {
	cur, err := t.GetForUpdate(ctx, id)
	if err != nil {
		return err
	}
	cur.Fees = fees
	cur.FeeStatus = status
	cur.History = history
	t.staged[id] = *cur
	return nil
}

func (t *memTx) ApplyDecision(ctx context.Context, id int64, status FeeStatus, history []HistoryEntry) error {
	cur, err := t.GetForUpdate(ctx, id)
	if err != nil {
		return err
	}
	cur.FeeStatus = status
	cur.History = history
	t.staged[id] = *cur
	return nil
}

func (t *memTx) ApplyPayment(ctx context.Context, id int64, _ Receipt, history []HistoryEntry) error {
	cur, err := t.GetForUpdate(ctx, id)
	if err != nil {
		return err
	}
	cur.FeeStatus = FeePaymentConfirmed
	cur.History = history
	t.staged[id] = *cur
	return nil
}

type capturingPublisher struct {
	alerts []notify.Alert
}

func (p *capturingPublisher) Publish(_ context.Context, alert notify.Alert) {
	p.alerts = append(p.alerts, alert)
}

func newTestMachine(store EntityStore, alerts notify.Publisher) *Machine {
	return NewMachine(store, alerts, nil, slog.New(slog.DiscardHandler))
}

func floatPtr(v float64) *float64 { return &v }

func TestSubmitFeesMovesToPendingApproval(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, Ref: "ASN-000001", FeeStatus: FeePendingSubmission})
	pub := &capturingPublisher{}
	m := newTestMachine(store, pub)

	fees := Fees{Duties: floatPtr(120), Shipping: floatPtr(45.5)}
	state, err := m.SubmitFees(context.Background(), 1, fees, 9)
	require.NoError(t, err)
	require.Equal(t, FeePendingApproval, state.FeeStatus)
	require.InDelta(t, 165.5, state.Fees.Total(), 0.001)

	require.Len(t, state.History, 1)
	require.Equal(t, FeePendingSubmission, state.History[0].From)
	require.Equal(t, FeePendingApproval, state.History[0].Status)
	require.EqualValues(t, 9, state.History[0].ActorID)

	require.Len(t, pub.alerts, 1)
	require.Equal(t, "fee_submitted", pub.alerts[0].Type)
}

func TestResubmitAfterRejection(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, Ref: "ASN-000001", FeeStatus: FeePendingSubmission})
	m := newTestMachine(store, nil)
	ctx := context.Background()

	_, err := m.SubmitFees(ctx, 1, Fees{Duties: floatPtr(100)}, 9)
	require.NoError(t, err)
	_, err = m.Decide(ctx, 1, FeeRejected, 2)
	require.NoError(t, err)

	state, err := m.SubmitFees(ctx, 1, Fees{Duties: floatPtr(80)}, 9)
	require.NoError(t, err)
	require.Equal(t, FeePendingApproval, state.FeeStatus)
	require.Len(t, state.History, 3)
	require.Equal(t, FeeRejected, state.History[2].From)
}

func TestSubmitEmptyFeesFails(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, FeeStatus: FeePendingSubmission})
	m := newTestMachine(store, nil)

	_, err := m.SubmitFees(context.Background(), 1, Fees{}, 9)
	require.ErrorIs(t, err, ErrEmptyFees)

	cur := store.states[1]
	require.Equal(t, FeePendingSubmission, cur.FeeStatus)
	require.Empty(t, cur.History)
}

func TestSubmitWhilePendingApprovalFails(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, FeeStatus: FeePendingApproval})
	m := newTestMachine(store, nil)

	_, err := m.SubmitFees(context.Background(), 1, Fees{Duties: floatPtr(1)}, 9)
	require.ErrorIs(t, err, ErrCannotSubmit)
}

func TestDecideRequiresPendingSubmission(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, FeeStatus: FeePendingSubmission})
	m := newTestMachine(store, nil)

	_, err := m.Decide(context.Background(), 1, FeeApproved, 2)
	require.ErrorIs(t, err, ErrNotAwaitingDecision)
}

func TestDecideRejectsNonDecisionTarget(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, FeeStatus: FeePendingApproval})
	m := newTestMachine(store, nil)

	_, err := m.Decide(context.Background(), 1, FeePaymentConfirmed, 2)
	require.ErrorIs(t, err, ErrInvalidDecision)
}

func TestDecisionAlertTargetsBroker(t *testing.T) {
	broker := int64(31)
	store := newMemStore(&FeeState{ID: 1, Ref: "ASN-000004", FeeStatus: FeePendingApproval, BrokerID: &broker})
	pub := &capturingPublisher{}
	m := newTestMachine(store, pub)

	_, err := m.Decide(context.Background(), 1, FeeRejected, 2)
	require.NoError(t, err)
	require.Len(t, pub.alerts, 1)
	require.Equal(t, notify.SeverityWarning, pub.alerts[0].Severity)
	require.NotNil(t, pub.alerts[0].TargetUserID)
	require.EqualValues(t, 31, *pub.alerts[0].TargetUserID)
}

func TestConfirmPaymentBeforeApprovalLeavesStateUntouched(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, FeeStatus: FeePendingApproval})
	pub := &capturingPublisher{}
	m := newTestMachine(store, pub)

	_, err := m.ConfirmPayment(context.Background(), 1, Receipt{Name: "wire.pdf"}, 2)
	require.ErrorIs(t, err, ErrPaymentNotApproved)

	cur := store.states[1]
	require.Equal(t, FeePendingApproval, cur.FeeStatus)
	require.Empty(t, cur.History)
	require.Empty(t, pub.alerts)
}

func TestFullLifecycleHistory(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, Ref: "ASN-000007", FeeStatus: FeePendingSubmission})
	m := newTestMachine(store, nil)
	ctx := context.Background()

	_, err := m.SubmitFees(ctx, 1, Fees{Duties: floatPtr(200)}, 9)
	require.NoError(t, err)
	_, err = m.Decide(ctx, 1, FeeApproved, 2)
	require.NoError(t, err)
	state, err := m.ConfirmPayment(ctx, 1, Receipt{Name: "receipt.png"}, 9)
	require.NoError(t, err)

	require.Equal(t, FeePaymentConfirmed, state.FeeStatus)
	require.Len(t, state.History, 3)
	for i, entry := range state.History {
		require.False(t, entry.At.IsZero(), "entry %d missing timestamp", i)
	}
	require.Equal(t, FeeApproved, state.History[2].From)
	require.Equal(t, FeePaymentConfirmed, state.History[2].Status)
}

func TestTerminalShipmentRejectsFeeEdits(t *testing.T) {
	store := newMemStore(&FeeState{ID: 1, Ref: "ASN-000002", FeeStatus: FeeApproved, Terminal: true})
	m := newTestMachine(store, nil)

	_, err := m.ConfirmPayment(context.Background(), 1, Receipt{Name: "late.pdf"}, 2)
	require.ErrorIs(t, err, ErrShipmentFinalized)
}

func TestUnknownShipmentFails(t *testing.T) {
	m := newTestMachine(newMemStore(), nil)
	_, err := m.SubmitFees(context.Background(), 99, Fees{Duties: floatPtr(1)}, 9)
	require.ErrorIs(t, err, ErrNotFound)
}
