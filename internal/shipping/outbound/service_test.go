package outbound

import (
	"context"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian/internal/notify"
	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

type fakeRepo struct {
	dispatches map[int64]*Dispatch
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{dispatches: map[int64]*Dispatch{}}
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*Dispatch, error) {
	d, ok := f.dispatches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListRequest) ([]Dispatch, int, error) {
	out := make([]Dispatch, 0, len(f.dispatches))
	for _, d := range f.dispatches {
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(_ context.Context, d *Dispatch) error {
	d.ID = int64(len(f.dispatches) + 1)
	d.RefNumber = "OUT-000001"
	f.dispatches[d.ID] = d
	return nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	d, ok := f.dispatches[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["customer"]; ok {
		d.Customer = v.(string)
	}
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.dispatches[id]; !ok {
		return ErrNotFound
	}
	delete(f.dispatches, id)
	return nil
}

func (f *fakeRepo) Transition(_ context.Context, id int64, from []Status, to Status, updates map[string]any) (bool, error) {
	d, ok := f.dispatches[id]
	if !ok {
		return false, nil
	}
	if !slices.Contains(from, d.Status) {
		return false, nil
	}
	d.Status = to
	if v, ok := updates["actual_delivery"]; ok {
		ts := v.(time.Time)
		d.ActualDelivery = &ts
	}
	return true, nil
}

// memFeeStore drives the shared workflow against the fake repository so
// payment side effects on dispatch status are observable.
type memFeeStore struct {
	repo *fakeRepo
}

func (s *memFeeStore) Kind() string { return "dispatch" }

func (s *memFeeStore) WithTx(ctx context.Context, fn func(context.Context, workflow.TxStore) error) error {
	return fn(ctx, &memFeeTx{repo: s.repo})
}

type memFeeTx struct {
	repo *fakeRepo
}

func (t *memFeeTx) GetForUpdate(_ context.Context, id int64) (*workflow.FeeState, error) {
	d, ok := t.repo.dispatches[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	return &workflow.FeeState{
		ID:        d.ID,
		Ref:       d.RefNumber,
		FeeStatus: d.FeeStatus,
		Fees:      d.Fees,
		History:   d.FeeHistory,
		BrokerID:  d.BrokerID,
		Terminal:  d.Status.Terminal(),
	}, nil
}

func (t *memFeeTx) ApplyFees(_ context.Context, id int64, fees workflow.Fees, status workflow.FeeStatus, history []workflow.HistoryEntry) error {
	d := t.repo.dispatches[id]
	d.Fees = fees
	d.FeeStatus = status
	d.FeeHistory = history
	return nil
}

func (t *memFeeTx) ApplyDecision(_ context.Context, id int64, status workflow.FeeStatus, history []workflow.HistoryEntry) error {
	d := t.repo.dispatches[id]
	d.FeeStatus = status
	d.FeeHistory = history
	return nil
}

func (t *memFeeTx) ApplyPayment(_ context.Context, id int64, receipt workflow.Receipt, history []workflow.HistoryEntry) error {
	d := t.repo.dispatches[id]
	d.FeeStatus = workflow.FeePaymentConfirmed
	d.ReceiptName = &receipt.Name
	d.FeeHistory = history
	if d.Status == StatusPreparing {
		d.Status = StatusInTransit
	}
	return nil
}

type capturingPublisher struct {
	alerts []notify.Alert
}

func (c *capturingPublisher) Publish(_ context.Context, alert notify.Alert) {
	c.alerts = append(c.alerts, alert)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

type staticBrokers struct{}

func (staticBrokers) BrokerName(_ context.Context, _ int64) (string, error) {
	return "Atlas Customs", nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *capturingPublisher) {
	t.Helper()
	repo := newFakeRepo()
	alerts := &capturingPublisher{}
	logger := slog.New(slog.DiscardHandler)
	machine := workflow.NewMachine(&memFeeStore{repo: repo}, alerts, nopEmitter{}, logger)
	svc := NewService(repo, machine, alerts, nopEmitter{}, staticBrokers{}, logger)
	return svc, repo, alerts
}

func seedDispatch(repo *fakeRepo, status Status, feeStatus workflow.FeeStatus) *Dispatch {
	d := &Dispatch{
		ID:        1,
		RefNumber: "OUT-000001",
		Customer:  "Globex",
		Status:    status,
		FeeStatus: feeStatus,
	}
	repo.dispatches[1] = d
	return d
}

func TestConfirmPaymentPutsDispatchInTransit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedDispatch(repo, StatusPreparing, workflow.FeeApproved)

	state, err := svc.ConfirmPayment(context.Background(), 1, workflow.Receipt{Name: "wire.pdf"}, 42)
	require.NoError(t, err)
	require.Equal(t, workflow.FeePaymentConfirmed, state.FeeStatus)
	require.Equal(t, StatusInTransit, repo.dispatches[1].Status)
}

func TestConfirmPaymentBeforeApprovalFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedDispatch(repo, StatusPreparing, workflow.FeePendingApproval)

	_, err := svc.ConfirmPayment(context.Background(), 1, workflow.Receipt{Name: "wire.pdf"}, 42)
	require.ErrorIs(t, err, workflow.ErrPaymentNotApproved)
	require.Equal(t, StatusPreparing, repo.dispatches[1].Status)
	require.Equal(t, workflow.FeePendingApproval, repo.dispatches[1].FeeStatus)
	require.Empty(t, repo.dispatches[1].FeeHistory)
}

func TestMarkDeliveredStampsActualDate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedDispatch(repo, StatusInTransit, workflow.FeePaymentConfirmed)

	got, err := svc.MarkDelivered(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, got.Status)
	require.NotNil(t, got.ActualDelivery)
}

func TestMarkDeliveredKeepsExistingDate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	d := seedDispatch(repo, StatusInTransit, workflow.FeePaymentConfirmed)
	reported := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	d.ActualDelivery = &reported

	got, err := svc.MarkDelivered(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Equal(t, reported, *got.ActualDelivery)
}

func TestMarkDeliveredRequiresInTransit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedDispatch(repo, StatusPreparing, workflow.FeeApproved)

	_, err := svc.MarkDelivered(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrNotInTransit)
}

func TestMarkReturnedFromDelayed(t *testing.T) {
	svc, repo, alerts := newTestService(t)
	seedDispatch(repo, StatusDelayed, workflow.FeePaymentConfirmed)

	got, err := svc.MarkReturned(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Equal(t, StatusReturned, got.Status)
	require.NotEmpty(t, alerts.alerts)
	require.Equal(t, notify.SeverityWarning, alerts.alerts[len(alerts.alerts)-1].Severity)
}

func TestDeliveredDispatchRejectsFeeEdits(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedDispatch(repo, StatusDelivered, workflow.FeePaymentConfirmed)

	duties := 120.0
	_, err := svc.SubmitFees(context.Background(), 1, workflow.Fees{Duties: &duties}, 42)
	require.ErrorIs(t, err, workflow.ErrShipmentFinalized)

	err = svc.Delete(context.Background(), 1)
	require.ErrorIs(t, err, ErrAlreadyFinal)
}

func TestUpdateDeliveredDispatchFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedDispatch(repo, StatusDelivered, workflow.FeePaymentConfirmed)

	customer := "Initech"
	_, err := svc.Update(context.Background(), 1, UpdateRequest{Customer: &customer})
	require.ErrorIs(t, err, ErrAlreadyFinal)
}
