package inbound

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian/internal/inventory"
	"github.com/meridian-wms/meridian/internal/notify"
	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

type fakeRepo struct {
	asns  map[int64]*ASN
	items map[int64]*inventory.Item
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{asns: map[int64]*ASN{}, items: map[int64]*inventory.Item{}}
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*ASN, error) {
	asn, ok := f.asns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *asn
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListRequest) ([]ASN, int, error) {
	out := make([]ASN, 0, len(f.asns))
	for _, a := range f.asns {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(_ context.Context, asn *ASN) error {
	asn.ID = int64(len(f.asns) + 1)
	asn.RefNumber = "ASN-000001"
	f.asns[asn.ID] = asn
	return nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	asn, ok := f.asns[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["supplier"]; ok {
		asn.Supplier = v.(string)
	}
	if v, ok := updates["status"]; ok {
		asn.Status = v.(Status)
	}
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.asns[id]; !ok {
		return ErrNotFound
	}
	delete(f.asns, id)
	return nil
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &fakeTx{repo: f})
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) GetForReceive(_ context.Context, id int64) (*ASN, error) {
	asn, ok := t.repo.asns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return asn, nil
}

func (t *fakeTx) SetLineReceived(_ context.Context, lineID int64, receivedQty int) error {
	for _, asn := range t.repo.asns {
		for i := range asn.Lines {
			if asn.Lines[i].ID == lineID {
				asn.Lines[i].ReceivedQty = receivedQty
				return nil
			}
		}
	}
	return errors.New("line not found")
}

func (t *fakeTx) Finalize(_ context.Context, id int64, status Status, updates map[string]any) error {
	asn, ok := t.repo.asns[id]
	if !ok {
		return ErrNotFound
	}
	asn.Status = status
	if v, ok := updates["discrepancy_notes"]; ok {
		asn.DiscrepancyNotes = v.([]string)
	}
	return nil
}

func (t *fakeTx) LockItems(_ context.Context, ids []int64) (map[int64]*inventory.Item, error) {
	out := make(map[int64]*inventory.Item, len(ids))
	for _, id := range ids {
		item, ok := t.repo.items[id]
		if !ok {
			return nil, inventory.ErrItemNotFound
		}
		out[id] = item
	}
	return out, nil
}

func (t *fakeTx) ReceiveItem(_ context.Context, item *inventory.Item, rec ReceivedItem, _ inventory.MovementRef) (int, error) {
	if item.IsSerialized {
		merged, added, _ := inventory.MergeSerials(item.SerialNumbers, rec.SerialNumbers)
		item.SerialNumbers = merged
		item.Quantity = len(merged)
		return len(added), nil
	}
	item.Quantity += rec.ReceivedQuantity()
	return rec.ReceivedQuantity(), nil
}

type capturingPublisher struct {
	alerts []notify.Alert
}

func (c *capturingPublisher) Publish(_ context.Context, alert notify.Alert) {
	c.alerts = append(c.alerts, alert)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

type fakeBrokers struct{}

func (fakeBrokers) BrokerName(_ context.Context, id int64) (string, error) {
	if id == 7 {
		return "Atlas Customs", nil
	}
	return "", errors.New("broker not found")
}

type capturingMailer struct {
	sent []string
}

func (m *capturingMailer) Send(_ context.Context, _, subject, _ string) error {
	m.sent = append(m.sent, subject)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *capturingPublisher, *capturingMailer) {
	t.Helper()
	repo := newFakeRepo()
	alerts := &capturingPublisher{}
	mail := &capturingMailer{}
	svc := NewService(ServiceParams{
		Repo:     repo,
		Alerts:   alerts,
		Live:     nopEmitter{},
		Brokers:  fakeBrokers{},
		Mail:     mail,
		OpsEmail: "ops@example.com",
		Logger:   slog.New(slog.DiscardHandler),
	})
	return svc, repo, alerts, mail
}

func seedReceivableASN(repo *fakeRepo) *ASN {
	repo.items[10] = &inventory.Item{ID: 10, SKU: "WID-1", Quantity: 5}
	repo.items[20] = &inventory.Item{ID: 20, SKU: "GAD-2", IsSerialized: true, SerialNumbers: []string{"SN-A"}, Quantity: 1}
	asn := &ASN{
		ID:        1,
		RefNumber: "ASN-000001",
		Supplier:  "Acme",
		Status:    StatusArrived,
		FeeStatus: workflow.FeePaymentConfirmed,
		Lines: []Line{
			{ID: 100, ASNID: 1, ItemID: 10, SKU: "WID-1", ExpectedQty: 10},
			{ID: 101, ASNID: 1, ItemID: 20, SKU: "GAD-2", ExpectedQty: 2},
		},
	}
	repo.asns[1] = asn
	return asn
}

func TestReceiveCleanDelivery(t *testing.T) {
	svc, repo, alerts, _ := newTestService(t)
	seedReceivableASN(repo)

	got, err := svc.Receive(context.Background(), 1, []ReceivedItem{
		{ItemID: 10, Quantity: 10},
		{ItemID: 20, SerialNumbers: []string{"SN-B", "SN-C"}},
	}, 42)
	require.NoError(t, err)
	require.Equal(t, StatusAtWarehouse, got.Status)
	require.Empty(t, got.DiscrepancyNotes)

	require.Equal(t, 15, repo.items[10].Quantity)
	require.Equal(t, 3, repo.items[20].Quantity)

	require.Len(t, alerts.alerts, 1)
	require.Equal(t, notify.SeverityInfo, alerts.alerts[0].Severity)
}

func TestReceiveWithDiscrepancies(t *testing.T) {
	svc, repo, alerts, _ := newTestService(t)
	seedReceivableASN(repo)
	repo.items[30] = &inventory.Item{ID: 30, SKU: "EXTRA-3", Quantity: 0}

	got, err := svc.Receive(context.Background(), 1, []ReceivedItem{
		{ItemID: 10, Quantity: 7},                  // short delivery
		{ItemID: 30, Quantity: 4},                  // not on the notice
		{ItemID: 20, SerialNumbers: []string{"SN-B", "SN-C"}}, // matches
	}, 42)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, got.Status)
	require.Len(t, got.DiscrepancyNotes, 2)

	// Unexpected goods still land in stock.
	require.Equal(t, 4, repo.items[30].Quantity)

	require.Len(t, alerts.alerts, 1)
	require.Equal(t, notify.SeverityWarning, alerts.alerts[0].Severity)
}

func TestReceiveRequiresPaymentConfirmed(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	asn := seedReceivableASN(repo)
	asn.FeeStatus = workflow.FeePendingApproval

	_, err := svc.Receive(context.Background(), 1, []ReceivedItem{{ItemID: 10, Quantity: 1}}, 42)
	require.ErrorIs(t, err, ErrPaymentRequired)
	require.Equal(t, 5, repo.items[10].Quantity)
	require.Equal(t, StatusArrived, repo.asns[1].Status)
}

func TestReceiveIntoCompleteShipmentFails(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	asn := seedReceivableASN(repo)
	asn.Status = StatusComplete

	_, err := svc.Receive(context.Background(), 1, []ReceivedItem{{ItemID: 10, Quantity: 1}}, 42)
	require.ErrorIs(t, err, ErrTerminal)
}

func TestReceiveFollowUpWhileProcessing(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	seedReceivableASN(repo)

	_, err := svc.Receive(context.Background(), 1, []ReceivedItem{{ItemID: 10, Quantity: 7}}, 42)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, repo.asns[1].Status)

	// The missing three arrive later; the line now matches.
	got, err := svc.Receive(context.Background(), 1, []ReceivedItem{{ItemID: 10, Quantity: 3}}, 42)
	require.NoError(t, err)
	require.Equal(t, 10, repo.asns[1].Lines[0].ReceivedQty)
	require.Equal(t, 15, repo.items[10].Quantity)
	// The serialized line is still untouched, so the mismatch remains.
	require.Equal(t, StatusProcessing, got.Status)
}

func TestCompleteRecordsSummaryAndMails(t *testing.T) {
	svc, repo, _, mail := newTestService(t)
	seedReceivableASN(repo)

	_, err := svc.Receive(context.Background(), 1, []ReceivedItem{
		{ItemID: 10, Quantity: 10},
		{ItemID: 20, SerialNumbers: []string{"SN-B", "SN-C"}},
	}, 42)
	require.NoError(t, err)

	got, err := svc.Complete(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.Empty(t, got.DiscrepancyNotes)
	require.Len(t, mail.sent, 1)
}

func TestCompleteBeforeReceivingFails(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	seedReceivableASN(repo)

	_, err := svc.Complete(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrCannotComplete)
}

func TestDeleteCompleteShipmentFails(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	asn := seedReceivableASN(repo)
	asn.Status = StatusComplete

	err := svc.Delete(context.Background(), 1)
	require.ErrorIs(t, err, ErrTerminal)
}

func TestCreateResolvesBrokerName(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	brokerID := int64(7)

	asn, err := svc.Create(context.Background(), CreateRequest{
		Supplier: "Acme",
		Carrier:  "Maersk",
		BrokerID: &brokerID,
		Lines:    []CreateLineReq{{ItemID: 10, ExpectedQty: 5}},
	})
	require.NoError(t, err)
	require.NotNil(t, asn.BrokerName)
	require.Equal(t, "Atlas Customs", *asn.BrokerName)
	require.Equal(t, workflow.FeePendingSubmission, asn.FeeStatus)
	require.Equal(t, StatusOnTime, asn.Status)
}

func TestCreateUnknownBrokerFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	brokerID := int64(99)

	_, err := svc.Create(context.Background(), CreateRequest{
		Supplier: "Acme",
		Carrier:  "Maersk",
		BrokerID: &brokerID,
		Lines:    []CreateLineReq{{ItemID: 10, ExpectedQty: 5}},
	})
	require.Error(t, err)
}
