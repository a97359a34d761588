package orders

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian/internal/inventory"
	"github.com/meridian-wms/meridian/internal/notify"
)

type fakeRepo struct {
	orders map[int64]*Order
	items  map[int64]*inventory.Item
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[int64]*Order{}, items: map[int64]*inventory.Item{}, nextID: 1}
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListRequest) ([]Order, int, error) {
	out := make([]Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(_ context.Context, o *Order) error {
	for _, line := range o.Lines {
		if _, ok := f.items[line.ItemID]; !ok {
			return fmt.Errorf("%w: id %d", inventory.ErrItemNotFound, line.ItemID)
		}
	}
	o.ID = f.nextID
	f.nextID++
	o.RefNumber = "ORD-000001"
	for i := range o.Lines {
		o.Lines[i].ID = o.ID*100 + int64(i)
	}
	f.orders[o.ID] = o
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.orders[id]; !ok {
		return ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &fakeTx{repo: f})
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) GetForUpdate(_ context.Context, id int64) (*Order, error) {
	o, ok := t.repo.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (t *fakeTx) SetStatus(_ context.Context, id int64, status Status, history []HistoryEntry) error {
	o, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.History = history
	return nil
}

func (t *fakeTx) SetLinePicked(_ context.Context, lineID int64, pickedQty int, serials []string) error {
	for _, o := range t.repo.orders {
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				o.Lines[i].PickedQty = pickedQty
				o.Lines[i].PickedSerials = serials
				return nil
			}
		}
	}
	return ErrNotFound
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

func (t *fakeTx) PickItem(_ context.Context, item *inventory.Item, qty int, serials []string, _ inventory.MovementRef) error {
	if item.IsSerialized {
		remaining, err := inventory.PickSerials(item.SerialNumbers, serials)
		if err != nil {
			return err
		}
		item.SerialNumbers = remaining
		item.Quantity = len(remaining)
		return nil
	}
	if qty > item.Quantity {
		return inventory.ErrInsufficientStock
	}
	item.Quantity -= qty
	return nil
}

func (t *fakeTx) RestockItem(_ context.Context, item *inventory.Item, qty int, serials []string, _ inventory.MovementRef) error {
	if item.IsSerialized {
		merged, _, _ := inventory.MergeSerials(item.SerialNumbers, serials)
		item.SerialNumbers = merged
		item.Quantity = len(merged)
		return nil
	}
	item.Quantity += qty
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

func newTestService(t *testing.T) (*Service, *fakeRepo, *capturingPublisher) {
	t.Helper()
	repo := newFakeRepo()
	alerts := &capturingPublisher{}
	svc := NewService(repo, alerts, nopEmitter{}, slog.New(slog.DiscardHandler))
	return svc, repo, alerts
}

func seedPickingOrder(repo *fakeRepo) *Order {
	repo.items[10] = &inventory.Item{ID: 10, SKU: "WID-1", Quantity: 8}
	repo.items[20] = &inventory.Item{ID: 20, SKU: "GAD-2", IsSerialized: true, SerialNumbers: []string{"SN-A", "SN-B", "SN-C"}, Quantity: 3}
	o := &Order{
		ID:        1,
		RefNumber: "ORD-000001",
		Customer:  "Globex",
		Status:    StatusPicking,
		Lines: []OrderLine{
			{ID: 100, OrderID: 1, ItemID: 10, SKU: "WID-1", Quantity: 5},
			{ID: 101, OrderID: 1, ItemID: 20, SKU: "GAD-2", Quantity: 2},
		},
	}
	repo.orders[1] = o
	return o
}

func TestCreateValidatesItemsExist(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.items[10] = &inventory.Item{ID: 10, SKU: "WID-1", Quantity: 8}

	_, err := svc.Create(context.Background(), CreateRequest{
		Customer: "Globex",
		Lines: []CreateLineReq{
			{ItemID: 10, Quantity: 2},
			{ItemID: 404, Quantity: 1},
		},
	})
	require.ErrorIs(t, err, inventory.ErrItemNotFound)
	require.Empty(t, repo.orders)

	o, err := svc.Create(context.Background(), CreateRequest{
		Customer: "Globex",
		Lines:    []CreateLineReq{{ItemID: 10, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, o.Status)
}

func TestAdvanceWalksLifecycle(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.orders[1] = &Order{ID: 1, RefNumber: "ORD-000001", Status: StatusPending}

	for _, want := range []Status{StatusAcknowledged, StatusPicking} {
		o, err := svc.Advance(context.Background(), 1, 42)
		require.NoError(t, err)
		require.Equal(t, want, o.Status)
	}

	// Picking cannot be advanced without picking the stock.
	_, err := svc.Advance(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrInvalidTransition)

	history := repo.orders[1].History
	require.Len(t, history, 2)
	require.Equal(t, StatusPending, history[0].From)
	require.Equal(t, StatusAcknowledged, history[0].Status)
	require.Equal(t, StatusPicking, history[1].Status)
}

func TestPickFulfilsAllLines(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPickingOrder(repo)

	o, err := svc.Pick(context.Background(), 1, PickRequest{
		Picks:   []LinePick{{LineID: 101, SerialNumbers: []string{"SN-A", "SN-C"}}},
		ActorID: 42,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPacked, o.Status)

	require.Equal(t, 3, repo.items[10].Quantity)
	require.Equal(t, []string{"SN-B"}, repo.items[20].SerialNumbers)
	require.Equal(t, 5, o.Lines[0].PickedQty)
	require.Equal(t, []string{"SN-A", "SN-C"}, o.Lines[1].PickedSerials)
}

func TestPickSerialCountMustMatchLine(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPickingOrder(repo)

	_, err := svc.Pick(context.Background(), 1, PickRequest{
		Picks:   []LinePick{{LineID: 101, SerialNumbers: []string{"SN-A"}}},
		ActorID: 42,
	})
	require.ErrorIs(t, err, ErrLineMismatch)
	require.Equal(t, StatusPicking, repo.orders[1].Status)
}

func TestPickMissingSerialFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedPickingOrder(repo)

	_, err := svc.Pick(context.Background(), 1, PickRequest{
		Picks:   []LinePick{{LineID: 101, SerialNumbers: []string{"SN-A", "SN-X"}}},
		ActorID: 42,
	})
	require.ErrorIs(t, err, inventory.ErrSerialNotFound)
}

func TestPickRequiresPickingStatus(t *testing.T) {
	svc, repo, _ := newTestService(t)
	o := seedPickingOrder(repo)
	o.Status = StatusPending

	_, err := svc.Pick(context.Background(), 1, PickRequest{ActorID: 42})
	require.ErrorIs(t, err, ErrNotPicking)
}

func TestCancelRestocksPickedLines(t *testing.T) {
	svc, repo, alerts := newTestService(t)
	seedPickingOrder(repo)

	_, err := svc.Pick(context.Background(), 1, PickRequest{
		Picks:   []LinePick{{LineID: 101, SerialNumbers: []string{"SN-A", "SN-C"}}},
		ActorID: 42,
	})
	require.NoError(t, err)

	o, err := svc.Cancel(context.Background(), 1, CancelRequest{ActorID: 42})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, o.Status)

	require.Equal(t, 8, repo.items[10].Quantity)
	require.Len(t, repo.items[20].SerialNumbers, 3)

	last := alerts.alerts[len(alerts.alerts)-1]
	require.Equal(t, notify.SeverityWarning, last.Severity)
	require.Contains(t, last.Message, "restocked")
}

func TestCancelCompletedOrderFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.orders[1] = &Order{ID: 1, Status: StatusCompleted}

	_, err := svc.Cancel(context.Background(), 1, CancelRequest{ActorID: 42})
	require.ErrorIs(t, err, ErrTerminal)
}

func TestDeletePickedOrderFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	o := seedPickingOrder(repo)
	o.Lines[0].PickedQty = 5

	err := svc.Delete(context.Background(), 1)
	require.ErrorIs(t, err, ErrInvalidTransition)
}
