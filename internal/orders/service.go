package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-wms/meridian/internal/inventory"
	"github.com/meridian-wms/meridian/internal/notify"
)

// Emitter pushes live events to subscribed clients.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any)
}

// Service implements warehouse order business logic.
type Service struct {
	repo   Repository
	alerts notify.Publisher
	live   Emitter
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(repo Repository, alerts notify.Publisher, live Emitter, logger *slog.Logger) *Service {
	return &Service{repo: repo, alerts: alerts, live: live, logger: logger}
}

// GetByID returns one order with its lines.
func (s *Service) GetByID(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a filtered page of orders.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}

// Create registers a new order in Pending status.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	o := &Order{
		Customer: req.Customer,
		Status:   StatusPending,
		Notes:    req.Notes,
	}
	for _, l := range req.Lines {
		o.Lines = append(o.Lines, OrderLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.emitChanged(ctx, o.ID)
	return o, nil
}

// Delete removes a non-terminal, not-yet-picked order outright.
func (s *Service) Delete(ctx context.Context, id int64) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.Status.Terminal() {
		return ErrTerminal
	}
	for _, line := range o.Lines {
		if line.PickedQty > 0 {
			return fmt.Errorf("%w: order has picked stock, cancel it instead", ErrInvalidTransition)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emitChanged(ctx, id)
	return nil
}

// Advance moves the order one step forward: Pending to Acknowledged,
// Acknowledged to Picking, Packed to Ready for Pickup, Ready for Pickup to
// Picked Up, Picked Up to Completed. Picking to Packed goes through Pick.
func (s *Service) Advance(ctx context.Context, id int64, actorID int64) (*Order, error) {
	var result *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next := o.Status.Next()
		if next == "" {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, o.Status)
		}
		history := appendHistory(o.History, next, o.Status, actorID)
		if err := tx.SetStatus(ctx, id, next, history); err != nil {
			return err
		}
		o.Status = next
		o.History = history
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == StatusCompleted {
		s.publish(ctx, notify.Alert{
			Severity: notify.SeverityInfo,
			Message:  fmt.Sprintf("Order %s completed", result.RefNumber),
			Type:     "order_completed",
			Link:     fmt.Sprintf("/orders/%d", id),
		})
	}
	s.emitChanged(ctx, id)
	return result, nil
}

// Pick fulfils every line of a picking order against inventory and packs it.
// Serialized lines consume the named serials; non-serialized lines decrement
// stock by the ordered quantity. Insufficient stock or a missing serial rolls
// the whole pick back.
func (s *Service) Pick(ctx context.Context, id int64, req PickRequest) (*Order, error) {
	var result *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusPicking {
			return fmt.Errorf("%w: %s", ErrNotPicking, o.Status)
		}

		lineByID := make(map[int64]*OrderLine, len(o.Lines))
		ids := make([]int64, 0, len(o.Lines))
		for i := range o.Lines {
			lineByID[o.Lines[i].ID] = &o.Lines[i]
			ids = append(ids, o.Lines[i].ItemID)
		}
		serialPicks := make(map[int64][]string, len(req.Picks))
		for _, pick := range req.Picks {
			if _, ok := lineByID[pick.LineID]; !ok {
				return fmt.Errorf("%w: unknown line %d", ErrLineMismatch, pick.LineID)
			}
			serialPicks[pick.LineID] = pick.SerialNumbers
		}

		items, err := tx.LockItems(ctx, ids)
		if err != nil {
			return err
		}

		ref := inventory.MovementRef{
			Module:  "orders",
			RefID:   fmt.Sprintf("%d", id),
			ActorID: req.ActorID,
			Reason:  fmt.Sprintf("Picked for %s", o.RefNumber),
		}
		for i := range o.Lines {
			line := &o.Lines[i]
			item := items[line.ItemID]
			if item.IsSerialized {
				serials := serialPicks[line.ID]
				if len(serials) != line.Quantity {
					return fmt.Errorf("%w: line %d needs %d serials, got %d",
						ErrLineMismatch, line.ID, line.Quantity, len(serials))
				}
				if err := tx.PickItem(ctx, item, 0, serials, ref); err != nil {
					return err
				}
				line.PickedQty = len(serials)
				line.PickedSerials = serials
			} else {
				if err := tx.PickItem(ctx, item, line.Quantity, nil, ref); err != nil {
					return err
				}
				line.PickedQty = line.Quantity
			}
			if err := tx.SetLinePicked(ctx, line.ID, line.PickedQty, line.PickedSerials); err != nil {
				return err
			}
		}

		history := appendHistory(o.History, StatusPacked, o.Status, req.ActorID)
		if err := tx.SetStatus(ctx, id, StatusPacked, history); err != nil {
			return err
		}
		o.Status = StatusPacked
		o.History = history
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Alert{
		Severity: notify.SeverityInfo,
		Message:  fmt.Sprintf("Order %s packed", result.RefNumber),
		Type:     "order_packed",
		Link:     fmt.Sprintf("/orders/%d", id),
	})
	s.emitChanged(ctx, id)
	return result, nil
}

// Cancel aborts a non-terminal order. Stock already picked goes back into
// inventory in the same transaction.
func (s *Service) Cancel(ctx context.Context, id int64, req CancelRequest) (*Order, error) {
	var (
		result    *Order
		restocked int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return fmt.Errorf("%w: %s", ErrTerminal, o.Status)
		}

		var pickedIDs []int64
		for _, line := range o.Lines {
			if line.PickedQty > 0 {
				pickedIDs = append(pickedIDs, line.ItemID)
			}
		}
		if len(pickedIDs) > 0 {
			items, err := tx.LockItems(ctx, pickedIDs)
			if err != nil {
				return err
			}
			ref := inventory.MovementRef{
				Module:  "orders",
				RefID:   fmt.Sprintf("%d", id),
				ActorID: req.ActorID,
				Reason:  fmt.Sprintf("Restocked on cancellation of %s", o.RefNumber),
			}
			for i := range o.Lines {
				line := &o.Lines[i]
				if line.PickedQty == 0 {
					continue
				}
				if err := tx.RestockItem(ctx, items[line.ItemID], line.PickedQty, line.PickedSerials, ref); err != nil {
					return err
				}
				restocked += line.PickedQty
				line.PickedQty = 0
				line.PickedSerials = nil
				if err := tx.SetLinePicked(ctx, line.ID, 0, nil); err != nil {
					return err
				}
			}
		}

		history := appendHistory(o.History, StatusCancelled, o.Status, req.ActorID)
		if err := tx.SetStatus(ctx, id, StatusCancelled, history); err != nil {
			return err
		}
		o.Status = StatusCancelled
		o.History = history
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Order %s cancelled", result.RefNumber)
	if restocked > 0 {
		message = fmt.Sprintf("Order %s cancelled, %d units restocked", result.RefNumber, restocked)
	}
	s.publish(ctx, notify.Alert{
		Severity: notify.SeverityWarning,
		Message:  message,
		Type:     "order_cancelled",
		Link:     fmt.Sprintf("/orders/%d", id),
	})
	s.emitChanged(ctx, id)
	return result, nil
}

func appendHistory(history []HistoryEntry, next, from Status, actorID int64) []HistoryEntry {
	return append(history, HistoryEntry{
		Status:  next,
		From:    from,
		ActorID: actorID,
		At:      time.Now().UTC(),
	})
}

func (s *Service) publish(ctx context.Context, alert notify.Alert) {
	if s.alerts != nil {
		s.alerts.Publish(ctx, alert)
	}
}

func (s *Service) emitChanged(ctx context.Context, id int64) {
	if s.live != nil {
		s.live.Emit(ctx, "order_updated", map[string]any{"id": id})
	}
}
