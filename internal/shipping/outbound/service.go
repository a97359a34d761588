package outbound

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-wms/meridian/internal/notify"
	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// BrokerResolver looks up broker display names for denormalized storage.
type BrokerResolver interface {
	BrokerName(ctx context.Context, id int64) (string, error)
}

// Service implements outbound dispatch business logic.
type Service struct {
	repo    Repository
	fees    *workflow.Machine
	alerts  notify.Publisher
	live    workflow.Emitter
	brokers BrokerResolver
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(repo Repository, fees *workflow.Machine, alerts notify.Publisher, live workflow.Emitter, brokers BrokerResolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, fees: fees, alerts: alerts, live: live, brokers: brokers, logger: logger}
}

// GetByID returns one dispatch.
func (s *Service) GetByID(ctx context.Context, id int64) (*Dispatch, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a filtered page of dispatches.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Dispatch, int, error) {
	return s.repo.List(ctx, req)
}

// Create registers a new dispatch in Preparing status.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Dispatch, error) {
	d := &Dispatch{
		Customer:         req.Customer,
		Destination:      req.Destination,
		Carrier:          req.Carrier,
		TrackingNumber:   req.TrackingNumber,
		OrderID:          req.OrderID,
		ExpectedDelivery: req.ExpectedDelivery,
		Status:           StatusPreparing,
		FeeStatus:        workflow.FeePendingSubmission,
		BrokerID:         req.BrokerID,
	}
	if req.BrokerID != nil {
		name, err := s.brokers.BrokerName(ctx, *req.BrokerID)
		if err != nil {
			return nil, fmt.Errorf("resolve broker %d: %w", *req.BrokerID, err)
		}
		d.BrokerName = &name
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.emitChanged(ctx, d.ID)
	return d, nil
}

// Update applies partial edits to a non-terminal dispatch.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Dispatch, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status.Terminal() {
		return nil, ErrAlreadyFinal
	}

	updates := make(map[string]any)
	if req.Customer != nil {
		updates["customer"] = *req.Customer
	}
	if req.Destination != nil {
		updates["destination"] = *req.Destination
	}
	if req.Carrier != nil {
		updates["carrier"] = *req.Carrier
	}
	if req.TrackingNumber != nil {
		updates["tracking_number"] = *req.TrackingNumber
	}
	if req.ExpectedDelivery != nil {
		updates["expected_delivery"] = *req.ExpectedDelivery
	}
	if req.BrokerID != nil {
		name, err := s.brokers.BrokerName(ctx, *req.BrokerID)
		if err != nil {
			return nil, fmt.Errorf("resolve broker %d: %w", *req.BrokerID, err)
		}
		updates["broker_id"] = *req.BrokerID
		updates["broker_name"] = name
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	s.emitChanged(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// Delete removes a non-terminal dispatch.
func (s *Service) Delete(ctx context.Context, id int64) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Status.Terminal() {
		return ErrAlreadyFinal
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emitChanged(ctx, id)
	return nil
}

// SubmitFees records a broker fee submission.
func (s *Service) SubmitFees(ctx context.Context, id int64, fees workflow.Fees, actorID int64) (*workflow.FeeState, error) {
	return s.fees.SubmitFees(ctx, id, fees, actorID)
}

// DecideFees approves or rejects submitted fees.
func (s *Service) DecideFees(ctx context.Context, id int64, decision workflow.FeeStatus, actorID int64) (*workflow.FeeState, error) {
	return s.fees.Decide(ctx, id, decision, actorID)
}

// ConfirmPayment attaches the receipt; the store moves a Preparing dispatch
// to In Transit inside the same transaction.
func (s *Service) ConfirmPayment(ctx context.Context, id int64, receipt workflow.Receipt, actorID int64) (*workflow.FeeState, error) {
	state, err := s.fees.ConfirmPayment(ctx, id, receipt, actorID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notify.Alert{
		Severity: notify.SeverityInfo,
		Message:  fmt.Sprintf("Dispatch %s is in transit", state.Ref),
		Type:     "dispatch_departed",
		Link:     state.Link,
	})
	return state, nil
}

// MarkDelivered closes out an in-transit dispatch, stamping the actual
// delivery date when the carrier did not report one earlier.
func (s *Service) MarkDelivered(ctx context.Context, id int64, actorID int64) (*Dispatch, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if d.ActualDelivery == nil {
		updates["actual_delivery"] = time.Now().UTC()
	}
	ok, err := s.repo.Transition(ctx, id, []Status{StatusInTransit}, StatusDelivered, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInTransit, d.Status)
	}
	s.publish(ctx, notify.Alert{
		Severity: notify.SeverityInfo,
		Message:  fmt.Sprintf("Dispatch %s delivered to %s", d.RefNumber, d.Customer),
		Type:     "dispatch_delivered",
		Link:     fmt.Sprintf("/shipments/outbound/%d", id),
	})
	s.emitChanged(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// MarkDelayed flags an in-transit dispatch as delayed.
func (s *Service) MarkDelayed(ctx context.Context, id int64, actorID int64) (*Dispatch, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.Transition(ctx, id, []Status{StatusInTransit}, StatusDelayed, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInTransit, d.Status)
	}
	s.publish(ctx, notify.Alert{
		Severity: notify.SeverityWarning,
		Message:  fmt.Sprintf("Dispatch %s is delayed", d.RefNumber),
		Type:     "dispatch_delayed",
		Link:     fmt.Sprintf("/shipments/outbound/%d", id),
	})
	s.emitChanged(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// MarkReturned records a failed delivery coming back to the warehouse.
func (s *Service) MarkReturned(ctx context.Context, id int64, actorID int64) (*Dispatch, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.Transition(ctx, id, []Status{StatusInTransit, StatusDelayed}, StatusReturned, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCannotReturn, d.Status)
	}
	s.publish(ctx, notify.Alert{
		Severity: notify.SeverityWarning,
		Message:  fmt.Sprintf("Dispatch %s was returned", d.RefNumber),
		Type:     "dispatch_returned",
		Link:     fmt.Sprintf("/shipments/outbound/%d", id),
	})
	s.emitChanged(ctx, id)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) publish(ctx context.Context, alert notify.Alert) {
	if s.alerts != nil {
		s.alerts.Publish(ctx, alert)
	}
}

func (s *Service) emitChanged(ctx context.Context, id int64) {
	if s.live != nil {
		s.live.Emit(ctx, "shipment_updated", map[string]any{"kind": "dispatch", "id": id})
	}
}
