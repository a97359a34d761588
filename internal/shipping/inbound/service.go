package inbound

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/meridian-wms/meridian/internal/inventory"
	"github.com/meridian-wms/meridian/internal/notify"
	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

const unexpectedItemPrefix = "Unexpected item"

// lineMismatches builds one note per line whose received quantity does not
// match what the notice announced.
func lineMismatches(lines []Line) []string {
	var notes []string
	for _, line := range lines {
		if line.ReceivedQty != line.ExpectedQty {
			notes = append(notes,
				fmt.Sprintf("Quantity mismatch for %s: expected %d, received %d", line.SKU, line.ExpectedQty, line.ReceivedQty))
		}
	}
	return notes
}

// BrokerResolver looks up broker display names for denormalized storage.
type BrokerResolver interface {
	BrokerName(ctx context.Context, id int64) (string, error)
}

// Mailer delivers completion summaries. Delivery is best effort.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service implements inbound shipment business logic.
type Service struct {
	repo     Repository
	fees     *workflow.Machine
	alerts   notify.Publisher
	live     workflow.Emitter
	brokers  BrokerResolver
	mail     Mailer
	opsEmail string
	logger   *slog.Logger
}

// ServiceParams configures a Service.
type ServiceParams struct {
	Repo     Repository
	Fees     *workflow.Machine
	Alerts   notify.Publisher
	Live     workflow.Emitter
	Brokers  BrokerResolver
	Mail     Mailer
	OpsEmail string
	Logger   *slog.Logger
}

// NewService creates a Service.
func NewService(p ServiceParams) *Service {
	return &Service{
		repo:     p.Repo,
		fees:     p.Fees,
		alerts:   p.Alerts,
		live:     p.Live,
		brokers:  p.Brokers,
		mail:     p.Mail,
		opsEmail: p.OpsEmail,
		logger:   p.Logger,
	}
}

// GetByID returns one ASN with its lines.
func (s *Service) GetByID(ctx context.Context, id int64) (*ASN, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a filtered page of ASNs.
func (s *Service) List(ctx context.Context, req ListRequest) ([]ASN, int, error) {
	return s.repo.List(ctx, req)
}

// Create registers a new ASN in Pending Submission fee state.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*ASN, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	asn := &ASN{
		Supplier:        req.Supplier,
		Carrier:         req.Carrier,
		ExpectedArrival: req.ExpectedArrival,
		Status:          StatusOnTime,
		FeeStatus:       workflow.FeePendingSubmission,
		BrokerID:        req.BrokerID,
	}
	if req.BrokerID != nil {
		name, err := s.brokers.BrokerName(ctx, *req.BrokerID)
		if err != nil {
			return nil, fmt.Errorf("resolve broker %d: %w", *req.BrokerID, err)
		}
		asn.BrokerName = &name
	}
	for _, l := range req.Lines {
		if l.ExpectedQty <= 0 {
			return nil, ErrInvalidQuantity
		}
		asn.Lines = append(asn.Lines, Line{ItemID: l.ItemID, ExpectedQty: l.ExpectedQty})
	}
	if err := s.repo.Create(ctx, asn); err != nil {
		return nil, err
	}
	s.emitChanged(ctx, asn.ID)
	return asn, nil
}

// Update applies partial edits to a non-terminal ASN.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*ASN, error) {
	asn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asn.Status.Terminal() {
		return nil, ErrTerminal
	}

	updates := make(map[string]any)
	if req.Supplier != nil {
		updates["supplier"] = *req.Supplier
	}
	if req.Carrier != nil {
		updates["carrier"] = *req.Carrier
	}
	if req.ExpectedArrival != nil {
		updates["expected_arrival"] = *req.ExpectedArrival
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, fmt.Errorf("invalid status %q", *req.Status)
		}
		updates["status"] = *req.Status
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

// Delete removes a non-terminal ASN and its lines.
func (s *Service) Delete(ctx context.Context, id int64) error {
	asn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if asn.Status.Terminal() {
		return ErrTerminal
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

// ConfirmPayment attaches the payment receipt.
func (s *Service) ConfirmPayment(ctx context.Context, id int64, receipt workflow.Receipt, actorID int64) (*workflow.FeeState, error) {
	return s.fees.ConfirmPayment(ctx, id, receipt, actorID)
}

// Receive books delivered goods into inventory. The shipment row, then every
// touched item, are locked inside one transaction; quantity mismatches and
// unexpected items are recorded as discrepancies and route the shipment to
// Processing instead of At the Warehouse.
func (s *Service) Receive(ctx context.Context, id int64, received []ReceivedItem, actorID int64) (*ASN, error) {
	if len(received) == 0 {
		return nil, ErrNothingReceived
	}

	var (
		discrepancies []string
		finalStatus   Status
		refNumber     string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		asn, err := tx.GetForReceive(ctx, id)
		if err != nil {
			return err
		}
		refNumber = asn.RefNumber
		if asn.Status.Terminal() {
			return ErrTerminal
		}
		if !asn.Status.CanReceive() {
			return fmt.Errorf("%w: %s", ErrCannotReceive, asn.Status)
		}
		if asn.FeeStatus != workflow.FeePaymentConfirmed {
			return fmt.Errorf("%w: fee status is %s", ErrPaymentRequired, asn.FeeStatus)
		}

		expected := make(map[int64]*Line, len(asn.Lines))
		for i := range asn.Lines {
			expected[asn.Lines[i].ItemID] = &asn.Lines[i]
		}

		sort.Slice(received, func(i, j int) bool { return received[i].ItemID < received[j].ItemID })
		ids := make([]int64, 0, len(received))
		for _, rec := range received {
			if rec.ReceivedQuantity() <= 0 {
				return ErrInvalidQuantity
			}
			ids = append(ids, rec.ItemID)
		}
		items, err := tx.LockItems(ctx, ids)
		if err != nil {
			return err
		}

		ref := inventory.MovementRef{
			Module:  "inbound",
			RefID:   fmt.Sprintf("%d", id),
			ActorID: actorID,
			Reason:  fmt.Sprintf("Received against %s", asn.RefNumber),
		}
		// Unexpected-item notes survive follow-up deliveries; quantity
		// mismatches are recomputed from the lines below so a resolved
		// shortage does not leave a stale note behind.
		for _, note := range asn.DiscrepancyNotes {
			if strings.HasPrefix(note, unexpectedItemPrefix) {
				discrepancies = append(discrepancies, note)
			}
		}
		for _, rec := range received {
			item := items[rec.ItemID]
			added, err := tx.ReceiveItem(ctx, item, rec, ref)
			if err != nil {
				return err
			}

			line, planned := expected[rec.ItemID]
			if !planned {
				discrepancies = append(discrepancies,
					fmt.Sprintf("%s %s: received %d units not on the notice", unexpectedItemPrefix, item.SKU, added))
				continue
			}
			line.ReceivedQty += added
			if err := tx.SetLineReceived(ctx, line.ID, line.ReceivedQty); err != nil {
				return err
			}
		}
		discrepancies = append(discrepancies, lineMismatches(asn.Lines)...)

		finalStatus = StatusAtWarehouse
		if len(discrepancies) > 0 {
			finalStatus = StatusProcessing
		}
		updates := map[string]any{"discrepancy_notes": discrepancies}
		if asn.ActualArrival == nil {
			updates["actual_arrival"] = time.Now().UTC()
		}
		return tx.Finalize(ctx, id, finalStatus, updates)
	})
	if err != nil {
		return nil, err
	}

	severity := notify.SeverityInfo
	message := fmt.Sprintf("ASN %s received at the warehouse", refNumber)
	if finalStatus == StatusProcessing {
		severity = notify.SeverityWarning
		message = fmt.Sprintf("ASN %s received with %d discrepancies", refNumber, len(discrepancies))
	}
	s.publish(ctx, notify.Alert{
		Severity: severity,
		Message:  message,
		Type:     "shipment_received",
		Link:     fmt.Sprintf("/shipments/inbound/%d", id),
	})
	s.emitChanged(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// Complete closes out a received shipment, recomputing line discrepancies for
// the final record and mailing a summary to operations.
func (s *Service) Complete(ctx context.Context, id int64, actorID int64) (*ASN, error) {
	var summary *ASN
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		asn, err := tx.GetForReceive(ctx, id)
		if err != nil {
			return err
		}
		if !asn.Status.CanComplete() {
			return fmt.Errorf("%w: %s", ErrCannotComplete, asn.Status)
		}

		var discrepancies []string
		for _, note := range asn.DiscrepancyNotes {
			if strings.HasPrefix(note, unexpectedItemPrefix) {
				discrepancies = append(discrepancies, note)
			}
		}
		discrepancies = append(discrepancies, lineMismatches(asn.Lines)...)
		now := time.Now().UTC()
		if err := tx.Finalize(ctx, id, StatusComplete, map[string]any{
			"discrepancy_notes": discrepancies,
			"completed_at":      now,
		}); err != nil {
			return err
		}

		asn.Status = StatusComplete
		asn.DiscrepancyNotes = discrepancies
		asn.CompletedAt = &now
		summary = asn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Alert{
		Severity: notify.SeverityInfo,
		Message:  fmt.Sprintf("ASN %s completed", summary.RefNumber),
		Type:     "shipment_completed",
		Link:     fmt.Sprintf("/shipments/inbound/%d", id),
	})
	s.emitChanged(ctx, id)
	s.mailCompletion(ctx, summary)
	return summary, nil
}

func (s *Service) mailCompletion(ctx context.Context, asn *ASN) {
	if s.mail == nil || s.opsEmail == "" {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Shipment %s from %s is complete.\n\n", asn.RefNumber, asn.Supplier)
	for _, line := range asn.Lines {
		fmt.Fprintf(&b, "%s: expected %d, received %d\n", line.SKU, line.ExpectedQty, line.ReceivedQty)
	}
	if len(asn.DiscrepancyNotes) > 0 {
		fmt.Fprintf(&b, "\nDiscrepancies:\n")
		for _, note := range asn.DiscrepancyNotes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}
	subject := fmt.Sprintf("Shipment %s completed", asn.RefNumber)
	if err := s.mail.Send(ctx, s.opsEmail, subject, b.String()); err != nil {
		s.logger.Error("inbound: completion mail failed",
			slog.String("ref", asn.RefNumber), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, alert notify.Alert) {
	if s.alerts != nil {
		s.alerts.Publish(ctx, alert)
	}
}

func (s *Service) emitChanged(ctx context.Context, id int64) {
	if s.live != nil {
		s.live.Emit(ctx, "shipment_updated", map[string]any{"kind": "ASN", "id": id})
	}
}
