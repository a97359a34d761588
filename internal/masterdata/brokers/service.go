package brokers

import (
	"context"
	"fmt"
	"log/slog"
)

// Service implements broker directory logic. It also serves as the broker
// name resolver for the shipping modules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetByID returns one broker.
func (s *Service) GetByID(ctx context.Context, id int64) (*Broker, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a filtered page of brokers.
func (s *Service) List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]Broker, int, error) {
	return s.repo.List(ctx, search, activeOnly, limit, offset)
}

// Create registers a new broker.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Broker, error) {
	b := &Broker{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		LicenseNo:    req.LicenseNo,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Update applies partial edits to a broker.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Broker, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ContactEmail != nil {
		updates["contact_email"] = *req.ContactEmail
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.LicenseNo != nil {
		updates["license_no"] = *req.LicenseNo
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a broker from the directory. Shipments keep the denormalized
// broker name they were created with.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// BrokerName resolves an active broker's display name for denormalized
// storage on shipments.
func (s *Service) BrokerName(ctx context.Context, id int64) (string, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !b.Active {
		return "", fmt.Errorf("%w: %s", ErrInactive, b.Name)
	}
	return b.Name, nil
}
