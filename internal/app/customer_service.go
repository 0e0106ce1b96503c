package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/lekesiz/HECS/internal/domain"
)

// CustomerService manages customer accounts.
type CustomerService struct {
	customers domain.CustomerRepository
	notifier  Notifier
	clock     clockwork.Clock
}

func NewCustomerService(customers domain.CustomerRepository, notifier Notifier, clock clockwork.Clock) *CustomerService {
	return &CustomerService{
		customers: customers,
		notifier:  notifier,
		clock:     clock,
	}
}

// CreateCustomerRequest carries the fields of a new customer account.
type CreateCustomerRequest struct {
	Name             string  `json:"name"`
	Company          *string `json:"company"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	SubscriptionTier string  `json:"subscription_tier"`
}

// UpdateCustomerRequest carries a partial customer update.
type UpdateCustomerRequest struct {
	Name             *string        `json:"name"`
	Company          *string        `json:"company"`
	Email            *string        `json:"email"`
	Phone            *string        `json:"phone"`
	Address          *string        `json:"address"`
	SubscriptionTier *string        `json:"subscription_tier"`
	IsActive         *bool          `json:"is_active"`
	Metadata         map[string]any `json:"metadata"`
}

// Create registers a new customer, active by default.
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*domain.Customer, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	tier := req.SubscriptionTier
	if tier == "" {
		tier = "basic"
	}

	now := s.clock.Now().UTC()
	customer := &domain.Customer{
		ID:               uuid.New(),
		Name:             req.Name,
		Company:          req.Company,
		Email:            req.Email,
		Phone:            req.Phone,
		Address:          req.Address,
		SubscriptionTier: tier,
		IsActive:         true,
		Metadata:         map[string]any{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.notifier.BroadcastCustomerUpdate(customerEventData(customer, "created"))
	return customer, nil
}

// Get returns one customer.
func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.customers.GetByID(ctx, id)
}

// List returns customers matching the filter.
func (s *CustomerService) List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error) {
	return s.customers.List(ctx, filter)
}

// Update applies a partial update and broadcasts the change.
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Company != nil {
		customer.Company = req.Company
	}
	if req.Email != nil {
		customer.Email = req.Email
	}
	if req.Phone != nil {
		customer.Phone = req.Phone
	}
	if req.Address != nil {
		customer.Address = req.Address
	}
	if req.SubscriptionTier != nil {
		customer.SubscriptionTier = *req.SubscriptionTier
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	if req.Metadata != nil {
		customer.Metadata = req.Metadata
	}
	customer.UpdatedAt = s.clock.Now().UTC()

	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	s.notifier.BroadcastCustomerUpdate(customerEventData(customer, "updated"))
	return customer, nil
}

// Delete removes a customer permanently.
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.customers.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	s.notifier.BroadcastCustomerUpdate(customerEventData(customer, "deleted"))
	return nil
}

func customerEventData(customer *domain.Customer, action string) map[string]any {
	return map[string]any{
		"id":                customer.ID.String(),
		"name":              customer.Name,
		"subscription_tier": customer.SubscriptionTier,
		"is_active":         customer.IsActive,
		"action":            action,
	}
}
