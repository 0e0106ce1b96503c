package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Customer owns a fleet of devices.
type Customer struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	Company          *string        `json:"company,omitempty"`
	Email            *string        `json:"email,omitempty"`
	Phone            *string        `json:"phone,omitempty"`
	Address          *string        `json:"address,omitempty"`
	SubscriptionTier string         `json:"subscription_tier"`
	IsActive         bool           `json:"is_active"`
	Metadata         map[string]any `json:"metadata"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// CustomerFilter narrows List results.
type CustomerFilter struct {
	ActiveOnly bool
	Offset     int
	Limit      int
}

// CustomerRepository is the persistence contract for customers.
type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, filter CustomerFilter) ([]*Customer, error)
	Update(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}
