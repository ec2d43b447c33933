package payments

import (
	"context"

	"github.com/rentvest/rent2own-service/internal/models"
)

// PaymentRepository defines the persistence operations the processor needs.
// The processor depends on this interface, not on a concrete implementation.
//
// UpdatePayment must write the new status conditionally on the status the
// caller read (from), and report ErrInvalidTransition when the payment has
// moved on since. That write-time guard is what keeps racing gateway
// callbacks from both succeeding.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go PaymentRepository
type PaymentRepository interface {
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment, from models.PaymentStatus) error
	GetProperty(ctx context.Context, id string) (*models.Property, error)
}
