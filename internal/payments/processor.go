package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rentvest/rent2own-service/internal/equity"
	"github.com/rentvest/rent2own-service/internal/models"
)

var (
	// ErrPaymentNotFound is returned when the referenced payment does not exist.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidTransition is returned for an illegal payment status change.
	ErrInvalidTransition = errors.New("invalid payment status transition")
)

// StatusUpdate describes a status-transition event from the payment gateway
type StatusUpdate struct {
	PaymentID     string
	Status        models.PaymentStatus
	TransactionID string
	FailureReason string
	PaidAt        *time.Time
}

// Processor drives a payment through its lifecycle and keeps the equity
// ledger in sync. A payment is applied to the ledger exactly once, when it
// completes, and reversed exactly once, when it is refunded; the transition
// table in models guarantees neither can happen twice.
type Processor struct {
	repo   PaymentRepository
	ledger *equity.Ledger
	log    *logrus.Logger
}

// NewProcessor initializes a payment processor
func NewProcessor(repo PaymentRepository, ledger *equity.Ledger, log *logrus.Logger) *Processor {
	return &Processor{repo: repo, ledger: ledger, log: log}
}

// Process applies a status update to a payment. Illegal transitions are
// rejected before anything is written, and the status write itself is
// conditional on the status that was read, so duplicate gateway callbacks
// cannot both complete the same payment. If persisting the payment fails
// after the ledger was touched, the ledger change is compensated so the
// operation stays all-or-nothing.
func (p *Processor) Process(ctx context.Context, update StatusUpdate) (*models.Payment, error) {
	payment, err := p.repo.GetPayment(ctx, update.PaymentID)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateTransition(payment.Status, update.Status); err != nil {
		return nil, fmt.Errorf("payment %s is %s: %w", payment.ID, payment.Status, ErrInvalidTransition)
	}

	switch update.Status {
	case models.PaymentStatusCompleted:
		return p.complete(ctx, payment, update)
	case models.PaymentStatusFailed:
		return p.fail(ctx, payment, update)
	case models.PaymentStatusRefunded:
		return p.refund(ctx, payment, update)
	default:
		return nil, fmt.Errorf("target status %s: %w", update.Status, ErrInvalidTransition)
	}
}

func (p *Processor) complete(ctx context.Context, payment *models.Payment, update StatusUpdate) (*models.Payment, error) {
	applied := false
	if payment.EquityComponent > 0 {
		property, err := p.repo.GetProperty(ctx, payment.PropertyID)
		if err != nil {
			return nil, err
		}
		if _, err := p.ledger.ApplyPayment(ctx, payment.UserID, payment.PropertyID, property.Rent2OwnPrice, payment.EquityComponent); err != nil {
			return nil, err
		}
		applied = true
	}

	from := payment.Status
	paidAt := time.Now()
	if update.PaidAt != nil {
		paidAt = *update.PaidAt
	}
	payment.Status = models.PaymentStatusCompleted
	payment.PaidAt = &paidAt
	if update.TransactionID != "" {
		payment.TransactionID = update.TransactionID
	}

	// Losing the conditional write means a concurrent callback already moved
	// the payment; this caller's equity application must be undone.
	if err := p.repo.UpdatePayment(ctx, payment, from); err != nil {
		if applied {
			if _, revErr := p.ledger.ReversePayment(ctx, payment.UserID, payment.PropertyID, payment.EquityComponent); revErr != nil {
				p.log.Errorf("Failed to compensate equity for payment %s: %v", payment.ID, revErr)
			}
		}
		return nil, fmt.Errorf("failed to persist completed payment: %w", err)
	}

	p.log.Infof("Payment completed: %s (user %s, property %s, equity %.2f)",
		payment.ID, payment.UserID, payment.PropertyID, payment.EquityComponent)
	return payment, nil
}

func (p *Processor) fail(ctx context.Context, payment *models.Payment, update StatusUpdate) (*models.Payment, error) {
	from := payment.Status
	payment.Status = models.PaymentStatusFailed
	payment.FailureReason = update.FailureReason

	if err := p.repo.UpdatePayment(ctx, payment, from); err != nil {
		return nil, fmt.Errorf("failed to persist failed payment: %w", err)
	}

	p.log.Infof("Payment failed: %s (%s)", payment.ID, payment.FailureReason)
	return payment, nil
}

func (p *Processor) refund(ctx context.Context, payment *models.Payment, update StatusUpdate) (*models.Payment, error) {
	var reversed *models.EquityAccumulation
	if payment.EquityComponent > 0 {
		rec, err := p.ledger.ReversePayment(ctx, payment.UserID, payment.PropertyID, payment.EquityComponent)
		if err != nil {
			return nil, err
		}
		reversed = rec
	}

	from := payment.Status
	payment.Status = models.PaymentStatusRefunded
	if update.TransactionID != "" {
		payment.TransactionID = update.TransactionID
	}

	if err := p.repo.UpdatePayment(ctx, payment, from); err != nil {
		if reversed != nil {
			if _, applyErr := p.ledger.ApplyPayment(ctx, payment.UserID, payment.PropertyID, reversed.ContractPrice, payment.EquityComponent); applyErr != nil {
				p.log.Errorf("Failed to restore equity after aborted refund of %s: %v", payment.ID, applyErr)
			}
		}
		return nil, fmt.Errorf("failed to persist refunded payment: %w", err)
	}

	p.log.Infof("Payment refunded: %s (user %s, property %s, equity %.2f)",
		payment.ID, payment.UserID, payment.PropertyID, payment.EquityComponent)
	return payment, nil
}
