package models

import (
	"fmt"
	"time"
)

// PaymentType classifies what a payment is for. Only RENT and EQUITY
// payments carry an equity component.
type PaymentType string

const (
	PaymentTypeRent          PaymentType = "RENT"
	PaymentTypeEquity        PaymentType = "EQUITY"
	PaymentTypeMaintenance   PaymentType = "MAINTENANCE"
	PaymentTypeDeposit       PaymentType = "DEPOSIT"
	PaymentTypeProcessingFee PaymentType = "PROCESSING_FEE"
)

// PaymentMethod is how the payment was collected
type PaymentMethod string

const (
	PaymentMethodUPI    PaymentMethod = "UPI"
	PaymentMethodNACH   PaymentMethod = "NACH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCheque PaymentMethod = "CHEQUE"
)

// PaymentStatus is the payment lifecycle state
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// validTransitions enumerates every legal status change. The ledger relies
// on this to guarantee at-most-once application of a payment: a payment can
// be completed once, and a completed payment can be refunded once.
var validTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

// ValidateTransition reports whether moving a payment from one status to
// another is legal.
func ValidateTransition(from, to PaymentStatus) error {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("invalid payment transition %s -> %s", from, to)
}

// Payment represents a single rent-to-own payment
type Payment struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	PropertyID      string        `json:"property_id"`
	Amount          float64       `json:"amount"`
	PaymentType     PaymentType   `json:"payment_type"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Status          PaymentStatus `json:"status"`
	EquityComponent float64       `json:"equity_component"`
	RentComponent   float64       `json:"rent_component"`
	TransactionID   string        `json:"transaction_id,omitempty"`
	FailureReason   string        `json:"failure_reason,omitempty"`
	DueDate         time.Time     `json:"due_date"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// PaymentFilter narrows a payment listing query. Zero values mean "no constraint".
type PaymentFilter struct {
	UserID     string
	PropertyID string
	Status     PaymentStatus
	Page       int
	Limit      int
}
