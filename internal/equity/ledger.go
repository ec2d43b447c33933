package equity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rentvest/rent2own-service/internal/models"
)

var (
	// ErrNotFound is returned when no equity record exists for a (user, property) pair.
	ErrNotFound = errors.New("equity record not found")
	// ErrReversalExceedsEquity is returned when a reversal would drive total equity below zero.
	ErrReversalExceedsEquity = errors.New("reversal amount exceeds recorded equity")
	// ErrOverAllocated is returned when a payment would push total equity past the contract price.
	ErrOverAllocated = errors.New("total equity would exceed contract price")
)

// balanceTolerance absorbs float rounding when comparing currency amounts.
const balanceTolerance = 0.01

// Store persists equity records keyed by (userID, propertyID).
//
// Mutate must serialize concurrent calls for the same pair: it loads the
// current record (nil when absent), applies fn, and persists whatever record
// fn returns. When fn returns an error nothing is written. Calls for
// different pairs must not block each other.
type Store interface {
	Get(ctx context.Context, userID, propertyID string) (*models.EquityAccumulation, error)
	Mutate(ctx context.Context, userID, propertyID string, fn func(cur *models.EquityAccumulation) (*models.EquityAccumulation, error)) (*models.EquityAccumulation, error)
}

// Ledger maintains one EquityAccumulation record per (user, property) pair
// and applies completed payments to it. Every mutation recomputes the derived
// fields from total equity and contract price rather than adjusting them
// incrementally, so the record never drifts from its source totals.
type Ledger struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

// NewLedger initializes a ledger backed by the given store
func NewLedger(store Store, log *logrus.Logger) *Ledger {
	return &Ledger{store: store, log: log, now: time.Now}
}

// deriveDerived recomputes the fields that depend on total equity. Keeping
// this a single pure function guarantees remaining balance and ownership
// percentage always move together.
func deriveDerived(totalEquity, contractPrice float64) (remainingBalance, ownershipPercentage float64) {
	return contractPrice - totalEquity, totalEquity / contractPrice * 100
}

// ApplyPayment credits the equity component of a completed payment to the
// pair's record, creating it on first contact. Payments with no equity
// component never create or touch a record.
func (l *Ledger) ApplyPayment(ctx context.Context, userID, propertyID string, contractPrice, equityComponent float64) (*models.EquityAccumulation, error) {
	if equityComponent <= 0 {
		rec, err := l.store.Get(ctx, userID, propertyID)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return rec, err
	}
	if contractPrice <= 0 {
		return nil, fmt.Errorf("contract price must be positive, got %.2f", contractPrice)
	}

	rec, err := l.store.Mutate(ctx, userID, propertyID, func(cur *models.EquityAccumulation) (*models.EquityAccumulation, error) {
		if cur == nil {
			cur = &models.EquityAccumulation{
				ID:         uuid.NewString(),
				UserID:     userID,
				PropertyID: propertyID,
			}
		}
		total := cur.TotalEquity + equityComponent
		if total > contractPrice+balanceTolerance {
			return nil, fmt.Errorf("applying %.2f to %.2f of %.2f: %w",
				equityComponent, cur.TotalEquity, contractPrice, ErrOverAllocated)
		}

		cur.ContractPrice = contractPrice
		cur.TotalEquity = total
		cur.MonthlyEquity = equityComponent
		cur.RemainingBalance, cur.OwnershipPercentage = deriveDerived(total, contractPrice)
		cur.LastUpdated = l.now()
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Infof("Equity applied for user %s property %s: +%.2f, ownership %.3f%%",
		userID, propertyID, equityComponent, rec.OwnershipPercentage)
	return rec, nil
}

// ReversePayment debits previously applied equity, used when a completed
// payment is refunded. The record's stored contract price is authoritative
// for the recomputation. Reversing more equity than was recorded fails and
// leaves the record untouched.
func (l *Ledger) ReversePayment(ctx context.Context, userID, propertyID string, equityComponent float64) (*models.EquityAccumulation, error) {
	if equityComponent <= 0 {
		rec, err := l.store.Get(ctx, userID, propertyID)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return rec, err
	}

	rec, err := l.store.Mutate(ctx, userID, propertyID, func(cur *models.EquityAccumulation) (*models.EquityAccumulation, error) {
		if cur == nil {
			return nil, ErrNotFound
		}
		total := cur.TotalEquity - equityComponent
		if total < -balanceTolerance {
			return nil, fmt.Errorf("reversing %.2f from %.2f: %w",
				equityComponent, cur.TotalEquity, ErrReversalExceedsEquity)
		}
		if total < 0 {
			total = 0
		}

		cur.TotalEquity = total
		cur.RemainingBalance, cur.OwnershipPercentage = deriveDerived(total, cur.ContractPrice)
		cur.LastUpdated = l.now()
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Infof("Equity reversed for user %s property %s: -%.2f, ownership %.3f%%",
		userID, propertyID, equityComponent, rec.OwnershipPercentage)
	return rec, nil
}

// GetStatus returns the pair's current equity record
func (l *Ledger) GetStatus(ctx context.Context, userID, propertyID string) (*models.EquityAccumulation, error) {
	return l.store.Get(ctx, userID, propertyID)
}
