package payments_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentvest/rent2own-service/internal/equity"
	"github.com/rentvest/rent2own-service/internal/models"
	"github.com/rentvest/rent2own-service/internal/payments"
	mock_payments "github.com/rentvest/rent2own-service/internal/payments/mocks"
)

const (
	testUserID     = "user-1"
	testPropertyID = "prop-1"
	testPaymentID  = "pay-1"
)

func testProperty() *models.Property {
	return &models.Property{
		ID:            testPropertyID,
		Rent2OwnPrice: 7200000,
		Status:        models.PropertyStatusReserved,
	}
}

func pendingRentPayment() *models.Payment {
	return &models.Payment{
		ID:              testPaymentID,
		UserID:          testUserID,
		PropertyID:      testPropertyID,
		Amount:          35000,
		PaymentType:     models.PaymentTypeRent,
		Status:          models.PaymentStatusPending,
		EquityComponent: 24500,
		RentComponent:   10500,
	}
}

func newProcessor(t *testing.T, repo payments.PaymentRepository) (*payments.Processor, *equity.Ledger) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	ledger := equity.NewLedger(equity.NewMemoryStore(), log)
	return payments.NewProcessor(repo, ledger, log), ledger
}

func TestProcess_CompleteAppliesEquityOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	repo := mock_payments.NewMockPaymentRepository(ctrl)
	processor, ledger := newProcessor(t, repo)

	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(pendingRentPayment(), nil)
	repo.EXPECT().GetProperty(ctx, testPropertyID).Return(testProperty(), nil)
	repo.EXPECT().UpdatePayment(ctx, gomock.Any(), models.PaymentStatusPending).Return(nil)

	updated, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID:     testPaymentID,
		Status:        models.PaymentStatusCompleted,
		TransactionID: "txn-42",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Status)
	assert.Equal(t, "txn-42", updated.TransactionID)
	require.NotNil(t, updated.PaidAt)

	rec, err := ledger.GetStatus(ctx, testUserID, testPropertyID)
	require.NoError(t, err)
	assert.InDelta(t, 24500, rec.TotalEquity, 0.01)

	// Completing a payment that is already COMPLETED must be rejected, so
	// equity can never be applied twice.
	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(updated, nil)
	_, err = processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusCompleted,
	})
	assert.ErrorIs(t, err, payments.ErrInvalidTransition)

	rec, err = ledger.GetStatus(ctx, testUserID, testPropertyID)
	require.NoError(t, err)
	assert.InDelta(t, 24500, rec.TotalEquity, 0.01)
}

func TestProcess_DuplicateCompletionCallbacksApplyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	repo := mock_payments.NewMockPaymentRepository(ctrl)
	processor, ledger := newProcessor(t, repo)

	// Two gateway callbacks race: both read the payment while it is still
	// PENDING and both pass transition validation. The conditional status
	// write lets exactly one of them land.
	repo.EXPECT().GetPayment(ctx, testPaymentID).DoAndReturn(
		func(context.Context, string) (*models.Payment, error) {
			return pendingRentPayment(), nil
		}).Times(2)
	repo.EXPECT().GetProperty(ctx, testPropertyID).Return(testProperty(), nil).Times(2)
	first := repo.EXPECT().UpdatePayment(ctx, gomock.Any(), models.PaymentStatusPending).Return(nil)
	repo.EXPECT().UpdatePayment(ctx, gomock.Any(), models.PaymentStatusPending).
		After(first).
		Return(fmt.Errorf("payment %s is no longer %s: %w",
			testPaymentID, models.PaymentStatusPending, payments.ErrInvalidTransition))

	_, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusCompleted,
	})
	require.NoError(t, err)

	_, err = processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusCompleted,
	})
	assert.ErrorIs(t, err, payments.ErrInvalidTransition)

	// The loser's equity application was compensated: one payment's worth
	// of equity remains, not two.
	rec, err := ledger.GetStatus(ctx, testUserID, testPropertyID)
	require.NoError(t, err)
	assert.InDelta(t, 24500, rec.TotalEquity, 0.01)
}

func TestProcess_CompleteWithoutEquitySkipsLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	repo := mock_payments.NewMockPaymentRepository(ctrl)
	processor, ledger := newProcessor(t, repo)

	payment := pendingRentPayment()
	payment.PaymentType = models.PaymentTypeMaintenance
	payment.EquityComponent = 0
	payment.RentComponent = 0

	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(payment, nil)
	repo.EXPECT().UpdatePayment(ctx, gomock.Any(), models.PaymentStatusPending).Return(nil)

	_, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusCompleted,
	})
	require.NoError(t, err)

	_, err = ledger.GetStatus(ctx, testUserID, testPropertyID)
	assert.ErrorIs(t, err, equity.ErrNotFound)
}

func TestProcess_FailIsTerminalWithNoLedgerEffect(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	repo := mock_payments.NewMockPaymentRepository(ctrl)
	processor, ledger := newProcessor(t, repo)

	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(pendingRentPayment(), nil)
	repo.EXPECT().UpdatePayment(ctx, gomock.Any(), models.PaymentStatusPending).Return(nil)

	updated, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID:     testPaymentID,
		Status:        models.PaymentStatusFailed,
		FailureReason: "NACH mandate bounced",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, updated.Status)
	assert.Equal(t, "NACH mandate bounced", updated.FailureReason)

	_, err = ledger.GetStatus(ctx, testUserID, testPropertyID)
	assert.ErrorIs(t, err, equity.ErrNotFound)

	// FAILED is terminal: no further transition is accepted.
	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(updated, nil)
	_, err = processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusCompleted,
	})
	assert.ErrorIs(t, err, payments.ErrInvalidTransition)
}

func TestProcess_RefundReversesEquity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	repo := mock_payments.NewMockPaymentRepository(ctrl)
	processor, ledger := newProcessor(t, repo)

	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(pendingRentPayment(), nil)
	repo.EXPECT().GetProperty(ctx, testPropertyID).Return(testProperty(), nil)
	repo.EXPECT().UpdatePayment(ctx, gomock.Any(), models.PaymentStatusPending).Return(nil)

	completed, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusCompleted,
	})
	require.NoError(t, err)

	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(completed, nil)
	repo.EXPECT().UpdatePayment(ctx, gomock.Any(), models.PaymentStatusCompleted).Return(nil)
	refunded, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusRefunded,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)

	rec, err := ledger.GetStatus(ctx, testUserID, testPropertyID)
	require.NoError(t, err)
	assert.InDelta(t, 0, rec.TotalEquity, 0.01)
	assert.InDelta(t, 7200000, rec.RemainingBalance, 0.01)
}

func TestProcess_RefundingPendingPaymentRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	repo := mock_payments.NewMockPaymentRepository(ctrl)
	processor, _ := newProcessor(t, repo)

	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(pendingRentPayment(), nil)

	_, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusRefunded,
	})
	assert.ErrorIs(t, err, payments.ErrInvalidTransition)
}

func TestProcess_PersistFailureCompensatesLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	repo := mock_payments.NewMockPaymentRepository(ctrl)
	processor, ledger := newProcessor(t, repo)

	repo.EXPECT().GetPayment(ctx, testPaymentID).Return(pendingRentPayment(), nil)
	repo.EXPECT().GetProperty(ctx, testPropertyID).Return(testProperty(), nil)
	repo.EXPECT().UpdatePayment(ctx, gomock.Any(), models.PaymentStatusPending).Return(errors.New("connection reset"))

	_, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID: testPaymentID,
		Status:    models.PaymentStatusCompleted,
	})
	require.Error(t, err)

	// The aborted completion must not leave equity behind.
	rec, err := ledger.GetStatus(ctx, testUserID, testPropertyID)
	require.NoError(t, err)
	assert.InDelta(t, 0, rec.TotalEquity, 0.01)
}

func TestProcess_UnknownPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	repo := mock_payments.NewMockPaymentRepository(ctrl)
	processor, _ := newProcessor(t, repo)

	repo.EXPECT().GetPayment(ctx, "missing").Return(nil, payments.ErrPaymentNotFound)

	_, err := processor.Process(ctx, payments.StatusUpdate{
		PaymentID: "missing",
		Status:    models.PaymentStatusCompleted,
	})
	assert.ErrorIs(t, err, payments.ErrPaymentNotFound)
}

func TestValidateTransition_Table(t *testing.T) {
	tests := []struct {
		from, to models.PaymentStatus
		ok       bool
	}{
		{models.PaymentStatusPending, models.PaymentStatusCompleted, true},
		{models.PaymentStatusPending, models.PaymentStatusFailed, true},
		{models.PaymentStatusCompleted, models.PaymentStatusRefunded, true},
		{models.PaymentStatusPending, models.PaymentStatusRefunded, false},
		{models.PaymentStatusCompleted, models.PaymentStatusCompleted, false},
		{models.PaymentStatusCompleted, models.PaymentStatusFailed, false},
		{models.PaymentStatusFailed, models.PaymentStatusCompleted, false},
		{models.PaymentStatusFailed, models.PaymentStatusRefunded, false},
		{models.PaymentStatusRefunded, models.PaymentStatusCompleted, false},
		{models.PaymentStatusRefunded, models.PaymentStatusRefunded, false},
	}

	for _, tt := range tests {
		err := models.ValidateTransition(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.Error(t, err, "%s -> %s", tt.from, tt.to)
		}
	}
}
