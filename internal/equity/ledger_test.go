package equity_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentvest/rent2own-service/internal/equity"
)

func newTestLedger() *equity.Ledger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return equity.NewLedger(equity.NewMemoryStore(), log)
}

func TestApplyPayment_FirstPaymentCreatesRecord(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	// First RENT payment of 35000 on a 7.2M contract carries 24500 equity.
	rec, err := ledger.ApplyPayment(ctx, "user-1", "prop-1", 7200000, 24500)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.InDelta(t, 24500, rec.TotalEquity, 0.01)
	assert.InDelta(t, 7175500, rec.RemainingBalance, 0.01)
	assert.InDelta(t, 0.340, rec.OwnershipPercentage, 0.001)
	assert.InDelta(t, 24500, rec.MonthlyEquity, 0.01)
	assert.False(t, rec.LastUpdated.IsZero())
	assert.NotEmpty(t, rec.ID)
}

func TestApplyPayment_SixMonthsAccumulate(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	var lastOwnership float64
	for i := 0; i < 6; i++ {
		rec, err := ledger.ApplyPayment(ctx, "user-1", "prop-1", 7200000, 24500)
		require.NoError(t, err)

		// Ownership only ever grows while payments are applied.
		assert.Greater(t, rec.OwnershipPercentage, lastOwnership)
		lastOwnership = rec.OwnershipPercentage

		// Derived fields stay consistent with the source total after every update.
		assert.InDelta(t, 7200000, rec.TotalEquity+rec.RemainingBalance, 0.01)
	}

	rec, err := ledger.GetStatus(ctx, "user-1", "prop-1")
	require.NoError(t, err)
	assert.InDelta(t, 147000, rec.TotalEquity, 0.01)
	assert.InDelta(t, 7053000, rec.RemainingBalance, 0.01)
	assert.InDelta(t, 2.042, rec.OwnershipPercentage, 0.001)
}

func TestApplyPayment_ZeroEquityIsNoOp(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	rec, err := ledger.ApplyPayment(ctx, "user-1", "prop-1", 7200000, 0)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = ledger.GetStatus(ctx, "user-1", "prop-1")
	assert.ErrorIs(t, err, equity.ErrNotFound)

	// Same for an existing record: a maintenance fee must not move it.
	_, err = ledger.ApplyPayment(ctx, "user-2", "prop-2", 7200000, 24500)
	require.NoError(t, err)
	before, err := ledger.GetStatus(ctx, "user-2", "prop-2")
	require.NoError(t, err)

	after, err := ledger.ApplyPayment(ctx, "user-2", "prop-2", 7200000, 0)
	require.NoError(t, err)
	assert.Equal(t, before.TotalEquity, after.TotalEquity)
	assert.Equal(t, before.LastUpdated, after.LastUpdated)
}

func TestReversePayment(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := ledger.ApplyPayment(ctx, "user-1", "prop-1", 7200000, 24500)
		require.NoError(t, err)
	}

	// Refund one of the six payments.
	rec, err := ledger.ReversePayment(ctx, "user-1", "prop-1", 24500)
	require.NoError(t, err)
	assert.InDelta(t, 122500, rec.TotalEquity, 0.01)
	assert.InDelta(t, 7077500, rec.RemainingBalance, 0.01)
	assert.InDelta(t, 7200000, rec.TotalEquity+rec.RemainingBalance, 0.01)

	// Reverse the remaining five, then a sixth reversal must fail.
	for i := 0; i < 5; i++ {
		rec, err = ledger.ReversePayment(ctx, "user-1", "prop-1", 24500)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0, rec.TotalEquity, 0.01)
	assert.InDelta(t, 0, rec.OwnershipPercentage, 0.001)

	before, err := ledger.GetStatus(ctx, "user-1", "prop-1")
	require.NoError(t, err)

	_, err = ledger.ReversePayment(ctx, "user-1", "prop-1", 24500)
	assert.ErrorIs(t, err, equity.ErrReversalExceedsEquity)

	// The failed reversal left the record untouched.
	after, err := ledger.GetStatus(ctx, "user-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, before.TotalEquity, after.TotalEquity)
	assert.Equal(t, before.LastUpdated, after.LastUpdated)
}

func TestReversePayment_NoRecord(t *testing.T) {
	ledger := newTestLedger()

	_, err := ledger.ReversePayment(context.Background(), "user-x", "prop-x", 1000)
	assert.ErrorIs(t, err, equity.ErrNotFound)
}

func TestApplyPayment_OverAllocationRejected(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	_, err := ledger.ApplyPayment(ctx, "user-1", "prop-1", 100000, 90000)
	require.NoError(t, err)

	// Pushing past the contract price is a data error, not something to clamp.
	_, err = ledger.ApplyPayment(ctx, "user-1", "prop-1", 100000, 20000)
	assert.ErrorIs(t, err, equity.ErrOverAllocated)

	rec, err := ledger.GetStatus(ctx, "user-1", "prop-1")
	require.NoError(t, err)
	assert.InDelta(t, 90000, rec.TotalEquity, 0.01)
	assert.LessOrEqual(t, rec.OwnershipPercentage, 100.0)

	// Paying off exactly the remainder is fine and lands at 100%.
	rec, err = ledger.ApplyPayment(ctx, "user-1", "prop-1", 100000, 10000)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, rec.OwnershipPercentage, 0.001)
	assert.InDelta(t, 0, rec.RemainingBalance, 0.01)
}

func TestApplyPayment_InvalidContractPrice(t *testing.T) {
	ledger := newTestLedger()

	_, err := ledger.ApplyPayment(context.Background(), "user-1", "prop-1", 0, 1000)
	assert.Error(t, err)
}

func TestLedger_PairsAreIndependent(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	_, err := ledger.ApplyPayment(ctx, "user-1", "prop-1", 7200000, 24500)
	require.NoError(t, err)
	_, err = ledger.ApplyPayment(ctx, "user-1", "prop-2", 5000000, 14000)
	require.NoError(t, err)

	rec1, err := ledger.GetStatus(ctx, "user-1", "prop-1")
	require.NoError(t, err)
	rec2, err := ledger.GetStatus(ctx, "user-1", "prop-2")
	require.NoError(t, err)

	assert.InDelta(t, 24500, rec1.TotalEquity, 0.01)
	assert.InDelta(t, 14000, rec2.TotalEquity, 0.01)
}

func TestLedger_ConcurrentAppliesLoseNothing(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	const workers = 20
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := ledger.ApplyPayment(ctx, "user-1", "prop-1", 10000000, 100)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	rec, err := ledger.GetStatus(ctx, "user-1", "prop-1")
	require.NoError(t, err)
	assert.InDelta(t, float64(workers*perWorker*100), rec.TotalEquity, 0.01)
	assert.InDelta(t, 10000000, rec.TotalEquity+rec.RemainingBalance, 0.01)
}
