package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rentvest/rent2own-service/internal/equity"
	"github.com/rentvest/rent2own-service/internal/models"
)

// EquityStore is the Postgres-backed equity.Store. Mutate serializes
// concurrent updates to the same (user, property) row with SELECT ... FOR
// UPDATE inside a transaction; rows for different pairs never block each
// other.
type EquityStore struct {
	db *sql.DB
}

// NewEquityStore initializes a Postgres equity store
func NewEquityStore(db *sql.DB) *EquityStore {
	return &EquityStore{db: db}
}

const equityColumns = `id, user_id, property_id, contract_price, total_equity,
	monthly_equity, ownership_percentage, remaining_balance, last_updated`

func scanEquity(row *sql.Row) (*models.EquityAccumulation, error) {
	rec := &models.EquityAccumulation{}
	err := row.Scan(&rec.ID, &rec.UserID, &rec.PropertyID, &rec.ContractPrice, &rec.TotalEquity,
		&rec.MonthlyEquity, &rec.OwnershipPercentage, &rec.RemainingBalance, &rec.LastUpdated)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the pair's equity record, or equity.ErrNotFound
func (s *EquityStore) Get(ctx context.Context, userID, propertyID string) (*models.EquityAccumulation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM rent2own.equity_accumulations
		WHERE user_id = $1 AND property_id = $2`, equityColumns)
	rec, err := scanEquity(s.db.QueryRowContext(ctx, query, userID, propertyID))
	if err == sql.ErrNoRows {
		return nil, equity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find equity record: %w", err)
	}
	return rec, nil
}

// Mutate loads the pair's row under a row lock, applies fn and persists the
// result. If fn fails the transaction rolls back and nothing is written.
func (s *EquityStore) Mutate(ctx context.Context, userID, propertyID string, fn func(cur *models.EquityAccumulation) (*models.EquityAccumulation, error)) (*models.EquityAccumulation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		SELECT %s FROM rent2own.equity_accumulations
		WHERE user_id = $1 AND property_id = $2
		FOR UPDATE`, equityColumns)
	cur, err := scanEquity(tx.QueryRowContext(ctx, query, userID, propertyID))
	if err == sql.ErrNoRows {
		cur = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to lock equity record: %w", err)
	}

	updated, err := fn(cur)
	if err != nil {
		return nil, err
	}

	upsert := `
		INSERT INTO rent2own.equity_accumulations
			(id, user_id, property_id, contract_price, total_equity,
			 monthly_equity, ownership_percentage, remaining_balance, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, property_id) DO UPDATE SET
			contract_price = EXCLUDED.contract_price,
			total_equity = EXCLUDED.total_equity,
			monthly_equity = EXCLUDED.monthly_equity,
			ownership_percentage = EXCLUDED.ownership_percentage,
			remaining_balance = EXCLUDED.remaining_balance,
			last_updated = EXCLUDED.last_updated`
	if _, err := tx.ExecContext(ctx, upsert,
		updated.ID, updated.UserID, updated.PropertyID, updated.ContractPrice, updated.TotalEquity,
		updated.MonthlyEquity, updated.OwnershipPercentage, updated.RemainingBalance, updated.LastUpdated); err != nil {
		return nil, fmt.Errorf("failed to save equity record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit equity update: %w", err)
	}
	return updated, nil
}
