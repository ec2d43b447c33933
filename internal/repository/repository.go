package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rentvest/rent2own-service/internal/models"
	"github.com/rentvest/rent2own-service/internal/payments"
)

// ErrUserExists is returned when registration collides with an existing email or mobile.
var ErrUserExists = errors.New("user with this email or mobile already exists")

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO rent2own.users (id, email, name, mobile, user_type, kyc_status, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.Mobile, user.UserType, user.KYCStatus, user.PasswordHash).
		Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, name, mobile, user_type, kyc_status, password_hash, created_at
		FROM rent2own.users
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.Name, &user.Mobile, &user.UserType, &user.KYCStatus, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by ID
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, name, mobile, user_type, kyc_status, password_hash, created_at
		FROM rent2own.users
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.Name, &user.Mobile, &user.UserType, &user.KYCStatus, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UserExists reports whether a user with the given email or mobile is registered
func (r *Repository) UserExists(ctx context.Context, email, mobile string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM rent2own.users
			WHERE email = $1 OR ($2 <> '' AND mobile = $2)
		)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, mobile).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// CreateProperty creates a new property listing
func (r *Repository) CreateProperty(ctx context.Context, property *models.Property) error {
	query := `
		INSERT INTO rent2own.properties
			(id, builder_id, title, description, property_type, bhk, bathrooms, carpet_area,
			 total_price, rent2own_price, monthly_payment, tenure_years,
			 address, city, state, pincode, locality, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		property.ID, property.BuilderID, property.Title, property.Description, property.PropertyType,
		property.BHK, property.Bathrooms, property.CarpetArea,
		property.TotalPrice, property.Rent2OwnPrice, property.MonthlyPayment, property.TenureYears,
		property.Address, property.City, property.State, property.Pincode, property.Locality, property.Status).
		Scan(&property.CreatedAt, &property.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// GetProperty retrieves a property by ID
func (r *Repository) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	property := &models.Property{}
	query := `
		SELECT id, builder_id, title, description, property_type, bhk, bathrooms, carpet_area,
		       total_price, rent2own_price, monthly_payment, tenure_years,
		       address, city, state, pincode, locality, status, created_at, updated_at
		FROM rent2own.properties
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&property.ID, &property.BuilderID, &property.Title, &property.Description, &property.PropertyType,
		&property.BHK, &property.Bathrooms, &property.CarpetArea,
		&property.TotalPrice, &property.Rent2OwnPrice, &property.MonthlyPayment, &property.TenureYears,
		&property.Address, &property.City, &property.State, &property.Pincode, &property.Locality,
		&property.Status, &property.CreatedAt, &property.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("property not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return property, nil
}

// ListProperties returns AVAILABLE listings matching the filter, newest first
func (r *Repository) ListProperties(ctx context.Context, filter models.PropertyFilter) ([]models.Property, int, error) {
	where := []string{"status = 'AVAILABLE'"}
	args := []interface{}{}

	if filter.City != "" {
		args = append(args, "%"+filter.City+"%")
		where = append(where, fmt.Sprintf("city ILIKE $%d", len(args)))
	}
	if filter.MinBudget > 0 {
		args = append(args, filter.MinBudget)
		where = append(where, fmt.Sprintf("rent2own_price >= $%d", len(args)))
	}
	if filter.MaxBudget > 0 {
		args = append(args, filter.MaxBudget)
		where = append(where, fmt.Sprintf("rent2own_price <= $%d", len(args)))
	}
	if filter.BHK > 0 {
		args = append(args, filter.BHK)
		where = append(where, fmt.Sprintf("bhk = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("property_type = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM rent2own.properties WHERE " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT id, builder_id, title, description, property_type, bhk, bathrooms, carpet_area,
		       total_price, rent2own_price, monthly_payment, tenure_years,
		       address, city, state, pincode, locality, status, created_at, updated_at
		FROM rent2own.properties
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(
			&p.ID, &p.BuilderID, &p.Title, &p.Description, &p.PropertyType,
			&p.BHK, &p.Bathrooms, &p.CarpetArea,
			&p.TotalPrice, &p.Rent2OwnPrice, &p.MonthlyPayment, &p.TenureYears,
			&p.Address, &p.City, &p.State, &p.Pincode, &p.Locality,
			&p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}
	return properties, total, rows.Err()
}

// CreatePayment creates a new payment record
func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO rent2own.payments
			(id, user_id, property_id, amount, payment_type, payment_method, status,
			 equity_component, rent_component, transaction_id, failure_reason, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		payment.ID, payment.UserID, payment.PropertyID, payment.Amount,
		payment.PaymentType, payment.PaymentMethod, payment.Status,
		payment.EquityComponent, payment.RentComponent,
		payment.TransactionID, payment.FailureReason, payment.DueDate).
		Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by ID
func (r *Repository) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT id, user_id, property_id, amount, payment_type, payment_method, status,
		       equity_component, rent_component, transaction_id, failure_reason,
		       due_date, paid_at, created_at, updated_at
		FROM rent2own.payments
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&payment.ID, &payment.UserID, &payment.PropertyID, &payment.Amount,
		&payment.PaymentType, &payment.PaymentMethod, &payment.Status,
		&payment.EquityComponent, &payment.RentComponent,
		&payment.TransactionID, &payment.FailureReason,
		&payment.DueDate, &payment.PaidAt, &payment.CreatedAt, &payment.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment %s: %w", id, payments.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return payment, nil
}

// UpdatePayment persists the mutable fields of a payment. The write is
// conditional on the status the caller read, so of two racing transitions
// only one can land; the loser sees ErrInvalidTransition.
func (r *Repository) UpdatePayment(ctx context.Context, payment *models.Payment, from models.PaymentStatus) error {
	query := `
		UPDATE rent2own.payments
		SET status = $2, transaction_id = $3, failure_reason = $4, paid_at = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $6
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		payment.ID, payment.Status, payment.TransactionID, payment.FailureReason, payment.PaidAt, from).
		Scan(&payment.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("payment %s is no longer %s: %w", payment.ID, from, payments.ErrInvalidTransition)
	}
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

// ListPayments returns payments matching the filter, newest due date first
func (r *Repository) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.PropertyID != "" {
		args = append(args, filter.PropertyID)
		where = append(where, fmt.Sprintf("property_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM rent2own.payments WHERE " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT id, user_id, property_id, amount, payment_type, payment_method, status,
		       equity_component, rent_component, transaction_id, failure_reason,
		       due_date, paid_at, created_at, updated_at
		FROM rent2own.payments
		WHERE %s
		ORDER BY due_date DESC
		LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var result []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.PropertyID, &p.Amount,
			&p.PaymentType, &p.PaymentMethod, &p.Status,
			&p.EquityComponent, &p.RentComponent,
			&p.TransactionID, &p.FailureReason,
			&p.DueDate, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

// DuePayment pairs an overdue PENDING payment with the payer's contact details
type DuePayment struct {
	Payment  models.Payment
	Email    string
	UserName string
}

// ListDuePayments returns PENDING payments whose due date has passed
func (r *Repository) ListDuePayments(ctx context.Context, asOf time.Time) ([]DuePayment, error) {
	query := `
		SELECT p.id, p.user_id, p.property_id, p.amount, p.payment_type, p.payment_method, p.status,
		       p.equity_component, p.rent_component, p.due_date, u.email, u.name
		FROM rent2own.payments p
		JOIN rent2own.users u ON u.id = p.user_id
		WHERE p.status = 'PENDING' AND p.due_date <= $1
		ORDER BY p.due_date`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due payments: %w", err)
	}
	defer rows.Close()

	var due []DuePayment
	for rows.Next() {
		var d DuePayment
		if err := rows.Scan(
			&d.Payment.ID, &d.Payment.UserID, &d.Payment.PropertyID, &d.Payment.Amount,
			&d.Payment.PaymentType, &d.Payment.PaymentMethod, &d.Payment.Status,
			&d.Payment.EquityComponent, &d.Payment.RentComponent, &d.Payment.DueDate,
			&d.Email, &d.UserName); err != nil {
			return nil, fmt.Errorf("failed to scan due payment: %w", err)
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
