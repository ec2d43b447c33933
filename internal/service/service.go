package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/rentvest/rent2own-service/internal/affordability"
	"github.com/rentvest/rent2own-service/internal/config"
	"github.com/rentvest/rent2own-service/internal/equity"
	"github.com/rentvest/rent2own-service/internal/models"
	"github.com/rentvest/rent2own-service/internal/payments"
	"github.com/rentvest/rent2own-service/internal/repository"
	"github.com/rentvest/rent2own-service/internal/utils/email"
)

// Service handles business logic
type Service struct {
	repo      *repository.Repository
	calc      *affordability.Calculator
	processor *payments.Processor
	ledger    *equity.Ledger
	mailer    *email.Sender
	log       *logrus.Logger
	config    *config.Config
}

// NewService initializes a new service
func NewService(repo *repository.Repository, calc *affordability.Calculator, processor *payments.Processor, ledger *equity.Ledger, mailer *email.Sender, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:      repo,
		calc:      calc,
		processor: processor,
		ledger:    ledger,
		mailer:    mailer,
		log:       log,
		config:    cfg,
	}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, emailAddr, password, name, mobile string, userType models.UserType) (*models.User, error) {
	exists, err := s.repo.UserExists(ctx, emailAddr, mobile)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if userType == "" {
		userType = models.UserTypeHomeSeeker
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Name:         name,
		Mobile:       mobile,
		UserType:     userType,
		KYCStatus:    models.KYCStatusPending,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s (%s)", user.Email, user.UserType)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, emailAddr, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, emailAddr)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// EstimateAffordability runs the affordability calculator for a profile
func (s *Service) EstimateAffordability(profile models.FinancialProfile) (*models.AffordabilityResult, error) {
	return s.calc.Calculate(profile)
}

// CreatePaymentRequest is the intake shape for a new payment. When both
// components are zero the default allocation rule derives the split from the
// payment type.
type CreatePaymentRequest struct {
	UserID          string
	PropertyID      string
	Amount          float64
	PaymentType     models.PaymentType
	PaymentMethod   models.PaymentMethod
	TransactionID   string
	EquityComponent float64
	RentComponent   float64
}

// CreatePayment records a new PENDING payment with its equity/rent split
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	if _, err := s.repo.FindUserByID(ctx, req.UserID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProperty(ctx, req.PropertyID); err != nil {
		return nil, err
	}

	equityComponent, rentComponent := req.EquityComponent, req.RentComponent
	if equityComponent == 0 && rentComponent == 0 {
		equityComponent, rentComponent = s.calc.AllocateComponents(req.PaymentType, req.Amount)
	}

	payment := &models.Payment{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		PropertyID:      req.PropertyID,
		Amount:          req.Amount,
		PaymentType:     req.PaymentType,
		PaymentMethod:   req.PaymentMethod,
		Status:          models.PaymentStatusPending,
		EquityComponent: equityComponent,
		RentComponent:   rentComponent,
		TransactionID:   req.TransactionID,
		DueDate:         time.Now(),
	}

	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Infof("Payment created: %s (%s %.2f, equity %.2f)",
		payment.ID, payment.PaymentType, payment.Amount, payment.EquityComponent)
	return payment, nil
}

// ListPayments returns payments matching the filter with a total count
func (s *Service) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	return s.repo.ListPayments(ctx, filter)
}

// RecordPaymentStatus applies a gateway status update to a payment and, when
// it settles, notifies the payer by email. Notification failures are logged,
// never surfaced: the ledger update already committed.
func (s *Service) RecordPaymentStatus(ctx context.Context, update payments.StatusUpdate) (*models.Payment, error) {
	payment, err := s.processor.Process(ctx, update)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByID(ctx, payment.UserID)
	if err != nil {
		s.log.Warnf("Skipping notification for payment %s: %v", payment.ID, err)
		return payment, nil
	}

	switch payment.Status {
	case models.PaymentStatusCompleted:
		record, err := s.ledger.GetStatus(ctx, payment.UserID, payment.PropertyID)
		if err != nil && err != equity.ErrNotFound {
			s.log.Warnf("Failed to load equity record for receipt %s: %v", payment.ID, err)
		}
		if err := s.mailer.SendPaymentReceipt(user.Email, user.Name, payment, record); err != nil {
			s.log.Warnf("Failed to send receipt for payment %s: %v", payment.ID, err)
		}
	case models.PaymentStatusRefunded:
		if err := s.mailer.SendRefundNotice(user.Email, user.Name, payment); err != nil {
			s.log.Warnf("Failed to send refund notice for payment %s: %v", payment.ID, err)
		}
	}

	return payment, nil
}

// GetEquityStatus returns the equity record for a (user, property) pair
func (s *Service) GetEquityStatus(ctx context.Context, userID, propertyID string) (*models.EquityAccumulation, error) {
	return s.ledger.GetStatus(ctx, userID, propertyID)
}

// CreateProperty creates a new listing for a builder
func (s *Service) CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error) {
	if property.Title == "" {
		return nil, fmt.Errorf("property title is required")
	}
	if property.Rent2OwnPrice <= 0 {
		return nil, fmt.Errorf("rent2own price must be positive")
	}

	property.ID = uuid.NewString()
	if property.PropertyType == "" {
		property.PropertyType = models.PropertyTypeApartment
	}
	property.Status = models.PropertyStatusAvailable

	if err := s.repo.CreateProperty(ctx, property); err != nil {
		return nil, err
	}

	s.log.Infof("Property created: %s (%s, %s)", property.ID, property.Title, property.City)
	return property, nil
}

// ListProperties returns available listings matching the filter
func (s *Service) ListProperties(ctx context.Context, filter models.PropertyFilter) ([]models.Property, int, error) {
	return s.repo.ListProperties(ctx, filter)
}

// SendPaymentReminders emails every user with a PENDING payment past its due
// date. Invoked by the daily cron job.
func (s *Service) SendPaymentReminders(ctx context.Context) error {
	due, err := s.repo.ListDuePayments(ctx, time.Now())
	if err != nil {
		return err
	}

	for i := range due {
		d := due[i]
		if err := s.mailer.SendPaymentReminder(d.Email, d.UserName, &d.Payment, true); err != nil {
			s.log.Warnf("Failed to remind user %s about payment %s: %v", d.Payment.UserID, d.Payment.ID, err)
		}
	}

	s.log.Infof("Payment reminders processed: %d due", len(due))
	return nil
}
