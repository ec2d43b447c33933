package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/rentvest/rent2own-service/internal/config"
	"github.com/rentvest/rent2own-service/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendPaymentReminder sends a reminder for a pending rent-to-own payment
func (s *Sender) SendPaymentReminder(to, username string, payment *models.Payment, isOverdue bool) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	if isOverdue {
		e.Subject = "Overdue Rent2Own Payment Notification"
	} else {
		e.Subject = "Upcoming Rent2Own Payment Reminder"
	}

	body := fmt.Sprintf("Dear %s,\n\n", username)
	if isOverdue {
		body += fmt.Sprintf(
			"Your monthly payment of %.2f was due on %s and is now overdue.\n"+
				"Please make the payment as soon as possible to keep your equity building on schedule.\n",
			payment.Amount, payment.DueDate.Format("2006-01-02"),
		)
	} else {
		body += fmt.Sprintf(
			"This is a reminder that your monthly payment of %.2f is due on %s.\n"+
				"%.2f of this payment will count toward your ownership stake.\n",
			payment.Amount, payment.DueDate.Format("2006-01-02"), payment.EquityComponent,
		)
	}
	body += "\nBest regards,\nRentvest"
	e.Text = []byte(body)

	return s.send(e)
}

// SendPaymentReceipt notifies the payer that a payment completed and reports
// the resulting ownership position
func (s *Sender) SendPaymentReceipt(to, username string, payment *models.Payment, record *models.EquityAccumulation) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Payment Received"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"We received your payment of %.2f on %s.\n",
		username, payment.Amount, time.Now().Format("2006-01-02 15:04:05"),
	)
	if record != nil {
		body += fmt.Sprintf(
			"Equity credited: %.2f\n"+
				"Total equity: %.2f\n"+
				"Ownership: %.3f%%\n"+
				"Remaining balance: %.2f\n",
			payment.EquityComponent, record.TotalEquity, record.OwnershipPercentage, record.RemainingBalance,
		)
	}
	body += "\nBest regards,\nRentvest"
	e.Text = []byte(body)

	return s.send(e)
}

// SendRefundNotice notifies the payer that a payment was refunded
func (s *Sender) SendRefundNotice(to, username string, payment *models.Payment) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Payment Refunded"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your payment of %.2f has been refunded.\n"+
			"The equity portion of %.2f has been removed from your ownership balance.\n"+
			"\nBest regards,\nRentvest",
		username, payment.Amount, payment.EquityComponent,
	)
	e.Text = []byte(body)

	return s.send(e)
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}
