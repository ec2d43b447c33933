package models

import "time"

// UserType distinguishes the roles on the marketplace
type UserType string

const (
	UserTypeHomeSeeker UserType = "HOME_SEEKER"
	UserTypeInvestor   UserType = "INVESTOR"
	UserTypeBuilder    UserType = "BUILDER"
	UserTypeAdmin      UserType = "ADMIN"
)

// KYCStatus tracks identity verification progress
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "PENDING"
	KYCStatusVerified KYCStatus = "VERIFIED"
	KYCStatusRejected KYCStatus = "REJECTED"
)

// User represents a user in the system
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Mobile       string    `json:"mobile,omitempty"`
	UserType     UserType  `json:"user_type"`
	KYCStatus    KYCStatus `json:"kyc_status"`
	PasswordHash string    `json:"-"` // Not serialized
	CreatedAt    time.Time `json:"created_at"`
}
