package models

import "time"

// EquityAccumulation tracks cumulative ownership built by one user in one
// property. At most one live record exists per (user, property) pair.
//
// RemainingBalance and OwnershipPercentage are always recomputed from
// TotalEquity and the contract price, never adjusted incrementally, so that
// TotalEquity + RemainingBalance == contract price holds after every update.
type EquityAccumulation struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	PropertyID          string    `json:"property_id"`
	ContractPrice       float64   `json:"contract_price"`
	TotalEquity         float64   `json:"total_equity"`
	MonthlyEquity       float64   `json:"monthly_equity"`
	OwnershipPercentage float64   `json:"ownership_percentage"`
	RemainingBalance    float64   `json:"remaining_balance"`
	LastUpdated         time.Time `json:"last_updated"`
}
