package affordability

// Policy collects the fixed business constants behind the affordability and
// payment-split calculations. The algorithm reads everything through a Policy
// so a per-market change never touches the computation itself.
type Policy struct {
	// FOIRRatio caps the fraction of monthly income allowed toward the loan payment.
	FOIRRatio float64
	// DefaultInterestRate (percent, annual) applies when a profile omits a rate.
	DefaultInterestRate float64
	// ProcessingFeeRate is charged on the sanctioned loan amount.
	ProcessingFeeRate float64
	// MinCreditScore is the threshold for the full credit score contribution.
	MinCreditScore int
	// RentRatio is the monthly rent-equivalent as a fraction of property value.
	RentRatio float64
	// EquityShare and RentShare split a RENT payment into its
	// ownership-building and occupancy portions.
	EquityShare float64
	RentShare   float64
	// BudgetRangeFloor scales the max property price down to the suggested minimum.
	BudgetRangeFloor float64
}

// DefaultPolicy returns the platform's headline policy: 50% FOIR, 8.5%
// fallback rate, 2% processing fee, 0.3% rent ratio and the 70/30
// equity-building split.
func DefaultPolicy() Policy {
	return Policy{
		FOIRRatio:           0.5,
		DefaultInterestRate: 8.5,
		ProcessingFeeRate:   0.02,
		MinCreditScore:      650,
		RentRatio:           0.003,
		EquityShare:         0.7,
		RentShare:           0.3,
		BudgetRangeFloor:    0.7,
	}
}
