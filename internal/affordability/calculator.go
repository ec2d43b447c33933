package affordability

import (
	"fmt"
	"math"

	"github.com/rentvest/rent2own-service/internal/models"
)

// ValidationError reports a malformed or out-of-range profile field. The
// calculator rejects invalid input before any computation is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Calculator derives affordability estimates from a financial profile. It is
// stateless and safe for concurrent use.
type Calculator struct {
	policy Policy
}

// NewCalculator initializes a calculator with the given policy
func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

func validateProfile(p models.FinancialProfile) error {
	if p.MonthlyIncome < 0 {
		return &ValidationError{Field: "monthly_income", Reason: "must be non-negative"}
	}
	if p.MonthlyExpenses < 0 {
		return &ValidationError{Field: "monthly_expenses", Reason: "must be non-negative"}
	}
	if p.ExistingObligations < 0 {
		return &ValidationError{Field: "existing_obligations", Reason: "must be non-negative"}
	}
	if p.DownPayment < 0 {
		return &ValidationError{Field: "down_payment", Reason: "must be non-negative"}
	}
	if p.LoanTenureYears < 1 || p.LoanTenureYears > 30 {
		return &ValidationError{Field: "loan_tenure_years", Reason: "must be between 1 and 30"}
	}
	if p.CreditScore != nil && (*p.CreditScore < 300 || *p.CreditScore > 900) {
		return &ValidationError{Field: "credit_score", Reason: "must be between 300 and 900"}
	}
	if p.InterestRatePercent != nil && (*p.InterestRatePercent < 0 || *p.InterestRatePercent > 20) {
		return &ValidationError{Field: "interest_rate_percent", Reason: "must be between 0 and 20"}
	}
	return nil
}

// Calculate computes the maximum sustainable loan, an affordability score and
// category, and a suggested rent/equity split for the profile. A profile that
// cannot sustain any payment yields a degenerate all-zero loan result rather
// than an error.
func (c *Calculator) Calculate(profile models.FinancialProfile) (*models.AffordabilityResult, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	rate := c.policy.DefaultInterestRate
	if profile.InterestRatePercent != nil {
		rate = *profile.InterestRatePercent
	}

	// Zero income cannot sustain anything; report an all-zero estimate
	// instead of dividing by it further down.
	if profile.MonthlyIncome == 0 {
		_, recommendation := categorize(0)
		return &models.AffordabilityResult{
			Category:       models.CategoryLow,
			Recommendation: recommendation,
			InterestRate:   rate,
		}, nil
	}

	disposable := profile.MonthlyIncome - profile.MonthlyExpenses - profile.ExistingObligations
	foirCap := profile.MonthlyIncome * c.policy.FOIRRatio
	eligiblePayment := math.Min(foirCap, disposable)

	maxLoan := 0.0
	if eligiblePayment > 0 {
		maxLoan = MaxLoanAmount(eligiblePayment, rate, profile.LoanTenureYears)
	}

	score := c.score(profile, eligiblePayment, maxLoan)
	category, recommendation := categorize(score)

	maxPropertyPrice := maxLoan + profile.DownPayment
	rentComponent := maxPropertyPrice * c.policy.RentRatio

	return &models.AffordabilityResult{
		Score:            score,
		Category:         category,
		Recommendation:   recommendation,
		DisposableIncome: disposable,
		EligiblePayment:  eligiblePayment,
		MaxLoanAmount:    maxLoan,
		MaxPropertyPrice: maxPropertyPrice,
		ProcessingFee:    maxLoan * c.policy.ProcessingFeeRate,
		InterestRate:     rate,
		RentComponent:    rentComponent,
		EquityComponent:  eligiblePayment - rentComponent,
		MinBudget:        maxPropertyPrice * c.policy.BudgetRangeFloor,
		MaxBudget:        maxPropertyPrice,
	}, nil
}

// MaxLoanAmount solves the standard amortizing-loan formula for principal,
// given a fixed monthly payment, an annual rate in percent and a tenure in
// years. A zero rate degrades to simple division of payments.
func MaxLoanAmount(monthlyPayment, annualRatePercent float64, tenureYears int) float64 {
	n := float64(tenureYears * 12)
	r := annualRatePercent / 12 / 100
	if r == 0 {
		return monthlyPayment * n
	}
	rPowerN := math.Pow(1+r, n)
	return monthlyPayment * (rPowerN - 1) / (r * rPowerN)
}

// MonthlyPayment is the inverse of MaxLoanAmount: the fixed payment that
// amortizes the principal over the tenure at the given rate.
func MonthlyPayment(principal, annualRatePercent float64, tenureYears int) float64 {
	n := float64(tenureYears * 12)
	r := annualRatePercent / 12 / 100
	if r == 0 {
		return principal / n
	}
	rPowerN := math.Pow(1+r, n)
	return principal * r * rPowerN / (rPowerN - 1)
}

// score sums four independently bucketed contributions. Bucket ceilings keep
// the total within [10, 100]; the worst credit/FOIR combination bottoms out
// at 10, which is accepted policy.
func (c *Calculator) score(profile models.FinancialProfile, eligiblePayment, maxLoan float64) int {
	score := 0

	// Credit history: neutral when no score was provided.
	switch {
	case profile.CreditScore != nil && *profile.CreditScore >= c.policy.MinCreditScore:
		score += 30
	case profile.CreditScore == nil:
		score += 15
	}

	// Income level
	switch {
	case profile.MonthlyIncome >= 100000:
		score += 25
	case profile.MonthlyIncome >= 50000:
		score += 20
	case profile.MonthlyIncome >= 30000:
		score += 15
	default:
		score += 10
	}

	// FOIR compliance
	var paymentRatio float64
	if profile.MonthlyIncome > 0 {
		paymentRatio = eligiblePayment / profile.MonthlyIncome
	}
	switch {
	case paymentRatio <= 0.30:
		score += 25
	case paymentRatio <= 0.40:
		score += 20
	case paymentRatio <= 0.50:
		score += 15
	default:
		score += 5
	}

	// Down payment strength
	var downPaymentRatio float64
	if maxLoan+profile.DownPayment > 0 {
		downPaymentRatio = profile.DownPayment / (maxLoan + profile.DownPayment)
	}
	switch {
	case downPaymentRatio >= 0.20:
		score += 20
	case downPaymentRatio >= 0.15:
		score += 15
	case downPaymentRatio >= 0.10:
		score += 10
	default:
		score += 5
	}

	return score
}

func categorize(score int) (models.AffordabilityCategory, string) {
	switch {
	case score >= 80:
		return models.CategoryExcellent, "You are eligible for premium properties with best interest rates."
	case score >= 60:
		return models.CategoryGood, "You have good affordability and can explore a wide range of properties."
	case score >= 40:
		return models.CategoryModerate, "Consider properties within your budget or increase your down payment."
	default:
		return models.CategoryLow, "Focus on increasing income or reducing expenses to improve affordability."
	}
}

// AllocateComponents derives the default equity/rent split for a payment that
// does not pre-specify one: RENT payments build equity at the platform's
// headline share, EQUITY payments count in full, every other type builds none.
func (c *Calculator) AllocateComponents(paymentType models.PaymentType, amount float64) (equity, rent float64) {
	switch paymentType {
	case models.PaymentTypeRent:
		return amount * c.policy.EquityShare, amount * c.policy.RentShare
	case models.PaymentTypeEquity:
		return amount, 0
	default:
		return 0, 0
	}
}
