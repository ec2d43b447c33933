package models

// AffordabilityCategory buckets an affordability score
type AffordabilityCategory string

const (
	CategoryExcellent AffordabilityCategory = "EXCELLENT"
	CategoryGood      AffordabilityCategory = "GOOD"
	CategoryModerate  AffordabilityCategory = "MODERATE"
	CategoryLow       AffordabilityCategory = "LOW"
)

// FinancialProfile is the input to an affordability estimate. It is never
// persisted; callers submit it fresh on every request.
type FinancialProfile struct {
	MonthlyIncome       float64  `json:"monthly_income"`
	MonthlyExpenses     float64  `json:"monthly_expenses"`
	ExistingObligations float64  `json:"existing_obligations"`
	CreditScore         *int     `json:"credit_score,omitempty"`
	DownPayment         float64  `json:"down_payment"`
	LoanTenureYears     int      `json:"loan_tenure_years"`
	InterestRatePercent *float64 `json:"interest_rate_percent,omitempty"`
}

// AffordabilityResult is the output of an affordability estimate.
// EquityComponent may be negative when rent alone exceeds the eligible
// payment; that signals an infeasible contract size and is reported as-is.
type AffordabilityResult struct {
	Score            int                   `json:"score"`
	Category         AffordabilityCategory `json:"category"`
	Recommendation   string                `json:"recommendation"`
	DisposableIncome float64               `json:"disposable_income"`
	EligiblePayment  float64               `json:"eligible_payment"`
	MaxLoanAmount    float64               `json:"max_loan_amount"`
	MaxPropertyPrice float64               `json:"max_property_price"`
	ProcessingFee    float64               `json:"processing_fee"`
	InterestRate     float64               `json:"interest_rate"`
	RentComponent    float64               `json:"rent_component"`
	EquityComponent  float64               `json:"equity_component"`
	MinBudget        float64               `json:"min_budget"`
	MaxBudget        float64               `json:"max_budget"`
}
