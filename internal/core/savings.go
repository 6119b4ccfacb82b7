package core

import "github.com/shopspring/decimal"

// Profile is what the user states about their finances on the savings tab.
type Profile struct {
	SavingsGoal     decimal.Decimal `json:"savings_goal"`
	TimeframeMonths int             `json:"timeframe_months"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income"`
	MonthlyExpenses decimal.Decimal `json:"monthly_expenses"`
}

// SavingsPlan is derived from a Profile.
type SavingsPlan struct {
	MonthlySavings  decimal.Decimal `json:"monthly_savings"`
	RequiredMonthly decimal.Decimal `json:"required_monthly"`
	OnTrack         bool            `json:"on_track"`
}

// DefaultProfile is the profile of a fresh session.
func DefaultProfile() Profile {
	return Profile{TimeframeMonths: 1}
}

func (p Profile) Validate() error {
	if p.SavingsGoal.IsNegative() {
		return invalid("savings_goal", ErrNegativeAmount)
	}
	if p.MonthlyIncome.IsNegative() {
		return invalid("monthly_income", ErrNegativeAmount)
	}
	if p.MonthlyExpenses.IsNegative() {
		return invalid("monthly_expenses", ErrNegativeAmount)
	}
	if p.TimeframeMonths < 1 {
		return invalid("timeframe_months", ErrInvalidTimeframe)
	}
	return nil
}

// Plan computes what can be saved each month and what the goal requires.
// MonthlySavings may be negative when expenses exceed income.
func (p Profile) Plan() SavingsPlan {
	months := p.TimeframeMonths
	if months < 1 {
		months = 1
	}
	savings := p.MonthlyIncome.Sub(p.MonthlyExpenses)
	required := p.SavingsGoal.Div(decimal.NewFromInt(int64(months))).Round(2)
	return SavingsPlan{
		MonthlySavings:  savings,
		RequiredMonthly: required,
		OnTrack:         savings.GreaterThanOrEqual(required),
	}
}
