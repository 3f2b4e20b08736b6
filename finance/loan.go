// Package finance holds the Singapore housing money math: affordability
// under TDSR, amortised loan repayments, repayment duration and CPF
// utilization. Figures follow 2024 guidelines.
package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// tdsrRatio is the Total Debt Servicing Ratio cap for most borrowers.
	tdsrRatio = 0.60
	// conservativeHousingRatio keeps housing at 30% of gross income.
	conservativeHousingRatio = 0.30
	// loanMultiplier approximates a 25-year loan at 2.6% interest.
	loanMultiplier = 280
	// hdbIncomeCeiling is the monthly household income cap for HDB purchase.
	hdbIncomeCeiling = 14000
)

type AffordabilityReport struct {
	MaxMonthlyPayment  float64  `json:"max_monthly_payment"`
	EstimatedBudget    float64  `json:"estimated_budget"`
	RecommendedDeposit float64  `json:"recommended_deposit"`
	IncomeUtilization  float64  `json:"income_utilization"` // fraction of gross income
	TDSRUtilization    float64  `json:"tdsr_utilization"`
	HDBEligible        bool     `json:"hdb_eligible"`
	PropertyTypes      []string `json:"property_types"`
	Recommendations    []string `json:"recommendations"`
}

// Affordability computes a recommended housing budget from gross monthly
// income, existing monthly debt and savings earmarked for the deposit.
func Affordability(monthlyIncome, existingDebt, depositSaved float64) (*AffordabilityReport, error) {
	if monthlyIncome <= 0 {
		return nil, errors.New("monthly income must be greater than 0")
	}

	maxTotalPayment := monthlyIncome * tdsrRatio
	availableForHousing := maxTotalPayment - existingDebt
	if availableForHousing <= 0 {
		return nil, fmt.Errorf("current debt obligations exceed TDSR limits (max $%.2f, debt $%.2f)",
			maxTotalPayment, existingDebt)
	}

	recommended := math.Min(availableForHousing, monthlyIncome*conservativeHousingRatio)
	estimatedLoan := recommended * loanMultiplier
	estimatedValue := estimatedLoan + depositSaved

	hdbEligible := monthlyIncome <= hdbIncomeCeiling
	types := []string{"HDB", "EC"}
	if !hdbEligible {
		types = []string{"HDB", "EC", "Private"}
	}

	return &AffordabilityReport{
		MaxMonthlyPayment:  round2(recommended),
		EstimatedBudget:    round2(estimatedValue),
		RecommendedDeposit: round2(estimatedValue * 0.25),
		IncomeUtilization:  recommended / monthlyIncome,
		TDSRUtilization:    (existingDebt + recommended) / monthlyIncome,
		HDBEligible:        hdbEligible,
		PropertyTypes:      types,
		Recommendations:    affordabilityRecommendations(monthlyIncome, recommended, estimatedValue, hdbEligible),
	}, nil
}

func affordabilityRecommendations(income, payment, propertyValue float64, hdbEligible bool) []string {
	var recs []string
	if payment/income > 0.25 {
		recs = append(recs, "Consider a lower budget to maintain financial flexibility")
	}
	if hdbEligible {
		recs = append(recs,
			"You're eligible for HDB flats - consider BTO vs resale options",
			"Check for available housing grants to reduce purchase cost")
	} else {
		recs = append(recs,
			"Explore Executive Condominiums (EC) as a middle option",
			"Private property limits CPF usage - ensure sufficient cash reserves")
	}
	if propertyValue > income*60 {
		recs = append(recs, "Consider a longer loan tenure to reduce monthly payments")
	}
	recs = append(recs,
		"Get pre-approval for housing loan to confirm actual budget",
		"Set aside emergency fund equivalent to 6 months of expenses")
	return recs
}

type ScheduleEntry struct {
	Month            int     `json:"month"`
	MonthlyPayment   float64 `json:"monthly_payment"`
	PrincipalPayment float64 `json:"principal_payment"`
	InterestPayment  float64 `json:"interest_payment"`
	RemainingBalance float64 `json:"remaining_balance"`
}

type LoanReport struct {
	MonthlyPayment    float64         `json:"monthly_payment"`
	TotalPayment      float64         `json:"total_payment"`
	TotalInterest     float64         `json:"total_interest"`
	FirstYearSchedule []ScheduleEntry `json:"payment_schedule_first_year"`
}

// LoanRepayment amortises a loan and returns the monthly payment, totals and
// the first year's schedule.
func LoanRepayment(principal, annualRatePercent float64, termYears int) (*LoanReport, error) {
	if principal <= 0 || annualRatePercent < 0 || termYears <= 0 {
		return nil, errors.New("all loan parameters must be positive")
	}

	monthlyRate := annualRatePercent / 100 / 12
	numPayments := termYears * 12

	var monthly float64
	if monthlyRate > 0 {
		growth := math.Pow(1+monthlyRate, float64(numPayments))
		monthly = principal * (monthlyRate * growth) / (growth - 1)
	} else {
		monthly = principal / float64(numPayments)
	}

	total := monthly * float64(numPayments)

	schedule := make([]ScheduleEntry, 0, 12)
	balance := principal
	for month := 1; month <= 12 && month <= numPayments; month++ {
		interest := balance * monthlyRate
		principalPart := monthly - interest
		balance -= principalPart
		schedule = append(schedule, ScheduleEntry{
			Month:            month,
			MonthlyPayment:   round2(monthly),
			PrincipalPayment: round2(principalPart),
			InterestPayment:  round2(interest),
			RemainingBalance: round2(balance),
		})
	}

	return &LoanReport{
		MonthlyPayment:    round2(monthly),
		TotalPayment:      round2(total),
		TotalInterest:     round2(total - principal),
		FirstYearSchedule: schedule,
	}, nil
}

type Duration struct {
	Text            string  `json:"duration_text"`
	TotalMonths     int     `json:"total_months"`
	Years           int     `json:"years"`
	RemainingMonths int     `json:"remaining_months"`
	TotalPaid       float64 `json:"total_paid"`
}

// RepaymentDuration estimates how long a loan takes to clear at a flat
// monthly payment, ignoring interest.
func RepaymentDuration(principal, monthlyPayment float64) (*Duration, error) {
	if monthlyPayment <= 0 {
		return nil, errors.New("monthly payment must be greater than 0")
	}
	if principal <= 0 {
		return nil, errors.New("principal amount must be greater than 0")
	}

	months := principal / monthlyPayment
	years := int(months) / 12
	remaining := int(months) % 12

	var parts []string
	if years > 0 {
		parts = append(parts, fmt.Sprintf("%d years", years))
	}
	if remaining > 0 {
		parts = append(parts, fmt.Sprintf("%d months", remaining))
	}
	text := strings.Join(parts, " and ")
	if text == "" {
		text = "Less than 1 month"
	}

	return &Duration{
		Text:            text,
		TotalMonths:     int(months),
		Years:           years,
		RemainingMonths: remaining,
		TotalPaid:       monthlyPayment * months,
	}, nil
}
