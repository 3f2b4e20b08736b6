package finance

import (
	"errors"
	"math"
	"strings"
)

type cpfLimits struct {
	downPaymentLimit float64 // fraction of price payable from CPF OA
	monthlyLimit     float64 // fraction of monthly installment payable from CPF
}

var cpfLimitsByType = map[string]cpfLimits{
	"HDB":     {downPaymentLimit: 0.20, monthlyLimit: 0.80},
	"EC":      {downPaymentLimit: 0.20, monthlyLimit: 0.80},
	"PRIVATE": {downPaymentLimit: 0.05, monthlyLimit: 0.80},
}

type CPFReport struct {
	PropertyPrice    float64  `json:"property_price"`
	PropertyType     string   `json:"property_type"`
	TotalDownPayment float64  `json:"total_down_payment"`
	CPFDownPayment   float64  `json:"cpf_down_payment"`
	CashDownPayment  float64  `json:"cash_down_payment"`
	RemainingCPF     float64  `json:"remaining_cpf_balance"`
	LoanAmount       float64  `json:"loan_amount"`
	EstimatedMonthly float64  `json:"estimated_monthly_payment"`
	Recommendations  []string `json:"recommendations"`
}

// CPFUtilization works out how much of the down payment CPF Ordinary Account
// savings can cover for a given property type.
func CPFUtilization(propertyPrice, cpfBalance float64, propertyType string) (*CPFReport, error) {
	if propertyPrice <= 0 || cpfBalance < 0 {
		return nil, errors.New("invalid property price or CPF balance")
	}

	kind := strings.ToUpper(propertyType)
	limits, ok := cpfLimitsByType[kind]
	if !ok {
		kind = "HDB"
		limits = cpfLimitsByType[kind]
	}

	minDownPayment := propertyPrice * 0.10
	if kind == "PRIVATE" {
		minDownPayment = propertyPrice * 0.05
	}
	maxCPFDown := propertyPrice * limits.downPaymentLimit

	cpfDown := math.Min(cpfBalance, math.Min(maxCPFDown, minDownPayment))
	loan := propertyPrice - minDownPayment

	return &CPFReport{
		PropertyPrice:    propertyPrice,
		PropertyType:     propertyType,
		TotalDownPayment: minDownPayment,
		CPFDownPayment:   round2(cpfDown),
		CashDownPayment:  round2(minDownPayment - cpfDown),
		RemainingCPF:     round2(cpfBalance - cpfDown),
		LoanAmount:       round2(loan),
		EstimatedMonthly: round2(loan * 0.004),
		Recommendations:  cpfRecommendations(cpfBalance-cpfDown, kind),
	}, nil
}

func cpfRecommendations(remaining float64, kind string) []string {
	var recs []string
	if remaining > 50000 {
		recs = append(recs, "You have substantial CPF remaining for monthly payments")
	} else if remaining < 10000 {
		recs = append(recs, "Consider preserving more CPF for retirement - increase cash portion")
	}
	if kind == "PRIVATE" {
		recs = append(recs, "Private property limits CPF usage - plan for higher cash requirements")
	}
	recs = append(recs,
		"Remember: CPF used for property must be returned upon sale with accrued interest",
		"Consider the impact on your CPF retirement savings")
	return recs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
