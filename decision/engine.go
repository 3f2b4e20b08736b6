// Package decision scores shortlisted property options across six weighted
// factors and produces a ranked recommendation with a financial risk
// assessment and concrete next steps.
package decision

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"housescout/finance"
	"housescout/models"
)

type Factor string

const (
	FactorAffordability Factor = "affordability"
	FactorLocation      Factor = "location_convenience"
	FactorInvestment    Factor = "investment_potential"
	FactorLifestyle     Factor = "lifestyle_fit"
	FactorGrants        Factor = "grant_eligibility"
	FactorTiming        Factor = "timing"
)

var factorWeights = map[Factor]float64{
	FactorAffordability: 0.25,
	FactorLocation:      0.20,
	FactorInvestment:    0.15,
	FactorLifestyle:     0.20,
	FactorGrants:        0.15,
	FactorTiming:        0.05,
}

// timingScore is a neutral placeholder until market timing data has a
// source to feed it.
const timingScore = 7.0

// defaultMonthlyIncome backstops a profile that omits income so the ratio
// math stays defined.
const defaultMonthlyIncome = 5000.0

// defaultRoomCount is the assumed preference when the profile omits one.
const defaultRoomCount = "3-room"

const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

type RankedOption struct {
	Option         models.PropertyOption
	FactorScores   map[Factor]float64
	OverallScore   float64
	Recommendation string
}

type RiskAssessment struct {
	Level                    string
	Factors                  []string
	AffordabilityRatio       float64
	RecommendedEmergencyFund float64
}

type Analysis struct {
	Ranked    []RankedOption
	Summary   string
	Risk      RiskAssessment
	NextSteps []string
}

// AnalyzeOptions scores every option, ranks them by weighted overall score
// and assesses risk and next steps for the top choice.
func AnalyzeOptions(options []models.PropertyOption, profile models.UserProfile) (*Analysis, error) {
	if len(options) == 0 {
		return nil, errors.New("no properties to analyze")
	}

	income := monthlyIncome(profile)

	ranked := make([]RankedOption, 0, len(options))
	for _, opt := range options {
		if opt.MonthlyRepayment == 0 && opt.Price > 0 {
			opt.MonthlyRepayment = estimateRepayment(opt.Price)
		}
		scores := factorScores(opt, profile, income)
		ranked = append(ranked, RankedOption{
			Option:         opt,
			FactorScores:   scores,
			OverallScore:   weightedScore(scores),
			Recommendation: recommendation(opt, scores, income),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallScore > ranked[j].OverallScore
	})

	top := ranked[0].Option
	return &Analysis{
		Ranked:    ranked,
		Summary:   summary(ranked, income),
		Risk:      assessRisk(top, income),
		NextSteps: nextSteps(top, income),
	}, nil
}

// estimateRepayment backfills a missing repayment figure from the asking
// price: 80% LTV amortised over 25 years at 2.6%.
func estimateRepayment(price float64) float64 {
	report, err := finance.LoanRepayment(price*0.80, 2.6, 25)
	if err != nil {
		return 0
	}
	return report.MonthlyPayment
}

func monthlyIncome(profile models.UserProfile) float64 {
	if profile.GrossMonthlyIncome > 0 {
		return profile.GrossMonthlyIncome
	}
	return defaultMonthlyIncome
}

func factorScores(opt models.PropertyOption, profile models.UserProfile, income float64) map[Factor]float64 {
	scores := make(map[Factor]float64, len(factorWeights))

	scores[FactorAffordability] = affordabilityScore(opt.MonthlyRepayment / income)

	// Every 100m from the MRT costs a point; amenities pull the average up.
	mrtScore := math.Max(0, 10-float64(opt.MRTDistanceM)/100)
	scores[FactorLocation] = math.Min(10, (mrtScore+opt.AmenitiesScore)/2)

	agePenalty := math.Max(0, float64(opt.Age)/10)
	scores[FactorInvestment] = clamp(opt.ResalePotential-agePenalty, 0, 10)

	preferredRooms := profile.RoomCount
	if preferredRooms == "" {
		preferredRooms = defaultRoomCount
	}

	lifestyle := 5.0
	if opt.Rooms != "" && opt.Rooms == preferredRooms {
		lifestyle += 2
	}
	if len(profile.MustHaveAmenities) > 0 {
		lifestyle += math.Min(3, opt.AmenitiesScore/3)
	}
	scores[FactorLifestyle] = math.Min(10, lifestyle)

	scores[FactorGrants] = math.Min(10, opt.TotalGrantAmount()/10000)

	scores[FactorTiming] = timingScore

	return scores
}

func affordabilityScore(ratio float64) float64 {
	switch {
	case ratio <= 0.25:
		return 10
	case ratio <= 0.30:
		return 8
	case ratio <= 0.35:
		return 6
	case ratio <= 0.40:
		return 4
	default:
		return 2
	}
}

func weightedScore(scores map[Factor]float64) float64 {
	total := 0.0
	for factor, score := range scores {
		total += score * factorWeights[factor]
	}
	return math.Round(total*100) / 100
}

func recommendation(opt models.PropertyOption, scores map[Factor]float64, income float64) string {
	var strengths, concerns []string
	for _, f := range orderedFactors() {
		switch score := scores[f]; {
		case score >= 8:
			strengths = append(strengths, factorLabel(f))
		case score <= 4:
			concerns = append(concerns, factorLabel(f))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", opt.Address)
	if len(strengths) > 0 {
		fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(strengths, ", "))
	}
	if len(concerns) > 0 {
		fmt.Fprintf(&b, "Areas of concern: %s\n", strings.Join(concerns, ", "))
	}

	if opt.MonthlyRepayment/income > 0.35 {
		b.WriteString("High affordability ratio - consider your long-term financial stability\n")
	}
	if opt.MRTDistanceM > 800 {
		b.WriteString("Consider transportation costs and convenience\n")
	}
	if total := opt.TotalGrantAmount(); total > 0 {
		fmt.Fprintf(&b, "Available grants: $%.0f\n", total)
	}
	return b.String()
}

func summary(ranked []RankedOption, income float64) string {
	top := ranked[0]

	var b strings.Builder
	b.WriteString("Housing Decision Analysis Summary\n\n")
	fmt.Fprintf(&b, "Top recommendation: %s\n", top.Option.Address)
	fmt.Fprintf(&b, "Overall score: %.2f/10\n\n", top.OverallScore)
	b.WriteString("Key decision factors:\n")

	factors := orderedFactors()
	sort.SliceStable(factors, func(i, j int) bool {
		return top.FactorScores[factors[i]] > top.FactorScores[factors[j]]
	})
	for _, f := range factors {
		fmt.Fprintf(&b, "- %s: %.1f/10\n", factorLabel(f), top.FactorScores[f])
	}

	fmt.Fprintf(&b, "\nMonthly repayment: $%.0f\n", top.Option.MonthlyRepayment)
	fmt.Fprintf(&b, "Affordability ratio: %.1f%%\n", top.Option.MonthlyRepayment/income*100)
	fmt.Fprintf(&b, "Total available grants: $%.0f\n", top.Option.TotalGrantAmount())
	return b.String()
}

func assessRisk(opt models.PropertyOption, income float64) RiskAssessment {
	ratio := opt.MonthlyRepayment / income

	level := RiskLow
	var factors []string
	switch {
	case ratio > 0.35:
		level = RiskHigh
		factors = append(factors, "High debt-to-income ratio")
	case ratio > 0.30:
		level = RiskMedium
		factors = append(factors, "Moderate debt-to-income ratio")
	}

	if opt.Age > 30 {
		factors = append(factors, "Older property with higher maintenance costs")
	}
	if opt.PropertyType == "HDB" && opt.Age > 60 {
		factors = append(factors, "Limited remaining lease years")
	}

	return RiskAssessment{
		Level:                    level,
		Factors:                  factors,
		AffordabilityRatio:       ratio,
		RecommendedEmergencyFund: opt.MonthlyRepayment * 6,
	}
}

func nextSteps(opt models.PropertyOption, income float64) []string {
	var steps []string

	if len(opt.AvailableGrants) > 0 {
		steps = append(steps, "Apply for eligible housing grants to reduce purchase cost")
	}
	if opt.PropertyType == "HDB" {
		steps = append(steps,
			"Check HDB eligibility and application procedures",
			"Prepare required documents for HDB application")
	}
	steps = append(steps,
		"Get pre-approved for housing loan to confirm budget",
		"Arrange for property valuation",
		"Schedule property viewing and inspection",
		"Research the neighbourhood and amenities")

	if opt.MonthlyRepayment/income > 0.30 {
		steps = append(steps, "Consult with a financial advisor on affordability")
	}
	return steps
}

func orderedFactors() []Factor {
	return []Factor{
		FactorAffordability,
		FactorLocation,
		FactorInvestment,
		FactorLifestyle,
		FactorGrants,
		FactorTiming,
	}
}

func factorLabel(f Factor) string {
	words := strings.Split(string(f), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
