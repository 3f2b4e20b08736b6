package decision

import (
	"math"
	"strings"
	"testing"

	"housescout/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeOptionsEmpty(t *testing.T) {
	if _, err := AnalyzeOptions(nil, models.UserProfile{}); err == nil {
		t.Fatal("expected error for empty options")
	}
}

func TestAffordabilityThresholds(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0.20, 10},
		{0.25, 10},
		{0.251, 8},
		{0.30, 8},
		{0.35, 6},
		{0.40, 4},
		{0.60, 2},
	}
	for _, tt := range tests {
		if got := affordabilityScore(tt.ratio); got != tt.want {
			t.Errorf("ratio %.3f: expected %.0f, got %.0f", tt.ratio, tt.want, got)
		}
	}
}

func TestFactorScores(t *testing.T) {
	opt := models.PropertyOption{
		Address:          "Blk 123 Tampines St 45",
		PropertyType:     "HDB",
		Rooms:            "4-room",
		Age:              20,
		MRTDistanceM:     400,
		AmenitiesScore:   8,
		ResalePotential:  7,
		AvailableGrants:  []models.Grant{{Name: "EHG", Amount: 50000}},
		MonthlyRepayment: 1200,
	}
	profile := models.UserProfile{
		GrossMonthlyIncome: 6000,
		RoomCount:          "4-room",
		MustHaveAmenities:  []string{"mrt"},
	}

	scores := factorScores(opt, profile, monthlyIncome(profile))

	// ratio 0.2 -> 10
	if !almostEqual(scores[FactorAffordability], 10) {
		t.Errorf("affordability: got %v", scores[FactorAffordability])
	}
	// mrt (10 - 400/100 = 6) averaged with amenities 8 -> 7
	if !almostEqual(scores[FactorLocation], 7) {
		t.Errorf("location: got %v", scores[FactorLocation])
	}
	// resale 7 minus age penalty 2 -> 5
	if !almostEqual(scores[FactorInvestment], 5) {
		t.Errorf("investment: got %v", scores[FactorInvestment])
	}
	// base 5 + rooms match 2 + min(3, 8/3) -> 9.667
	if !almostEqual(scores[FactorLifestyle], 5+2+8.0/3) {
		t.Errorf("lifestyle: got %v", scores[FactorLifestyle])
	}
	// 50000 / 10000 -> 5
	if !almostEqual(scores[FactorGrants], 5) {
		t.Errorf("grants: got %v", scores[FactorGrants])
	}
	if !almostEqual(scores[FactorTiming], timingScore) {
		t.Errorf("timing: got %v", scores[FactorTiming])
	}
}

func TestWeightedScoreRounding(t *testing.T) {
	scores := map[Factor]float64{
		FactorAffordability: 10,
		FactorLocation:      7,
		FactorInvestment:    5,
		FactorLifestyle:     9,
		FactorGrants:        5,
		FactorTiming:        7,
	}
	// 2.5 + 1.4 + 0.75 + 1.8 + 0.75 + 0.35 = 7.55
	if got := weightedScore(scores); got != 7.55 {
		t.Fatalf("expected 7.55, got %v", got)
	}
}

func TestAnalyzeRanksByScore(t *testing.T) {
	cheap := models.PropertyOption{
		ID: "a", Address: "Affordable flat",
		MonthlyRepayment: 1000, MRTDistanceM: 300,
		AmenitiesScore: 8, ResalePotential: 8, Age: 5,
	}
	strained := models.PropertyOption{
		ID: "b", Address: "Stretched flat",
		MonthlyRepayment: 3200, MRTDistanceM: 1200,
		AmenitiesScore: 4, ResalePotential: 5, Age: 40,
	}
	profile := models.UserProfile{GrossMonthlyIncome: 5000}

	analysis, err := AnalyzeOptions([]models.PropertyOption{strained, cheap}, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Ranked[0].Option.ID != "a" {
		t.Fatalf("expected the affordable option first, got %q", analysis.Ranked[0].Option.ID)
	}
	if analysis.Ranked[0].OverallScore <= analysis.Ranked[1].OverallScore {
		t.Fatal("ranked scores must be descending")
	}
}

func TestRiskAssessmentHigh(t *testing.T) {
	opt := models.PropertyOption{
		Address: "Blk 9", PropertyType: "HDB", Age: 65,
		MonthlyRepayment: 3000,
	}
	profile := models.UserProfile{GrossMonthlyIncome: 5000}

	analysis, err := AnalyzeOptions([]models.PropertyOption{opt}, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	risk := analysis.Risk
	if risk.Level != RiskHigh {
		t.Fatalf("ratio 0.6 must be high risk, got %q", risk.Level)
	}
	if !almostEqual(risk.AffordabilityRatio, 0.6) {
		t.Fatalf("expected ratio 0.6, got %v", risk.AffordabilityRatio)
	}
	if !almostEqual(risk.RecommendedEmergencyFund, 18000) {
		t.Fatalf("expected emergency fund 18000, got %v", risk.RecommendedEmergencyFund)
	}

	var sawDebt, sawAge, sawLease bool
	for _, f := range risk.Factors {
		switch {
		case strings.Contains(f, "debt-to-income"):
			sawDebt = true
		case strings.Contains(f, "maintenance"):
			sawAge = true
		case strings.Contains(f, "lease"):
			sawLease = true
		}
	}
	if !sawDebt || !sawAge || !sawLease {
		t.Fatalf("missing risk factors: %v", risk.Factors)
	}
}

func TestRiskAssessmentMediumBoundary(t *testing.T) {
	opt := models.PropertyOption{Address: "Blk 1", MonthlyRepayment: 1600}
	profile := models.UserProfile{GrossMonthlyIncome: 5000} // ratio 0.32

	analysis, err := AnalyzeOptions([]models.PropertyOption{opt}, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Risk.Level != RiskMedium {
		t.Fatalf("ratio 0.32 must be medium risk, got %q", analysis.Risk.Level)
	}
}

func TestNextStepsHDBWithGrants(t *testing.T) {
	opt := models.PropertyOption{
		Address: "Blk 1", PropertyType: "HDB",
		AvailableGrants:  []models.Grant{{Name: "EHG", Amount: 30000}},
		MonthlyRepayment: 2000,
	}
	profile := models.UserProfile{GrossMonthlyIncome: 5000} // ratio 0.4

	analysis, err := AnalyzeOptions([]models.PropertyOption{opt}, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(analysis.NextSteps, "\n")
	for _, want := range []string{"housing grants", "HDB eligibility", "financial advisor"} {
		if !strings.Contains(joined, want) {
			t.Errorf("next steps missing %q: %v", want, analysis.NextSteps)
		}
	}
}

func TestRecommendationFlagsConcerns(t *testing.T) {
	opt := models.PropertyOption{
		Address: "Blk 7", MonthlyRepayment: 2500, MRTDistanceM: 1000,
		ResalePotential: 3, Age: 50,
	}
	profile := models.UserProfile{GrossMonthlyIncome: 5000} // ratio 0.5

	analysis, err := AnalyzeOptions([]models.PropertyOption{opt}, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := analysis.Ranked[0].Recommendation
	if !strings.Contains(rec, "Areas of concern") {
		t.Fatalf("expected concerns in recommendation:\n%s", rec)
	}
	if !strings.Contains(rec, "transportation") {
		t.Fatalf("expected MRT-distance advice:\n%s", rec)
	}
}

func TestDefaultIncomeBackstop(t *testing.T) {
	if got := monthlyIncome(models.UserProfile{}); got != defaultMonthlyIncome {
		t.Fatalf("expected default income, got %v", got)
	}
	if got := monthlyIncome(models.UserProfile{GrossMonthlyIncome: 8000}); got != 8000 {
		t.Fatalf("expected profile income, got %v", got)
	}
}

func TestRepaymentBackfilledFromPrice(t *testing.T) {
	opt := models.PropertyOption{Address: "Blk 12", Price: 500000}
	profile := models.UserProfile{GrossMonthlyIncome: 6000}

	analysis, err := AnalyzeOptions([]models.PropertyOption{opt}, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 80% of 500k amortised over 25 years at 2.6% is about $1815/month.
	got := analysis.Ranked[0].Option.MonthlyRepayment
	if got < 1813 || got > 1817 {
		t.Fatalf("backfilled repayment = %v, want ~1815", got)
	}
	if analysis.Risk.AffordabilityRatio <= 0 {
		t.Fatalf("expected risk ratio computed from backfilled repayment, got %v", analysis.Risk.AffordabilityRatio)
	}
}

func TestLifestyleDefaultsToThreeRoom(t *testing.T) {
	matching := models.PropertyOption{Address: "Blk 3", Rooms: "3-room", MonthlyRepayment: 1200}
	other := models.PropertyOption{Address: "Blk 5", Rooms: "5-room", MonthlyRepayment: 1200}

	// Profile says nothing about rooms: a 3-room option still earns the
	// preference bonus, anything else does not.
	empty := models.UserProfile{GrossMonthlyIncome: 6000}
	got := factorScores(matching, empty, monthlyIncome(empty))[FactorLifestyle]
	want := factorScores(other, empty, monthlyIncome(empty))[FactorLifestyle]
	if !almostEqual(got-want, 2) {
		t.Fatalf("3-room bonus under empty profile: got %v vs %v", got, want)
	}

	// An explicit preference overrides the default.
	fiveRoom := models.UserProfile{GrossMonthlyIncome: 6000, RoomCount: "5-room"}
	if s := factorScores(matching, fiveRoom, monthlyIncome(fiveRoom))[FactorLifestyle]; !almostEqual(s, 5) {
		t.Fatalf("3-room must not earn the bonus under a 5-room preference, got %v", s)
	}
}
