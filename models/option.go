package models

// Grant is a housing grant attached to a property option.
type Grant struct {
	Name        string  `json:"name"`
	Eligibility string  `json:"eligibility,omitempty"`
	Amount      float64 `json:"amount"`
}

// PropertyOption is the enriched record used for multi-factor decision
// support. Unlike Listing it carries financial and locality data supplied by
// the caller (or filled in from the finance package).
type PropertyOption struct {
	ID               string  `json:"id"`
	Address          string  `json:"address"`
	Price            float64 `json:"price"`
	PropertyType     string  `json:"property_type"` // HDB, Condo, EC
	SizeSqFt         int     `json:"size_sqft"`
	Rooms            string  `json:"rooms"` // e.g. "3-room"
	Age              int     `json:"age"`
	MRTDistanceM     int     `json:"mrt_distance_m"`
	SchoolRating     float64 `json:"school_rating"`
	AmenitiesScore   float64 `json:"amenities_score"`
	ResalePotential  float64 `json:"resale_potential"`
	AvailableGrants  []Grant `json:"available_grants"`
	MonthlyRepayment float64 `json:"monthly_repayment"`
	TotalCost        float64 `json:"total_cost_including_grants"`
}

// TotalGrantAmount sums the amounts of all attached grants.
func (p *PropertyOption) TotalGrantAmount() float64 {
	var total float64
	for _, g := range p.AvailableGrants {
		total += g.Amount
	}
	return total
}

// UserProfile describes the buyer. Read-only for the core; owned by the
// conversational layer upstream.
type UserProfile struct {
	GrossMonthlyIncome float64  `json:"gross_monthly_income"`
	RoomCount          string   `json:"room_count"` // preferred, e.g. "3-room"
	Location           string   `json:"location,omitempty"`
	MaxPrice           float64  `json:"max_price,omitempty"`
	FlatType           string   `json:"flat_type,omitempty"`
	MustHaveAmenities  []string `json:"must_have_amenities,omitempty"`
}
