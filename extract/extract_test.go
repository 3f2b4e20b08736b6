package extract

import "testing"

func TestPrice(t *testing.T) {
	tests := []struct {
		text  string
		want  int
		found bool
	}{
		{"$800,000", 800000, true},
		{"HDB flat for S$1,234,000 in Bedok", 1234000, true},
		{"asking SGD 550,000", 550000, true},
		{"going for 480,000 SGD negotiable", 480000, true},
		{"800k", 800000, true},
		{"$800k", 800000, true},
		{"no price here", 0, false},
		{"", 0, false},
		{"$50,000", 0, false},        // below sane range
		{"$9,000,000", 0, false},     // above sane range
		{"unit 99k sqft $600,000", 600000, true},
	}

	for _, tt := range tests {
		got, found := Price(tt.text)
		if found != tt.found || got != tt.want {
			t.Fatalf("Price(%q) = (%d, %v), want (%d, %v)", tt.text, got, found, tt.want, tt.found)
		}
	}
}

func TestPriceOutOfRangeIsAbsentNotZero(t *testing.T) {
	got, found := Price("$10")
	if found || got != 0 {
		t.Fatalf("out-of-range price must be absent, got (%d, %v)", got, found)
	}
}

func TestRooms(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"3-room HDB flat", 3},
		{"4 Room flat in Tampines", 4},
		{"2 bed condo", 2},
		{"spacious flat", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := Rooms(tt.text); got != tt.want {
			t.Fatalf("Rooms(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"3 room flat in Tampines near MRT", "Tampines"},
		{"TOA PAYOH walkup", "Toa Payoh"},
		{"ang mo kio ave 3", "Ang Mo Kio"},
		{"nice flat somewhere", "Singapore"},
		{"", "Singapore"},
	}

	for _, tt := range tests {
		if got := Location(tt.text); got != tt.want {
			t.Fatalf("Location(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
