package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *int
	}{
		{"mileage with suffix", "45,231 mi.", intPtr(45231)},
		{"monthly payment", "$512/mo", intPtr(512)},
		{"plain number", "2500", intPtr(2500)},
		{"no digits", "Not available", nil},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanNumber(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				assert.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple label", "Exterior color", "exterior_color"},
		{"stock number", "Stock #", "stock_"},
		{"mixed punctuation", "Engine (L/4-cyl)", "engine_l4cyl"},
		{"padded", "  Fuel type  ", "fuel_type"},
		{"already clean", "drivetrain", "drivetrain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeKey(tt.input))
		})
	}
}

func TestParseTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  TitleParts
	}{
		{"year make model", "2021 Ford Bronco Sport", TitleParts{Year: "2021", Make: "Ford", Model: "Bronco Sport"}},
		{"year make only", "2019 Tesla", TitleParts{Year: "2019", Make: "Tesla"}},
		{"no leading year", "Certified Ford Escape", TitleParts{}},
		{"short year", "21 Ford Escape", TitleParts{}},
		{"single word", "Ford", TitleParts{}},
		{"empty", "", TitleParts{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTitle(tt.title))
		})
	}
}

func intPtr(n int) *int { return &n }
