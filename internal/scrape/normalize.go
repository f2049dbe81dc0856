package scrape

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonDigits    = regexp.MustCompile(`[^0-9]`)
	keyStripRune = regexp.MustCompile(`[^a-z0-9\s]`)
)

// CleanNumber strips everything but digits from a field like "45,231 mi" or
// "$512/mo" and parses the remainder. Nil when no digits survive.
func CleanNumber(text string) *int {
	if text == "" {
		return nil
	}
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// SanitizeKey turns a human label into a sparse-field key: lower-cased,
// stripped of anything outside [a-z0-9 ], spaces replaced by underscores.
// "Stock #" becomes "stock_", which the store allow-list expects verbatim.
func SanitizeKey(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	key = keyStripRune.ReplaceAllString(key, "")
	return strings.ReplaceAll(key, " ", "_")
}

// TitleParts holds year/make/model derived from a listing title. Empty
// strings stand for absent values.
type TitleParts struct {
	Year  string
	Make  string
	Model string
}

// ParseTitle splits a title like "2021 Ford Bronco Sport" into parts. Make
// and model are only trusted when a leading 4-digit year is present;
// otherwise all three stay empty.
func ParseTitle(title string) TitleParts {
	parts := strings.Fields(strings.TrimSpace(title))
	if len(parts) < 2 {
		return TitleParts{}
	}

	year := parts[0]
	if len(year) != 4 || !isDigits(year) {
		return TitleParts{}
	}

	tp := TitleParts{Year: year, Make: parts[1]}
	if len(parts) > 2 {
		tp.Model = strings.Join(parts[2:], " ")
	}
	return tp
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
