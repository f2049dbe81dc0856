package scrape

import (
	"fmt"
	"strings"
)

// Filter drives search URL construction. Immutable once built.
type Filter struct {
	StockType    string
	Makes        []string
	Models       []string
	ZipCode      string
	MaxDistance  int
	ListPriceMin *int
	ListPriceMax *int
	YearMin      *int
	YearMax      *int
	MileageMax   *int
	BodyStyles   []string
	FuelTypes    []string
}

// SearchURL builds the search results URL for one page. Each present field
// appends one query parameter in a fixed order; absent or empty fields are
// omitted and page is always last.
func (f Filter) SearchURL(baseURL string, page int) string {
	params := make([]string, 0, 16)

	if f.StockType != "" {
		params = append(params, "stock_type="+f.StockType)
	}
	for _, make := range f.Makes {
		params = append(params, "makes[]="+make)
	}
	for _, model := range f.Models {
		params = append(params, "models[]="+model)
	}
	if f.ListPriceMin != nil {
		params = append(params, fmt.Sprintf("list_price_min=%d", *f.ListPriceMin))
	}
	if f.ListPriceMax != nil {
		params = append(params, fmt.Sprintf("list_price_max=%d", *f.ListPriceMax))
	}
	if f.ZipCode != "" {
		params = append(params, "zip="+f.ZipCode)
	}
	if f.MaxDistance > 0 {
		params = append(params, fmt.Sprintf("maximum_distance=%d", f.MaxDistance))
	}
	if f.YearMin != nil {
		params = append(params, fmt.Sprintf("year_min=%d", *f.YearMin))
	}
	if f.YearMax != nil {
		params = append(params, fmt.Sprintf("year_max=%d", *f.YearMax))
	}
	if f.MileageMax != nil {
		params = append(params, fmt.Sprintf("mileage_max=%d", *f.MileageMax))
	}
	for _, style := range f.BodyStyles {
		params = append(params, "body_style_slugs[]="+style)
	}
	for _, fuel := range f.FuelTypes {
		params = append(params, "fuel_slugs[]="+fuel)
	}
	params = append(params, fmt.Sprintf("page=%d", page))

	return baseURL + "?" + strings.Join(params, "&")
}
