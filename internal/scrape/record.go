package scrape

import (
	"encoding/json"
	"time"
)

// Link is one detail-page URL plus the search page it was discovered on.
type Link struct {
	URL  string `json:"url"`
	Page int    `json:"page"`
}

// Image is one gallery thumbnail with a higher-resolution variant.
type Image struct {
	Src      string `json:"src"`
	ModalSrc string `json:"modal_src"`
	Alt      string `json:"alt"`
}

// Amount is a numeric field that degrades to a literal sentinel string when
// no number could be read. Downstream consumers match on the sentinel text,
// so the string form must survive serialization as-is.
type Amount struct {
	Value    *int
	Sentinel string
}

// MarshalJSON emits the number when present, the sentinel string otherwise.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Value != nil {
		return json.Marshal(*a.Value)
	}
	return json.Marshal(a.Sentinel)
}

// Flat returns the value as it is sent to the store: an int or a string.
func (a Amount) Flat() interface{} {
	if a.Value != nil {
		return *a.Value
	}
	return a.Sentinel
}

// BreakdownValue is one itemized component of a payment breakdown. Values
// under money-related labels are cleaned to numbers; numeric cleaning that
// produces nothing is kept as an explicit null, matching the store contract.
type BreakdownValue struct {
	Number  *int
	Text    string
	Numeric bool
}

// MarshalJSON emits the cleaned number (or null) for money fields and the
// original text for everything else.
func (v BreakdownValue) MarshalJSON() ([]byte, error) {
	if v.Numeric {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

// Breakdown is either itemized label/value pairs or a sentinel string.
type Breakdown struct {
	Items    map[string]BreakdownValue
	Sentinel string
}

// MarshalJSON emits the item map when any pairs were found, the sentinel
// string otherwise.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	if len(b.Items) > 0 {
		return json.Marshal(b.Items)
	}
	return json.Marshal(b.Sentinel)
}

// Flat returns the breakdown as it is sent to the store: the item map, or
// the sentinel string when nothing was found.
func (b Breakdown) Flat() interface{} {
	if len(b.Items) > 0 {
		return b.Items
	}
	return b.Sentinel
}

// Record is one fully extracted listing. A Record always carries a
// non-empty ID; every other field degrades by omission.
type Record struct {
	ID                        string            `json:"id"`
	Title                     string            `json:"title,omitempty"`
	Price                     string            `json:"price,omitempty"`
	Year                      string            `json:"year,omitempty"`
	Make                      string            `json:"make,omitempty"`
	Model                     string            `json:"model,omitempty"`
	Basics                    map[string]string `json:"basics,omitempty"`
	Mileage                   *int              `json:"mileage,omitempty"`
	Features                  map[string]string `json:"features,omitempty"`
	AdditionalPopularFeatures string            `json:"additional_popular_features,omitempty"`
	AllFeatures               string            `json:"all_features,omitempty"`
	Images                    []Image           `json:"images,omitempty"`
	StartPayment              Amount            `json:"start_payment"`
	PaymentBreakdown          Breakdown         `json:"payment_breakdown"`
	Bodystyle                 string            `json:"bodystyle,omitempty"`
	StatusFlag                string            `json:"status_flag"`
	LastUpdated               time.Time         `json:"last_updated"`
}

// Fields flattens the record into the loose field map the store consumes.
// Basics and feature groups become top-level keys; empty fields are omitted.
func (r *Record) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"id":          r.ID,
		"status_flag": r.StatusFlag,
	}

	setIfPresent := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	setIfPresent("title", r.Title)
	setIfPresent("price", r.Price)
	setIfPresent("year", r.Year)
	setIfPresent("make", r.Make)
	setIfPresent("model", r.Model)
	setIfPresent("bodystyle", r.Bodystyle)
	setIfPresent("additional_popular_features", r.AdditionalPopularFeatures)
	setIfPresent("all_features", r.AllFeatures)

	for key, value := range r.Basics {
		fields[key] = value
	}
	if r.Mileage != nil {
		fields["mileage"] = *r.Mileage
	}
	for key, value := range r.Features {
		fields[key] = value
	}
	if len(r.Images) > 0 {
		fields["images"] = r.Images
	}

	fields["start_payment"] = r.StartPayment.Flat()
	fields["payment_breakdown"] = r.PaymentBreakdown.Flat()

	if !r.LastUpdated.IsZero() {
		fields["last_updated"] = r.LastUpdated.Format("2006-01-02 15:04:05")
	}

	return fields
}

const failureMessageLimit = 200

// Failure is the terminal outcome for one link. No partial data survives.
type Failure struct {
	ID      string
	Message string
}

func newFailure(id, message string) Failure {
	if len(message) > failureMessageLimit {
		message = message[:failureMessageLimit]
	}
	return Failure{ID: id, Message: message}
}
