package scrape

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const detailURL = "https://www.cars.com/vehicledetail/abc123/"

const detailHTML = `<html><body>
<h1 class="listing-title">2021 Ford Bronco Sport</h1>
<span data-qa="primary-price">$28,991</span>
<section class="basics-section">
  <dl class="fancy-description-list">
    <dt>Exterior color</dt><dd>Cyber Orange</dd>
    <dt>Mileage</dt><dd>45,231 mi.</dd>
    <dt>Stock #</dt><dd>P12345</dd>
  </dl>
</section>
<section class="features-section">
  <dl class="fancy-description-list">
    <dt>Exterior</dt><dd><ul class="vehicle-features-list"><li>Alloy Wheels</li><li>Fog Lights</li></ul></dd>
    <dt>Safety</dt><dd><ul class="vehicle-features-list"><li>Backup Camera</li></ul></dd>
  </dl>
</section>
<div class="auto-corrected-feature-list">Heated Seats, Remote Start</div>
<spark-button data-target="#allFeaturesModal">See all features</spark-button>
<gallery-thumbnails>
  <img src="https://img.example.com/small/1.jpg" modal-src="https://img.example.com/large/1.jpg" alt="front">
  <img src="https://img.example.com/small/2.jpg" alt="rear">
</gallery-thumbnails>
<div id="payment-result-value">$512/mo</div>
<div class="breakdown-section-details--grid">
  <dt class="breakdown-section-details--title">Monthly payment</dt>
  <dd class="breakdown-section-details--value">$512</dd>
  <dt class="breakdown-section-details--title">Term length</dt>
  <dd class="breakdown-section-details--value">72 months</dd>
</div>
<a class="sds-link--ext" data-linkname="check-recalls" href="https://www.cars.com/recalls/?make=ford&bodystyle=suv">Check recalls</a>
</body></html>`

const modalHTML = detailHTML + `<div class="sds-modal">
<div class="all-features-list">
  <div class="all-features-item">A/C</div>
  <div class="all-features-item">ABS Brakes</div>
</div>
<button class="btn-close">Close</button>
</div>`

func newTestExtractor() *Extractor {
	e := NewExtractor()
	e.loadPolicy = Policy{MaxAttempts: 3, Backoff: time.Millisecond}
	e.sleep = func(time.Duration) {}
	return e
}

func TestExtractFullRecord(t *testing.T) {
	session := newFakeSession()
	session.pages[detailURL] = detailHTML
	session.clickHTML[allFeaturesButton] = modalHTML

	stamp := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := newTestExtractor()
	e.now = func() time.Time { return stamp }

	record, failure := e.Extract(session, detailURL)

	assert.Nil(t, failure)
	assert.NotNil(t, record)
	assert.Equal(t, "abc123", record.ID)
	assert.Equal(t, "2021 Ford Bronco Sport", record.Title)
	assert.Equal(t, "$28,991", record.Price)
	assert.Equal(t, "2021", record.Year)
	assert.Equal(t, "Ford", record.Make)
	assert.Equal(t, "Bronco Sport", record.Model)

	assert.Equal(t, "Cyber Orange", record.Basics["exterior_color"])
	assert.Equal(t, "P12345", record.Basics["stock_"])
	assert.NotContains(t, record.Basics, "mileage")
	assert.NotNil(t, record.Mileage)
	assert.Equal(t, 45231, *record.Mileage)

	assert.Equal(t, "Alloy Wheels; Fog Lights", record.Features["features_exterior"])
	assert.Equal(t, "Backup Camera", record.Features["features_safety"])
	assert.Equal(t, "Heated Seats, Remote Start", record.AdditionalPopularFeatures)
	assert.Equal(t, "A/C; ABS Brakes", record.AllFeatures)

	assert.Len(t, record.Images, 2)
	assert.Equal(t, "https://img.example.com/medium/1.jpg", record.Images[0].Src)
	assert.Equal(t, "https://img.example.com/large/1.jpg", record.Images[0].ModalSrc)
	assert.Equal(t, "front", record.Images[0].Alt)
	// modal-src falls back to the upgraded src
	assert.Equal(t, "https://img.example.com/medium/2.jpg", record.Images[1].ModalSrc)

	assert.Equal(t, 512, record.StartPayment.Flat())
	assert.Equal(t, BreakdownValue{Number: intPtr(512), Numeric: true}, record.PaymentBreakdown.Items["monthly_payment"])
	assert.Equal(t, BreakdownValue{Text: "72 months"}, record.PaymentBreakdown.Items["term_length"])

	assert.Equal(t, "suv", record.Bodystyle)
	assert.Equal(t, "New Entry", record.StatusFlag)
	assert.Equal(t, stamp, record.LastUpdated)
}

func TestExtractPaymentSentinels(t *testing.T) {
	session := newFakeSession()
	session.pages[detailURL] = `<html><body>
<section class="basics-section"><h1 class="listing-title">2020 Tesla Model 3</h1></section>
</body></html>`

	record, failure := newTestExtractor().Extract(session, detailURL)

	assert.Nil(t, failure)
	assert.NotNil(t, record)
	assert.Equal(t, "Not available", record.StartPayment.Flat())
	assert.Equal(t, "No breakdown available", record.PaymentBreakdown.Flat())
}

func TestExtractStructureNotFound(t *testing.T) {
	session := newFakeSession()
	session.pages[detailURL] = "<html><body><h1>Access denied</h1></body></html>"

	record, failure := newTestExtractor().Extract(session, detailURL)

	assert.Nil(t, record)
	assert.NotNil(t, failure)
	assert.Equal(t, "abc123", failure.ID)
	assert.Equal(t, "Page structure not found", failure.Message)
}

func TestExtractLoadFailure(t *testing.T) {
	session := newFakeSession()
	session.navErrs[detailURL] = errors.New("net::ERR_CONNECTION_RESET")

	record, failure := newTestExtractor().Extract(session, detailURL)

	assert.Nil(t, record)
	assert.NotNil(t, failure)
	assert.Equal(t, "Failed to load page", failure.Message)
}

func TestExtractBodystyleRegexFallback(t *testing.T) {
	session := newFakeSession()
	session.pages[detailURL] = `<html><body>
<section class="basics-section"></section>
<a class="sds-link--ext" data-linkname="check-recalls" href="https://www.nhtsa.gov/recalls#bodystyle=pickup_truck">recalls</a>
</body></html>`

	record, failure := newTestExtractor().Extract(session, detailURL)

	assert.Nil(t, failure)
	assert.Equal(t, "pickup_truck", record.Bodystyle)
}

func TestListingID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"detail path", "https://www.cars.com/vehicledetail/abc123/", "abc123"},
		{"detail path no trailing slash", "https://www.cars.com/vehicledetail/abc123", "abc123"},
		{"marker absent", "https://www.cars.com/shopping/results/", "https://www.cars.com/shopping/results/"},
		{"marker with empty tail", "https://www.cars.com/vehicledetail/", "https://www.cars.com/vehicledetail/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ListingID(tt.url))
		})
	}
}
