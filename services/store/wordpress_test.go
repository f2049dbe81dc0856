package store

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sjsage522/carlistingworker/internal/scrape"
)

func testRecord() scrape.Record {
	mileage := 45231
	payment := 512
	return scrape.Record{
		ID:      "abc123",
		Title:   "2021 Ford Bronco Sport",
		Price:   "$28,991",
		Year:    "2021",
		Make:    "Ford",
		Model:   "Bronco Sport",
		Basics:  map[string]string{"exterior_color": "Cyber Orange", "stock_": "P12345", "unlisted_label": "dropped"},
		Mileage: &mileage,
		Features: map[string]string{
			"features_exterior": "Alloy Wheels; Fog Lights",
		},
		Images:           []scrape.Image{{Src: "https://img.example.com/medium/1.jpg", ModalSrc: "https://img.example.com/large/1.jpg", Alt: "front"}},
		StartPayment:     scrape.Amount{Value: &payment},
		PaymentBreakdown: scrape.Breakdown{Sentinel: "No breakdown available"},
		Bodystyle:        "suv",
		StatusFlag:       "New Entry",
		LastUpdated:      time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}
}

func TestPushRecordsPayload(t *testing.T) {
	var captured struct {
		auth        string
		userAgent   string
		contentType string
		path        string
		body        []byte
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		captured.userAgent = r.Header.Get("User-Agent")
		captured.contentType = r.Header.Get("Content-Type")
		captured.path = r.URL.Path
		captured.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := NewWordPressStore(server.URL+"/", "scraper", "app-password")
	ok := store.PushRecords([]scrape.Record{testRecord()})

	assert.True(t, ok)
	assert.Equal(t, "/wp-json/cars-scraper/v1/update-cars-data", captured.path)
	assert.Equal(t, "application/json", captured.contentType)
	assert.Contains(t, captured.userAgent, "Mozilla")
	assert.NotEmpty(t, captured.auth)

	var payload struct {
		CarsData  []map[string]interface{} `json:"cars_data"`
		Timestamp string                   `json:"timestamp"`
	}
	assert.NoError(t, json.Unmarshal(captured.body, &payload))
	assert.NotEmpty(t, payload.Timestamp)
	assert.Len(t, payload.CarsData, 1)

	car := payload.CarsData[0]
	assert.Equal(t, "abc123", car["id"])
	assert.Equal(t, "Cyber Orange", car["exterior_color"])
	assert.Equal(t, float64(45231), car["mileage"])
	assert.Equal(t, float64(512), car["start_payment"])
	assert.Equal(t, "No breakdown available", car["payment_breakdown"])

	// non-scalar fields travel as JSON text
	images, ok := car["images"].(string)
	assert.True(t, ok)
	assert.Contains(t, images, "https://img.example.com/medium/1.jpg")

	// not in the allow-list
	assert.NotContains(t, car, "unlisted_label")
	assert.NotContains(t, car, "last_updated")
}

func TestPushRecordsSentinelPayment(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	record := testRecord()
	record.StartPayment = scrape.Amount{Sentinel: "Not available"}

	store := NewWordPressStore(server.URL, "", "")
	assert.True(t, store.PushRecords([]scrape.Record{record}))

	var payload struct {
		CarsData []map[string]interface{} `json:"cars_data"`
	}
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Not available", payload.CarsData[0]["start_payment"])
}

func TestPushRecordsNoAuthWithoutUsername(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := NewWordPressStore(server.URL, "", "")
	assert.True(t, store.PushRecords([]scrape.Record{testRecord()}))
	assert.Empty(t, auth)
}

func TestPushRecordsRejectedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewWordPressStore(server.URL, "scraper", "app-password")
	assert.False(t, store.PushRecords([]scrape.Record{testRecord()}))
}

func TestPushRecordsUnreachableStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	store := NewWordPressStore(server.URL, "scraper", "app-password")
	assert.False(t, store.PushRecords([]scrape.Record{testRecord()}))
}

func TestRecentRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/cars-scraper/v1/get-cars-data", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cars_data": [{"id": "abc123", "title": "2021 Ford Bronco Sport"}]}`))
	}))
	defer server.Close()

	store := NewWordPressStore(server.URL, "", "")
	records, err := store.RecentRecords(3)

	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "abc123", records[0]["id"])
}

func TestRecentRecordsUnreachableStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	store := NewWordPressStore(server.URL, "", "")
	_, err := store.RecentRecords(1)

	assert.Error(t, err)
}
