package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sjsage522/carlistingworker/helpers"
	"sjsage522/carlistingworker/internal/metrics"
	"sjsage522/carlistingworker/internal/scrape"
	"sjsage522/carlistingworker/logger"
)

const apiNamespace = "/wp-json/cars-scraper/v1"

// allowedFields is the fixed field set the store accepts. Anything else a
// listing page happens to expose is dropped before transmission.
var allowedFields = map[string]bool{
	"id":                          true,
	"title":                       true,
	"price":                       true,
	"mileage":                     true,
	"exterior_color":              true,
	"interior_color":              true,
	"engine":                      true,
	"transmission":                true,
	"drivetrain":                  true,
	"fuel_type":                   true,
	"mpg":                         true,
	"vin":                         true,
	"stock_":                      true,
	"features_exterior":           true,
	"features_seating":            true,
	"features_safety":             true,
	"features_convenience":        true,
	"features_entertainment":      true,
	"additional_popular_features": true,
	"all_features":                true,
	"images":                      true,
	"start_payment":               true,
	"payment_breakdown":           true,
	"status_flag":                 true,
	"make":                        true,
	"model":                       true,
	"year":                        true,
	"bodystyle":                   true,
}

// WordPressStore pushes records to a WordPress REST endpoint secured with an
// application password.
type WordPressStore struct {
	baseURL     string
	username    string
	appPassword string
	client      *http.Client
	log         *logger.Logger
}

// NewWordPressStore creates a store client with the write-side timeout.
func NewWordPressStore(baseURL, username, appPassword string) *WordPressStore {
	return &WordPressStore{
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		appPassword: appPassword,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         logger.ForStore(),
	}
}

func (s *WordPressStore) apiURL(path string) string {
	return s.baseURL + apiNamespace + path
}

// PushRecords sends a batch of flattened records. Success is reported as a
// boolean; no retry happens at this boundary. The volatile last_updated
// stamp is stripped since the store manages its own.
func (s *WordPressStore) PushRecords(records []scrape.Record) bool {
	cars := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		cars = append(cars, sanitizeFields(records[i].Fields()))
	}

	payload := map[string]interface{}{
		"cars_data": cars,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal store payload")
		return false
	}

	req, err := http.NewRequest(http.MethodPost, s.apiURL("/update-cars-data"), bytes.NewReader(body))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create store request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", helpers.BrowserUserAgent())
	if s.username != "" {
		req.SetBasicAuth(s.username, s.appPassword)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error().Err(err).Msg("Store push failed")
		metrics.StorePushes.WithLabelValues("error").Inc()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Error().Int("status", resp.StatusCode).Msg("Store rejected batch")
		metrics.StorePushes.WithLabelValues("rejected").Inc()
		return false
	}

	metrics.StorePushes.WithLabelValues("ok").Inc()
	s.log.Info().Int("records", len(records)).Msg("Batch pushed to store")
	return true
}

// RecentRecords reads up to limit recently stored records. Used by the
// status surface; failures surface as an error, not a retry.
func (s *WordPressStore) RecentRecords(limit int) ([]map[string]interface{}, error) {
	url := fmt.Sprintf("%s?limit=%d", s.apiURL("/get-cars-data"), limit)
	body, err := helpers.FetchWithBrowserHeaders(url)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent records: %w", err)
	}

	var response struct {
		CarsData []map[string]interface{} `json:"cars_data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode recent records: %w", err)
	}
	return response.CarsData, nil
}

// sanitizeFields keeps only allow-listed keys and serializes any non-scalar
// value to its JSON text. last_updated is not in the allow-list, so the
// extraction stamp never reaches the wire.
func sanitizeFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		if !allowedFields[key] {
			continue
		}
		switch value.(type) {
		case string, bool, int, int32, int64, float32, float64, nil:
			out[key] = value
		default:
			encoded, err := json.Marshal(value)
			if err != nil {
				continue
			}
			out[key] = string(encoded)
		}
	}
	return out
}
