package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sjsage522/carlistingworker/config"
	"sjsage522/carlistingworker/internal/metrics"
	"sjsage522/carlistingworker/internal/scrape"
	"sjsage522/carlistingworker/logger"
	"sjsage522/carlistingworker/services/cache"
	"sjsage522/carlistingworker/services/store"
)

const cooldownKey = "carscraper_scrape_in_progress"

// Runner runs one scrape for a filter and page range.
type Runner interface {
	Run(ctx context.Context, filter scrape.Filter, startPage, endPage int) ([]scrape.Record, error)
}

// Server is the HTTP trigger surface: scrape trigger, store status, health
// and metrics.
type Server struct {
	cfg     config.Config
	runner  Runner
	store   store.Store
	cache   cache.CacheService
	log     *logger.Logger
	httpSrv *http.Server
}

// New creates the server. cache may be nil, which disables the cooldown.
func New(cfg config.Config, runner Runner, st store.Store, cacheSvc cache.CacheService) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		store:  st,
		cache:  cacheSvc,
		log:    logger.ForServer(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/scrape", s.handleScrape)
	mux.HandleFunc("/wordpress-status", s.handleStoreStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	s.httpSrv = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("HTTP server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// scrapeRequest carries the Filter fields of one trigger request.
type scrapeRequest struct {
	StockType    string   `json:"stock_type"`
	Makes        []string `json:"makes"`
	Models       []string `json:"models"`
	ZipCode      string   `json:"zip_code"`
	MaxDistance  int      `json:"max_distance"`
	ListPriceMin *int     `json:"list_price_min"`
	ListPriceMax *int     `json:"list_price_max"`
	YearMin      *int     `json:"year_min"`
	YearMax      *int     `json:"year_max"`
	MileageMax   *int     `json:"mileage_max"`
	BodyStyles   []string `json:"body_styles"`
	FuelTypes    []string `json:"fuel_types"`
	StartPage    int      `json:"start_page"`
	EndPage      int      `json:"end_page"`
}

func (r *scrapeRequest) applyDefaults() {
	if r.StockType == "" {
		r.StockType = "all"
	}
	if r.ZipCode == "" {
		r.ZipCode = "60606"
	}
	if r.MaxDistance == 0 {
		r.MaxDistance = 50
	}
	if r.StartPage == 0 {
		r.StartPage = 1
	}
	if r.EndPage == 0 {
		r.EndPage = 1
	}
}

func (r *scrapeRequest) filter() scrape.Filter {
	return scrape.Filter{
		StockType:    r.StockType,
		Makes:        r.Makes,
		Models:       r.Models,
		ZipCode:      r.ZipCode,
		MaxDistance:  r.MaxDistance,
		ListPriceMin: r.ListPriceMin,
		ListPriceMax: r.ListPriceMax,
		YearMin:      r.YearMin,
		YearMax:      r.YearMax,
		MileageMax:   r.MileageMax,
		BodyStyles:   r.BodyStyles,
		FuelTypes:    r.FuelTypes,
	}
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"detail": "Method not allowed."})
		return
	}

	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": "Malformed request body."})
		return
	}
	req.applyDefaults()

	if req.EndPage < req.StartPage {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": "End page cannot be less than start page."})
		return
	}

	if !s.enterCooldown() {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{"detail": "A scrape is already in progress."})
		return
	}
	defer s.leaveCooldown()

	s.log.Info().
		Str("stock_type", req.StockType).
		Int("start_page", req.StartPage).
		Int("end_page", req.EndPage).
		Msg("Scrape triggered")

	records, err := s.runner.Run(r.Context(), req.filter(), req.StartPage, req.EndPage)
	if err != nil {
		s.log.Error().Err(err).Msg("Scrape run failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"detail": "An unexpected error occurred."})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Scraping process completed successfully!",
		"cars_scraped": len(records),
	})
}

func (s *Server) handleStoreStatus(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.RecentRecords(5)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"wordpress_accessible": false,
			"error":                err.Error(),
			"message":              "WordPress REST API is not accessible. Check your WordPress configuration.",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wordpress_accessible": true,
		"sample_data_count":    len(records),
		"message":              "WordPress REST API is working correctly.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "Cars Scraper API",
		"version": "1.0.0",
	})
}

// enterCooldown claims the run slot. The TTL is a safety bound in case the
// process dies mid-run; a clean run deletes the key on the way out.
func (s *Server) enterCooldown() bool {
	if s.cache == nil {
		return true
	}
	if _, err := s.cache.Get(cooldownKey); err == nil {
		return false
	}
	if err := s.cache.Set(cooldownKey, []byte(time.Now().Format(time.RFC3339)), s.cfg.ScrapeCooldown); err != nil {
		s.log.Warn().Err(err).Msg("Failed to set cooldown key")
	}
	return true
}

func (s *Server) leaveCooldown() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(cooldownKey); err != nil {
		s.log.Debug().Err(err).Msg("Failed to clear cooldown key")
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
