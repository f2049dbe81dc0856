package scrape

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sjsage522/carlistingworker/internal/metrics"
	"sjsage522/carlistingworker/internal/render"
	"sjsage522/carlistingworker/logger"
	apperrors "sjsage522/carlistingworker/pkg/errors"
)

const progressLogEvery = 5

// RecordStore is the persistence collaborator: a batch push reporting
// success as a boolean, no retry.
type RecordStore interface {
	PushRecords(records []Record) bool
}

// RecordPublisher fans successful records out to a stream. Optional.
type RecordPublisher interface {
	Publish(key string, message []byte) error
	TrimStreams() error
}

// OrchestratorConfig carries the tunables for one orchestrator.
type OrchestratorConfig struct {
	SearchBaseURL  string
	MaxWorkers     int
	AcquireTimeout time.Duration
	TaskTimeout    time.Duration
}

// Orchestrator fans the collected link set out across a bounded session
// pool, aggregates Records and hands them to the store. Failures are only
// logged; partial scraping failure is never fatal.
type Orchestrator struct {
	config    OrchestratorConfig
	factory   render.Factory
	extractor *Extractor
	store     RecordStore
	publisher RecordPublisher
	log       *logger.Logger

	// overridable in tests
	extractFunc func(render.Session, string) (*Record, *Failure)
}

// NewOrchestrator creates an orchestrator. publisher may be nil.
func NewOrchestrator(config OrchestratorConfig, factory render.Factory, store RecordStore, publisher RecordPublisher) *Orchestrator {
	extractor := NewExtractor()
	return &Orchestrator{
		config:      config,
		factory:     factory,
		extractor:   extractor,
		store:       store,
		publisher:   publisher,
		log:         logger.ForOrchestrator(),
		extractFunc: extractor.Extract,
	}
}

// Run collects links for the filter and page range, extracts every listing
// under pool-bounded concurrency and pushes the aggregate to the store.
// The returned slice carries no ordering guarantee.
func (o *Orchestrator) Run(ctx context.Context, filter Filter, startPage, endPage int) ([]Record, error) {
	collectSession, err := o.factory()
	if err != nil {
		return nil, apperrors.NewSession("orchestrator", "failed to create collection session", err)
	}

	collector := NewCollector(collectSession, o.config.SearchBaseURL)
	links := collector.Collect(filter, startPage, endPage)
	collectSession.Close()

	o.log.Info().Int("links", len(links)).Msg("Link collection finished")
	if len(links) == 0 {
		return nil, nil
	}

	poolSize := o.config.MaxWorkers
	if len(links) < poolSize {
		poolSize = len(links)
	}
	pool := render.NewPool(poolSize, o.factory)

	var (
		mu        sync.Mutex
		records   []Record
		completed int64
		inFlight  sync.WaitGroup
	)

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(poolSize)

	total := len(links)
	for _, link := range links {
		link := link
		group.Go(func() error {
			record := o.runTask(link, pool, &inFlight)

			done := atomic.AddInt64(&completed, 1)
			if done%progressLogEvery == 0 {
				o.log.Info().Int64("done", done).Int("total", total).Msg("Scrape progress")
			}

			if record != nil {
				mu.Lock()
				records = append(records, *record)
				mu.Unlock()
				o.publish(record)
			}
			return nil
		})
	}
	group.Wait()

	// Deadline-expired tasks may still hold leases; wait for every lease to
	// come home before draining so no session outlives the run.
	inFlight.Wait()
	pool.Drain()

	o.log.Info().Int("records", len(records)).Int("links", total).Msg("Scrape finished")

	if len(records) > 0 {
		if ok := o.store.PushRecords(records); !ok {
			o.log.Error().Int("records", len(records)).Msg("Store push failed")
		}
	}

	// Trim published streams after the run
	if o.publisher != nil {
		if err := o.publisher.TrimStreams(); err != nil {
			o.log.Error().Err(err).Msg("Failed to trim streams")
		}
	}

	return records, nil
}

type taskOutcome struct {
	record  *Record
	failure *Failure
	err     error
}

// runTask leases a session, runs the extractor and returns the Record, or
// nil when the link is excluded. The wall-clock deadline covers the whole
// task including the lease wait; an expired task keeps running in the
// background until it can return its lease.
func (o *Orchestrator) runTask(link Link, pool *render.Pool, inFlight *sync.WaitGroup) *Record {
	start := time.Now()
	outcomes := make(chan taskOutcome, 1)

	inFlight.Add(1)
	go func() {
		defer inFlight.Done()

		session, err := pool.Acquire(o.config.AcquireTimeout)
		if err != nil {
			outcomes <- taskOutcome{err: err}
			return
		}
		defer pool.Release(session)

		record, failure := o.extractFunc(session, link.URL)
		outcomes <- taskOutcome{record: record, failure: failure}
	}()

	select {
	case outcome := <-outcomes:
		metrics.TaskDuration.Observe(time.Since(start).Seconds())
		switch {
		case outcome.err != nil:
			o.log.Warn().Err(outcome.err).Str("url", link.URL).Msg("No session available, link excluded")
			metrics.TasksFailed.WithLabelValues("pool_exhausted").Inc()
			return nil
		case outcome.failure != nil:
			o.log.Warn().Str("id", outcome.failure.ID).Str("error", outcome.failure.Message).Msg("Listing failed")
			metrics.TasksFailed.WithLabelValues("extract").Inc()
			return nil
		default:
			metrics.RecordsScraped.Inc()
			return outcome.record
		}
	case <-time.After(o.config.TaskTimeout):
		o.log.Warn().Str("url", link.URL).Dur("deadline", o.config.TaskTimeout).Msg("Task deadline exceeded, link excluded")
		metrics.TasksFailed.WithLabelValues("deadline").Inc()
		return nil
	}
}

func (o *Orchestrator) publish(record *Record) {
	if o.publisher == nil {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		o.log.Error().Err(err).Str("id", record.ID).Msg("Failed to marshal record for publishing")
		return
	}
	if err := o.publisher.Publish("listing", data); err != nil {
		o.log.Error().Err(err).Str("id", record.ID).Msg("Failed to publish record")
	}
}
