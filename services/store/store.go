package store

import (
	"sjsage522/carlistingworker/internal/scrape"
)

// Store is the external persistence collaborator. Writes report success as
// a boolean and are never retried at this boundary.
type Store interface {
	// PushRecords sends a batch of flattened records
	PushRecords(records []scrape.Record) bool

	// RecentRecords reads up to limit recently stored records
	RecentRecords(limit int) ([]map[string]interface{}, error)
}
