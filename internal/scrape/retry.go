package scrape

import (
	"strings"
	"time"
)

// Policy describes a bounded retry loop with a fixed backoff between
// attempts. The same policy covers search-page and detail-page loads.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Do runs op until it succeeds or the attempt budget is spent, sleeping
// between attempts. The last error is returned on exhaustion.
func (p Policy) Do(op func() error) error {
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < p.MaxAttempts-1 {
			time.Sleep(p.Backoff)
		}
	}
	return err
}

// BackoffFor classifies an error by message content: connection and timeout
// failures wait longer before the next outer attempt than anything else.
func BackoffFor(err error) time.Duration {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline") {
		return 2 * time.Second
	}
	return time.Second
}
