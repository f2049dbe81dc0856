package publisher

// Publisher represents a service for publishing scraped records
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// NoopPublisher discards everything. Used when no stream is configured.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that does nothing
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// Publish discards the message
func (p *NoopPublisher) Publish(key string, message []byte) error {
	return nil
}

// TrimStreams does nothing
func (p *NoopPublisher) TrimStreams() error {
	return nil
}

// Close does nothing
func (p *NoopPublisher) Close() error {
	return nil
}
