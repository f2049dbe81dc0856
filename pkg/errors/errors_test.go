package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrapeErrorFormatting(t *testing.T) {
	wrapped := errors.New("net::ERR_CONNECTION_RESET")
	err := NewLoadFailure("extractor", "navigation failed", wrapped)

	assert.Equal(t, "[load_failure] extractor: navigation failed - net::ERR_CONNECTION_RESET", err.Error())
	assert.Equal(t, wrapped, errors.Unwrap(err))

	bare := NewValidation("server", "end page before start page")
	assert.Equal(t, "[validation] server: end page before start page", bare.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, NewLoadFailure("extractor", "navigation failed", nil).IsRetryable())
	assert.True(t, NewSession("pool", "session died", nil).IsRetryable())
	assert.False(t, NewStructureNotFound("extractor", ".basics-section").IsRetryable())
	assert.False(t, NewPoolExhausted("pool", 0).IsRetryable())
	assert.False(t, NewValidation("server", "bad range").IsRetryable())
}

func TestConstructorsSetType(t *testing.T) {
	assert.Equal(t, ErrorTypeStructureNotFound, NewStructureNotFound("extractor", ".basics-section").Type)
	assert.Equal(t, ErrorTypePoolExhausted, NewPoolExhausted("pool", 0).Type)
	assert.Equal(t, ErrorTypeTaskDeadline, NewTaskDeadline("orchestrator", 0).Type)
	assert.Equal(t, ErrorTypeStore, NewStore("wordpress", "push failed", nil).Type)
	assert.Equal(t, ErrorTypeConfiguration, NewConfiguration("missing store url", nil).Type)
}
