package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeLoadFailure represents a page that could not be loaded
	ErrorTypeLoadFailure ErrorType = "load_failure"
	// ErrorTypeStructureNotFound represents an expected container missing after waiting
	ErrorTypeStructureNotFound ErrorType = "structure_not_found"
	// ErrorTypeFieldTimeout represents a soft per-field timeout
	ErrorTypeFieldTimeout ErrorType = "field_timeout"
	// ErrorTypeSession represents a broken or unusable rendering session
	ErrorTypeSession ErrorType = "session"
	// ErrorTypePoolExhausted represents an acquire that timed out on the session pool
	ErrorTypePoolExhausted ErrorType = "pool_exhausted"
	// ErrorTypeTaskDeadline represents a task that exceeded its wall-clock deadline
	ErrorTypeTaskDeadline ErrorType = "task_deadline"
	// ErrorTypeStore represents persistence collaborator errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeLoadFailure, ErrorTypeSession:
		return true
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, component, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewLoadFailure creates a new page load error
func NewLoadFailure(component, message string, err error) *ScrapeError {
	return New(ErrorTypeLoadFailure, component, message, err)
}

// NewStructureNotFound creates a new missing structure error
func NewStructureNotFound(component, selector string) *ScrapeError {
	message := fmt.Sprintf("expected container %q never appeared", selector)
	return New(ErrorTypeStructureNotFound, component, message, nil)
}

// NewSession creates a new session error
func NewSession(component, message string, err error) *ScrapeError {
	return New(ErrorTypeSession, component, message, err)
}

// NewPoolExhausted creates a new pool exhaustion error
func NewPoolExhausted(component string, timeout time.Duration) *ScrapeError {
	message := fmt.Sprintf("no free session within %v", timeout)
	return New(ErrorTypePoolExhausted, component, message, nil)
}

// NewTaskDeadline creates a new task deadline error
func NewTaskDeadline(component string, deadline time.Duration) *ScrapeError {
	message := fmt.Sprintf("task exceeded %v deadline", deadline)
	return New(ErrorTypeTaskDeadline, component, message, nil)
}

// NewStore creates a new persistence error
func NewStore(component, message string, err error) *ScrapeError {
	return New(ErrorTypeStore, component, message, err)
}

// NewValidation creates a new validation error
func NewValidation(component, message string) *ScrapeError {
	return New(ErrorTypeValidation, component, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}
