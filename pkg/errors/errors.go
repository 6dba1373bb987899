package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration represents configuration errors. These are the only fatal errors.
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeSource represents a storefront adapter failure
	ErrorTypeSource ErrorType = "source"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML or JSON parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeNormalization represents a raw record that could not become an offer
	ErrorTypeNormalization ErrorType = "normalization"
	// ErrorTypeStore represents dedup store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypePublish represents notification delivery errors
	ErrorTypePublish ErrorType = "publish"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
)

// Error is the typed error used across the pipeline
type Error struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Component == "" {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s - %v", e.Type, e.Message, e.Err)
		}
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(errType ErrorType, component, message string, err error) *Error {
	return &Error{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// IsType reports whether err, or anything it wraps, is an *Error of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Err
	}
	return false
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *Error {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewSource creates a new source adapter error
func NewSource(source, message string, err error) *Error {
	return New(ErrorTypeSource, source, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *Error {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *Error {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, retryAfter string) *Error {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewNormalization creates a new normalization error
func NewNormalization(store, message string, err error) *Error {
	return New(ErrorTypeNormalization, store, message, err)
}

// NewStore creates a new dedup store error
func NewStore(backend, message string, err error) *Error {
	return New(ErrorTypeStore, backend, message, err)
}

// NewPublish creates a new publish error
func NewPublish(publisher, message string, err error) *Error {
	return New(ErrorTypePublish, publisher, message, err)
}

// NewCache creates a new cache error
func NewCache(component, message string, err error) *Error {
	return New(ErrorTypeCache, component, message, err)
}
