// Package errors provides error types and utilities for the cache package.
package errors

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeCache represents cache-level errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeCodec represents compression and encoding errors
	ErrorTypeCodec ErrorType = "codec"
	// ErrorTypeSnapshot represents serialize/deserialize errors
	ErrorTypeSnapshot ErrorType = "snapshot"
	// ErrorTypePrefetch represents background prefetch errors
	ErrorTypePrefetch ErrorType = "prefetch"
	// ErrorTypeConfig represents configuration validation errors
	ErrorTypeConfig ErrorType = "config"
)

// Common error types
var (
	// Cache errors
	ErrCacheClosed     = errors.New("cache is closed")
	ErrKeyNotFound     = errors.New("key not found")
	ErrCapacityOverrun = errors.New("capacity exceeded with all entries pinned")
	ErrShutdownTimeout = errors.New("shutdown timed out waiting for background work")

	// TTL errors
	ErrInvalidTTL  = errors.New("invalid TTL value")
	ErrTTLTooShort = errors.New("TTL value is too short")
	ErrTTLTooLong  = errors.New("TTL value is too long")

	// Codec errors
	ErrDecompression = errors.New("decompression error")
	ErrSerialization = errors.New("serialization error")

	// Snapshot errors
	ErrInvalidSnapshot = errors.New("invalid snapshot blob")

	// Prefetch errors
	ErrNoProducer      = errors.New("no value producer configured")
	ErrProducerFailed  = errors.New("value producer failed")
	ErrProducerTimeout = errors.New("value producer timed out")

	// Config errors
	ErrInvalidSize   = errors.New("max size must be greater than 0")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// CacheError represents a cache operation error
type CacheError struct {
	Op      string
	Key     any
	Err     error
	ErrType ErrorType
}

// determineErrorType determines the error type based on the error
func determineErrorType(err error) ErrorType {
	switch {
	case errors.Is(err, ErrCacheClosed) || errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrCapacityOverrun) || errors.Is(err, ErrShutdownTimeout):
		return ErrorTypeCache
	case errors.Is(err, ErrDecompression) || errors.Is(err, ErrSerialization):
		return ErrorTypeCodec
	case errors.Is(err, ErrInvalidSnapshot):
		return ErrorTypeSnapshot
	case errors.Is(err, ErrNoProducer) || errors.Is(err, ErrProducerFailed) ||
		errors.Is(err, ErrProducerTimeout):
		return ErrorTypePrefetch
	case errors.Is(err, ErrInvalidTTL) || errors.Is(err, ErrTTLTooShort) ||
		errors.Is(err, ErrTTLTooLong) || errors.Is(err, ErrInvalidSize) ||
		errors.Is(err, ErrInvalidConfig):
		return ErrorTypeConfig
	default:
		return ErrorTypeCache
	}
}

// Error implements the error interface
func (e *CacheError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s: %s: key=%v: %v", e.ErrType, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.ErrType, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *CacheError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error is of the same type as the receiver
func (e *CacheError) Is(target error) bool {
	t, ok := target.(*CacheError)
	if !ok {
		return false
	}
	return e.ErrType == t.ErrType && e.Op == t.Op && errors.Is(e.Err, t.Err)
}

// NewCacheError creates a new CacheError
func NewCacheError(errType ErrorType, op string, key any, err error) error {
	return &CacheError{
		ErrType: errType,
		Op:      op,
		Key:     key,
		Err:     err,
	}
}

// ErrorMetrics tracks error statistics
type ErrorMetrics struct {
	// Error counts by type
	CacheErrors    atomic.Int64
	CodecErrors    atomic.Int64
	SnapshotErrors atomic.Int64
	PrefetchErrors atomic.Int64
	ConfigErrors   atomic.Int64

	// Last error timestamps
	LastCacheError    atomic.Value // time.Time
	LastCodecError    atomic.Value // time.Time
	LastSnapshotError atomic.Value // time.Time
	LastPrefetchError atomic.Value // time.Time
	LastConfigError   atomic.Value // time.Time

	// Error recovery stats
	PanicRecoveries atomic.Int64
	LastPanic       atomic.Value // time.Time
}

var metrics = &ErrorMetrics{}

// GetErrorMetrics returns the current error metrics
func GetErrorMetrics() *ErrorMetrics {
	return metrics
}

// ResetErrorMetrics resets all error metrics
func ResetErrorMetrics() {
	metrics.CacheErrors.Store(0)
	metrics.CodecErrors.Store(0)
	metrics.SnapshotErrors.Store(0)
	metrics.PrefetchErrors.Store(0)
	metrics.ConfigErrors.Store(0)
	metrics.PanicRecoveries.Store(0)
	metrics.LastCacheError.Store(time.Time{})
	metrics.LastCodecError.Store(time.Time{})
	metrics.LastSnapshotError.Store(time.Time{})
	metrics.LastPrefetchError.Store(time.Time{})
	metrics.LastConfigError.Store(time.Time{})
	metrics.LastPanic.Store(time.Time{})
}

// updateErrorMetrics updates metrics for the given error type
func updateErrorMetrics(errType ErrorType) {
	now := time.Now()
	switch errType {
	case ErrorTypeCache:
		metrics.CacheErrors.Add(1)
		metrics.LastCacheError.Store(now)
	case ErrorTypeCodec:
		metrics.CodecErrors.Add(1)
		metrics.LastCodecError.Store(now)
	case ErrorTypeSnapshot:
		metrics.SnapshotErrors.Add(1)
		metrics.LastSnapshotError.Store(now)
	case ErrorTypePrefetch:
		metrics.PrefetchErrors.Add(1)
		metrics.LastPrefetchError.Store(now)
	case ErrorTypeConfig:
		metrics.ConfigErrors.Add(1)
		metrics.LastConfigError.Store(now)
	}
}

// WrapError wraps an error with context and updates metrics
func WrapError(op string, key any, err error) error {
	if err == nil {
		return nil
	}

	// Determine error type
	errType := determineErrorType(err)

	// Update metrics
	updateErrorMetrics(errType)

	// Create and return wrapped error
	return NewCacheError(errType, op, key, err)
}

// RecoverFromPanic recovers from a panic and updates metrics
func RecoverFromPanic(op string, key any) bool {
	if r := recover(); r != nil {
		metrics.PanicRecoveries.Add(1)
		metrics.LastPanic.Store(time.Now())
		return true
	}
	return false
}

// IsCacheError checks if an error is a CacheError
func IsCacheError(err error) bool {
	_, ok := err.(*CacheError)
	return ok
}

// GetCacheError returns the CacheError if the error is a CacheError
func GetCacheError(err error) *CacheError {
	if cacheErr, ok := err.(*CacheError); ok {
		return cacheErr
	}
	return nil
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if cacheErr, ok := err.(*CacheError); ok {
		return cacheErr.ErrType == errType
	}
	return false
}

// IsKeyNotFound checks if the error is a key not found error
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsInvalidSnapshot checks if the error is an invalid snapshot error
func IsInvalidSnapshot(err error) bool {
	return errors.Is(err, ErrInvalidSnapshot)
}

// IsCacheClosed checks if the error is a cache closed error
func IsCacheClosed(err error) bool {
	return errors.Is(err, ErrCacheClosed)
}
