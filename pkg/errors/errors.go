// Package errors provides custom error types for the skinmap system.
// Ingestion outcomes are classified by these types so a run summary can
// report why a record was skipped, degraded or refused.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join forward to the standard library so callers need a single import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the skinmap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAnnotationUnavailable indicates the annotation service could not produce an estimate
	ErrAnnotationUnavailable = errors.New("annotation service unavailable")

	// ErrRateLimited indicates that the annotation service rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrContentConflict indicates a persisted record differs from incoming content
	ErrContentConflict = errors.New("content conflict")

	// ErrIdentityAmbiguity indicates colliding rows disagree on ingredient content
	ErrIdentityAmbiguity = errors.New("identity ambiguity")

	// ErrCrosswalkConflict indicates an external reference is claimed by two products
	ErrCrosswalkConflict = errors.New("crosswalk conflict")

	// ErrCredentialsMissing indicates a required credential is not configured
	ErrCredentialsMissing = errors.New("credentials missing")

	// ErrSchemaMissing indicates an expected store relation does not exist
	ErrSchemaMissing = errors.New("schema missing")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a missing or malformed required field.
// Row is the zero-based input row, or -1 when the error is not row scoped.
type ValidationError struct {
	Field   string
	Value   any
	Row     int
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	prefix := "validation failed"
	if e.Row >= 0 {
		prefix = fmt.Sprintf("validation failed at row %d", e.Row)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s for field %s: %s", prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError that is not row scoped
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Row: -1, Message: message}
}

// NewRowValidationError creates a new ValidationError for an input row
func NewRowValidationError(row int, field, message string) *ValidationError {
	return &ValidationError{Field: field, Row: row, Message: message}
}

// AnnotationServiceError represents a failure of the generative annotation service
type AnnotationServiceError struct {
	Service    string
	StatusCode int
	Attempts   int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *AnnotationServiceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "annotation error from %s", e.Service)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap implements errors.Unwrap
func (e *AnnotationServiceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AnnotationServiceError) Is(target error) bool {
	switch target {
	case ErrAnnotationUnavailable:
		return true
	case ErrRateLimited:
		return e.StatusCode == 429
	}
	return false
}

// Retryable reports whether the failure is worth another attempt.
// Client errors other than 408 and 429 are not retried.
func (e *AnnotationServiceError) Retryable() bool {
	if e.StatusCode == 0 || e.StatusCode == 408 || e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500
}

// NewAnnotationServiceError creates a new AnnotationServiceError
func NewAnnotationServiceError(service string, statusCode int, message string) *AnnotationServiceError {
	return &AnnotationServiceError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ContentConflictError reports that an existing product differs from incoming
// content in fields the incoming source may not overwrite.
type ContentConflictError struct {
	ProductID string
	Fields    []string
}

// Error implements the error interface
func (e *ContentConflictError) Error() string {
	return fmt.Sprintf("product %s differs from incoming content in %s", e.ProductID, strings.Join(e.Fields, ", "))
}

// Is implements errors.Is support
func (e *ContentConflictError) Is(target error) bool {
	return target == ErrContentConflict
}

// IdentityAmbiguityError reports rows sharing an identity key with different ingredients
type IdentityAmbiguityError struct {
	Key  string
	Rows []int
}

// Error implements the error interface
func (e *IdentityAmbiguityError) Error() string {
	return fmt.Sprintf("rows %v share identity key %q but disagree on ingredients", e.Rows, e.Key)
}

// Is implements errors.Is support
func (e *IdentityAmbiguityError) Is(target error) bool {
	return target == ErrIdentityAmbiguity
}

// CrosswalkConflictError reports an external reference claimed by two products
type CrosswalkConflictError struct {
	SourceSystem  string
	SourceType    string
	NormalizedRef string
	ExistingID    string
	IncomingID    string
}

// Error implements the error interface
func (e *CrosswalkConflictError) Error() string {
	return fmt.Sprintf("crosswalk %s/%s %q already maps to %s, refusing claim by %s",
		e.SourceSystem, e.SourceType, e.NormalizedRef, e.ExistingID, e.IncomingID)
}

// Is implements errors.Is support
func (e *CrosswalkConflictError) Is(target error) bool {
	return target == ErrCrosswalkConflict
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "csv"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during store operations
type ResourceError struct {
	Operation string // "insert", "update", "delete", "fetch", "commit"
	Resource  string // "product", "mapping", "snippet", "alias"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAnnotationError checks if an error came from the annotation service
func IsAnnotationError(err error) bool {
	return errors.Is(err, ErrAnnotationUnavailable)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsContentConflict checks if an error is a content conflict
func IsContentConflict(err error) bool {
	return errors.Is(err, ErrContentConflict)
}

// IsCrosswalkConflict checks if an error is a crosswalk conflict
func IsCrosswalkConflict(err error) bool {
	return errors.Is(err, ErrCrosswalkConflict)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsFatal reports whether an error must abort a run before any mutation.
func IsFatal(err error) bool {
	var cfg *ConfigError
	return errors.Is(err, ErrCredentialsMissing) ||
		errors.Is(err, ErrSchemaMissing) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.As(err, &cfg)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapAnnotation wraps an error as an AnnotationServiceError
func WrapAnnotation(service string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &AnnotationServiceError{
		Service:    service,
		StatusCode: statusCode,
		Err:        err,
	}
}
