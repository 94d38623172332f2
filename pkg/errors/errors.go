// Package errors provides custom error types for the ribocollate pipeline.
// These errors enable programmatic error checking across the load, resolve,
// match, and serialize phases, and carry enough context to name the offending
// file, column, or row in reports.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the ribocollate pipeline
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingColumn indicates a required column is absent from a source header
	ErrMissingColumn = errors.New("missing required column")

	// ErrAmbiguous indicates conflicting claims that cannot be resolved automatically
	ErrAmbiguous = errors.New("ambiguous data")

	// ErrUnmappedTerm indicates a vocabulary term with no canonical mapping
	ErrUnmappedTerm = errors.New("unmapped vocabulary term")

	// ErrDuplicateKey indicates two records claim the same primary key
	ErrDuplicateKey = errors.New("duplicate key")
)

// MissingColumnError is the fatal error for a source file whose header lacks
// a required column. The whole run aborts; there is no row-level recovery.
type MissingColumnError struct {
	File   string
	Column string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("source %s is missing required column %q", e.File, e.Column)
}

// Is implements errors.Is support
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// NewMissingColumnError creates a new MissingColumnError
func NewMissingColumnError(file, column string) *MissingColumnError {
	return &MissingColumnError{File: file, Column: column}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// AmbiguityError represents conflicting platform-support claims for the same
// canonical accession. Both row contents are carried so the report can name
// them; the fix is a manual correction of the source data.
type AmbiguityError struct {
	Platform  string
	Accession string
	First     string
	Second    string
}

// Error implements the error interface
func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("conflicting %s rows for accession %s: %q vs %q",
		e.Platform, e.Accession, e.First, e.Second)
}

// Is implements errors.Is support
func (e *AmbiguityError) Is(target error) bool {
	return target == ErrAmbiguous
}

// NewAmbiguityError creates a new AmbiguityError
func NewAmbiguityError(platform, accession, first, second string) *AmbiguityError {
	return &AmbiguityError{
		Platform:  platform,
		Accession: accession,
		First:     first,
		Second:    second,
	}
}

// UnmappedTermError is returned by the vocabulary normalizer in strict mode
// when a raw term has no canonical mapping in its scope.
type UnmappedTermError struct {
	Scope string
	Term  string
}

// Error implements the error interface
func (e *UnmappedTermError) Error() string {
	return fmt.Sprintf("no canonical mapping for term %q in scope %s", e.Term, e.Scope)
}

// Is implements errors.Is support
func (e *UnmappedTermError) Is(target error) bool {
	return target == ErrUnmappedTerm
}

// NewUnmappedTermError creates a new UnmappedTermError
func NewUnmappedTermError(scope, term string) *UnmappedTermError {
	return &UnmappedTermError{Scope: scope, Term: term}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "tsv", "yaml", "json"
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
func NewParseError(format, file, message string, err error) *ParseError {
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

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMissingColumn checks if an error is a missing required column error
func IsMissingColumn(err error) bool {
	return errors.Is(err, ErrMissingColumn)
}

// IsAmbiguous checks if an error is an ambiguity error
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguous)
}

// IsUnmappedTerm checks if an error is an unmapped vocabulary term error
func IsUnmappedTerm(err error) bool {
	return errors.Is(err, ErrUnmappedTerm)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}
