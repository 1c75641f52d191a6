// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for run-level fatal conditions. These fail a run before
// any device is dispatched; per-device failures are recorded in the run
// aggregate instead and never surface here.
var (
	ErrEmptyInventory    = errors.New("inventory is empty")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMissingCredential = errors.New("credential not resolvable")
	ErrUnknownSystem     = errors.New("unknown system type")
)

// ConfigError represents an invalid configuration value with context
type ConfigError struct {
	Field   string
	Value   string
	Details string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid configuration: %s=%q", e.Field, e.Value)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a new configuration error
func NewConfigError(field, value, details string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Details: details}
}

// CredentialError reports an environment key that could not be resolved
// to a usable credential.
type CredentialError struct {
	Key     string
	Details string
}

func (e *CredentialError) Error() string {
	msg := fmt.Sprintf("credential %q not resolvable", e.Key)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *CredentialError) Unwrap() error {
	return ErrMissingCredential
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
