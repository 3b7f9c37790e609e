package scryfall

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when Scryfall has no card with the exact name.
type NotFoundError struct {
	Name string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("card %q not found on Scryfall", e.Name)
}

// UnavailableError is returned for any non-success response other than 404.
type UnavailableError struct {
	Name       string
	StatusCode int
	Details    string
}

// Error implements the error interface for UnavailableError.
func (e *UnavailableError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.StatusCode, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d)", e.StatusCode)
}

// TransportError wraps network-level failures and undecodable responses.
type TransportError struct {
	Name string
	Err  error
}

// Error implements the error interface for TransportError.
func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch card %q: %v", e.Name, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsUnavailable returns true if err is or wraps an UnavailableError.
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

// IsTransport returns true if err is or wraps a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}
