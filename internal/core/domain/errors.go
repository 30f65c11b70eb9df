package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Authentication Errors.

	// ErrNoCredential indicates no authorisation has been performed yet.
	// The user must run the interactive login before exporting.
	ErrNoCredential = errors.New("no credential: run 'ledgersync auth login' first")

	// ErrAuthExchangeFailed indicates the token endpoint rejected an exchange.
	// The existing credential is unusable until re-authorisation.
	ErrAuthExchangeFailed = errors.New("auth exchange failed")

	// ErrCorruptState indicates the persisted credential could not be read.
	ErrCorruptState = errors.New("corrupt credential state")

	// ErrNoTenant indicates the credential has no organisation tenant.
	ErrNoTenant = errors.New("no organisation tenant connected")

	// Fetch Errors.

	// ErrTransport indicates a network or HTTP failure during pagination.
	ErrTransport = errors.New("transport error")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Sink Errors.

	// ErrSchemaMismatch indicates a table cannot be written with its declared key.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// AuthExchangeFailedError carries the token endpoint's response.
// Status is zero when the request never produced a response.
type AuthExchangeFailedError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthExchangeFailedError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("auth exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("auth exchange failed with status %d: %s", e.Status, e.Body)
}

func (e *AuthExchangeFailedError) Unwrap() error { return e.Err }

// Is matches ErrAuthExchangeFailed.
func (e *AuthExchangeFailedError) Is(target error) bool { return target == ErrAuthExchangeFailed }

// TransportError records where a paginated fetch broke off.
type TransportError struct {
	Resource string
	Page     int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s page %d: %v", e.Resource, e.Page, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// SchemaMismatchError indicates a table lacks its primary key column.
// The whole table is skipped.
type SchemaMismatchError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("schema mismatch on table %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("schema mismatch on table %s: primary key %q not found", e.Table, e.Column)
}

// Is matches ErrSchemaMismatch.
func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// CorruptStateError indicates the credential file exists but is unusable.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt credential file %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// Is matches ErrCorruptState.
func (e *CorruptStateError) Is(target error) bool { return target == ErrCorruptState }

// IsFatal reports whether err must halt the whole run rather than a single resource.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoCredential) ||
		errors.Is(err, ErrAuthExchangeFailed) ||
		errors.Is(err, ErrCorruptState)
}
