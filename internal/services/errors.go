// Package services defines the business logic for the XP ledger, daily
// limits, reconciliation, and achievement evaluation. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Ledger-related errors.
var (
	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUser is returned when a request carries an empty user ID.
	ErrInvalidUser = errors.New("user id must not be empty")

	// ErrInvalidAmount is returned when a credit request carries a zero or
	// negative amount. Only reconciliation corrections may be signed.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidSource is returned when a credit request carries an empty
	// source label.
	ErrInvalidSource = errors.New("source must not be empty")

	// ErrAuditNotFound indicates that the referenced audit transaction does
	// not exist.
	ErrAuditNotFound = errors.New("audit transaction not found")

	// ErrAlreadyReversed is returned when a reversal targets a credit that
	// was reversed before.
	ErrAlreadyReversed = errors.New("transaction already reversed")

	// ErrNotReversible is returned when a reversal targets a credit that
	// never reached the confirmed state.
	ErrNotReversible = errors.New("only confirmed transactions can be reversed")

	// ErrBalanceNotFound indicates that the user holds no balance row yet.
	ErrBalanceNotFound = errors.New("balance not found")

	// ErrInvalidStars is returned when a rating is outside 1..5.
	ErrInvalidStars = errors.New("stars must be between 1 and 5")

	// ErrInvalidConfig is returned when an XP configuration update carries
	// negative amounts or unknown keys.
	ErrInvalidConfig = errors.New("invalid xp configuration")
)
