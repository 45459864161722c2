// Package lockout counts consecutive wrong-password attempts per account.
// After the threshold the user service locks the account; a successful login
// or an administrative unlock clears the counter.
package lockout

import "context"

// MaxAttempts is how many consecutive failures lock an account.
const MaxAttempts = 3

// Store counts failures per identifier (the login email, lowercased).
type Store interface {
	// RecordFailure increments the counter and returns the new total.
	RecordFailure(ctx context.Context, identifier string) (int, error)
	// Clear resets the counter.
	Clear(ctx context.Context, identifier string) error
}
