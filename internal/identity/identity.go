// Package identity wraps the external identity provider holding the
// authenticatable principals. The provider owns the user id; every other
// record in the system is keyed by it.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the referenced principal does not exist.
	ErrNotFound = errors.New("identity not found")
	// ErrUnavailable is returned when the provider cannot be reached; the
	// caller may retry.
	ErrUnavailable = errors.New("identity store unavailable")
)

// User is the provider's view of a principal.
type User struct {
	ID       string
	Email    string
	FullName string
	Disabled bool
	// Claims are opaque key/value assertions attached to the principal and
	// consumed by downstream authorization checks.
	Claims map[string]string
}

type Store interface {
	LookupByID(ctx context.Context, id string) (*User, error)
	LookupByEmail(ctx context.Context, email string) (*User, error)

	// Create provisions a new principal and returns its provider-assigned id.
	Create(ctx context.Context, email, password string) (string, error)

	// Delete removes the principal. Deleting an absent principal succeeds.
	Delete(ctx context.Context, id string) error

	// AttachClaims merges claims into the principal's claim set, replacing
	// values for keys that already exist.
	AttachClaims(ctx context.Context, id string, claims map[string]string) error

	// VerifyCredential validates a bearer credential and returns the id of
	// the principal it was issued to.
	VerifyCredential(ctx context.Context, token string) (string, error)
}
