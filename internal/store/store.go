// Package store defines the embedding store contract and its in-memory
// implementation. SQL-backed implementations live in subpackages.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/facegate/facegate/internal/identity"
)

var (
	// ErrDuplicateIdentity is returned when an identity with the same
	// contact is already enrolled.
	ErrDuplicateIdentity = errors.New("identity already enrolled with this contact")

	// ErrDimensionMismatch is returned when an embedding's length differs
	// from the store's established dimensionality. The first inserted
	// record fixes the dimensionality for the store's lifetime.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Store holds the enrolled identity records. Records are immutable once
// inserted; the only mutation is Insert itself.
type Store interface {
	// Insert persists a new identity. The record's ID and CreatedAt are
	// assigned by the store. Fails with ErrDuplicateIdentity if the
	// contact is taken and ErrDimensionMismatch if the embedding length
	// disagrees with the established dimensionality. The duplicate check
	// and the insert are atomic: of two concurrent enrollments for the
	// same contact, exactly one succeeds.
	Insert(ctx context.Context, rec identity.Identity) (identity.Identity, error)

	// List returns a snapshot of all records in insertion order.
	// Inserts after the call do not affect a returned snapshot.
	List(ctx context.Context) ([]identity.Identity, error)

	// Get returns the identity with the given ID, or nil if not enrolled.
	Get(ctx context.Context, id uuid.UUID) (*identity.Identity, error)

	// Count returns the number of enrolled identities.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
