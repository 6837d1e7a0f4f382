package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/facegate/facegate/internal/identity"
	"github.com/facegate/facegate/internal/store"
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// dimLockID keys the advisory lock serializing the dimensionality check
// against concurrent inserts. Without it two first inserts into an empty
// table both see no rows under read committed and could commit records of
// different lengths.
const dimLockID = 0xface01

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Insert persists a new identity. The unique index on contact makes two
// concurrent enrollments for the same contact resolve to exactly one
// success; an advisory lock serializes the dimensionality check with the
// insert so concurrent first inserts into an empty table agree on a
// single dimension.
func (r *IdentityRepository) Insert(ctx context.Context, rec identity.Identity) (identity.Identity, error) {
	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Held until commit; makes the check-then-insert below atomic across
	// concurrent transactions.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", dimLockID); err != nil {
		return identity.Identity{}, fmt.Errorf("acquire dimension lock: %w", err)
	}

	var dim int
	err = tx.QueryRowContext(ctx, "SELECT dim FROM identities LIMIT 1").Scan(&dim)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, fmt.Errorf("query store dimension: %w", err)
	}
	if err == nil && dim != len(rec.Embedding) {
		return identity.Identity{}, store.ErrDimensionMismatch
	}

	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (id, display_name, contact, embedding, dim, photo_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.DisplayName, rec.Contact, pgvector.NewVector(rec.Embedding),
		len(rec.Embedding), rec.PhotoRef, rec.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return identity.Identity{}, store.ErrDuplicateIdentity
		}
		return identity.Identity{}, fmt.Errorf("insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return identity.Identity{}, fmt.Errorf("commit insert: %w", err)
	}
	return rec, nil
}

// List returns all identities in insertion order.
func (r *IdentityRepository) List(ctx context.Context) ([]identity.Identity, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, display_name, contact, embedding, photo_ref, created_at
		FROM identities
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var records []identity.Identity
	for rows.Next() {
		var rec identity.Identity
		var vec pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.DisplayName, &rec.Contact, &vec, &rec.PhotoRef, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return records, nil
}

// Get returns the identity with the given ID, or nil if not enrolled.
func (r *IdentityRepository) Get(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	var rec identity.Identity
	var vec pgvector.Vector

	err := r.pool.db.QueryRowContext(ctx, `
		SELECT id, display_name, contact, embedding, photo_ref, created_at
		FROM identities
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.DisplayName, &rec.Contact, &vec, &rec.PhotoRef, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}

	rec.Embedding = vec.Slice()
	return &rec, nil
}

// Count returns the number of enrolled identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// Close closes the underlying connection pool.
func (r *IdentityRepository) Close() error {
	return r.pool.Close()
}
