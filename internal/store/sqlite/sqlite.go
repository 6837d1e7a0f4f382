// Package sqlite implements the embedding store on an embedded SQLite
// database, for single-node deployments without a PostgreSQL instance.
// Embeddings are stored as length-prefixed little-endian blobs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/facegate/facegate/internal/identity"
	"github.com/facegate/facegate/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS identities (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	contact      TEXT NOT NULL UNIQUE,
	embedding    BLOB NOT NULL,
	dim          INTEGER NOT NULL,
	photo_ref    TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	seq          INTEGER
);

CREATE INDEX IF NOT EXISTS identities_seq_idx ON identities(seq);
`

// Store is a SQLite-backed embedding store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer connection sidesteps SQLITE_BUSY under concurrent
	// enrollments; reads multiplex over it fine at this catalog scale.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Insert persists a new identity. Contact uniqueness is enforced by the
// UNIQUE constraint, so the duplicate check and insert are atomic; the
// dimensionality check runs in the same transaction.
func (s *Store) Insert(ctx context.Context, rec identity.Identity) (identity.Identity, error) {
	blob, err := encodeVector(rec.Embedding)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("encode embedding: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

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
		INSERT INTO identities (id, display_name, contact, embedding, dim, photo_ref, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM identities))
	`, rec.ID.String(), rec.DisplayName, rec.Contact, blob, len(rec.Embedding), rec.PhotoRef, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
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
func (s *Store) List(ctx context.Context) ([]identity.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		rec, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return records, nil
}

// Get returns the identity with the given ID, or nil if not enrolled.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, contact, embedding, photo_ref, created_at
		FROM identities
		WHERE id = ?
	`, id.String())

	rec, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of enrolled identities.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (identity.Identity, error) {
	var rec identity.Identity
	var rawID string
	var blob []byte

	if err := row.Scan(&rawID, &rec.DisplayName, &rec.Contact, &blob, &rec.PhotoRef, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.Identity{}, err
		}
		return identity.Identity{}, fmt.Errorf("scan identity: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("parse identity id: %w", err)
	}
	rec.ID = id

	rec.Embedding, err = decodeVector(blob)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("decode embedding: %w", err)
	}
	return rec, nil
}

// isUniqueViolation reports whether err is the driver's UNIQUE constraint
// failure on the contact column.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
