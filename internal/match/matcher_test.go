package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facegate/facegate/internal/identity"
	"github.com/facegate/facegate/internal/store"
)

const testThreshold = 0.6

func enrolled(t *testing.T, s *store.MemoryStore, contact string, embedding []float32) identity.Identity {
	t.Helper()
	rec, err := s.Insert(context.Background(), identity.Identity{
		DisplayName: contact,
		Contact:     contact,
		Embedding:   embedding,
	})
	require.NoError(t, err)
	return rec
}

func TestMatcher_EmptyStoreNoMatch(t *testing.T) {
	m := NewMatcher(store.NewMemoryStore(), testThreshold)

	probes := [][]float32{nil, {}, {0, 0, 0}, {10, 10, 10}}
	for _, probe := range probes {
		res, err := m.Match(context.Background(), probe)
		require.NoError(t, err)
		assert.Nil(t, res)
	}
}

func TestMatcher_CloseProbeMatches(t *testing.T) {
	s := store.NewMemoryStore()
	rec := enrolled(t, s, "a@x.com", []float32{0, 0, 0})
	m := NewMatcher(s, testThreshold)

	res, err := m.Match(context.Background(), []float32{0, 0, 0.1})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, rec.ID, res.Identity.ID)
	assert.InDelta(t, 0.1, res.Distance, 1e-6)
}

func TestMatcher_FarProbeNoMatch(t *testing.T) {
	s := store.NewMemoryStore()
	enrolled(t, s, "a@x.com", []float32{0, 0, 0})
	m := NewMatcher(s, testThreshold)

	res, err := m.Match(context.Background(), []float32{10, 10, 10})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestMatcher_IdenticalEmbeddingAlwaysMatches(t *testing.T) {
	s := store.NewMemoryStore()
	enrolled(t, s, "a@x.com", []float32{0.5, -0.25, 1.0})
	rec := enrolled(t, s, "b@x.com", []float32{3.5, 1.25, -2.0})
	m := NewMatcher(s, 0.0001)

	res, err := m.Match(context.Background(), []float32{3.5, 1.25, -2.0})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, rec.ID, res.Identity.ID)
	assert.Equal(t, 0.0, res.Distance)
}

func TestMatcher_PicksClosest(t *testing.T) {
	s := store.NewMemoryStore()
	enrolled(t, s, "far@x.com", []float32{1, 1, 1})
	near := enrolled(t, s, "near@x.com", []float32{0.1, 0, 0})
	m := NewMatcher(s, testThreshold)

	res, err := m.Match(context.Background(), []float32{0, 0, 0})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, near.ID, res.Identity.ID)
}

func TestMatcher_ThresholdIsStrict(t *testing.T) {
	s := store.NewMemoryStore()
	enrolled(t, s, "a@x.com", []float32{0, 0, 0})

	// Distance is exactly 0.6: strictly-less-than means no match.
	m := NewMatcher(s, 0.6)
	res, err := m.Match(context.Background(), []float32{0.6, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, res)

	// Nudging the threshold above the distance accepts it.
	m = NewMatcher(s, 0.600001)
	res, err = m.Match(context.Background(), []float32{0.6, 0, 0})
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestMatcher_TieBreakFirstInserted(t *testing.T) {
	s := store.NewMemoryStore()
	first := enrolled(t, s, "first@x.com", []float32{1, 0, 0})
	enrolled(t, s, "second@x.com", []float32{-1, 0, 0})
	m := NewMatcher(s, 2.0)

	// Probe equidistant from both records.
	res, err := m.Match(context.Background(), []float32{0, 0, 0})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, first.ID, res.Identity.ID)
}

func TestMatcher_ProbeDimensionMismatch(t *testing.T) {
	s := store.NewMemoryStore()
	enrolled(t, s, "a@x.com", []float32{0, 0, 0})
	m := NewMatcher(s, testThreshold)

	_, err := m.Match(context.Background(), []float32{0, 0})
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestMatcher_ParallelScanMatchesSequential(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	// Enough records to cross the parallel fan-out boundary.
	const n = parallelMinRecords + 100
	for i := 0; i < n; i++ {
		_, err := s.Insert(ctx, identity.Identity{
			DisplayName: "bulk",
			Contact:     fmt.Sprintf("bulk%d@x.com", i),
			Embedding:   []float32{float32(i), float32(i % 7), float32(i % 13)},
		})
		require.NoError(t, err)
	}
	target := enrolled(t, s, "target@x.com", []float32{-5, -5, -5})

	m := NewMatcher(s, 1.0)
	res, err := m.Match(ctx, []float32{-5, -5, -4.9})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, target.ID, res.Identity.ID)
	assert.InDelta(t, 0.1, res.Distance, 1e-6)
}

func TestMatcher_IndexedMatch(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	enrolled(t, s, "a@x.com", []float32{0, 0, 0})
	near := enrolled(t, s, "b@x.com", []float32{5, 5, 5})

	m := NewMatcher(s, testThreshold)
	require.NoError(t, m.EnableIndex(ctx))

	res, err := m.Match(ctx, []float32{5, 5, 5.1})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, near.ID, res.Identity.ID)

	// Records enrolled after EnableIndex become searchable through Add.
	late := enrolled(t, s, "c@x.com", []float32{-9, -9, -9})
	m.Add(late)

	res, err = m.Match(ctx, []float32{-9, -9, -9})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, late.ID, res.Identity.ID)
}

func TestMatcher_IndexedDimensionMismatch(t *testing.T) {
	s := store.NewMemoryStore()
	enrolled(t, s, "a@x.com", []float32{0, 0, 0})

	m := NewMatcher(s, testThreshold)
	require.NoError(t, m.EnableIndex(context.Background()))

	_, err := m.Match(context.Background(), []float32{0, 0})
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestCandidateIndex_Empty(t *testing.T) {
	idx := NewCandidateIndex()
	_, _, ok := idx.Nearest([]float32{1, 2, 3})
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.Dim())
}

// mixedDimStore serves a catalog whose records disagree on embedding
// length, something a healthy store can never produce. It stands in for a
// corrupted backend.
type mixedDimStore struct {
	records []identity.Identity
}

func (s *mixedDimStore) Insert(ctx context.Context, rec identity.Identity) (identity.Identity, error) {
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *mixedDimStore) List(ctx context.Context) ([]identity.Identity, error) {
	return s.records, nil
}

func (s *mixedDimStore) Get(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	return nil, nil
}

func (s *mixedDimStore) Count(ctx context.Context) (int, error) {
	return len(s.records), nil
}

func (s *mixedDimStore) Close() error { return nil }

func TestMatcher_CorruptedCatalogFailsLoudly(t *testing.T) {
	// A record with the wrong length must fail the match, not score as a
	// zero-distance perfect match for the wrong identity.
	s := &mixedDimStore{records: []identity.Identity{
		{Contact: "far@x.com", Embedding: []float32{10, 10, 10}},
		{Contact: "corrupt@x.com", Embedding: []float32{0, 0}},
	}}
	m := NewMatcher(s, testThreshold)

	res, err := m.Match(context.Background(), []float32{0, 0, 0})
	require.ErrorIs(t, err, ErrLengthMismatch)
	assert.Nil(t, res)
}
