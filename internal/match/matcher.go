package match

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/facegate/facegate/internal/identity"
	"github.com/facegate/facegate/internal/store"
)

// parallelMinRecords is the catalog size above which the linear scan fans
// out across goroutines. Below it the goroutine overhead outweighs the
// arithmetic.
const parallelMinRecords = 2048

// Result is an accepted match: the closest enrolled identity and its
// distance from the probe.
type Result struct {
	Identity identity.Identity
	Distance float64
}

// Matcher finds the enrolled identity closest to a probe embedding and
// accepts it when the distance falls strictly below the threshold.
//
// Ties on the minimum distance resolve to the first-inserted record, so
// repeated calls with the same probe against the same catalog return the
// same identity.
type Matcher struct {
	store     store.Store
	threshold float64
	index     *CandidateIndex
}

// NewMatcher creates a matcher over the given store. The threshold is the
// maximum acceptable Euclidean distance; the compatibility default is 0.6.
func NewMatcher(s store.Store, threshold float64) *Matcher {
	return &Matcher{store: s, threshold: threshold}
}

// Threshold returns the configured distance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// EnableIndex builds an approximate candidate index from the current
// catalog. Search quality becomes approximate (HNSW recall), so this is
// opt-in for large catalogs only; the default exact scan stays authoritative
// otherwise. New enrollments must be fed to Add to stay searchable.
func (m *Matcher) EnableIndex(ctx context.Context) error {
	records, err := m.store.List(ctx)
	if err != nil {
		return err
	}
	idx := NewCandidateIndex()
	idx.Build(records)
	m.index = idx
	return nil
}

// Add registers a newly enrolled identity with the candidate index, if one
// is enabled.
func (m *Matcher) Add(rec identity.Identity) {
	if m.index != nil {
		m.index.Add(rec)
	}
}

// Match scans the current store snapshot for the record closest to the
// probe. It returns nil when no record falls within the threshold; an empty
// store always yields no match. The probe's dimensionality is checked once
// against the store's: every stored record is already guaranteed equal
// length by the insert-time invariant.
func (m *Matcher) Match(ctx context.Context, probe []float32) (*Result, error) {
	if m.index != nil {
		return m.matchIndexed(probe)
	}

	records, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	if len(probe) != len(records[0].Embedding) {
		return nil, store.ErrDimensionMismatch
	}

	var bestIdx int
	var bestDist float64
	if len(records) >= parallelMinRecords {
		bestIdx, bestDist, err = scanParallel(ctx, probe, records)
	} else {
		bestIdx, bestDist, err = scan(probe, records)
	}
	if err != nil {
		return nil, err
	}

	if bestDist < m.threshold {
		return &Result{Identity: records[bestIdx], Distance: bestDist}, nil
	}
	return nil, nil
}

// scan walks the records sequentially. Strict less-than keeps the
// first-inserted record on exact ties. A record whose embedding length
// disagrees with the probe means the insert-time invariant was broken
// (a corrupted catalog); that fails the whole match rather than scoring
// the record with a bogus distance.
func scan(probe []float32, records []identity.Identity) (int, float64, error) {
	bestIdx := 0
	bestDist, err := EuclideanDistance(probe, records[0].Embedding)
	if err != nil {
		return 0, 0, err
	}
	for i := 1; i < len(records); i++ {
		d, err := EuclideanDistance(probe, records[i].Embedding)
		if err != nil {
			return 0, 0, err
		}
		if d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	return bestIdx, bestDist, nil
}

// scanParallel splits the catalog into per-CPU chunks and reduces the local
// minima. The reduction prefers the lower insertion index on ties, so the
// result is identical to the sequential scan.
func scanParallel(ctx context.Context, probe []float32, records []identity.Identity) (int, float64, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(records) {
		workers = len(records)
	}
	chunk := (len(records) + workers - 1) / workers

	type local struct {
		idx  int
		dist float64
	}
	locals := make([]local, workers)

	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(records))
		if lo >= hi {
			locals[w] = local{idx: -1}
			continue
		}
		g.Go(func() error {
			idx, dist, err := scan(probe, records[lo:hi])
			if err != nil {
				return err
			}
			locals[w] = local{idx: lo + idx, dist: dist}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	bestIdx, bestDist := -1, 0.0
	for _, l := range locals {
		if l.idx < 0 {
			continue
		}
		if bestIdx < 0 || l.dist < bestDist || (l.dist == bestDist && l.idx < bestIdx) {
			bestIdx, bestDist = l.idx, l.dist
		}
	}
	return bestIdx, bestDist, nil
}

// matchIndexed asks the candidate index for nearest neighbors and verifies
// them with exact distances.
func (m *Matcher) matchIndexed(probe []float32) (*Result, error) {
	dim := m.index.Dim()
	if dim == 0 {
		return nil, nil
	}
	if len(probe) != dim {
		return nil, store.ErrDimensionMismatch
	}

	rec, dist, ok := m.index.Nearest(probe)
	if !ok {
		return nil, nil
	}
	if dist < m.threshold {
		return &Result{Identity: rec, Distance: dist}, nil
	}
	return nil, nil
}
