package match

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/facegate/facegate/internal/identity"
)

// HNSW graph parameters for face embeddings.
const (
	indexMaxNeighbors = 16
	// candidateK is how many approximate neighbors to pull before exact
	// verification. More than one so a near-miss at the top of the
	// approximate ranking still surfaces the true nearest record.
	candidateK = 8
)

// CandidateIndex is an HNSW graph over the enrolled embeddings, keyed by
// insertion order. Search is approximate; returned candidates are
// re-verified with exact Euclidean distances.
type CandidateIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	byKey   map[int64]identity.Identity
	nextKey int64
	dim     int
}

// NewCandidateIndex creates an empty index.
func NewCandidateIndex() *CandidateIndex {
	return &CandidateIndex{byKey: make(map[int64]identity.Identity)}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given records, keyed in
// insertion order.
func (c *CandidateIndex) Build(records []identity.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.graph = newGraph()
	c.byKey = make(map[int64]identity.Identity, len(records))
	c.nextKey = 0
	c.dim = 0

	for _, rec := range records {
		c.addLocked(rec)
	}
}

// Add registers a single record with the index.
func (c *CandidateIndex) Add(rec identity.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.graph == nil {
		c.graph = newGraph()
	}
	c.addLocked(rec)
}

func (c *CandidateIndex) addLocked(rec identity.Identity) {
	if len(rec.Embedding) == 0 {
		return
	}
	if c.dim == 0 {
		c.dim = len(rec.Embedding)
	}
	key := c.nextKey
	c.nextKey++
	c.graph.Add(hnsw.MakeNode(key, rec.Embedding))
	c.byKey[key] = rec
}

// Dim returns the dimensionality of the indexed embeddings, 0 when empty.
func (c *CandidateIndex) Dim() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dim
}

// Len returns the number of indexed records.
func (c *CandidateIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}

// Nearest returns the indexed record closest to the probe along with its
// exact Euclidean distance. Ties resolve to the lower insertion key.
func (c *CandidateIndex) Nearest(probe []float32) (identity.Identity, float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.graph == nil || len(c.byKey) == 0 {
		return identity.Identity{}, 0, false
	}

	neighbors := c.graph.Search(probe, candidateK)
	if len(neighbors) == 0 {
		return identity.Identity{}, 0, false
	}

	bestKey, bestDist := int64(-1), 0.0
	for _, n := range neighbors {
		d, err := EuclideanDistance(probe, n.Value)
		if err != nil {
			continue
		}
		if bestKey < 0 || d < bestDist || (d == bestDist && n.Key < bestKey) {
			bestKey, bestDist = n.Key, d
		}
	}
	if bestKey < 0 {
		return identity.Identity{}, 0, false
	}
	return c.byKey[bestKey], bestDist, true
}
