package matcher

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// indexMaxNeighbors is the HNSW M parameter.
const indexMaxNeighbors = 16

// indexCandidates is how many nearest templates the index hands to the exact
// matcher. Large enough that the threshold/tie-break contract of Match is
// preserved for any realistic template set.
const indexCandidates = 16

// Index is an in-memory approximate-nearest-neighbor index over one
// population's enrolled templates. It is a pre-filter: candidates returned by
// the graph are re-scored with the exact Euclidean kernel, so Match semantics
// (threshold, minimum distance, lowest-id tie-break) are unchanged.
//
// Worth building for large schools; small template sets should use Match
// directly on the snapshot.
type Index struct {
	population attendance.Population
	graph      *hnsw.Graph[int64]
	byID       map[int64]*attendance.Template
	dim        int
	mu         sync.RWMutex
}

// NewIndex creates an empty index for one population.
func NewIndex(population attendance.Population) *Index {
	return &Index{
		population: population,
		byID:       make(map[int64]*attendance.Template),
	}
}

// Population returns the population this index serves.
func (ix *Index) Population() attendance.Population {
	return ix.population
}

// Build replaces the index contents with the given template snapshot.
// Templates from other populations and templates with empty descriptors are
// ignored.
func (ix *Index) Build(templates []attendance.Template) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(templates) == 0 {
		ix.graph = nil
		ix.byID = make(map[int64]*attendance.Template)
		ix.dim = 0
		return
	}

	g := hnsw.NewGraph[int64]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	ix.byID = make(map[int64]*attendance.Template, len(templates))
	ix.dim = 0
	for i := range templates {
		tpl := &templates[i]
		if tpl.Population != ix.population || len(tpl.Descriptor) == 0 {
			continue
		}
		// Descriptor length is constant within a population; templates that
		// disagree with the first one seen are left out of the graph.
		if ix.dim == 0 {
			ix.dim = len(tpl.Descriptor)
		}
		if len(tpl.Descriptor) != ix.dim {
			continue
		}
		g.Add(hnsw.MakeNode(tpl.ID, tpl.Descriptor))
		ix.byID[tpl.ID] = tpl
	}

	ix.graph = g
}

// Add inserts a single template.
func (ix *Index) Add(tpl attendance.Template) {
	if tpl.Population != ix.population || len(tpl.Descriptor) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.graph == nil {
		ix.graph = hnsw.NewGraph[int64]()
		ix.graph.M = indexMaxNeighbors
		ix.graph.Ml = 1.0 / float64(indexMaxNeighbors)
		ix.graph.Distance = hnsw.EuclideanDistance
		ix.dim = len(tpl.Descriptor)
	}
	if len(tpl.Descriptor) != ix.dim {
		return
	}

	ix.graph.Add(hnsw.MakeNode(tpl.ID, tpl.Descriptor))
	ix.byID[tpl.ID] = &tpl
}

// Count returns the number of indexed templates.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}

// Match finds the best candidate for a probe via the graph, then applies the
// exact matcher to the candidate set. An empty index returns no match.
func (ix *Index) Match(probe []float32, opts Options) attendance.MatchResult {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil || len(ix.byID) == 0 {
		return attendance.MatchResult{}
	}
	if len(probe) != ix.dim {
		// Mismatched probe cannot be searched against the graph.
		return attendance.MatchResult{}
	}

	neighbors := ix.graph.Search(probe, indexCandidates)
	candidates := make([]attendance.Template, 0, len(neighbors))
	for _, n := range neighbors {
		if tpl, ok := ix.byID[n.Key]; ok {
			candidates = append(candidates, *tpl)
		}
	}

	return Match(probe, candidates, opts)
}
